// Package identity resolves raw actor references into canonical members.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
)

const (
	maxAccountIDLength  = 128
	maxExternalIDLength = 256
	maxLabelLength      = 128
)

var sourcePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)

// Member is a canonical identity: exactly one of Account or External.
type Member interface {
	Ref() domain.MemberRef
	isMember()
}

// Account is a member owned by the account system.
type Account struct {
	AccountID string
}

// Ref returns the membership key of the account.
func (a Account) Ref() domain.MemberRef {
	return domain.AccountRef(a.AccountID)
}

func (Account) isMember() {}

// External is a member sourced from a chat integration.
type External struct {
	RecordID     string
	Source       string
	ExternalID   string
	DisplayLabel string
}

// Ref returns the membership key of the external member.
func (e External) Ref() domain.MemberRef {
	return domain.MemberRef{Source: e.Source, ID: e.ExternalID}
}

func (External) isMember() {}

// RawRef is an unresolved actor reference as received from a caller.
// Exactly one of AccountID or the (Source, ExternalID) pair must be set.
type RawRef struct {
	AccountID  string
	Source     string
	ExternalID string
}

// IsZero reports whether no identity field is set.
func (r RawRef) IsZero() bool {
	return strings.TrimSpace(r.AccountID) == "" && strings.TrimSpace(r.Source) == "" && strings.TrimSpace(r.ExternalID) == ""
}

// ValidateAccountID checks account id well-formedness.
func ValidateAccountID(accountID string) error {
	if accountID == "" || len(accountID) > maxAccountIDLength || !isPrintable(accountID, false) {
		return apperrors.WithMetadata(apperrors.CodeIdentityAccountIDInvalid, "account id is malformed", map[string]string{
			apperrors.MetaField: "account_id",
		})
	}
	return nil
}

// ValidateSource checks an external source tag. The account tag is reserved.
func ValidateSource(source string) error {
	if !sourcePattern.MatchString(source) || source == domain.AccountSource {
		return apperrors.WithMetadata(apperrors.CodeIdentitySourceInvalid, "member source is malformed", map[string]string{
			apperrors.MetaField: source,
		})
	}
	return nil
}

// ValidateExternalID checks an external id.
func ValidateExternalID(externalID string) error {
	if strings.TrimSpace(externalID) == "" || len(externalID) > maxExternalIDLength || !isPrintable(externalID, true) {
		return apperrors.WithMetadata(apperrors.CodeIdentityExternalIDInvalid, "external id is malformed", map[string]string{
			apperrors.MetaField: "external_id",
		})
	}
	return nil
}

// ValidateRef checks a member reference as stored in memberships.
func ValidateRef(ref domain.MemberRef) error {
	if ref.IsAccount() {
		return ValidateAccountID(ref.ID)
	}
	if err := ValidateSource(ref.Source); err != nil {
		return err
	}
	return ValidateExternalID(ref.ID)
}

// Normalize trims and validates a raw reference.
func Normalize(raw RawRef) (RawRef, error) {
	raw.AccountID = strings.TrimSpace(raw.AccountID)
	raw.Source = strings.ToLower(strings.TrimSpace(raw.Source))
	raw.ExternalID = strings.TrimSpace(raw.ExternalID)

	hasAccount := raw.AccountID != ""
	hasExternal := raw.Source != "" || raw.ExternalID != ""
	if hasAccount == hasExternal {
		return RawRef{}, apperrors.New(apperrors.CodeIdentityReferenceInvalid, "exactly one of account id or external reference is required")
	}
	if hasAccount {
		if err := ValidateAccountID(raw.AccountID); err != nil {
			return RawRef{}, err
		}
		return raw, nil
	}
	if err := ValidateSource(raw.Source); err != nil {
		return RawRef{}, err
	}
	if err := ValidateExternalID(raw.ExternalID); err != nil {
		return RawRef{}, err
	}
	return raw, nil
}

func normalizeLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if len(label) > maxLabelLength || !isPrintable(label, true) {
		return "", apperrors.WithMetadata(apperrors.CodeIdentityLabelInvalid, "display label is malformed", map[string]string{
			apperrors.MetaField: "display_label",
		})
	}
	return label, nil
}

func isPrintable(value string, allowSpace bool) bool {
	for _, r := range value {
		if unicode.IsSpace(r) {
			if !allowSpace || r != ' ' {
				return false
			}
			continue
		}
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
