package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/platform/id"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
)

// Resolver maps raw references to canonical members, creating external
// member records on first reference.
type Resolver struct {
	store       storage.ExternalMemberStore
	now         func() time.Time
	idGenerator func() (string, error)
}

// NewResolver builds a resolver over store.
func NewResolver(store storage.ExternalMemberStore) *Resolver {
	return &Resolver{store: store, now: time.Now, idGenerator: id.NewID}
}

// Resolve returns the canonical member for raw. Resolving the same external
// pair concurrently yields the same record: the writer that loses the
// uniqueness race re-reads the winner.
func (r *Resolver) Resolve(ctx context.Context, raw RawRef) (Member, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	if normalized.AccountID != "" {
		return Account{AccountID: normalized.AccountID}, nil
	}
	record, err := r.getOrCreate(ctx, normalized.Source, normalized.ExternalID)
	if err != nil {
		return nil, err
	}
	return externalFromRecord(record), nil
}

// SetDisplayLabel attaches a label to an external member, creating the
// record when it does not exist yet.
func (r *Resolver) SetDisplayLabel(ctx context.Context, source, externalID, label string) (External, error) {
	normalized, err := Normalize(RawRef{Source: source, ExternalID: externalID})
	if err != nil {
		return External{}, err
	}
	label, err = normalizeLabel(label)
	if err != nil {
		return External{}, err
	}
	record, err := r.getOrCreate(ctx, normalized.Source, normalized.ExternalID)
	if err != nil {
		return External{}, err
	}
	if err := r.store.SetExternalMemberLabel(ctx, record.Source, record.ExternalID, label, r.now().UTC()); err != nil {
		return External{}, apperrors.Internal("set external member label", err)
	}
	record.DisplayLabel = label
	return externalFromRecord(record), nil
}

func (r *Resolver) getOrCreate(ctx context.Context, source, externalID string) (storage.ExternalMember, error) {
	if r.store == nil {
		return storage.ExternalMember{}, apperrors.Internal("resolve external member", fmt.Errorf("external member store is not configured"))
	}
	record, err := r.store.GetExternalMember(ctx, source, externalID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.ExternalMember{}, apperrors.Internal("get external member", err)
	}

	recordID, err := r.idGenerator()
	if err != nil {
		return storage.ExternalMember{}, apperrors.Internal("generate external member id", err)
	}
	now := r.now().UTC()
	record = storage.ExternalMember{
		RecordID:   recordID,
		Source:     source,
		ExternalID: externalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = r.store.CreateExternalMember(ctx, record)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, storage.ErrAlreadyExists) {
		return storage.ExternalMember{}, apperrors.Internal("create external member", err)
	}
	winner, err := r.store.GetExternalMember(ctx, source, externalID)
	if err != nil {
		return storage.ExternalMember{}, apperrors.Internal("re-read external member", err)
	}
	return winner, nil
}

func externalFromRecord(record storage.ExternalMember) External {
	return External{
		RecordID:     record.RecordID,
		Source:       record.Source,
		ExternalID:   record.ExternalID,
		DisplayLabel: record.DisplayLabel,
	}
}
