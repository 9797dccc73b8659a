// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

// Kind classifies a code into one of the error families callers branch on.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindForbidden    Kind = "FORBIDDEN"
	KindConflict     Kind = "CONFLICT"
	KindInvalidState Kind = "INVALID_STATE"
	KindInternal     Kind = "INTERNAL"
)

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"
	// CodeInternal marks storage or infrastructure failures.
	CodeInternal Code = "INTERNAL"

	// Identity errors
	CodeIdentityReferenceInvalid  Code = "IDENTITY_REFERENCE_INVALID"
	CodeIdentityAccountIDInvalid  Code = "IDENTITY_ACCOUNT_ID_INVALID"
	CodeIdentitySourceInvalid     Code = "IDENTITY_SOURCE_INVALID"
	CodeIdentityExternalIDInvalid Code = "IDENTITY_EXTERNAL_ID_INVALID"
	CodeIdentityLabelInvalid      Code = "IDENTITY_LABEL_INVALID"

	// Event errors
	CodeEventIDEmpty                 Code = "EVENT_ID_EMPTY"
	CodeEventNameEmpty               Code = "EVENT_NAME_EMPTY"
	CodeEventGameNameEmpty           Code = "EVENT_GAME_NAME_EMPTY"
	CodeEventChannelInvalid          Code = "EVENT_CHANNEL_INVALID"
	CodeEventPlanUpdateEmpty         Code = "EVENT_PLAN_UPDATE_EMPTY"
	CodeEventInvalidTargetStatus     Code = "EVENT_INVALID_TARGET_STATUS"
	CodeEventInvalidStatusTransition Code = "EVENT_INVALID_STATUS_TRANSITION"
	CodeEventCancelled               Code = "EVENT_CANCELLED"
	CodeEventStillExists             Code = "EVENT_STILL_EXISTS"
	CodeEventNotFound                Code = "EVENT_NOT_FOUND"
	CodeEventHostRequired            Code = "EVENT_HOST_REQUIRED"
	CodeEventNotVisible              Code = "EVENT_NOT_VISIBLE"
	CodeEventListFilterInvalid       Code = "EVENT_LIST_FILTER_INVALID"
	CodeEventViewScopeInvalid        Code = "EVENT_VIEW_SCOPE_INVALID"

	// Membership errors
	CodeMembershipInvalidRole     Code = "MEMBERSHIP_INVALID_ROLE"
	CodeMembershipNotFound        Code = "MEMBERSHIP_NOT_FOUND"
	CodeMembershipNotAccepted     Code = "MEMBERSHIP_NOT_ACCEPTED"
	CodeMembershipHostRoleDenied  Code = "MEMBERSHIP_HOST_ROLE_DENIED"
	CodeMembershipExists          Code = "MEMBERSHIP_EXISTS"
	CodeMembershipLastHost        Code = "MEMBERSHIP_LAST_HOST"
	CodeMembershipUnreachable     Code = "MEMBERSHIP_INVITEE_UNREACHABLE"
	CodeMembershipActorRequired   Code = "MEMBERSHIP_ACTOR_REQUIRED"
	CodeMembershipChannelRequired Code = "MEMBERSHIP_CHANNEL_REQUIRED"
)

// Kind reports the error family of the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeIdentityReferenceInvalid,
		CodeIdentityAccountIDInvalid,
		CodeIdentitySourceInvalid,
		CodeIdentityExternalIDInvalid,
		CodeIdentityLabelInvalid,
		CodeEventIDEmpty,
		CodeEventNameEmpty,
		CodeEventGameNameEmpty,
		CodeEventChannelInvalid,
		CodeEventPlanUpdateEmpty,
		CodeEventInvalidTargetStatus,
		CodeEventListFilterInvalid,
		CodeEventViewScopeInvalid,
		CodeMembershipInvalidRole,
		CodeMembershipUnreachable,
		CodeMembershipActorRequired,
		CodeMembershipChannelRequired:
		return KindValidation

	case CodeEventNotFound,
		CodeMembershipNotFound:
		return KindNotFound

	case CodeEventHostRequired,
		CodeEventNotVisible,
		CodeMembershipNotAccepted,
		CodeMembershipHostRoleDenied:
		return KindForbidden

	case CodeMembershipExists,
		CodeMembershipLastHost:
		return KindConflict

	case CodeEventCancelled,
		CodeEventInvalidStatusTransition,
		CodeEventStillExists:
		return KindInvalidState

	default:
		return KindInternal
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c.Kind() {
	// InvalidArgument - validation failures, bad input
	case KindValidation:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	case KindForbidden:
		return codes.PermissionDenied
	case KindConflict:
		// The last-host rejection is an invariant, not a duplicate resource.
		if c == CodeMembershipLastHost {
			return codes.FailedPrecondition
		}
		return codes.AlreadyExists
	case KindInvalidState:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}
