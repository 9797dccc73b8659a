package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeInternal                     = "INTERNAL"
	CodeIdentityReferenceInvalid     = "IDENTITY_REFERENCE_INVALID"
	CodeIdentityAccountIDInvalid     = "IDENTITY_ACCOUNT_ID_INVALID"
	CodeIdentitySourceInvalid        = "IDENTITY_SOURCE_INVALID"
	CodeIdentityExternalIDInvalid    = "IDENTITY_EXTERNAL_ID_INVALID"
	CodeIdentityLabelInvalid         = "IDENTITY_LABEL_INVALID"
	CodeEventIDEmpty                 = "EVENT_ID_EMPTY"
	CodeEventNameEmpty               = "EVENT_NAME_EMPTY"
	CodeEventGameNameEmpty           = "EVENT_GAME_NAME_EMPTY"
	CodeEventChannelInvalid          = "EVENT_CHANNEL_INVALID"
	CodeEventPlanUpdateEmpty         = "EVENT_PLAN_UPDATE_EMPTY"
	CodeEventInvalidTargetStatus     = "EVENT_INVALID_TARGET_STATUS"
	CodeEventInvalidStatusTransition = "EVENT_INVALID_STATUS_TRANSITION"
	CodeEventCancelled               = "EVENT_CANCELLED"
	CodeEventStillExists             = "EVENT_STILL_EXISTS"
	CodeEventNotFound                = "EVENT_NOT_FOUND"
	CodeEventHostRequired            = "EVENT_HOST_REQUIRED"
	CodeEventNotVisible              = "EVENT_NOT_VISIBLE"
	CodeEventListFilterInvalid       = "EVENT_LIST_FILTER_INVALID"
	CodeEventViewScopeInvalid        = "EVENT_VIEW_SCOPE_INVALID"
	CodeMembershipInvalidRole        = "MEMBERSHIP_INVALID_ROLE"
	CodeMembershipNotFound           = "MEMBERSHIP_NOT_FOUND"
	CodeMembershipNotAccepted        = "MEMBERSHIP_NOT_ACCEPTED"
	CodeMembershipHostRoleDenied     = "MEMBERSHIP_HOST_ROLE_DENIED"
	CodeMembershipExists             = "MEMBERSHIP_EXISTS"
	CodeMembershipLastHost           = "MEMBERSHIP_LAST_HOST"
	CodeMembershipUnreachable        = "MEMBERSHIP_INVITEE_UNREACHABLE"
	CodeMembershipActorRequired      = "MEMBERSHIP_ACTOR_REQUIRED"
	CodeMembershipChannelRequired    = "MEMBERSHIP_CHANNEL_REQUIRED"
)

var enUSMessages = map[Code]string{
	CodeInternal:                     "Something went wrong. Please try again.",
	CodeIdentityReferenceInvalid:     "Provide either an account id or a source and external id.",
	CodeIdentityAccountIDInvalid:     "The account id is not valid.",
	CodeIdentitySourceInvalid:        "The member source {{.Field}} is not valid.",
	CodeIdentityExternalIDInvalid:    "The external member id is not valid.",
	CodeIdentityLabelInvalid:         "The display label is not valid.",
	CodeEventIDEmpty:                 "An event id is required.",
	CodeEventNameEmpty:               "The event needs a name.",
	CodeEventGameNameEmpty:           "The event needs a game.",
	CodeEventChannelInvalid:          "The channel id is not valid.",
	CodeEventPlanUpdateEmpty:         "Tell me what to change: date, location, or name.",
	CodeEventInvalidTargetStatus:     "An event can only be confirmed or cancelled.",
	CodeEventInvalidStatusTransition: "This event is {{.Status}} and cannot become {{.Target}}.",
	CodeEventCancelled:               "This event was cancelled.",
	CodeEventStillExists:             "This event still exists; delete it before purging its members.",
	CodeEventNotFound:                "That event could not be found.",
	CodeEventHostRequired:            "Only a host can do that.",
	CodeEventNotVisible:              "You cannot see the members of this event.",
	CodeEventListFilterInvalid:       "The list filter is not valid.",
	CodeEventViewScopeInvalid:        "Choose a member or channel view; a channel view needs a channel.",
	CodeMembershipInvalidRole:        "The role must be host or attendee.",
	CodeMembershipNotFound:           "No matching invitation or membership was found.",
	CodeMembershipNotAccepted:        "You need to accept the invitation first.",
	CodeMembershipHostRoleDenied:     "Only a host can invite or appoint another host.",
	CodeMembershipExists:             "{{.Member}} was already invited to this event.",
	CodeMembershipLastHost:           "The last host cannot leave; appoint another host first.",
	CodeMembershipUnreachable:        "{{.Member}} is not in this channel.",
	CodeMembershipActorRequired:      "Tell me who is asking.",
	CodeMembershipChannelRequired:    "Inviting a chat member requires the channel they are in.",
}
