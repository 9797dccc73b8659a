// Package domain models planner events and memberships as plain values.
//
// Everything here is a pure function of its inputs; persistence and
// authorization live in the engine.
package domain

import (
	"strings"
	"time"
)

// AccountSource is the reserved member source tag for registered accounts.
const AccountSource = "account"

// NeverConfirmed marks a membership that has not acknowledged any plan.
const NeverConfirmed = -1

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventPlanning  EventStatus = "PLANNING"
	EventConfirmed EventStatus = "CONFIRMED"
	EventCancelled EventStatus = "CANCELLED"
)

// Role is the authority a membership carries on its event.
type Role string

const (
	RoleHost     Role = "HOST"
	RoleAttendee Role = "ATTENDEE"
)

// MembershipStatus tracks an invitation through acceptance.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "PENDING"
	MembershipAccepted MembershipStatus = "ACCEPTED"
	MembershipDeclined MembershipStatus = "DECLINED"
)

// ParseEventStatus normalizes a status label.
func ParseEventStatus(value string) (EventStatus, bool) {
	switch status := EventStatus(strings.ToUpper(strings.TrimSpace(value))); status {
	case EventPlanning, EventConfirmed, EventCancelled:
		return status, true
	}
	return "", false
}

// ParseRole normalizes a role label.
func ParseRole(value string) (Role, bool) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(value))); role {
	case RoleHost, RoleAttendee:
		return role, true
	}
	return "", false
}

// ParseMembershipStatus normalizes a membership status label.
func ParseMembershipStatus(value string) (MembershipStatus, bool) {
	switch status := MembershipStatus(strings.ToUpper(strings.TrimSpace(value))); status {
	case MembershipPending, MembershipAccepted, MembershipDeclined:
		return status, true
	}
	return "", false
}

// MemberRef is the canonical key of a member: the account source with an
// account id, or an external source with the external id.
type MemberRef struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

// AccountRef builds the reference for a registered account.
func AccountRef(accountID string) MemberRef {
	return MemberRef{Source: AccountSource, ID: accountID}
}

// IsZero reports whether the reference is unset.
func (r MemberRef) IsZero() bool {
	return r.Source == "" && r.ID == ""
}

// IsAccount reports whether the reference names a registered account.
func (r MemberRef) IsAccount() bool {
	return r.Source == AccountSource
}

// String renders source:id.
func (r MemberRef) String() string {
	return r.Source + ":" + r.ID
}

// Event is the aggregate root for a planned gaming session.
type Event struct {
	ID            string
	Name          string
	GameName      string
	Status        EventStatus
	DateTime      *time.Time
	Location      *string
	PlanVersion   int
	PlanUpdatedAt time.Time
	CreatorRef    MemberRef
	// ChannelID is set when the event originates from a chat channel.
	ChannelID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Membership links one member to one event.
type Membership struct {
	EventID              string
	Member               MemberRef
	Role                 Role
	Status               MembershipStatus
	ConfirmedPlanVersion int
	InvitedBy            MemberRef
	// DisplayLabel is filled from external member records on reads.
	DisplayLabel string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAcceptedHost reports whether the membership grants host authority.
func (m Membership) IsAcceptedHost() bool {
	return m.Role == RoleHost && m.Status == MembershipAccepted
}

// IsActive reports whether the membership is pending or accepted.
func (m Membership) IsActive() bool {
	return m.Status == MembershipPending || m.Status == MembershipAccepted
}

// PlanStatus reports how a member's confirmation compares to the current plan.
type PlanStatus struct {
	Confirmed int
	Current   int
	UpToDate  bool
}

// PlanStatusFor derives the plan status of a membership on an event.
func PlanStatusFor(event Event, membership Membership) PlanStatus {
	return PlanStatus{
		Confirmed: membership.ConfirmedPlanVersion,
		Current:   event.PlanVersion,
		UpToDate:  membership.ConfirmedPlanVersion == event.PlanVersion,
	}
}
