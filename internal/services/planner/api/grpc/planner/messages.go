package planner

import (
	"time"

	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/engine"
)

// MemberInput names a member that is not the caller: an invitee or a
// role-change target. DisplayLabel is stored for external members when set.
type MemberInput struct {
	AccountID    string `json:"account_id,omitempty"`
	Source       string `json:"source,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`
	DisplayLabel string `json:"display_label,omitempty"`
}

// Event is the wire form of an event.
type Event struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	GameName      string           `json:"game_name"`
	Status        string           `json:"status"`
	DateTime      *time.Time       `json:"date_time,omitempty"`
	Location      *string          `json:"location,omitempty"`
	PlanVersion   int              `json:"plan_version"`
	PlanUpdatedAt time.Time        `json:"plan_updated_at"`
	Creator       domain.MemberRef `json:"creator"`
	ChannelID     string           `json:"channel_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Membership is the wire form of a membership.
type Membership struct {
	EventID              string           `json:"event_id"`
	Member               domain.MemberRef `json:"member"`
	Role                 string           `json:"role"`
	Status               string           `json:"status"`
	ConfirmedPlanVersion int              `json:"confirmed_plan_version"`
	InvitedBy            domain.MemberRef `json:"invited_by"`
	DisplayLabel         string           `json:"display_label,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Counts summarizes memberships by role and status.
type Counts struct {
	AcceptedHosts     int `json:"accepted_hosts"`
	AcceptedAttendees int `json:"accepted_attendees"`
	Pending           int `json:"pending"`
	Declined          int `json:"declined"`
}

// EventView is an event as seen by the caller.
type EventView struct {
	Event    Event        `json:"event"`
	Members  []Membership `json:"members"`
	Mine     *Membership  `json:"mine,omitempty"`
	UpToDate bool         `json:"up_to_date"`
	Counts   Counts       `json:"counts"`
}

// PlanStatus compares a member's confirmation with the current plan.
type PlanStatus struct {
	EventID   string `json:"event_id"`
	Confirmed int    `json:"confirmed_plan_version"`
	Current   int    `json:"current_plan_version"`
	UpToDate  bool   `json:"up_to_date"`
}

// ResolvedMember is the canonical form of a resolved identity.
type ResolvedMember struct {
	Ref          domain.MemberRef `json:"ref"`
	AccountID    string           `json:"account_id,omitempty"`
	RecordID     string           `json:"record_id,omitempty"`
	Source       string           `json:"source,omitempty"`
	ExternalID   string           `json:"external_id,omitempty"`
	DisplayLabel string           `json:"display_label,omitempty"`
}

// ChannelReach lists the external members reachable in a channel right now.
type ChannelReach struct {
	ChannelID            string   `json:"channel_id"`
	Source               string   `json:"source,omitempty"`
	ReachableExternalIDs []string `json:"reachable_external_ids"`
}

type Empty struct{}

type CreateEventRequest struct {
	GameName  string `json:"game_name"`
	EventName string `json:"event_name"`
	ChannelID string `json:"channel_id,omitempty"`
}

type EventResponse struct {
	Event Event `json:"event"`
}

type UpdatePlanRequest struct {
	EventID       string     `json:"event_id"`
	DateTime      *time.Time `json:"date_time,omitempty"`
	Location      *string    `json:"location,omitempty"`
	EventName     *string    `json:"event_name,omitempty"`
	ClearDateTime bool       `json:"clear_date_time,omitempty"`
	ClearLocation bool       `json:"clear_location,omitempty"`
}

type SetEventStatusRequest struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

type DeleteEventRequest struct {
	EventID string `json:"event_id"`
}

type PurgeMembershipsRequest struct {
	EventID string `json:"event_id"`
}

type PurgeMembershipsResponse struct {
	Removed int `json:"removed"`
}

type InviteMemberRequest struct {
	EventID string        `json:"event_id"`
	Invitee MemberInput   `json:"invitee"`
	Role    string        `json:"role"`
	Reach   *ChannelReach `json:"reach,omitempty"`
}

type MembershipResponse struct {
	Membership Membership `json:"membership"`
}

// EventRequest addresses one event on behalf of the caller.
// View scopes accepted by GetEvent, ListEvents and ListMembers. An empty
// scope prefers the calling member and falls back to the calling channel.
const (
	ScopeMember  = "member"
	ScopeChannel = "channel"
)

type EventRequest struct {
	EventID string `json:"event_id"`
	// Scope is read by GetEvent and ListMembers only.
	Scope string `json:"scope,omitempty"`
}

type ChangeRoleRequest struct {
	EventID string      `json:"event_id"`
	Target  MemberInput `json:"target"`
	Role    string      `json:"role"`
}

type ListMembersResponse struct {
	Members []Membership `json:"members"`
}

type PlanStatusResponse struct {
	Status PlanStatus `json:"status"`
}

type ListEventsRequest struct {
	Status           string `json:"status,omitempty"`
	IncludeCancelled bool   `json:"include_cancelled,omitempty"`
	Limit            int    `json:"limit,omitempty"`
	Offset           int    `json:"offset,omitempty"`
	Scope            string `json:"scope,omitempty"`
}

type ListEventsResponse struct {
	Events []EventView `json:"events"`
}

type EventViewResponse struct {
	View EventView `json:"view"`
}

type ResolveMemberRequest struct {
	Member MemberInput `json:"member"`
}

type SetMemberLabelRequest struct {
	Source     string `json:"source"`
	ExternalID string `json:"external_id"`
	Label      string `json:"label"`
}

type ResolvedMemberResponse struct {
	Member ResolvedMember `json:"member"`
}

// GetEventID exposes the addressed event to interceptors.
func (r *UpdatePlanRequest) GetEventID() string       { return r.EventID }
func (r *SetEventStatusRequest) GetEventID() string   { return r.EventID }
func (r *DeleteEventRequest) GetEventID() string      { return r.EventID }
func (r *PurgeMembershipsRequest) GetEventID() string { return r.EventID }
func (r *InviteMemberRequest) GetEventID() string     { return r.EventID }
func (r *EventRequest) GetEventID() string            { return r.EventID }
func (r *ChangeRoleRequest) GetEventID() string       { return r.EventID }

func eventToWire(event domain.Event) Event {
	return Event{
		ID:            event.ID,
		Name:          event.Name,
		GameName:      event.GameName,
		Status:        string(event.Status),
		DateTime:      event.DateTime,
		Location:      event.Location,
		PlanVersion:   event.PlanVersion,
		PlanUpdatedAt: event.PlanUpdatedAt,
		Creator:       event.CreatorRef,
		ChannelID:     event.ChannelID,
		CreatedAt:     event.CreatedAt,
		UpdatedAt:     event.UpdatedAt,
	}
}

func membershipToWire(membership domain.Membership) Membership {
	return Membership{
		EventID:              membership.EventID,
		Member:               membership.Member,
		Role:                 string(membership.Role),
		Status:               string(membership.Status),
		ConfirmedPlanVersion: membership.ConfirmedPlanVersion,
		InvitedBy:            membership.InvitedBy,
		DisplayLabel:         membership.DisplayLabel,
		CreatedAt:            membership.CreatedAt,
		UpdatedAt:            membership.UpdatedAt,
	}
}

func membershipsToWire(memberships []domain.Membership) []Membership {
	out := make([]Membership, 0, len(memberships))
	for _, membership := range memberships {
		out = append(out, membershipToWire(membership))
	}
	return out
}

func viewToWire(view engine.EventView) EventView {
	out := EventView{
		Event:    eventToWire(view.Event),
		Members:  membershipsToWire(view.Members),
		UpToDate: view.UpToDate,
		Counts: Counts{
			AcceptedHosts:     view.Counts.AcceptedHosts,
			AcceptedAttendees: view.Counts.AcceptedAttendees,
			Pending:           view.Counts.Pending,
			Declined:          view.Counts.Declined,
		},
	}
	if view.Mine != nil {
		mine := membershipToWire(*view.Mine)
		out.Mine = &mine
	}
	return out
}

func planStatusToWire(eventID string, status domain.PlanStatus) PlanStatus {
	return PlanStatus{
		EventID:   eventID,
		Confirmed: status.Confirmed,
		Current:   status.Current,
		UpToDate:  status.UpToDate,
	}
}

func reachFromWire(reach *ChannelReach) *engine.ChannelReach {
	if reach == nil {
		return nil
	}
	return &engine.ChannelReach{
		ChannelID:            reach.ChannelID,
		Source:               reach.Source,
		ReachableExternalIDs: reach.ReachableExternalIDs,
	}
}
