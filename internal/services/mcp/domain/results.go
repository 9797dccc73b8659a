package domain

import "github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/planner"

// EventResult is an event as returned by the tools.
type EventResult struct {
	ID            string `json:"id" jsonschema:"event identifier"`
	Name          string `json:"name" jsonschema:"event name"`
	GameName      string `json:"game_name" jsonschema:"game being played"`
	Status        string `json:"status" jsonschema:"event status (PLANNING, CONFIRMED, CANCELLED)"`
	DateTime      string `json:"date_time,omitempty" jsonschema:"RFC3339 start time, if planned"`
	Location      string `json:"location,omitempty" jsonschema:"location, if planned"`
	PlanVersion   int    `json:"plan_version" jsonschema:"current plan version"`
	PlanUpdatedAt string `json:"plan_updated_at" jsonschema:"RFC3339 timestamp of the last plan change"`
	Creator       string `json:"creator" jsonschema:"creator as source:id"`
	ChannelID     string `json:"channel_id,omitempty" jsonschema:"originating chat channel"`
	CreatedAt     string `json:"created_at" jsonschema:"RFC3339 creation timestamp"`
	UpdatedAt     string `json:"updated_at" jsonschema:"RFC3339 last update timestamp"`
}

// MemberResult is one membership.
type MemberResult struct {
	Member               string `json:"member" jsonschema:"member as source:id"`
	DisplayLabel         string `json:"display_label,omitempty" jsonschema:"display name of a chat member"`
	Role                 string `json:"role" jsonschema:"HOST or ATTENDEE"`
	Status               string `json:"status" jsonschema:"PENDING, ACCEPTED or DECLINED"`
	ConfirmedPlanVersion int    `json:"confirmed_plan_version" jsonschema:"last confirmed plan version, -1 when never confirmed"`
	InvitedBy            string `json:"invited_by" jsonschema:"inviter as source:id"`
}

// EventViewResult is an event with its members as seen by the caller.
type EventViewResult struct {
	Event             EventResult    `json:"event" jsonschema:"the event"`
	Members           []MemberResult `json:"members" jsonschema:"memberships, hosts first"`
	MyRole            string         `json:"my_role,omitempty" jsonschema:"caller's role, if a member"`
	MyStatus          string         `json:"my_status,omitempty" jsonschema:"caller's membership status, if a member"`
	UpToDate          bool           `json:"up_to_date" jsonschema:"whether the caller confirmed the current plan"`
	AcceptedHosts     int            `json:"accepted_hosts" jsonschema:"number of accepted hosts"`
	AcceptedAttendees int            `json:"accepted_attendees" jsonschema:"number of accepted attendees"`
	Pending           int            `json:"pending" jsonschema:"number of pending invitations"`
	Declined          int            `json:"declined" jsonschema:"number of declined invitations"`
}

// PlanStatusResult compares the caller's confirmation with the current plan.
type PlanStatusResult struct {
	EventID              string `json:"event_id" jsonschema:"event identifier"`
	ConfirmedPlanVersion int    `json:"confirmed_plan_version" jsonschema:"caller's confirmed plan version"`
	CurrentPlanVersion   int    `json:"current_plan_version" jsonschema:"event's current plan version"`
	UpToDate             bool   `json:"up_to_date" jsonschema:"whether the two versions match"`
}

func eventResult(event planner.Event) EventResult {
	result := EventResult{
		ID:            event.ID,
		Name:          event.Name,
		GameName:      event.GameName,
		Status:        event.Status,
		PlanVersion:   event.PlanVersion,
		PlanUpdatedAt: formatTime(event.PlanUpdatedAt),
		Creator:       event.Creator.String(),
		ChannelID:     event.ChannelID,
		CreatedAt:     formatTime(event.CreatedAt),
		UpdatedAt:     formatTime(event.UpdatedAt),
	}
	if event.DateTime != nil {
		result.DateTime = formatTime(*event.DateTime)
	}
	if event.Location != nil {
		result.Location = *event.Location
	}
	return result
}

func memberResult(membership planner.Membership) MemberResult {
	return MemberResult{
		Member:               membership.Member.String(),
		DisplayLabel:         membership.DisplayLabel,
		Role:                 membership.Role,
		Status:               membership.Status,
		ConfirmedPlanVersion: membership.ConfirmedPlanVersion,
		InvitedBy:            membership.InvitedBy.String(),
	}
}

func memberResults(memberships []planner.Membership) []MemberResult {
	out := make([]MemberResult, 0, len(memberships))
	for _, membership := range memberships {
		out = append(out, memberResult(membership))
	}
	return out
}

func eventViewResult(view planner.EventView) EventViewResult {
	result := EventViewResult{
		Event:             eventResult(view.Event),
		Members:           memberResults(view.Members),
		UpToDate:          view.UpToDate,
		AcceptedHosts:     view.Counts.AcceptedHosts,
		AcceptedAttendees: view.Counts.AcceptedAttendees,
		Pending:           view.Counts.Pending,
		Declined:          view.Counts.Declined,
	}
	if view.Mine != nil {
		result.MyRole = view.Mine.Role
		result.MyStatus = view.Mine.Status
	}
	return result
}

func planStatusResult(status planner.PlanStatus) PlanStatusResult {
	return PlanStatusResult{
		EventID:              status.EventID,
		ConfirmedPlanVersion: status.Confirmed,
		CurrentPlanVersion:   status.Current,
		UpToDate:             status.UpToDate,
	}
}
