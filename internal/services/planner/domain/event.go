package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/platform/id"
)

const (
	maxNameLength    = 200
	maxChannelLength = 256
)

// CreateEventInput describes a new event.
type CreateEventInput struct {
	GameName  string
	EventName string
	ChannelID string
}

// NormalizeCreateEventInput trims and validates create input.
func NormalizeCreateEventInput(input CreateEventInput) (CreateEventInput, error) {
	input.GameName = strings.TrimSpace(input.GameName)
	input.EventName = strings.TrimSpace(input.EventName)
	input.ChannelID = strings.TrimSpace(input.ChannelID)
	if input.GameName == "" {
		return CreateEventInput{}, fieldError(apperrors.CodeEventGameNameEmpty, "game name is required", "game_name")
	}
	if input.EventName == "" {
		return CreateEventInput{}, fieldError(apperrors.CodeEventNameEmpty, "event name is required", "event_name")
	}
	if len(input.GameName) > maxNameLength {
		return CreateEventInput{}, fieldError(apperrors.CodeEventGameNameEmpty, "game name is too long", "game_name")
	}
	if len(input.EventName) > maxNameLength {
		return CreateEventInput{}, fieldError(apperrors.CodeEventNameEmpty, "event name is too long", "event_name")
	}
	if len(input.ChannelID) > maxChannelLength {
		return CreateEventInput{}, fieldError(apperrors.CodeEventChannelInvalid, "channel id is too long", "channel_id")
	}
	return input, nil
}

// CreateEvent builds a planning event and the creator's accepted host membership.
func CreateEvent(input CreateEventInput, creator MemberRef, now func() time.Time, idGenerator func() (string, error)) (Event, Membership, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	normalized, err := NormalizeCreateEventInput(input)
	if err != nil {
		return Event{}, Membership{}, err
	}
	if creator.IsZero() {
		return Event{}, Membership{}, apperrors.New(apperrors.CodeMembershipActorRequired, "creator is required")
	}

	eventID, err := idGenerator()
	if err != nil {
		return Event{}, Membership{}, fmt.Errorf("generate event id: %w", err)
	}

	createdAt := now().UTC()
	event := Event{
		ID:            eventID,
		Name:          normalized.EventName,
		GameName:      normalized.GameName,
		Status:        EventPlanning,
		PlanVersion:   0,
		PlanUpdatedAt: createdAt,
		CreatorRef:    creator,
		ChannelID:     normalized.ChannelID,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	host := Membership{
		EventID:              eventID,
		Member:               creator,
		Role:                 RoleHost,
		Status:               MembershipAccepted,
		ConfirmedPlanVersion: 0,
		InvitedBy:            creator,
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
	}
	return event, host, nil
}

// PlanUpdate lists the plan attributes to change. Nil pointers leave a
// field untouched; the Clear flags unset optional fields.
type PlanUpdate struct {
	DateTime      *time.Time
	Location      *string
	EventName     *string
	ClearDateTime bool
	ClearLocation bool
}

// IsEmpty reports whether the update names no field.
func (u PlanUpdate) IsEmpty() bool {
	return u.DateTime == nil && u.Location == nil && u.EventName == nil && !u.ClearDateTime && !u.ClearLocation
}

// ApplyPlanUpdate returns the event with the update applied and the plan
// version advanced by exactly one. An empty update returns the event as is.
func ApplyPlanUpdate(event Event, update PlanUpdate, now time.Time) (Event, error) {
	if update.IsEmpty() {
		return event, nil
	}
	if update.DateTime != nil && update.ClearDateTime {
		return Event{}, fieldError(apperrors.CodeEventPlanUpdateEmpty, "date time cannot be set and cleared together", "date_time")
	}
	if update.Location != nil && update.ClearLocation {
		return Event{}, fieldError(apperrors.CodeEventPlanUpdateEmpty, "location cannot be set and cleared together", "location")
	}

	next := event
	if update.EventName != nil {
		name := strings.TrimSpace(*update.EventName)
		if name == "" {
			return Event{}, fieldError(apperrors.CodeEventNameEmpty, "event name is required", "event_name")
		}
		if len(name) > maxNameLength {
			return Event{}, fieldError(apperrors.CodeEventNameEmpty, "event name is too long", "event_name")
		}
		next.Name = name
	}
	switch {
	case update.ClearDateTime:
		next.DateTime = nil
	case update.DateTime != nil:
		value := update.DateTime.UTC()
		next.DateTime = &value
	}
	switch {
	case update.ClearLocation:
		next.Location = nil
	case update.Location != nil:
		value := strings.TrimSpace(*update.Location)
		next.Location = &value
	}

	now = now.UTC()
	next.PlanVersion = event.PlanVersion + 1
	next.PlanUpdatedAt = now
	next.UpdatedAt = now
	return next, nil
}

// CanTransition reports whether an event may move from one status to another.
// Cancelled is terminal and confirmed never returns to planning.
func CanTransition(from, to EventStatus) bool {
	switch from {
	case EventPlanning:
		return to == EventConfirmed || to == EventCancelled
	case EventConfirmed:
		return to == EventCancelled
	default:
		return false
	}
}

// IsStatusTarget reports whether status can be requested by a host.
func IsStatusTarget(status EventStatus) bool {
	return status == EventConfirmed || status == EventCancelled
}

func fieldError(code apperrors.Code, message, field string) error {
	return apperrors.WithMetadata(code, message, map[string]string{apperrors.MetaField: field})
}
