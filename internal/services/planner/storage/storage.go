// Package storage defines persistence contracts for planner state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
)

var (
	// ErrNotFound indicates a requested planner record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrEventExists indicates a purge targeted an event that still exists.
	ErrEventExists = errors.New("event still exists")
)

// ExternalMember stores one chat-integration identity.
type ExternalMember struct {
	RecordID     string
	Source       string
	ExternalID   string
	DisplayLabel string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExternalMemberStore persists external member records.
// Records are unique per (source, external id) and never deleted.
type ExternalMemberStore interface {
	GetExternalMember(ctx context.Context, source, externalID string) (ExternalMember, error)
	// CreateExternalMember returns ErrAlreadyExists when another writer
	// created the same (source, external id) first.
	CreateExternalMember(ctx context.Context, member ExternalMember) error
	SetExternalMemberLabel(ctx context.Context, source, externalID, label string, updatedAt time.Time) error
}

// EventTx is one event aggregate opened for writing. All reads observe the
// state as of the start of the transaction plus its own writes.
type EventTx interface {
	Event() domain.Event
	Memberships() []domain.Membership
	Membership(member domain.MemberRef) (domain.Membership, bool)
	PutEvent(event domain.Event) error
	InsertMembership(membership domain.Membership) error
	PutMembership(membership domain.Membership) error
	DeleteMembership(member domain.MemberRef) error
	DeleteEvent() error
}

// EventFilter narrows event listings.
type EventFilter struct {
	Status           domain.EventStatus
	IncludeCancelled bool
	Limit            int
	Offset           int
}

// Matches reports whether an event passes the status rules of the filter.
func (f EventFilter) Matches(event domain.Event) bool {
	if f.Status != "" {
		return event.Status == f.Status
	}
	return f.IncludeCancelled || event.Status != domain.EventCancelled
}

// EventRecord pairs an event with its memberships.
type EventRecord struct {
	Event       domain.Event
	Memberships []domain.Membership
}

// EventStore persists events and memberships.
type EventStore interface {
	// CreateEvent stores the event and its host membership atomically.
	CreateEvent(ctx context.Context, event domain.Event, host domain.Membership) error
	// UpdateEvent runs fn with single-writer access to the event aggregate
	// and commits its writes only when fn returns nil. It returns ErrNotFound
	// when the event does not exist.
	UpdateEvent(ctx context.Context, eventID string, fn func(tx EventTx) error) error
	GetEvent(ctx context.Context, eventID string) (EventRecord, error)
	// ListEventsByMember returns events where member holds a pending or
	// accepted membership, newest first.
	ListEventsByMember(ctx context.Context, member domain.MemberRef, filter EventFilter) ([]EventRecord, error)
	// ListEventsByChannel returns events tagged with channelID, newest first.
	ListEventsByChannel(ctx context.Context, channelID string, filter EventFilter) ([]EventRecord, error)
	// PurgeMemberships removes membership rows of a deleted event and
	// reports how many were removed. It returns ErrEventExists when the
	// event row is still present.
	PurgeMemberships(ctx context.Context, eventID string) (int, error)
}

// Store combines the planner persistence contracts.
type Store interface {
	ExternalMemberStore
	EventStore
	Close() error
}
