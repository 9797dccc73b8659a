// Package memory provides an in-process planner storage implementation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rallypoint/rallypoint/internal/platform/keylock"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
)

type externalKey struct {
	source     string
	externalID string
}

// Store keeps planner state in maps. Writers to one event are serialized by
// a per-event lock; the data mutex only guards map access.
type Store struct {
	events *keylock.Locker

	mu          sync.RWMutex
	externals   map[externalKey]storage.ExternalMember
	eventRows   map[string]domain.Event
	memberships map[string][]domain.Membership
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events:      keylock.New(),
		externals:   make(map[externalKey]storage.ExternalMember),
		eventRows:   make(map[string]domain.Event),
		memberships: make(map[string][]domain.Membership),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// GetExternalMember returns one external member by (source, external id).
func (s *Store) GetExternalMember(ctx context.Context, source, externalID string) (storage.ExternalMember, error) {
	if err := ctx.Err(); err != nil {
		return storage.ExternalMember{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.externals[externalKey{source: source, externalID: externalID}]
	if !ok {
		return storage.ExternalMember{}, storage.ErrNotFound
	}
	return member, nil
}

// CreateExternalMember inserts a record unless (source, external id) exists.
func (s *Store) CreateExternalMember(ctx context.Context, member storage.ExternalMember) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if member.RecordID == "" || member.Source == "" || member.ExternalID == "" {
		return fmt.Errorf("record id, source, and external id are required")
	}
	key := externalKey{source: member.Source, externalID: member.ExternalID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.externals[key]; ok {
		return storage.ErrAlreadyExists
	}
	if member.UpdatedAt.IsZero() {
		member.UpdatedAt = member.CreatedAt
	}
	s.externals[key] = member
	return nil
}

// SetExternalMemberLabel replaces the display label of an external member.
func (s *Store) SetExternalMemberLabel(ctx context.Context, source, externalID, label string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := externalKey{source: source, externalID: externalID}
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.externals[key]
	if !ok {
		return storage.ErrNotFound
	}
	member.DisplayLabel = label
	member.UpdatedAt = updatedAt.UTC()
	s.externals[key] = member
	return nil
}

// CreateEvent stores the event and its host membership together.
func (s *Store) CreateEvent(ctx context.Context, event domain.Event, host domain.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.ID == "" || host.EventID != event.ID {
		return fmt.Errorf("event id and matching host membership are required")
	}
	unlock := s.events.Lock(event.ID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.eventRows[event.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.eventRows[event.ID] = event
	s.memberships[event.ID] = append(s.memberships[event.ID], host)
	return nil
}

// UpdateEvent runs fn against a private copy of the aggregate and publishes
// the copy only when fn succeeds.
func (s *Store) UpdateEvent(ctx context.Context, eventID string, fn func(tx storage.EventTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("update function is required")
	}
	unlock := s.events.Lock(eventID)
	defer unlock()

	s.mu.RLock()
	event, ok := s.eventRows[eventID]
	memberships := cloneMemberships(s.memberships[eventID])
	s.mu.RUnlock()
	if !ok {
		return storage.ErrNotFound
	}

	tx := &eventTx{event: event, memberships: memberships}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.deleted {
		delete(s.eventRows, eventID)
	} else {
		s.eventRows[eventID] = tx.event
	}
	s.memberships[eventID] = tx.memberships
	return nil
}

// GetEvent returns one event with its memberships.
func (s *Store) GetEvent(ctx context.Context, eventID string) (storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.EventRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.eventRows[eventID]
	if !ok {
		return storage.EventRecord{}, storage.ErrNotFound
	}
	return s.recordLocked(event), nil
}

// ListEventsByMember returns events where member is pending or accepted.
func (s *Store) ListEventsByMember(ctx context.Context, member domain.MemberRef, filter storage.EventFilter) ([]storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.list(filter, func(event domain.Event, memberships []domain.Membership) bool {
		m, ok := domain.FindMembership(memberships, member)
		return ok && m.IsActive()
	}), nil
}

// ListEventsByChannel returns events whose channel tag equals channelID.
func (s *Store) ListEventsByChannel(ctx context.Context, channelID string, filter storage.EventFilter) ([]storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if channelID == "" {
		return nil, nil
	}
	return s.list(filter, func(event domain.Event, _ []domain.Membership) bool {
		return event.ChannelID == channelID
	}), nil
}

// PurgeMemberships removes the memberships of a deleted event.
func (s *Store) PurgeMemberships(ctx context.Context, eventID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	unlock := s.events.Lock(eventID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.eventRows[eventID]; ok {
		return 0, storage.ErrEventExists
	}
	removed := len(s.memberships[eventID])
	delete(s.memberships, eventID)
	return removed, nil
}

func (s *Store) list(filter storage.EventFilter, keep func(domain.Event, []domain.Membership) bool) []storage.EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []storage.EventRecord
	for _, event := range s.eventRows {
		if !filter.Matches(event) || !keep(event, s.memberships[event.ID]) {
			continue
		}
		records = append(records, s.recordLocked(event))
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].Event, records[j].Event
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	offset := max(filter.Offset, 0)
	if offset >= len(records) {
		return nil
	}
	records = records[offset:]
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records
}

func (s *Store) recordLocked(event domain.Event) storage.EventRecord {
	memberships := cloneMemberships(s.memberships[event.ID])
	for i := range memberships {
		ref := memberships[i].Member
		if ext, ok := s.externals[externalKey{source: ref.Source, externalID: ref.ID}]; ok {
			memberships[i].DisplayLabel = ext.DisplayLabel
		}
	}
	sort.SliceStable(memberships, func(i, j int) bool {
		return memberships[i].CreatedAt.Before(memberships[j].CreatedAt)
	})
	return storage.EventRecord{Event: cloneEvent(event), Memberships: memberships}
}

func cloneMemberships(in []domain.Membership) []domain.Membership {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Membership, len(in))
	copy(out, in)
	return out
}

func cloneEvent(event domain.Event) domain.Event {
	if event.DateTime != nil {
		value := *event.DateTime
		event.DateTime = &value
	}
	if event.Location != nil {
		value := *event.Location
		event.Location = &value
	}
	return event
}

var _ storage.Store = (*Store)(nil)
