package memory

import (
	"fmt"

	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
)

// eventTx mutates a private copy of one aggregate.
type eventTx struct {
	event       domain.Event
	memberships []domain.Membership
	deleted     bool
}

func (t *eventTx) Event() domain.Event {
	return cloneEvent(t.event)
}

func (t *eventTx) Memberships() []domain.Membership {
	return cloneMemberships(t.memberships)
}

func (t *eventTx) Membership(member domain.MemberRef) (domain.Membership, bool) {
	return domain.FindMembership(t.memberships, member)
}

func (t *eventTx) PutEvent(event domain.Event) error {
	if t.deleted {
		return storage.ErrNotFound
	}
	if event.ID != t.event.ID {
		return fmt.Errorf("event id %q does not match transaction %q", event.ID, t.event.ID)
	}
	t.event = cloneEvent(event)
	return nil
}

func (t *eventTx) InsertMembership(membership domain.Membership) error {
	if membership.EventID != t.event.ID {
		return fmt.Errorf("membership event %q does not match transaction %q", membership.EventID, t.event.ID)
	}
	if t.indexOf(membership.Member) >= 0 {
		return storage.ErrAlreadyExists
	}
	t.memberships = append(t.memberships, membership)
	return nil
}

func (t *eventTx) PutMembership(membership domain.Membership) error {
	index := t.indexOf(membership.Member)
	if index < 0 {
		return storage.ErrNotFound
	}
	t.memberships[index] = membership
	return nil
}

func (t *eventTx) DeleteMembership(member domain.MemberRef) error {
	index := t.indexOf(member)
	if index < 0 {
		return storage.ErrNotFound
	}
	t.memberships = append(t.memberships[:index], t.memberships[index+1:]...)
	return nil
}

func (t *eventTx) DeleteEvent() error {
	if t.deleted {
		return storage.ErrNotFound
	}
	t.deleted = true
	return nil
}

func (t *eventTx) indexOf(member domain.MemberRef) int {
	for i, m := range t.memberships {
		if m.Member == member {
			return i
		}
	}
	return -1
}
