package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
)

// eventTx writes through to the open transaction and mirrors each write in
// its snapshot so later reads inside fn observe it.
type eventTx struct {
	ctx         context.Context
	tx          *sql.Tx
	event       domain.Event
	memberships []domain.Membership
	deleted     bool
}

func (t *eventTx) Event() domain.Event {
	return t.event
}

func (t *eventTx) Memberships() []domain.Membership {
	out := make([]domain.Membership, len(t.memberships))
	copy(out, t.memberships)
	return out
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
	dateTime, location := eventArgs(event)
	_, err := t.tx.ExecContext(
		t.ctx,
		`UPDATE events
		    SET name = ?, game_name = ?, status = ?, date_time = ?, location = ?,
		        plan_version = ?, plan_updated_at = ?, channel_id = ?, updated_at = ?
		  WHERE id = ?`,
		event.Name,
		event.GameName,
		string(event.Status),
		dateTime,
		location,
		event.PlanVersion,
		toMillis(event.PlanUpdatedAt),
		event.ChannelID,
		toMillis(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	t.event = event
	return nil
}

func (t *eventTx) InsertMembership(membership domain.Membership) error {
	if membership.EventID != t.event.ID {
		return fmt.Errorf("membership event %q does not match transaction %q", membership.EventID, t.event.ID)
	}
	if err := insertMembership(t.ctx, t.tx, membership); err != nil {
		return err
	}
	t.memberships = append(t.memberships, membership)
	return nil
}

func (t *eventTx) PutMembership(membership domain.Membership) error {
	index := t.indexOf(membership.Member)
	if index < 0 {
		return storage.ErrNotFound
	}
	_, err := t.tx.ExecContext(
		t.ctx,
		`UPDATE event_memberships
		    SET role = ?, status = ?, confirmed_plan_version = ?, updated_at = ?
		  WHERE event_id = ? AND member_source = ? AND member_id = ?`,
		string(membership.Role),
		string(membership.Status),
		membership.ConfirmedPlanVersion,
		toMillis(membership.UpdatedAt),
		t.event.ID,
		membership.Member.Source,
		membership.Member.ID,
	)
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	t.memberships[index] = membership
	return nil
}

func (t *eventTx) DeleteMembership(member domain.MemberRef) error {
	index := t.indexOf(member)
	if index < 0 {
		return storage.ErrNotFound
	}
	_, err := t.tx.ExecContext(
		t.ctx,
		`DELETE FROM event_memberships WHERE event_id = ? AND member_source = ? AND member_id = ?`,
		t.event.ID,
		member.Source,
		member.ID,
	)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	t.memberships = append(t.memberships[:index], t.memberships[index+1:]...)
	return nil
}

func (t *eventTx) DeleteEvent() error {
	if t.deleted {
		return storage.ErrNotFound
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM events WHERE id = ?`, t.event.ID); err != nil {
		return fmt.Errorf("delete event: %w", err)
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
