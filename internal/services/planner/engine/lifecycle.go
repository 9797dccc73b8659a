package engine

import (
	"context"
	"errors"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
)

// CreateEvent creates a planning event and the creator's accepted host
// membership in one atomic step.
func (e *Engine) CreateEvent(ctx context.Context, creator identity.Member, input domain.CreateEventInput) (domain.Event, error) {
	var created domain.Event
	err := e.observe(ctx, "create_event", "", func(ctx context.Context) error {
		creatorRef, err := refOf(creator)
		if err != nil {
			return err
		}
		event, host, err := domain.CreateEvent(input, creatorRef, e.timestamp, e.idGenerator)
		if err != nil {
			if _, ok := apperrors.As(err); ok {
				return err
			}
			return apperrors.Internal("create event", err)
		}
		if err := e.store.CreateEvent(ctx, event, host); err != nil {
			return apperrors.Internal("store event", err)
		}
		created = event
		return nil
	})
	return created, err
}

// UpdatePlan applies plan attribute changes and advances the plan version by
// one. Member confirmations are left untouched. An update naming no field
// returns the event unchanged once the host check passes.
func (e *Engine) UpdatePlan(ctx context.Context, eventID string, actor identity.Member, update domain.PlanUpdate) (domain.Event, error) {
	var updated domain.Event
	err := e.observe(ctx, "update_plan", eventID, func(ctx context.Context) error {
		actorRef, err := refOf(actor)
		if err != nil {
			return err
		}
		return e.update(ctx, eventID, func(tx storage.EventTx) error {
			if _, err := requireAcceptedHost(tx, actorRef); err != nil {
				return err
			}
			event := tx.Event()
			if event.Status == domain.EventCancelled {
				return eventCancelled(eventID)
			}
			if update.IsEmpty() {
				updated = event
				return nil
			}
			next, err := domain.ApplyPlanUpdate(event, update, e.timestamp())
			if err != nil {
				return err
			}
			if err := tx.PutEvent(next); err != nil {
				return apperrors.Internal("put event", err)
			}
			updated = next
			return nil
		})
	})
	return updated, err
}

// SetStatus moves an event to CONFIRMED or CANCELLED. Requesting the
// current status succeeds without a change.
func (e *Engine) SetStatus(ctx context.Context, eventID string, actor identity.Member, target domain.EventStatus) (domain.Event, error) {
	var result domain.Event
	err := e.observe(ctx, "set_status", eventID, func(ctx context.Context) error {
		actorRef, err := refOf(actor)
		if err != nil {
			return err
		}
		if !domain.IsStatusTarget(target) {
			return apperrors.WithMetadata(apperrors.CodeEventInvalidTargetStatus, "target status must be confirmed or cancelled", map[string]string{
				apperrors.MetaEventID: eventID,
				apperrors.MetaTarget:  string(target),
			})
		}
		return e.update(ctx, eventID, func(tx storage.EventTx) error {
			if _, err := requireAcceptedHost(tx, actorRef); err != nil {
				return err
			}
			event := tx.Event()
			if event.Status == target {
				result = event
				return nil
			}
			if !domain.CanTransition(event.Status, target) {
				return apperrors.WithMetadata(apperrors.CodeEventInvalidStatusTransition, "status transition not allowed", map[string]string{
					apperrors.MetaEventID: eventID,
					apperrors.MetaStatus:  string(event.Status),
					apperrors.MetaTarget:  string(target),
				})
			}
			event.Status = target
			event.UpdatedAt = e.timestamp()
			if err := tx.PutEvent(event); err != nil {
				return apperrors.Internal("put event", err)
			}
			result = event
			return nil
		})
	})
	return result, err
}

// DeleteEvent removes the event row. Memberships stay behind until
// PurgeMemberships runs and are invisible in the meantime.
func (e *Engine) DeleteEvent(ctx context.Context, eventID string, actor identity.Member) error {
	return e.observe(ctx, "delete_event", eventID, func(ctx context.Context) error {
		actorRef, err := refOf(actor)
		if err != nil {
			return err
		}
		return e.update(ctx, eventID, func(tx storage.EventTx) error {
			if _, err := requireAcceptedHost(tx, actorRef); err != nil {
				return err
			}
			if err := tx.DeleteEvent(); err != nil {
				return apperrors.Internal("delete event", err)
			}
			return nil
		})
	})
}

// PurgeMemberships removes the memberships left behind by a deleted event
// and reports how many were removed.
func (e *Engine) PurgeMemberships(ctx context.Context, eventID string) (int, error) {
	var removed int
	err := e.observe(ctx, "purge_memberships", eventID, func(ctx context.Context) error {
		if eventID == "" {
			return apperrors.New(apperrors.CodeEventIDEmpty, "event id is required")
		}
		n, err := e.store.PurgeMemberships(ctx, eventID)
		if errors.Is(err, storage.ErrEventExists) {
			return apperrors.WithMetadata(apperrors.CodeEventStillExists, "event still exists", map[string]string{
				apperrors.MetaEventID: eventID,
			})
		}
		if err != nil {
			return apperrors.Internal("purge memberships", err)
		}
		removed = n
		return nil
	})
	return removed, err
}
