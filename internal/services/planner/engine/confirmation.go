package engine

import (
	"context"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
)

// ConfirmPlan records that an accepted member has seen the plan version
// current at the moment of the write.
func (e *Engine) ConfirmPlan(ctx context.Context, eventID string, member identity.Member) (domain.PlanStatus, error) {
	var status domain.PlanStatus
	err := e.observe(ctx, "confirm_plan", eventID, func(ctx context.Context) error {
		ref, err := refOf(member)
		if err != nil {
			return err
		}
		return e.update(ctx, eventID, func(tx storage.EventTx) error {
			event := tx.Event()
			membership, err := requireAcceptedMember(tx.Memberships(), eventID, ref)
			if err != nil {
				return err
			}
			if membership.ConfirmedPlanVersion != event.PlanVersion {
				membership.ConfirmedPlanVersion = event.PlanVersion
				membership.UpdatedAt = e.timestamp()
				if err := tx.PutMembership(membership); err != nil {
					return apperrors.Internal("put membership", err)
				}
			}
			status = domain.PlanStatusFor(event, membership)
			return nil
		})
	})
	return status, err
}

// PlanStatus reports a member's confirmed version against the current plan.
func (e *Engine) PlanStatus(ctx context.Context, eventID string, member identity.Member) (domain.PlanStatus, error) {
	var status domain.PlanStatus
	err := e.observe(ctx, "plan_status", eventID, func(ctx context.Context) error {
		ref, err := refOf(member)
		if err != nil {
			return err
		}
		record, err := e.load(ctx, eventID)
		if err != nil {
			return err
		}
		membership, ok := domain.FindMembership(record.Memberships, ref)
		if !ok {
			return membershipNotFound(eventID, ref)
		}
		status = domain.PlanStatusFor(record.Event, membership)
		return nil
	})
	return status, err
}
