package engine

import (
	"context"
	"errors"
	"slices"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
)

// ChannelReach is the caller's view of a chat channel at request time: the
// external members currently reachable there. It is never stored.
type ChannelReach struct {
	ChannelID string
	// Source restricts the reachable ids to one integration when set.
	Source               string
	ReachableExternalIDs []string
}

// Contains reports whether the external member is reachable.
func (r *ChannelReach) Contains(member identity.External) bool {
	if r == nil {
		return false
	}
	if r.Source != "" && r.Source != member.Source {
		return false
	}
	return slices.Contains(r.ReachableExternalIDs, member.ExternalID)
}

// InviteInput describes one invitation.
type InviteInput struct {
	EventID string
	Inviter identity.Member
	Invitee identity.Member
	Role    domain.Role
	// Reach is required when Invitee is an external member.
	Reach *ChannelReach
}

// Invite creates a pending membership for the invitee.
func (e *Engine) Invite(ctx context.Context, input InviteInput) (domain.Membership, error) {
	var created domain.Membership
	err := e.observe(ctx, "invite", input.EventID, func(ctx context.Context) error {
		inviterRef, err := refOf(input.Inviter)
		if err != nil {
			return err
		}
		inviteeRef, err := refOf(input.Invitee)
		if err != nil {
			return err
		}
		role, ok := domain.ParseRole(string(input.Role))
		if !ok {
			return apperrors.WithMetadata(apperrors.CodeMembershipInvalidRole, "role must be host or attendee", map[string]string{
				apperrors.MetaRole: string(input.Role),
			})
		}

		return e.update(ctx, input.EventID, func(tx storage.EventTx) error {
			event := tx.Event()
			inviter, err := requireAcceptedMember(tx.Memberships(), event.ID, inviterRef)
			if err != nil {
				return err
			}
			if role == domain.RoleHost && inviter.Role != domain.RoleHost {
				return apperrors.WithMetadata(apperrors.CodeMembershipHostRoleDenied, "only hosts may invite hosts", map[string]string{
					apperrors.MetaEventID: event.ID,
					apperrors.MetaMember:  inviterRef.String(),
				})
			}
			if event.Status == domain.EventCancelled {
				return eventCancelled(event.ID)
			}
			if _, exists := tx.Membership(inviteeRef); exists {
				return membershipExists(event.ID, inviteeRef)
			}
			if external, ok := input.Invitee.(identity.External); ok {
				if err := checkReach(event.ID, external, input.Reach); err != nil {
					return err
				}
			}

			now := e.timestamp()
			membership := domain.Membership{
				EventID:              event.ID,
				Member:               inviteeRef,
				Role:                 role,
				Status:               domain.MembershipPending,
				ConfirmedPlanVersion: domain.NeverConfirmed,
				InvitedBy:            inviterRef,
				CreatedAt:            now,
				UpdatedAt:            now,
			}
			if external, ok := input.Invitee.(identity.External); ok {
				membership.DisplayLabel = external.DisplayLabel
			}
			if err := tx.InsertMembership(membership); err != nil {
				if errors.Is(err, storage.ErrAlreadyExists) {
					return membershipExists(event.ID, inviteeRef)
				}
				return apperrors.Internal("insert membership", err)
			}
			created = membership
			return nil
		})
	})
	return created, err
}

// Accept turns a pending invitation into an accepted membership that is
// caught up with the current plan.
func (e *Engine) Accept(ctx context.Context, eventID string, member identity.Member) (domain.Membership, error) {
	var accepted domain.Membership
	err := e.observe(ctx, "accept", eventID, func(ctx context.Context) error {
		ref, err := refOf(member)
		if err != nil {
			return err
		}
		return e.update(ctx, eventID, func(tx storage.EventTx) error {
			membership, ok := tx.Membership(ref)
			if !ok || membership.Status != domain.MembershipPending {
				return membershipNotFound(eventID, ref)
			}
			event := tx.Event()
			if event.Status == domain.EventCancelled {
				return eventCancelled(eventID)
			}
			membership.Status = domain.MembershipAccepted
			membership.ConfirmedPlanVersion = event.PlanVersion
			membership.UpdatedAt = e.timestamp()
			if err := tx.PutMembership(membership); err != nil {
				return apperrors.Internal("put membership", err)
			}
			accepted = membership
			return nil
		})
	})
	return accepted, err
}

// Decline marks a pending invitation declined. The row is kept, so the
// member cannot be invited to this event again.
func (e *Engine) Decline(ctx context.Context, eventID string, member identity.Member) (domain.Membership, error) {
	var declined domain.Membership
	err := e.observe(ctx, "decline", eventID, func(ctx context.Context) error {
		ref, err := refOf(member)
		if err != nil {
			return err
		}
		return e.update(ctx, eventID, func(tx storage.EventTx) error {
			membership, ok := tx.Membership(ref)
			if !ok || membership.Status != domain.MembershipPending {
				return membershipNotFound(eventID, ref)
			}
			membership.Status = domain.MembershipDeclined
			membership.UpdatedAt = e.timestamp()
			if err := guardHosts(tx, ref, &membership); err != nil {
				return err
			}
			if err := tx.PutMembership(membership); err != nil {
				return apperrors.Internal("put membership", err)
			}
			declined = membership
			return nil
		})
	})
	return declined, err
}

// Leave removes an accepted membership. The sole accepted host cannot leave.
func (e *Engine) Leave(ctx context.Context, eventID string, member identity.Member) error {
	return e.observe(ctx, "leave", eventID, func(ctx context.Context) error {
		ref, err := refOf(member)
		if err != nil {
			return err
		}
		return e.update(ctx, eventID, func(tx storage.EventTx) error {
			membership, ok := tx.Membership(ref)
			if !ok || membership.Status != domain.MembershipAccepted {
				return membershipNotFound(eventID, ref)
			}
			if err := guardHosts(tx, ref, nil); err != nil {
				return err
			}
			if err := tx.DeleteMembership(ref); err != nil {
				return apperrors.Internal("delete membership", err)
			}
			return nil
		})
	})
}

// ChangeRole sets the role of another member. Only accepted hosts may change
// roles, and the last accepted host cannot be demoted.
func (e *Engine) ChangeRole(ctx context.Context, eventID string, actor, target identity.Member, role domain.Role) (domain.Membership, error) {
	var changed domain.Membership
	err := e.observe(ctx, "change_role", eventID, func(ctx context.Context) error {
		actorRef, err := refOf(actor)
		if err != nil {
			return err
		}
		targetRef, err := refOf(target)
		if err != nil {
			return err
		}
		parsed, ok := domain.ParseRole(string(role))
		if !ok {
			return apperrors.WithMetadata(apperrors.CodeMembershipInvalidRole, "role must be host or attendee", map[string]string{
				apperrors.MetaRole: string(role),
			})
		}
		return e.update(ctx, eventID, func(tx storage.EventTx) error {
			if _, err := requireAcceptedHost(tx, actorRef); err != nil {
				return err
			}
			if tx.Event().Status == domain.EventCancelled {
				return eventCancelled(eventID)
			}
			membership, ok := tx.Membership(targetRef)
			if !ok {
				return membershipNotFound(eventID, targetRef)
			}
			if membership.Role == parsed {
				changed = membership
				return nil
			}
			membership.Role = parsed
			membership.UpdatedAt = e.timestamp()
			if err := guardHosts(tx, targetRef, &membership); err != nil {
				return err
			}
			if err := tx.PutMembership(membership); err != nil {
				return apperrors.Internal("put membership", err)
			}
			changed = membership
			return nil
		})
	})
	return changed, err
}

// ListMembers returns every membership of an event, hosts first, to the
// creator, a pending or accepted member, or a viewer from the event's channel.
func (e *Engine) ListMembers(ctx context.Context, eventID string, viewer Viewer) ([]domain.Membership, error) {
	var members []domain.Membership
	err := e.observe(ctx, "list_members", eventID, func(ctx context.Context) error {
		if err := validateViewer(viewer); err != nil {
			return err
		}
		record, err := e.load(ctx, eventID)
		if err != nil {
			return err
		}
		if !canListMembers(record, viewer) {
			return apperrors.WithMetadata(apperrors.CodeEventNotVisible, "viewer may not list members", map[string]string{
				apperrors.MetaEventID: eventID,
			})
		}
		members = record.Memberships
		domain.SortMemberships(members)
		return nil
	})
	return members, err
}

// canListMembers extends canView with the creator context.
func canListMembers(record storage.EventRecord, viewer Viewer) bool {
	if v, ok := viewer.(MemberViewer); ok && record.Event.CreatorRef == v.Member.Ref() {
		return true
	}
	return canView(record, viewer)
}

func membershipExists(eventID string, member domain.MemberRef) error {
	return apperrors.WithMetadata(apperrors.CodeMembershipExists, "member already has a membership", map[string]string{
		apperrors.MetaEventID: eventID,
		apperrors.MetaMember:  member.String(),
	})
}

func checkReach(eventID string, member identity.External, reach *ChannelReach) error {
	if reach == nil {
		return apperrors.WithMetadata(apperrors.CodeMembershipChannelRequired, "external invitee requires channel reach", map[string]string{
			apperrors.MetaEventID: eventID,
			apperrors.MetaMember:  member.Ref().String(),
		})
	}
	if !reach.Contains(member) {
		label := member.DisplayLabel
		if label == "" {
			label = member.Ref().String()
		}
		return apperrors.WithMetadata(apperrors.CodeMembershipUnreachable, "invitee is not reachable in channel", map[string]string{
			apperrors.MetaEventID: eventID,
			apperrors.MetaMember:  label,
			apperrors.MetaField:   reach.ChannelID,
		})
	}
	return nil
}
