// Package planner exposes the planner engine as a gRPC service.
//
// The calling member travels in request metadata (see the metadata
// package); members named in request bodies are invitees or targets.
package planner

import (
	"context"
	"log"
	"strings"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/platform/errors/i18n"
	grpcmeta "github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/metadata"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/engine"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Service implements PlannerServer over the engine and identity resolver.
type Service struct {
	engine   *engine.Engine
	resolver *identity.Resolver
}

// NewService creates a planner service.
func NewService(engine *engine.Engine, resolver *identity.Resolver) *Service {
	return &Service{engine: engine, resolver: resolver}
}

// CreateEvent creates an event hosted by the caller.
func (s *Service) CreateEvent(ctx context.Context, in *CreateEventRequest) (*EventResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	event, err := s.engine.CreateEvent(ctx, actor, domain.CreateEventInput{
		GameName:  in.GameName,
		EventName: in.EventName,
		ChannelID: in.ChannelID,
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &EventResponse{Event: eventToWire(event)}, nil
}

// UpdatePlan changes plan attributes and advances the plan version.
func (s *Service) UpdatePlan(ctx context.Context, in *UpdatePlanRequest) (*EventResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	event, err := s.engine.UpdatePlan(ctx, strings.TrimSpace(in.EventID), actor, domain.PlanUpdate{
		DateTime:      in.DateTime,
		Location:      in.Location,
		EventName:     in.EventName,
		ClearDateTime: in.ClearDateTime,
		ClearLocation: in.ClearLocation,
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &EventResponse{Event: eventToWire(event)}, nil
}

// SetEventStatus confirms or cancels an event.
func (s *Service) SetEventStatus(ctx context.Context, in *SetEventStatusRequest) (*EventResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	target := domain.EventStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	event, err := s.engine.SetStatus(ctx, strings.TrimSpace(in.EventID), actor, target)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &EventResponse{Event: eventToWire(event)}, nil
}

// DeleteEvent removes an event; its memberships remain until purged.
func (s *Service) DeleteEvent(ctx context.Context, in *DeleteEventRequest) (*Empty, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	if err := s.engine.DeleteEvent(ctx, strings.TrimSpace(in.EventID), actor); err != nil {
		return nil, toStatus(ctx, err)
	}
	return &Empty{}, nil
}

// PurgeMemberships removes memberships left by a deleted event. It is an
// operator method: the event is gone, so there is no host to check, but the
// caller must still identify itself and is named in the log.
func (s *Service) PurgeMemberships(ctx context.Context, in *PurgeMembershipsRequest) (*PurgeMembershipsResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	eventID := strings.TrimSpace(in.EventID)
	removed, err := s.engine.PurgeMemberships(ctx, eventID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	log.Printf("planner purge memberships: event_id=%s actor=%s removed=%d", eventID, actor.Ref(), removed)
	return &PurgeMembershipsResponse{Removed: removed}, nil
}

// InviteMember invites a member on behalf of the caller.
func (s *Service) InviteMember(ctx context.Context, in *InviteMemberRequest) (*MembershipResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	invitee, err := s.resolveInput(ctx, in.Invitee)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	membership, err := s.engine.Invite(ctx, engine.InviteInput{
		EventID: strings.TrimSpace(in.EventID),
		Inviter: actor,
		Invitee: invitee,
		Role:    domain.Role(in.Role),
		Reach:   reachFromWire(in.Reach),
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &MembershipResponse{Membership: membershipToWire(membership)}, nil
}

// AcceptInvite accepts the caller's pending invitation.
func (s *Service) AcceptInvite(ctx context.Context, in *EventRequest) (*MembershipResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	membership, err := s.engine.Accept(ctx, strings.TrimSpace(in.EventID), actor)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &MembershipResponse{Membership: membershipToWire(membership)}, nil
}

// DeclineInvite declines the caller's pending invitation.
func (s *Service) DeclineInvite(ctx context.Context, in *EventRequest) (*MembershipResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	membership, err := s.engine.Decline(ctx, strings.TrimSpace(in.EventID), actor)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &MembershipResponse{Membership: membershipToWire(membership)}, nil
}

// LeaveEvent removes the caller's accepted membership.
func (s *Service) LeaveEvent(ctx context.Context, in *EventRequest) (*Empty, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	if err := s.engine.Leave(ctx, strings.TrimSpace(in.EventID), actor); err != nil {
		return nil, toStatus(ctx, err)
	}
	return &Empty{}, nil
}

// ChangeRole sets another member's role.
func (s *Service) ChangeRole(ctx context.Context, in *ChangeRoleRequest) (*MembershipResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	target, err := s.resolveInput(ctx, in.Target)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	membership, err := s.engine.ChangeRole(ctx, strings.TrimSpace(in.EventID), actor, target, domain.Role(in.Role))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &MembershipResponse{Membership: membershipToWire(membership)}, nil
}

// ListMembers lists an event's memberships, hosts first.
func (s *Service) ListMembers(ctx context.Context, in *EventRequest) (*ListMembersResponse, error) {
	viewer, err := s.viewer(ctx, in.Scope)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	members, err := s.engine.ListMembers(ctx, strings.TrimSpace(in.EventID), viewer)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ListMembersResponse{Members: membershipsToWire(members)}, nil
}

// ConfirmPlan records that the caller has seen the current plan.
func (s *Service) ConfirmPlan(ctx context.Context, in *EventRequest) (*PlanStatusResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	eventID := strings.TrimSpace(in.EventID)
	planStatus, err := s.engine.ConfirmPlan(ctx, eventID, actor)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &PlanStatusResponse{Status: planStatusToWire(eventID, planStatus)}, nil
}

// GetPlanStatus reports the caller's confirmation against the current plan.
func (s *Service) GetPlanStatus(ctx context.Context, in *EventRequest) (*PlanStatusResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	eventID := strings.TrimSpace(in.EventID)
	planStatus, err := s.engine.PlanStatus(ctx, eventID, actor)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &PlanStatusResponse{Status: planStatusToWire(eventID, planStatus)}, nil
}

// ListEvents lists the events visible to the caller or the caller's channel.
func (s *Service) ListEvents(ctx context.Context, in *ListEventsRequest) (*ListEventsResponse, error) {
	viewer, err := s.viewer(ctx, in.Scope)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	views, err := s.engine.ListEvents(ctx, viewer, engine.ListFilter{
		Status:           domain.EventStatus(strings.TrimSpace(in.Status)),
		IncludeCancelled: in.IncludeCancelled,
		Limit:            in.Limit,
		Offset:           in.Offset,
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	resp := &ListEventsResponse{Events: make([]EventView, 0, len(views))}
	for _, view := range views {
		resp.Events = append(resp.Events, viewToWire(view))
	}
	return resp, nil
}

// GetEvent returns one visible event.
func (s *Service) GetEvent(ctx context.Context, in *EventRequest) (*EventViewResponse, error) {
	viewer, err := s.viewer(ctx, in.Scope)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	view, err := s.engine.GetEvent(ctx, strings.TrimSpace(in.EventID), viewer)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &EventViewResponse{View: viewToWire(view)}, nil
}

// ResolveMember returns the canonical identity for a raw member reference,
// registering external members on first sight.
func (s *Service) ResolveMember(ctx context.Context, in *ResolveMemberRequest) (*ResolvedMemberResponse, error) {
	member, err := s.resolveInput(ctx, in.Member)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ResolvedMemberResponse{Member: resolvedToWire(member)}, nil
}

// SetMemberLabel sets the display label of an external member.
func (s *Service) SetMemberLabel(ctx context.Context, in *SetMemberLabelRequest) (*ResolvedMemberResponse, error) {
	external, err := s.resolver.SetDisplayLabel(ctx, in.Source, in.ExternalID, in.Label)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &ResolvedMemberResponse{Member: resolvedToWire(external)}, nil
}

// actor resolves the calling member from metadata.
func (s *Service) actor(ctx context.Context) (identity.Member, error) {
	raw := grpcmeta.ActorFromContext(ctx)
	if raw.IsZero() {
		return nil, apperrors.New(apperrors.CodeMembershipActorRequired, "caller identity is required")
	}
	return s.resolver.Resolve(ctx, raw)
}

// viewer picks who a read is evaluated for. Without a scope it prefers the
// calling member and falls back to the calling channel.
func (s *Service) viewer(ctx context.Context, scope string) (engine.Viewer, error) {
	switch strings.ToLower(strings.TrimSpace(scope)) {
	case "":
	case ScopeChannel:
		channelID := grpcmeta.ChannelIDFromContext(ctx)
		if channelID == "" {
			return nil, apperrors.New(apperrors.CodeEventViewScopeInvalid, "channel scope requires a channel id")
		}
		return engine.ChannelViewer{ChannelID: channelID}, nil
	case ScopeMember:
		raw := grpcmeta.ActorFromContext(ctx)
		if raw.IsZero() {
			return nil, apperrors.New(apperrors.CodeMembershipActorRequired, "member scope requires caller identity")
		}
		member, err := s.resolver.Resolve(ctx, raw)
		if err != nil {
			return nil, err
		}
		return engine.MemberViewer{Member: member}, nil
	default:
		return nil, apperrors.WithMetadata(apperrors.CodeEventViewScopeInvalid, "unknown view scope", map[string]string{
			apperrors.MetaField: scope,
		})
	}
	if raw := grpcmeta.ActorFromContext(ctx); !raw.IsZero() {
		member, err := s.resolver.Resolve(ctx, raw)
		if err != nil {
			return nil, err
		}
		return engine.MemberViewer{Member: member}, nil
	}
	if channelID := grpcmeta.ChannelIDFromContext(ctx); channelID != "" {
		return engine.ChannelViewer{ChannelID: channelID}, nil
	}
	return nil, apperrors.New(apperrors.CodeMembershipActorRequired, "caller identity or channel is required")
}

func (s *Service) resolveInput(ctx context.Context, in MemberInput) (identity.Member, error) {
	member, err := s.resolver.Resolve(ctx, identity.RawRef{
		AccountID:  in.AccountID,
		Source:     in.Source,
		ExternalID: in.ExternalID,
	})
	if err != nil {
		return nil, err
	}
	external, ok := member.(identity.External)
	if !ok || strings.TrimSpace(in.DisplayLabel) == "" || external.DisplayLabel == strings.TrimSpace(in.DisplayLabel) {
		return member, nil
	}
	return s.resolver.SetDisplayLabel(ctx, external.Source, external.ExternalID, in.DisplayLabel)
}

func resolvedToWire(member identity.Member) ResolvedMember {
	out := ResolvedMember{Ref: member.Ref()}
	switch m := member.(type) {
	case identity.Account:
		out.AccountID = m.AccountID
	case identity.External:
		out.RecordID = m.RecordID
		out.Source = m.Source
		out.ExternalID = m.ExternalID
		out.DisplayLabel = m.DisplayLabel
	}
	return out
}

// toStatus renders an error as a gRPC status with a message localized for
// the caller's accept-language.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	domainErr, ok := apperrors.As(err)
	if !ok {
		log.Printf("planner rpc internal error: request_id=%s err=%v", grpcmeta.RequestIDFromContext(ctx), err)
		return status.Error(codes.Internal, "internal error")
	}
	if apperrors.IsKind(err, apperrors.KindInternal) {
		log.Printf("planner rpc internal error: request_id=%s code=%s err=%v", grpcmeta.RequestIDFromContext(ctx), domainErr.Code, err)
	}
	catalog := i18n.GetCatalog(grpcmeta.LocaleFromContext(ctx))
	return domainErr.ToGRPCStatus(catalog.Locale(), catalog.Format(string(domainErr.Code), domainErr.Metadata))
}
