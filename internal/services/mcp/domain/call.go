package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/platform/id"
	"github.com/rallypoint/rallypoint/internal/platform/timeouts"
	grpcmeta "github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/metadata"
	"github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/planner"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"google.golang.org/grpc"
)

// PlannerClient is the subset of the planner gRPC client the tools use.
type PlannerClient interface {
	CreateEvent(context.Context, *planner.CreateEventRequest, ...grpc.CallOption) (*planner.EventResponse, error)
	UpdatePlan(context.Context, *planner.UpdatePlanRequest, ...grpc.CallOption) (*planner.EventResponse, error)
	SetEventStatus(context.Context, *planner.SetEventStatusRequest, ...grpc.CallOption) (*planner.EventResponse, error)
	DeleteEvent(context.Context, *planner.DeleteEventRequest, ...grpc.CallOption) (*planner.Empty, error)
	InviteMember(context.Context, *planner.InviteMemberRequest, ...grpc.CallOption) (*planner.MembershipResponse, error)
	AcceptInvite(context.Context, *planner.EventRequest, ...grpc.CallOption) (*planner.MembershipResponse, error)
	DeclineInvite(context.Context, *planner.EventRequest, ...grpc.CallOption) (*planner.MembershipResponse, error)
	LeaveEvent(context.Context, *planner.EventRequest, ...grpc.CallOption) (*planner.Empty, error)
	ChangeRole(context.Context, *planner.ChangeRoleRequest, ...grpc.CallOption) (*planner.MembershipResponse, error)
	ListMembers(context.Context, *planner.EventRequest, ...grpc.CallOption) (*planner.ListMembersResponse, error)
	ConfirmPlan(context.Context, *planner.EventRequest, ...grpc.CallOption) (*planner.PlanStatusResponse, error)
	GetPlanStatus(context.Context, *planner.EventRequest, ...grpc.CallOption) (*planner.PlanStatusResponse, error)
	ListEvents(context.Context, *planner.ListEventsRequest, ...grpc.CallOption) (*planner.ListEventsResponse, error)
	GetEvent(context.Context, *planner.EventRequest, ...grpc.CallOption) (*planner.EventViewResponse, error)
	SetMemberLabel(context.Context, *planner.SetMemberLabelRequest, ...grpc.CallOption) (*planner.ResolvedMemberResponse, error)
}

var _ PlannerClient = (*planner.Client)(nil)

// ActorInput identifies who is calling a tool. Give account_id for a
// registered account, or source plus external_id for a chat member.
type ActorInput struct {
	AccountID  string `json:"account_id,omitempty" jsonschema:"registered account id of the caller"`
	Source     string `json:"source,omitempty" jsonschema:"chat integration of the caller, e.g. discord"`
	ExternalID string `json:"external_id,omitempty" jsonschema:"caller id within the chat integration"`
	ChannelID  string `json:"channel_id,omitempty" jsonschema:"chat channel the request comes from"`
	Locale     string `json:"locale,omitempty" jsonschema:"preferred language for error messages, e.g. pt-BR"`
}

// MemberInput names another member: an invitee or a role-change target.
type MemberInput struct {
	AccountID    string `json:"account_id,omitempty" jsonschema:"registered account id"`
	Source       string `json:"source,omitempty" jsonschema:"chat integration, e.g. discord"`
	ExternalID   string `json:"external_id,omitempty" jsonschema:"id within the chat integration"`
	DisplayLabel string `json:"display_label,omitempty" jsonschema:"display name to remember for a chat member"`
}

func (m MemberInput) toWire() planner.MemberInput {
	return planner.MemberInput{
		AccountID:    m.AccountID,
		Source:       m.Source,
		ExternalID:   m.ExternalID,
		DisplayLabel: m.DisplayLabel,
	}
}

// callPlanner runs one planner call under the request timeout with the
// actor's identity attached as outgoing metadata.
func callPlanner[T any](ctx context.Context, actor ActorInput, operation string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	requestID, err := id.NewID()
	if err != nil {
		return zero, fmt.Errorf("generate request id: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	defer cancel()

	callCtx := grpcmeta.WithOutgoingRequestID(runCtx, requestID)
	callCtx = grpcmeta.WithActor(callCtx, identity.RawRef{
		AccountID:  actor.AccountID,
		Source:     actor.Source,
		ExternalID: actor.ExternalID,
	})
	callCtx = grpcmeta.WithChannelID(callCtx, actor.ChannelID)
	callCtx = grpcmeta.WithLocale(callCtx, actor.Locale)

	result, err := call(callCtx)
	if err != nil {
		return zero, toolError(operation, err)
	}
	return result, nil
}

// toolError prefers the planner's localized message so the model can relay
// it to the user verbatim.
func toolError(operation string, err error) error {
	domainErr, localized, ok := apperrors.FromGRPCStatus(err)
	if !ok {
		return fmt.Errorf("%s failed: %w", operation, err)
	}
	message := strings.TrimSpace(localized)
	if message == "" {
		message = domainErr.Message
	}
	return fmt.Errorf("%s failed: %s (%s)", operation, message, domainErr.Code)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func parseTime(field, value string) (*time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC3339 timestamp: %w", field, err)
	}
	return &parsed, nil
}
