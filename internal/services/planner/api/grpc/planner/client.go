package planner

import (
	"context"

	platformgrpc "github.com/rallypoint/rallypoint/internal/platform/grpc"
	"google.golang.org/grpc"
)

// Client calls the planner service. The caller identity, channel and locale
// are taken from the context's outgoing metadata.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient returns a planner client over conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(platformgrpc.JSONCodecName)}, opts...)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateEvent(ctx context.Context, in *CreateEventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c, MethodCreateEvent, in, opts...)
}

func (c *Client) UpdatePlan(ctx context.Context, in *UpdatePlanRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c, MethodUpdatePlan, in, opts...)
}

func (c *Client) SetEventStatus(ctx context.Context, in *SetEventStatusRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c, MethodSetEventStatus, in, opts...)
}

func (c *Client) DeleteEvent(ctx context.Context, in *DeleteEventRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodDeleteEvent, in, opts...)
}

func (c *Client) PurgeMemberships(ctx context.Context, in *PurgeMembershipsRequest, opts ...grpc.CallOption) (*PurgeMembershipsResponse, error) {
	return invoke[PurgeMembershipsResponse](ctx, c, MethodPurgeMemberships, in, opts...)
}

func (c *Client) InviteMember(ctx context.Context, in *InviteMemberRequest, opts ...grpc.CallOption) (*MembershipResponse, error) {
	return invoke[MembershipResponse](ctx, c, MethodInviteMember, in, opts...)
}

func (c *Client) AcceptInvite(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*MembershipResponse, error) {
	return invoke[MembershipResponse](ctx, c, MethodAcceptInvite, in, opts...)
}

func (c *Client) DeclineInvite(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*MembershipResponse, error) {
	return invoke[MembershipResponse](ctx, c, MethodDeclineInvite, in, opts...)
}

func (c *Client) LeaveEvent(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodLeaveEvent, in, opts...)
}

func (c *Client) ChangeRole(ctx context.Context, in *ChangeRoleRequest, opts ...grpc.CallOption) (*MembershipResponse, error) {
	return invoke[MembershipResponse](ctx, c, MethodChangeRole, in, opts...)
}

func (c *Client) ListMembers(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*ListMembersResponse, error) {
	return invoke[ListMembersResponse](ctx, c, MethodListMembers, in, opts...)
}

func (c *Client) ConfirmPlan(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*PlanStatusResponse, error) {
	return invoke[PlanStatusResponse](ctx, c, MethodConfirmPlan, in, opts...)
}

func (c *Client) GetPlanStatus(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*PlanStatusResponse, error) {
	return invoke[PlanStatusResponse](ctx, c, MethodGetPlanStatus, in, opts...)
}

func (c *Client) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c, MethodListEvents, in, opts...)
}

func (c *Client) GetEvent(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*EventViewResponse, error) {
	return invoke[EventViewResponse](ctx, c, MethodGetEvent, in, opts...)
}

func (c *Client) ResolveMember(ctx context.Context, in *ResolveMemberRequest, opts ...grpc.CallOption) (*ResolvedMemberResponse, error) {
	return invoke[ResolvedMemberResponse](ctx, c, MethodResolveMember, in, opts...)
}

func (c *Client) SetMemberLabel(ctx context.Context, in *SetMemberLabelRequest, opts ...grpc.CallOption) (*ResolvedMemberResponse, error) {
	return invoke[ResolvedMemberResponse](ctx, c, MethodSetMemberLabel, in, opts...)
}
