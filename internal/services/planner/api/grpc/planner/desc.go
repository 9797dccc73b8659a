package planner

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "rallypoint.planner.v1.PlannerService"

// Method names of the planner service.
const (
	MethodCreateEvent      = "CreateEvent"
	MethodUpdatePlan       = "UpdatePlan"
	MethodSetEventStatus   = "SetEventStatus"
	MethodDeleteEvent      = "DeleteEvent"
	MethodPurgeMemberships = "PurgeMemberships"
	MethodInviteMember     = "InviteMember"
	MethodAcceptInvite     = "AcceptInvite"
	MethodDeclineInvite    = "DeclineInvite"
	MethodLeaveEvent       = "LeaveEvent"
	MethodChangeRole       = "ChangeRole"
	MethodListMembers      = "ListMembers"
	MethodConfirmPlan      = "ConfirmPlan"
	MethodGetPlanStatus    = "GetPlanStatus"
	MethodListEvents       = "ListEvents"
	MethodGetEvent         = "GetEvent"
	MethodResolveMember    = "ResolveMember"
	MethodSetMemberLabel   = "SetMemberLabel"
)

// FullMethod returns the gRPC path of a planner method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// PlannerServer is the server API for the planner service.
type PlannerServer interface {
	CreateEvent(context.Context, *CreateEventRequest) (*EventResponse, error)
	UpdatePlan(context.Context, *UpdatePlanRequest) (*EventResponse, error)
	SetEventStatus(context.Context, *SetEventStatusRequest) (*EventResponse, error)
	DeleteEvent(context.Context, *DeleteEventRequest) (*Empty, error)
	PurgeMemberships(context.Context, *PurgeMembershipsRequest) (*PurgeMembershipsResponse, error)
	InviteMember(context.Context, *InviteMemberRequest) (*MembershipResponse, error)
	AcceptInvite(context.Context, *EventRequest) (*MembershipResponse, error)
	DeclineInvite(context.Context, *EventRequest) (*MembershipResponse, error)
	LeaveEvent(context.Context, *EventRequest) (*Empty, error)
	ChangeRole(context.Context, *ChangeRoleRequest) (*MembershipResponse, error)
	ListMembers(context.Context, *EventRequest) (*ListMembersResponse, error)
	ConfirmPlan(context.Context, *EventRequest) (*PlanStatusResponse, error)
	GetPlanStatus(context.Context, *EventRequest) (*PlanStatusResponse, error)
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
	GetEvent(context.Context, *EventRequest) (*EventViewResponse, error)
	ResolveMember(context.Context, *ResolveMemberRequest) (*ResolvedMemberResponse, error)
	SetMemberLabel(context.Context, *SetMemberLabelRequest) (*ResolvedMemberResponse, error)
}

var _ PlannerServer = (*Service)(nil)

// ServiceDesc describes the planner service for grpc.Server registration.
// Messages are plain structs carried by the JSON codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlannerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodCreateEvent, PlannerServer.CreateEvent),
		unary(MethodUpdatePlan, PlannerServer.UpdatePlan),
		unary(MethodSetEventStatus, PlannerServer.SetEventStatus),
		unary(MethodDeleteEvent, PlannerServer.DeleteEvent),
		unary(MethodPurgeMemberships, PlannerServer.PurgeMemberships),
		unary(MethodInviteMember, PlannerServer.InviteMember),
		unary(MethodAcceptInvite, PlannerServer.AcceptInvite),
		unary(MethodDeclineInvite, PlannerServer.DeclineInvite),
		unary(MethodLeaveEvent, PlannerServer.LeaveEvent),
		unary(MethodChangeRole, PlannerServer.ChangeRole),
		unary(MethodListMembers, PlannerServer.ListMembers),
		unary(MethodConfirmPlan, PlannerServer.ConfirmPlan),
		unary(MethodGetPlanStatus, PlannerServer.GetPlanStatus),
		unary(MethodListEvents, PlannerServer.ListEvents),
		unary(MethodGetEvent, PlannerServer.GetEvent),
		unary(MethodResolveMember, PlannerServer.ResolveMember),
		unary(MethodSetMemberLabel, PlannerServer.SetMemberLabel),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rallypoint/planner/v1/planner.json",
}

// RegisterPlannerServer registers srv on s.
func RegisterPlannerServer(s grpc.ServiceRegistrar, srv PlannerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts a typed server method into a grpc.MethodDesc.
func unary[Req, Resp any](method string, call func(PlannerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(PlannerServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
