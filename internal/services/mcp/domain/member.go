package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/planner"
)

// ReachInput lists who the caller's channel can reach.
type ReachInput struct {
	ChannelID            string   `json:"channel_id" jsonschema:"channel whose members were looked up"`
	Source               string   `json:"source,omitempty" jsonschema:"chat integration of the channel"`
	ReachableExternalIDs []string `json:"reachable_external_ids" jsonschema:"external ids of people present in the channel"`
}

// MemberInviteInput is the input of member_invite.
type MemberInviteInput struct {
	Actor   ActorInput  `json:"actor" jsonschema:"who is calling; must be an accepted member"`
	EventID string      `json:"event_id" jsonschema:"event identifier"`
	Invitee MemberInput `json:"invitee" jsonschema:"person to invite"`
	Role    string      `json:"role,omitempty" jsonschema:"HOST or ATTENDEE, default ATTENDEE"`
	Reach   *ReachInput `json:"reach,omitempty" jsonschema:"channel presence, required when inviting a chat member"`
}

// MemberInviteTool defines the MCP tool schema for inviting someone.
func MemberInviteTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "member_invite",
		Description: "Invites a person to an event. Only hosts may invite other hosts.",
	}
}

// MemberInviteHandler executes an invite request.
func MemberInviteHandler(client PlannerClient) mcp.ToolHandlerFor[MemberInviteInput, MemberResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MemberInviteInput) (*mcp.CallToolResult, MemberResult, error) {
		role := input.Role
		if role == "" {
			role = "ATTENDEE"
		}
		req := &planner.InviteMemberRequest{
			EventID: input.EventID,
			Invitee: input.Invitee.toWire(),
			Role:    role,
		}
		if input.Reach != nil {
			req.Reach = &planner.ChannelReach{
				ChannelID:            input.Reach.ChannelID,
				Source:               input.Reach.Source,
				ReachableExternalIDs: input.Reach.ReachableExternalIDs,
			}
		}
		resp, err := callPlanner(ctx, input.Actor, "invite", func(ctx context.Context) (*planner.MembershipResponse, error) {
			return client.InviteMember(ctx, req)
		})
		if err != nil {
			return nil, MemberResult{}, err
		}
		return nil, memberResult(resp.Membership), nil
	}
}

// EventInput addresses one event on behalf of the actor.
type EventInput struct {
	Actor   ActorInput `json:"actor" jsonschema:"who is calling"`
	EventID string     `json:"event_id" jsonschema:"event identifier"`
}

// InviteAcceptTool defines the MCP tool schema for accepting an invitation.
func InviteAcceptTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "invite_accept",
		Description: "Accepts the caller's pending invitation to an event.",
	}
}

// InviteAcceptHandler executes an accept request.
func InviteAcceptHandler(client PlannerClient) mcp.ToolHandlerFor[EventInput, MemberResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventInput) (*mcp.CallToolResult, MemberResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "invite accept", func(ctx context.Context) (*planner.MembershipResponse, error) {
			return client.AcceptInvite(ctx, &planner.EventRequest{EventID: input.EventID})
		})
		if err != nil {
			return nil, MemberResult{}, err
		}
		return nil, memberResult(resp.Membership), nil
	}
}

// InviteDeclineTool defines the MCP tool schema for declining an invitation.
func InviteDeclineTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "invite_decline",
		Description: "Declines the caller's pending invitation. A declined person cannot be invited again.",
	}
}

// InviteDeclineHandler executes a decline request.
func InviteDeclineHandler(client PlannerClient) mcp.ToolHandlerFor[EventInput, MemberResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventInput) (*mcp.CallToolResult, MemberResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "invite decline", func(ctx context.Context) (*planner.MembershipResponse, error) {
			return client.DeclineInvite(ctx, &planner.EventRequest{EventID: input.EventID})
		})
		if err != nil {
			return nil, MemberResult{}, err
		}
		return nil, memberResult(resp.Membership), nil
	}
}

// LeaveResult is the output of event_leave.
type LeaveResult struct {
	EventID string `json:"event_id" jsonschema:"event identifier"`
	Left    bool   `json:"left" jsonschema:"true when the caller's membership was removed"`
}

// EventLeaveTool defines the MCP tool schema for leaving an event.
func EventLeaveTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_leave",
		Description: "Removes the caller from an event. The last host cannot leave.",
	}
}

// EventLeaveHandler executes a leave request.
func EventLeaveHandler(client PlannerClient) mcp.ToolHandlerFor[EventInput, LeaveResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventInput) (*mcp.CallToolResult, LeaveResult, error) {
		_, err := callPlanner(ctx, input.Actor, "event leave", func(ctx context.Context) (*planner.Empty, error) {
			return client.LeaveEvent(ctx, &planner.EventRequest{EventID: input.EventID})
		})
		if err != nil {
			return nil, LeaveResult{}, err
		}
		return nil, LeaveResult{EventID: input.EventID, Left: true}, nil
	}
}

// MemberChangeRoleInput is the input of member_change_role.
type MemberChangeRoleInput struct {
	Actor   ActorInput  `json:"actor" jsonschema:"who is calling; must be a host"`
	EventID string      `json:"event_id" jsonschema:"event identifier"`
	Target  MemberInput `json:"target" jsonschema:"member whose role changes"`
	Role    string      `json:"role" jsonschema:"HOST or ATTENDEE"`
}

// MemberChangeRoleTool defines the MCP tool schema for promoting or demoting a member.
func MemberChangeRoleTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "member_change_role",
		Description: "Promotes a member to host or demotes a host to attendee. The last accepted host cannot be demoted.",
	}
}

// MemberChangeRoleHandler executes a role change request.
func MemberChangeRoleHandler(client PlannerClient) mcp.ToolHandlerFor[MemberChangeRoleInput, MemberResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MemberChangeRoleInput) (*mcp.CallToolResult, MemberResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "role change", func(ctx context.Context) (*planner.MembershipResponse, error) {
			return client.ChangeRole(ctx, &planner.ChangeRoleRequest{
				EventID: input.EventID,
				Target:  input.Target.toWire(),
				Role:    input.Role,
			})
		})
		if err != nil {
			return nil, MemberResult{}, err
		}
		return nil, memberResult(resp.Membership), nil
	}
}

// EventMembersInput is the input of event_members.
type EventMembersInput struct {
	Actor   ActorInput `json:"actor" jsonschema:"who is calling; a channel_id alone views as the channel"`
	EventID string     `json:"event_id" jsonschema:"event identifier"`
	Scope   string     `json:"scope,omitempty" jsonschema:"member or channel"`
}

// MembersResult is the output of event_members.
type MembersResult struct {
	EventID string         `json:"event_id" jsonschema:"event identifier"`
	Members []MemberResult `json:"members" jsonschema:"memberships, hosts first"`
}

// EventMembersTool defines the MCP tool schema for listing members.
func EventMembersTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_members",
		Description: "Lists the members of an event, hosts first. Channel viewers may list events tagged with their channel.",
	}
}

// EventMembersHandler executes a member list request.
func EventMembersHandler(client PlannerClient) mcp.ToolHandlerFor[EventMembersInput, MembersResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventMembersInput) (*mcp.CallToolResult, MembersResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "member list", func(ctx context.Context) (*planner.ListMembersResponse, error) {
			return client.ListMembers(ctx, &planner.EventRequest{EventID: input.EventID, Scope: input.Scope})
		})
		if err != nil {
			return nil, MembersResult{}, err
		}
		return nil, MembersResult{EventID: input.EventID, Members: memberResults(resp.Members)}, nil
	}
}

// MemberLabelSetInput is the input of member_label_set.
type MemberLabelSetInput struct {
	Actor      ActorInput `json:"actor" jsonschema:"who is calling"`
	Source     string     `json:"source" jsonschema:"chat integration, e.g. discord"`
	ExternalID string     `json:"external_id" jsonschema:"id within the chat integration"`
	Label      string     `json:"label" jsonschema:"display name to remember"`
}

// MemberLabelResult is the output of member_label_set.
type MemberLabelResult struct {
	Member       string `json:"member" jsonschema:"member as source:id"`
	DisplayLabel string `json:"display_label" jsonschema:"stored display name"`
}

// MemberLabelSetTool defines the MCP tool schema for naming a chat member.
func MemberLabelSetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "member_label_set",
		Description: "Records the display name of a chat member so member lists can show it.",
	}
}

// MemberLabelSetHandler executes a label update request.
func MemberLabelSetHandler(client PlannerClient) mcp.ToolHandlerFor[MemberLabelSetInput, MemberLabelResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MemberLabelSetInput) (*mcp.CallToolResult, MemberLabelResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "label update", func(ctx context.Context) (*planner.ResolvedMemberResponse, error) {
			return client.SetMemberLabel(ctx, &planner.SetMemberLabelRequest{
				Source:     input.Source,
				ExternalID: input.ExternalID,
				Label:      input.Label,
			})
		})
		if err != nil {
			return nil, MemberLabelResult{}, err
		}
		return nil, MemberLabelResult{
			Member:       resp.Member.Ref.String(),
			DisplayLabel: resp.Member.DisplayLabel,
		}, nil
	}
}
