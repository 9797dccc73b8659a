package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/planner"
)

// EventCreateInput is the input of event_create.
type EventCreateInput struct {
	Actor     ActorInput `json:"actor" jsonschema:"who is calling"`
	GameName  string     `json:"game_name" jsonschema:"game to play, e.g. Catan"`
	EventName string     `json:"event_name" jsonschema:"name of the event, e.g. Game Night"`
	ChannelID string     `json:"channel_id,omitempty" jsonschema:"chat channel to tag the event with"`
}

// EventCreateTool defines the MCP tool schema for creating an event.
func EventCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_create",
		Description: "Creates a gaming event in PLANNING status. The caller becomes its first host.",
	}
}

// EventCreateHandler executes an event create request.
func EventCreateHandler(client PlannerClient) mcp.ToolHandlerFor[EventCreateInput, EventResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventCreateInput) (*mcp.CallToolResult, EventResult, error) {
		channelID := input.ChannelID
		if channelID == "" {
			channelID = input.Actor.ChannelID
		}
		resp, err := callPlanner(ctx, input.Actor, "event create", func(ctx context.Context) (*planner.EventResponse, error) {
			return client.CreateEvent(ctx, &planner.CreateEventRequest{
				GameName:  input.GameName,
				EventName: input.EventName,
				ChannelID: channelID,
			})
		})
		if err != nil {
			return nil, EventResult{}, err
		}
		return nil, eventResult(resp.Event), nil
	}
}

// EventGetInput is the input of event_get.
type EventGetInput struct {
	Actor   ActorInput `json:"actor" jsonschema:"who is calling; a channel_id alone views as the channel"`
	EventID string     `json:"event_id" jsonschema:"event identifier"`
	Scope   string     `json:"scope,omitempty" jsonschema:"member or channel; channel views as the actor's channel even when a member is named"`
}

// EventGetTool defines the MCP tool schema for reading one event.
func EventGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_get",
		Description: "Returns one event with its members, if the caller can see it.",
	}
}

// EventGetHandler executes an event get request.
func EventGetHandler(client PlannerClient) mcp.ToolHandlerFor[EventGetInput, EventViewResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventGetInput) (*mcp.CallToolResult, EventViewResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "event get", func(ctx context.Context) (*planner.EventViewResponse, error) {
			return client.GetEvent(ctx, &planner.EventRequest{EventID: input.EventID, Scope: input.Scope})
		})
		if err != nil {
			return nil, EventViewResult{}, err
		}
		return nil, eventViewResult(resp.View), nil
	}
}

// EventListInput is the input of event_list.
type EventListInput struct {
	Actor            ActorInput `json:"actor" jsonschema:"who is calling; a channel_id alone lists the channel's events"`
	Status           string     `json:"status,omitempty" jsonschema:"only events in this status (PLANNING, CONFIRMED, CANCELLED)"`
	IncludeCancelled bool       `json:"include_cancelled,omitempty" jsonschema:"include cancelled events"`
	Limit            int        `json:"limit,omitempty" jsonschema:"page size, default 100, max 500"`
	Offset           int        `json:"offset,omitempty" jsonschema:"number of events to skip"`
	Scope            string     `json:"scope,omitempty" jsonschema:"member or channel; channel lists the actor's channel even when a member is named"`
}

// EventListResult is the output of event_list.
type EventListResult struct {
	Events []EventViewResult `json:"events" jsonschema:"visible events, newest first"`
}

// EventListTool defines the MCP tool schema for listing events.
func EventListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_list",
		Description: "Lists the events the caller is invited to or attending, or the events of a channel.",
	}
}

// EventListHandler executes an event list request.
func EventListHandler(client PlannerClient) mcp.ToolHandlerFor[EventListInput, EventListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventListInput) (*mcp.CallToolResult, EventListResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "event list", func(ctx context.Context) (*planner.ListEventsResponse, error) {
			return client.ListEvents(ctx, &planner.ListEventsRequest{
				Status:           input.Status,
				IncludeCancelled: input.IncludeCancelled,
				Limit:            input.Limit,
				Offset:           input.Offset,
				Scope:            input.Scope,
			})
		})
		if err != nil {
			return nil, EventListResult{}, err
		}
		result := EventListResult{Events: make([]EventViewResult, 0, len(resp.Events))}
		for _, view := range resp.Events {
			result.Events = append(result.Events, eventViewResult(view))
		}
		return nil, result, nil
	}
}

// EventUpdatePlanInput is the input of event_update_plan.
type EventUpdatePlanInput struct {
	Actor         ActorInput `json:"actor" jsonschema:"who is calling; must be a host"`
	EventID       string     `json:"event_id" jsonschema:"event identifier"`
	DateTime      string     `json:"date_time,omitempty" jsonschema:"new RFC3339 start time"`
	Location      string     `json:"location,omitempty" jsonschema:"new location"`
	EventName     string     `json:"event_name,omitempty" jsonschema:"new event name"`
	ClearDateTime bool       `json:"clear_date_time,omitempty" jsonschema:"remove the start time"`
	ClearLocation bool       `json:"clear_location,omitempty" jsonschema:"remove the location"`
}

// EventUpdatePlanTool defines the MCP tool schema for changing a plan.
func EventUpdatePlanTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_update_plan",
		Description: "Changes the date, location or name of an event. Every change bumps the plan version so members must confirm again.",
	}
}

// EventUpdatePlanHandler executes a plan update request.
func EventUpdatePlanHandler(client PlannerClient) mcp.ToolHandlerFor[EventUpdatePlanInput, EventResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventUpdatePlanInput) (*mcp.CallToolResult, EventResult, error) {
		req := &planner.UpdatePlanRequest{
			EventID:       input.EventID,
			ClearDateTime: input.ClearDateTime,
			ClearLocation: input.ClearLocation,
		}
		if input.DateTime != "" {
			dateTime, err := parseTime("date_time", input.DateTime)
			if err != nil {
				return nil, EventResult{}, err
			}
			req.DateTime = dateTime
		}
		if input.Location != "" {
			req.Location = &input.Location
		}
		if input.EventName != "" {
			req.EventName = &input.EventName
		}
		resp, err := callPlanner(ctx, input.Actor, "plan update", func(ctx context.Context) (*planner.EventResponse, error) {
			return client.UpdatePlan(ctx, req)
		})
		if err != nil {
			return nil, EventResult{}, err
		}
		return nil, eventResult(resp.Event), nil
	}
}

// EventSetStatusInput is the input of event_set_status.
type EventSetStatusInput struct {
	Actor   ActorInput `json:"actor" jsonschema:"who is calling; must be a host"`
	EventID string     `json:"event_id" jsonschema:"event identifier"`
	Status  string     `json:"status" jsonschema:"CONFIRMED or CANCELLED"`
}

// EventSetStatusTool defines the MCP tool schema for confirming or cancelling an event.
func EventSetStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_set_status",
		Description: "Confirms or cancels an event. Cancelling is final; repeating the current status is a no-op.",
	}
}

// EventSetStatusHandler executes a status change request.
func EventSetStatusHandler(client PlannerClient) mcp.ToolHandlerFor[EventSetStatusInput, EventResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventSetStatusInput) (*mcp.CallToolResult, EventResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "event status change", func(ctx context.Context) (*planner.EventResponse, error) {
			return client.SetEventStatus(ctx, &planner.SetEventStatusRequest{EventID: input.EventID, Status: input.Status})
		})
		if err != nil {
			return nil, EventResult{}, err
		}
		return nil, eventResult(resp.Event), nil
	}
}

// EventDeleteInput is the input of event_delete.
type EventDeleteInput struct {
	Actor   ActorInput `json:"actor" jsonschema:"who is calling; must be a host"`
	EventID string     `json:"event_id" jsonschema:"event identifier"`
}

// EventDeleteResult is the output of event_delete.
type EventDeleteResult struct {
	EventID string `json:"event_id" jsonschema:"deleted event identifier"`
	Deleted bool   `json:"deleted" jsonschema:"true when the event was removed"`
}

// EventDeleteTool defines the MCP tool schema for deleting an event.
func EventDeleteTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_delete",
		Description: "Deletes an event permanently.",
	}
}

// EventDeleteHandler executes an event delete request.
func EventDeleteHandler(client PlannerClient) mcp.ToolHandlerFor[EventDeleteInput, EventDeleteResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventDeleteInput) (*mcp.CallToolResult, EventDeleteResult, error) {
		_, err := callPlanner(ctx, input.Actor, "event delete", func(ctx context.Context) (*planner.Empty, error) {
			return client.DeleteEvent(ctx, &planner.DeleteEventRequest{EventID: input.EventID})
		})
		if err != nil {
			return nil, EventDeleteResult{}, err
		}
		return nil, EventDeleteResult{EventID: input.EventID, Deleted: true}, nil
	}
}
