package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/planner"
)

// PlanConfirmTool defines the MCP tool schema for confirming the current plan.
func PlanConfirmTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plan_confirm",
		Description: "Records that the caller has seen the event's current plan.",
	}
}

// PlanConfirmHandler executes a plan confirmation request.
func PlanConfirmHandler(client PlannerClient) mcp.ToolHandlerFor[EventInput, PlanStatusResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventInput) (*mcp.CallToolResult, PlanStatusResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "plan confirm", func(ctx context.Context) (*planner.PlanStatusResponse, error) {
			return client.ConfirmPlan(ctx, &planner.EventRequest{EventID: input.EventID})
		})
		if err != nil {
			return nil, PlanStatusResult{}, err
		}
		return nil, planStatusResult(resp.Status), nil
	}
}

// PlanStatusTool defines the MCP tool schema for checking plan confirmation.
func PlanStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plan_status",
		Description: "Reports whether the caller has confirmed the event's current plan.",
	}
}

// PlanStatusHandler executes a plan status request.
func PlanStatusHandler(client PlannerClient) mcp.ToolHandlerFor[EventInput, PlanStatusResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventInput) (*mcp.CallToolResult, PlanStatusResult, error) {
		resp, err := callPlanner(ctx, input.Actor, "plan status", func(ctx context.Context) (*planner.PlanStatusResponse, error) {
			return client.GetPlanStatus(ctx, &planner.EventRequest{EventID: input.EventID})
		})
		if err != nil {
			return nil, PlanStatusResult{}, err
		}
		return nil, planStatusResult(resp.Status), nil
	}
}
