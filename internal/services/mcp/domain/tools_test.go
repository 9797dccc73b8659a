package domain

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	grpcmeta "github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/metadata"
	"github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/planner"
	"github.com/rallypoint/rallypoint/internal/services/planner/engine"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func startPlanner(t *testing.T) *planner.Client {
	t.Helper()

	store := memory.New()
	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcmeta.UnaryServerInterceptor(nil)))
	planner.RegisterPlannerServer(server, planner.NewService(engine.New(store), identity.NewResolver(store)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(listener)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
		<-done
		_ = store.Close()
	})
	return planner.NewClient(conn)
}

func connectTools(t *testing.T, client PlannerClient) *mcp.ClientSession {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{Name: "planner-tools-test", Version: "v0.0.1"}, nil)
	mcp.AddTool(server, EventCreateTool(), EventCreateHandler(client))
	mcp.AddTool(server, EventGetTool(), EventGetHandler(client))
	mcp.AddTool(server, EventListTool(), EventListHandler(client))
	mcp.AddTool(server, EventUpdatePlanTool(), EventUpdatePlanHandler(client))
	mcp.AddTool(server, EventSetStatusTool(), EventSetStatusHandler(client))
	mcp.AddTool(server, EventDeleteTool(), EventDeleteHandler(client))
	mcp.AddTool(server, MemberInviteTool(), MemberInviteHandler(client))
	mcp.AddTool(server, InviteAcceptTool(), InviteAcceptHandler(client))
	mcp.AddTool(server, InviteDeclineTool(), InviteDeclineHandler(client))
	mcp.AddTool(server, EventLeaveTool(), EventLeaveHandler(client))
	mcp.AddTool(server, MemberChangeRoleTool(), MemberChangeRoleHandler(client))
	mcp.AddTool(server, EventMembersTool(), EventMembersHandler(client))
	mcp.AddTool(server, MemberLabelSetTool(), MemberLabelSetHandler(client))
	mcp.AddTool(server, PlanConfirmTool(), PlanConfirmHandler(client))
	mcp.AddTool(server, PlanStatusTool(), PlanStatusHandler(client))

	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect server: %v", err)
	}
	mcpClient := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := mcpClient.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() {
		_ = session.Close()
		_ = serverSession.Wait()
		cancel()
	})
	return session
}

func callTool[T any](t *testing.T, session *mcp.ClientSession, name string, args map[string]any) T {
	t.Helper()

	result := callToolRaw(t, session, name, args)
	if result.IsError {
		t.Fatalf("%s returned error: %s", name, resultText(result))
	}
	return decodeStructuredContent[T](t, result.StructuredContent)
}

func callToolRaw(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if result == nil {
		t.Fatalf("call %s returned nil", name)
	}
	return result
}

func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func decodeStructuredContent[T any](t *testing.T, value any) T {
	t.Helper()

	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var output T
	if err := json.Unmarshal(data, &output); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return output
}

func account(id string) map[string]any {
	return map[string]any{"account_id": id}
}

func TestPlanningThroughTools(t *testing.T) {
	session := connectTools(t, startPlanner(t))

	created := callTool[EventResult](t, session, "event_create", map[string]any{
		"actor":      account("u1"),
		"game_name":  "Catan",
		"event_name": "Game Night",
	})
	if created.Status != "PLANNING" || created.Creator != "account:u1" || created.PlanVersion != 0 {
		t.Fatalf("unexpected event %+v", created)
	}

	invited := callTool[MemberResult](t, session, "member_invite", map[string]any{
		"actor":    account("u1"),
		"event_id": created.ID,
		"invitee":  map[string]any{"account_id": "u2"},
	})
	if invited.Role != "ATTENDEE" || invited.Status != "PENDING" {
		t.Fatalf("expected pending attendee, got %+v", invited)
	}

	accepted := callTool[MemberResult](t, session, "invite_accept", map[string]any{
		"actor":    account("u2"),
		"event_id": created.ID,
	})
	if accepted.Status != "ACCEPTED" {
		t.Fatalf("expected accepted membership, got %+v", accepted)
	}

	updated := callTool[EventResult](t, session, "event_update_plan", map[string]any{
		"actor":     account("u1"),
		"event_id":  created.ID,
		"date_time": "2026-11-20T19:00:00Z",
		"location":  "Kim's place",
	})
	if updated.PlanVersion != 1 || updated.DateTime != "2026-11-20T19:00:00Z" || updated.Location != "Kim's place" {
		t.Fatalf("unexpected updated event %+v", updated)
	}

	before := callTool[PlanStatusResult](t, session, "plan_status", map[string]any{
		"actor":    account("u2"),
		"event_id": created.ID,
	})
	if before.UpToDate || before.CurrentPlanVersion != 1 {
		t.Fatalf("expected stale confirmation, got %+v", before)
	}
	confirmed := callTool[PlanStatusResult](t, session, "plan_confirm", map[string]any{
		"actor":    account("u2"),
		"event_id": created.ID,
	})
	if !confirmed.UpToDate || confirmed.ConfirmedPlanVersion != 1 {
		t.Fatalf("expected confirmed plan, got %+v", confirmed)
	}

	status := callTool[EventResult](t, session, "event_set_status", map[string]any{
		"actor":    account("u1"),
		"event_id": created.ID,
		"status":   "CONFIRMED",
	})
	if status.Status != "CONFIRMED" {
		t.Fatalf("expected confirmed event, got %+v", status)
	}

	view := callTool[EventViewResult](t, session, "event_get", map[string]any{
		"actor":    account("u2"),
		"event_id": created.ID,
	})
	if view.MyRole != "ATTENDEE" || !view.UpToDate || view.AcceptedHosts != 1 || view.AcceptedAttendees != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(view.Members) != 2 || view.Members[0].Role != "HOST" {
		t.Fatalf("expected hosts first, got %+v", view.Members)
	}

	list := callTool[EventListResult](t, session, "event_list", map[string]any{"actor": account("u2")})
	if len(list.Events) != 1 || list.Events[0].Event.ID != created.ID {
		t.Fatalf("expected one listed event, got %+v", list.Events)
	}

	left := callTool[LeaveResult](t, session, "event_leave", map[string]any{
		"actor":    account("u2"),
		"event_id": created.ID,
	})
	if !left.Left {
		t.Fatalf("expected leave result, got %+v", left)
	}

	deleted := callTool[EventDeleteResult](t, session, "event_delete", map[string]any{
		"actor":    account("u1"),
		"event_id": created.ID,
	})
	if !deleted.Deleted {
		t.Fatalf("expected delete result, got %+v", deleted)
	}
}

func TestToolErrorsCarryLocalizedMessage(t *testing.T) {
	session := connectTools(t, startPlanner(t))

	created := callTool[EventResult](t, session, "event_create", map[string]any{
		"actor":      account("u1"),
		"game_name":  "Catan",
		"event_name": "Game Night",
	})

	result := callToolRaw(t, session, "event_leave", map[string]any{
		"actor":    account("u1"),
		"event_id": created.ID,
	})
	if !result.IsError {
		t.Fatal("expected last host leave to fail")
	}
	text := resultText(result)
	if !strings.Contains(text, "The last host cannot leave") || !strings.Contains(text, "MEMBERSHIP_LAST_HOST") {
		t.Fatalf("expected localized last host error, got %q", text)
	}

	result = callToolRaw(t, session, "event_leave", map[string]any{
		"actor":    map[string]any{"account_id": "u1", "locale": "pt-BR"},
		"event_id": created.ID,
	})
	if text := resultText(result); !strings.Contains(text, "O último anfitrião não pode sair") {
		t.Fatalf("expected pt-BR message, got %q", text)
	}
}

func TestChannelMembersThroughTools(t *testing.T) {
	session := connectTools(t, startPlanner(t))

	created := callTool[EventResult](t, session, "event_create", map[string]any{
		"actor":      map[string]any{"source": "discord", "external_id": "kim", "channel_id": "chan-1"},
		"game_name":  "Gloomhaven",
		"event_name": "Campaign Night",
	})
	if created.Creator != "discord:kim" || created.ChannelID != "chan-1" {
		t.Fatalf("unexpected event %+v", created)
	}

	unreachable := callToolRaw(t, session, "member_invite", map[string]any{
		"actor":    map[string]any{"source": "discord", "external_id": "kim"},
		"event_id": created.ID,
		"invitee":  map[string]any{"source": "discord", "external_id": "lee"},
		"reach": map[string]any{
			"channel_id":             "chan-1",
			"source":                 "discord",
			"reachable_external_ids": []string{"kim"},
		},
	})
	if !unreachable.IsError || !strings.Contains(resultText(unreachable), "MEMBERSHIP_INVITEE_UNREACHABLE") {
		t.Fatalf("expected unreachable invite error, got %q", resultText(unreachable))
	}

	invited := callTool[MemberResult](t, session, "member_invite", map[string]any{
		"actor":    map[string]any{"source": "discord", "external_id": "kim"},
		"event_id": created.ID,
		"invitee":  map[string]any{"source": "discord", "external_id": "lee", "display_label": "Lee"},
		"reach": map[string]any{
			"channel_id":             "chan-1",
			"source":                 "discord",
			"reachable_external_ids": []string{"kim", "lee"},
		},
	})
	if invited.Member != "discord:lee" || invited.DisplayLabel != "Lee" {
		t.Fatalf("unexpected invite %+v", invited)
	}

	labeled := callTool[MemberLabelResult](t, session, "member_label_set", map[string]any{
		"actor":       map[string]any{"source": "discord", "external_id": "kim"},
		"source":      "discord",
		"external_id": "lee",
		"label":       "Lee the Bold",
	})
	if labeled.DisplayLabel != "Lee the Bold" {
		t.Fatalf("unexpected label %+v", labeled)
	}

	members := callTool[MembersResult](t, session, "event_members", map[string]any{
		"actor":    map[string]any{"channel_id": "chan-1"},
		"event_id": created.ID,
	})
	if len(members.Members) != 2 || members.Members[0].Member != "discord:kim" || members.Members[1].DisplayLabel != "Lee the Bold" {
		t.Fatalf("channel viewer should see every member, got %+v", members.Members)
	}

	channelEvents := callTool[EventListResult](t, session, "event_list", map[string]any{
		"actor": map[string]any{"channel_id": "chan-1"},
	})
	if len(channelEvents.Events) != 1 {
		t.Fatalf("expected channel to see its event, got %+v", channelEvents.Events)
	}

	bystander := map[string]any{"source": "discord", "external_id": "zed", "channel_id": "chan-1"}
	own := callTool[EventListResult](t, session, "event_list", map[string]any{"actor": bystander})
	if len(own.Events) != 0 {
		t.Fatalf("expected member-scoped list to be empty, got %+v", own.Events)
	}
	scoped := callTool[EventListResult](t, session, "event_list", map[string]any{"actor": bystander, "scope": "channel"})
	if len(scoped.Events) != 1 || scoped.Events[0].Event.ID != created.ID {
		t.Fatalf("expected channel scope to list the channel event, got %+v", scoped.Events)
	}
	scopedMembers := callTool[MembersResult](t, session, "event_members", map[string]any{
		"actor":    bystander,
		"event_id": created.ID,
		"scope":    "channel",
	})
	if len(scopedMembers.Members) != 2 {
		t.Fatalf("expected channel scope to list members, got %+v", scopedMembers.Members)
	}

	promoted := callToolRaw(t, session, "member_change_role", map[string]any{
		"actor":    map[string]any{"source": "discord", "external_id": "kim"},
		"event_id": created.ID,
		"target":   map[string]any{"source": "discord", "external_id": "lee"},
		"role":     "HOST",
	})
	if promoted.IsError {
		t.Fatalf("promote pending member: %s", resultText(promoted))
	}

	declined := callTool[MemberResult](t, session, "invite_decline", map[string]any{
		"actor":    map[string]any{"source": "discord", "external_id": "lee"},
		"event_id": created.ID,
	})
	if declined.Status != "DECLINED" {
		t.Fatalf("expected declined membership, got %+v", declined)
	}
}

func TestEventUpdatePlanRejectsBadTimestamp(t *testing.T) {
	handler := EventUpdatePlanHandler(nil)
	_, _, err := handler(context.Background(), &mcp.CallToolRequest{}, EventUpdatePlanInput{
		Actor:    ActorInput{AccountID: "u1"},
		EventID:  "evt-1",
		DateTime: "next friday",
	})
	if err == nil || !strings.Contains(err.Error(), "date_time must be an RFC3339 timestamp") {
		t.Fatalf("expected timestamp error, got %v", err)
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(time.Time{}); got != "" {
		t.Fatalf("zero time should format empty, got %q", got)
	}
	at := time.Date(2026, 11, 20, 19, 0, 0, 0, time.FixedZone("BRT", -3*60*60))
	if got := formatTime(at); got != "2026-11-20T22:00:00Z" {
		t.Fatalf("expected UTC timestamp, got %q", got)
	}
}
