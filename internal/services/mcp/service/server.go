package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rallypoint/rallypoint/internal/platform/discovery"
	platformgrpc "github.com/rallypoint/rallypoint/internal/platform/grpc"
	"github.com/rallypoint/rallypoint/internal/platform/timeouts"
	"github.com/rallypoint/rallypoint/internal/services/mcp/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/planner"
	"google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	serverName    = "rallypoint-mcp"
	serverVersion = "0.1.0"

	healthInterval = 30 * time.Second
)

// Transport names an MCP transport.
type Transport string

const (
	// TransportStdio serves MCP over stdin/stdout.
	TransportStdio Transport = "stdio"
	// TransportHTTP serves MCP over streamable HTTP.
	TransportHTTP Transport = "http"
)

// Config configures the MCP server.
type Config struct {
	// PlannerAddr is the planner gRPC address; empty uses the in-network default.
	PlannerAddr string
	// Transport selects stdio or http; empty means stdio.
	Transport Transport
	// HTTPAddr is the listen address for the http transport.
	HTTPAddr string
	// AllowedHosts extends the loopback hosts accepted by the http transport.
	AllowedHosts []string
}

type registrationModule struct {
	name     string
	register func(*mcp.Server, domain.PlannerClient)
}

const (
	eventToolsModuleName  = "event-tools"
	memberToolsModuleName = "member-tools"
	planToolsModuleName   = "plan-tools"
)

func registrationModules() []registrationModule {
	return []registrationModule{
		{name: eventToolsModuleName, register: registerEventTools},
		{name: memberToolsModuleName, register: registerMemberTools},
		{name: planToolsModuleName, register: registerPlanTools},
	}
}

func registerEventTools(server *mcp.Server, client domain.PlannerClient) {
	mcp.AddTool(server, domain.EventCreateTool(), domain.EventCreateHandler(client))
	mcp.AddTool(server, domain.EventGetTool(), domain.EventGetHandler(client))
	mcp.AddTool(server, domain.EventListTool(), domain.EventListHandler(client))
	mcp.AddTool(server, domain.EventUpdatePlanTool(), domain.EventUpdatePlanHandler(client))
	mcp.AddTool(server, domain.EventSetStatusTool(), domain.EventSetStatusHandler(client))
	mcp.AddTool(server, domain.EventDeleteTool(), domain.EventDeleteHandler(client))
}

func registerMemberTools(server *mcp.Server, client domain.PlannerClient) {
	mcp.AddTool(server, domain.MemberInviteTool(), domain.MemberInviteHandler(client))
	mcp.AddTool(server, domain.InviteAcceptTool(), domain.InviteAcceptHandler(client))
	mcp.AddTool(server, domain.InviteDeclineTool(), domain.InviteDeclineHandler(client))
	mcp.AddTool(server, domain.EventLeaveTool(), domain.EventLeaveHandler(client))
	mcp.AddTool(server, domain.MemberChangeRoleTool(), domain.MemberChangeRoleHandler(client))
	mcp.AddTool(server, domain.EventMembersTool(), domain.EventMembersHandler(client))
	mcp.AddTool(server, domain.MemberLabelSetTool(), domain.MemberLabelSetHandler(client))
}

func registerPlanTools(server *mcp.Server, client domain.PlannerClient) {
	mcp.AddTool(server, domain.PlanConfirmTool(), domain.PlanConfirmHandler(client))
	mcp.AddTool(server, domain.PlanStatusTool(), domain.PlanStatusHandler(client))
}

// Server exposes the planner as MCP tools.
type Server struct {
	mcpServer *mcp.Server
	conn      *grpc.ClientConn
}

// newServer registers every tool module against a planner connection.
func newServer(conn *grpc.ClientConn) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	client := planner.NewClient(conn)
	for _, module := range registrationModules() {
		module.register(mcpServer, client)
	}
	return &Server{mcpServer: mcpServer, conn: conn}
}

// Run is the service entrypoint for MCP and blocks until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		return runWithTransport(ctx, cfg.PlannerAddr, &mcp.StdioTransport{})
	case TransportHTTP:
		return runWithHTTPTransport(ctx, cfg)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// runWithTransport creates a server and serves it over the provided transport.
func runWithTransport(ctx context.Context, plannerAddr string, transport mcp.Transport) error {
	conn, err := dialPlanner(ctx, plannerAddr)
	if err != nil {
		return err
	}
	return newServer(conn).serveWithTransport(ctx, transport)
}

// serveWithTransport runs the MCP session and closes the planner connection
// on the way out.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	closeErr := s.Close()
	if closeErr != nil {
		if err == nil {
			return fmt.Errorf("close planner connection: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close planner connection: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// Close releases the planner connection held by the server.
func (s *Server) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return err
	}
	s.conn = nil
	return nil
}

// monitorHealth logs planner health on every tick until ctx ends. Failures
// are reported but never stop the HTTP transport.
func (s *Server) monitorHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.checkHealth(ctx); err != nil {
				log.Printf("planner health check failed: %v", err)
			}
		}
	}
}

func (s *Server) checkHealth(ctx context.Context) error {
	if s == nil || s.conn == nil {
		return fmt.Errorf("planner connection is not configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	defer cancel()
	response, err := grpc_health_v1.NewHealthClient(s.conn).Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: planner.ServiceName})
	if err != nil {
		return err
	}
	if response.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("planner status %s", response.GetStatus())
	}
	return nil
}

func dialPlanner(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	addr = discovery.OrDefaultGRPCAddr(addr, discovery.ServicePlanner)
	conn, err := platformgrpc.DialWithHealth(ctx, addr, platformgrpc.DialConfig{
		Timeout: timeouts.GRPCDial,
		Service: planner.ServiceName,
		Logf: func(format string, args ...any) {
			log.Printf("planner %s", fmt.Sprintf(format, args...))
		},
	})
	if err != nil {
		var dialErr *platformgrpc.DialError
		if errors.As(err, &dialErr) && dialErr.Stage == platformgrpc.DialStageConnect {
			return nil, fmt.Errorf("connect to planner at %s: %w", addr, dialErr.Err)
		}
		return nil, err
	}
	return conn, nil
}
