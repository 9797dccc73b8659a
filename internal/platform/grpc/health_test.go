package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type healthFixture struct {
	listener *bufconn.Listener
	health   *health.Server
	server   *gogrpc.Server
}

func startHealthServer(t *testing.T, status grpc_health_v1.HealthCheckResponse_ServingStatus) *healthFixture {
	t.Helper()

	fx := &healthFixture{
		listener: bufconn.Listen(1 << 20),
		health:   health.NewServer(),
		server:   gogrpc.NewServer(),
	}
	grpc_health_v1.RegisterHealthServer(fx.server, fx.health)
	fx.health.SetServingStatus("", status)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fx.server.Serve(fx.listener)
	}()
	t.Cleanup(func() {
		fx.server.Stop()
		<-done
	})
	return fx
}

func (fx *healthFixture) dialOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return fx.listener.DialContext(ctx)
		}),
	}
}

func (fx *healthFixture) conn(t *testing.T) *gogrpc.ClientConn {
	t.Helper()
	conn, err := gogrpc.NewClient("passthrough:///bufnet", fx.dialOptions()...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWaitForHealthServing(t *testing.T) {
	fx := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var lines []string
	logf := func(format string, _ ...any) { lines = append(lines, format) }
	if err := WaitForHealth(ctx, fx.conn(t), "", logf); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	if len(lines) == 0 {
		t.Fatal("expected a progress log line")
	}
}

func TestWaitForHealthTransitionsToServing(t *testing.T) {
	fx := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	go func() {
		time.Sleep(150 * time.Millisecond)
		fx.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := WaitForHealth(ctx, fx.conn(t), "", nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
}

func TestWaitForHealthRespectsContext(t *testing.T) {
	fx := startHealthServer(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := WaitForHealth(ctx, fx.conn(t), "", nil); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestWaitForHealthRejectsNilConn(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}
