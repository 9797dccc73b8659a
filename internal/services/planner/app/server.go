// Package server wires the planner runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rallypoint/rallypoint/internal/platform/config"
	"github.com/rallypoint/rallypoint/internal/platform/timeouts"
	"github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/interceptors"
	grpcmeta "github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/metadata"
	plannerservice "github.com/rallypoint/rallypoint/internal/services/planner/api/grpc/planner"
	"github.com/rallypoint/rallypoint/internal/services/planner/engine"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage/memory"
	plannersqlite "github.com/rallypoint/rallypoint/internal/services/planner/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Storage backends selectable through RALLYPOINT_PLANNER_STORE.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type serverEnv struct {
	DBPath      string `env:"RALLYPOINT_PLANNER_DB_PATH"`
	Store       string `env:"RALLYPOINT_PLANNER_STORE"        envDefault:"sqlite"`
	MetricsAddr string `env:"RALLYPOINT_PLANNER_METRICS_ADDR"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "planner.db")
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	return cfg
}

// Server hosts the planner gRPC API, its metrics endpoint and the storage
// lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      storage.Store
	metrics    *http.Server
}

// New creates a configured planner server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured planner server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	env := loadServerEnv()
	store, err := openPlannerStore(env.Store, env.DBPath)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics()
	metrics.Register(registry)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcmeta.UnaryServerInterceptor(nil),
			interceptors.AccessLogInterceptor(log.Printf),
		),
	)
	apiService := plannerservice.NewService(
		engine.New(store, engine.WithMetrics(metrics)),
		identity.NewResolver(store),
	)
	healthServer := health.NewServer()
	plannerservice.RegisterPlannerServer(grpcServer, apiService)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(plannerservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	server := &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
	}
	if metricsAddr := strings.TrimSpace(env.MetricsAddr); metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		server.metrics = &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: timeouts.ReadHeader,
		}
	}
	return server, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a planner server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	if s.metrics != nil {
		go func() {
			log.Printf("planner metrics listening at %s", s.metrics.Addr)
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("planner metrics server: %v", err)
			}
		}()
	}

	log.Printf("planner server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases planner server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		if err := s.metrics.Shutdown(shutdownCtx); err != nil {
			log.Printf("close planner metrics server: %v", err)
		}
		cancel()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close planner store: %v", err)
		}
	}
}

func openPlannerStore(kind, path string) (storage.Store, error) {
	switch kind {
	case "", StoreSQLite:
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := plannersqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open planner sqlite store: %w", err)
		}
		return store, nil
	case StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("planner store %q is not supported", kind)
	}
}
