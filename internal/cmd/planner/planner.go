// Package planner parses planner service flags and launches the service.
package planner

import (
	"context"
	"flag"

	entrypoint "github.com/rallypoint/rallypoint/internal/platform/cmd"
	server "github.com/rallypoint/rallypoint/internal/services/planner/app"
)

// Config holds planner command configuration.
type Config struct {
	Port int `env:"RALLYPOINT_PLANNER_PORT" envDefault:"8095"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The planner gRPC server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the planner gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePlanner, func(ctx context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
