package mcp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.PlannerAddr != "localhost:8095" {
		t.Fatalf("expected default planner addr, got %q", cfg.PlannerAddr)
	}
	if cfg.HTTPAddr != "localhost:8096" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("RALLYPOINT_PLANNER_ADDR", "env-planner")
	t.Setenv("RALLYPOINT_MCP_HTTP_ADDR", "env-http")
	t.Setenv("RALLYPOINT_MCP_ALLOWED_HOSTS", "a.example,b.example")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	args := []string{"-addr", "flag-planner", "-transport", "http"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.PlannerAddr != "flag-planner" {
		t.Fatalf("expected flag planner addr, got %q", cfg.PlannerAddr)
	}
	if cfg.HTTPAddr != "env-http" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected transport http, got %q", cfg.Transport)
	}
	if len(cfg.AllowedHosts) != 2 || cfg.AllowedHosts[1] != "b.example" {
		t.Fatalf("expected allowed hosts from env, got %v", cfg.AllowedHosts)
	}
}
