package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/routetiles/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("routetiles-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "routetiles-test" {
		t.Errorf("expected service name routetiles-test, got %s", cfg.Telemetry.ServiceName)
	}
	if cfg.Dispatch.Mode != config.DispatchDirect {
		t.Errorf("expected direct dispatch, got %s", cfg.Dispatch.Mode)
	}
	if cfg.Planner.MinDistance != 5000 || cfg.Planner.Offset != 1000 {
		t.Errorf("unexpected planner distances: %+v", cfg.Planner)
	}
	if cfg.Planner.EarthRadius != 6378137 {
		t.Errorf("expected WGS 84 radius, got %f", cfg.Planner.EarthRadius)
	}
	if cfg.Planner.MinZoom != 8 || cfg.Planner.MaxZoom != 14 {
		t.Errorf("expected zoom 8-14, got %d-%d", cfg.Planner.MinZoom, cfg.Planner.MaxZoom)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ROUTETILES_PLANNER_MIN_DISTANCE", "2500")
	t.Setenv("ROUTETILES_DISPATCH_MODE", "temporal")

	cfg, err := config.Load("routetiles-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Planner.MinDistance != 2500 {
		t.Errorf("expected min distance 2500, got %f", cfg.Planner.MinDistance)
	}
	if cfg.Dispatch.Mode != config.DispatchTemporal {
		t.Errorf("expected temporal dispatch, got %s", cfg.Dispatch.Mode)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1, RequestTimeout: 1, BodyLimitMB: 1},
		Database: config.DatabaseConfig{Host: "db", Port: 5432, User: "u", DBName: "d"},
		NATS:     config.NATSConfig{URL: "nats://x"},
		Valkey:   config.ValkeyConfig{Addr: "v:6379"},
		Dispatch: config.DispatchConfig{Mode: "carrier-pigeon"},
		Planner:  config.PlannerConfig{MinDistance: 1, Offset: 1, EarthRadius: 1, MinZoom: 10, MaxZoom: 5},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "dispatch.mode", "zoom range"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}
