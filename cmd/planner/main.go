package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	fitadapter "github.com/samirrijal/routetiles/internal/adapters/fit"
	gpxadapter "github.com/samirrijal/routetiles/internal/adapters/gpx"
	"github.com/samirrijal/routetiles/internal/adapters/trackfile"
	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/tiling"
	"github.com/samirrijal/routetiles/internal/core/usecases"
	"github.com/samirrijal/routetiles/internal/pkg/config"
	"github.com/samirrijal/routetiles/internal/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "planner:", err)
		os.Exit(1)
	}
}

// run plans every track of each file argument ("-" or no argument reads
// stdin) and writes the plans to stdout as JSON, one document per file. With
// --outline each document is a GeoJSON FeatureCollection of the regions.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load("routetiles-planner")
	if err != nil {
		return err
	}

	fs := pflag.NewFlagSet("planner", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: planner [flags] [track.gpx|track.fit|-]...")
		fs.PrintDefaults()
	}

	var (
		settings domain.PlanSettings
		name     string
		outlines bool
		logLevel string
	)
	fs.Float64Var(&settings.MinDistanceMeters, "min-distance", cfg.Planner.MinDistance, "minimum distance between waypoints, in meters")
	fs.Float64Var(&settings.OffsetMeters, "offset", cfg.Planner.Offset, "distance from a waypoint to the edge of its box, in meters")
	fs.IntVar(&settings.MinZoom, "min-zoom", cfg.Planner.MinZoom, "lowest zoom level to prefetch")
	fs.IntVar(&settings.MaxZoom, "max-zoom", cfg.Planner.MaxZoom, "highest zoom level to prefetch")
	fs.StringVarP(&name, "name", "n", "", "plan name for tracks without one (default: file name)")
	fs.BoolVar(&outlines, "outline", false, "print regions as a GeoJSON FeatureCollection instead of full plans")
	fs.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logging.SetupStderr(logLevel, "text")

	boxes, err := tiling.NewBoxCalculator(cfg.Planner.EarthRadius)
	if err != nil {
		return err
	}
	loader := trackfile.NewLoader(gpxadapter.NewLoader(), fitadapter.NewLoader())
	svc := usecases.NewPlanService(tiling.NewPlanner(boxes), loader, nil, nil, nil)

	files := fs.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	for _, path := range files {
		plans, err := planFile(ctx, svc, path, name, stdin, settings)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		slog.Info("planned", "file", path, "plans", len(plans))

		var out interface{} = plans
		if outlines {
			out = tiling.RegionCollection(plans...)
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

func planFile(
	ctx context.Context,
	svc *usecases.PlanService,
	path, name string,
	stdin io.Reader,
	settings domain.PlanSettings,
) ([]*domain.PrefetchPlan, error) {
	if path == "-" {
		return svc.PreviewFile(ctx, name, stdin, settings)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return svc.PreviewFile(ctx, name, f, settings)
}
