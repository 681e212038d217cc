package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	fitadapter "github.com/samirrijal/routetiles/internal/adapters/fit"
	gpxadapter "github.com/samirrijal/routetiles/internal/adapters/gpx"
	"github.com/samirrijal/routetiles/internal/adapters/http"
	natsadapter "github.com/samirrijal/routetiles/internal/adapters/nats"
	"github.com/samirrijal/routetiles/internal/adapters/postgres"
	"github.com/samirrijal/routetiles/internal/adapters/trackfile"
	"github.com/samirrijal/routetiles/internal/adapters/valkey"
	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/ports"
	"github.com/samirrijal/routetiles/internal/core/tiling"
	"github.com/samirrijal/routetiles/internal/core/usecases"
	"github.com/samirrijal/routetiles/internal/pkg/config"
	"github.com/samirrijal/routetiles/internal/pkg/logging"
	"github.com/samirrijal/routetiles/internal/pkg/telemetry"
	"github.com/samirrijal/routetiles/internal/workflows"
)

func main() {
	cfg, err := config.Load("routetiles-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	planRepo := postgres.NewPlanRepo(db)
	progressRepo := postgres.NewProgressRepo(db)

	// Cache. Interfaces are only assigned when the adapter exists, so a
	// missing cache is a nil interface rather than a nil pointer.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var (
		requests  ports.RequestPublisher
		summaries ports.ProgressPublisher
	)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, plans will not be dispatched", "error", err)
	} else {
		defer pub.Close()
		requests, summaries = pub, pub
	}

	// Dispatcher
	var dispatcher ports.PrefetchDispatcher
	switch cfg.Dispatch.Mode {
	case config.DispatchTemporal:
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    temporallog.NewStructuredLogger(slog.Default()),
		})
		if err != nil {
			slog.Warn("temporal unavailable, plans will not be dispatched", "error", err)
		} else {
			defer tc.Close()
			dispatcher = workflows.NewTemporalDispatcher(tc, cfg.Temporal.TaskQueue)
		}
	default:
		if requests != nil {
			dispatcher = usecases.NewDirectDispatcher(requests, planRepo)
		}
	}
	slog.Info("dispatch configured", "mode", cfg.Dispatch.Mode, "enabled", dispatcher != nil)

	// Planner
	boxes, err := tiling.NewBoxCalculator(cfg.Planner.EarthRadius)
	if err != nil {
		log.Fatalf("planner: %v", err)
	}
	planner := tiling.NewPlanner(boxes)

	// Use cases
	loader := trackfile.NewLoader(gpxadapter.NewLoader(), fitadapter.NewLoader())
	planSvc := usecases.NewPlanService(planner, loader, planRepo, cacheSvc, dispatcher)
	progressSvc := usecases.NewProgressService(planSvc, progressRepo, summaries)

	// Progress reports from the tile downloader
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("progress subscriber unavailable", "error", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribeProgress(ctx, progressSvc.HandleReport); err != nil {
			slog.Error("subscribe progress", "error", err)
		}
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	deps := &http.Dependencies{
		Plans:    planSvc,
		Progress: progressSvc,
		Defaults: domain.PlanSettings{
			MinDistanceMeters: cfg.Planner.MinDistance,
			OffsetMeters:      cfg.Planner.Offset,
			MinZoom:           cfg.Planner.MinZoom,
			MaxZoom:           cfg.Planner.MaxZoom,
		},
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		NATS:           natsConn,
		DB:             db,
	}
	if cache != nil {
		deps.Cache = cache
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		AppName:      "RouteTiles API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "ETag, Link, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
