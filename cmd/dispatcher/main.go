package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/routetiles/internal/adapters/nats"
	"github.com/samirrijal/routetiles/internal/adapters/postgres"
	"github.com/samirrijal/routetiles/internal/adapters/valkey"
	"github.com/samirrijal/routetiles/internal/pkg/config"
	"github.com/samirrijal/routetiles/internal/pkg/logging"
	"github.com/samirrijal/routetiles/internal/pkg/telemetry"
	"github.com/samirrijal/routetiles/internal/workflows"
)

func main() {
	cfg, err := config.Load("routetiles-dispatcher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Publishing is the whole point of this worker, so NATS is required.
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	activities := &workflows.DispatchActivities{
		Requests: pub,
		Plans:    postgres.NewPlanRepo(db),
	}
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, cached plans will expire on their own", "error", err)
	} else {
		defer cache.Close()
		activities.Cache = cache
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.DispatchWorkflow)
	w.RegisterActivity(activities)

	slog.Info("dispatch worker started", "task_queue", cfg.Temporal.TaskQueue, "namespace", cfg.Temporal.Namespace)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
