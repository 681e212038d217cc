package http

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Plans    *usecases.PlanService
	Progress *usecases.ProgressService

	// Defaults fill in planner settings a request leaves out.
	Defaults domain.PlanSettings

	// RequestTimeout bounds every /v1 call except health checks. Zero means 15s.
	RequestTimeout time.Duration

	NATS  *nats.Conn
	DB    Pinger
	Cache Pinger
}

// Pinger is a backend the readiness check can ping. *postgres.DB and
// *valkey.Cache satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

func (d *Dependencies) timeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return d.RequestTimeout
}
