package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// Subjects.
const (
	PrefetchSubject = "tiles.prefetch."
	ProgressSubject = "tiles.progress."
	SummarySubject  = "tiles.summary."
)

// Publisher implements ports.RequestPublisher and ports.ProgressPublisher
// using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:       "TILE_PREFETCH",
			Subjects:   []string{PrefetchSubject + ">"},
			Retention:  nats.WorkQueuePolicy,
			MaxAge:     24 * time.Hour,
			Storage:    nats.FileStorage,
			Duplicates: 10 * time.Minute,
		},
		{
			Name:      "TILE_PROGRESS",
			Subjects:  []string{ProgressSubject + ">"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishRequest publishes one region on tiles.prefetch.<planID>. The message
// ID makes a retried publish of the same region a no-op within the stream's
// duplicate window.
func (p *Publisher) PublishRequest(ctx context.Context, req domain.PrefetchRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(PrefetchSubject+req.PlanID, data,
		nats.Context(ctx),
		nats.MsgId(fmt.Sprintf("%s/%d", req.PlanID, req.RegionIndex)),
	)
	return err
}

// PublishSummary broadcasts a plan aggregate on tiles.summary.<planID>.
// Summaries are not persisted; late subscribers ask the API instead.
func (p *Publisher) PublishSummary(ctx context.Context, s domain.PlanProgress) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.conn.Publish(SummarySubject+s.PlanID, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("routetiles"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
