package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// Subscriber implements ports.ProgressSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeProgress delivers every report published on tiles.progress.>,
// stamped with the plan ID taken from the subject.
// A report is acked once handler succeeds and redelivered at most three times.
func (s *Subscriber) SubscribeProgress(ctx context.Context, handler func(ctx context.Context, p *domain.Progress) error) error {
	sub, err := s.js.Subscribe(ProgressSubject+">", func(msg *nats.Msg) {
		p, err := decodeReport(msg.Subject, msg.Data)
		if err != nil {
			// Malformed payloads never become valid.
			slog.Warn("discarding malformed progress report", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, p); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("progress-recorder"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// decodeReport parses a report published on tiles.progress.<planID>. The plan
// in the subject wins over any plan_id in the payload.
func decodeReport(subject string, data []byte) (*domain.Progress, error) {
	planID, ok := strings.CutPrefix(subject, ProgressSubject)
	if !ok || planID == "" || strings.Contains(planID, ".") {
		return nil, fmt.Errorf("subject %q does not name a plan", subject)
	}

	var p domain.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.PlanID != "" && p.PlanID != planID {
		slog.Warn("progress report names another plan, using subject", "subject", subject, "payload_plan_id", p.PlanID)
	}
	p.PlanID = planID
	return &p, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
