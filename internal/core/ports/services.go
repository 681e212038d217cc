package ports

import (
	"context"
	"io"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// TrackLoader parses tracks from a track file. The returned channel is
// closed once the document is exhausted or ctx is cancelled.
type TrackLoader interface {
	Load(ctx context.Context, r io.Reader) <-chan domain.TrackResult
}

// PrefetchDispatcher hands every region of a plan to the tile downloader.
type PrefetchDispatcher interface {
	Dispatch(ctx context.Context, plan *domain.PrefetchPlan) error
}

// RequestPublisher publishes a single prefetch request.
type RequestPublisher interface {
	PublishRequest(ctx context.Context, req domain.PrefetchRequest) error
}

// ProgressPublisher broadcasts aggregated plan progress.
type ProgressPublisher interface {
	PublishSummary(ctx context.Context, summary domain.PlanProgress) error
}

// ProgressSubscriber delivers progress reports sent by the tile downloader.
type ProgressSubscriber interface {
	SubscribeProgress(ctx context.Context, handler func(ctx context.Context, p *domain.Progress) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
