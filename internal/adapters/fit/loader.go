package fitadapter

import (
	"context"
	"fmt"
	"io"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// FIT stores positions as semicircles: 2^31 semicircles per 180 degrees.
const (
	semicircles     = 11930464.7111
	invalidPosition = 0x7FFFFFFF
)

// Loader implements ports.TrackLoader for FIT activity files.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader { return &Loader{} }

// Load decodes r in a goroutine and sends one track per FIT file in the
// stream (chained files each yield their own). Records without a position
// fix are dropped. The track is named after the first session's sport
// profile when the device recorded one.
func (l *Loader) Load(ctx context.Context, r io.Reader) <-chan domain.TrackResult {
	out := make(chan domain.TrackResult)

	go func() {
		defer close(out)

		dec := decoder.New(r)
		for dec.Next() {
			fit, err := dec.Decode()
			if err != nil {
				send(ctx, out, domain.TrackResult{Err: fmt.Errorf("%w: decode fit: %v", domain.ErrInvalidArgument, err)})
				return
			}

			var track domain.Track
			for i := range fit.Messages {
				msg := &fit.Messages[i]
				switch msg.Num {
				case typedef.MesgNumRecord:
					rec := mesgdef.NewRecord(msg)
					if rec.PositionLat == invalidPosition || rec.PositionLong == invalidPosition {
						continue
					}
					track.Points = append(track.Points, domain.GeoPoint{
						Lat: float64(rec.PositionLat) / semicircles,
						Lon: float64(rec.PositionLong) / semicircles,
					})
				case typedef.MesgNumSession:
					if track.Name == "" {
						track.Name = mesgdef.NewSession(msg).SportProfileName
					}
				}
			}

			res := domain.TrackResult{Track: track}
			if track.Len() == 0 {
				res.Err = fmt.Errorf("fit activity %q: %w", track.Name, domain.ErrEmptyTrack)
			}
			if !send(ctx, out, res) {
				return
			}
		}
	}()

	return out
}

func send(ctx context.Context, out chan<- domain.TrackResult, res domain.TrackResult) bool {
	select {
	case out <- res:
		return true
	case <-ctx.Done():
		return false
	}
}
