package gpxadapter

import (
	"context"
	"fmt"
	"io"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/samirrijal/routetiles/internal/core/domain"
)

// Loader implements ports.TrackLoader on top of gpxgo.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader { return &Loader{} }

// Load parses r in a goroutine and sends one result per <trk> (segments
// joined) and per <rte>. A document with neither yields a single track built
// from its top-level <wpt> elements. The channel is closed when every result
// was delivered or ctx is done.
func (l *Loader) Load(ctx context.Context, r io.Reader) <-chan domain.TrackResult {
	out := make(chan domain.TrackResult)

	go func() {
		defer close(out)

		doc, err := gpx.Parse(r)
		if err != nil {
			send(ctx, out, domain.TrackResult{Err: fmt.Errorf("%w: parse gpx: %v", domain.ErrInvalidArgument, err)})
			return
		}

		for _, track := range Tracks(doc) {
			res := domain.TrackResult{Track: track}
			if track.Len() == 0 {
				res.Err = fmt.Errorf("track %q: %w", track.Name, domain.ErrEmptyTrack)
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

// Tracks converts a parsed document into domain tracks. Unnamed tracks take
// the document name.
func Tracks(doc *gpx.GPX) []domain.Track {
	var tracks []domain.Track

	for _, trk := range doc.Tracks {
		t := domain.Track{Name: firstNonEmpty(trk.Name, doc.Name)}
		for _, seg := range trk.Segments {
			t.Points = appendPoints(t.Points, seg.Points)
		}
		tracks = append(tracks, t)
	}

	for _, rte := range doc.Routes {
		tracks = append(tracks, domain.Track{
			Name:   firstNonEmpty(rte.Name, doc.Name),
			Points: appendPoints(nil, rte.Points),
		})
	}

	if len(tracks) == 0 {
		tracks = append(tracks, domain.Track{
			Name:   doc.Name,
			Points: appendPoints(nil, doc.Waypoints),
		})
	}
	return tracks
}

func appendPoints(dst []domain.GeoPoint, src []gpx.GPXPoint) []domain.GeoPoint {
	for _, p := range src {
		dst = append(dst, domain.GeoPoint{Lat: p.Latitude, Lon: p.Longitude})
	}
	return dst
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
