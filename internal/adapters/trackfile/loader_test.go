package trackfile_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/routetiles/internal/adapters/trackfile"
	"github.com/samirrijal/routetiles/internal/core/domain"
)

// recordingLoader remembers what it was asked to read.
type recordingLoader struct {
	name string
	got  string
}

func (l *recordingLoader) Load(ctx context.Context, r io.Reader) <-chan domain.TrackResult {
	data, _ := io.ReadAll(r)
	l.got = string(data)
	out := make(chan domain.TrackResult, 1)
	out <- domain.TrackResult{Track: domain.Track{Name: l.name}}
	close(out)
	return out
}

func fitHeader() string {
	// header size, protocol, profile (2), data size (4), ".FIT", crc (2)
	return "\x0e\x20\x00\x08\x00\x00\x00\x00.FIT\x00\x00"
}

func TestLoader_Routes(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"gpx document", `<?xml version="1.0"?><gpx version="1.1"></gpx>`, "gpx"},
		{"fit file", fitHeader() + "payload", "fit"},
		{"short input", "<gpx", "gpx"},
		{"empty input", "", "gpx"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gpx := &recordingLoader{name: "gpx"}
			fit := &recordingLoader{name: "fit"}

			var results []domain.TrackResult
			for res := range trackfile.NewLoader(gpx, fit).Load(context.Background(), strings.NewReader(tc.input)) {
				results = append(results, res)
			}
			require.Len(t, results, 1)
			assert.Equal(t, tc.want, results[0].Track.Name)

			// The peeked header must still reach the chosen loader.
			chosen := gpx
			if tc.want == "fit" {
				chosen = fit
			}
			assert.Equal(t, tc.input, chosen.got)
		})
	}
}

func TestLoader_WithoutFIT(t *testing.T) {
	gpx := &recordingLoader{name: "gpx"}
	for res := range trackfile.NewLoader(gpx, nil).Load(context.Background(), strings.NewReader(fitHeader())) {
		assert.Equal(t, "gpx", res.Track.Name)
	}
}

func TestIsFIT(t *testing.T) {
	assert.True(t, trackfile.IsFIT([]byte(fitHeader())))
	assert.False(t, trackfile.IsFIT([]byte("\x0c\x10\x00\x08\x00\x00\x00\x00.GPX")))
	assert.False(t, trackfile.IsFIT([]byte("\x20\x10\x00\x08\x00\x00\x00\x00.FIT")))
	assert.False(t, trackfile.IsFIT(nil))
}
