// Package trackfile picks a track decoder by looking at the first bytes of
// an upload.
package trackfile

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/samirrijal/routetiles/internal/core/domain"
	"github.com/samirrijal/routetiles/internal/core/ports"
)

// fitHeaderLen covers the header size byte through the ".FIT" signature.
const fitHeaderLen = 12

// Loader implements ports.TrackLoader by routing FIT files to one loader and
// everything else to the GPX loader.
type Loader struct {
	gpx ports.TrackLoader
	fit ports.TrackLoader
}

// NewLoader creates a new Loader. fit may be nil, in which case every upload
// is treated as GPX.
func NewLoader(gpx, fit ports.TrackLoader) *Loader {
	return &Loader{gpx: gpx, fit: fit}
}

// Load implements ports.TrackLoader.
func (l *Loader) Load(ctx context.Context, r io.Reader) <-chan domain.TrackResult {
	br := bufio.NewReader(r)
	// A short read just means the upload is smaller than a FIT header.
	head, _ := br.Peek(fitHeaderLen)
	if l.fit != nil && IsFIT(head) {
		return l.fit.Load(ctx, br)
	}
	return l.gpx.Load(ctx, br)
}

// IsFIT reports whether head starts with a FIT file header.
func IsFIT(head []byte) bool {
	if len(head) < fitHeaderLen {
		return false
	}
	size := head[0]
	return (size == 12 || size == 14) && bytes.Equal(head[8:12], []byte(".FIT"))
}
