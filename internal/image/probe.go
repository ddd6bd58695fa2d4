// Package image sanity-checks photo candidates before they are
// surfaced on a venue record.
package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp" // Places media may be served as webp
)

// MinDimensionPx is the smallest acceptable short side for a venue
// photo. Anything smaller is a thumbnail or a broken upload.
const MinDimensionPx = 200

// ProbeResult describes a decoded photo candidate.
type ProbeResult struct {
	Format string
	Width  int
	Height int
}

// Probe decodes just the image header and verifies the photo is a
// known raster format of plausible size. It never decodes pixel data.
func Probe(data []byte) (*ProbeResult, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	if min(cfg.Width, cfg.Height) < MinDimensionPx {
		return nil, fmt.Errorf("image too small: %dx%d", cfg.Width, cfg.Height)
	}
	return &ProbeResult{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
