package omr

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/omrscan/omr/internal/detection"
)

// Config holds the tunable parameters of a Detector. All fields have a
// working default; construct with DefaultConfig and override what the scan
// resolution demands.
type Config struct {
	// FillThreshold is the fill percentage at or above which a bubble
	// counts as marked. Lower it for light pencil marks.
	FillThreshold float64

	// BubbleAreaRange is the inclusive bounding-box area band, in square
	// pixels, a connected component must fall in to be a bubble candidate.
	// The band tracks scan resolution: 200-8000 suits 150-300 DPI sheets.
	BubbleAreaRange detection.Range

	// AspectRatioRange is the inclusive width/height band for candidates. A
	// circle's bounding box is square, so the band brackets 1.0.
	AspectRatioRange detection.Range

	// RowThreshold is the vertical tolerance, in pixels, for grouping
	// bubbles into the same question row.
	RowThreshold float64

	// BlurRadius is the Gaussian smoothing radius applied before
	// thresholding. Zero disables smoothing.
	BlurRadius float64

	// MaxDimension caps the larger image dimension before analysis; larger
	// scans are downscaled proportionally. Zero disables downscaling. Note
	// that area and row tolerances apply to the downscaled geometry.
	MaxDimension int

	// MinSpeckleArea is the minimum dark-component size, in pixels, kept
	// after thresholding. Smaller blobs are treated as scan speckle.
	MinSpeckleArea int

	// Debug retains per-bubble fill ratios and a rendered overlay in
	// detection results for threshold troubleshooting.
	Debug bool

	// Logger receives per-stage diagnostics at debug level. The zero value
	// is silent; inject a real logger to observe the pipeline.
	Logger zerolog.Logger
}

// DefaultConfig returns the parameter set tuned for pen-marked sheets
// scanned at common resolutions.
func DefaultConfig() Config {
	return Config{
		FillThreshold:    40.0,
		BubbleAreaRange:  detection.Range{Min: 200, Max: 8000},
		AspectRatioRange: detection.Range{Min: 0.7, Max: 1.3},
		RowThreshold:     15.0,
		BlurRadius:       1.4,
		MinSpeckleArea:   16,
		Logger:           zerolog.Nop(),
	}
}

// validate rejects configurations that cannot produce meaningful results.
func (c Config) validate() error {
	if c.FillThreshold < 0 || c.FillThreshold > 100 {
		return fmt.Errorf("fill threshold must be within [0, 100], got %v", c.FillThreshold)
	}
	if c.BubbleAreaRange.Min < 0 || c.BubbleAreaRange.Max < c.BubbleAreaRange.Min {
		return fmt.Errorf("bubble area range [%v, %v] is not a valid interval",
			c.BubbleAreaRange.Min, c.BubbleAreaRange.Max)
	}
	if c.AspectRatioRange.Min <= 0 || c.AspectRatioRange.Max < c.AspectRatioRange.Min {
		return fmt.Errorf("aspect ratio range [%v, %v] is not a valid interval",
			c.AspectRatioRange.Min, c.AspectRatioRange.Max)
	}
	if c.RowThreshold < 0 {
		return fmt.Errorf("row threshold must not be negative, got %v", c.RowThreshold)
	}
	if c.BlurRadius < 0 {
		return fmt.Errorf("blur radius must not be negative, got %v", c.BlurRadius)
	}
	if c.MaxDimension < 0 {
		return fmt.Errorf("max dimension must not be negative, got %d", c.MaxDimension)
	}
	if c.MinSpeckleArea < 0 {
		return fmt.Errorf("min speckle area must not be negative, got %d", c.MinSpeckleArea)
	}
	return nil
}
