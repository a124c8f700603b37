package compare

import "image"

// Options provides configuration for pixel comparison
type Options struct {
	// Threshold is the per-pixel color distance tolerance in [0,1]. Smaller
	// values flag smaller differences.
	Threshold float64

	// IncludeAntiAliasing counts anti-aliased edge pixels as mismatches
	// instead of giving them relaxed tolerance.
	IncludeAntiAliasing bool
}

// DefaultOptions returns the comparison options used by the monitor.
func DefaultOptions() Options {
	return Options{
		Threshold:           0.1,
		IncludeAntiAliasing: false,
	}
}

// DiffResult holds the outcome of comparing two equal-size rasters.
type DiffResult struct {
	// MismatchedPixels is the number of pixels whose perceptual color
	// distance exceeded the tolerance.
	MismatchedPixels int `json:"mismatched_pixels"`

	// Percentage is mismatched / (width*height) * 100 over the common canvas.
	Percentage float64 `json:"percentage"`

	// Width and Height are the canvas dimensions used for the comparison.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Diff highlights mismatched pixels. Nil when the rasters matched
	// perfectly, so perfect matches never cost artifact I/O.
	Diff *image.RGBA `json:"-"`

	// DimensionsDiffered reports whether the inputs had to be padded onto a
	// common canvas before comparing.
	DimensionsDiffered bool `json:"dimensions_differed"`
}
