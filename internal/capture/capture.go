// Package capture abstracts screenshot acquisition. Browser control and
// render timing live entirely behind the adapter boundary; the monitor only
// ever sees a decoded raster or a capture error.
package capture

import (
	"context"
	"image"

	"chronoview/pkg/models"
)

// Adapter produces the current raster of a monitored target.
type Adapter interface {
	Capture(ctx context.Context, target models.Target) (image.Image, error)
}
