package capture

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"chronoview/internal/artifact"
	apperrors "chronoview/internal/errors"
	"chronoview/pkg/models"
)

// DirectoryAdapter reads captures dropped into a directory by an external
// screenshot process, one PNG per target key. Used for air-gapped
// deployments where the browser runs on another host.
type DirectoryAdapter struct {
	dir string
}

// NewDirectoryAdapter creates a directory-backed capture adapter.
func NewDirectoryAdapter(dir string) *DirectoryAdapter {
	return &DirectoryAdapter{dir: dir}
}

// Capture loads the most recently dropped raster for the target.
func (d *DirectoryAdapter) Capture(ctx context.Context, target models.Target) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewCaptureError("capture cancelled", err)
	}

	path := filepath.Join(d.dir, target.Key.String()+".png")
	img, err := artifact.Load(path)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeDecode) {
			return nil, err
		}
		return nil, apperrors.NewCaptureError(
			fmt.Sprintf("no capture available for %s", target.Key), err)
	}
	return img, nil
}
