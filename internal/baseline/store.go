// Package baseline owns the single current reference raster per monitored
// target. Baselines are never created implicitly: establishing or replacing
// one is an explicit operator action, and replacement archives the prior
// image before installing the new one.
package baseline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"chronoview/internal/artifact"
	apperrors "chronoview/internal/errors"
	"chronoview/internal/logger"
	"chronoview/internal/storage"
	"chronoview/pkg/models"
)

// archiveTimeLayout names archived baselines by their own last-modified
// timestamp, e.g. grafana__desktop.20240131T120000Z.png.
const archiveTimeLayout = "20060102T150405Z"

// Image is the current reference raster for one target.
type Image struct {
	Raster  image.Image
	ModTime time.Time
	Path    string
	Width   int
	Height  int
}

// Store manages baseline persistence under a single directory.
type Store struct {
	dir      string
	archiver storage.ArtifactArchiver // optional
}

// NewStore creates a store rooted at dir. The archiver may be nil; when set,
// superseded baselines are additionally uploaded off-host.
func NewStore(dir string, archiver storage.ArtifactArchiver) *Store {
	return &Store{dir: dir, archiver: archiver}
}

// Current returns the current baseline for key. A missing baseline is a
// BaselineMissing error: comparison runs must never create one silently.
func (s *Store) Current(key models.TargetKey) (*Image, error) {
	path := s.path(key)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewBaselineMissingError(
				fmt.Sprintf("no baseline for %s; establish one explicitly before comparing", key), err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to stat baseline %s", path), err)
	}

	img, err := artifact.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &Image{
		Raster:  img,
		ModTime: info.ModTime(),
		Path:    path,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}, nil
}

// Update installs newRaster as the current baseline for key. Any existing
// current image is first archived under a name embedding its own
// modification timestamp. Archive-then-install briefly leaves no current
// baseline on disk; runs against one target are assumed sequential, so a
// comparison never observes the gap.
func (s *Store) Update(ctx context.Context, key models.TargetKey, newRaster image.Image) (*Image, error) {
	path := s.path(key)

	if info, err := os.Stat(path); err == nil {
		if err := s.archive(ctx, key, path, info.ModTime()); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to stat baseline %s", path), err)
	}

	if err := artifact.Save(path, newRaster); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to stat installed baseline", err)
	}

	bounds := newRaster.Bounds()
	logger.WithFields(logrus.Fields{
		"component": key.Component,
		"viewport":  key.Viewport,
		"path":      path,
	}).Info("Baseline updated")

	return &Image{
		Raster:  newRaster,
		ModTime: info.ModTime(),
		Path:    path,
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}, nil
}

// archive renames the prior current image using its own modification
// timestamp and, when configured, uploads a copy off-host. Archives are
// retained indefinitely and never consulted by comparisons.
func (s *Store) archive(ctx context.Context, key models.TargetKey, path string, modTime time.Time) error {
	archiveName := fmt.Sprintf("%s.%s.png", key, modTime.UTC().Format(archiveTimeLayout))
	archivePath := filepath.Join(s.dir, archiveName)

	if s.archiver != nil {
		if data, err := os.ReadFile(path); err == nil {
			if err := s.archiver.Archive(ctx, archiveName, data); err != nil {
				// Off-host archival is best-effort; the local archive below
				// remains authoritative.
				logger.WithError(err).WithField("artifact", archiveName).
					Warn("Off-host baseline archival failed")
			}
		}
	}

	if err := os.Rename(path, archivePath); err != nil {
		return apperrors.NewStorageError(
			fmt.Sprintf("failed to archive prior baseline for %s", key), err)
	}

	logger.WithFields(logrus.Fields{
		"component": key.Component,
		"viewport":  key.Viewport,
		"archive":   archivePath,
	}).Info("Prior baseline archived")
	return nil
}

// path returns the current-baseline file path for a target key.
func (s *Store) path(key models.TargetKey) string {
	return filepath.Join(s.dir, key.String()+".png")
}
