// Package artifact handles raster persistence: PNG encode/decode plus
// atomic file installation for baselines, test captures and diff images.
package artifact

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	apperrors "chronoview/internal/errors"
)

// Load reads and decodes a PNG raster from disk.
func Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("raster %s not found", path), err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read raster %s", path), err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("failed to decode raster %s", path), err)
	}
	return img, nil
}

// Encode renders a raster as PNG bytes.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.NewInternalError("failed to encode raster", err)
	}
	return buf.Bytes(), nil
}

// Save encodes a raster as PNG and installs it at path via a temp-file
// rename, so readers only ever observe complete artifacts.
func Save(path string, img image.Image) error {
	data, err := Encode(img)
	if err != nil {
		return err
	}
	return Install(path, data)
}

// Install writes raw artifact bytes at path atomically.
func Install(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create directory %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return apperrors.NewStorageError("failed to create temp artifact", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewStorageError("failed to write artifact", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStorageError("failed to flush artifact", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStorageError(fmt.Sprintf("failed to install artifact %s", path), err)
	}
	return nil
}

// Exists reports whether an artifact is still present on storage.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
