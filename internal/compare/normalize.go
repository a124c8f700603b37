package compare

import (
	"image"
	"image/color"
	"image/draw"
)

// canvasFill is the sentinel color for padded area. Opaque white keeps padded
// regions visually distinct in diff rasters without registering as content.
var canvasFill = color.RGBA{255, 255, 255, 255}

// Normalize aligns two rasters of possibly different dimensions onto a common
// (max width, max height) canvas. Each original occupies the top-left
// sub-rectangle unchanged; newly introduced area is filled with opaque white.
// Only padding is performed, never cropping or scaling, so no real content is
// silently discarded. The returned flag reports whether the input dimensions
// differed.
func Normalize(a, b image.Image) (*image.RGBA, *image.RGBA, bool) {
	aBounds := a.Bounds()
	bBounds := b.Bounds()

	width := aBounds.Dx()
	if bBounds.Dx() > width {
		width = bBounds.Dx()
	}
	height := aBounds.Dy()
	if bBounds.Dy() > height {
		height = bBounds.Dy()
	}

	sizeMismatch := aBounds.Dx() != bBounds.Dx() || aBounds.Dy() != bBounds.Dy()

	return padToCanvas(a, width, height), padToCanvas(b, width, height), sizeMismatch
}

// padToCanvas copies img into the top-left corner of a width x height canvas.
// An image that already fills the canvas is passed through without copying.
func padToCanvas(img image.Image, width, height int) *image.RGBA {
	srcBounds := img.Bounds()
	if srcBounds.Dx() == width && srcBounds.Dy() == height {
		return toRGBA(img)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{canvasFill}, image.Point{}, draw.Src)

	dstRect := image.Rect(0, 0, srcBounds.Dx(), srcBounds.Dy())
	draw.Draw(canvas, dstRect, img, srcBounds.Min, draw.Src)

	return canvas
}

// toRGBA returns img unchanged when it is already in the RGBA layout the
// differ operates on, otherwise copies it into one.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}
