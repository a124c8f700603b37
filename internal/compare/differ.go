package compare

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"
)

// maxYIQDelta is the largest possible perceptual distance between two pixels
// under the luminance-weighted YIQ metric.
const maxYIQDelta = 35215.0

// parallelPixelThreshold is the canvas size below which the sequential path
// is cheaper than spawning row-strip workers.
const parallelPixelThreshold = 100000

var (
	mismatchColor  = [3]uint8{255, 0, 0}
	antialiasColor = [3]uint8{255, 255, 0}
)

// Compare pads two rasters onto a common canvas and diffs them. This is the
// entry point used for both the primary (baseline) and secondary (history)
// comparison passes.
func Compare(a, b image.Image, opts Options) (*DiffResult, error) {
	na, nb, sizeMismatch := Normalize(a, b)
	result, err := Diff(na, nb, opts)
	if err != nil {
		return nil, err
	}
	result.DimensionsDiffered = sizeMismatch
	return result, nil
}

// Diff computes the per-pixel mismatch between two equal-size rasters. A
// pixel is mismatched when its perceptual color distance exceeds the
// tolerance derived from opts.Threshold; pixels on anti-aliased edges are
// given relaxed tolerance unless opts.IncludeAntiAliasing is set. The diff
// raster is attached only when at least one pixel mismatched.
func Diff(a, b *image.RGBA, opts Options) (*DiffResult, error) {
	aSize, bSize := a.Bounds().Size(), b.Bounds().Size()
	if aSize != bSize {
		return nil, fmt.Errorf("raster dimensions differ: %dx%d vs %dx%d (normalize first)",
			aSize.X, aSize.Y, bSize.X, bSize.Y)
	}

	width, height := aSize.X, aSize.Y
	result := &DiffResult{Width: width, Height: height}
	if width == 0 || height == 0 {
		return result, nil
	}

	maxDelta := maxYIQDelta * opts.Threshold * opts.Threshold
	diff := image.NewRGBA(image.Rect(0, 0, width, height))

	// Process in horizontal strips for large canvases; the inputs are
	// read-only and each strip writes disjoint diff rows.
	if width*height >= parallelPixelThreshold {
		result.MismatchedPixels = diffParallel(a, b, diff, maxDelta, opts.IncludeAntiAliasing)
	} else {
		result.MismatchedPixels = diffRows(a, b, diff, 0, height, maxDelta, opts.IncludeAntiAliasing)
	}

	result.Percentage = float64(result.MismatchedPixels) / float64(width*height) * 100
	if result.MismatchedPixels > 0 {
		result.Diff = diff
	}
	return result, nil
}

// diffParallel splits the canvas into one row strip per CPU and aggregates
// the per-strip mismatch counts.
func diffParallel(a, b, diff *image.RGBA, maxDelta float64, includeAA bool) int {
	height := a.Bounds().Dy()

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers // ceil division

	results := make(chan int, numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > height {
			endY = height
		}
		if startY >= endY {
			break
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			results <- diffRows(a, b, diff, startY, endY, maxDelta, includeAA)
		}(startY, endY)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	mismatched := 0
	for count := range results {
		mismatched += count
	}
	return mismatched
}

func diffRows(a, b, diff *image.RGBA, startY, endY int, maxDelta float64, includeAA bool) int {
	width := a.Bounds().Dx()
	mismatched := 0

	for y := startY; y < endY; y++ {
		for x := 0; x < width; x++ {
			delta := colorDelta(a, b, x, y, x, y, false)
			if math.Abs(delta) <= maxDelta {
				drawGrayPixel(a, x, y, diff)
				continue
			}

			// Pixels adjacent to color transitions get relaxed tolerance to
			// absorb sub-pixel rendering jitter on anti-aliased edges.
			if !includeAA && (antialiased(a, x, y, b) || antialiased(b, x, y, a)) {
				drawPixel(diff, x, y, antialiasColor)
				continue
			}

			drawPixel(diff, x, y, mismatchColor)
			mismatched++
		}
	}
	return mismatched
}

// colorDelta computes the perceptual distance between a pixel of img1 and a
// pixel of img2. The sign encodes whether the img1 pixel is lighter; when
// yOnly is set only the brightness difference is returned.
func colorDelta(img1, img2 *image.RGBA, x1, y1, x2, y2 int, yOnly bool) float64 {
	r1, g1, b1, a1 := pixelAt(img1, x1, y1)
	r2, g2, b2, a2 := pixelAt(img2, x2, y2)

	if r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2 {
		return 0
	}

	if a1 < 255 {
		alpha := a1 / 255
		r1, g1, b1 = blend(r1, alpha), blend(g1, alpha), blend(b1, alpha)
	}
	if a2 < 255 {
		alpha := a2 / 255
		r2, g2, b2 = blend(r2, alpha), blend(g2, alpha), blend(b2, alpha)
	}

	y1v, y2v := rgb2y(r1, g1, b1), rgb2y(r2, g2, b2)
	y := y1v - y2v
	if yOnly {
		return y
	}

	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)

	delta := 0.5053*y*y + 0.299*i*i + 0.1957*q*q
	if y1v > y2v {
		delta = -delta
	}
	return delta
}

// antialiased reports whether the pixel at (x1,y1) sits on an anti-aliased
// edge: its 3x3 neighborhood must contain both a darker and a lighter
// sibling, and the extreme siblings must belong to multi-pixel runs in both
// rasters.
func antialiased(img *image.RGBA, x1, y1 int, other *image.RGBA) bool {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	x0, y0 := maxInt(x1-1, 0), maxInt(y1-1, 0)
	x2, y2 := minInt(x1+1, width-1), minInt(y1+1, height-1)

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	var minDelta, maxDelta float64
	var minX, minY, maxX, maxY int

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}
			delta := colorDelta(img, img, x1, y1, x, y, true)
			switch {
			case delta == 0:
				zeroes++
				// More than two equal siblings means a flat area, not an edge.
				if zeroes > 2 {
					return false
				}
			case delta < minDelta:
				minDelta, minX, minY = delta, x, y
			case delta > maxDelta:
				maxDelta, maxX, maxY = delta, x, y
			}
		}
	}

	// No darker or no lighter sibling: not anti-aliasing.
	if minDelta == 0 || maxDelta == 0 {
		return false
	}

	return (hasManySiblings(img, minX, minY) && hasManySiblings(other, minX, minY)) ||
		(hasManySiblings(img, maxX, maxY) && hasManySiblings(other, maxX, maxY))
}

// hasManySiblings reports whether the pixel at (x1,y1) has three or more
// identically colored neighbors.
func hasManySiblings(img *image.RGBA, x1, y1 int) bool {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	x0, y0 := maxInt(x1-1, 0), maxInt(y1-1, 0)
	x2, y2 := minInt(x1+1, width-1), minInt(y1+1, height-1)

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	r1, g1, b1, a1 := pixelAt(img, x1, y1)
	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}
			r2, g2, b2, a2 := pixelAt(img, x, y)
			if r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2 {
				zeroes++
				if zeroes > 2 {
					return true
				}
			}
		}
	}
	return false
}

func pixelAt(img *image.RGBA, x, y int) (r, g, b, a float64) {
	pos := img.PixOffset(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)
	return float64(img.Pix[pos]), float64(img.Pix[pos+1]), float64(img.Pix[pos+2]), float64(img.Pix[pos+3])
}

func drawPixel(img *image.RGBA, x, y int, c [3]uint8) {
	pos := img.PixOffset(x, y)
	img.Pix[pos] = c[0]
	img.Pix[pos+1] = c[1]
	img.Pix[pos+2] = c[2]
	img.Pix[pos+3] = 255
}

// drawGrayPixel renders a faded grayscale copy of the source pixel so the
// diff raster keeps enough context to locate the highlighted regions.
func drawGrayPixel(src *image.RGBA, x, y int, out *image.RGBA) {
	r, g, b, a := pixelAt(src, x, y)
	val := uint8(blend(rgb2y(r, g, b), a/255*0.1))
	drawPixel(out, x, y, [3]uint8{val, val, val})
}

// blend composites a channel value onto a white background.
func blend(c, alpha float64) float64 {
	return 255 + (c-255)*alpha
}

func rgb2y(r, g, b float64) float64 {
	return r*0.29889531 + g*0.58662247 + b*0.11448223
}

func rgb2i(r, g, b float64) float64 {
	return r*0.59597799 - g*0.27417610 - b*0.32180189
}

func rgb2q(r, g, b float64) float64 {
	return r*0.21147017 - g*0.52261711 + b*0.31114694
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
