package imagediff

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
)

func TestDiff_IdenticalImagesPass(t *testing.T) {
	img := solidImage(100, 80, white)

	result, err := Diff(img, img, Options{ColorThreshold: 0.1, MismatchRatioMax: 0.02})
	require.NoError(t, err)

	assert.Equal(t, 0, result.MismatchedPixels)
	assert.Equal(t, 100*80, result.TotalPixels)
	assert.True(t, result.Pass)
	assert.Empty(t, result.Regions)
}

func TestDiff_CountsChangedRegion(t *testing.T) {
	reference := solidImage(100, 100, white)
	candidate := solidImage(100, 100, white)
	// A 10x10 black square in the top-left corner.
	draw.Draw(candidate, image.Rect(0, 0, 10, 10), image.NewUniform(black), image.Point{}, draw.Src)

	result, err := Diff(reference, candidate, Options{ColorThreshold: 0.1, MismatchRatioMax: 0.005})
	require.NoError(t, err)

	assert.Equal(t, 100, result.MismatchedPixels)
	assert.False(t, result.Pass)
	assert.InDelta(t, 0.01, result.MismatchRatio(), 1e-9)

	// All mismatches fall into the first 50px grid cell.
	require.Len(t, result.Regions, 1)
	assert.Equal(t, 0.0, result.Regions[0].X)
	assert.Equal(t, 0.0, result.Regions[0].Y)
}

func TestDiff_RatioWithinBudgetPasses(t *testing.T) {
	reference := solidImage(100, 100, white)
	candidate := solidImage(100, 100, white)
	draw.Draw(candidate, image.Rect(0, 0, 10, 10), image.NewUniform(black), image.Point{}, draw.Src)

	result, err := Diff(reference, candidate, Options{ColorThreshold: 0.1, MismatchRatioMax: 0.02})
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestDiff_PadsSmallerImage(t *testing.T) {
	reference := solidImage(100, 100, white)
	candidate := solidImage(100, 60, white)

	result, err := Diff(reference, candidate, Options{ColorThreshold: 0.1, MismatchRatioMax: 1})
	require.NoError(t, err)

	// The canvas takes the larger dimensions; nothing is scaled.
	assert.Equal(t, 100*100, result.TotalPixels)
}

func TestPadToCanvas_PreservesPixels(t *testing.T) {
	src := solidImage(4, 4, black)
	canvas := padToCanvas(src, 8, 8)

	assert.Equal(t, 8, canvas.Bounds().Dx())
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, canvas.RGBAAt(3, 3))
	// Padding stays transparent.
	assert.Equal(t, color.RGBA{0, 0, 0, 0}, canvas.RGBAAt(6, 6))
}

func TestDiff_NilImage(t *testing.T) {
	img := solidImage(10, 10, white)

	_, err := Diff(nil, img, Options{})
	var invalidErr *InvalidImageError
	require.True(t, errors.As(err, &invalidErr))
	assert.Equal(t, "reference", invalidErr.Which)

	_, err = Diff(img, nil, Options{})
	require.True(t, errors.As(err, &invalidErr))
	assert.Equal(t, "candidate", invalidErr.Which)
}

func TestDiff_ZeroAreaImage(t *testing.T) {
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	img := solidImage(10, 10, white)

	_, err := Diff(empty, img, Options{})
	var invalidErr *InvalidImageError
	assert.True(t, errors.As(err, &invalidErr))
}

func TestDiff_ProducesDiffImage(t *testing.T) {
	reference := solidImage(20, 20, white)
	candidate := solidImage(20, 20, white)
	draw.Draw(candidate, image.Rect(5, 5, 8, 8), image.NewUniform(black), image.Point{}, draw.Src)

	result, err := Diff(reference, candidate, Options{ColorThreshold: 0.1})
	require.NoError(t, err)
	require.NotNil(t, result.DiffImage)
	assert.Equal(t, 20, result.DiffImage.Bounds().Dx())
}

func TestMismatchRegions_GridsAcrossBlocks(t *testing.T) {
	// Paint red pixels in two separate 50px cells of a 120x60 diff.
	diff := image.NewRGBA(image.Rect(0, 0, 120, 60))
	red := color.RGBA{255, 0, 0, 255}
	diff.Set(10, 10, red)
	diff.Set(110, 10, red)

	regions := mismatchRegions(diff, 50)
	require.Len(t, regions, 2)
	assert.Equal(t, 0.0, regions[0].X)
	assert.Equal(t, 100.0, regions[1].X)
	// Rightmost cell is clipped to the image edge.
	assert.Equal(t, 20.0, regions[1].Width)
}
