package imagediff

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/orisano/pixelmatch"

	"github.com/jordan/design-validator/internal/types"
)

// DefaultRegionBlockSize is the grid cell size, in pixels, used to group
// mismatched pixels into inspectable regions.
const DefaultRegionBlockSize = 50

// Options configures a diff computation.
type Options struct {
	// ColorThreshold is the perceptual color distance above which a
	// pixel pair counts as mismatched (0..1, pixelmatch semantics).
	ColorThreshold float64
	// MismatchRatioMax is the maximum mismatched/total ratio that still
	// passes.
	MismatchRatioMax float64
	// RegionBlockSize overrides the mismatch region grid size.
	RegionBlockSize int
}

// Diff aligns reference and candidate on a common canvas and computes a
// per-pixel perceptual diff. The smaller image is padded, never scaled:
// scaling would introduce interpolation artifacts that defeat
// pixel-exact comparison.
func Diff(reference, candidate image.Image, opts Options) (*types.DiffResult, error) {
	if err := checkImage("reference", reference); err != nil {
		return nil, err
	}
	if err := checkImage("candidate", candidate); err != nil {
		return nil, err
	}

	refBounds := reference.Bounds()
	candBounds := candidate.Bounds()
	width := max(refBounds.Dx(), candBounds.Dx())
	height := max(refBounds.Dy(), candBounds.Dy())

	refCanvas := padToCanvas(reference, width, height)
	candCanvas := padToCanvas(candidate, width, height)

	var diffImg image.Image
	mismatched, err := pixelmatch.MatchPixel(refCanvas, candCanvas,
		pixelmatch.Threshold(opts.ColorThreshold),
		pixelmatch.WriteTo(&diffImg),
	)
	if err != nil {
		return nil, fmt.Errorf("pixel comparison failed: %w", err)
	}

	blockSize := opts.RegionBlockSize
	if blockSize <= 0 {
		blockSize = DefaultRegionBlockSize
	}

	result := &types.DiffResult{
		MismatchedPixels: mismatched,
		TotalPixels:      width * height,
		Regions:          mismatchRegions(diffImg, blockSize),
		DiffImage:        diffImg,
	}
	result.Pass = result.MismatchRatio() <= opts.MismatchRatioMax
	return result, nil
}

func checkImage(which string, img image.Image) error {
	if img == nil {
		return &InvalidImageError{Which: which, Reason: "image is nil"}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return &InvalidImageError{Which: which, Reason: fmt.Sprintf("zero-area bounds %v", b)}
	}
	return nil
}

// padToCanvas draws img onto the top-left corner of a width x height
// RGBA canvas. Existing pixel data is copied verbatim; padding is
// transparent.
func padToCanvas(img image.Image, width, height int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	b := img.Bounds()
	draw.Draw(canvas, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)
	return canvas
}

// mismatchRegions grids the diff image into blockSize cells and returns
// a rectangle for every cell containing at least one highlighted pixel.
// pixelmatch paints mismatches red; matched pixels come out grayscale,
// so a strongly red pixel is unambiguous.
func mismatchRegions(diff image.Image, blockSize int) []types.Rect {
	if diff == nil {
		return nil
	}
	b := diff.Bounds()
	width, height := b.Dx(), b.Dy()

	cols := (width + blockSize - 1) / blockSize
	rows := (height + blockSize - 1) / blockSize
	flagged := make([]bool, cols*rows)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, a := diff.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a > 0 && r>>8 > 200 && g>>8 < 50 && bl>>8 < 50 {
				flagged[(y/blockSize)*cols+x/blockSize] = true
			}
		}
	}

	var regions []types.Rect
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if !flagged[row*cols+col] {
				continue
			}
			bx := col * blockSize
			by := row * blockSize
			regions = append(regions, types.Rect{
				X:      float64(bx),
				Y:      float64(by),
				Width:  float64(min(blockSize, width-bx)),
				Height: float64(min(blockSize, height-by)),
			})
		}
	}
	return regions
}
