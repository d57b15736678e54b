// Package imagediff computes perceptual pixel diffs between a design
// reference image and a live screenshot.
package imagediff

import "fmt"

// InvalidImageError indicates a nil or zero-area input image, usually
// the result of an upstream capture failure. Diffing fails fast rather
// than reporting a meaningless 0% or 100% mismatch.
type InvalidImageError struct {
	Which  string
	Reason string
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("invalid %s image: %s", e.Which, e.Reason)
}
