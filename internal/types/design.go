// Package types defines the shared data model for design validation runs.
package types

import (
	"image"
	"strings"
)

// Rect is an axis-aligned bounding box. Design layers use the design
// coordinate space; live text nodes use device pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the rectangle area in square pixels.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// DesignLayer is a single layer of a Zeplin screen. Layers without text
// content are structural (shapes, images) and are skipped by the style
// matcher.
type DesignLayer struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	TextContent string            `json:"text_content,omitempty"`
	Rect        Rect              `json:"rect"`
	Style       map[string]string `json:"style,omitempty"`
}

// HasText reports whether the layer carries comparable text content.
func (l *DesignLayer) HasText() bool {
	return strings.TrimSpace(l.TextContent) != ""
}

// DesignImage describes the reference raster of a screen.
type DesignImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DesignScreen is the reference design fetched from Zeplin. It is
// immutable once fetched and owned by the run that fetched it.
type DesignScreen struct {
	ProjectID string        `json:"project_id"`
	ScreenID  string        `json:"screen_id"`
	Name      string        `json:"name"`
	Image     DesignImage   `json:"image"`
	Layers    []DesignLayer `json:"layers"`

	// Reference holds the decoded design raster. Not serialized; the
	// PNG bytes are persisted separately as a run artifact.
	Reference image.Image `json:"-"`
}

// TextLayerCount returns the number of layers eligible for style matching.
func (s *DesignScreen) TextLayerCount() int {
	n := 0
	for i := range s.Layers {
		if s.Layers[i].HasText() {
			n++
		}
	}
	return n
}
