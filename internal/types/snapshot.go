package types

import "image"

// Viewport is the fixed browser viewport used for capture.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// LiveTextNode is a text-bearing leaf element collected from the live
// DOM, with its bounding box and the computed style values relevant to
// design comparison.
type LiveTextNode struct {
	Text     string            `json:"text"`
	Selector string            `json:"selector"`
	Rect     Rect              `json:"rect"`
	Computed map[string]string `json:"computed"`
}

// LiveSnapshot is the rendered state of the target URL for one run.
// It is transient: only derived artifacts (screenshot PNG, comparisons)
// outlive the run.
type LiveSnapshot struct {
	URL          string         `json:"url"`
	Viewport     Viewport       `json:"viewport"`
	TextNodes    []LiveTextNode `json:"text_nodes"`
	DOMNodeCount int            `json:"dom_node_count"`
	JSErrors     []string       `json:"js_errors"`

	// Screenshot is the decoded full-page raster. HTML is the rendered
	// document, kept for DOM statistics. Neither is serialized.
	Screenshot image.Image `json:"-"`
	HTML       string      `json:"-"`
}
