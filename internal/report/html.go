// Package report renders a design screen into a standalone HTML
// document. The output positions every layer absolutely on a canvas
// matching the reference image, so it can be opened side by side with
// the live page when triaging a failed run.
package report

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/jordan/design-validator/internal/types"
)

// GenerateHTML converts screen metadata and layers into an HTML/CSS
// document. Layers render in reverse order so background elements paint
// first.
func GenerateHTML(screen *types.DesignScreen) string {
	if screen == nil || len(screen.Layers) == 0 {
		return "<html><body><h1>No Design Data Found</h1></body></html>"
	}

	width := screen.Image.Width
	if width == 0 {
		width = 1440
	}
	height := screen.Image.Height
	if height == 0 {
		height = 1000
	}

	var css strings.Builder
	css.WriteString("* { box-sizing: border-box; margin: 0; padding: 0; }\n")
	css.WriteString("body { background-color: #f4f4f4; font-family: sans-serif; }\n")
	fmt.Fprintf(&css, "#design-canvas { width: %dpx; height: %dpx; position: relative; margin: 0 auto; overflow: hidden; background-color: #ffffff; box-shadow: 0 0 20px rgba(0,0,0,0.1); }\n", width, height)

	var body strings.Builder
	for idx := len(screen.Layers) - 1; idx >= 0; idx-- {
		layer := screen.Layers[idx]
		id := fmt.Sprintf("layer-%d", len(screen.Layers)-1-idx)

		fmt.Fprintf(&css, "#%s { %s }\n", id, layerCSS(layer))

		content := ""
		if layer.HasText() {
			content = textHTML(layer.TextContent)
		}
		fmt.Fprintf(&body, "    <div id=%q title=%q>%s</div>\n",
			id, template.HTMLEscapeString(layer.Name), content)
	}

	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	doc.WriteString("    <meta charset=\"UTF-8\">\n")
	fmt.Fprintf(&doc, "    <title>Design: %s</title>\n", template.HTMLEscapeString(screen.Name))
	doc.WriteString("    <style>\n")
	doc.WriteString(css.String())
	doc.WriteString("    </style>\n</head>\n<body>\n")
	doc.WriteString("    <div id=\"design-canvas\">\n")
	doc.WriteString(body.String())
	doc.WriteString("    </div>\n</body>\n</html>\n")
	return doc.String()
}

// layerCSS builds the declaration block for one layer. Positioning
// comes from the layer rect; text layers carry their declared style on
// top of that.
func layerCSS(layer types.DesignLayer) string {
	props := []string{
		"position: absolute;",
		fmt.Sprintf("left: %spx;", formatCoord(layer.Rect.X)),
		fmt.Sprintf("top: %spx;", formatCoord(layer.Rect.Y)),
		fmt.Sprintf("width: %spx;", formatCoord(layer.Rect.Width)),
		fmt.Sprintf("height: %spx;", formatCoord(layer.Rect.Height)),
	}

	if layer.HasText() {
		for _, attr := range []string{"font-size", "font-weight", "font-family", "color", "line-height", "text-align", "letter-spacing"} {
			if v, ok := layer.Style[attr]; ok && v != "" {
				props = append(props, fmt.Sprintf("%s: %s;", attr, v))
			}
		}
		if _, ok := layer.Style["line-height"]; !ok {
			props = append(props, "line-height: 1.2;")
		}
	}
	return strings.Join(props, " ")
}

// textHTML escapes the layer text and preserves explicit line breaks.
func textHTML(text string) string {
	escaped := template.HTMLEscapeString(text)
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

func formatCoord(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
