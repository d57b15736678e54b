package zeplin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jordan/design-validator/internal/config"
	"github.com/jordan/design-validator/internal/types"
)

// Raw wire shapes of the Zeplin v1 API. Only the fields the validator
// consumes are mapped; everything else is dropped at this boundary.

type rawScreen struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image struct {
		OriginalURL string `json:"original_url"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
	} `json:"image"`
	LatestVersion struct {
		ID string `json:"id"`
	} `json:"latest_version"`
}

type rawColor struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

type rawTextStyle struct {
	FontFamily string   `json:"font_family"`
	FontSize   float64  `json:"font_size"`
	FontWeight float64  `json:"font_weight"`
	LineHeight float64  `json:"line_height"`
	TextAlign  string   `json:"text_align"`
	Color      *rawColor `json:"color"`
}

type rawLayer struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Rect    struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"rect"`
	Texts []struct {
		Style rawTextStyle `json:"style"`
	} `json:"texts"`
}

// parseScreen validates and maps the screen payload.
func parseScreen(projectID, screenID string, payload []byte) (*types.DesignScreen, error) {
	if err := validatePayload("screen", screenSchema, payload); err != nil {
		if _, ok := err.(*ValidationError); ok {
			return nil, &config.ConfigurationError{Message: "unexpected screen metadata shape", Cause: err}
		}
		return nil, err
	}

	var raw rawScreen
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &config.ConfigurationError{Message: "failed to decode screen metadata", Cause: err}
	}

	return &types.DesignScreen{
		ProjectID: projectID,
		ScreenID:  screenID,
		Name:      raw.Name,
		Image: types.DesignImage{
			URL:    raw.Image.OriginalURL,
			Width:  raw.Image.Width,
			Height: raw.Image.Height,
		},
	}, nil
}

// parseLayers validates and maps the version layers payload.
func parseLayers(payload []byte) ([]types.DesignLayer, error) {
	if err := validatePayload("layers", layersSchema, payload); err != nil {
		if _, ok := err.(*ValidationError); ok {
			return nil, &config.ConfigurationError{Message: "unexpected layer metadata shape", Cause: err}
		}
		return nil, err
	}

	var raws []rawLayer
	if err := json.Unmarshal(payload, &raws); err != nil {
		return nil, &config.ConfigurationError{Message: "failed to decode layer metadata", Cause: err}
	}

	layers := make([]types.DesignLayer, 0, len(raws))
	for _, raw := range raws {
		layer := types.DesignLayer{
			Name: raw.Name,
			Type: raw.Type,
			Rect: types.Rect{
				X:      raw.Rect.X,
				Y:      raw.Rect.Y,
				Width:  raw.Rect.Width,
				Height: raw.Rect.Height,
			},
		}
		if raw.Type == "text" && strings.TrimSpace(raw.Content) != "" {
			layer.TextContent = raw.Content
			if len(raw.Texts) > 0 {
				layer.Style = declaredStyle(raw.Texts[0].Style)
			}
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

// declaredStyle maps a Zeplin text style onto CSS attribute names so it
// can be compared directly against computed styles from the live DOM.
func declaredStyle(s rawTextStyle) map[string]string {
	style := make(map[string]string)
	if s.FontFamily != "" {
		style["font-family"] = s.FontFamily
	}
	if s.FontSize > 0 {
		style["font-size"] = formatPx(s.FontSize)
	}
	if s.FontWeight > 0 {
		style["font-weight"] = fmt.Sprintf("%d", int(s.FontWeight))
	}
	if s.LineHeight > 0 {
		style["line-height"] = formatPx(s.LineHeight)
	}
	if s.TextAlign != "" {
		style["text-align"] = s.TextAlign
	}
	if s.Color != nil {
		style["color"] = fmt.Sprintf("rgb(%d, %d, %d)", s.Color.R, s.Color.G, s.Color.B)
	}
	if len(style) == 0 {
		return nil
	}
	return style
}

// formatPx renders a pixel value the way computed styles do: integral
// values without a decimal point, fractional values with up to two.
func formatPx(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%dpx", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".") + "px"
}
