package zeplin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayers_TextLayerStyle(t *testing.T) {
	payload := []byte(`[
	  {
	    "type": "text",
	    "name": "Body",
	    "content": "Hello",
	    "rect": {"x": 10.5, "y": 20, "width": 100, "height": 16},
	    "texts": [{"style": {"font_family": "Inter", "font_size": 16.5, "font_weight": 400, "line_height": 24, "text_align": "left", "color": {"r": 0, "g": 0, "b": 0, "a": 1}}}]
	  }
	]`)

	layers, err := parseLayers(payload)
	require.NoError(t, err)
	require.Len(t, layers, 1)

	layer := layers[0]
	assert.Equal(t, 10.5, layer.Rect.X)
	assert.Equal(t, "16.5px", layer.Style["font-size"])
	assert.Equal(t, "400", layer.Style["font-weight"])
	assert.Equal(t, "24px", layer.Style["line-height"])
	assert.Equal(t, "left", layer.Style["text-align"])
	assert.Equal(t, "rgb(0, 0, 0)", layer.Style["color"])
}

func TestParseLayers_EmptyContentIsNotText(t *testing.T) {
	payload := []byte(`[{"type": "text", "name": "Spacer", "content": "  "}]`)

	layers, err := parseLayers(payload)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.False(t, layers[0].HasText())
	assert.Nil(t, layers[0].Style)
}

func TestParseLayers_RejectsWrongShape(t *testing.T) {
	_, err := parseLayers([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestFormatPx(t *testing.T) {
	assert.Equal(t, "16px", formatPx(16))
	assert.Equal(t, "16.5px", formatPx(16.5))
	assert.Equal(t, "16.67px", formatPx(16.666))
}

func TestValidatePayload_FieldErrors(t *testing.T) {
	err := validatePayload("screen", screenSchema, []byte(`{"name": "x"}`))
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "screen", validationErr.Payload)
	assert.NotEmpty(t, validationErr.Errors)
}
