package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSSEWriter_SetsHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	_, err := NewSSEWriter(rec)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

func TestSSEWriter_WriteEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	err = sse.WriteEvent("stage", map[string]string{"stage": "capture"})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "event: stage\n")
	assert.Contains(t, body, `data: {"stage":"capture"}`)
	assert.Contains(t, body, "\n\n")
	assert.True(t, rec.Flushed)
}

func TestSSEWriter_WriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	sse.WriteError("boom")
	body := rec.Body.String()
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, `{"error":"boom"}`)
}

func TestSSEWriter_WriteComplete(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	sse.WriteComplete("run-1", "PASS", nil)
	body := rec.Body.String()
	assert.Contains(t, body, "event: complete\n")
	assert.Contains(t, body, `"run_id":"run-1"`)
	assert.Contains(t, body, `"status":"PASS"`)
}
