package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run represents a validation run record
type Run struct {
	ID           uuid.UUID       `json:"id"`
	ProjectID    string          `json:"project_id"`
	ScreenID     string          `json:"screen_id"`
	LiveURL      string          `json:"live_url"`
	Status       string          `json:"status"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Summary      json.RawMessage `json:"summary,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Artifact kind constants for known artifact types
const (
	KindResult      = "result"
	KindComparisons = "comparisons"
	KindDesignMeta  = "design_meta"
	KindDesignImage = "design_image"
	KindLiveImage   = "live_image"
	KindDiffImage   = "diff_image"
	KindDesignHTML  = "design_html"
	KindLiveHTML    = "live_html"
)
