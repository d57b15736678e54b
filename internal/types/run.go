package types

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the overall outcome of a validation run.
type RunStatus string

const (
	// RunStatusPass means both the pixel diff and every style comparison passed.
	RunStatusPass RunStatus = "PASS"
	// RunStatusFail means the run completed but at least one check failed.
	RunStatusFail RunStatus = "FAIL"
	// RunStatusFailed means the pipeline aborted before comparison
	// (fetch, capture or diff error); no results were produced.
	RunStatusFailed RunStatus = "FAILED"
	// RunStatusRunning marks a run that has been created but not completed.
	RunStatusRunning RunStatus = "RUNNING"
)

// ComparisonStatus is the per-layer outcome of style matching.
type ComparisonStatus string

const (
	ComparisonPass          ComparisonStatus = "PASS"
	ComparisonMismatch      ComparisonStatus = "MISMATCH"
	ComparisonNotFound      ComparisonStatus = "NOT_FOUND"
	ComparisonNotApplicable ComparisonStatus = "NOT_APPLICABLE"
)

// DiffResult is the outcome of the pixel comparison. MismatchRatio is
// always derived from the counters so the two can never drift apart.
type DiffResult struct {
	MismatchedPixels int    `json:"mismatched_pixels"`
	TotalPixels      int    `json:"total_pixels"`
	Pass             bool   `json:"pass"`
	Regions          []Rect `json:"regions,omitempty"`

	// DiffImage highlights mismatched pixels for inspection. Persisted
	// as a PNG artifact, not serialized inline.
	DiffImage image.Image `json:"-"`
}

// MismatchRatio returns mismatched/total in [0,1].
func (d *DiffResult) MismatchRatio() float64 {
	if d.TotalPixels == 0 {
		return 0
	}
	return float64(d.MismatchedPixels) / float64(d.TotalPixels)
}

// AttributeComparison records one expected-vs-actual style attribute check.
type AttributeComparison struct {
	Attribute string `json:"attribute"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
	Match     bool   `json:"match"`
}

// StyleComparison is the result of matching one design layer against the
// live DOM. MatchedNodeIndex is an index into LiveSnapshot.TextNodes, not
// an object reference: the snapshot is discarded after the run.
type StyleComparison struct {
	LayerIndex       int                   `json:"layer_index"`
	LayerName        string                `json:"layer_name"`
	LayerText        string                `json:"layer_text,omitempty"`
	Status           ComparisonStatus      `json:"status"`
	MatchedNodeIndex int                   `json:"matched_node_index"` // -1 when unmatched
	Score            float64               `json:"score"`
	Attributes       []AttributeComparison `json:"attributes,omitempty"`
}

// ValidationRun is the aggregate result of one validation request.
// Immutable after completion; persisted by the report layer.
type ValidationRun struct {
	ID           uuid.UUID         `json:"id"`
	ProjectID    string            `json:"project_id"`
	ScreenID     string            `json:"screen_id"`
	LiveURL      string            `json:"live_url"`
	Status       RunStatus         `json:"status"`
	ErrorKind    string            `json:"error_kind,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Diff         *DiffResult       `json:"diff,omitempty"`
	Comparisons  []StyleComparison `json:"comparisons,omitempty"`

	LayerCount      int `json:"layer_count"`
	DOMNodeCount    int `json:"dom_node_count"`
	JSErrorCount    int `json:"js_error_count"`
	StyleMismatches int `json:"style_mismatches"`
	UnmatchedLayers int `json:"unmatched_layers"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CountComparisonOutcomes tallies MISMATCH and NOT_FOUND comparisons
// into the run's counters.
func (r *ValidationRun) CountComparisonOutcomes() {
	mismatches, unmatched := 0, 0
	for i := range r.Comparisons {
		switch r.Comparisons[i].Status {
		case ComparisonMismatch:
			mismatches++
		case ComparisonNotFound:
			unmatched++
		}
	}
	r.StyleMismatches = mismatches
	r.UnmatchedLayers = unmatched
}
