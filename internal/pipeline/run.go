// Package pipeline orchestrates a full validation run: design fetch and
// page capture in parallel, then pixel diff and style comparison.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jordan/design-validator/internal/capture"
	"github.com/jordan/design-validator/internal/config"
	"github.com/jordan/design-validator/internal/db"
	"github.com/jordan/design-validator/internal/imagediff"
	"github.com/jordan/design-validator/internal/monitoring"
	"github.com/jordan/design-validator/internal/report"
	"github.com/jordan/design-validator/internal/stylecheck"
	"github.com/jordan/design-validator/internal/types"
	"github.com/jordan/design-validator/internal/zeplin"
)

// Stage names reported in progress events and metrics.
const (
	StageFetchDesign = "fetch_design"
	StageCapture     = "capture"
	StageDiff        = "diff"
	StageStylecheck  = "stylecheck"
)

// ProgressEvent represents a progress update during a validation run
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when run progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds the parameters of a single validation run
type RunOptions struct {
	// RunID preassigns the run identifier. Zero means generate one.
	RunID      uuid.UUID
	ProjectID  string
	ScreenID   string
	LiveURL    string
	Config     config.Config
	OnProgress ProgressCallback
}

// DesignFetcher retrieves design metadata and the reference raster.
// Satisfied by zeplin.Client; tests substitute stubs.
type DesignFetcher interface {
	FetchScreen(ctx context.Context, projectID, screenID string) (*types.DesignScreen, error)
	FetchReferenceImage(ctx context.Context, screen *types.DesignScreen) (image.Image, []byte, error)
}

// CaptureFunc renders the live page. Defaults to capture.Capture.
type CaptureFunc func(ctx context.Context, url string, opts capture.Options) (*types.LiveSnapshot, error)

// Runner bundles the services a validation run depends on. DB and
// Metrics are optional; a nil value disables persistence or metrics.
type Runner struct {
	Fetcher DesignFetcher
	Capture CaptureFunc
	DB      *db.DB
	Metrics *monitoring.Metrics
}

// NewRunner creates a Runner backed by the real capture implementation.
func NewRunner(fetcher DesignFetcher, database *db.DB, metrics *monitoring.Metrics) *Runner {
	return &Runner{
		Fetcher: fetcher,
		Capture: capture.Capture,
		DB:      database,
		Metrics: metrics,
	}
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *RunOptions, runID uuid.UUID, stage, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Stage:   stage,
			Message: message,
			RunID:   runID.String(),
			Content: content,
		})
	}
}

// Run executes a full validation. It always returns a ValidationRun:
// pipeline failures (fetch, capture, diff) produce a FAILED run with the
// error recorded, never a bare error. The overall timeout from the
// config bounds the whole run.
func (r *Runner) Run(ctx context.Context, opts RunOptions) *types.ValidationRun {
	cfg := opts.Config.MergeWithDefaults()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.OverallTimeoutMS)*time.Millisecond)
	defer cancel()

	runID := opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	run := &types.ValidationRun{
		ID:        runID,
		ProjectID: opts.ProjectID,
		ScreenID:  opts.ScreenID,
		LiveURL:   opts.LiveURL,
		Status:    types.RunStatusRunning,
		CreatedAt: start,
	}

	// Persist the run row up front so it is listable while in flight.
	if r.DB != nil {
		if err := r.DB.CreateRun(ctx, run.ID, opts.ProjectID, opts.ScreenID, opts.LiveURL); err != nil {
			log.Printf("[pipeline] failed to create run record: %v", err)
		}
	}

	if err := r.runStages(ctx, &opts, run, cfg); err != nil {
		run.Status = types.RunStatusFailed
		run.ErrorKind = errorKind(err)
		run.ErrorMessage = err.Error()
		if r.Metrics != nil {
			r.Metrics.IncErrorsTotal(run.ErrorKind)
		}
	}

	now := time.Now()
	run.CompletedAt = &now

	r.persist(run)
	if r.Metrics != nil {
		r.Metrics.ObserveRun(string(run.Status), now.Sub(start).Seconds())
	}
	emitProgress(&opts, run.ID, "complete", fmt.Sprintf("Run finished with status %s", run.Status), nil)
	return run
}

// runStages performs the fetch/capture/diff/compare sequence, filling
// run in place. An error aborts the remaining stages.
func (r *Runner) runStages(ctx context.Context, opts *RunOptions, run *types.ValidationRun, cfg config.Config) error {
	// Design fetch and page capture are independent; run them in
	// parallel and fail fast on the first error.
	g, gCtx := errgroup.WithContext(ctx)

	var (
		mu       sync.Mutex
		screen   *types.DesignScreen
		refRaw   []byte
		snapshot *types.LiveSnapshot
	)

	g.Go(func() error {
		stageStart := time.Now()
		emitProgress(opts, run.ID, StageFetchDesign, fmt.Sprintf("Fetching design screen %s/%s", opts.ProjectID, opts.ScreenID), nil)

		s, err := r.Fetcher.FetchScreen(gCtx, opts.ProjectID, opts.ScreenID)
		if err != nil {
			return err
		}
		img, raw, err := r.Fetcher.FetchReferenceImage(gCtx, s)
		if err != nil {
			return err
		}
		s.Reference = img

		mu.Lock()
		screen, refRaw = s, raw
		mu.Unlock()
		r.observeStage(StageFetchDesign, stageStart)
		return nil
	})

	g.Go(func() error {
		stageStart := time.Now()
		emitProgress(opts, run.ID, StageCapture, fmt.Sprintf("Capturing %s", opts.LiveURL), nil)

		snap, err := r.Capture(gCtx, opts.LiveURL, capture.Options{
			Viewport:          cfg.Viewport(),
			NavigationTimeout: time.Duration(cfg.NavigationTimeoutMS) * time.Millisecond,
			SettleDelay:       time.Duration(cfg.SettleDelayMS) * time.Millisecond,
		})
		if err != nil {
			return err
		}

		mu.Lock()
		snapshot = snap
		mu.Unlock()
		r.observeStage(StageCapture, stageStart)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	run.LayerCount = len(screen.Layers)
	run.DOMNodeCount = snapshot.DOMNodeCount
	run.JSErrorCount = len(snapshot.JSErrors)

	stageStart := time.Now()
	emitProgress(opts, run.ID, StageDiff, "Computing pixel diff", nil)
	diff, err := imagediff.Diff(screen.Reference, snapshot.Screenshot, imagediff.Options{
		ColorThreshold:   cfg.ColorThreshold,
		MismatchRatioMax: cfg.MismatchRatioMax,
	})
	if err != nil {
		return err
	}
	run.Diff = diff
	r.observeStage(StageDiff, stageStart)
	emitProgress(opts, run.ID, StageDiff,
		fmt.Sprintf("Diff: %d/%d pixels mismatched", diff.MismatchedPixels, diff.TotalPixels), nil)

	stageStart = time.Now()
	emitProgress(opts, run.ID, StageStylecheck,
		fmt.Sprintf("Comparing %d layers against %d text nodes", len(screen.Layers), len(snapshot.TextNodes)), nil)
	run.Comparisons = stylecheck.MatchAndCompare(screen.Layers, snapshot.TextNodes, stylecheck.Options{
		SimilarityThreshold:   cfg.TextSimilarityThreshold,
		NumericTolerancePx:    cfg.NumericTolerancePx,
		ColorChannelTolerance: cfg.ColorChannelTolerance,
	})
	run.CountComparisonOutcomes()
	r.observeStage(StageStylecheck, stageStart)

	if diff.Pass && run.StyleMismatches == 0 && run.UnmatchedLayers == 0 && run.JSErrorCount == 0 {
		run.Status = types.RunStatusPass
	} else {
		run.Status = types.RunStatusFail
	}

	r.saveArtifacts(run, screen, refRaw, snapshot, diff)
	return nil
}

// persist writes the terminal run state. Persistence failures are
// logged, not fatal: the caller already has the in-memory result.
func (r *Runner) persist(run *types.ValidationRun) {
	if r.DB == nil {
		return
	}
	// A fresh context: the run context may already be expired, and the
	// result should be recorded regardless.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	summary := map[string]any{
		"layer_count":      run.LayerCount,
		"dom_node_count":   run.DOMNodeCount,
		"js_error_count":   run.JSErrorCount,
		"style_mismatches": run.StyleMismatches,
		"unmatched_layers": run.UnmatchedLayers,
	}
	if run.Diff != nil {
		summary["mismatched_pixels"] = run.Diff.MismatchedPixels
		summary["total_pixels"] = run.Diff.TotalPixels
		summary["mismatch_ratio"] = run.Diff.MismatchRatio()
	}

	if err := r.DB.CompleteRun(ctx, run.ID, string(run.Status), run.ErrorKind, run.ErrorMessage, summary); err != nil {
		log.Printf("[pipeline] failed to complete run %s: %v", run.ID, err)
	}
	if err := r.DB.SaveArtifact(ctx, run.ID, db.KindResult, run); err != nil {
		log.Printf("[pipeline] failed to save result artifact: %v", err)
	}
}

// saveArtifacts stores the heavyweight run outputs: images, comparisons
// and generated documents. Best effort, same as the run row itself.
func (r *Runner) saveArtifacts(run *types.ValidationRun, screen *types.DesignScreen, refRaw []byte, snapshot *types.LiveSnapshot, diff *types.DiffResult) {
	if r.DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	save := func(err error, what string) {
		if err != nil {
			log.Printf("[pipeline] failed to save %s for run %s: %v", what, run.ID, err)
		}
	}

	save(r.DB.SaveArtifact(ctx, run.ID, db.KindComparisons, run.Comparisons), "comparisons")
	save(r.DB.SaveArtifact(ctx, run.ID, db.KindDesignMeta, screen), "design metadata")
	save(r.DB.SaveTextArtifact(ctx, run.ID, db.KindDesignHTML, report.GenerateHTML(screen)), "design html")
	save(r.DB.SaveTextArtifact(ctx, run.ID, db.KindLiveHTML, snapshot.HTML), "live html")

	if len(refRaw) > 0 {
		save(r.DB.SaveImageArtifact(ctx, run.ID, db.KindDesignImage, "image/png", refRaw), "design image")
	}
	if data, err := encodePNG(snapshot.Screenshot); err == nil {
		save(r.DB.SaveImageArtifact(ctx, run.ID, db.KindLiveImage, "image/png", data), "live image")
	}
	if diff != nil && diff.DiffImage != nil {
		if data, err := encodePNG(diff.DiffImage); err == nil {
			save(r.DB.SaveImageArtifact(ctx, run.ID, db.KindDiffImage, "image/png", data), "diff image")
		}
	}
}

func (r *Runner) observeStage(stage string, start time.Time) {
	if r.Metrics != nil {
		r.Metrics.ObserveStage(stage, time.Since(start).Seconds())
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("no image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// errorKind maps pipeline errors onto the stable kind strings recorded
// on FAILED runs and used as metric labels.
func errorKind(err error) string {
	var (
		authErr      *zeplin.AuthError
		notFoundErr  *zeplin.NotFoundError
		rateLimitErr *zeplin.RateLimitError
		apiErr       *zeplin.APIError
		navErr       *capture.NavigationError
		timeoutErr   *capture.RenderTimeoutError
		imageErr     *imagediff.InvalidImageError
		configErr    *config.ConfigurationError
	)
	switch {
	case errors.As(err, &authErr):
		return "zeplin_auth"
	case errors.As(err, &notFoundErr):
		return "zeplin_not_found"
	case errors.As(err, &rateLimitErr):
		return "zeplin_rate_limit"
	case errors.As(err, &apiErr):
		return "zeplin_api"
	case errors.As(err, &navErr):
		return "navigation"
	case errors.As(err, &timeoutErr):
		return "render_timeout"
	case errors.As(err, &imageErr):
		return "invalid_image"
	case errors.As(err, &configErr):
		return "configuration"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
