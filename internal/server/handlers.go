package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jordan/design-validator/internal/config"
	"github.com/jordan/design-validator/internal/db"
	"github.com/jordan/design-validator/internal/pipeline"
)

// ValidationRequest represents the request body for POST /validations
type ValidationRequest struct {
	ProjectID string         `json:"project_id"`
	ScreenID  string         `json:"screen_id"`
	LiveURL   string         `json:"live_url"`
	Overrides *config.Config `json:"overrides,omitempty"`
}

// ValidationResponse represents the response for POST /validations
type ValidationResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

func (s *Server) decodeValidationRequest(w http.ResponseWriter, r *http.Request) (*ValidationRequest, bool) {
	var req ValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}

	if req.ProjectID == "" {
		s.errorResponse(w, http.StatusBadRequest, "project_id is required")
		return nil, false
	}
	if req.ScreenID == "" {
		s.errorResponse(w, http.StatusBadRequest, "screen_id is required")
		return nil, false
	}
	if req.LiveURL == "" {
		s.errorResponse(w, http.StatusBadRequest, "live_url is required")
		return nil, false
	}

	if req.Overrides != nil {
		if err := req.Overrides.Validate(); err != nil {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
	}
	return &req, true
}

// runConfig applies per-request tuning overrides on top of the server
// defaults. Zero-valued override fields keep the server value.
func (s *Server) runConfig(req *ValidationRequest) config.Config {
	cfg := s.cfg
	if req.Overrides == nil {
		return cfg
	}
	o := req.Overrides
	if o.ColorThreshold != 0 {
		cfg.ColorThreshold = o.ColorThreshold
	}
	if o.MismatchRatioMax != 0 {
		cfg.MismatchRatioMax = o.MismatchRatioMax
	}
	if o.TextSimilarityThreshold != 0 {
		cfg.TextSimilarityThreshold = o.TextSimilarityThreshold
	}
	if o.NumericTolerancePx != 0 {
		cfg.NumericTolerancePx = o.NumericTolerancePx
	}
	if o.ColorChannelTolerance != 0 {
		cfg.ColorChannelTolerance = o.ColorChannelTolerance
	}
	if o.ViewportWidth != 0 {
		cfg.ViewportWidth = o.ViewportWidth
	}
	if o.ViewportHeight != 0 {
		cfg.ViewportHeight = o.ViewportHeight
	}
	if o.NavigationTimeoutMS != 0 {
		cfg.NavigationTimeoutMS = o.NavigationTimeoutMS
	}
	if o.SettleDelayMS != 0 {
		cfg.SettleDelayMS = o.SettleDelayMS
	}
	if o.OverallTimeoutMS != 0 {
		cfg.OverallTimeoutMS = o.OverallTimeoutMS
	}
	return cfg
}

// handleCreateValidation starts a validation run in the background
func (s *Server) handleCreateValidation(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeValidationRequest(w, r)
	if !ok {
		return
	}

	runID := uuid.New()
	opts := pipeline.RunOptions{
		RunID:     runID,
		ProjectID: req.ProjectID,
		ScreenID:  req.ScreenID,
		LiveURL:   req.LiveURL,
		Config:    s.runConfig(req),
	}

	log.Printf("Starting validation run %s for screen %s/%s", runID, req.ProjectID, req.ScreenID)

	// Run in background; the result is retrievable via GET /validations/{id}
	go func() {
		run := s.runner.Run(context.Background(), opts)
		log.Printf("Validation run %s finished: %s", run.ID, run.Status)
	}()

	s.jsonResponse(w, http.StatusAccepted, ValidationResponse{
		RunID:  runID.String(),
		Status: "RUNNING",
	})
}

// handleStreamValidation runs a validation synchronously, streaming
// progress via SSE
func (s *Server) handleStreamValidation(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeValidationRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts := pipeline.RunOptions{
		RunID:     uuid.New(),
		ProjectID: req.ProjectID,
		ScreenID:  req.ScreenID,
		LiveURL:   req.LiveURL,
		Config:    s.runConfig(req),
		OnProgress: func(event pipeline.ProgressEvent) {
			if err := sse.WriteEvent("stage", event); err != nil {
				log.Printf("Error writing SSE event: %v", err)
			}
		},
	}

	run := s.runner.Run(r.Context(), opts)
	sse.WriteComplete(run.ID.String(), string(run.Status), run)
}

// handleListValidations lists recent runs with optional filters
func (s *Server) handleListValidations(w http.ResponseWriter, r *http.Request) {
	filters := db.RunFilters{
		ProjectID: r.URL.Query().Get("project_id"),
		ScreenID:  r.URL.Query().Get("screen_id"),
		Status:    r.URL.Query().Get("status"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filters.Limit = limit
	}

	runs, err := s.db.ListRuns(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

// handleGetValidation returns the full result of a run if it completed,
// otherwise the run row
func (s *Server) handleGetValidation(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	result, err := s.db.GetArtifact(r.Context(), runID, db.KindResult)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if result != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result)
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// imageKinds maps the public image kind names onto artifact kinds.
var imageKinds = map[string]string{
	"design": db.KindDesignImage,
	"live":   db.KindLiveImage,
	"diff":   db.KindDiffImage,
}

// handleValidationImage serves one of the run's image artifacts
func (s *Server) handleValidationImage(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	kind, ok := imageKinds[r.PathValue("kind")]
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "Unknown image kind (want design, live or diff)")
		return
	}

	data, contentType, err := s.db.GetImageArtifact(r.Context(), runID, kind)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if data == nil {
		s.errorResponse(w, http.StatusNotFound, "Image not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleDesignHTML serves the HTML document generated from the design
func (s *Server) handleDesignHTML(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	html, err := s.db.GetTextArtifact(r.Context(), runID, db.KindDesignHTML)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if html == "" {
		s.errorResponse(w, http.StatusNotFound, "Design document not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// handleDeleteValidation deletes a run and its artifacts
func (s *Server) handleDeleteValidation(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	if err := s.db.DeleteRun(r.Context(), runID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"deleted": runID.String()})
}

func (s *Server) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		s.errorResponse(w, http.StatusBadRequest, "Run ID is required")
		return uuid.Nil, false
	}
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return uuid.Nil, false
	}
	return runID, true
}
