package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordan/design-validator/internal/cache"
	"github.com/jordan/design-validator/internal/config"
	"github.com/jordan/design-validator/internal/db"
	"github.com/jordan/design-validator/internal/monitoring"
	"github.com/jordan/design-validator/internal/pipeline"
	"github.com/jordan/design-validator/internal/server/middleware"
	"github.com/jordan/design-validator/internal/zeplin"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	cache       *cache.ScreenCache
	runner      *pipeline.Runner
	cfg         config.Config
	jwtService  *JWTService
	authHandler *AuthHandler
	protect     func(http.Handler) http.Handler
}

// Config holds server configuration
type Config struct {
	Port       int
	Validation config.Config
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	vcfg := cfg.Validation.MergeWithDefaults()
	if err := vcfg.Validate(); err != nil {
		return nil, err
	}
	if vcfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if vcfg.ZeplinToken == "" {
		return nil, fmt.Errorf("zeplin token is required")
	}

	// Connect to database
	database, err := db.Connect(context.Background(), vcfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Server{
		db:  database,
		cfg: vcfg,
	}

	// Screen metadata cache is optional; the validator works without it.
	clientOpts := []zeplin.Option{}
	if vcfg.RedisURL != "" {
		screenCache, err := cache.New(context.Background(), vcfg.RedisURL, cache.DefaultTTL)
		if err != nil {
			log.Printf("Warning: screen cache unavailable: %v", err)
		} else {
			s.cache = screenCache
			clientOpts = append(clientOpts, zeplin.WithCache(screenCache))
		}
	}

	zeplinClient := zeplin.NewClient(vcfg.ZeplinToken, clientOpts...)
	s.runner = pipeline.NewRunner(zeplinClient, database, monitoring.NewMetrics())

	// Authentication guards mutating routes. Without credentials
	// configured the API runs open, which is fine for local use.
	s.protect = func(next http.Handler) http.Handler { return next }
	adminConfig, adminErr := config.NewAdminConfig()
	jwtConfig, jwtErr := config.NewJWTConfig()
	if adminErr != nil || jwtErr != nil {
		log.Printf("Warning: authentication disabled (admin: %v, jwt: %v)", adminErr, jwtErr)
	} else {
		s.jwtService = NewJWTService(jwtConfig)
		s.authHandler = NewAuthHandler(adminConfig, s.jwtService)
		s.protect = middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	}

	// Setup router
	mux := http.NewServeMux()
	if s.authHandler != nil {
		mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	}
	mux.Handle("POST /validations", s.protect(http.HandlerFunc(s.handleCreateValidation)))
	mux.Handle("POST /validations/stream", s.protect(http.HandlerFunc(s.handleStreamValidation)))
	mux.HandleFunc("GET /validations", s.handleListValidations)
	mux.HandleFunc("GET /validations/{id}", s.handleGetValidation)
	mux.HandleFunc("GET /validations/{id}/images/{kind}", s.handleValidationImage)
	mux.HandleFunc("GET /validations/{id}/design.html", s.handleDesignHTML)
	mux.Handle("DELETE /validations/{id}", s.protect(http.HandlerFunc(s.handleDeleteValidation)))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for streamed runs
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Close()
	}
	s.db.Close()
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  "database unreachable",
		})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
