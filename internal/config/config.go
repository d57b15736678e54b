// Package config provides configuration loading and validation for
// validation runs and the API server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/jordan/design-validator/internal/types"
)

// Default thresholds and timeouts. Every value may be overridden per
// request; none of them is a hard contract of the comparison algorithms.
const (
	DefaultColorThreshold          = 0.1
	DefaultMismatchRatioMax        = 0.02
	DefaultTextSimilarityThreshold = 0.75
	DefaultNumericTolerancePx      = 1.0
	DefaultColorChannelTolerance   = 2
	DefaultViewportWidth           = 1440
	DefaultViewportHeight          = 900
	DefaultNavigationTimeoutMS     = 60000
	DefaultSettleDelayMS           = 2000
	DefaultOverallTimeoutMS        = 180000
)

// Config holds the recognized options of a validation run plus
// service-level settings. All fields are optional in the JSON file;
// missing values fall back to defaults.
type Config struct {
	// Comparison tuning
	ColorThreshold          float64 `json:"color_threshold,omitempty" validate:"gte=0,lte=1"`
	MismatchRatioMax        float64 `json:"mismatch_ratio_max,omitempty" validate:"gte=0,lte=1"`
	TextSimilarityThreshold float64 `json:"text_similarity_threshold,omitempty" validate:"gte=0,lte=1"`
	NumericTolerancePx      float64 `json:"numeric_tolerance_px,omitempty" validate:"gte=0"`
	ColorChannelTolerance   int     `json:"color_channel_tolerance,omitempty" validate:"gte=0,lte=255"`

	// Capture
	ViewportWidth       int `json:"viewport_width,omitempty" validate:"gte=0,lte=7680"`
	ViewportHeight      int `json:"viewport_height,omitempty" validate:"gte=0,lte=4320"`
	NavigationTimeoutMS int `json:"navigation_timeout_ms,omitempty" validate:"gte=0"`
	SettleDelayMS       int `json:"settle_delay_ms,omitempty" validate:"gte=0"`
	OverallTimeoutMS    int `json:"overall_timeout_ms,omitempty" validate:"gte=0"`

	// Service
	ZeplinToken string `json:"zeplin_token,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
	RedisURL    string `json:"redis_url,omitempty"`
}

// validate is shared; a validator.Validate is safe for concurrent use.
var validate = validator.New()

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, &ConfigurationError{Message: "config path is empty"}
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{Message: "failed to parse config JSON", Cause: err}
	}

	return &cfg, nil
}

// FromEnv fills service-level settings from environment variables when
// they are not already set.
func (c *Config) FromEnv() {
	if c.ZeplinToken == "" {
		c.ZeplinToken = os.Getenv("ZEPLIN_TOKEN")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
}

// MergeWithDefaults returns a copy of c with zero-valued tuning fields
// replaced by the package defaults.
func (c *Config) MergeWithDefaults() Config {
	result := *c

	if result.ColorThreshold == 0 {
		result.ColorThreshold = DefaultColorThreshold
	}
	if result.MismatchRatioMax == 0 {
		result.MismatchRatioMax = DefaultMismatchRatioMax
	}
	if result.TextSimilarityThreshold == 0 {
		result.TextSimilarityThreshold = DefaultTextSimilarityThreshold
	}
	if result.NumericTolerancePx == 0 {
		result.NumericTolerancePx = DefaultNumericTolerancePx
	}
	if result.ColorChannelTolerance == 0 {
		result.ColorChannelTolerance = DefaultColorChannelTolerance
	}
	if result.ViewportWidth == 0 {
		result.ViewportWidth = DefaultViewportWidth
	}
	if result.ViewportHeight == 0 {
		result.ViewportHeight = DefaultViewportHeight
	}
	if result.NavigationTimeoutMS == 0 {
		result.NavigationTimeoutMS = DefaultNavigationTimeoutMS
	}
	if result.SettleDelayMS == 0 {
		result.SettleDelayMS = DefaultSettleDelayMS
	}
	if result.OverallTimeoutMS == 0 {
		result.OverallTimeoutMS = DefaultOverallTimeoutMS
	}

	return result
}

// Validate checks the configured ranges. Violations surface as
// ConfigurationError so callers can distinguish them from transient
// failures.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return &ConfigurationError{
				Field:   errs[0].Field(),
				Message: fmt.Sprintf("value %v fails constraint %q", errs[0].Value(), errs[0].Tag()),
				Cause:   err,
			}
		}
		return &ConfigurationError{Message: "invalid configuration", Cause: err}
	}
	return nil
}

// Viewport returns the configured capture viewport.
func (c *Config) Viewport() types.Viewport {
	return types.Viewport{Width: c.ViewportWidth, Height: c.ViewportHeight}
}
