package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jordan/design-validator/internal/cache"
	"github.com/jordan/design-validator/internal/config"
	"github.com/jordan/design-validator/internal/db"
	"github.com/jordan/design-validator/internal/pipeline"
	"github.com/jordan/design-validator/internal/types"
	"github.com/jordan/design-validator/internal/zeplin"
)

var (
	validateProject    string
	validateScreen     string
	validateURL        string
	validateConfigPath string
	validateJSON       bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a single validation",
	Long: `Fetch a Zeplin screen, capture the live page and compare them.
Prints a summary (or the full result with --json) and exits non-zero
unless the run passed.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateProject, "project", "", "Zeplin project ID (required)")
	validateCmd.Flags().StringVar(&validateScreen, "screen", "", "Zeplin screen ID (required)")
	validateCmd.Flags().StringVar(&validateURL, "url", "", "Live page URL (required)")
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "", "Path to a JSON config file with tuning overrides")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the full result as JSON")
	_ = validateCmd.MarkFlagRequired("project")
	_ = validateCmd.MarkFlagRequired("screen")
	_ = validateCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	cfg := &config.Config{}
	if validateConfigPath != "" {
		loaded, err := config.LoadConfig(validateConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.FromEnv()
	merged := cfg.MergeWithDefaults()
	if err := merged.Validate(); err != nil {
		return err
	}
	if merged.ZeplinToken == "" {
		return fmt.Errorf("ZEPLIN_TOKEN environment variable is required")
	}

	ctx := context.Background()

	// Persistence and caching are optional for one-shot runs.
	var database *db.DB
	if merged.DatabaseURL != "" {
		var err error
		database, err = db.Connect(ctx, merged.DatabaseURL)
		if err != nil {
			log.Printf("Warning: continuing without persistence: %v", err)
		} else {
			defer database.Close()
		}
	}

	clientOpts := []zeplin.Option{}
	if merged.RedisURL != "" {
		screenCache, err := cache.New(ctx, merged.RedisURL, cache.DefaultTTL)
		if err != nil {
			log.Printf("Warning: continuing without screen cache: %v", err)
		} else {
			defer func() { _ = screenCache.Close() }()
			clientOpts = append(clientOpts, zeplin.WithCache(screenCache))
		}
	}

	runner := pipeline.NewRunner(zeplin.NewClient(merged.ZeplinToken, clientOpts...), database, nil)
	run := runner.Run(ctx, pipeline.RunOptions{
		ProjectID: validateProject,
		ScreenID:  validateScreen,
		LiveURL:   validateURL,
		Config:    merged,
		OnProgress: func(event pipeline.ProgressEvent) {
			fmt.Printf("[%s] %s\n", event.Stage, event.Message)
		},
	})

	if validateJSON {
		out, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(out))
	} else {
		printSummary(run)
	}

	if run.Status != types.RunStatusPass {
		os.Exit(1)
	}
	return nil
}

func printSummary(run *types.ValidationRun) {
	fmt.Printf("\nRun %s: %s\n", run.ID, run.Status)
	if run.Status == types.RunStatusFailed {
		fmt.Printf("  error (%s): %s\n", run.ErrorKind, run.ErrorMessage)
		return
	}
	if run.Diff != nil {
		fmt.Printf("  pixels:  %d/%d mismatched (%.4f%%), %d regions\n",
			run.Diff.MismatchedPixels, run.Diff.TotalPixels,
			run.Diff.MismatchRatio()*100, len(run.Diff.Regions))
	}
	fmt.Printf("  layers:  %d total, %d mismatched, %d unmatched\n",
		run.LayerCount, run.StyleMismatches, run.UnmatchedLayers)
	fmt.Printf("  dom:     %d nodes, %d js errors\n", run.DOMNodeCount, run.JSErrorCount)

	for _, cmp := range run.Comparisons {
		if cmp.Status != types.ComparisonMismatch {
			continue
		}
		fmt.Printf("  layer %q:\n", cmp.LayerName)
		for _, attr := range cmp.Attributes {
			if !attr.Match {
				fmt.Printf("    %s: expected %q, got %q\n", attr.Attribute, attr.Expected, attr.Actual)
			}
		}
	}
}
