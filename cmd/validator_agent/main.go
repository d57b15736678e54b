// Package main provides the entry point for the design validator.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "validator_agent",
	Short: "Design validation agent",
	Long:  "Validates live web pages against Zeplin design screens: pixel diff of a deterministic screenshot plus per-layer CSS comparison, served over a REST API or run one-shot from the CLI.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
