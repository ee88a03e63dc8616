// Package main provides the entry point for the tender acquisition pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tender_agent",
	Short: "Tender acquisition pipeline",
	Long:  "Tender agent acquires staffing tender opportunities from the government procurement portal, validates and deduplicates them, and persists accepted records.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
