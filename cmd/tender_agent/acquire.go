package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stafflink/tender-pipeline/internal/pipeline"
	"github.com/stafflink/tender-pipeline/internal/scrape"
)

var (
	acquireConfigPath  string
	acquireCategories  []string
	acquireHeadless    bool
	acquireMaxAttempts int
	acquireTimeoutMS   int
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Run one acquisition pass",
	Long:  `Acquire tender opportunities for the given categories, validate and deduplicate them, and persist the accepted records.`,
	RunE:  runAcquire,
}

func init() {
	acquireCmd.Flags().StringVar(&acquireConfigPath, "config", "", "Path to JSON config file")
	acquireCmd.Flags().StringSliceVar(&acquireCategories, "category", []string{"event-support", "security", "facility-management"}, "Tender categories to search")
	acquireCmd.Flags().BoolVar(&acquireHeadless, "headless", true, "Run the browser headless")
	acquireCmd.Flags().IntVar(&acquireMaxAttempts, "max-attempts", 0, "Active-extraction attempts before the feed fallback")
	acquireCmd.Flags().IntVar(&acquireTimeoutMS, "attempt-timeout-ms", 0, "Per-attempt timeout in milliseconds")
	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(acquireConfigPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	deps, closeDeps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDeps()

	opts := scrape.Options{
		Headless:       acquireHeadless,
		MaxAttempts:    acquireMaxAttempts,
		AttemptTimeout: time.Duration(acquireTimeoutMS) * time.Millisecond,
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = cfg.MaxAttempts
	}
	if opts.AttemptTimeout == 0 {
		opts.AttemptTimeout = time.Duration(cfg.AttemptTimeoutMS) * time.Millisecond
	}

	summary, err := pipeline.Run(ctx, deps, acquireCategories, opts)
	if err != nil {
		return fmt.Errorf("acquisition run failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
