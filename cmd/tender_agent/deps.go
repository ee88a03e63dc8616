package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/stafflink/tender-pipeline/internal/config"
	"github.com/stafflink/tender-pipeline/internal/monitor"
	"github.com/stafflink/tender-pipeline/internal/pipeline"
	"github.com/stafflink/tender-pipeline/internal/scrape"
	"github.com/stafflink/tender-pipeline/internal/store"
	"github.com/stafflink/tender-pipeline/internal/validation"
)

// loadConfig merges the optional config file, environment variables and
// defaults, in that order of precedence.
func loadConfig(path string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.FromEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildDeps wires the pipeline from configuration. The returned close
// function releases the database pool.
func buildDeps(ctx context.Context, cfg *config.Config) (pipeline.Deps, func(), error) {
	if cfg.PortalURL == "" {
		return pipeline.Deps{}, nil, fmt.Errorf("portal URL is required (config 'portal_url' or TENDER_PORTAL_URL)")
	}
	if cfg.DatabaseURL == "" {
		return pipeline.Deps{}, nil, fmt.Errorf("database URL is required (config 'database_url' or DATABASE_URL)")
	}

	agencies, landmarks, err := config.LoadAgencyTables()
	if err != nil {
		return pipeline.Deps{}, nil, err
	}
	profiles, err := config.LoadProfileTable()
	if err != nil {
		return pipeline.Deps{}, nil, err
	}

	tenderStore, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return pipeline.Deps{}, nil, err
	}

	mon := monitor.New(
		monitor.WithSnapshotPath(cfg.SnapshotPath),
		monitor.WithVerbose(cfg.Verbose),
	)

	factory := func(headless bool) scrape.Client {
		return scrape.NewBrowserClient(scrape.BrowserOptions{
			Headless:         headless,
			Verbose:          cfg.Verbose,
			ProfileOverrides: profiles,
		})
	}

	feed := &scrape.FeedFetcher{
		URL:              cfg.FeedURL,
		ProfileOverrides: profiles,
		Verbose:          cfg.Verbose,
	}

	window := time.Duration(cfg.RateLimitWindowS) * time.Second
	limiter := rate.NewLimiter(
		rate.Every(window/time.Duration(cfg.RateLimitPermits)),
		cfg.RateLimitPermits,
	)

	orch := scrape.NewOrchestrator(cfg.PortalURL, factory, feed, limiter, mon, cfg.Verbose)

	deps := pipeline.Deps{
		Orchestrator: orch,
		Validator:    validation.New(validation.DefaultConfig(), agencies, landmarks),
		Store:        tenderStore,
		Monitor:      mon,
		Verbose:      cfg.Verbose,
	}
	return deps, tenderStore.Close, nil
}
