package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stafflink/tender-pipeline/internal/server"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the acquisition HTTP server",
	Long:  `Start an HTTP server exposing session status, aggregate health, and an endpoint for triggering acquisition runs.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to JSON config file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	deps, closeDeps, err := buildDeps(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to wire pipeline: %w", err)
	}
	defer closeDeps()

	srv := server.New(server.Config{
		Port:              cfg.Port,
		DefaultCategories: []string{"event-support", "security", "facility-management"},
	}, deps)

	return srv.Start()
}
