// Package server exposes the acquisition pipeline over HTTP: session status
// queries, aggregate health, and a trigger for full pipeline runs.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stafflink/tender-pipeline/internal/monitor"
	"github.com/stafflink/tender-pipeline/internal/pipeline"
)

// Server is the HTTP surface over the session monitor and the pipeline.
type Server struct {
	httpServer *http.Server
	monitor    *monitor.Monitor
	deps       pipeline.Deps
	categories []string
}

// Config holds server configuration.
type Config struct {
	Port int
	// DefaultCategories is used when an acquire request names none.
	DefaultCategories []string
}

// New creates a server around the given pipeline dependencies.
func New(cfg Config, deps pipeline.Deps) *Server {
	s := &Server{
		monitor:    deps.Monitor,
		deps:       deps,
		categories: cfg.DefaultCategories,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /acquire", s.handleAcquire)
	mux.HandleFunc("GET /sessions", s.handleAllSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleSessionStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for acquisition runs
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for requests and blocks until an interrupt or
// termination signal, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[SERVER] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[SERVER] error: %v", err)
		}
	}()

	<-stop
	log.Println("[SERVER] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("[SERVER] stopped")
	return nil
}

// Handler exposes the routing mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withLogging logs each request with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[SERVER] %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
