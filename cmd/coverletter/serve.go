package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/cover-letter-agent/internal/server"
	"github.com/jonathan/cover-letter-agent/internal/server/ratelimit"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for analysis, generation and review of cover letters.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config, e.g. :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	rl := &ratelimit.Config{Enabled: false}
	if cfg.Server.RateLimit {
		rl = ratelimit.LoadConfig(os.LookupEnv)
	}

	opts := server.Options{
		Addr:           cfg.Server.Addr,
		Pipeline:       a.pipeline,
		Metrics:        a.metrics,
		Logger:         a.logger,
		RateLimit:      rl,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if a.store != nil {
		opts.Store = a.store
	}
	if a.db != nil {
		opts.Resumes = a.db
		opts.Pingers = map[string]server.Pinger{"postgres": a.db}
	}

	srv, err := server.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
