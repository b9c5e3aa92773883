package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/folio/internal/api"
	"github.com/newthinker/folio/internal/logger"
	"github.com/newthinker/folio/internal/metrics"
	"github.com/newthinker/folio/internal/scoring"
	"github.com/newthinker/folio/internal/session"
	"github.com/newthinker/folio/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var templatesDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&templatesDir, "templates", "", "load page templates from this directory instead of the built-in ones")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log := logger.Must(debug)
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults and environment")
	}

	log.Info("starting folio server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("scoring_endpoint", cfg.API.Endpoint()),
	)

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := scoring.New(scoring.Config{
		BaseURL:    cfg.API.BaseURL,
		Path:       cfg.API.Path,
		QueryParam: cfg.API.QueryParam,
		Timeout:    cfg.API.Timeout,
		Debug:      cfg.API.Debug,
	}, log.Named("scoring"))

	reg := metrics.NewRegistry()

	var archiver session.Archiver
	if cfg.Archive.Enabled {
		store, err := archive.Open(cfg.Archive)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		archiver = archive.NewCheckArchive(store)
		log.Info("archiving settled checks", zap.String("type", cfg.Archive.Type))
	}

	sessionLog := log.Named("session")
	registry := session.NewRegistry(cfg.Server.MaxSessions, cfg.Server.SessionTTL, func(id string) *session.Workflow {
		return session.NewWorkflow(client, session.Options{
			ID:             id,
			FailureMessage: cfg.Message,
			Logger:         sessionLog,
			Recorder:       reg,
			Archiver:       archiver,
		})
	})
	registry.OnResize(reg.SetSessions)

	server, err := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		TemplatesDir:   templatesDir,
		APIKey:         cfg.Server.APIKey,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	}, api.Dependencies{
		Registry: registry,
		Metrics:  reg,
		BaseCtx:  baseCtx,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down folio server")

	// Graceful shutdown
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	return server.Shutdown(ctx)
}
