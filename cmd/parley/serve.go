package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/parley/internal/api"
	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/config"
	"github.com/MikeSquared-Agency/parley/internal/hermes"
	"github.com/MikeSquared-Agency/parley/internal/processor"
	"github.com/MikeSquared-Agency/parley/internal/session"
	"github.com/MikeSquared-Agency/parley/internal/slack"
	"github.com/MikeSquared-Agency/parley/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live session service (HTTP API + NATS)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("parley starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	matrices, err := loadMatrices(cfg.ScenarioFile)
	if err != nil {
		return err
	}
	cls := classifier.New(classifier.WithScenarios(matrices))

	// Database (optional, summaries are still published without it)
	var (
		summaries processor.SummaryWriter
		settings  *store.Store
	)
	deps := api.Deps{Classifier: cls}
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		summaries, settings = db, db
		deps.DB = db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, session summaries will not be stored")
	}

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Slack poster (optional)
	var poster processor.SummaryPoster
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		poster = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	proc := processor.New(hermesClient, summaries, poster, slog.Default())

	opts := []session.ManagerOption{
		session.WithDefaults(session.Config{
			Debounce:     cfg.Debounce,
			WindowChunks: cfg.WindowChunks,
			Sensitivity:  cfg.Sensitivity,
			Scenario:     catalog.Scenario(cfg.Scenario),
		}),
	}
	deps.Bus = hermesClient
	if settings != nil {
		opts = append(opts, session.WithSettings(settings))
		deps.Settings = settings
	}
	mgr := session.NewManager(cls, proc, slog.Default(), opts...)
	proc.Attach(mgr)
	deps.Sessions = mgr

	if err := hermesClient.Subscribe(hermes.SubjectTranscriptChunk, proc.HandleTranscriptChunk); err != nil {
		return fmt.Errorf("subscribe to transcript chunks: %w", err)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, deps)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	// Announce registration
	scenarios := make([]string, 0, len(matrices))
	for _, s := range matrices.Scenarios() {
		scenarios = append(scenarios, string(s))
	}
	if err := hermesClient.Publish(hermes.SubjectAgentRegistered, hermes.RegisteredEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Port:      fmt.Sprint(cfg.Port),
		Scenarios: scenarios,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("parley ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown failed", "error", err)
	}
	mgr.Shutdown()
	proc.Wait()

	slog.Info("parley stopped")
	return nil
}

// scenarioFileOrEnv falls back to PARLEY_SCENARIO_FILE so the offline
// commands weight scenarios the same way serve does.
func scenarioFileOrEnv(path string) string {
	if path != "" {
		return path
	}
	return config.Load().ScenarioFile
}

func loadMatrices(path string) (catalog.Matrices, error) {
	if path == "" {
		return catalog.DefaultMatrices(), nil
	}
	ms, err := catalog.LoadScenarioFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario file: %w", err)
	}
	slog.Info("scenario file loaded", "path", path, "scenarios", len(ms))
	return ms, nil
}
