package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wayfinder/internal/config"
	"wayfinder/internal/llm"
	"wayfinder/internal/logging"
	"wayfinder/internal/observability"
	"wayfinder/internal/orchestrator"
	"wayfinder/internal/places"
	"wayfinder/internal/prefs"
	"wayfinder/internal/providers"
	"wayfinder/internal/rides"
	httpserver "wayfinder/internal/server/http"
	"wayfinder/internal/skill"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wayfinder HTTP API",
}

func init() {
	serveCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	}
	serveCmd.Flags().String("host", "", "listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
}

func runServe(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if host, _ := serveCmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := serveCmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	logger := logging.NewComponentLogger("serve")

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing, version)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace exporter shutdown: %v", err)
		}
	}()

	components, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}

	server := httpserver.New(cfg.Server, components.pipeline, components.profiles, components.broker, logger, version)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(drainCtx)
}

// components bundles the wired pipeline pieces shared by serve and
// recommend.
type components struct {
	pipeline *orchestrator.Orchestrator
	profiles prefs.ProfileStore
	broker   *rides.Aggregator
	client   llm.Client
}

func buildComponents(cfg config.Config, logger logging.Logger) (*components, error) {
	resolver, err := places.NewResolver(logger)
	if err != nil {
		return nil, fmt.Errorf("load city data: %w", err)
	}
	candidates, err := providers.NewFixtureCandidates()
	if err != nil {
		return nil, fmt.Errorf("load route fixtures: %w", err)
	}

	var profiles prefs.ProfileStore
	if cfg.Store.Path != "" {
		profiles = prefs.NewFileStore(cfg.Store.Path)
	} else {
		profiles = prefs.NewMemoryStore()
	}

	client := llm.NewOpenAIClient(cfg.LLM, logger)

	pipeline, err := orchestrator.New(orchestrator.Deps{
		Resolver:   resolver,
		Weather:    providers.NewStaticWeather(nil),
		Candidates: candidates,
		Profiles:   profiles,
		LLM:        client,
		Runner:     skill.NewRunner(skill.WithLogger(logger)),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &components{
		pipeline: pipeline,
		profiles: profiles,
		broker:   rides.NewAggregator(rides.DemoProviders(), logger),
		client:   client,
	}, nil
}
