package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/scoremilk/chat-gateway/internal/agent"
	"github.com/scoremilk/chat-gateway/internal/airtable"
	"github.com/scoremilk/chat-gateway/internal/chat"
	"github.com/scoremilk/chat-gateway/internal/config"
	"github.com/scoremilk/chat-gateway/internal/server"
	"github.com/scoremilk/chat-gateway/internal/store"
	"github.com/scoremilk/chat-gateway/pkg/logger"
	"github.com/scoremilk/chat-gateway/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("gateway failed: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	appLogger := logger.NewLogger(logger.Config{
		Level:   logger.ParseLevel(cfg.Logging.Level),
		Format:  cfg.Logging.Format,
		Service: cfg.ServiceName,
	})

	appLogger.Info("starting chat gateway",
		logger.StringField("environment", cfg.Environment),
		logger.StringField("provider", cfg.LLM.Provider))

	airtableCfg := airtable.Config{
		APIKey:           cfg.Airtable.APIKey,
		BaseID:           cfg.Airtable.BaseID,
		PersonaTableID:   cfg.Airtable.PersonaTableID,
		GamesTableID:     cfg.Airtable.GamesTableID,
		PlatformsTableID: cfg.Airtable.PlatformsTableID,
	}
	if err := airtableCfg.Validate(); err != nil {
		return fmt.Errorf("invalid airtable configuration: %w", err)
	}

	appMetrics := metrics.NewMetrics(appLogger)

	dataStore := store.New(store.Config{
		Loader:  airtable.New(airtableCfg, appLogger),
		Logger:  appLogger,
		Metrics: appMetrics,
		TTL:     cfg.Store.CacheTTL,
	})

	factory, err := newAgentFactory(cfg)
	if err != nil {
		return err
	}

	builder := agent.NewBuilder(dataStore, factory, agent.Defaults{
		PersonaName:  cfg.Agent.DefaultPersona,
		PlatformName: cfg.Agent.DefaultPlatform,
	}, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := store.NewRefresher(dataStore, cfg.Store.RefreshInterval, appLogger)
	refresher.Initialize(ctx)
	defer refresher.Stop()

	srv := server.New(server.Config{
		Server:   cfg.Server,
		Logger:   appLogger,
		Registry: chat.NewRegistry(builder, dataStore, appLogger),
		Store:    dataStore,
		Metrics:  appMetrics,
	})

	serverErr := srv.Listen()

	var metricsErr chan error
	if cfg.Monitoring.MetricsEnabled {
		metricsErr = appMetrics.Listen(cfg.Monitoring.MetricsPort)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info("received shutdown signal", logger.StringField("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case err := <-metricsErr:
		if err != nil {
			appLogger.Error("metrics server error", logger.ErrorField(err))
		}
	}

	refresher.Stop()

	if err := srv.GracefulShutdown(context.Background()); err != nil {
		appLogger.Error("shutdown error", logger.ErrorField(err))
	}
	if cfg.Monitoring.MetricsEnabled {
		if err := appMetrics.Shutdown(context.Background()); err != nil {
			appLogger.Error("metrics shutdown error", logger.ErrorField(err))
		}
	}

	appLogger.Info("gateway stopped")
	return nil
}

func newAgentFactory(cfg config.AppConfig) (agent.Factory, error) {
	switch cfg.LLM.Provider {
	case agent.ProviderClaude:
		return agent.NewAnthropicFactory(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Agent.MemoryWindow)
	case agent.ProviderOpenAI:
		return agent.NewOpenAIFactory(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.Agent.MemoryWindow)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}
