package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/catalert/catalert/internal/agent"
	"github.com/catalert/catalert/internal/api"
	"github.com/catalert/catalert/internal/config"
	"github.com/catalert/catalert/internal/petdata"
	"github.com/catalert/catalert/internal/provider"
	"github.com/catalert/catalert/internal/session"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/catalert.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Server.LogLevel == "debug" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting CatAlert agent", zap.String("config", cfgPath))

	// Provider router + gateway
	router := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		provCfg := provider.ProviderConfig{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey,
		}
		switch pc.Type {
		case "openai":
			router.Register(provider.NewOpenAIProvider(provCfg, logger))
		case "anthropic":
			router.Register(provider.NewAnthropicProvider(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}
	gw := provider.NewGateway(router, provider.GatewayConfig{
		MaxRetries:  cfg.Agent.MaxRetries,
		RetryDelay:  time.Duration(cfg.Agent.RetryDelayMS) * time.Millisecond,
		CallTimeout: time.Duration(cfg.Agent.CallTimeoutSec) * time.Second,
	}, logger)

	// Data access port: Postgres when configured, seeded in-memory otherwise.
	var port petdata.Port
	var pgPort *petdata.PostgresPort
	if cfg.Database.Postgres.DSN != "" {
		pg, pgErr := petdata.NewPostgresPort(context.Background(), cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Fatal("postgres unavailable", zap.Error(pgErr))
		}
		pgPort = pg
		port = pg
	} else {
		logger.Warn("no postgres DSN configured, using seeded in-memory data")
		mem := petdata.NewMemoryPort()
		mem.Seed()
		port = mem
	}

	// Optional Redis turn archive
	var archive *session.Archive
	if cfg.Database.Redis.URL != "" {
		a, aErr := session.NewArchive(cfg.Database.Redis.URL, logger)
		if aErr != nil {
			logger.Warn("redis unavailable, running without session archive", zap.Error(aErr))
		} else {
			archive = a
		}
	}

	sessions := session.NewStore(time.Duration(cfg.Agent.SessionIdleMins)*time.Minute, logger)

	tools := agent.NewToolRegistry()
	agent.RegisterCareTools(tools, port, cfg.Agent.MaxActivities)

	orch := agent.New(
		gw,
		agent.NewClassifier(gw, cfg.Agent.Model, logger),
		agent.NewContextBuilder(port, cfg.Agent.MaxActivities, logger),
		tools,
		sessions,
		archive,
		agent.NewSynthesizer(logger),
		agent.Options{
			Model:         cfg.Agent.Model,
			MaxToolRounds: cfg.Agent.MaxToolRounds,
			Lookback:      time.Duration(cfg.Agent.LookbackDays) * 24 * time.Hour,
			ToolTimeout:   time.Duration(cfg.Agent.CallTimeoutSec) * time.Second,
		},
		logger,
	)

	handler := api.NewHandler(orch, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("CatAlert listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down CatAlert...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	sessions.Close()
	if archive != nil {
		archive.Close()
	}
	if pgPort != nil {
		pgPort.Close()
	}
}
