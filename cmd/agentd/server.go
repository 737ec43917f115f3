package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apihandlers "github.com/luminon/agentd/api/handlers"
	"github.com/luminon/agentd/config"
	"github.com/luminon/agentd/guard"
	"github.com/luminon/agentd/internal/metrics"
	"github.com/luminon/agentd/internal/migration"
	"github.com/luminon/agentd/internal/server"
	"github.com/luminon/agentd/internal/telemetry"
	"github.com/luminon/agentd/llm"
	"github.com/luminon/agentd/store"
	"github.com/luminon/agentd/tools"
	"github.com/luminon/agentd/workflow"
)

// application holds everything main wires together.
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	manager   *server.Manager
	telemetry *telemetry.Provider
	threads   store.ThreadStore
	cancel    context.CancelFunc
}

// authSkipPaths are reachable without credentials.
var authSkipPaths = []string{"/healthz", "/ping", "/metrics"}

func buildModels(cfg *config.Config, logger *zap.Logger) (*llm.Registry, error) {
	registry := llm.NewRegistry()
	if cfg.LLM.APIKey == "" {
		logger.Warn("no model API key configured, using the fake provider")
		if err := registry.Register("fake-model", llm.NewFakeProvider()); err != nil {
			return nil, err
		}
		return registry, nil
	}
	provider := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		DefaultModel: cfg.LLM.Model,
		Timeout:      cfg.LLM.Timeout,
	}, logger)
	if err := registry.Register(cfg.LLM.Model, provider); err != nil {
		return nil, err
	}
	return registry, nil
}

func buildClassifier(cfg *config.Config, logger *zap.Logger) *guard.Classifier {
	// Without a key the classifier runs degraded and every input passes.
	var provider llm.Provider
	if cfg.Guard.APIKey != "" {
		provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
			ProviderName: "guard",
			APIKey:       cfg.Guard.APIKey,
			BaseURL:      cfg.Guard.BaseURL,
			DefaultModel: cfg.Guard.Model,
		}, logger)
	}
	return guard.NewClassifier(provider, cfg.Guard.Model, logger)
}

func buildTools(cfg *config.Config, logger *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	switch cfg.Search.Provider {
	case "none":
	case "duckduckgo", "":
		search := tools.NewWebSearch(
			tools.NewDuckDuckGo("", cfg.Search.Timeout),
			tools.WebSearchConfig{
				MaxResults: cfg.Search.MaxResults,
				Timeout:    cfg.Search.Timeout,
				RateLimit:  int(cfg.Search.RateLimit * 60),
			}, logger)
		if err := registry.Register(search); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Search.Provider)
	}
	return registry, nil
}

func buildThreadStore(cfg *config.Config, logger *zap.Logger) (store.ThreadStore, store.FeedbackStore, error) {
	switch cfg.Store.Backend {
	case "memory", "":
		s := store.NewMemoryStore(logger)
		return s, s, nil
	case "database":
		db, err := store.OpenDatabase(store.DatabaseConfig{
			Driver: cfg.Store.Database.Driver,
			DSN:    cfg.Store.Database.DSN,
		})
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := migration.Up(sqlDB, cfg.Store.Database.Driver, logger); err != nil {
			return nil, nil, err
		}
		s := store.NewGormStore(db, logger)
		return s, s, nil
	case "redis":
		s := store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}, logger)
		return s, s, nil
	case "mongo":
		s, err := store.NewMongoStore(store.MongoConfig{
			URI:      cfg.Store.Mongo.URI,
			Database: cfg.Store.Mongo.Database,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// buildApplication assembles the full service from configuration.
func buildApplication(cfg *config.Config, logger *zap.Logger) (*application, error) {
	tel, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	collector := metrics.NewCollector()

	models, err := buildModels(cfg, logger)
	if err != nil {
		return nil, err
	}
	classifier := buildClassifier(cfg, logger)
	toolReg, err := buildTools(cfg, logger)
	if err != nil {
		return nil, err
	}
	threads, feedback, err := buildThreadStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine := workflow.NewEngine(models, classifier, guard.DefaultTopicOverride(), toolReg, threads, collector,
		workflow.Config{
			Model:         cfg.Agent.Model,
			MaxToolRounds: cfg.Agent.MaxToolRounds,
			MaxTokens:     cfg.Agent.MaxTokens,
			Temperature:   float32(cfg.Agent.Temperature),
		}, logger)

	runs := apihandlers.NewRunHandler(engine, logger)
	health := apihandlers.NewHealthHandler(classifier, logger)
	mux := http.NewServeMux()
	for _, prefix := range []string{"", "/" + apihandlers.AgentName} {
		mux.HandleFunc(prefix+"/invoke", runs.Invoke)
		mux.HandleFunc(prefix+"/stream", runs.Stream)
	}
	mux.Handle("/ws", apihandlers.NewWSHandler(engine, logger))
	mux.Handle("/history", apihandlers.NewHistoryHandler(threads, logger))
	mux.Handle("/feedback", apihandlers.NewFeedbackHandler(feedback, logger))
	mux.Handle("/info", apihandlers.NewInfoHandler(models, classifier, toolReg, logger))
	mux.Handle("/healthz", health)
	mux.Handle("/ping", health)
	mux.Handle("/metrics", collector.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	middlewares := []Middleware{
		Recovery(logger),
		RequestLogger(logger),
		Metrics(collector),
		OTelTracing(),
		RateLimiter(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger),
	}
	switch cfg.Auth.Mode {
	case "none", "":
	case "bearer":
		middlewares = append(middlewares, BearerAuth(cfg.Auth.Secret, authSkipPaths, logger))
	case "jwt":
		middlewares = append(middlewares, JWTAuth(cfg.Auth.Secret, authSkipPaths, logger))
	default:
		cancel()
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Auth.Mode)
	}
	handler := Chain(mux, middlewares...)

	serverCfg := server.DefaultConfig()
	serverCfg.Addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout

	return &application{
		cfg:       cfg,
		logger:    logger,
		manager:   server.NewManager(handler, serverCfg, logger),
		telemetry: tel,
		threads:   threads,
		cancel:    cancel,
	}, nil
}

// shutdown releases everything buildApplication opened.
func (app *application) shutdown(ctx context.Context) {
	app.cancel()
	if err := app.threads.Close(); err != nil {
		app.logger.Warn("store close failed", zap.Error(err))
	}
	if err := app.telemetry.Shutdown(ctx); err != nil {
		app.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
}
