package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/david/scholar-match/internal/ai"
	"github.com/david/scholar-match/internal/api"
	"github.com/david/scholar-match/internal/auth"
	"github.com/david/scholar-match/internal/cache"
	"github.com/david/scholar-match/internal/config"
	"github.com/david/scholar-match/internal/db"
	"github.com/david/scholar-match/internal/logging"
	"github.com/david/scholar-match/internal/matching"
	"github.com/david/scholar-match/internal/metrics"
	"github.com/david/scholar-match/internal/reminders"
	"github.com/david/scholar-match/internal/tracker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	store, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up match cache", zap.Error(err))
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	if err != nil {
		logger.Fatal("failed to set up tokens", zap.Error(err))
	}

	m := metrics.New()

	// The HTTP timeout sits above the matching timeout so the engine's own race decides.
	ollama := ai.NewOllamaClient(cfg.Ollama.Host, cfg.Ollama.Model, cfg.Matching.Timeout+5*time.Second)
	ollama.Temperature = cfg.Ollama.Temperature
	engine := matching.NewEngine(ollama, cfg.Matching, logger, m)

	srv, err := api.NewServer(api.Deps{
		Catalog:     db.NewStore(pool),
		Profiles:    db.NewProfileStore(pool),
		Saved:       db.NewSavedStore(pool),
		Auth:        auth.NewService(pool, tokens),
		Engine:      engine,
		Cache:       cache.NewMatchCache(store, logger, m),
		Tracker:     tracker.New(db.NewApplicationRepository(pool), logger),
		Reminders:   reminders.NewService(db.NewReminderRepository(pool), logger),
		Tokens:      tokens,
		Metrics:     m,
		Logger:      logger,
		Ping:        pool.Ping,
		CORSOrigins: cfg.Server.CORSOrigins,
		AdminSecret: cfg.Auth.AdminSecret,
	})
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("cache", cfg.Cache.Backend))
		if err := srv.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newCacheStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Store, error) {
	if cfg.Cache.Backend != config.CacheBackendRedis {
		return cache.NewMemoryStore(cfg.Cache.Capacity, cfg.Cache.TTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	store := cache.NewRedisStore(client, cfg.Cache.Prefix, cfg.Cache.TTL)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return nil, err
	}
	logger.Info("using redis match cache", zap.String("addr", cfg.Cache.Redis.Addr))
	return store, nil
}
