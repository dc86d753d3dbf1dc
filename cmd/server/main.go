package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/piabot/piastats/internal/adapter/discord"
	"github.com/piabot/piastats/internal/adapter/httpserver"
	"github.com/piabot/piastats/internal/adapter/memory"
	"github.com/piabot/piastats/internal/adapter/postgres"
	"github.com/piabot/piastats/internal/adapter/redis"
	"github.com/piabot/piastats/internal/app"
	"github.com/piabot/piastats/internal/domain"
	"github.com/piabot/piastats/internal/platform/config"
	"github.com/piabot/piastats/internal/platform/logging"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *httpserver.Server, dispatcher *app.Dispatcher) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		dispatcher.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("Failed to load dispatch timezone", "error", err)
		os.Exit(1)
	}

	var (
		counterRepo  domain.CounterRepository
		settingsRepo domain.SettingsRepository
		nameRepo     domain.DisplayNameRepository
		healthChecks []httpserver.HealthCheck
	)
	if cfg.DatabaseURL != "" {
		pool := setupDB(cfg)
		defer pool.Close()

		counterRepo = postgres.NewCounterRepo(pool)
		settingsRepo = postgres.NewSettingsRepo(pool)
		nameRepo = postgres.NewDisplayNameRepo(pool)
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "postgres",
			Check: func(ctx context.Context) error { return pool.Ping(ctx) },
		})
	} else {
		slog.Warn("DATABASE_URL not set, using non-durable in-memory store")
		store := memory.NewStore()
		counterRepo = store
		settingsRepo = store
		nameRepo = store.Names()
	}

	var guard domain.SlotGuard
	if cfg.RedisURL != "" {
		redisClient := setupRedis(cfg)
		defer func() { _ = redisClient.Close() }()

		instanceID := fmt.Sprintf("%s-%s", hostname(), uuid.NewString()[:8])
		guard = redis.NewSlotGuard(redisClient, instanceID)
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	publisher := discord.NewPublisher(cfg.DiscordBotToken)

	appSvc := app.NewService(counterRepo, settingsRepo, nameRepo, clock, loc)
	dispatcher := app.NewDispatcher(settingsRepo, counterRepo, nameRepo, publisher, guard, clock, loc, cfg.DispatchTick)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Run(ctx)

	srv := httpserver.NewServer(cfg, appSvc, healthChecks)
	done := runGracefulShutdown(srv, dispatcher)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
