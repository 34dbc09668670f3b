package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/magazord-bridge/internal/api"
	"github.com/ignite/magazord-bridge/internal/config"
	"github.com/ignite/magazord-bridge/internal/dedup"
	"github.com/ignite/magazord-bridge/internal/ghl"
	"github.com/ignite/magazord-bridge/internal/magazord"
	"github.com/ignite/magazord-bridge/internal/pkg/logger"
	"github.com/ignite/magazord-bridge/internal/relay"
	"github.com/ignite/magazord-bridge/internal/transform"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Magazord.BaseURL == "" {
		log.Fatal("MAGAZORD_BASE_URL is required")
	}

	mgzClient := magazord.NewClient(magazord.Config{
		BaseURL:  cfg.Magazord.BaseURL,
		Username: cfg.Magazord.Username,
		Password: cfg.Magazord.Password,
		Timeout:  cfg.Magazord.Timeout(),
	})

	ghlClient := ghl.NewClient(ghl.Config{
		WebhookURL: cfg.GHL.WebhookURL,
		Timeout:    cfg.GHL.Timeout(),
	})
	if !ghlClient.IsConfigured() {
		logger.Warn("GHL_WEBHOOK_URL not set, deliveries will fail")
	}

	ledger := buildLedger(cfg.Dedup)

	processor := relay.NewProcessor(
		magazord.NewAggregator(mgzClient),
		mgzClient,
		transform.New(),
		ghlClient,
		ledger,
		cfg.Defaults.CartStatus,
	)

	handlers := api.NewHandlers(processor, ledger, cfg.Defaults)
	srv := api.NewServer(cfg.Server.GetHost(), cfg.Server.Port, handlers)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err.Error())
	}
}

// buildLedger picks the dedup backend. Redis is used when configured and
// reachable; otherwise the service falls back to the in-process ledger so
// a cache outage never blocks deliveries.
func buildLedger(cfg config.DedupConfig) dedup.Ledger {
	if cfg.Backend == "redis" && cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, using in-memory dedup", "addr", cfg.RedisAddr, "error", err.Error())
			return dedup.NewMemoryLedger(cfg.Retention())
		}
		logger.Info("dedup ledger using redis", "addr", cfg.RedisAddr)
		return dedup.NewRedisLedger(client, cfg.KeyPrefix, cfg.Retention())
	}
	return dedup.NewMemoryLedger(cfg.Retention())
}
