package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/mengleangdeaun/foodie-sub002/internal/config"
	"github.com/mengleangdeaun/foodie-sub002/internal/notify"
	"github.com/mengleangdeaun/foodie-sub002/internal/obs"
	"github.com/mengleangdeaun/foodie-sub002/internal/queue"
	"github.com/mengleangdeaun/foodie-sub002/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "json"), envOrDefault("OBS_LOG_LEVEL", "info")).
		With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "foodie"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	kitchen := &notify.KitchenBoard{Client: redisClient, Logger: logger}
	telegram := &notify.Telegram{
		BotToken: cfg.TelegramBotToken,
		ChatID:   cfg.TelegramChatID,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Timeout: 10 * time.Second},
			Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("telegram").WithLogger(logger),
			MaxAttempts: 3,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
		},
		Logger: logger,
	}

	handlers := []queue.TaskHandler{
		{Type: queue.TaskKitchenAlert, Handler: kitchen.HandleTask},
	}
	if cfg.NotifyTelegram {
		handlers = append(handlers, queue.TaskHandler{Type: queue.TaskTelegramAlert, Handler: telegram.HandleTask})
	}

	worker := queue.NewWorker(queue.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		Logger:    logger,
		Handlers:  handlers,
	})

	logger.Info().Msg("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
