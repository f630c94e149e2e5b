package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"feed-engine/internal/adapters/repo"
	"feed-engine/internal/domain"
	"feed-engine/internal/infra/config"
	"feed-engine/internal/infra/db"
	applog "feed-engine/internal/infra/log"
	"feed-engine/internal/infra/metrics"
	"feed-engine/internal/infra/queue"
	interactionsusecase "feed-engine/internal/usecase/interactions"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("interactions-worker: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var interactionQueue domain.InteractionQueue
	switch {
	case cfg.RabbitURL != "":
		rabbit, err := queue.NewRabbitInteractionQueue(cfg.RabbitURL, cfg.Queues.Interactions)
		if err != nil {
			logger.Fatal().Err(err).Msg("interactions-worker: не удалось подключиться к RabbitMQ")
		}
		defer rabbit.Close()
		interactionQueue = rabbit
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		interactionQueue = queue.NewRedisInteractionQueue(client, cfg.Queues.Interactions)
	default:
		logger.Fatal().Msg("interactions-worker: не настроена очередь (RABBITMQ_URL или REDIS_ADDR)")
	}

	service := interactionsusecase.NewService(repoAdapter, repoAdapter, repoAdapter, repoAdapter, interactionQueue, logger.With().Str("component", "interactions").Logger())

	logger.Info().Msg("interactions-worker: старт")
	if err := service.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("interactions-worker: остановлен с ошибкой")
	}
	logger.Info().Msg("interactions-worker: остановка")
}
