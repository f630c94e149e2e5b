package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"feed-engine/internal/adapters/repo"
	"feed-engine/internal/domain"
	"feed-engine/internal/infra/cache"
	"feed-engine/internal/infra/config"
	"feed-engine/internal/infra/db"
	applog "feed-engine/internal/infra/log"
	"feed-engine/internal/infra/metrics"
	trendsusecase "feed-engine/internal/usecase/trends"
)

// Полный пересчёт дорогой, поэтому выполняется реже, чем затухание.
const computeEvery = time.Hour

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("trends-worker: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var trendCache domain.Cache
	if cfg.RedisAddr != "" {
		trendCache = cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	trendService := trendsusecase.NewService(repoAdapter, trendCache, cfg.Trends.WindowDays, logger.With().Str("component", "trends").Logger())

	compute := func() {
		runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		run := func() error {
			_, err := trendService.ComputeTrendingTopics(runCtx, cfg.Trends.TopicCount)
			return err
		}
		if trendCache != nil {
			// Once не даёт нескольким воркерам пересчитывать одновременно.
			err = trendCache.Once(runCtx, "trends:compute", computeEvery/2, run)
		} else {
			err = run()
		}
		if err != nil {
			logger.Error().Err(err).Msg("trends-worker: пересчёт не удался")
		}
	}

	compute()

	refreshTicker := time.NewTicker(time.Duration(cfg.Trends.RefreshMinutes) * time.Minute)
	defer refreshTicker.Stop()
	computeTicker := time.NewTicker(computeEvery)
	defer computeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("trends-worker: остановка")
			return
		case <-computeTicker.C:
			compute()
		case <-refreshTicker.C:
			trendService.Refresh(ctx)
			logger.Debug().Msg("trends-worker: затухание применено")
		}
	}
}
