package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	FeedBuildSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_build_seconds",
		Help:    "Время сборки ленты",
		Buckets: prometheus.DefBuckets,
	}, []string{"algorithm"})

	FeedRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_requests_total",
		Help: "Количество запросов ленты по алгоритмам",
	}, []string{"algorithm"})

	FeedFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_fallbacks_total",
		Help: "Количество деградированных лент при недоступном хранилище",
	})

	CandidateSourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "candidate_source_errors_total",
		Help: "Ошибки источников кандидатов",
	}, []string{"source"})

	CandidatesGathered = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "candidates_gathered",
		Help:    "Размер пула кандидатов после дедупликации",
		Buckets: []float64{0, 5, 10, 20, 40, 80, 160},
	})

	TrendRefreshSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trend_refresh_seconds",
		Help:    "Время пересчёта трендовых тем",
		Buckets: prometheus.DefBuckets,
	})

	TrendRefreshErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trend_refresh_errors_total",
		Help: "Ошибки пересчёта трендовых тем",
	})

	InteractionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "interaction_events_total",
		Help: "Обработанные события взаимодействий по типам",
	}, []string{"type"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		FeedBuildSeconds,
		FeedRequestsTotal,
		FeedFallbacksTotal,
		CandidateSourceErrors,
		CandidatesGathered,
		TrendRefreshSeconds,
		TrendRefreshErrors,
		InteractionEventsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveFeedBuild записывает время сборки ленты.
func ObserveFeedBuild(algorithm string, start time.Time) {
	FeedBuildSeconds.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
	FeedRequestsTotal.WithLabelValues(algorithm).Inc()
}

// IncSourceError увеличивает счётчик ошибок источника кандидатов.
func IncSourceError(source string) {
	CandidateSourceErrors.WithLabelValues(source).Inc()
}

// IncInteraction увеличивает счётчик обработанных взаимодействий.
func IncInteraction(interactionType string) {
	InteractionEventsTotal.WithLabelValues(interactionType).Inc()
}
