package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"feed-engine/internal/adapters/ranker"
	"feed-engine/internal/adapters/repo"
	"feed-engine/internal/domain"
	"feed-engine/internal/infra/cache"
	"feed-engine/internal/infra/config"
	"feed-engine/internal/infra/db"
	httpinfra "feed-engine/internal/infra/http"
	applog "feed-engine/internal/infra/log"
	"feed-engine/internal/infra/metrics"
	"feed-engine/internal/infra/queue"
	feedusecase "feed-engine/internal/usecase/feed"
	"feed-engine/internal/usecase/feedconfig"
	interactionsusecase "feed-engine/internal/usecase/interactions"
	trendsusecase "feed-engine/internal/usecase/trends"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var trendCache domain.Cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		trendCache = cache.NewRedis(redisClient)
	}

	var interactionQueue domain.InteractionQueue
	switch {
	case cfg.RabbitURL != "":
		rabbit, err := queue.NewRabbitInteractionQueue(cfg.RabbitURL, cfg.Queues.Interactions)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось подключиться к RabbitMQ")
		}
		defer rabbit.Close()
		interactionQueue = rabbit
	case redisClient != nil:
		interactionQueue = queue.NewRedisInteractionQueue(redisClient, cfg.Queues.Interactions)
	}

	configStore := feedconfig.NewStore(repoAdapter, domain.StandardFeedDefaults(), logger.With().Str("component", "feedconfig").Logger())
	trendService := trendsusecase.NewService(repoAdapter, trendCache, cfg.Trends.WindowDays, logger.With().Str("component", "trends").Logger())
	sourcer := feedusecase.NewSourcer(repoAdapter, cfg.Feed.PerCategory, cfg.Feed.SourceCount, logger.With().Str("component", "sourcer").Logger())
	diversity := ranker.NewDiversity(ranker.DefaultParams())
	feedService := feedusecase.NewService(repoAdapter, repoAdapter, repoAdapter, configStore, trendService, sourcer, diversity, logger.With().Str("component", "feed").Logger())
	interactionService := interactionsusecase.NewService(repoAdapter, repoAdapter, repoAdapter, repoAdapter, interactionQueue, logger.With().Str("component", "interactions").Logger())

	server := httpinfra.NewServer(logger.With().Str("component", "http").Logger())
	r := server.Router

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/feed", func(w http.ResponseWriter, req *http.Request) {
			userID := queryInt64(req, "user_id")
			page, pageSize := pagination(req, cfg.Feed.PageSizeDefault, cfg.Feed.PageSizeMax)
			resp, err := feedService.GetPersonalizedFeed(req.Context(), userID, page, pageSize)
			if err != nil {
				logger.Error().Err(err).Msg("api: сборка ленты")
				writeError(w, http.StatusInternalServerError, "не удалось собрать ленту")
				return
			}
			writeJSON(w, resp)
		})

		r.Get("/feed/{algorithm}", func(w http.ResponseWriter, req *http.Request) {
			algorithm, err := domain.ParseAlgorithm(chi.URLParam(req, "algorithm"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "неизвестный алгоритм")
				return
			}
			userID := queryInt64(req, "user_id")
			page, pageSize := pagination(req, cfg.Feed.PageSizeDefault, cfg.Feed.PageSizeMax)
			resp, err := feedService.GetFeedByAlgorithm(req.Context(), userID, algorithm, page, pageSize)
			if err != nil {
				logger.Error().Err(err).Msg("api: сборка ленты по алгоритму")
				writeError(w, http.StatusInternalServerError, "не удалось собрать ленту")
				return
			}
			writeJSON(w, resp)
		})

		r.Get("/trending", func(w http.ResponseWriter, req *http.Request) {
			count := int(queryInt64(req, "count"))
			if count <= 0 {
				count = cfg.Trends.TopicCount
			}
			topics, err := trendService.Topics(req.Context(), count)
			if err != nil {
				writeError(w, http.StatusServiceUnavailable, "тренды недоступны")
				return
			}
			writeJSON(w, map[string]any{"topics": topics})
		})

		r.Get("/articles/{id}/similar", func(w http.ResponseWriter, req *http.Request) {
			articleID, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "некорректный идентификатор статьи")
				return
			}
			userID := queryInt64(req, "user_id")
			count := int(queryInt64(req, "count"))
			similar, err := feedService.GetSimilarArticles(req.Context(), articleID, userID, count)
			if err != nil {
				if errors.Is(err, feedusecase.ErrArticleNotFound) {
					writeError(w, http.StatusNotFound, "статья не найдена")
					return
				}
				logger.Error().Err(err).Msg("api: похожие статьи")
				writeError(w, http.StatusInternalServerError, "не удалось подобрать похожие статьи")
				return
			}
			writeJSON(w, map[string]any{"articles": similar})
		})

		r.Post("/interactions", func(w http.ResponseWriter, req *http.Request) {
			defer req.Body.Close()
			var body interactionRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "некорректное тело запроса")
				return
			}
			if body.UserID == 0 || body.ArticleID == 0 || body.Type == "" {
				writeError(w, http.StatusBadRequest, "user_id, article_id и type обязательны")
				return
			}
			if err := interactionService.Record(req.Context(), body.UserID, body.ArticleID, domain.InteractionType(body.Type)); err != nil {
				logger.Error().Err(err).Msg("api: запись взаимодействия")
				writeError(w, http.StatusInternalServerError, "не удалось записать взаимодействие")
				return
			}
			w.WriteHeader(http.StatusAccepted)
		})

		r.Delete("/personalization/{user_id}", func(w http.ResponseWriter, req *http.Request) {
			userID, err := strconv.ParseInt(chi.URLParam(req, "user_id"), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "некорректный идентификатор пользователя")
				return
			}
			if err := feedService.ResetPersonalization(req.Context(), userID); err != nil {
				logger.Error().Err(err).Msg("api: сброс персонализации")
				writeError(w, http.StatusInternalServerError, "не удалось сбросить персонализацию")
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/configuration/{user_id}", func(w http.ResponseWriter, req *http.Request) {
			userID, err := strconv.ParseInt(chi.URLParam(req, "user_id"), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "некорректный идентификатор пользователя")
				return
			}
			userCfg, err := configStore.Get(req.Context(), userID)
			if err != nil {
				logger.Error().Err(err).Msg("api: чтение конфигурации")
				writeError(w, http.StatusInternalServerError, "не удалось получить конфигурацию")
				return
			}
			writeJSON(w, userCfg)
		})

		r.Put("/configuration/{user_id}", func(w http.ResponseWriter, req *http.Request) {
			defer req.Body.Close()
			userID, err := strconv.ParseInt(chi.URLParam(req, "user_id"), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "некорректный идентификатор пользователя")
				return
			}
			var userCfg domain.FeedConfiguration
			if err := json.NewDecoder(req.Body).Decode(&userCfg); err != nil {
				writeError(w, http.StatusBadRequest, "некорректное тело запроса")
				return
			}
			userCfg.UserID = userID
			if err := configStore.Update(req.Context(), userCfg); err != nil {
				logger.Error().Err(err).Msg("api: обновление конфигурации")
				writeError(w, http.StatusInternalServerError, "не удалось сохранить конфигурацию")
				return
			}
			writeJSON(w, map[string]string{"status": "ok"})
		})
	})

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

type interactionRequest struct {
	UserID    int64  `json:"user_id"`
	ArticleID int64  `json:"article_id"`
	Type      string `json:"type"`
}

func queryInt64(req *http.Request, key string) int64 {
	value, err := strconv.ParseInt(req.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func pagination(req *http.Request, defaultSize, maxSize int) (int, int) {
	page := int(queryInt64(req, "page"))
	if page < 1 {
		page = 1
	}
	pageSize := int(queryInt64(req, "page_size"))
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
