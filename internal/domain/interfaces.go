package domain

import (
	"context"
	"time"
)

// ArticleRepo отдаёт статьи для источников кандидатов.
type ArticleRepo interface {
	GetArticleByID(ctx context.Context, id int64) (*Article, error)
	GetArticlesByCategory(ctx context.Context, category string, count int) ([]Article, error)
	GetTrendingArticles(ctx context.Context, count int) ([]Article, error)
	GetPopularArticles(ctx context.Context, count int) ([]Article, error)
	GetRandomQualityArticles(ctx context.Context, count int) ([]Article, error)
	ListRecentArticles(ctx context.Context, count int) ([]Article, error)
}

// InterestRepo управляет интересами пользователя.
type InterestRepo interface {
	GetUserInterests(ctx context.Context, userID int64) ([]UserInterest, error)
	UpsertUserInterest(ctx context.Context, userID int64, category string, scoreDelta float64) error
	DeleteUserInterests(ctx context.Context, userID int64) error
}

// BehaviorRepo управляет поведенческими счётчиками.
// GetUserBehavior возвращает nil без ошибки, если записи ещё нет.
type BehaviorRepo interface {
	GetUserBehavior(ctx context.Context, userID int64) (*UserBehavior, error)
	UpsertUserBehavior(ctx context.Context, behavior UserBehavior) error
}

// ConfigRepo хранит конфигурации лент.
// GetFeedConfiguration возвращает nil без ошибки, если записи ещё нет.
type ConfigRepo interface {
	GetFeedConfiguration(ctx context.Context, userID int64) (*FeedConfiguration, error)
	UpsertFeedConfiguration(ctx context.Context, config FeedConfiguration) error
}

// InteractionRepo сохраняет сырые взаимодействия и отдаёт агрегаты для трендов.
type InteractionRepo interface {
	RecordInteraction(ctx context.Context, event InteractionEvent) error
	GetRecentInteractionCounts(ctx context.Context, windowDays int) ([]CategoryInteractions, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// InteractionQueue передаёт события взаимодействий в фоновую обработку.
type InteractionQueue interface {
	Publish(ctx context.Context, event InteractionEvent) error
	Pop(ctx context.Context) (InteractionEvent, error)
}

// TrendProvider отдаёт последний рассчитанный снимок трендов.
// Чтение никогда не блокируется на пересчёте.
type TrendProvider interface {
	Topics(ctx context.Context, count int) ([]TrendingTopic, error)
}

// FeedService собирает персонализированные ленты.
type FeedService interface {
	GetPersonalizedFeed(ctx context.Context, userID int64, page, pageSize int) (FeedResponse, error)
	GetFeedByAlgorithm(ctx context.Context, userID int64, algorithm FeedAlgorithm, page, pageSize int) (FeedResponse, error)
	GetSimilarArticles(ctx context.Context, articleID, userID int64, count int) ([]RecommendedArticle, error)
	ResetPersonalization(ctx context.Context, userID int64) error
}
