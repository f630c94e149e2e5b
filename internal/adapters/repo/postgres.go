package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feed-engine/internal/domain"
	"feed-engine/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ArticleRepo     = (*Postgres)(nil)
	_ domain.InterestRepo    = (*Postgres)(nil)
	_ domain.BehaviorRepo    = (*Postgres)(nil)
	_ domain.ConfigRepo      = (*Postgres)(nil)
	_ domain.InteractionRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const articleColumns = "id, title, body, category, author_id, likes, views, published_at, created_at"

func scanArticles(rows pgx.Rows) ([]domain.Article, error) {
	defer rows.Close()
	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Category, &a.AuthorID, &a.Likes, &a.Views, &a.PublishedAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("чтение статьи: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (p *Postgres) queryArticles(ctx context.Context, operation, query string, args ...any) ([]domain.Article, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", operation, "articles", start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка статей: %w", err)
	}
	return scanArticles(rows)
}

// GetArticleByID возвращает статью или nil, если её нет.
func (p *Postgres) GetArticleByID(ctx context.Context, id int64) (*domain.Article, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE id = $1
`, id)
	var a domain.Article
	err := row.Scan(&a.ID, &a.Title, &a.Body, &a.Category, &a.AuthorID, &a.Likes, &a.Views, &a.PublishedAt, &a.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "article_by_id", "articles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("получение статьи: %w", err)
	}
	return &a, nil
}

// GetArticlesByCategory возвращает свежие статьи категории.
func (p *Postgres) GetArticlesByCategory(ctx context.Context, category string, count int) ([]domain.Article, error) {
	return p.queryArticles(ctx, "articles_by_category", `
SELECT `+articleColumns+`
FROM articles
WHERE category = $1
ORDER BY published_at DESC
LIMIT $2
`, category, count)
}

// GetTrendingArticles возвращает статьи с наибольшей недавней вовлечённостью.
func (p *Postgres) GetTrendingArticles(ctx context.Context, count int) ([]domain.Article, error) {
	return p.queryArticles(ctx, "trending_articles", `
SELECT `+articleColumns+`
FROM articles
WHERE published_at > now() - interval '48 hours'
ORDER BY likes * 3 + views DESC
LIMIT $1
`, count)
}

// GetPopularArticles возвращает глобально популярные статьи.
func (p *Postgres) GetPopularArticles(ctx context.Context, count int) ([]domain.Article, error) {
	return p.queryArticles(ctx, "popular_articles", `
SELECT `+articleColumns+`
FROM articles
ORDER BY likes + views DESC
LIMIT $1
`, count)
}

// GetRandomQualityArticles возвращает случайные статьи с ненулевой вовлечённостью.
func (p *Postgres) GetRandomQualityArticles(ctx context.Context, count int) ([]domain.Article, error) {
	return p.queryArticles(ctx, "random_quality_articles", `
SELECT `+articleColumns+`
FROM articles
WHERE likes > 0 OR views > 10
ORDER BY random()
LIMIT $1
`, count)
}

// ListRecentArticles возвращает последние опубликованные статьи.
func (p *Postgres) ListRecentArticles(ctx context.Context, count int) ([]domain.Article, error) {
	return p.queryArticles(ctx, "recent_articles", `
SELECT `+articleColumns+`
FROM articles
ORDER BY published_at DESC
LIMIT $1
`, count)
}

// GetUserInterests возвращает интересы пользователя по убыванию веса.
func (p *Postgres) GetUserInterests(ctx context.Context, userID int64) ([]domain.UserInterest, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT user_id, category, score, updated_at
FROM user_interests
WHERE user_id = $1
ORDER BY score DESC
`, userID)
	metrics.ObserveNetworkRequest("postgres", "user_interests", "user_interests", start, err)
	if err != nil {
		return nil, fmt.Errorf("интересы пользователя: %w", err)
	}
	defer rows.Close()

	var interests []domain.UserInterest
	for rows.Next() {
		var in domain.UserInterest
		if err := rows.Scan(&in.UserID, &in.Category, &in.Score, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("чтение интереса: %w", err)
		}
		interests = append(interests, in)
	}
	return interests, rows.Err()
}

// UpsertUserInterest увеличивает интерес к категории на заданный вес.
func (p *Postgres) UpsertUserInterest(ctx context.Context, userID int64, category string, scoreDelta float64) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO user_interests (user_id, category, score, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id, category)
DO UPDATE SET score = user_interests.score + EXCLUDED.score, updated_at = now()
`, userID, category, scoreDelta)
	metrics.ObserveNetworkRequest("postgres", "upsert_interest", "user_interests", start, err)
	if err != nil {
		return fmt.Errorf("обновление интереса: %w", err)
	}
	return nil
}

// DeleteUserInterests удаляет все интересы пользователя.
func (p *Postgres) DeleteUserInterests(ctx context.Context, userID int64) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM user_interests WHERE user_id = $1`, userID)
	metrics.ObserveNetworkRequest("postgres", "delete_interests", "user_interests", start, err)
	if err != nil {
		return fmt.Errorf("сброс интересов: %w", err)
	}
	return nil
}

// GetUserBehavior возвращает nil без ошибки, если записи ещё нет.
func (p *Postgres) GetUserBehavior(ctx context.Context, userID int64) (*domain.UserBehavior, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT user_id, total_views, total_likes, total_shares, total_comments,
       avg_session_seconds, most_active_hour, favorite_categories, updated_at
FROM user_behavior
WHERE user_id = $1
`, userID)
	var b domain.UserBehavior
	err := row.Scan(&b.UserID, &b.TotalViews, &b.TotalLikes, &b.TotalShares, &b.TotalComments,
		&b.AvgSessionSeconds, &b.MostActiveHour, &b.FavoriteCategories, &b.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "user_behavior", "user_behavior", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("поведение пользователя: %w", err)
	}
	return &b, nil
}

// UpsertUserBehavior сохраняет агрегированные счётчики пользователя.
func (p *Postgres) UpsertUserBehavior(ctx context.Context, behavior domain.UserBehavior) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO user_behavior (user_id, total_views, total_likes, total_shares, total_comments,
                           avg_session_seconds, most_active_hour, favorite_categories, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (user_id)
DO UPDATE SET total_views = EXCLUDED.total_views,
              total_likes = EXCLUDED.total_likes,
              total_shares = EXCLUDED.total_shares,
              total_comments = EXCLUDED.total_comments,
              avg_session_seconds = EXCLUDED.avg_session_seconds,
              most_active_hour = EXCLUDED.most_active_hour,
              favorite_categories = EXCLUDED.favorite_categories,
              updated_at = now()
`, behavior.UserID, behavior.TotalViews, behavior.TotalLikes, behavior.TotalShares, behavior.TotalComments,
		behavior.AvgSessionSeconds, behavior.MostActiveHour, behavior.FavoriteCategories)
	metrics.ObserveNetworkRequest("postgres", "upsert_behavior", "user_behavior", start, err)
	if err != nil {
		return fmt.Errorf("обновление поведения: %w", err)
	}
	return nil
}

// GetFeedConfiguration возвращает nil без ошибки, если записи ещё нет.
func (p *Postgres) GetFeedConfiguration(ctx context.Context, userID int64) (*domain.FeedConfiguration, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT user_id, personalization_weight, freshness_weight, popularity_weight, serendipity_weight,
       enable_serendipity, max_articles_per_feed, preferred_categories, excluded_categories, updated_at
FROM feed_configurations
WHERE user_id = $1
`, userID)
	var c domain.FeedConfiguration
	err := row.Scan(&c.UserID, &c.PersonalizationWeight, &c.FreshnessWeight, &c.PopularityWeight, &c.SerendipityWeight,
		&c.EnableSerendipity, &c.MaxArticlesPerFeed, &c.PreferredCategories, &c.ExcludedCategories, &c.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "feed_configuration", "feed_configurations", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("конфигурация ленты: %w", err)
	}
	return &c, nil
}

// UpsertFeedConfiguration сохраняет конфигурацию ленты пользователя.
func (p *Postgres) UpsertFeedConfiguration(ctx context.Context, config domain.FeedConfiguration) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO feed_configurations (user_id, personalization_weight, freshness_weight, popularity_weight,
                                 serendipity_weight, enable_serendipity, max_articles_per_feed,
                                 preferred_categories, excluded_categories, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
ON CONFLICT (user_id)
DO UPDATE SET personalization_weight = EXCLUDED.personalization_weight,
              freshness_weight = EXCLUDED.freshness_weight,
              popularity_weight = EXCLUDED.popularity_weight,
              serendipity_weight = EXCLUDED.serendipity_weight,
              enable_serendipity = EXCLUDED.enable_serendipity,
              max_articles_per_feed = EXCLUDED.max_articles_per_feed,
              preferred_categories = EXCLUDED.preferred_categories,
              excluded_categories = EXCLUDED.excluded_categories,
              updated_at = now()
`, config.UserID, config.PersonalizationWeight, config.FreshnessWeight, config.PopularityWeight,
		config.SerendipityWeight, config.EnableSerendipity, config.MaxArticlesPerFeed,
		config.PreferredCategories, config.ExcludedCategories)
	metrics.ObserveNetworkRequest("postgres", "upsert_configuration", "feed_configurations", start, err)
	if err != nil {
		return fmt.Errorf("сохранение конфигурации: %w", err)
	}
	return nil
}

// RecordInteraction сохраняет сырое событие взаимодействия.
func (p *Postgres) RecordInteraction(ctx context.Context, event domain.InteractionEvent) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO interactions (id, user_id, article_id, type, occurred_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`, event.ID, event.UserID, event.ArticleID, string(event.Type), event.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "record_interaction", "interactions", start, err)
	if err != nil {
		return fmt.Errorf("сохранение взаимодействия: %w", err)
	}
	return nil
}

// GetRecentInteractionCounts агрегирует взаимодействия по категориям статей.
func (p *Postgres) GetRecentInteractionCounts(ctx context.Context, windowDays int) ([]domain.CategoryInteractions, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT a.category,
       count(*) FILTER (WHERE i.type = 'view')  AS views,
       count(*) FILTER (WHERE i.type = 'like')  AS likes,
       count(*) FILTER (WHERE i.type = 'share') AS shares
FROM interactions i
JOIN articles a ON a.id = i.article_id
WHERE i.occurred_at > now() - make_interval(days => $1)
  AND a.category <> ''
GROUP BY a.category
`, windowDays)
	metrics.ObserveNetworkRequest("postgres", "interaction_counts", "interactions", start, err)
	if err != nil {
		return nil, fmt.Errorf("агрегация взаимодействий: %w", err)
	}
	defer rows.Close()

	var counts []domain.CategoryInteractions
	for rows.Next() {
		var c domain.CategoryInteractions
		if err := rows.Scan(&c.Category, &c.Views, &c.Likes, &c.Shares); err != nil {
			return nil, fmt.Errorf("чтение агрегата: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
