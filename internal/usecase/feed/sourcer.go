package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"feed-engine/internal/domain"
	"feed-engine/internal/infra/metrics"
)

const topInterestCount = 3

// Sourcer собирает пул кандидатов из независимых источников.
type Sourcer struct {
	articles    domain.ArticleRepo
	perCategory int
	perSource   int
	log         zerolog.Logger
}

// NewSourcer создаёт сборщик кандидатов.
func NewSourcer(articles domain.ArticleRepo, perCategory, perSource int, logger zerolog.Logger) *Sourcer {
	if perCategory <= 0 {
		perCategory = 10
	}
	if perSource <= 0 {
		perSource = 20
	}
	return &Sourcer{articles: articles, perCategory: perCategory, perSource: perSource, log: logger}
}

// Gather опрашивает источники параллельно и возвращает дедуплицированный пул.
// Отказ отдельного источника не срывает запрос: лента собирается из остальных.
// Второе значение — число отказавших источников, по нему сервис отличает
// «данных нет» от «хранилище недоступно».
func (s *Sourcer) Gather(ctx context.Context, interests []domain.UserInterest, cfg domain.FeedConfiguration) ([]domain.Article, int) {
	type sourceFn struct {
		name string
		run  func(context.Context) ([]domain.Article, error)
	}

	sources := []sourceFn{
		{name: "interest", run: func(ctx context.Context) ([]domain.Article, error) {
			return s.fromInterests(ctx, interests, cfg.PreferredCategories)
		}},
		{name: "trending", run: func(ctx context.Context) ([]domain.Article, error) {
			return s.articles.GetTrendingArticles(ctx, s.perSource)
		}},
		{name: "popular", run: func(ctx context.Context) ([]domain.Article, error) {
			return s.articles.GetPopularArticles(ctx, s.perSource)
		}},
	}
	if cfg.EnableSerendipity {
		sources = append(sources, sourceFn{name: "serendipity", run: func(ctx context.Context) ([]domain.Article, error) {
			return s.fromOutsideInterests(ctx, interests)
		}})
	}

	results := make([][]domain.Article, len(sources))
	failures := make([]bool, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(idx int, src sourceFn) {
			defer wg.Done()
			articles, err := src.run(ctx)
			if err != nil {
				metrics.IncSourceError(src.name)
				s.log.Warn().Err(err).Str("source", src.name).Msg("источник кандидатов недоступен")
				failures[idx] = true
				return
			}
			results[idx] = articles
		}(i, src)
	}
	wg.Wait()

	failed := 0
	for _, bad := range failures {
		if bad {
			failed++
		}
	}

	excluded := make(map[string]struct{}, len(cfg.ExcludedCategories))
	for _, category := range cfg.ExcludedCategories {
		excluded[category] = struct{}{}
	}

	seen := make(map[int64]struct{})
	var candidates []domain.Article
	for _, batch := range results {
		for _, article := range batch {
			if _, ok := seen[article.ID]; ok {
				continue
			}
			if _, ok := excluded[article.Category]; ok {
				continue
			}
			seen[article.ID] = struct{}{}
			candidates = append(candidates, article)
		}
	}

	metrics.CandidatesGathered.Observe(float64(len(candidates)))
	return candidates, failed
}

// fromInterests собирает свежие статьи по трём сильнейшим интересам
// и предпочитаемым категориям из конфигурации.
func (s *Sourcer) fromInterests(ctx context.Context, interests []domain.UserInterest, preferred []string) ([]domain.Article, error) {
	sorted := make([]domain.UserInterest, len(interests))
	copy(sorted, interests)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > topInterestCount {
		sorted = sorted[:topInterestCount]
	}

	categories := make([]string, 0, len(sorted)+len(preferred))
	seen := make(map[string]struct{})
	for _, in := range sorted {
		if _, ok := seen[in.Category]; !ok {
			seen[in.Category] = struct{}{}
			categories = append(categories, in.Category)
		}
	}
	for _, category := range preferred {
		if _, ok := seen[category]; !ok {
			seen[category] = struct{}{}
			categories = append(categories, category)
		}
	}

	var articles []domain.Article
	for _, category := range categories {
		batch, err := s.articles.GetArticlesByCategory(ctx, category, s.perCategory)
		if err != nil {
			return nil, err
		}
		articles = append(articles, batch...)
	}
	return articles, nil
}

// fromOutsideInterests возвращает статьи из категорий, которых нет в интересах.
// Это и есть механизм противодействия информационному пузырю.
func (s *Sourcer) fromOutsideInterests(ctx context.Context, interests []domain.UserInterest) ([]domain.Article, error) {
	known := make(map[string]struct{}, len(interests))
	for _, in := range interests {
		known[in.Category] = struct{}{}
	}
	batch, err := s.articles.GetRandomQualityArticles(ctx, s.perSource)
	if err != nil {
		return nil, err
	}
	outside := make([]domain.Article, 0, len(batch))
	for _, article := range batch {
		if _, ok := known[article.Category]; ok {
			continue
		}
		outside = append(outside, article)
	}
	return outside, nil
}
