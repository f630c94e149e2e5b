package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"feed-engine/internal/adapters/ranker"
	"feed-engine/internal/domain"
	"feed-engine/internal/infra/metrics"
	"feed-engine/internal/usecase/feedconfig"
)

// ErrArticleNotFound возвращается, если статья не существует.
var ErrArticleNotFound = errors.New("статья не найдена")

const fallbackScore = 0.3

const reasonFallback = "недавние статьи"

// Service реализует сборку персонализированных лент.
type Service struct {
	articles  domain.ArticleRepo
	interests domain.InterestRepo
	behavior  domain.BehaviorRepo
	configs   *feedconfig.Store
	trends    domain.TrendProvider
	sourcer   *Sourcer
	scorer    *Scorer
	ranker    *ranker.DiversityRanker
	log       zerolog.Logger
	nowFn     func() time.Time
}

var _ domain.FeedService = (*Service)(nil)

// NewService создаёт сервис лент.
func NewService(articles domain.ArticleRepo, interests domain.InterestRepo, behavior domain.BehaviorRepo,
	configs *feedconfig.Store, trends domain.TrendProvider, sourcer *Sourcer, diversity *ranker.DiversityRanker,
	logger zerolog.Logger) *Service {
	return &Service{
		articles:  articles,
		interests: interests,
		behavior:  behavior,
		configs:   configs,
		trends:    trends,
		sourcer:   sourcer,
		scorer:    NewScorer(),
		ranker:    diversity,
		log:       logger,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// WithNow подменяет источник времени. Нужен тестам на детерминизм.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.nowFn = now
	return s
}

// GetPersonalizedFeed собирает персонализированную ленту пользователя.
func (s *Service) GetPersonalizedFeed(ctx context.Context, userID int64, page, pageSize int) (domain.FeedResponse, error) {
	return s.GetFeedByAlgorithm(ctx, userID, domain.AlgorithmPersonalized, page, pageSize)
}

// GetFeedByAlgorithm собирает ленту выбранной стратегией.
// Ошибка возвращается только при неизвестном алгоритме: деградация
// хранилища приводит к запасной ленте, а не к отказу.
func (s *Service) GetFeedByAlgorithm(ctx context.Context, userID int64, algorithm domain.FeedAlgorithm, page, pageSize int) (domain.FeedResponse, error) {
	start := time.Now()
	defer metrics.ObserveFeedBuild(string(algorithm), start)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = domain.StandardFeedDefaults().MaxArticlesPerFeed
	}

	cfg, cfgErr := s.configs.Get(ctx, userID)
	if cfgErr != nil {
		s.log.Warn().Err(cfgErr).Int64("user_id", userID).Msg("конфигурация недоступна, используются значения по умолчанию")
		cfg = domain.StandardFeedDefaults().Configuration(userID)
	}

	interests, err := s.interests.GetUserInterests(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("интересы недоступны, холодный старт")
		interests = nil
	}
	behavior, err := s.behavior.GetUserBehavior(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("поведение недоступно")
		behavior = nil
	}

	var candidates []domain.Article
	sourcesFailed := false
	switch algorithm {
	case domain.AlgorithmPersonalized:
		var failed int
		candidates, failed = s.sourcer.Gather(ctx, interests, cfg)
		sourcesFailed = failed > 0
	case domain.AlgorithmTrending:
		candidates, sourcesFailed = s.singleSource(ctx, "trending", func() ([]domain.Article, error) {
			return s.articles.GetTrendingArticles(ctx, s.poolSize(cfg))
		})
	case domain.AlgorithmPopular:
		candidates, sourcesFailed = s.singleSource(ctx, "popular", func() ([]domain.Article, error) {
			return s.articles.GetPopularArticles(ctx, s.poolSize(cfg))
		})
	case domain.AlgorithmRecent:
		candidates, sourcesFailed = s.singleSource(ctx, "recent", func() ([]domain.Article, error) {
			return s.articles.ListRecentArticles(ctx, s.poolSize(cfg))
		})
	case domain.AlgorithmFollowing:
		candidates = s.fromFollowed(ctx, behavior)
	default:
		return domain.FeedResponse{}, domain.ErrUnknownAlgorithm
	}

	if len(candidates) == 0 && (sourcesFailed || cfgErr != nil) {
		// Хранилище целиком недоступно: отдаём запасную ленту.
		return s.fallbackFeed(ctx, page, pageSize), nil
	}

	now := s.nowFn()
	interestsByCategory := interestMap(interests)
	scored := make([]domain.RecommendedArticle, 0, len(candidates))
	for _, article := range candidates {
		rec := s.scorer.Score(article, interestsByCategory, behavior, cfg, now)
		if algorithm == domain.AlgorithmFollowing {
			rec.IsFromFollowedUser = true
		}
		scored = append(scored, rec)
	}

	ranked := s.ranker.Rank(scored, cfg.MaxArticlesPerFeed, page, pageSize)

	label := algorithm
	if algorithm == domain.AlgorithmPersonalized && len(interests) == 0 {
		label = domain.AlgorithmAnonymous
	}

	return domain.FeedResponse{
		Articles:        ranked,
		TotalCandidates: len(candidates),
		Page:            page,
		PageSize:        pageSize,
		Algorithm:       label,
		GenerationID:    uuid.NewString(),
		GeneratedAt:     now,
		AppliedFilters:  describeFilters(cfg),
		TrendingTopics:  s.trendingSnapshot(ctx),
	}, nil
}

// GetSimilarArticles подбирает статьи той же категории, отсортированные по оценке.
func (s *Service) GetSimilarArticles(ctx context.Context, articleID, userID int64, count int) ([]domain.RecommendedArticle, error) {
	article, err := s.articles.GetArticleByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("получение статьи: %w", err)
	}
	if article == nil {
		return nil, ErrArticleNotFound
	}
	if count <= 0 {
		count = 10
	}

	candidates, err := s.articles.GetArticlesByCategory(ctx, article.Category, count+1)
	if err != nil {
		return nil, fmt.Errorf("похожие статьи: %w", err)
	}

	cfg, err := s.configs.Get(ctx, userID)
	if err != nil {
		cfg = domain.StandardFeedDefaults().Configuration(userID)
	}
	interests, err := s.interests.GetUserInterests(ctx, userID)
	if err != nil {
		interests = nil
	}
	behavior, err := s.behavior.GetUserBehavior(ctx, userID)
	if err != nil {
		behavior = nil
	}

	now := s.nowFn()
	interestsByCategory := interestMap(interests)
	similar := make([]domain.RecommendedArticle, 0, count)
	for _, candidate := range candidates {
		if candidate.ID == articleID {
			continue
		}
		similar = append(similar, s.scorer.Score(candidate, interestsByCategory, behavior, cfg, now))
	}
	sort.SliceStable(similar, func(i, j int) bool { return similar[i].Score > similar[j].Score })
	if len(similar) > count {
		similar = similar[:count]
	}
	return similar, nil
}

// ResetPersonalization очищает интересы и возвращает конфигурацию по умолчанию.
func (s *Service) ResetPersonalization(ctx context.Context, userID int64) error {
	if err := s.interests.DeleteUserInterests(ctx, userID); err != nil {
		return fmt.Errorf("сброс интересов: %w", err)
	}
	if err := s.configs.Reset(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", userID).Msg("персонализация сброшена")
	return nil
}

func (s *Service) poolSize(cfg domain.FeedConfiguration) int {
	size := cfg.MaxArticlesPerFeed * 2
	if size <= 0 {
		size = domain.StandardFeedDefaults().MaxArticlesPerFeed * 2
	}
	return size
}

func (s *Service) singleSource(ctx context.Context, name string, fetch func() ([]domain.Article, error)) ([]domain.Article, bool) {
	articles, err := fetch()
	if err != nil {
		metrics.IncSourceError(name)
		s.log.Warn().Err(err).Str("source", name).Msg("источник недоступен")
		return nil, true
	}
	return articles, false
}

// fromFollowed приближает ленту подписок через любимые категории пользователя:
// отдельного графа подписок у движка нет, ближайший сигнал — поведение.
func (s *Service) fromFollowed(ctx context.Context, behavior *domain.UserBehavior) []domain.Article {
	if behavior == nil || len(behavior.FavoriteCategories) == 0 {
		articles, _ := s.singleSource(ctx, "following", func() ([]domain.Article, error) {
			return s.articles.GetPopularArticles(ctx, domain.StandardFeedDefaults().MaxArticlesPerFeed*2)
		})
		return articles
	}
	var articles []domain.Article
	for _, category := range behavior.FavoriteCategories {
		batch, err := s.articles.GetArticlesByCategory(ctx, category, 10)
		if err != nil {
			metrics.IncSourceError("following")
			s.log.Warn().Err(err).Str("category", category).Msg("категория подписок недоступна")
			continue
		}
		articles = append(articles, batch...)
	}
	return articles
}

// fallbackFeed строит деградированную, но корректную ленту из свежих статей.
func (s *Service) fallbackFeed(ctx context.Context, page, pageSize int) domain.FeedResponse {
	metrics.FeedFallbacksTotal.Inc()
	now := s.nowFn()
	resp := domain.FeedResponse{
		Page:         page,
		PageSize:     pageSize,
		Algorithm:    domain.AlgorithmFallback,
		GenerationID: uuid.NewString(),
		GeneratedAt:  now,
	}

	recent, err := s.articles.ListRecentArticles(ctx, pageSize*2)
	if err != nil {
		s.log.Error().Err(err).Msg("запасная лента недоступна, ответ пустой")
		return resp
	}

	scored := make([]domain.RecommendedArticle, 0, len(recent))
	for _, article := range recent {
		scored = append(scored, domain.RecommendedArticle{
			Article: article,
			Score:   fallbackScore,
			Reason:  reasonFallback,
			Factors: []string{reasonFallback},
		})
	}
	resp.TotalCandidates = len(scored)
	resp.Articles = ranker.Paginate(scored, page, pageSize)
	return resp
}

func (s *Service) trendingSnapshot(ctx context.Context) []domain.TrendingTopic {
	if s.trends == nil {
		return nil
	}
	topics, err := s.trends.Topics(ctx, 10)
	if err != nil {
		s.log.Warn().Err(err).Msg("снимок трендов недоступен")
		return nil
	}
	return topics
}

func describeFilters(cfg domain.FeedConfiguration) []string {
	var filters []string
	if len(cfg.ExcludedCategories) > 0 {
		filters = append(filters, "исключены категории: "+strings.Join(cfg.ExcludedCategories, ", "))
	}
	if len(cfg.PreferredCategories) > 0 {
		filters = append(filters, "приоритет категорий: "+strings.Join(cfg.PreferredCategories, ", "))
	}
	if !cfg.EnableSerendipity {
		filters = append(filters, "серендипити отключено")
	}
	return filters
}
