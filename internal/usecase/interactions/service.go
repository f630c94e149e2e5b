package interactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"feed-engine/internal/domain"
	"feed-engine/internal/infra/metrics"
)

const favoriteCategoryCount = 3

// Service применяет события взаимодействий к интересам и поведению.
type Service struct {
	articles  domain.ArticleRepo
	interests domain.InterestRepo
	behavior  domain.BehaviorRepo
	raw       domain.InteractionRepo
	queue     domain.InteractionQueue
	log       zerolog.Logger
	nowFn     func() time.Time
}

// NewService создаёт сервис взаимодействий.
// queue может быть nil: тогда события применяются синхронно.
func NewService(articles domain.ArticleRepo, interests domain.InterestRepo, behavior domain.BehaviorRepo,
	raw domain.InteractionRepo, queue domain.InteractionQueue, logger zerolog.Logger) *Service {
	return &Service{
		articles:  articles,
		interests: interests,
		behavior:  behavior,
		raw:       raw,
		queue:     queue,
		log:       logger,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// WithNow подменяет источник времени для тестов.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.nowFn = now
	return s
}

// Record принимает взаимодействие пользователя со статьёй.
// При наличии очереди событие уходит в фоновую обработку; запись не должна
// задерживать отдачу ленты. При сбое публикации событие применяется на месте.
func (s *Service) Record(ctx context.Context, userID, articleID int64, interactionType domain.InteractionType) error {
	event := domain.InteractionEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		ArticleID:  articleID,
		Type:       interactionType,
		OccurredAt: s.nowFn(),
	}
	if s.queue != nil {
		err := s.queue.Publish(ctx, event)
		if err == nil {
			return nil
		}
		s.log.Warn().Err(err).Msg("очередь недоступна, событие применяется синхронно")
	}
	return s.Apply(ctx, event)
}

// Apply выполняет побочные эффекты события: сырая запись, интерес, поведение.
func (s *Service) Apply(ctx context.Context, event domain.InteractionEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.nowFn()
	}

	if err := s.raw.RecordInteraction(ctx, event); err != nil {
		return fmt.Errorf("запись взаимодействия: %w", err)
	}

	article, err := s.articles.GetArticleByID(ctx, event.ArticleID)
	if err != nil {
		return fmt.Errorf("получение статьи: %w", err)
	}
	if article == nil {
		return errors.New("взаимодействие со статьёй, которой нет")
	}

	if article.Category != "" {
		if err := s.interests.UpsertUserInterest(ctx, event.UserID, article.Category, event.Type.Weight()); err != nil {
			return fmt.Errorf("обновление интереса: %w", err)
		}
	}

	if err := s.updateBehavior(ctx, event); err != nil {
		return err
	}

	metrics.IncInteraction(string(event.Type))
	return nil
}

func (s *Service) updateBehavior(ctx context.Context, event domain.InteractionEvent) error {
	behavior, err := s.behavior.GetUserBehavior(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("чтение поведения: %w", err)
	}
	if behavior == nil {
		behavior = &domain.UserBehavior{
			UserID:         event.UserID,
			MostActiveHour: event.OccurredAt.Hour(),
		}
	}

	switch event.Type {
	case domain.InteractionView, domain.InteractionFullRead:
		behavior.TotalViews++
	case domain.InteractionLike:
		behavior.TotalLikes++
	case domain.InteractionShare:
		behavior.TotalShares++
	case domain.InteractionComment:
		behavior.TotalComments++
	default:
		behavior.TotalViews++
	}

	behavior.FavoriteCategories = s.topCategories(ctx, event.UserID)

	if err := s.behavior.UpsertUserBehavior(ctx, *behavior); err != nil {
		return fmt.Errorf("обновление поведения: %w", err)
	}
	return nil
}

// topCategories пересчитывает любимые категории по текущим интересам.
func (s *Service) topCategories(ctx context.Context, userID int64) []string {
	interests, err := s.interests.GetUserInterests(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("не удалось пересчитать любимые категории")
		return nil
	}
	categories := make([]string, 0, favoriteCategoryCount)
	for _, in := range interests {
		categories = append(categories, in.Category)
		if len(categories) == favoriteCategoryCount {
			break
		}
	}
	return categories
}

// Run потребляет события из очереди до отмены контекста.
func (s *Service) Run(ctx context.Context) error {
	if s.queue == nil {
		return errors.New("очередь взаимодействий не настроена")
	}
	for {
		event, err := s.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("чтение очереди: %w", err)
		}
		if err := s.Apply(ctx, event); err != nil {
			s.log.Error().Err(err).Str("event_id", event.ID).Msg("событие не применено")
		}
	}
}
