package interactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"feed-engine/internal/domain"
)

var eventNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

type stubStore struct {
	articles  map[int64]*domain.Article
	interests map[string]float64
	behavior  *domain.UserBehavior
	events    []domain.InteractionEvent
}

func newStubStore() *stubStore {
	return &stubStore{
		articles:  make(map[int64]*domain.Article),
		interests: make(map[string]float64),
	}
}

func (s *stubStore) GetArticleByID(ctx context.Context, id int64) (*domain.Article, error) {
	return s.articles[id], nil
}

func (s *stubStore) GetArticlesByCategory(ctx context.Context, category string, count int) ([]domain.Article, error) {
	return nil, nil
}

func (s *stubStore) GetTrendingArticles(ctx context.Context, count int) ([]domain.Article, error) {
	return nil, nil
}

func (s *stubStore) GetPopularArticles(ctx context.Context, count int) ([]domain.Article, error) {
	return nil, nil
}

func (s *stubStore) GetRandomQualityArticles(ctx context.Context, count int) ([]domain.Article, error) {
	return nil, nil
}

func (s *stubStore) ListRecentArticles(ctx context.Context, count int) ([]domain.Article, error) {
	return nil, nil
}

func (s *stubStore) GetUserInterests(ctx context.Context, userID int64) ([]domain.UserInterest, error) {
	interests := make([]domain.UserInterest, 0, len(s.interests))
	for category, score := range s.interests {
		interests = append(interests, domain.UserInterest{UserID: userID, Category: category, Score: score})
	}
	return interests, nil
}

func (s *stubStore) UpsertUserInterest(ctx context.Context, userID int64, category string, scoreDelta float64) error {
	s.interests[category] += scoreDelta
	return nil
}

func (s *stubStore) DeleteUserInterests(ctx context.Context, userID int64) error {
	s.interests = make(map[string]float64)
	return nil
}

func (s *stubStore) GetUserBehavior(ctx context.Context, userID int64) (*domain.UserBehavior, error) {
	return s.behavior, nil
}

func (s *stubStore) UpsertUserBehavior(ctx context.Context, behavior domain.UserBehavior) error {
	s.behavior = &behavior
	return nil
}

func (s *stubStore) RecordInteraction(ctx context.Context, event domain.InteractionEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubStore) GetRecentInteractionCounts(ctx context.Context, windowDays int) ([]domain.CategoryInteractions, error) {
	return nil, nil
}

type stubQueue struct {
	published []domain.InteractionEvent
	err       error
}

func (q *stubQueue) Publish(ctx context.Context, event domain.InteractionEvent) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, event)
	return nil
}

func (q *stubQueue) Pop(ctx context.Context) (domain.InteractionEvent, error) {
	return domain.InteractionEvent{}, context.Canceled
}

func newInteractionService(store *stubStore, queue domain.InteractionQueue) *Service {
	return NewService(store, store, store, store, queue, zerolog.Nop()).
		WithNow(func() time.Time { return eventNow })
}

func TestApplyLikeIncrementsInterest(t *testing.T) {
	store := newStubStore()
	store.articles[1] = &domain.Article{ID: 1, Category: "Здоровье"}
	service := newInteractionService(store, nil)

	err := service.Record(context.Background(), 7, 1, domain.InteractionLike)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if store.interests["Здоровье"] != 0.3 {
		t.Fatalf("лайк должен добавить ровно 0.3 к интересу, получили %v", store.interests["Здоровье"])
	}
	if len(store.events) != 1 {
		t.Fatalf("сырое событие должно быть записано")
	}
	if store.events[0].ID == "" {
		t.Fatalf("событие должно получить идентификатор")
	}
}

func TestApplyUpdatesBehaviorCounters(t *testing.T) {
	store := newStubStore()
	store.articles[1] = &domain.Article{ID: 1, Category: "Спорт"}
	service := newInteractionService(store, nil)

	types := []domain.InteractionType{
		domain.InteractionView,
		domain.InteractionLike,
		domain.InteractionShare,
		domain.InteractionComment,
		domain.InteractionFullRead,
	}
	for _, interactionType := range types {
		if err := service.Record(context.Background(), 7, 1, interactionType); err != nil {
			t.Fatalf("неожиданная ошибка для %q: %v", interactionType, err)
		}
	}

	behavior := store.behavior
	if behavior == nil {
		t.Fatalf("поведение должно быть создано")
	}
	// view и full_read оба считаются просмотрами.
	if behavior.TotalViews != 2 {
		t.Fatalf("ожидали 2 просмотра, получили %d", behavior.TotalViews)
	}
	if behavior.TotalLikes != 1 || behavior.TotalShares != 1 || behavior.TotalComments != 1 {
		t.Fatalf("счётчики разошлись: %+v", behavior)
	}
	if behavior.MostActiveHour != eventNow.Hour() {
		t.Fatalf("первый контакт задаёт самый активный час, получили %d", behavior.MostActiveHour)
	}
	if len(behavior.FavoriteCategories) == 0 {
		t.Fatalf("любимые категории должны пересчитываться")
	}
}

func TestApplyUnknownTypeCountsAsView(t *testing.T) {
	store := newStubStore()
	store.articles[1] = &domain.Article{ID: 1, Category: "Мир"}
	service := newInteractionService(store, nil)

	if err := service.Record(context.Background(), 7, 1, domain.InteractionType("hover")); err != nil {
		t.Fatalf("неизвестный тип не должен отклоняться: %v", err)
	}
	if store.behavior.TotalViews != 1 {
		t.Fatalf("неизвестный тип учитывается как просмотр")
	}
	if store.interests["Мир"] != 0.1 {
		t.Fatalf("неизвестный тип получает минимальный вес, получили %v", store.interests["Мир"])
	}
}

func TestApplyMissingArticle(t *testing.T) {
	store := newStubStore()
	service := newInteractionService(store, nil)

	if err := service.Record(context.Background(), 7, 404, domain.InteractionLike); err == nil {
		t.Fatalf("взаимодействие с несуществующей статьёй должно быть ошибкой")
	}
	if len(store.interests) != 0 {
		t.Fatalf("интересы не должны меняться при ошибке")
	}
}

func TestRecordPublishesToQueue(t *testing.T) {
	store := newStubStore()
	store.articles[1] = &domain.Article{ID: 1, Category: "Наука"}
	queue := &stubQueue{}
	service := newInteractionService(store, queue)

	if err := service.Record(context.Background(), 7, 1, domain.InteractionView); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(queue.published) != 1 {
		t.Fatalf("событие должно уйти в очередь")
	}
	if len(store.events) != 0 {
		t.Fatalf("при живой очереди событие не применяется синхронно")
	}
	event := queue.published[0]
	if event.UserID != 7 || event.ArticleID != 1 || event.Type != domain.InteractionView {
		t.Fatalf("в очередь ушло искажённое событие: %+v", event)
	}
}

func TestRecordFallsBackWhenQueueDown(t *testing.T) {
	store := newStubStore()
	store.articles[1] = &domain.Article{ID: 1, Category: "Наука"}
	queue := &stubQueue{err: errors.New("брокер недоступен")}
	service := newInteractionService(store, queue)

	if err := service.Record(context.Background(), 7, 1, domain.InteractionLike); err != nil {
		t.Fatalf("сбой очереди не должен терять событие: %v", err)
	}
	if store.interests["Наука"] != 0.3 {
		t.Fatalf("событие должно примениться синхронно при сбое очереди")
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	store := newStubStore()
	service := newInteractionService(store, &stubQueue{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); err != nil {
		t.Fatalf("отмена контекста — штатная остановка, получили %v", err)
	}
}

func TestRunWithoutQueue(t *testing.T) {
	service := newInteractionService(newStubStore(), nil)
	if err := service.Run(context.Background()); err == nil {
		t.Fatalf("без очереди потребитель не может работать")
	}
}
