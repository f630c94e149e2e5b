package feedconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"feed-engine/internal/domain"
)

type stubConfigRepo struct {
	stored map[int64]*domain.FeedConfiguration
	err    error
}

func newStubConfigRepo() *stubConfigRepo {
	return &stubConfigRepo{stored: make(map[int64]*domain.FeedConfiguration)}
}

func (s *stubConfigRepo) GetFeedConfiguration(ctx context.Context, userID int64) (*domain.FeedConfiguration, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stored[userID], nil
}

func (s *stubConfigRepo) UpsertFeedConfiguration(ctx context.Context, config domain.FeedConfiguration) error {
	if s.err != nil {
		return s.err
	}
	s.stored[config.UserID] = &config
	return nil
}

func newStore(repo *stubConfigRepo) *Store {
	return NewStore(repo, domain.StandardFeedDefaults(), zerolog.Nop())
}

func TestGetPersistsDefaultsOnFirstAccess(t *testing.T) {
	repo := newStubConfigRepo()
	store := newStore(repo)

	cfg, err := store.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.PersonalizationWeight != 0.4 || cfg.MaxArticlesPerFeed != 20 {
		t.Fatalf("первое обращение должно вернуть значения по умолчанию: %+v", cfg)
	}
	if repo.stored[7] == nil {
		t.Fatalf("значения по умолчанию должны быть сохранены")
	}
}

func TestGetRepairsCorruptWeights(t *testing.T) {
	repo := newStubConfigRepo()
	repo.stored[3] = &domain.FeedConfiguration{
		UserID:                3,
		PersonalizationWeight: -0.5,
		FreshnessWeight:       1.7,
		PopularityWeight:      0.2,
		SerendipityWeight:     0.1,
		MaxArticlesPerFeed:    0,
	}
	store := newStore(repo)

	cfg, err := store.Get(context.Background(), 3)
	if err != nil {
		t.Fatalf("испорченная запись исправляется, а не отклоняется: %v", err)
	}
	if cfg.PersonalizationWeight != 0 || cfg.FreshnessWeight != 1 {
		t.Fatalf("веса должны быть приведены к диапазону [0, 1]: %+v", cfg)
	}
	if cfg.MaxArticlesPerFeed != 20 {
		t.Fatalf("нулевой размер ленты заменяется значением по умолчанию")
	}
	if repo.stored[3].PersonalizationWeight != 0 {
		t.Fatalf("исправленная конфигурация должна быть перезаписана в хранилище")
	}
}

func TestGetStoreError(t *testing.T) {
	repo := newStubConfigRepo()
	repo.err = errors.New("база недоступна")
	store := newStore(repo)

	if _, err := store.Get(context.Background(), 1); err == nil {
		t.Fatalf("отказ хранилища должен возвращаться вызывающему")
	}
}

func TestUpdateClampsBeforeSave(t *testing.T) {
	repo := newStubConfigRepo()
	store := newStore(repo)

	cfg := domain.StandardFeedDefaults().Configuration(5)
	cfg.SerendipityWeight = 2.5
	if err := store.Update(context.Background(), cfg); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if repo.stored[5].SerendipityWeight != 1 {
		t.Fatalf("вес должен быть обрезан перед сохранением, получили %v", repo.stored[5].SerendipityWeight)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	repo := newStubConfigRepo()
	custom := domain.StandardFeedDefaults().Configuration(9)
	custom.PersonalizationWeight = 0.95
	repo.stored[9] = &custom
	store := newStore(repo)

	if err := store.Reset(context.Background(), 9); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if repo.stored[9].PersonalizationWeight != 0.4 {
		t.Fatalf("сброс должен вернуть значения по умолчанию: %+v", repo.stored[9])
	}
}
