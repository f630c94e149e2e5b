package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"feed-engine/internal/domain"
	"feed-engine/internal/infra/metrics"
)

// ErrTrendsUnavailable возвращается при отказе источника агрегатов.
// Отличается от пустых данных: пустота — это холодный старт, а не сбой.
var ErrTrendsUnavailable = errors.New("источник трендов недоступен")

const (
	weightView  = 1.0
	weightLike  = 3.0
	weightShare = 5.0

	decayFloor       = 0.1
	decayWindowHours = 24.0

	snapshotCacheKey = "trends:snapshot"
	snapshotCacheTTL = time.Hour
)

// topicState хранит тему вместе с исходной оценкой до затухания.
type topicState struct {
	Topic domain.TrendingTopic `json:"topic"`
	Raw   float64              `json:"raw"`
}

// Service считает трендовые темы по взаимодействиям с затуханием по времени.
// Чтение снимка никогда не блокируется пересчётом.
type Service struct {
	interactions domain.InteractionRepo
	cache        domain.Cache
	log          zerolog.Logger
	windowDays   int

	mu       sync.RWMutex
	snapshot []topicState

	nowFn func() time.Time
}

var _ domain.TrendProvider = (*Service)(nil)

// NewService создаёт сервис трендов.
func NewService(interactions domain.InteractionRepo, cache domain.Cache, windowDays int, logger zerolog.Logger) *Service {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Service{
		interactions: interactions,
		cache:        cache,
		log:          logger,
		windowDays:   windowDays,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// WithNow подменяет источник времени для тестов затухания.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.nowFn = now
	return s
}

// ComputeTrendingTopics пересчитывает темы целиком по окну взаимодействий.
// Пустые агрегаты дают стартовый набор тем, ошибка хранилища — ошибку.
func (s *Service) ComputeTrendingTopics(ctx context.Context, count int) ([]domain.TrendingTopic, error) {
	start := time.Now()
	counts, err := s.interactions.GetRecentInteractionCounts(ctx, s.windowDays)
	metrics.TrendRefreshSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TrendRefreshErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrTrendsUnavailable, err)
	}

	now := s.nowFn()
	if len(counts) == 0 {
		topics := s.coldStartTrendingTopics(now)
		s.storeSnapshot(ctx, toStates(topics))
		return limitTopics(topics, count), nil
	}

	states := make([]topicState, 0, len(counts))
	for _, c := range counts {
		raw := float64(c.Views)*weightView + float64(c.Likes)*weightLike + float64(c.Shares)*weightShare
		states = append(states, topicState{
			Raw: raw,
			Topic: domain.TrendingTopic{
				Category:         c.Category,
				Score:            raw,
				InteractionCount: c.Views + c.Likes + c.Shares,
				ComputedAt:       now,
			},
		})
	}
	sort.SliceStable(states, func(i, j int) bool { return states[i].Topic.Score > states[j].Topic.Score })

	s.storeSnapshot(ctx, states)
	return limitTopics(statesToTopics(states), count), nil
}

// Refresh применяет затухание к ранее рассчитанному снимку.
// Пересчёт по сырым данным не выполняется: это дешёвый batch-проход.
func (s *Service) Refresh(ctx context.Context) {
	now := s.nowFn()

	s.mu.Lock()
	for i := range s.snapshot {
		ageHours := now.Sub(s.snapshot[i].Topic.ComputedAt).Hours()
		factor := 1 - ageHours/decayWindowHours
		if factor < decayFloor {
			// Пол не даёт устаревшей теме обнулиться: она может вернуться.
			factor = decayFloor
		}
		s.snapshot[i].Topic.Score = s.snapshot[i].Raw * factor
	}
	states := make([]topicState, len(s.snapshot))
	copy(states, s.snapshot)
	sort.SliceStable(states, func(i, j int) bool { return states[i].Topic.Score > states[j].Topic.Score })
	s.snapshot = states
	s.mu.Unlock()

	s.persistSnapshot(ctx, states)
}

// Topics возвращает последний рассчитанный снимок трендов.
func (s *Service) Topics(ctx context.Context, count int) ([]domain.TrendingTopic, error) {
	s.mu.RLock()
	states := s.snapshot
	s.mu.RUnlock()

	if len(states) == 0 {
		states = s.loadCachedSnapshot(ctx)
	}
	if len(states) == 0 {
		return limitTopics(s.coldStartTrendingTopics(s.nowFn()), count), nil
	}
	return limitTopics(statesToTopics(states), count), nil
}

// coldStartTrendingTopics возвращает стартовый набор тем для пустой системы.
// Явный именованный путь, чтобы его можно было проверить изолированно.
func (s *Service) coldStartTrendingTopics(now time.Time) []domain.TrendingTopic {
	categories := []struct {
		name  string
		score float64
	}{
		{"Технологии", 10},
		{"Мир", 8},
		{"Спорт", 6},
		{"Наука", 5},
		{"Культура", 4},
	}
	topics := make([]domain.TrendingTopic, 0, len(categories))
	for _, c := range categories {
		topics = append(topics, domain.TrendingTopic{
			Category:   c.name,
			Score:      c.score,
			ComputedAt: now,
		})
	}
	return topics
}

func (s *Service) storeSnapshot(ctx context.Context, states []topicState) {
	s.mu.Lock()
	s.snapshot = states
	s.mu.Unlock()
	s.persistSnapshot(ctx, states)
}

func (s *Service) persistSnapshot(ctx context.Context, states []topicState) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(states)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, snapshotCacheKey, payload, snapshotCacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("тренды: не удалось сохранить снимок в кэш")
	}
}

func (s *Service) loadCachedSnapshot(ctx context.Context) []topicState {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, snapshotCacheKey)
	if err != nil {
		return nil
	}
	var states []topicState
	if err := json.Unmarshal(payload, &states); err != nil {
		return nil
	}
	s.mu.Lock()
	if len(s.snapshot) == 0 {
		s.snapshot = states
	}
	s.mu.Unlock()
	return states
}

func toStates(topics []domain.TrendingTopic) []topicState {
	states := make([]topicState, 0, len(topics))
	for _, t := range topics {
		states = append(states, topicState{Topic: t, Raw: t.Score})
	}
	return states
}

func statesToTopics(states []topicState) []domain.TrendingTopic {
	topics := make([]domain.TrendingTopic, 0, len(states))
	for _, st := range states {
		topics = append(topics, st.Topic)
	}
	return topics
}

func limitTopics(topics []domain.TrendingTopic, count int) []domain.TrendingTopic {
	if count > 0 && len(topics) > count {
		return topics[:count]
	}
	return topics
}
