package feedconfig

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"feed-engine/internal/domain"
)

// Store отвечает за персональные конфигурации лент.
// Значения по умолчанию передаются явно, а не берутся из глобальной константы.
type Store struct {
	repo     domain.ConfigRepo
	defaults domain.FeedDefaults
	log      zerolog.Logger
}

// NewStore создаёт хранилище конфигураций.
func NewStore(repo domain.ConfigRepo, defaults domain.FeedDefaults, logger zerolog.Logger) *Store {
	return &Store{repo: repo, defaults: defaults, log: logger}
}

// Get возвращает конфигурацию пользователя.
// При первом обращении сохраняет и возвращает значения по умолчанию.
// Испорченные веса исправляются на лету, запись не отклоняется.
func (s *Store) Get(ctx context.Context, userID int64) (domain.FeedConfiguration, error) {
	stored, err := s.repo.GetFeedConfiguration(ctx, userID)
	if err != nil {
		return domain.FeedConfiguration{}, fmt.Errorf("чтение конфигурации: %w", err)
	}
	if stored == nil {
		cfg := s.defaults.Configuration(userID)
		if err := s.repo.UpsertFeedConfiguration(ctx, cfg); err != nil {
			return domain.FeedConfiguration{}, fmt.Errorf("сохранение конфигурации по умолчанию: %w", err)
		}
		return cfg, nil
	}

	cfg, corrected := stored.Clamped()
	if corrected {
		s.log.Warn().Int64("user_id", userID).Msg("веса конфигурации вне диапазона, исправлены")
		if err := s.repo.UpsertFeedConfiguration(ctx, cfg); err != nil {
			return domain.FeedConfiguration{}, fmt.Errorf("сохранение исправленной конфигурации: %w", err)
		}
	}
	return cfg, nil
}

// Update сохраняет конфигурацию, предварительно приводя веса к диапазону.
func (s *Store) Update(ctx context.Context, cfg domain.FeedConfiguration) error {
	clamped, corrected := cfg.Clamped()
	if corrected {
		s.log.Warn().Int64("user_id", cfg.UserID).Msg("веса конфигурации вне диапазона, исправлены перед сохранением")
	}
	if err := s.repo.UpsertFeedConfiguration(ctx, clamped); err != nil {
		return fmt.Errorf("сохранение конфигурации: %w", err)
	}
	return nil
}

// Reset возвращает пользователю конфигурацию по умолчанию.
func (s *Store) Reset(ctx context.Context, userID int64) error {
	if err := s.repo.UpsertFeedConfiguration(ctx, s.defaults.Configuration(userID)); err != nil {
		return fmt.Errorf("сброс конфигурации: %w", err)
	}
	return nil
}
