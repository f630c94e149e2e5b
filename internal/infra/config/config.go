package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Feed struct {
		PageSizeDefault int `envconfig:"FEED_PAGE_SIZE_DEFAULT" default:"20"`
		PageSizeMax     int `envconfig:"FEED_PAGE_SIZE_MAX" default:"100"`
		PerCategory     int `envconfig:"FEED_CANDIDATES_PER_CATEGORY" default:"10"`
		SourceCount     int `envconfig:"FEED_CANDIDATES_PER_SOURCE" default:"20"`
	} `envconfig:""`

	Trends struct {
		WindowDays      int `envconfig:"TRENDS_WINDOW_DAYS" default:"7"`
		TopicCount      int `envconfig:"TRENDS_TOPIC_COUNT" default:"10"`
		RefreshMinutes  int `envconfig:"TRENDS_REFRESH_MINUTES" default:"15"`
		SnapshotTTLMins int `envconfig:"TRENDS_SNAPSHOT_TTL_MINUTES" default:"60"`
	} `envconfig:""`

	Queues struct {
		Interactions string `envconfig:"INTERACTIONS_QUEUE_KEY" default:"interaction_events"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
