package domain

import "time"

// Article описывает статью в ленте.
type Article struct {
	ID          int64
	Title       string
	Body        string
	Category    string
	AuthorID    int64
	Likes       int64
	Views       int64
	PublishedAt time.Time
	CreatedAt   time.Time
}

// UserInterest хранит накопленный интерес пользователя к категории.
type UserInterest struct {
	UserID    int64
	Category  string
	Score     float64
	UpdatedAt time.Time
}

// UserBehavior хранит агрегированные счётчики активности пользователя.
type UserBehavior struct {
	UserID             int64
	TotalViews         int64
	TotalLikes         int64
	TotalShares        int64
	TotalComments      int64
	AvgSessionSeconds  float64
	MostActiveHour     int
	FavoriteCategories []string
	UpdatedAt          time.Time
}

// FeedConfiguration хранит персональные веса ленты.
// Веса независимы и не обязаны давать в сумме единицу.
type FeedConfiguration struct {
	UserID                int64
	PersonalizationWeight float64
	FreshnessWeight       float64
	PopularityWeight      float64
	SerendipityWeight     float64
	EnableSerendipity     bool
	MaxArticlesPerFeed    int
	PreferredCategories   []string
	ExcludedCategories    []string
	UpdatedAt             time.Time
}

// TrendingTopic описывает трендовую категорию.
type TrendingTopic struct {
	Category         string
	Score            float64
	InteractionCount int64
	ComputedAt       time.Time
}

// CategoryInteractions содержит счётчики взаимодействий по категории за окно.
type CategoryInteractions struct {
	Category string
	Views    int64
	Likes    int64
	Shares   int64
}

// RecommendedArticle оборачивает статью с результатом скоринга.
// Живёт только в рамках одного запроса.
type RecommendedArticle struct {
	Article              Article
	Score                float64
	Reason               string
	Factors              []string
	PersonalizationScore float64
	FreshnessScore       float64
	PopularityScore      float64
	IsPersonalized       bool
	IsTrending           bool
	IsFromFollowedUser   bool
}

// FeedResponse содержит готовую страницу ленты.
type FeedResponse struct {
	Articles        []RecommendedArticle
	TotalCandidates int
	Page            int
	PageSize        int
	Algorithm       FeedAlgorithm
	GenerationID    string
	GeneratedAt     time.Time
	AppliedFilters  []string
	TrendingTopics  []TrendingTopic
}

// InteractionEvent описывает событие взаимодействия пользователя со статьёй.
type InteractionEvent struct {
	ID         string          `json:"id"`
	UserID     int64           `json:"user_id"`
	ArticleID  int64           `json:"article_id"`
	Type       InteractionType `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
}
