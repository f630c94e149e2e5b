package domain

// FeedDefaults задаёт значения конфигурации для пользователей без настроек.
// Передаётся явно, чтобы тесты могли подставить свои значения.
type FeedDefaults struct {
	PersonalizationWeight float64
	FreshnessWeight       float64
	PopularityWeight      float64
	SerendipityWeight     float64
	EnableSerendipity     bool
	MaxArticlesPerFeed    int
}

// StandardFeedDefaults возвращает системные значения по умолчанию.
func StandardFeedDefaults() FeedDefaults {
	return FeedDefaults{
		PersonalizationWeight: 0.4,
		FreshnessWeight:       0.3,
		PopularityWeight:      0.2,
		SerendipityWeight:     0.1,
		EnableSerendipity:     true,
		MaxArticlesPerFeed:    20,
	}
}

// Configuration строит конфигурацию пользователя из значений по умолчанию.
func (d FeedDefaults) Configuration(userID int64) FeedConfiguration {
	return FeedConfiguration{
		UserID:                userID,
		PersonalizationWeight: d.PersonalizationWeight,
		FreshnessWeight:       d.FreshnessWeight,
		PopularityWeight:      d.PopularityWeight,
		SerendipityWeight:     d.SerendipityWeight,
		EnableSerendipity:     d.EnableSerendipity,
		MaxArticlesPerFeed:    d.MaxArticlesPerFeed,
	}
}

// Clamped возвращает конфигурацию с весами, приведёнными к диапазону [0, 1].
// Второе значение сообщает, пришлось ли исправлять хотя бы один вес.
func (c FeedConfiguration) Clamped() (FeedConfiguration, bool) {
	corrected := false
	clamp := func(v float64) float64 {
		if v < 0 {
			corrected = true
			return 0
		}
		if v > 1 {
			corrected = true
			return 1
		}
		return v
	}
	c.PersonalizationWeight = clamp(c.PersonalizationWeight)
	c.FreshnessWeight = clamp(c.FreshnessWeight)
	c.PopularityWeight = clamp(c.PopularityWeight)
	c.SerendipityWeight = clamp(c.SerendipityWeight)
	if c.MaxArticlesPerFeed <= 0 {
		c.MaxArticlesPerFeed = StandardFeedDefaults().MaxArticlesPerFeed
		corrected = true
	}
	return c, corrected
}
