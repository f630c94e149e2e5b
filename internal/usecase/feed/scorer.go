package feed

import (
	"fmt"
	"math"
	"time"

	"feed-engine/internal/domain"
)

// Причины подбираются по приоритету: первая сработавшая попадает в ответ.
const (
	reasonStrongInterest = "совпадает с вашими сильными интересами"
	reasonTrending       = "в тренде и активно обсуждается"
	reasonBreaking       = "срочная новость по вашим интересам"
	reasonSerendipity    = "рекомендовано, чтобы расширить кругозор"
	reasonDefault        = "на основе ваших читательских привычек"
)

const (
	freshnessWindowHours = 168.0
	serendipityNovel     = 0.8
	serendipityFamiliar  = 0.2
)

// Scorer вычисляет многофакторную оценку статьи.
// Чистая функция от снимка данных: при одинаковых входах результат одинаков.
type Scorer struct{}

// NewScorer создаёт скорер.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score оценивает статью для пользователя.
// Пустая карта интересов — штатный холодный старт: персонализация равна нулю.
func (s *Scorer) Score(article domain.Article, interests map[string]float64, behavior *domain.UserBehavior, cfg domain.FeedConfiguration, now time.Time) domain.RecommendedArticle {
	rec := domain.RecommendedArticle{Article: article}

	personalization := 0.0
	serendipity := serendipityFamiliar
	if article.Category == "" {
		// Статья без категории не участвует в персонализации.
		rec.Factors = append(rec.Factors, "статья без категории")
	} else {
		if score, ok := interests[article.Category]; ok {
			personalization = score
			rec.Factors = append(rec.Factors, fmt.Sprintf("интерес к категории «%s»", article.Category))
		} else {
			serendipity = serendipityNovel
		}
		if behavior != nil && hourDistance(article.PublishedAt.Hour(), behavior.MostActiveHour) <= 1 {
			timePreference := math.Max(0, 1-math.Abs(float64(now.Hour()-behavior.MostActiveHour))/12)
			if timePreference > 0 {
				personalization *= 1 + timePreference*0.2
				rec.Factors = append(rec.Factors, "опубликовано в ваше активное время")
			}
		}
	}

	freshness := math.Max(0, 1-now.Sub(article.PublishedAt).Hours()/freshnessWindowHours)
	popularity := math.Min(float64(article.Likes)/100, 1)*0.6 + math.Min(float64(article.Views)/1000, 1)*0.4

	if freshness > 0.9 {
		rec.Factors = append(rec.Factors, "свежая публикация")
	}
	if popularity > 0.7 {
		rec.Factors = append(rec.Factors, "высокая вовлечённость")
	}
	if serendipity == serendipityNovel {
		rec.Factors = append(rec.Factors, "вне привычных категорий")
	}

	score := personalization*cfg.PersonalizationWeight +
		freshness*cfg.FreshnessWeight +
		popularity*cfg.PopularityWeight +
		serendipity*cfg.SerendipityWeight

	// Веса — независимые регуляторы, сумма может превышать единицу.
	// Значение обрезается, а не нормируется.
	rec.Score = clamp01(score)
	rec.PersonalizationScore = personalization
	rec.FreshnessScore = freshness
	rec.PopularityScore = popularity
	rec.IsPersonalized = personalization > 0.5
	rec.IsTrending = popularity > 0.7
	rec.Reason = pickReason(personalization, popularity, freshness, serendipity)
	return rec
}

func pickReason(personalization, popularity, freshness, serendipity float64) string {
	switch {
	case personalization > 0.7:
		return reasonStrongInterest
	case popularity > 0.8:
		return reasonTrending
	case freshness > 0.9:
		return reasonBreaking
	case serendipity > 0.5:
		return reasonSerendipity
	default:
		return reasonDefault
	}
}

func hourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// interestMap переводит список интересов в карту категория → вес.
func interestMap(interests []domain.UserInterest) map[string]float64 {
	m := make(map[string]float64, len(interests))
	for _, in := range interests {
		m[in.Category] = in.Score
	}
	return m
}
