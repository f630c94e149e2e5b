package ranker

import (
	"sort"

	"feed-engine/internal/domain"
)

// Params задаёт эвристики разнообразия.
// Значения подобраны эмпирически, поэтому вынесены в параметры.
type Params struct {
	// ProtectTop — сколько лучших статей принимается без проверки категории.
	ProtectTop int
	// OverrideScore — порог, выше которого статья обходит ограничение разнообразия.
	OverrideScore float64
	// OverfetchFactor — множитель max_articles_per_feed для размера пула,
	// из которого нарезаются страницы.
	OverfetchFactor int
}

// DefaultParams возвращает проверенные практикой значения.
func DefaultParams() Params {
	return Params{ProtectTop: 3, OverrideScore: 0.8, OverfetchFactor: 2}
}

// DiversityRanker сортирует статьи по оценке и разбавляет категории.
type DiversityRanker struct {
	params Params
}

// NewDiversity создаёт ранжировщик, приводя параметры к допустимым значениям.
func NewDiversity(params Params) *DiversityRanker {
	if params.ProtectTop < 0 {
		params.ProtectTop = 0
	}
	if params.OverrideScore < 0 {
		params.OverrideScore = 0
	}
	if params.OverrideScore > 1 {
		params.OverrideScore = 1
	}
	if params.OverfetchFactor < 1 {
		params.OverfetchFactor = 1
	}
	return &DiversityRanker{params: params}
}

// Rank сортирует по убыванию оценки, применяет жадное разбавление категорий
// и возвращает запрошенную страницу.
func (r *DiversityRanker) Rank(items []domain.RecommendedArticle, maxPerFeed, page, pageSize int) []domain.RecommendedArticle {
	diversified := r.Diversify(items, maxPerFeed)
	return Paginate(diversified, page, pageSize)
}

// Diversify возвращает разбавленный пул размером до OverfetchFactor × maxPerFeed.
func (r *DiversityRanker) Diversify(items []domain.RecommendedArticle, maxPerFeed int) []domain.RecommendedArticle {
	if len(items) == 0 {
		return nil
	}
	if maxPerFeed <= 0 {
		maxPerFeed = domain.StandardFeedDefaults().MaxArticlesPerFeed
	}

	sorted := make([]domain.RecommendedArticle, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	limit := r.params.OverfetchFactor * maxPerFeed
	if limit > len(sorted) {
		limit = len(sorted)
	}

	accepted := make([]domain.RecommendedArticle, 0, limit)
	var skipped []domain.RecommendedArticle
	seenCategories := make(map[string]struct{})

	for _, item := range sorted {
		if len(accepted) >= limit {
			break
		}
		if len(accepted) < r.params.ProtectTop {
			accepted = append(accepted, item)
			seenCategories[item.Article.Category] = struct{}{}
			continue
		}
		if _, seen := seenCategories[item.Article.Category]; !seen || item.Score > r.params.OverrideScore {
			accepted = append(accepted, item)
			seenCategories[item.Article.Category] = struct{}{}
			continue
		}
		skipped = append(skipped, item)
	}

	// Когда различных категорий меньше, чем нужно, правило новой категории
	// быстро исчерпывается и остаток добирается в чистом порядке оценок.
	for _, item := range skipped {
		if len(accepted) >= limit {
			break
		}
		accepted = append(accepted, item)
	}

	return accepted
}

// Paginate вырезает страницу из разбавленного пула.
func Paginate(items []domain.RecommendedArticle, page, pageSize int) []domain.RecommendedArticle {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = domain.StandardFeedDefaults().MaxArticlesPerFeed
	}
	offset := (page - 1) * pageSize
	if offset >= len(items) {
		return nil
	}
	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
