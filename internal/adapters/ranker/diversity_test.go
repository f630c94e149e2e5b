package ranker

import (
	"testing"

	"feed-engine/internal/domain"
)

func rec(id int64, category string, score float64) domain.RecommendedArticle {
	return domain.RecommendedArticle{
		Article: domain.Article{ID: id, Category: category},
		Score:   score,
	}
}

func TestRankProtectsTopThree(t *testing.T) {
	r := NewDiversity(DefaultParams())
	items := []domain.RecommendedArticle{
		rec(1, "Технологии", 0.9),
		rec(2, "Технологии", 0.85),
		rec(3, "Технологии", 0.82),
		rec(4, "Спорт", 0.5),
		rec(5, "Мир", 0.4),
	}

	ranked := r.Rank(items, 20, 1, 5)
	if len(ranked) != 5 {
		t.Fatalf("ожидали 5 статей, получили %d", len(ranked))
	}
	for i, wantID := range []int64{1, 2, 3} {
		if ranked[i].Article.ID != wantID {
			t.Fatalf("первые три места занимают лучшие оценки: позиция %d — статья %d", i, ranked[i].Article.ID)
		}
	}
}

func TestRankDiversityInjection(t *testing.T) {
	r := NewDiversity(DefaultParams())
	// Категория «Технологии» держит десять верхних оценок,
	// но после защищённой тройки должны пойти новые категории.
	var items []domain.RecommendedArticle
	for i := 0; i < 10; i++ {
		items = append(items, rec(int64(i+1), "Технологии", 0.79-float64(i)*0.01))
	}
	items = append(items,
		rec(11, "Спорт", 0.5),
		rec(12, "Мир", 0.45),
		rec(13, "Наука", 0.4),
		rec(14, "Кино", 0.35),
		rec(15, "Музыка", 0.3),
	)

	ranked := r.Rank(items, 20, 1, 8)
	if len(ranked) != 8 {
		t.Fatalf("ожидали страницу из 8 статей, получили %d", len(ranked))
	}

	perCategory := make(map[string]int)
	for _, item := range ranked[3:] {
		perCategory[item.Article.Category]++
	}
	// ceil(8/2) = 4 — ни одна категория не должна занимать больше
	// в слотах после защищённой тройки.
	for category, count := range perCategory {
		if count > 4 {
			t.Fatalf("категория %q заняла %d слотов разбавления", category, count)
		}
	}
	if perCategory["Спорт"] == 0 || perCategory["Мир"] == 0 {
		t.Fatalf("новые категории должны попасть на страницу: %v", perCategory)
	}
}

func TestRankHighScoreOverride(t *testing.T) {
	r := NewDiversity(DefaultParams())
	items := []domain.RecommendedArticle{
		rec(1, "Технологии", 0.95),
		rec(2, "Технологии", 0.92),
		rec(3, "Технологии", 0.9),
		rec(4, "Технологии", 0.85),
		rec(5, "Спорт", 0.2),
	}

	ranked := r.Rank(items, 20, 1, 5)
	// Статья 4 выше порога 0.8 и обходит ограничение категории.
	if ranked[3].Article.ID != 4 {
		t.Fatalf("высокая оценка должна обходить ограничение разнообразия, получили статью %d", ranked[3].Article.ID)
	}
}

func TestRankDegradesToPlainOrder(t *testing.T) {
	r := NewDiversity(DefaultParams())
	var items []domain.RecommendedArticle
	for i := 0; i < 6; i++ {
		items = append(items, rec(int64(i+1), "Технологии", 0.7-float64(i)*0.05))
	}

	ranked := r.Rank(items, 20, 1, 6)
	if len(ranked) != 6 {
		t.Fatalf("при одной категории остаток добирается по оценке, получили %d статей", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("порядок по оценке нарушен на позиции %d", i)
		}
	}
}

func TestRankDeterminism(t *testing.T) {
	r := NewDiversity(DefaultParams())
	items := []domain.RecommendedArticle{
		rec(1, "Технологии", 0.9),
		rec(2, "Спорт", 0.9),
		rec(3, "Мир", 0.5),
		rec(4, "Наука", 0.5),
	}

	first := r.Rank(items, 20, 1, 4)
	second := r.Rank(items, 20, 1, 4)
	for i := range first {
		if first[i].Article.ID != second[i].Article.ID {
			t.Fatalf("повторный вызов дал другой порядок на позиции %d", i)
		}
	}
}

func TestRankOverfetchLimit(t *testing.T) {
	r := NewDiversity(Params{ProtectTop: 3, OverrideScore: 0.8, OverfetchFactor: 2})
	var items []domain.RecommendedArticle
	for i := 0; i < 30; i++ {
		items = append(items, rec(int64(i+1), "Технологии", 0.7))
	}

	diversified := r.Diversify(items, 5)
	if len(diversified) != 10 {
		t.Fatalf("пул ограничен 2 × max_articles_per_feed, получили %d", len(diversified))
	}
}

func TestPaginate(t *testing.T) {
	var items []domain.RecommendedArticle
	for i := 0; i < 7; i++ {
		items = append(items, rec(int64(i+1), "Мир", 0.5))
	}

	page2 := Paginate(items, 2, 3)
	if len(page2) != 3 || page2[0].Article.ID != 4 {
		t.Fatalf("вторая страница должна начинаться со статьи 4")
	}
	page3 := Paginate(items, 3, 3)
	if len(page3) != 1 || page3[0].Article.ID != 7 {
		t.Fatalf("последняя страница должна содержать хвост")
	}
	if got := Paginate(items, 4, 3); got != nil {
		t.Fatalf("за пределами данных страница пустая, получили %v", got)
	}
}

func TestNewDiversityClampsParams(t *testing.T) {
	r := NewDiversity(Params{ProtectTop: -1, OverrideScore: 5, OverfetchFactor: 0})
	if r.params.ProtectTop != 0 || r.params.OverrideScore != 1 || r.params.OverfetchFactor != 1 {
		t.Fatalf("параметры должны приводиться к допустимым значениям: %+v", r.params)
	}
}
