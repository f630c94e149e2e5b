package domain

import (
	"errors"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	cases := []struct {
		raw  string
		want FeedAlgorithm
	}{
		{"personalized", AlgorithmPersonalized},
		{"TRENDING", AlgorithmTrending},
		{" popular ", AlgorithmPopular},
		{"recent", AlgorithmRecent},
		{"following", AlgorithmFollowing},
	}
	for _, c := range cases {
		got, err := ParseAlgorithm(c.raw)
		if err != nil {
			t.Fatalf("%q должен разбираться: %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("%q: ожидали %q, получили %q", c.raw, c.want, got)
		}
	}
}

func TestParseAlgorithmUnknown(t *testing.T) {
	for _, raw := range []string{"", "quantum", "anonymous", "fallback"} {
		if _, err := ParseAlgorithm(raw); !errors.Is(err, ErrUnknownAlgorithm) {
			t.Fatalf("%q не должен разбираться", raw)
		}
	}
}

func TestInteractionWeight(t *testing.T) {
	cases := map[InteractionType]float64{
		InteractionView:     0.1,
		InteractionLike:     0.3,
		InteractionComment:  0.4,
		InteractionShare:    0.5,
		InteractionSave:     0.6,
		InteractionFullRead: 0.7,
	}
	for interactionType, want := range cases {
		if got := interactionType.Weight(); got != want {
			t.Fatalf("%q: ожидали вес %v, получили %v", interactionType, want, got)
		}
	}
}

func TestInteractionWeightUnknown(t *testing.T) {
	if got := InteractionType("hover").Weight(); got != 0.1 {
		t.Fatalf("неизвестный тип получает вес просмотра, получили %v", got)
	}
	if got := InteractionType("LIKE").Weight(); got != 0.3 {
		t.Fatalf("регистр типа не должен влиять на вес, получили %v", got)
	}
}

func TestClampedConfiguration(t *testing.T) {
	cfg := FeedConfiguration{
		UserID:                1,
		PersonalizationWeight: -1,
		FreshnessWeight:       0.3,
		PopularityWeight:      2,
		SerendipityWeight:     0.1,
		MaxArticlesPerFeed:    -5,
	}
	clamped, corrected := cfg.Clamped()
	if !corrected {
		t.Fatalf("исправление должно быть отмечено")
	}
	if clamped.PersonalizationWeight != 0 || clamped.PopularityWeight != 1 {
		t.Fatalf("веса вне диапазона должны обрезаться: %+v", clamped)
	}
	if clamped.MaxArticlesPerFeed != 20 {
		t.Fatalf("размер ленты должен вернуться к значению по умолчанию")
	}

	valid := StandardFeedDefaults().Configuration(1)
	if _, corrected := valid.Clamped(); corrected {
		t.Fatalf("корректная конфигурация не должна помечаться исправленной")
	}
}
