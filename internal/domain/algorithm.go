package domain

import (
	"errors"
	"strings"
)

// FeedAlgorithm описывает стратегию построения ленты.
type FeedAlgorithm string

const (
	AlgorithmPersonalized FeedAlgorithm = "personalized"
	AlgorithmTrending     FeedAlgorithm = "trending"
	AlgorithmPopular      FeedAlgorithm = "popular"
	AlgorithmRecent       FeedAlgorithm = "recent"
	AlgorithmFollowing    FeedAlgorithm = "following"

	// AlgorithmAnonymous помечает ленту, собранную без истории пользователя.
	// Снаружи не выбирается, используется только как метка ответа.
	AlgorithmAnonymous FeedAlgorithm = "anonymous"

	// AlgorithmFallback помечает деградированную ленту при недоступном хранилище.
	AlgorithmFallback FeedAlgorithm = "fallback"
)

// ErrUnknownAlgorithm возвращается при неизвестном имени алгоритма.
var ErrUnknownAlgorithm = errors.New("неизвестный алгоритм ленты")

var algorithms = map[FeedAlgorithm]struct{}{
	AlgorithmPersonalized: {},
	AlgorithmTrending:     {},
	AlgorithmPopular:      {},
	AlgorithmRecent:       {},
	AlgorithmFollowing:    {},
}

// ParseAlgorithm разбирает имя алгоритма, присланное клиентом.
func ParseAlgorithm(raw string) (FeedAlgorithm, error) {
	algo := FeedAlgorithm(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := algorithms[algo]; !ok {
		return "", ErrUnknownAlgorithm
	}
	return algo, nil
}
