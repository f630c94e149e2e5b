package domain

import "strings"

// InteractionType описывает вид взаимодействия со статьёй.
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionLike     InteractionType = "like"
	InteractionComment  InteractionType = "comment"
	InteractionShare    InteractionType = "share"
	InteractionSave     InteractionType = "save"
	InteractionFullRead InteractionType = "fullread"
)

var interactionWeights = map[InteractionType]float64{
	InteractionView:     0.1,
	InteractionLike:     0.3,
	InteractionComment:  0.4,
	InteractionShare:    0.5,
	InteractionSave:     0.6,
	InteractionFullRead: 0.7,
}

// Weight возвращает вес взаимодействия для обновления интересов.
// Неизвестные типы получают минимальный вес просмотра.
func (t InteractionType) Weight() float64 {
	if w, ok := interactionWeights[InteractionType(strings.ToLower(string(t)))]; ok {
		return w
	}
	return interactionWeights[InteractionView]
}
