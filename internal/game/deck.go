// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/jason-s-yu/uno/internal/models"
)

// DeckSize is the number of cards produced by NewDeck.
const DeckSize = 108

// wildCounts is the number of copies of each black card in the deck.
var wildCounts = []struct {
	value models.Value
	count int
}{
	{models.ValueWild, 4},
	{models.ValueWildDrawFour, 4},
	{models.ValueWildPickUntil, 4},
	{models.ValueWildSwap, 1},
}

// NewDeck builds the full deck in a fixed order: per suit one 0 and two each of
// 1-9, Skip, Reverse and Draw Two, followed by the black cards.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, color := range models.SuitColors {
		deck = append(deck, models.Card{Color: color, Value: models.ValueZero})
		for v := models.ValueOne; v <= models.ValueDrawTwo; v++ {
			deck = append(deck,
				models.Card{Color: color, Value: v},
				models.Card{Color: color, Value: v},
			)
		}
	}
	for _, w := range wildCounts {
		for i := 0; i < w.count; i++ {
			deck = append(deck, models.Card{Color: models.ColorBlack, Value: w.value})
		}
	}
	return deck
}

// Shuffle returns a uniformly permuted copy of cards using Fisher-Yates.
func Shuffle(cards []models.Card, rng *rand.Rand) []models.Card {
	out := make([]models.Card, len(cards))
	copy(out, cards)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
