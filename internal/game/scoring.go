// internal/game/scoring.go
package game

import "github.com/jason-s-yu/uno/internal/models"

// CardPoints returns the scoring value of a single card.
func CardPoints(c models.Card) int {
	switch {
	case c.Value.IsNumeral():
		return int(c.Value)
	case c.Value == models.ValueSkip, c.Value == models.ValueReverse:
		return 20
	case c.Value == models.ValueDrawTwo:
		return 25
	case c.Value == models.ValueWildSwap:
		return 100
	default:
		return 50
	}
}

// ScoreHand sums the point value of every card left in a hand.
func ScoreHand(hand []models.Card) int {
	total := 0
	for _, c := range hand {
		total += CardPoints(c)
	}
	return total
}
