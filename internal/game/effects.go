// internal/game/effects.go
package game

import "github.com/jason-s-yu/uno/internal/models"

// IsMoveValid reports whether card may be played on top. While a draw penalty is
// outstanding only a card of the same value may be stacked.
func IsMoveValid(card, top models.Card, activeColor models.Color, drawPenalty int) bool {
	if drawPenalty > 0 {
		return card.Value == top.Value
	}
	if card.IsWild() {
		return true
	}
	return card.Color == activeColor || card.Value == top.Value
}

// canPlay checks a card against the current table.
func (m *Match) canPlay(card models.Card) bool {
	top, ok := m.topCard()
	if !ok {
		return false
	}
	return IsMoveValid(card, top, m.ActiveColor, m.DrawPenalty)
}

func (m *Match) hasPlayableCard(p *models.Player) bool {
	for _, c := range p.Hand {
		if m.canPlay(c) {
			return true
		}
	}
	return false
}

// applyEffect resolves the consequence of a card that was just played by p,
// either moving the turn on or opening a wild sub-flow.
// Assumes lock is held.
func (t *Table) applyEffect(p *models.Player, card models.Card) {
	m := t.Match
	if !card.IsWild() {
		m.ActiveColor = card.Color
	}

	switch card.Value {
	case models.ValueSkip:
		t.skipNext()
	case models.ValueReverse:
		if m.activeCount() >= 3 {
			m.Direction = -m.Direction
			t.addLog("Play direction reversed")
			t.advance()
		} else {
			t.skipNext()
		}
	case models.ValueDrawTwo:
		m.DrawPenalty += 2
		t.advance()
	case models.ValueWildDrawFour:
		m.DrawPenalty += 4
		m.setPending(PendingAction{Kind: PendingChooseColor, PlayerID: p.ID, Card: card})
	case models.ValueWild, models.ValueWildSwap:
		m.setPending(PendingAction{Kind: PendingChooseColor, PlayerID: p.ID, Card: card})
	case models.ValueWildPickUntil:
		m.setPending(PendingAction{Kind: PendingChoosePickUntil, PlayerID: p.ID, Card: card})
	default:
		t.advance()
	}
}
