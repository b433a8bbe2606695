// internal/game/turn.go
package game

import "github.com/jason-s-yu/uno/internal/models"

// nextActiveIndex walks from seat `from` in the play direction and returns the
// first Active seat, or -1 if nobody is Active.
func (m *Match) nextActiveIndex(from int) int {
	n := len(m.Players)
	if n == 0 {
		return -1
	}
	idx := from
	for i := 0; i < n; i++ {
		idx = ((idx+m.Direction)%n + n) % n
		if m.Players[idx].Status == models.StatusActive {
			return idx
		}
	}
	return -1
}

// advanceTurn moves the turn to the next Active seat. A declared UNO lapses when
// its owner's turn ends. Returns false when no Active player exists.
func (m *Match) advanceTurn() bool {
	next := m.nextActiveIndex(m.CurrentPlayerIndex)
	if next < 0 {
		return false
	}
	if leaving := m.currentPlayer(); leaving != nil && leaving.UnoState == models.UnoDeclared {
		leaving.UnoState = models.UnoSafe
	}
	m.CurrentPlayerIndex = next
	return true
}

// advance wraps advanceTurn with logging. Assumes lock is held.
func (t *Table) advance() {
	if !t.Match.advanceTurn() {
		t.log.Error("Cannot advance turn: no active players remain")
	}
}

// skipNext passes the turn over the next Active player. Assumes lock is held.
func (t *Table) skipNext() {
	m := t.Match
	t.advance()
	if skipped := m.currentPlayer(); skipped != nil {
		t.addLog(skipped.Name + " was skipped")
	}
	t.advance()
}
