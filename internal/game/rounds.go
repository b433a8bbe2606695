// internal/game/rounds.go
package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/models"
)

// startNewRound rotates the dealer and waits for the deal choice.
// Assumes lock is held.
func (t *Table) startNewRound() {
	m := t.Match
	dealer, err := m.nextDealerIndex()
	if err != nil {
		t.log.WithError(err).Error("Cannot rotate dealer")
		t.finishGame("no active players remain")
		return
	}

	m.RoundNumber++
	m.DealerIndex = dealer
	m.DrawPile = nil
	m.DiscardPile = nil
	m.Direction = 1
	m.DrawPenalty = 0
	m.WinnersOnHold = nil
	m.ReadyForNextRound = make(map[uuid.UUID]bool)
	for _, p := range m.Players {
		p.Hand = nil
		p.UnoState = models.UnoSafe
	}
	m.clearPending()
	m.Phase = PhaseDealing

	t.addLog(fmt.Sprintf("Round %d: %s is dealing", m.RoundNumber, m.Players[dealer].Name))
	t.logAction(uuid.Nil, "round_start", map[string]interface{}{
		"round":  m.RoundNumber,
		"dealer": m.Players[dealer].ID,
	})
	t.broadcastState()
}

// DealChoice deals numCards to every seated player and flips the starting card.
// The dealer or the host may choose.
func (t *Table) DealChoice(playerID uuid.UUID, numCards int) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.deal(playerID, numCards)
}

// DealDefault deals the match's configured number of cards.
func (t *Table) DealDefault(playerID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	numCards := t.opts.DefaultCardsToDeal
	if t.Match != nil && t.Match.CardsToDeal > 0 {
		numCards = t.Match.CardsToDeal
	}
	return t.deal(playerID, numCards)
}

// deal runs a deal choice. Assumes lock is held.
func (t *Table) deal(playerID uuid.UUID, numCards int) error {
	p, err := t.actingPlayer(playerID, PhaseDealing)
	if err != nil {
		return t.reject("dealChoice", playerID, err)
	}
	m := t.Match
	if m.Players[m.DealerIndex].ID != p.ID && !p.IsHost {
		return t.reject("dealChoice", playerID, ErrNotHost)
	}

	seated := 0
	for _, q := range m.Players {
		if q.Status != models.StatusRemoved {
			seated++
		}
	}
	if numCards < MinCardsToDeal || numCards > MaxCardsToDeal || seated*numCards >= DeckSize {
		t.announceTo(p, fmt.Sprintf("Choose between %d and %d cards.", MinCardsToDeal, MaxCardsToDeal))
		return t.reject("dealChoice", playerID, ErrInvalidDealCount)
	}

	m.CardsToDeal = numCards
	m.DrawPile = t.newDeck()
	for round := 0; round < numCards; round++ {
		for i := 1; i <= len(m.Players); i++ {
			q := m.Players[(m.DealerIndex+i)%len(m.Players)]
			if q.Status == models.StatusRemoved {
				continue
			}
			q.Hand = append(q.Hand, m.takeFromDrawPile(1)...)
		}
	}

	dealer := m.Players[m.DealerIndex]
	start := m.flipStartCard()
	m.pushDiscard(start, dealer.Name)
	m.ActiveColor = start.Color
	m.Direction = 1
	m.CurrentPlayerIndex = m.nextActiveIndex(m.DealerIndex)
	m.Phase = PhasePlaying

	t.addLog(fmt.Sprintf("%s dealt %d cards each. Starting card: %s", dealer.Name, numCards, start))
	t.logAction(p.ID, "deal", map[string]interface{}{
		"round":     m.RoundNumber,
		"numCards":  numCards,
		"startCard": start.String(),
	})
	t.broadcastState()
	return nil
}

// flipStartCard takes the first numeral off the draw pile. Action and wild cards
// turned up on the way go to the bottom.
func (m *Match) flipStartCard() models.Card {
	for i := 0; i < len(m.DrawPile); i++ {
		c := m.DrawPile[0]
		m.DrawPile = m.DrawPile[1:]
		if c.Value.IsNumeral() {
			return c
		}
		m.DrawPile = append(m.DrawPile, c)
	}
	if len(m.DrawPile) == 0 {
		return models.Card{}
	}
	c := m.DrawPile[0]
	m.DrawPile = m.DrawPile[1:]
	return c
}

// releaseWinnersOnHold ends the round if any held winner still has an empty hand.
// Held players who have drawn since are dropped from the hold.
// Assumes lock is held.
func (t *Table) releaseWinnersOnHold(extra ...*models.Player) bool {
	m := t.Match
	var winners []*models.Player
	seen := make(map[uuid.UUID]bool)
	for _, id := range m.WinnersOnHold {
		if p := m.player(id); p != nil && p.Status != models.StatusRemoved && len(p.Hand) == 0 && !seen[id] {
			winners = append(winners, p)
			seen[id] = true
		}
	}
	for _, p := range extra {
		if !seen[p.ID] {
			winners = append(winners, p)
			seen[p.ID] = true
		}
	}
	m.WinnersOnHold = nil
	if len(winners) == 0 {
		return false
	}
	t.handleEndOfRound(winners)
	return true
}

// handleEndOfRound scores the round: winners score 0, Removed players "N/A",
// everyone else the value of their remaining hand.
// Assumes lock is held.
func (t *Table) handleEndOfRound(winners []*models.Player) {
	m := t.Match
	m.clearPending()
	m.DrawPenalty = 0
	m.WinnersOnHold = nil
	m.Phase = PhaseRoundOver
	m.ReadyForNextRound = make(map[uuid.UUID]bool)

	isWinner := make(map[uuid.UUID]bool, len(winners))
	for _, w := range winners {
		isWinner[w.ID] = true
	}
	roundScores := make(map[string]interface{}, len(m.Players))
	for _, p := range m.Players {
		var rs models.RoundScore
		switch {
		case p.Status == models.StatusRemoved:
			rs = models.NotApplicable
		case isWinner[p.ID]:
			rs = models.Points(0)
		default:
			rs = models.Points(ScoreHand(p.Hand))
		}
		if rs.Applicable {
			p.Score += rs.Points
		}
		p.ScoresByRound = append(p.ScoresByRound, rs)
		roundScores[p.ID.String()] = rs
	}

	names := playerNames(winners)
	t.addLog(fmt.Sprintf("%s won round %d", strings.Join(names, " & "), m.RoundNumber))
	t.broadcast(Event{
		Type: EventAnnounceRoundWinner,
		Payload: map[string]interface{}{
			"round":       m.RoundNumber,
			"winnerIds":   playerIDs(winners),
			"winnerNames": names,
		},
	})
	t.broadcast(Event{
		Type: EventRoundOver,
		Payload: map[string]interface{}{
			"round":      m.RoundNumber,
			"scoreboard": m.scoreboard(),
		},
	})
	t.logAction(uuid.Nil, "round_over", map[string]interface{}{
		"round":   m.RoundNumber,
		"winners": playerIDs(winners),
		"scores":  roundScores,
	})
	t.broadcastState()
}

// PlayerReadyForNextRound marks a player ready after a round ends.
func (t *Table) PlayerReadyForNextRound(playerID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	m := t.Match
	if m == nil || m.Phase != PhaseRoundOver {
		return t.reject("playerReadyForNextRound", playerID, ErrWrongPhase)
	}
	p := m.player(playerID)
	if p == nil {
		return t.reject("playerReadyForNextRound", playerID, ErrUnknownPlayer)
	}
	if p.Status != models.StatusActive {
		return t.reject("playerReadyForNextRound", playerID, ErrNotActive)
	}
	if m.ReadyForNextRound[p.ID] {
		return nil
	}
	m.ReadyForNextRound[p.ID] = true
	t.broadcastState()
	t.maybeStartNextRound()
	return nil
}

// maybeStartNextRound arms the round transition once the host and every Active
// player are ready. Assumes lock is held.
func (t *Table) maybeStartNextRound() {
	m := t.Match
	if m == nil || m.Phase != PhaseRoundOver || m.Paused || t.hasTask(nextRoundTaskKey) {
		return
	}
	hostReady := false
	for _, p := range m.Players {
		if p.Status != models.StatusActive {
			continue
		}
		if !m.ReadyForNextRound[p.ID] {
			return
		}
		if p.IsHost {
			hostReady = true
		}
	}
	if !hostReady {
		return
	}

	if t.opts.RoundTransitionDelay <= 0 {
		t.startNewRound()
		return
	}
	t.broadcast(Event{
		Type:    EventAnnounce,
		Message: fmt.Sprintf("Next round starts in %s.", t.opts.RoundTransitionDelay),
	})
	t.schedule(nextRoundTaskKey, t.opts.RoundTransitionDelay, func() {
		if t.Match == nil || t.Match.Phase != PhaseRoundOver || t.Match.Paused {
			return
		}
		t.startNewRound()
	})
}

// EndGame finishes the match and announces the overall winners. Host only.
func (t *Table) EndGame(hostID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	if t.inLobby() {
		return t.reject("endGame", hostID, ErrNoMatch)
	}
	if _, err := t.requireHost(hostID); err != nil {
		return t.reject("endGame", hostID, err)
	}
	t.finishGame("the host ended the game")
	return nil
}

// finishGame moves the match to GameOver. Assumes lock is held.
func (t *Table) finishGame(reason string) {
	m := t.Match
	if m == nil || m.Phase == PhaseGameOver {
		return
	}
	t.cancelAllTasks()
	m.clearPending()
	m.Phase = PhaseGameOver
	m.Paused = false
	m.Pause = PauseInfo{}

	winners := m.finalWinners()
	names := playerNames(winners)
	t.addLog(fmt.Sprintf("Game over (%s). Winner: %s", reason, strings.Join(names, " & ")))
	t.broadcast(Event{
		Type: EventFinalGameOver,
		Payload: map[string]interface{}{
			"reason":      reason,
			"winnerIds":   playerIDs(winners),
			"winnerNames": names,
			"scoreboard":  m.scoreboard(),
		},
	})
	scores := make(map[string]interface{}, len(m.Players))
	for _, p := range m.Players {
		scores[p.ID.String()] = p.Score
	}
	t.logAction(uuid.Nil, cache.ActionFinalGameOver, map[string]interface{}{
		"reason":  reason,
		"winners": playerIDs(winners),
		"scores":  scores,
		"rounds":  m.RoundNumber,
	})
	t.broadcastState()
}

// teardownMatch discards the match and returns connected players to the lobby.
// Assumes lock is held.
func (t *Table) teardownMatch() {
	t.cancelAllTasks()
	t.Match = nil
	roster := t.Players[:0:0]
	for _, p := range t.Players {
		if p.Connected() && p.Status != models.StatusRemoved {
			roster = append(roster, p)
		}
	}
	t.Players = roster
	for _, p := range t.Players {
		p.Ready = false
		p.Status = models.StatusActive
		p.Hand = nil
	}
	t.reassignHost()
	t.broadcastLobby()
}

// EndSession ends the match (if still running) and returns everyone to the lobby. Host only.
func (t *Table) EndSession(hostID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	if _, err := t.requireHost(hostID); err != nil {
		return t.reject("endSession", hostID, err)
	}
	if t.Match == nil {
		return t.reject("endSession", hostID, ErrNoMatch)
	}
	t.finishGame("the host ended the session")
	t.teardownMatch()
	t.logAction(hostID, "end_session", nil)
	return nil
}

// HardReset discards the match and the roster and disconnects everyone. Host only.
func (t *Table) HardReset(hostID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	if _, err := t.requireHost(hostID); err != nil {
		return t.reject("hardReset", hostID, err)
	}
	t.log.Warn("Hard reset requested by host")
	t.logAction(hostID, "hard_reset", nil)
	t.cancelAllTasks()
	t.broadcast(Event{Type: EventForceDisconnect, Message: "The host reset the table."})
	for _, p := range t.Players {
		p.SessionID = uuid.Nil
	}
	t.Match = nil
	t.Players = nil
	return nil
}
