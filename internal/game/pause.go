// internal/game/pause.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// markDisconnected pauses the match until p returns or the grace period runs out.
// Assumes lock is held.
func (t *Table) markDisconnected(p *models.Player, reason string) {
	m := t.Match
	p.Status = models.StatusDisconnected
	delete(m.ReadyForNextRound, p.ID)
	t.cancelTask(nextRoundTaskKey)
	m.Paused = true
	m.Pause = PauseInfo{
		EndsAt:      t.now().Add(t.opts.DisconnectGrace),
		PlayerNames: m.namesWithStatus(models.StatusDisconnected),
	}

	id := p.ID
	t.schedule(removalTaskKey(id), t.opts.DisconnectGrace, func() {
		t.removePlayer(id)
	})

	t.addLog(fmt.Sprintf("%s %s, the game is paused", p.Name, reason))
	t.logAction(p.ID, "player_disconnected", map[string]interface{}{"reason": reason})
	t.broadcastState()
}

// MarkPlayerAFK lets the host pause the match for an unresponsive player.
func (t *Table) MarkPlayerAFK(hostID, targetID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	if t.inLobby() {
		return t.reject("markPlayerAFK", hostID, ErrNoMatch)
	}
	if _, err := t.requireHost(hostID); err != nil {
		return t.reject("markPlayerAFK", hostID, err)
	}
	target := t.Match.player(targetID)
	if target == nil || target.ID == hostID || target.Status != models.StatusActive {
		return t.reject("markPlayerAFK", hostID, ErrInvalidTarget)
	}

	t.sendTo(target, Event{
		Type:    EventYouWereMarkedAFK,
		Message: "The host marked you as away. Press the button to rejoin.",
	})
	t.markDisconnected(target, "was marked AFK")
	return nil
}

// PlayerIsBack restores a player marked AFK while their session stayed open.
func (t *Table) PlayerIsBack(playerID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	if t.inLobby() {
		return t.reject("playerIsBack", playerID, ErrNoMatch)
	}
	p := t.Match.player(playerID)
	if p == nil {
		return t.reject("playerIsBack", playerID, ErrUnknownPlayer)
	}
	if p.Status != models.StatusDisconnected {
		return t.reject("playerIsBack", playerID, ErrInvalidTarget)
	}
	t.restorePlayer(p, "is back")
	return nil
}

// restorePlayer returns a Disconnected player to Active and lifts the pause if
// nobody else is missing. Assumes lock is held.
func (t *Table) restorePlayer(p *models.Player, how string) {
	m := t.Match
	p.Status = models.StatusActive
	t.cancelTask(removalTaskKey(p.ID))

	missing := m.namesWithStatus(models.StatusDisconnected)
	if len(missing) == 0 {
		m.Paused = false
		m.Pause = PauseInfo{}
	} else {
		m.Pause.PlayerNames = missing
	}

	t.addLog(fmt.Sprintf("%s %s", p.Name, how))
	t.logAction(p.ID, "player_restored", nil)
	t.broadcastState()
	t.maybeStartNextRound()
}

// removePlayer runs when a removal timer fires. Removal is permanent.
// Assumes lock is held.
func (t *Table) removePlayer(id uuid.UUID) {
	m := t.Match
	if m == nil || m.Phase == PhaseGameOver {
		return
	}
	p := m.player(id)
	if p == nil || p.Status != models.StatusDisconnected {
		return
	}

	wasCurrent := m.Phase.inRound() && m.CurrentPlayerIndex == m.playerIndex(id)
	wasDealer := m.Phase == PhaseDealing && m.DealerIndex == m.playerIndex(id)
	wasHost := p.IsHost

	p.Status = models.StatusRemoved
	p.IsHost = false
	p.UnoState = models.UnoSafe
	delete(m.ReadyForNextRound, id)
	t.sendTo(p, Event{Type: EventForceDisconnect, Message: "You were removed from the game."})
	p.SessionID = uuid.Nil
	t.dropFromRoster(id)

	t.addLog(fmt.Sprintf("%s was removed from the game", p.Name))
	t.logAction(id, "player_removed", nil)

	if wasHost {
		t.reassignHost()
	}
	if missing := m.namesWithStatus(models.StatusDisconnected); len(missing) == 0 {
		m.Paused = false
		m.Pause = PauseInfo{}
	} else {
		m.Pause.PlayerNames = missing
	}

	if m.activeCount() < 2 {
		t.finishGame("not enough players")
		t.teardownMatch()
		return
	}

	switch {
	case wasCurrent:
		// A chooser's draw penalty is owed by the next seat and survives them.
		if m.Pending.Kind == PendingNone || m.Pending.PlayerID != id {
			m.DrawPenalty = 0
		}
		m.clearPending()
		if t.releaseWinnersOnHold() {
			return
		}
		t.advance()
	case wasDealer:
		if dealer, err := m.nextDealerIndex(); err == nil {
			m.DealerIndex = dealer
			t.addLog(fmt.Sprintf("%s is dealing instead", m.Players[dealer].Name))
		}
	}
	t.broadcastState()
	t.maybeStartNextRound()
}
