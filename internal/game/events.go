// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// EventType names an outbound event.
type EventType string

const (
	EventJoinSuccess         EventType = "joinSuccess"
	EventLobbyUpdate         EventType = "lobbyUpdate"
	EventUpdateGameState     EventType = "updateGameState"
	EventAnnounceRoundWinner EventType = "announceRoundWinner"
	EventRoundOver           EventType = "roundOver"
	EventFinalGameOver       EventType = "finalGameOver"
	EventDrawnWildCard       EventType = "drawnWildCard"
	EventAnnounce            EventType = "announce" // free-text toast
	EventUnoCalled           EventType = "unoCalled"
	EventGameLog             EventType = "gameLog"
	EventAnimateDraw         EventType = "animateDraw"
	EventAnimatePlay         EventType = "animatePlay"
	EventAnimateSwap         EventType = "animateSwap"
	EventShowDiscardedWilds  EventType = "showDiscardedWildsModal"
	EventYouWereMarkedAFK    EventType = "youWereMarkedAFK"
	EventForceDisconnect     EventType = "forceDisconnect"
)

// Event is the envelope sent to clients.
type Event struct {
	Type    EventType              `json:"type"`
	Message string                 `json:"message,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *StateView             `json:"state,omitempty"`
}

// ScoreLine is one row of the scoreboard.
type ScoreLine struct {
	PlayerID      uuid.UUID           `json:"playerId"`
	Name          string              `json:"name"`
	Status        models.PlayerStatus `json:"status"`
	Score         int                 `json:"score"`
	ScoresByRound []models.RoundScore `json:"scoresByRound"`
}

func (m *Match) scoreboard() []ScoreLine {
	lines := make([]ScoreLine, len(m.Players))
	for i, p := range m.Players {
		rounds := make([]models.RoundScore, len(p.ScoresByRound))
		copy(rounds, p.ScoresByRound)
		lines[i] = ScoreLine{
			PlayerID:      p.ID,
			Name:          p.Name,
			Status:        p.Status,
			Score:         p.Score,
			ScoresByRound: rounds,
		}
	}
	return lines
}

// broadcast sends ev to every roster player with a bound session.
// Assumes lock is held.
func (t *Table) broadcast(ev Event) {
	for _, p := range t.Players {
		t.sendTo(p, ev)
	}
}

// sendTo delivers ev to a single player if they are connected.
// Assumes lock is held.
func (t *Table) sendTo(p *models.Player, ev Event) {
	if p == nil || !p.Connected() {
		return
	}
	t.sendToSession(p.SessionID, ev)
}

func (t *Table) sendToSession(sessionID uuid.UUID, ev Event) {
	if t.SendFn == nil {
		t.log.Debugf("SendFn is nil, dropping %s event", ev.Type)
		return
	}
	t.SendFn(sessionID, ev)
}

// announceTo toasts a single player.
func (t *Table) announceTo(p *models.Player, msg string) {
	t.sendTo(p, Event{Type: EventAnnounce, Message: msg})
}

// broadcastState sends each connected player their own complete snapshot.
// Assumes lock is held.
func (t *Table) broadcastState() {
	if t.Match == nil {
		t.broadcastLobby()
		return
	}
	for _, p := range t.Players {
		if !p.Connected() {
			continue
		}
		view := t.snapshot(p.ID)
		t.sendTo(p, Event{Type: EventUpdateGameState, State: &view})
	}
}

func (t *Table) sendState(p *models.Player) {
	if t.Match == nil {
		return
	}
	view := t.snapshot(p.ID)
	t.sendTo(p, Event{Type: EventUpdateGameState, State: &view})
}

// broadcastLobby publishes the roster.
// Assumes lock is held.
func (t *Table) broadcastLobby() {
	roster := make([]map[string]interface{}, len(t.Players))
	for i, p := range t.Players {
		roster[i] = map[string]interface{}{
			"id":        p.ID,
			"name":      p.Name,
			"isHost":    p.IsHost,
			"ready":     p.Ready,
			"connected": p.Connected(),
		}
	}
	t.broadcast(Event{
		Type: EventLobbyUpdate,
		Payload: map[string]interface{}{
			"players":          roster,
			"passwordRequired": t.opts.HostPasswordHash != "",
			"matchInProgress":  t.Match != nil,
		},
	})
}

// addLog records a line in the bounded game log and emits it.
// Assumes lock is held.
func (t *Table) addLog(line string) {
	t.log.Info(line)
	if t.Match == nil {
		return
	}
	t.Match.appendLog(line)
	t.broadcast(Event{Type: EventGameLog, Message: line})
}
