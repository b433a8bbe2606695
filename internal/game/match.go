// internal/game/match.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// Phase is the round state machine position.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseDealing
	PhasePlaying
	PhaseChoosingColor
	PhaseChoosingPickUntilAction
	PhaseChoosingSwapHands
	PhaseRoundOver
	PhaseGameOver
)

var phaseNames = [...]string{
	PhaseLobby:                   "Lobby",
	PhaseDealing:                 "Dealing",
	PhasePlaying:                 "Playing",
	PhaseChoosingColor:           "ChoosingColor",
	PhaseChoosingPickUntilAction: "ChoosingPickUntilAction",
	PhaseChoosingSwapHands:       "ChoosingSwapHands",
	PhaseRoundOver:               "RoundOver",
	PhaseGameOver:                "GameOver",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// inRound reports whether turns are being taken.
func (p Phase) inRound() bool {
	switch p {
	case PhasePlaying, PhaseChoosingColor, PhaseChoosingPickUntilAction, PhaseChoosingSwapHands:
		return true
	}
	return false
}

// PendingKind identifies what a PendingAction is waiting on.
type PendingKind int

const (
	PendingNone             PendingKind = iota
	PendingChooseColor                  // chooser sets the active color
	PendingChoosePickUntil              // chooser picks discard-wilds or pick-color
	PendingChooseSwapTarget             // chooser picks a hand to swap with
	PendingPickUntilDraw                // target draws until TargetColor turns up
	PendingDrawnWild                    // drawer decides whether to play a drawn wild
)

var pendingNames = [...]string{
	PendingNone:             "none",
	PendingChooseColor:      "choosingColor",
	PendingChoosePickUntil:  "choosingPickUntilAction",
	PendingChooseSwapTarget: "choosingSwapHands",
	PendingPickUntilDraw:    "pickUntilDrawing",
	PendingDrawnWild:        "drawnWild",
}

func (k PendingKind) String() string {
	if k >= 0 && int(k) < len(pendingNames) {
		return pendingNames[k]
	}
	return fmt.Sprintf("PendingKind(%d)", int(k))
}

func (k PendingKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Pick-until options.
const (
	PickUntilDiscardWilds = "discard-wilds"
	PickUntilPickColor    = "pick-color"
)

// PendingAction describes who is mid-resolution of what. Only the fields relevant
// to Kind are set.
type PendingAction struct {
	Kind     PendingKind
	PlayerID uuid.UUID   // chooser, or the drawing player for PendingDrawnWild
	Card     models.Card // the card being resolved

	DiscardedWilds bool      // pick-until resolved as discard-wilds, color still owed
	TargetID       uuid.UUID // pick-until target seat
	TargetColor    models.Color
	HandIndex      int // position of the drawn wild in the drawer's hand
}

// phase maps the pending choice onto the state machine.
func (pa PendingAction) phase() Phase {
	switch pa.Kind {
	case PendingChooseColor:
		return PhaseChoosingColor
	case PendingChoosePickUntil:
		return PhaseChoosingPickUntilAction
	case PendingChooseSwapTarget:
		return PhaseChoosingSwapHands
	}
	return PhasePlaying
}

// DiscardEntry is one card on the discard pile and who put it there.
type DiscardEntry struct {
	Card       models.Card `json:"card"`
	PlayerName string      `json:"playerName"`
}

// PauseInfo is set while at least one player is Disconnected.
type PauseInfo struct {
	EndsAt      time.Time `json:"pauseEndTime"`
	PlayerNames []string  `json:"pausedForPlayerNames"`
}

// Match holds the in-memory state of one match and its current round.
type Match struct {
	ID    uuid.UUID
	Phase Phase

	Players     []*models.Player // seat order is turn order
	DealerIndex int

	DrawPile    []models.Card  // draw from the front
	DiscardPile []DiscardEntry // most recent first

	ActiveColor        models.Color
	Direction          int
	DrawPenalty        int
	CurrentPlayerIndex int
	Pending            PendingAction
	WinnersOnHold      []uuid.UUID

	Paused bool
	Pause  PauseInfo

	ReadyForNextRound map[uuid.UUID]bool
	RoundNumber       int
	CardsToDeal       int
	GameLog           []string
}

// maxGameLog bounds the game log.
const maxGameLog = 50

func newMatch(players []*models.Player, cardsToDeal int) *Match {
	seats := make([]*models.Player, len(players))
	copy(seats, players)
	return &Match{
		ID:                uuid.New(),
		Phase:             PhaseLobby,
		Players:           seats,
		DealerIndex:       len(seats) - 1, // first rotation lands on seat 0
		Direction:         1,
		ReadyForNextRound: make(map[uuid.UUID]bool),
		CardsToDeal:       cardsToDeal,
	}
}

func (m *Match) setPending(pa PendingAction) {
	m.Pending = pa
	m.Phase = pa.phase()
}

func (m *Match) clearPending() {
	m.setPending(PendingAction{})
}

func (m *Match) player(id uuid.UUID) *models.Player {
	for _, p := range m.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Match) playerIndex(id uuid.UUID) int {
	for i, p := range m.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *Match) currentPlayer() *models.Player {
	if m.CurrentPlayerIndex < 0 || m.CurrentPlayerIndex >= len(m.Players) {
		return nil
	}
	return m.Players[m.CurrentPlayerIndex]
}

func (m *Match) activeCount() int {
	n := 0
	for _, p := range m.Players {
		if p.Status == models.StatusActive {
			n++
		}
	}
	return n
}

func (m *Match) namesWithStatus(status models.PlayerStatus) []string {
	var names []string
	for _, p := range m.Players {
		if p.Status == status {
			names = append(names, p.Name)
		}
	}
	return names
}

// topCard returns the most recent discard. ok is false before the first flip.
func (m *Match) topCard() (models.Card, bool) {
	if len(m.DiscardPile) == 0 {
		return models.Card{}, false
	}
	return m.DiscardPile[0].Card, true
}

func (m *Match) pushDiscard(c models.Card, playerName string) {
	m.DiscardPile = append([]DiscardEntry{{Card: c, PlayerName: playerName}}, m.DiscardPile...)
}

// takeFromDrawPile removes up to n cards from the front of the draw pile.
func (m *Match) takeFromDrawPile(n int) []models.Card {
	if n > len(m.DrawPile) {
		n = len(m.DrawPile)
	}
	cards := make([]models.Card, n)
	copy(cards, m.DrawPile[:n])
	m.DrawPile = m.DrawPile[n:]
	return cards
}

// cardCount is the number of cards across the draw pile, discard pile and hands.
func (m *Match) cardCount() int {
	n := len(m.DrawPile) + len(m.DiscardPile)
	for _, p := range m.Players {
		n += len(p.Hand)
	}
	return n
}

// nextDealerIndex rotates the dealer one seat, skipping players who are not Active.
func (m *Match) nextDealerIndex() (int, error) {
	n := len(m.Players)
	for i := 1; i <= n; i++ {
		idx := (m.DealerIndex + i) % n
		if m.Players[idx].Status == models.StatusActive {
			return idx, nil
		}
	}
	return -1, ErrNoActivePlayers
}

// finalWinners returns the lowest cumulative scorers among Active and Disconnected players.
func (m *Match) finalWinners() []*models.Player {
	var winners []*models.Player
	best := 0
	for _, p := range m.Players {
		if p.Status == models.StatusRemoved {
			continue
		}
		switch {
		case len(winners) == 0 || p.Score < best:
			winners = []*models.Player{p}
			best = p.Score
		case p.Score == best:
			winners = append(winners, p)
		}
	}
	return winners
}

func (m *Match) appendLog(line string) {
	m.GameLog = append([]string{line}, m.GameLog...)
	if len(m.GameLog) > maxGameLog {
		m.GameLog = m.GameLog[:maxGameLog]
	}
}

func removeCard(hand []models.Card, idx int) []models.Card {
	out := make([]models.Card, 0, len(hand)-1)
	out = append(out, hand[:idx]...)
	return append(out, hand[idx+1:]...)
}

func playerNames(players []*models.Player) []string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return names
}

func playerIDs(players []*models.Player) []uuid.UUID {
	ids := make([]uuid.UUID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}
