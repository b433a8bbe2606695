// internal/game/helpers_test.go
package game

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// mockSender collects events per session instead of writing to a socket.
type mockSender struct {
	mu     sync.Mutex
	events map[uuid.UUID][]Event
}

func newMockSender() *mockSender {
	return &mockSender{events: make(map[uuid.UUID][]Event)}
}

func (ms *mockSender) send(sessionID uuid.UUID, ev Event) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.events[sessionID] = append(ms.events[sessionID], ev)
}

func (ms *mockSender) clear() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.events = make(map[uuid.UUID][]Event)
}

func (ms *mockSender) ofType(sessionID uuid.UUID, typ EventType) []Event {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []Event
	for _, ev := range ms.events[sessionID] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (ms *mockSender) types(sessionID uuid.UUID) []EventType {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]EventType, len(ms.events[sessionID]))
	for i, ev := range ms.events[sessionID] {
		out[i] = ev.Type
	}
	return out
}

// indexOf returns the position of the first event of typ sent to sessionID, or -1.
func (ms *mockSender) indexOf(sessionID uuid.UUID, typ EventType) int {
	for i, got := range ms.types(sessionID) {
		if got == typ {
			return i
		}
	}
	return -1
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestTable(opts Options) (*Table, *mockSender) {
	opts.Logger = quietLogger()
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(42))
	}
	tbl := NewTable(opts)
	ms := newMockSender()
	tbl.SendFn = ms.send
	return tbl, ms
}

func joinPlayers(t *testing.T, tbl *Table, n int) []*models.Player {
	t.Helper()
	players := make([]*models.Player, n)
	for i := 0; i < n; i++ {
		p, err := tbl.Join(uuid.New(), fmt.Sprintf("Player%d", i+1), uuid.Nil)
		require.NoError(t, err)
		players[i] = p
	}
	return players
}

// startTestMatch seats n players and starts a match that is waiting on the first deal.
func startTestMatch(t *testing.T, n int, opts Options) (*Table, []*models.Player, *mockSender) {
	t.Helper()
	tbl, ms := newTestTable(opts)
	players := joinPlayers(t, tbl, n)
	for _, p := range players[1:] {
		require.NoError(t, tbl.SetReady(p.ID))
	}
	require.NoError(t, tbl.StartGame(players[0].ID, ""))
	require.Equal(t, PhaseDealing, tbl.Match.Phase)
	ms.clear()
	return tbl, players, ms
}

// stackRound skips the deal and puts the match into Playing with fixed hands.
// Seat 0 is to play.
func stackRound(tbl *Table, top models.Card, draw []models.Card, hands ...[]models.Card) {
	m := tbl.Match
	for i, p := range m.Players {
		p.Hand = append([]models.Card(nil), hands[i]...)
		p.UnoState = models.UnoSafe
	}
	m.DrawPile = append([]models.Card(nil), draw...)
	m.DiscardPile = []DiscardEntry{{Card: top, PlayerName: m.Players[m.DealerIndex].Name}}
	m.ActiveColor = top.Color
	m.Direction = 1
	m.DrawPenalty = 0
	m.CurrentPlayerIndex = 0
	m.WinnersOnHold = nil
	m.clearPending()
}

func card(color models.Color, value models.Value) models.Card {
	return models.Card{Color: color, Value: value}
}

func wild(value models.Value) models.Card {
	return models.Card{Color: models.ColorBlack, Value: value}
}

// locked runs fn under the table lock, for assertions racing a timer.
func locked(tbl *Table, fn func()) {
	tbl.Mu.Lock()
	defer tbl.Mu.Unlock()
	fn()
}
