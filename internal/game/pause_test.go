package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playingTable(t *testing.T, n int, opts Options) (*Table, []*models.Player, *mockSender) {
	t.Helper()
	tbl, players, ms := startTestMatch(t, n, opts)
	hands := make([][]models.Card, n)
	for i := range hands {
		hands[i] = []models.Card{
			card(models.ColorBlue, models.ValueOne),
			card(models.ColorBlue, models.ValueTwo),
			card(models.ColorGreen, models.ValueThree),
		}
	}
	stackRound(tbl, card(models.ColorRed, models.ValueFive), []models.Card{card(models.ColorYellow, models.ValueNine)}, hands...)
	ms.clear()
	return tbl, players, ms
}

func TestMarkPlayerAFKAndReturn(t *testing.T) {
	tbl, players, ms := playingTable(t, 3, Options{})
	m := tbl.Match
	start := time.Now()

	assert.ErrorIs(t, tbl.MarkPlayerAFK(players[1].ID, players[2].ID), ErrNotHost)
	assert.ErrorIs(t, tbl.MarkPlayerAFK(players[0].ID, players[0].ID), ErrInvalidTarget)
	require.NoError(t, tbl.MarkPlayerAFK(players[0].ID, players[1].ID))

	locked(tbl, func() {
		assert.Equal(t, models.StatusDisconnected, players[1].Status)
		assert.True(t, m.Paused)
		assert.WithinDuration(t, start.Add(60*time.Second), m.Pause.EndsAt, 2*time.Second)
		assert.Equal(t, []string{"Player2"}, m.Pause.PlayerNames)
		assert.True(t, tbl.hasTask(removalTaskKey(players[1].ID)))
	})
	assert.Len(t, ms.ofType(players[1].SessionID, EventYouWereMarkedAFK), 1)
	assert.ErrorIs(t, tbl.PlayCard(players[0].ID, 0), ErrPaused)
	assert.ErrorIs(t, tbl.DrawCard(players[0].ID), ErrPaused)

	require.NoError(t, tbl.PlayerIsBack(players[1].ID))
	locked(tbl, func() {
		assert.Equal(t, models.StatusActive, players[1].Status)
		assert.False(t, m.Paused)
		assert.Empty(t, m.Pause.PlayerNames)
		assert.False(t, tbl.hasTask(removalTaskKey(players[1].ID)))
	})
	assert.ErrorIs(t, tbl.PlayerIsBack(players[1].ID), ErrInvalidTarget)
	require.NoError(t, tbl.DrawCard(players[0].ID))
}

func TestPauseListsEveryMissingPlayer(t *testing.T) {
	tbl, players, _ := playingTable(t, 4, Options{})
	m := tbl.Match

	require.NoError(t, tbl.MarkPlayerAFK(players[0].ID, players[1].ID))
	tbl.HandleDisconnect(players[3].SessionID)
	locked(tbl, func() {
		assert.Equal(t, []string{"Player2", "Player4"}, m.Pause.PlayerNames)
	})

	require.NoError(t, tbl.PlayerIsBack(players[1].ID))
	locked(tbl, func() {
		assert.True(t, m.Paused)
		assert.Equal(t, []string{"Player4"}, m.Pause.PlayerNames)
	})
}

func TestReconnectWithPlayerIDResumes(t *testing.T) {
	tbl, players, ms := playingTable(t, 2, Options{})
	m := tbl.Match
	p := players[1]
	hand := append([]models.Card(nil), p.Hand...)

	tbl.HandleDisconnect(p.SessionID)
	locked(tbl, func() {
		assert.Equal(t, models.StatusDisconnected, p.Status)
		assert.False(t, p.Connected())
		assert.True(t, m.Paused)
	})

	session := uuid.New()
	rejoined, err := tbl.Join(session, "", p.ID)
	require.NoError(t, err)
	assert.Same(t, p, rejoined)
	locked(tbl, func() {
		assert.Equal(t, models.StatusActive, p.Status)
		assert.False(t, m.Paused)
		assert.Equal(t, hand, p.Hand)
	})
	id, ok := tbl.PlayerIDForSession(session)
	require.True(t, ok)
	assert.Equal(t, p.ID, id)
	assert.Len(t, ms.ofType(session, EventJoinSuccess), 1)
	assert.NotEmpty(t, ms.ofType(session, EventUpdateGameState))
}

func TestRemovalAfterGracePeriod(t *testing.T) {
	tbl, players, ms := playingTable(t, 3, Options{DisconnectGrace: 20 * time.Millisecond})
	m := tbl.Match
	m.CurrentPlayerIndex = 1
	m.DrawPenalty = 2
	removedID := players[1].ID

	tbl.HandleDisconnect(players[1].SessionID)
	require.Eventually(t, func() bool {
		var status models.PlayerStatus
		locked(tbl, func() { status = players[1].Status })
		return status == models.StatusRemoved
	}, time.Second, 5*time.Millisecond)

	locked(tbl, func() {
		assert.False(t, m.Paused)
		assert.Equal(t, 2, m.CurrentPlayerIndex)
		assert.Equal(t, 0, m.DrawPenalty)
		assert.Len(t, tbl.Players, 2)
		assert.Nil(t, tbl.rosterPlayer(removedID))
		assert.Equal(t, PhasePlaying, m.Phase)
	})

	// Removal is terminal.
	session := uuid.New()
	_, err := tbl.Join(session, "Player2", removedID)
	assert.ErrorIs(t, err, ErrPlayerRemoved)
	assert.NotEmpty(t, ms.ofType(session, EventAnnounce))

	// Removed players score N/A and are never winners.
	finishRoundOne(t, tbl)
	assert.Equal(t, []models.RoundScore{models.NotApplicable}, players[1].ScoresByRound)
	assert.Equal(t, 0, players[1].Score)
}

func TestRemovalReassignsHost(t *testing.T) {
	tbl, players, ms := playingTable(t, 3, Options{DisconnectGrace: 10 * time.Millisecond})

	tbl.HandleDisconnect(players[0].SessionID)
	require.Eventually(t, func() bool {
		var host bool
		locked(tbl, func() { host = players[1].IsHost })
		return host
	}, time.Second, 5*time.Millisecond)

	locked(tbl, func() {
		assert.False(t, players[0].IsHost)
		assert.Equal(t, models.StatusRemoved, players[0].Status)
		assert.Equal(t, 1, tbl.Match.CurrentPlayerIndex)
	})
	assert.NotEmpty(t, ms.ofType(players[2].SessionID, EventAnnounce))
	require.NoError(t, tbl.EndGame(players[1].ID))
}

func TestRemovalBelowTwoPlayersEndsMatch(t *testing.T) {
	tbl, players, ms := playingTable(t, 2, Options{DisconnectGrace: 10 * time.Millisecond})

	tbl.HandleDisconnect(players[1].SessionID)
	require.Eventually(t, func() bool {
		var done bool
		locked(tbl, func() { done = tbl.Match == nil })
		return done
	}, time.Second, 5*time.Millisecond)

	over := ms.ofType(players[0].SessionID, EventFinalGameOver)
	require.Len(t, over, 1)
	assert.Equal(t, []string{"Player1"}, over[0].Payload["winnerNames"])
	locked(tbl, func() {
		require.Len(t, tbl.Players, 1)
		assert.True(t, tbl.Players[0].IsHost)
	})
	assert.NotEmpty(t, ms.ofType(players[0].SessionID, EventLobbyUpdate))
}

func TestReconnectCancelsRemovalTimer(t *testing.T) {
	tbl, players, _ := playingTable(t, 2, Options{DisconnectGrace: 30 * time.Millisecond})

	tbl.HandleDisconnect(players[1].SessionID)
	_, err := tbl.Join(uuid.New(), "", players[1].ID)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	locked(tbl, func() {
		require.NotNil(t, tbl.Match)
		assert.Equal(t, models.StatusActive, players[1].Status)
		assert.Equal(t, PhasePlaying, tbl.Match.Phase)
	})
}

// A timer whose handle was replaced must not act even if its callback runs.
func TestStaleTaskIsNoop(t *testing.T) {
	tbl, _ := newTestTable(Options{})
	fired := make(chan string, 2)

	locked(tbl, func() {
		tbl.schedule("k", time.Hour, func() { fired <- "old" })
		old := tbl.tasks["k"]
		tbl.schedule("k", 10*time.Millisecond, func() { fired <- "new" })
		// Simulate the replaced timer firing anyway.
		old.timer.Reset(0)
	})

	assert.Equal(t, "new", <-fired)
	select {
	case got := <-fired:
		t.Fatalf("stale task ran: %s", got)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestMarkAFKWhileRoundOverBlocksNextRound(t *testing.T) {
	tbl, players, _ := startTestMatch(t, 3, Options{})
	finishRoundOne(t, tbl)

	require.NoError(t, tbl.MarkPlayerAFK(players[0].ID, players[2].ID))
	require.NoError(t, tbl.PlayerReadyForNextRound(players[1].ID))
	require.NoError(t, tbl.PlayerReadyForNextRound(players[0].ID))
	assert.Equal(t, PhaseRoundOver, tbl.Match.Phase, "paused")

	require.NoError(t, tbl.PlayerIsBack(players[2].ID))
	assert.Equal(t, PhaseRoundOver, tbl.Match.Phase, "returning player is not ready yet")
	require.NoError(t, tbl.PlayerReadyForNextRound(players[2].ID))
	assert.Equal(t, PhaseDealing, tbl.Match.Phase)
}

func TestMarkAFKCancelsArmedNextRound(t *testing.T) {
	tbl, players, _ := startTestMatch(t, 3, Options{RoundTransitionDelay: 20 * time.Millisecond})
	finishRoundOne(t, tbl)
	m := tbl.Match

	for _, p := range []*models.Player{players[1], players[2], players[0]} {
		require.NoError(t, tbl.PlayerReadyForNextRound(p.ID))
	}
	locked(tbl, func() { require.True(t, tbl.hasTask(nextRoundTaskKey)) })

	require.NoError(t, tbl.MarkPlayerAFK(players[0].ID, players[2].ID))
	locked(tbl, func() {
		assert.False(t, tbl.hasTask(nextRoundTaskKey))
		assert.False(t, m.ReadyForNextRound[players[2].ID])
	})

	time.Sleep(60 * time.Millisecond)
	locked(tbl, func() {
		assert.Equal(t, PhaseRoundOver, m.Phase)
		assert.Equal(t, 1, m.RoundNumber)
		assert.True(t, m.Paused)
	})

	require.NoError(t, tbl.PlayerIsBack(players[2].ID))
	locked(tbl, func() { assert.False(t, tbl.hasTask(nextRoundTaskKey), "returning player is not ready yet") })
	require.NoError(t, tbl.PlayerReadyForNextRound(players[2].ID))
	assert.Eventually(t, func() bool {
		var phase Phase
		locked(tbl, func() { phase = m.Phase })
		return phase == PhaseDealing
	}, time.Second, 5*time.Millisecond)
}

func TestRemovingWildDrawFourChooserKeepsPenalty(t *testing.T) {
	tbl, players, _ := playingTable(t, 3, Options{})
	m := tbl.Match
	players[0].Hand = append([]models.Card{wild(models.ValueWildDrawFour)}, players[0].Hand...)

	require.NoError(t, tbl.PlayCard(players[0].ID, 0))
	require.Equal(t, PhaseChoosingColor, m.Phase)
	require.Equal(t, 4, m.DrawPenalty)

	tbl.HandleDisconnect(players[0].SessionID)
	locked(tbl, func() { tbl.removePlayer(players[0].ID) })

	assert.Equal(t, models.StatusRemoved, players[0].Status)
	assert.Equal(t, PhasePlaying, m.Phase)
	assert.Equal(t, PendingNone, m.Pending.Kind)
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	assert.Equal(t, 4, m.DrawPenalty, "the next seat still owes the draw")
	assert.Equal(t, models.ColorRed, m.ActiveColor)

	assert.ErrorIs(t, tbl.PlayCard(players[1].ID, 0), ErrInvalidMove)
	before := len(players[1].Hand)
	require.NoError(t, tbl.DrawCard(players[1].ID))
	assert.Equal(t, 0, m.DrawPenalty)
	assert.Equal(t, before+1, len(players[1].Hand), "only one card was left to draw")
	assert.Equal(t, 2, m.CurrentPlayerIndex)
}

func TestRemovingPlayerWhoOwesPenaltyDropsIt(t *testing.T) {
	tbl, players, _ := playingTable(t, 3, Options{})
	m := tbl.Match
	players[0].Hand = append([]models.Card{card(models.ColorRed, models.ValueDrawTwo)}, players[0].Hand...)

	require.NoError(t, tbl.PlayCard(players[0].ID, 0))
	require.Equal(t, 1, m.CurrentPlayerIndex)
	require.Equal(t, 2, m.DrawPenalty)

	tbl.HandleDisconnect(players[1].SessionID)
	locked(tbl, func() { tbl.removePlayer(players[1].ID) })

	assert.Equal(t, PhasePlaying, m.Phase)
	assert.Equal(t, 2, m.CurrentPlayerIndex)
	assert.Equal(t, 0, m.DrawPenalty)
}
