package game

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinAssignsHostAndValidatesNames(t *testing.T) {
	tbl, ms := newTestTable(Options{})

	first, err := tbl.Join(uuid.New(), "  Alice ", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, first.IsHost)
	assert.Equal(t, "Alice", first.Name)
	assert.Equal(t, models.StatusActive, first.Status)

	joined := ms.ofType(first.SessionID, EventJoinSuccess)
	require.Len(t, joined, 1)
	assert.Equal(t, first.ID, joined[0].Payload["playerId"])
	assert.Equal(t, true, joined[0].Payload["isHost"])

	second, err := tbl.Join(uuid.New(), "Bob", uuid.Nil)
	require.NoError(t, err)
	assert.False(t, second.IsHost)

	for name, want := range map[string]error{
		"alice":                 ErrNameTaken,
		"":                      ErrInvalidName,
		"   ":                   ErrInvalidName,
		strings.Repeat("x", 21): ErrInvalidName,
	} {
		_, err := tbl.Join(uuid.New(), name, uuid.Nil)
		assert.ErrorIs(t, err, want, "name %q", name)
	}
	_, err = tbl.Join(uuid.New(), strings.Repeat("é", 20), uuid.Nil)
	assert.NoError(t, err)
	assert.Len(t, tbl.Players, 3)

	lobby := ms.ofType(first.SessionID, EventLobbyUpdate)
	require.NotEmpty(t, lobby)
	assert.Len(t, lobby[len(lobby)-1].Payload["players"], 3)
}

func TestJoinIncludesReconnectToken(t *testing.T) {
	var issued []uuid.UUID
	tbl, ms := newTestTable(Options{TokenIssuer: func(id uuid.UUID) (string, error) {
		issued = append(issued, id)
		return "token-" + id.String(), nil
	}})

	p, err := tbl.Join(uuid.New(), "Alice", uuid.Nil)
	require.NoError(t, err)
	joined := ms.ofType(p.SessionID, EventJoinSuccess)
	require.Len(t, joined, 1)
	assert.Equal(t, "token-"+p.ID.String(), joined[0].Payload["token"])
	assert.Equal(t, []uuid.UUID{p.ID}, issued)
}

func TestJoinDuringMatchIsRejected(t *testing.T) {
	tbl, _, ms := startTestMatch(t, 2, Options{})
	session := uuid.New()
	_, err := tbl.Join(session, "Late", uuid.Nil)
	assert.ErrorIs(t, err, ErrMatchInProgress)
	assert.NotEmpty(t, ms.ofType(session, EventAnnounce))
	assert.Len(t, tbl.Players, 2)
}

func TestRejoinReplacesOldSession(t *testing.T) {
	tbl, ms := newTestTable(Options{})
	p, err := tbl.Join(uuid.New(), "Alice", uuid.Nil)
	require.NoError(t, err)
	oldSession := p.SessionID

	newSession := uuid.New()
	_, err = tbl.Join(newSession, "ignored", p.ID)
	require.NoError(t, err)
	assert.Equal(t, newSession, p.SessionID)
	assert.Len(t, ms.ofType(oldSession, EventForceDisconnect), 1)
	assert.Len(t, tbl.Players, 1)

	_, ok := tbl.PlayerIDForSession(oldSession)
	assert.False(t, ok)

	// The stale session closing afterwards changes nothing.
	tbl.HandleDisconnect(oldSession)
	assert.Len(t, tbl.Players, 1)
}

func TestSetReadyToggles(t *testing.T) {
	tbl, _ := newTestTable(Options{})
	players := joinPlayers(t, tbl, 2)

	require.NoError(t, tbl.SetReady(players[1].ID))
	assert.True(t, players[1].Ready)
	require.NoError(t, tbl.SetReady(players[1].ID))
	assert.False(t, players[1].Ready)
	assert.ErrorIs(t, tbl.SetReady(uuid.New()), ErrUnknownPlayer)
}

func TestKickPlayer(t *testing.T) {
	tbl, ms := newTestTable(Options{})
	players := joinPlayers(t, tbl, 3)
	kickedSession := players[2].SessionID

	assert.ErrorIs(t, tbl.KickPlayer(players[1].ID, players[2].ID), ErrNotHost)
	assert.ErrorIs(t, tbl.KickPlayer(players[0].ID, players[0].ID), ErrInvalidTarget)
	require.NoError(t, tbl.KickPlayer(players[0].ID, players[2].ID))

	assert.Len(t, tbl.Players, 2)
	assert.Len(t, ms.ofType(kickedSession, EventForceDisconnect), 1)
	assert.False(t, players[2].Connected())
}

func TestStartGameRequirements(t *testing.T) {
	tbl, _ := newTestTable(Options{})
	host, err := tbl.Join(uuid.New(), "Host", uuid.Nil)
	require.NoError(t, err)
	assert.ErrorIs(t, tbl.StartGame(host.ID, ""), ErrNotEnoughPlayers)

	guest, err := tbl.Join(uuid.New(), "Guest", uuid.Nil)
	require.NoError(t, err)
	assert.ErrorIs(t, tbl.StartGame(guest.ID, ""), ErrNotHost)
	assert.ErrorIs(t, tbl.StartGame(host.ID, ""), ErrNotReady)

	require.NoError(t, tbl.SetReady(guest.ID))
	require.NoError(t, tbl.StartGame(host.ID, ""))
	require.NotNil(t, tbl.Match)
	assert.Equal(t, PhaseDealing, tbl.Match.Phase)
	assert.Equal(t, 0, tbl.Match.DealerIndex)
	assert.Equal(t, DefaultCardsToDeal, tbl.Match.CardsToDeal)
	assert.False(t, guest.Ready)
	assert.ErrorIs(t, tbl.StartGame(host.ID, ""), ErrMatchInProgress)
}

func TestStartGameChecksHostPassword(t *testing.T) {
	hash, err := auth.CreateHash("hunter2", auth.Params)
	require.NoError(t, err)

	tbl, ms := newTestTable(Options{HostPasswordHash: hash})
	players := joinPlayers(t, tbl, 2)
	require.NoError(t, tbl.SetReady(players[1].ID))

	assert.ErrorIs(t, tbl.StartGame(players[0].ID, "wrong"), ErrBadPassword)
	assert.Nil(t, tbl.Match)
	toasts := ms.ofType(players[0].SessionID, EventAnnounce)
	require.NotEmpty(t, toasts)
	assert.Equal(t, "Incorrect host password.", toasts[len(toasts)-1].Message)

	require.NoError(t, tbl.StartGame(players[0].ID, "hunter2"))
	assert.NotNil(t, tbl.Match)
}

func TestLobbyDisconnectDropsPlayerAndMovesHost(t *testing.T) {
	tbl, ms := newTestTable(Options{})
	players := joinPlayers(t, tbl, 2)

	tbl.HandleDisconnect(players[0].SessionID)
	require.Len(t, tbl.Players, 1)
	assert.True(t, players[1].IsHost)
	assert.NotEmpty(t, ms.ofType(players[1].SessionID, EventLobbyUpdate))
}

type recorderFunc func(rec cache.MatchActionRecord)

func (f recorderFunc) Record(rec cache.MatchActionRecord) { f(rec) }

func TestActionsAreRecordedInOrder(t *testing.T) {
	var recs []cache.MatchActionRecord
	tbl, _ := newTestTable(Options{Recorder: recorderFunc(func(rec cache.MatchActionRecord) {
		recs = append(recs, rec)
	})})
	players := joinPlayers(t, tbl, 2)
	require.NoError(t, tbl.SetReady(players[1].ID))
	require.NoError(t, tbl.StartGame(players[0].ID, ""))
	require.NoError(t, tbl.DealChoice(players[0].ID, 7))

	var types []string
	for _, rec := range recs {
		types = append(types, rec.ActionType)
	}
	require.Equal(t, []string{"player_join", "player_join", "match_start", "round_start", "deal"}, types)

	// Indexes restart with each match.
	for i, rec := range recs[2:] {
		assert.Equal(t, i+1, rec.ActionIndex)
		assert.Equal(t, tbl.Match.ID, rec.MatchID)
	}
	assert.Equal(t, tbl.ID, recs[0].MatchID)
}

func TestJoinRejectsSecondSeatOnSameSession(t *testing.T) {
	tbl, _ := newTestTable(Options{})
	session := uuid.New()

	first, err := tbl.Join(session, "Alice", uuid.Nil)
	require.NoError(t, err)

	_, err = tbl.Join(session, "Mallory", uuid.Nil)
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	assert.Len(t, tbl.Players, 1)

	// Rejoining as the bound player from the same session is harmless.
	again, err := tbl.Join(session, "", first.ID)
	require.NoError(t, err)
	assert.Same(t, first, again)

	id, ok := tbl.PlayerIDForSession(session)
	require.True(t, ok)
	assert.Equal(t, first.ID, id)
}
