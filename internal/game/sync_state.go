// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// PlayerView is one seat from the perspective of the requesting player. Only the
// requester's own hand is revealed.
type PlayerView struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	IsHost        bool                `json:"isHost"`
	Status        models.PlayerStatus `json:"status"`
	Connected     bool                `json:"connected"`
	UnoState      models.UnoState     `json:"unoState"`
	HandSize      int                 `json:"handSize"`
	Hand          []models.Card       `json:"hand,omitempty"`
	Score         int                 `json:"score"`
	ScoresByRound []models.RoundScore `json:"scoresByRound"`
	IsCurrentTurn bool                `json:"isCurrentTurn"`
	IsDealer      bool                `json:"isDealer"`
}

// PendingView exposes the open choice, if any.
type PendingView struct {
	Kind        PendingKind   `json:"kind"`
	PlayerID    uuid.UUID     `json:"playerId"`
	Card        *models.Card  `json:"card,omitempty"`
	TargetID    *uuid.UUID    `json:"targetPlayerId,omitempty"`
	TargetColor *models.Color `json:"targetColor,omitempty"`
}

// StateView is the complete state snapshot sent with every updateGameState.
type StateView struct {
	MatchID            uuid.UUID      `json:"matchId"`
	Phase              Phase          `json:"phase"`
	Players            []PlayerView   `json:"players"`
	DealerIndex        int            `json:"dealerIndex"`
	DrawPileSize       int            `json:"drawPileSize"`
	DiscardPile        []DiscardEntry `json:"discardPile"`
	TopCard            *models.Card   `json:"topCard,omitempty"`
	ActiveColor        *models.Color  `json:"activeColor,omitempty"`
	Direction          int            `json:"playDirection"`
	DrawPenalty        int            `json:"drawPenalty"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	CurrentPlayerID    uuid.UUID      `json:"currentPlayerId"`
	Pending            *PendingView   `json:"pending,omitempty"`
	WinnersOnHold      []uuid.UUID    `json:"winnersOnHold"`
	Paused             bool           `json:"isPaused"`
	Pause              *PauseInfo     `json:"pauseInfo,omitempty"`
	ReadyForNextRound  []uuid.UUID    `json:"readyForNextRound"`
	RoundNumber        int            `json:"roundNumber"`
	CardsToDeal        int            `json:"cardsToDeal"`
	GameLog            []string       `json:"gameLog"`
}

// snapshot builds the view of the match for forPlayer. Every slice is copied so the
// view can be serialized after the lock is released.
// Assumes lock is held.
func (t *Table) snapshot(forPlayer uuid.UUID) StateView {
	m := t.Match
	view := StateView{
		MatchID:            m.ID,
		Phase:              m.Phase,
		DealerIndex:        m.DealerIndex,
		DrawPileSize:       len(m.DrawPile),
		DiscardPile:        append([]DiscardEntry(nil), m.DiscardPile...),
		Direction:          m.Direction,
		DrawPenalty:        m.DrawPenalty,
		CurrentPlayerIndex: m.CurrentPlayerIndex,
		WinnersOnHold:      append([]uuid.UUID(nil), m.WinnersOnHold...),
		Paused:             m.Paused,
		RoundNumber:        m.RoundNumber,
		CardsToDeal:        m.CardsToDeal,
		GameLog:            append([]string(nil), m.GameLog...),
	}
	if cur := m.currentPlayer(); cur != nil {
		view.CurrentPlayerID = cur.ID
	}
	if top, ok := m.topCard(); ok {
		color := m.ActiveColor
		view.TopCard = &top
		view.ActiveColor = &color
	}
	if m.Paused {
		pause := PauseInfo{EndsAt: m.Pause.EndsAt, PlayerNames: append([]string(nil), m.Pause.PlayerNames...)}
		view.Pause = &pause
	}
	if pa := m.Pending; pa.Kind != PendingNone {
		pv := &PendingView{Kind: pa.Kind, PlayerID: pa.PlayerID}
		// A drawn wild is private to the drawer.
		if pa.Kind != PendingDrawnWild || pa.PlayerID == forPlayer {
			card := pa.Card
			pv.Card = &card
		}
		if pa.TargetID != uuid.Nil {
			target := pa.TargetID
			pv.TargetID = &target
		}
		if pa.Kind == PendingPickUntilDraw || pa.Kind == PendingChooseSwapTarget {
			color := pa.TargetColor
			pv.TargetColor = &color
		}
		view.Pending = pv
	}
	for _, p := range m.Players {
		if m.ReadyForNextRound[p.ID] {
			view.ReadyForNextRound = append(view.ReadyForNextRound, p.ID)
		}
	}

	view.Players = make([]PlayerView, len(m.Players))
	for i, p := range m.Players {
		pv := PlayerView{
			ID:            p.ID,
			Name:          p.Name,
			IsHost:        p.IsHost,
			Status:        p.Status,
			Connected:     p.Connected(),
			UnoState:      p.UnoState,
			HandSize:      len(p.Hand),
			Score:         p.Score,
			ScoresByRound: append([]models.RoundScore(nil), p.ScoresByRound...),
			IsCurrentTurn: m.Phase.inRound() && i == m.CurrentPlayerIndex,
			IsDealer:      i == m.DealerIndex,
		}
		if p.ID == forPlayer {
			pv.Hand = append([]models.Card(nil), p.Hand...)
		}
		view.Players[i] = pv
	}
	return view
}
