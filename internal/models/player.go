package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PlayerStatus tracks a seat's participation in the current match.
type PlayerStatus int

const (
	StatusActive PlayerStatus = iota
	StatusDisconnected
	StatusRemoved // terminal
)

func (s PlayerStatus) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusDisconnected:
		return "Disconnected"
	case StatusRemoved:
		return "Removed"
	}
	return fmt.Sprintf("PlayerStatus(%d)", int(s))
}

func (s PlayerStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnoState is a player's UNO declaration state. Unsafe is only ever derived for display.
type UnoState int

const (
	UnoSafe UnoState = iota
	UnoDeclared
	UnoUnsafe
)

func (u UnoState) String() string {
	switch u {
	case UnoSafe:
		return "safe"
	case UnoDeclared:
		return "declared"
	case UnoUnsafe:
		return "unsafe"
	}
	return fmt.Sprintf("UnoState(%d)", int(u))
}

func (u UnoState) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// RoundScore is one scoreboard cell. Removed players score "N/A" for the round.
type RoundScore struct {
	Points     int
	Applicable bool
}

// NotApplicable is the round score recorded for Removed players.
var NotApplicable = RoundScore{}

// Points builds an applicable round score.
func Points(n int) RoundScore {
	return RoundScore{Points: n, Applicable: true}
}

func (r RoundScore) MarshalJSON() ([]byte, error) {
	if !r.Applicable {
		return json.Marshal("N/A")
	}
	return json.Marshal(r.Points)
}

func (r *RoundScore) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = Points(n)
		return nil
	}
	*r = NotApplicable
	return nil
}

// Player is a seat at the table. ID is stable across reconnects; SessionID is the
// transient transport handle currently bound to it.
type Player struct {
	ID            uuid.UUID    `json:"id"`
	SessionID     uuid.UUID    `json:"-"`
	Name          string       `json:"name"`
	IsHost        bool         `json:"isHost"`
	Ready         bool         `json:"ready"`
	Score         int          `json:"score"`
	Hand          []Card       `json:"-"`
	UnoState      UnoState     `json:"unoState"`
	ScoresByRound []RoundScore `json:"scoresByRound"`
	Status        PlayerStatus `json:"status"`
}

// Connected reports whether a transport session is currently bound to the player.
func (p *Player) Connected() bool {
	return p.SessionID != uuid.Nil
}
