// internal/game/errors.go
package game

import "errors"

// Intent rejections. The table ignores the intent and leaves state untouched.
var (
	ErrNoMatch          = errors.New("no match in progress")
	ErrMatchInProgress  = errors.New("a match is already in progress")
	ErrWrongPhase       = errors.New("action not allowed in the current phase")
	ErrPaused           = errors.New("game is paused")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrNotActive        = errors.New("player is not active")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrNotHost          = errors.New("only the host may do that")
	ErrNotChooser       = errors.New("player is not resolving the pending choice")
	ErrPendingChoice    = errors.New("a pending choice must be resolved first")
	ErrInvalidCardIndex = errors.New("invalid card index")
	ErrInvalidMove      = errors.New("card cannot be played")
	ErrMustPlay         = errors.New("player holds a playable card")
	ErrUnoNotAllowed    = errors.New("uno can only be called holding two cards")
	ErrInvalidColor     = errors.New("invalid color")
	ErrInvalidChoice    = errors.New("invalid choice")
	ErrInvalidTarget    = errors.New("invalid target player")
	ErrHandMismatch     = errors.New("rearranged hand does not match")
	ErrInvalidDealCount = errors.New("invalid number of cards to deal")
	ErrBadPassword      = errors.New("incorrect host password")
	ErrNotEnoughPlayers = errors.New("at least two players are required")
	ErrNotReady         = errors.New("not every player is ready")
	ErrInvalidName      = errors.New("invalid player name")
	ErrNameTaken        = errors.New("player name already taken")
	ErrAlreadyJoined    = errors.New("session already has a seat")
	ErrPlayerRemoved    = errors.New("player was removed from the match")
	ErrNoActivePlayers  = errors.New("no active players")
)
