// internal/game/table.go
package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	MinCardsToDeal     = 1
	MaxCardsToDeal     = 13
	DefaultCardsToDeal = 7
	maxNameLength      = 20
)

// ActionRecorder receives the match audit trail. Record must not block.
type ActionRecorder interface {
	Record(rec cache.MatchActionRecord)
}

// Options configures a Table.
type Options struct {
	Logger *logrus.Logger

	// HostPasswordHash is an argon2id hash; empty disables the password check.
	HostPasswordHash string

	DisconnectGrace      time.Duration
	RoundTransitionDelay time.Duration
	DefaultCardsToDeal   int

	Recorder ActionRecorder

	// TokenIssuer mints the reconnect token included in joinSuccess.
	TokenIssuer func(playerID uuid.UUID) (string, error)

	Rand *rand.Rand
}

// Table is the authoritative state of the one table served by this process: the
// lobby roster plus the current match, if any.
type Table struct {
	ID uuid.UUID
	Mu sync.Mutex

	// Players is the roster in seat order.
	Players []*models.Player
	Match   *Match

	// SendFn delivers an event to one transport session. It is called with the
	// lock held and must not block.
	SendFn func(sessionID uuid.UUID, ev Event)

	opts        Options
	log         *logrus.Entry
	rng         *rand.Rand
	tasks       map[string]*scheduledTask
	actionIndex int

	now     func() time.Time
	newDeck func() []models.Card
}

// NewTable builds an empty table.
func NewTable(opts Options) *Table {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.DisconnectGrace <= 0 {
		opts.DisconnectGrace = 60 * time.Second
	}
	if opts.DefaultCardsToDeal < MinCardsToDeal || opts.DefaultCardsToDeal > MaxCardsToDeal {
		opts.DefaultCardsToDeal = DefaultCardsToDeal
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	id := uuid.New()
	t := &Table{
		ID:    id,
		opts:  opts,
		log:   opts.Logger.WithField("table", id.String()),
		rng:   opts.Rand,
		tasks: make(map[string]*scheduledTask),
		now:   time.Now,
	}
	t.newDeck = func() []models.Card {
		return Shuffle(NewDeck(), t.rng)
	}
	return t
}

// PlayerIDForSession resolves the player bound to a transport session.
func (t *Table) PlayerIDForSession(sessionID uuid.UUID) (uuid.UUID, bool) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if p := t.rosterBySession(sessionID); p != nil {
		return p.ID, true
	}
	return uuid.Nil, false
}

// Join seats a new player, or rebinds an existing one when playerID matches a
// roster entry. Reconnecting a Disconnected player resumes their seat.
func (t *Table) Join(sessionID uuid.UUID, name string, playerID uuid.UUID) (*models.Player, error) {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	// One seat per session.
	if bound := t.rosterBySession(sessionID); bound != nil && bound.ID != playerID {
		return nil, t.reject("joinGame", bound.ID, ErrAlreadyJoined)
	}

	if playerID != uuid.Nil {
		if p := t.rosterPlayer(playerID); p != nil {
			t.rebind(p, sessionID)
			return p, nil
		}
		if t.Match != nil {
			if p := t.Match.player(playerID); p != nil && p.Status == models.StatusRemoved {
				t.sendToSession(sessionID, Event{Type: EventAnnounce, Message: "You were removed from this game."})
				return nil, t.reject("joinGame", playerID, ErrPlayerRemoved)
			}
		}
	}

	if t.Match != nil && t.Match.Phase != PhaseGameOver {
		t.sendToSession(sessionID, Event{Type: EventAnnounce, Message: "A game is already in progress."})
		return nil, t.reject("joinGame", playerID, ErrMatchInProgress)
	}

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		t.sendToSession(sessionID, Event{Type: EventAnnounce, Message: "Please choose a name up to 20 characters."})
		return nil, t.reject("joinGame", playerID, ErrInvalidName)
	}
	for _, p := range t.Players {
		if strings.EqualFold(p.Name, name) {
			t.sendToSession(sessionID, Event{Type: EventAnnounce, Message: "That name is already taken."})
			return nil, t.reject("joinGame", playerID, ErrNameTaken)
		}
	}

	p := &models.Player{
		ID:        uuid.New(),
		SessionID: sessionID,
		Name:      name,
		IsHost:    len(t.Players) == 0,
		Status:    models.StatusActive,
	}
	t.Players = append(t.Players, p)
	t.log.WithFields(logrus.Fields{"player": p.ID, "name": p.Name, "host": p.IsHost}).Info("Player joined")
	t.logAction(p.ID, "player_join", map[string]interface{}{"name": p.Name})

	t.sendJoinSuccess(p)
	t.broadcastLobby()
	if t.Match != nil {
		t.sendState(p)
	}
	return p, nil
}

// rebind attaches a new session to an existing player. Assumes lock is held.
func (t *Table) rebind(p *models.Player, sessionID uuid.UUID) {
	if p.Connected() && p.SessionID != sessionID {
		t.sendTo(p, Event{Type: EventForceDisconnect, Message: "Connected from another session."})
	}
	p.SessionID = sessionID
	t.log.WithField("player", p.ID).Infof("%s rejoined", p.Name)
	t.sendJoinSuccess(p)

	if t.Match == nil {
		t.broadcastLobby()
		return
	}
	if p.Status == models.StatusDisconnected && t.Match.Phase != PhaseGameOver {
		t.restorePlayer(p, "reconnected")
		return
	}
	t.sendState(p)
}

func (t *Table) sendJoinSuccess(p *models.Player) {
	payload := map[string]interface{}{
		"playerId":   p.ID,
		"playerName": p.Name,
		"isHost":     p.IsHost,
	}
	if t.opts.TokenIssuer != nil {
		token, err := t.opts.TokenIssuer(p.ID)
		if err != nil {
			t.log.WithError(err).Warn("Failed to issue reconnect token")
		} else {
			payload["token"] = token
		}
	}
	t.sendTo(p, Event{Type: EventJoinSuccess, Payload: payload})
}

// SetReady toggles a player's lobby ready flag.
func (t *Table) SetReady(playerID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	if !t.inLobby() {
		return t.reject("setPlayerReady", playerID, ErrWrongPhase)
	}
	p := t.rosterPlayer(playerID)
	if p == nil {
		return t.reject("setPlayerReady", playerID, ErrUnknownPlayer)
	}
	p.Ready = !p.Ready
	t.broadcastLobby()
	return nil
}

// KickPlayer removes a player from the lobby. Host only.
func (t *Table) KickPlayer(hostID, targetID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	if !t.inLobby() {
		return t.reject("kickPlayer", hostID, ErrWrongPhase)
	}
	if _, err := t.requireHost(hostID); err != nil {
		return t.reject("kickPlayer", hostID, err)
	}
	target := t.rosterPlayer(targetID)
	if target == nil || target.ID == hostID {
		return t.reject("kickPlayer", hostID, ErrInvalidTarget)
	}

	t.sendTo(target, Event{Type: EventForceDisconnect, Message: "You were kicked by the host."})
	target.SessionID = uuid.Nil
	t.dropFromRoster(target.ID)
	t.log.WithField("player", target.ID).Infof("%s was kicked", target.Name)
	t.logAction(hostID, "player_kick", map[string]interface{}{"target": target.ID})
	t.broadcastLobby()
	return nil
}

// StartGame creates a match from the roster and opens the first deal.
func (t *Table) StartGame(playerID uuid.UUID, password string) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	if !t.inLobby() {
		return t.reject("startGame", playerID, ErrMatchInProgress)
	}
	host, err := t.requireHost(playerID)
	if err != nil {
		return t.reject("startGame", playerID, err)
	}
	if t.opts.HostPasswordHash != "" {
		ok, err := auth.ComparePasswordAndHash(password, t.opts.HostPasswordHash)
		if err != nil {
			t.log.WithError(err).Error("Host password hash is unusable")
		}
		if !ok {
			t.announceTo(host, "Incorrect host password.")
			return t.reject("startGame", playerID, ErrBadPassword)
		}
	}
	if len(t.Players) < 2 {
		t.announceTo(host, "At least two players are needed to start.")
		return t.reject("startGame", playerID, ErrNotEnoughPlayers)
	}
	for _, p := range t.Players {
		if !p.IsHost && !p.Ready {
			t.announceTo(host, "Not every player is ready.")
			return t.reject("startGame", playerID, ErrNotReady)
		}
	}

	t.setupMatch()
	return nil
}

// setupMatch resets per-match player state and starts round one.
// Assumes lock is held.
func (t *Table) setupMatch() {
	t.cancelAllTasks()
	for _, p := range t.Players {
		p.Score = 0
		p.ScoresByRound = nil
		p.Hand = nil
		p.UnoState = models.UnoSafe
		p.Status = models.StatusActive
		p.Ready = false
	}
	t.Match = newMatch(t.Players, t.opts.DefaultCardsToDeal)
	t.actionIndex = 0
	t.log.WithField("match", t.Match.ID).Infof("Match started with %d players", len(t.Players))
	t.logAction(uuid.Nil, "match_start", map[string]interface{}{
		"players": playerNames(t.Players),
	})
	t.startNewRound()
}

// HandleDisconnect reacts to a transport session closing. Sessions that were
// already replaced by a newer connection are ignored.
func (t *Table) HandleDisconnect(sessionID uuid.UUID) {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	p := t.rosterBySession(sessionID)
	if p == nil {
		return
	}
	p.SessionID = uuid.Nil

	if t.inLobby() {
		t.dropFromRoster(p.ID)
		t.log.WithField("player", p.ID).Infof("%s left the lobby", p.Name)
		if p.IsHost {
			p.IsHost = false
			t.reassignHost()
		}
		t.broadcastLobby()
		return
	}

	if p.Status == models.StatusActive {
		t.markDisconnected(p, "lost connection")
		return
	}
	t.broadcastState()
}

// Snapshot returns the state as seen by the given player.
func (t *Table) Snapshot(forPlayer uuid.UUID) (StateView, bool) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.Match == nil {
		return StateView{}, false
	}
	return t.snapshot(forPlayer), true
}

// TableStats is the health summary exposed over HTTP.
type TableStats struct {
	TableID         uuid.UUID `json:"tableId"`
	Players         int       `json:"players"`
	Connected       int       `json:"connected"`
	MatchInProgress bool      `json:"matchInProgress"`
	Phase           string    `json:"phase,omitempty"`
	Round           int       `json:"round,omitempty"`
}

// Stats summarizes the table.
func (t *Table) Stats() TableStats {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	st := TableStats{TableID: t.ID, Players: len(t.Players)}
	for _, p := range t.Players {
		if p.Connected() {
			st.Connected++
		}
	}
	if t.Match != nil {
		st.MatchInProgress = t.Match.Phase != PhaseGameOver
		st.Phase = t.Match.Phase.String()
		st.Round = t.Match.RoundNumber
	}
	return st
}

// inLobby reports whether roster changes are allowed. Assumes lock is held.
func (t *Table) inLobby() bool {
	return t.Match == nil || t.Match.Phase == PhaseGameOver
}

func (t *Table) rosterPlayer(id uuid.UUID) *models.Player {
	for _, p := range t.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (t *Table) rosterBySession(sessionID uuid.UUID) *models.Player {
	if sessionID == uuid.Nil {
		return nil
	}
	for _, p := range t.Players {
		if p.SessionID == sessionID {
			return p
		}
	}
	return nil
}

func (t *Table) dropFromRoster(id uuid.UUID) {
	for i, p := range t.Players {
		if p.ID == id {
			t.Players = append(t.Players[:i:i], t.Players[i+1:]...)
			return
		}
	}
}

func (t *Table) requireHost(playerID uuid.UUID) (*models.Player, error) {
	p := t.rosterPlayer(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if !p.IsHost {
		return nil, ErrNotHost
	}
	return p, nil
}

// reassignHost hands the host seat to the first Active roster player.
// Assumes lock is held.
func (t *Table) reassignHost() {
	for _, p := range t.Players {
		if p.IsHost {
			return
		}
	}
	for _, p := range t.Players {
		if p.Status == models.StatusActive {
			p.IsHost = true
			t.log.WithField("player", p.ID).Infof("%s is now the host", p.Name)
			t.broadcast(Event{Type: EventAnnounce, Message: p.Name + " is now the host."})
			return
		}
	}
}

// reject logs an ignored intent and hands the error back to the caller.
func (t *Table) reject(op string, playerID uuid.UUID, err error) error {
	t.log.WithFields(logrus.Fields{"op": op, "player": playerID}).Debugf("Ignoring intent: %v", err)
	return err
}

// logAction forwards an action to the recorder. Assumes lock is held.
func (t *Table) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	if t.opts.Recorder == nil {
		return
	}
	t.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	matchID := t.ID
	if t.Match != nil {
		matchID = t.Match.ID
	}
	t.opts.Recorder.Record(cache.MatchActionRecord{
		MatchID:       matchID,
		ActionIndex:   t.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     t.now().UnixMilli(),
	})
}
