// internal/handlers/table_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

// InboundMessage is a client intent. Fields are read according to Type.
type InboundMessage struct {
	Type string `json:"type"`

	PlayerName string `json:"playerName,omitempty"`
	PlayerID   string `json:"playerId,omitempty"`
	Token      string `json:"token,omitempty"`

	PlayerIDToKick string `json:"playerIdToKick,omitempty"`
	PlayerIDToMark string `json:"playerIdToMark,omitempty"`
	TargetPlayerID string `json:"targetPlayerId,omitempty"`

	Password  string        `json:"password,omitempty"`
	NumCards  *int          `json:"numCards,omitempty"`
	CardIndex *int          `json:"cardIndex,omitempty"`
	Play      bool          `json:"play,omitempty"`
	Choice    string        `json:"choice,omitempty"`
	Color     string        `json:"color,omitempty"`
	NewHand   []models.Card `json:"newHand,omitempty"`
}

var errMissingField = errors.New("missing field")

// TableWSHandler upgrades the request and runs the session until either side
// closes it.
func TableWSHandler(logger *logrus.Logger, s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: s.opts.OriginPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the uno subprotocol")
			return
		}
		c.SetReadLimit(maxMessageBytes)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		cl := s.register()
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		go s.writePump(ctx, c, cl)
		readErr := s.readPump(ctx, c, cl)

		s.unregister(cl)
		s.Table.HandleDisconnect(cl.sessionID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// readPump reads intents until the connection fails. A normal close returns nil.
func (s *TableServer) readPump(ctx context.Context, c *websocket.Conn, cl *client) error {
	for {
		if err := cl.limiter.Wait(ctx); err != nil {
			return nil
		}
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			cl.log.Warnf("Received non-text message type %d. Ignoring.", typ)
			continue
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			cl.log.Debugf("Invalid JSON: %v", err)
			cl.writeError("Invalid JSON format.")
			continue
		}
		s.dispatch(cl, msg)
	}
}

// writePump drains OutChan. After a kick it flushes what is queued, then
// closes with the kick's code.
func (s *TableServer) writePump(ctx context.Context, c *websocket.Conn, cl *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	write := func(data []byte) bool {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Write(writeCtx, websocket.MessageText, data); err != nil {
			cl.log.Debugf("Write failed: %v", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-cl.OutChan:
			if !write(data) {
				c.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		case <-cl.kicked:
		drain:
			for {
				select {
				case data := <-cl.OutChan:
					if !write(data) {
						break drain
					}
				default:
					break drain
				}
			}
			c.Close(cl.kickCode, cl.kickReason)
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				cl.log.Debugf("Ping failed: %v", err)
				c.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}

func (c *client) writeError(msg string) {
	data, _ := json.Marshal(map[string]string{"type": "error", "message": msg})
	c.enqueue(data)
}

// dispatch routes one intent. Rejected intents are logged by the table and
// otherwise ignored.
func (s *TableServer) dispatch(cl *client, msg InboundMessage) {
	switch msg.Type {
	case "ping":
		cl.enqueue([]byte(`{"type":"pong"}`))
		return
	case "joinGame":
		s.handleJoin(cl, msg)
		return
	}

	playerID, ok := s.Table.PlayerIDForSession(cl.sessionID)
	if !ok {
		cl.log.Debugf("Ignoring %s from a session that has not joined", msg.Type)
		return
	}

	var err error
	t := s.Table
	switch msg.Type {
	case "setPlayerReady":
		err = t.SetReady(playerID)
	case "kickPlayer":
		var target uuid.UUID
		if target, err = parseID(msg.PlayerIDToKick); err == nil {
			err = t.KickPlayer(playerID, target)
		}
	case "startGame":
		err = t.StartGame(playerID, msg.Password)
	case "dealChoice":
		if msg.NumCards == nil {
			err = t.DealDefault(playerID)
		} else {
			err = t.DealChoice(playerID, *msg.NumCards)
		}
	case "playCard":
		if msg.CardIndex == nil {
			err = errMissingField
		} else {
			err = t.PlayCard(playerID, *msg.CardIndex)
		}
	case "callUno":
		err = t.CallUno(playerID)
	case "drawCard":
		err = t.DrawCard(playerID)
	case "choosePlayDrawnWild":
		idx := -1
		if msg.CardIndex != nil {
			idx = *msg.CardIndex
		}
		err = t.ChoosePlayDrawnWild(playerID, msg.Play, idx)
	case "pickUntilChoice":
		err = t.PickUntilChoice(playerID, msg.Choice)
	case "swapHandsChoice":
		var target uuid.UUID
		if target, err = parseID(msg.TargetPlayerID); err == nil {
			err = t.SwapHandsChoice(playerID, target)
		}
	case "colorChosen":
		var color models.Color
		if color, err = models.ParseColor(msg.Color); err == nil {
			err = t.ChooseColor(playerID, color)
		}
	case "rearrangeHand":
		err = t.RearrangeHand(playerID, msg.NewHand)
	case "markPlayerAFK":
		var target uuid.UUID
		if target, err = parseID(msg.PlayerIDToMark); err == nil {
			err = t.MarkPlayerAFK(playerID, target)
		}
	case "playerIsBack":
		err = t.PlayerIsBack(playerID)
	case "playerReadyForNextRound":
		err = t.PlayerReadyForNextRound(playerID)
	case "endGame":
		err = t.EndGame(playerID)
	case "endSession":
		err = t.EndSession(playerID)
	case "hardReset":
		err = t.HardReset(playerID)
	default:
		cl.log.Debugf("Unknown message type %q", msg.Type)
		cl.writeError(fmt.Sprintf("Unknown message type: %s", msg.Type))
		return
	}
	if err != nil {
		cl.log.WithField("player", playerID).Debugf("%s rejected: %v", msg.Type, err)
	}
}

// handleJoin seats a new player, or rebinds a returning one after checking the
// reconnect token.
func (s *TableServer) handleJoin(cl *client, msg InboundMessage) {
	var playerID uuid.UUID
	if msg.PlayerID != "" {
		id, err := uuid.Parse(msg.PlayerID)
		if err != nil {
			cl.log.Debugf("joinGame with malformed playerId: %v", err)
			cl.enqueue(game.EncodeEvent(game.Event{Type: game.EventAnnounce, Message: "Could not restore your previous session."}))
			return
		}
		if s.opts.VerifyToken != nil {
			subject, err := s.opts.VerifyToken(msg.Token)
			if err != nil || subject != id {
				cl.log.Debugf("joinGame token rejected for %s: %v", id, err)
				cl.enqueue(game.EncodeEvent(game.Event{Type: game.EventAnnounce, Message: "Could not restore your previous session."}))
				return
			}
		}
		playerID = id
	}

	if _, err := s.Table.Join(cl.sessionID, msg.PlayerName, playerID); err != nil {
		cl.log.Debugf("joinGame rejected: %v", err)
	}
}

func parseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, errMissingField
	}
	return uuid.Parse(s)
}
