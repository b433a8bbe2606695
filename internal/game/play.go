// internal/game/play.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// missedUnoPenalty is the number of cards drawn for reaching one card undeclared.
const missedUnoPenalty = 2

// actingPlayer validates the match phase, pause state and that the player is Active.
// Assumes lock is held.
func (t *Table) actingPlayer(playerID uuid.UUID, phases ...Phase) (*models.Player, error) {
	m := t.Match
	if m == nil {
		return nil, ErrNoMatch
	}
	allowed := false
	for _, ph := range phases {
		if m.Phase == ph {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrWrongPhase
	}
	if m.Paused {
		return nil, ErrPaused
	}
	p := m.player(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if p.Status != models.StatusActive {
		return nil, ErrNotActive
	}
	return p, nil
}

// turnPlayer is actingPlayer plus turn ownership. Assumes lock is held.
func (t *Table) turnPlayer(playerID uuid.UUID, phases ...Phase) (*models.Player, error) {
	p, err := t.actingPlayer(playerID, phases...)
	if err != nil {
		return nil, err
	}
	if cur := t.Match.currentPlayer(); cur == nil || cur.ID != p.ID {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// PlayCard plays the card at cardIndex from the current player's hand.
func (t *Table) PlayCard(playerID uuid.UUID, cardIndex int) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	p, err := t.turnPlayer(playerID, PhasePlaying)
	if err != nil {
		return t.reject("playCard", playerID, err)
	}
	if t.Match.Pending.Kind != PendingNone {
		return t.reject("playCard", playerID, ErrPendingChoice)
	}
	return t.playFromHand(p, cardIndex, false)
}

// playFromHand moves a card to the discard pile and resolves it. Auto-plays
// (drawn cards) are exempt from the missed-UNO penalty.
// Assumes lock is held.
func (t *Table) playFromHand(p *models.Player, cardIndex int, auto bool) error {
	m := t.Match
	if cardIndex < 0 || cardIndex >= len(p.Hand) {
		return t.reject("playCard", p.ID, ErrInvalidCardIndex)
	}
	card := p.Hand[cardIndex]
	if !m.canPlay(card) {
		if m.DrawPenalty > 0 {
			t.announceTo(p, fmt.Sprintf("Stack a %s or draw %d cards.", m.DiscardPile[0].Card.Value, m.DrawPenalty))
		} else {
			t.announceTo(p, "You can't play that card.")
		}
		return t.reject("playCard", p.ID, ErrInvalidMove)
	}

	p.Hand = removeCard(p.Hand, cardIndex)
	m.pushDiscard(card, p.Name)
	t.broadcast(Event{
		Type: EventAnimatePlay,
		Payload: map[string]interface{}{
			"playerId":  p.ID,
			"cardIndex": cardIndex,
			"card":      card,
		},
	})
	t.addLog(fmt.Sprintf("%s played %s", p.Name, card))
	t.logAction(p.ID, "play_card", map[string]interface{}{"card": card.String(), "auto": auto})

	if !auto && len(p.Hand) == 1 && p.UnoState != models.UnoDeclared {
		t.penalizeMissedUno(p)
	}

	if len(p.Hand) == 0 {
		if !card.DelaysWin() {
			t.releaseWinnersOnHold(p)
			return nil
		}
		m.WinnersOnHold = append(m.WinnersOnHold, p.ID)
		t.addLog(fmt.Sprintf("%s is out of cards once the %s resolves", p.Name, card.Value))
	}

	t.applyEffect(p, card)
	t.broadcastState()
	return nil
}

// penalizeMissedUno draws the missed-UNO penalty. Assumes lock is held.
func (t *Table) penalizeMissedUno(p *models.Player) {
	n := t.drawInto(p, missedUnoPenalty)
	p.UnoState = models.UnoSafe
	t.addLog(fmt.Sprintf("%s didn't call UNO and draws %d", p.Name, n))
	t.broadcast(Event{Type: EventAnnounce, Message: p.Name + " forgot to call UNO!"})
	t.logAction(p.ID, "missed_uno", map[string]interface{}{"drawn": n})
}

// drawInto moves up to n cards from the draw pile into p's hand and returns how
// many were drawn. The draw pile is never refilled from the discards.
// Assumes lock is held.
func (t *Table) drawInto(p *models.Player, n int) int {
	m := t.Match
	cards := m.takeFromDrawPile(n)
	if len(cards) > 0 {
		p.Hand = append(p.Hand, cards...)
		p.UnoState = models.UnoSafe
		t.broadcast(Event{
			Type: EventAnimateDraw,
			Payload: map[string]interface{}{
				"playerId": p.ID,
				"count":    len(cards),
			},
		})
	}
	if len(cards) < n {
		t.addLog("The draw pile is empty")
	}
	return len(cards)
}

// DrawCard handles the draw intent: a pick-until draw, a penalty draw, or a
// normal draw, in that order of priority.
func (t *Table) DrawCard(playerID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	p, err := t.turnPlayer(playerID, PhasePlaying)
	if err != nil {
		return t.reject("drawCard", playerID, err)
	}
	m := t.Match
	switch {
	case m.Pending.Kind == PendingPickUntilDraw:
		t.drawForPickUntil(p)
	case m.Pending.Kind != PendingNone:
		return t.reject("drawCard", playerID, ErrPendingChoice)
	case m.DrawPenalty > 0:
		t.drawPenalty(p)
	default:
		return t.drawNormal(p)
	}
	return nil
}

// drawPenalty resolves the accumulated penalty. Assumes lock is held.
func (t *Table) drawPenalty(p *models.Player) {
	m := t.Match
	owed := m.DrawPenalty
	m.DrawPenalty = 0
	n := t.drawInto(p, owed)
	t.addLog(fmt.Sprintf("%s drew %d penalty cards", p.Name, n))
	t.logAction(p.ID, "draw_penalty", map[string]interface{}{"owed": owed, "drawn": n})

	if t.releaseWinnersOnHold() {
		return
	}
	t.advance()
	t.broadcastState()
}

// drawNormal enforces must-play, then draws one card and auto-plays it when
// possible. Assumes lock is held.
func (t *Table) drawNormal(p *models.Player) error {
	m := t.Match
	if m.hasPlayableCard(p) {
		t.announceTo(p, "You have a playable card, you must play it.")
		return t.reject("drawCard", p.ID, ErrMustPlay)
	}

	if t.drawInto(p, 1) == 0 {
		t.addLog(fmt.Sprintf("%s can't draw and passes", p.Name))
		t.advance()
		t.broadcastState()
		return nil
	}
	idx := len(p.Hand) - 1
	card := p.Hand[idx]
	t.logAction(p.ID, "draw_card", nil)

	if !m.canPlay(card) {
		t.addLog(p.Name + " drew a card")
		t.advance()
		t.broadcastState()
		return nil
	}
	if card.IsWild() {
		m.setPending(PendingAction{Kind: PendingDrawnWild, PlayerID: p.ID, Card: card, HandIndex: idx})
		t.sendTo(p, Event{
			Type: EventDrawnWildCard,
			Payload: map[string]interface{}{
				"card":      card,
				"cardIndex": idx,
			},
		})
		t.broadcastState()
		return nil
	}
	t.addLog(p.Name + " drew a playable card")
	return t.playFromHand(p, idx, true)
}

// ChoosePlayDrawnWild resolves a drawn wild: play it now or keep it and pass.
func (t *Table) ChoosePlayDrawnWild(playerID uuid.UUID, play bool, cardIndex int) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	p, err := t.turnPlayer(playerID, PhasePlaying)
	if err != nil {
		return t.reject("choosePlayDrawnWild", playerID, err)
	}
	m := t.Match
	pending := m.Pending
	if pending.Kind != PendingDrawnWild || pending.PlayerID != p.ID {
		return t.reject("choosePlayDrawnWild", playerID, ErrNotChooser)
	}
	if cardIndex != pending.HandIndex || cardIndex >= len(p.Hand) || p.Hand[cardIndex] != pending.Card {
		return t.reject("choosePlayDrawnWild", playerID, ErrInvalidCardIndex)
	}

	m.clearPending()
	if play {
		return t.playFromHand(p, cardIndex, true)
	}
	t.addLog(p.Name + " kept the drawn card")
	t.advance()
	t.broadcastState()
	return nil
}

// CallUno declares UNO. Only legal on the caller's turn while holding two cards;
// repeated calls have no further effect.
func (t *Table) CallUno(playerID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	p, err := t.turnPlayer(playerID, PhasePlaying)
	if err != nil {
		return t.reject("callUno", playerID, err)
	}
	if len(p.Hand) != 2 {
		return t.reject("callUno", playerID, ErrUnoNotAllowed)
	}
	if p.UnoState == models.UnoDeclared {
		return nil
	}
	p.UnoState = models.UnoDeclared
	t.announceUno(p)
	t.logAction(p.ID, "call_uno", nil)
	t.broadcastState()
	return nil
}

func (t *Table) announceUno(p *models.Player) {
	t.broadcast(Event{
		Type: EventUnoCalled,
		Payload: map[string]interface{}{
			"playerId":   p.ID,
			"playerName": p.Name,
		},
	})
	t.addLog(p.Name + " called UNO!")
}

// RearrangeHand reorders a player's hand. The new order must be a permutation
// of the cards the server holds for them.
func (t *Table) RearrangeHand(playerID uuid.UUID, newHand []models.Card) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	m := t.Match
	if m == nil || m.Phase == PhaseGameOver {
		return t.reject("rearrangeHand", playerID, ErrNoMatch)
	}
	p := m.player(playerID)
	if p == nil || p.Status == models.StatusRemoved {
		return t.reject("rearrangeHand", playerID, ErrUnknownPlayer)
	}
	if !samePermutation(p.Hand, newHand) {
		t.log.WithField("player", p.ID).Warnf("Rejected hand rearrangement: %d cards sent, %d held", len(newHand), len(p.Hand))
		t.sendState(p)
		return t.reject("rearrangeHand", playerID, ErrHandMismatch)
	}

	hand := make([]models.Card, len(newHand))
	copy(hand, newHand)
	if m.Pending.Kind == PendingDrawnWild && m.Pending.PlayerID == p.ID {
		m.Pending.HandIndex = movedIndex(p.Hand, hand, m.Pending.HandIndex)
	}
	p.Hand = hand
	t.sendState(p)
	return nil
}

func samePermutation(a, b []models.Card) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[models.Card]int, len(a))
	for _, c := range a {
		counts[c]++
	}
	for _, c := range b {
		counts[c]--
		if counts[c] < 0 {
			return false
		}
	}
	return true
}

// movedIndex finds where the card at idx in before ended up in after. Identical
// cards are matched by occurrence order.
func movedIndex(before, after []models.Card, idx int) int {
	card := before[idx]
	occurrence := 0
	for i := 0; i < idx; i++ {
		if before[i] == card {
			occurrence++
		}
	}
	for i, c := range after {
		if c == card {
			if occurrence == 0 {
				return i
			}
			occurrence--
		}
	}
	return idx
}
