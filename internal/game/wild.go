// internal/game/wild.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// chooser validates that playerID is resolving the pending choice of the given kind.
// Assumes lock is held.
func (t *Table) chooser(playerID uuid.UUID, phase Phase, kind PendingKind) (*models.Player, error) {
	p, err := t.turnPlayer(playerID, phase)
	if err != nil {
		return nil, err
	}
	if t.Match.Pending.Kind != kind || t.Match.Pending.PlayerID != p.ID {
		return nil, ErrNotChooser
	}
	return p, nil
}

// ChooseColor sets the active color after a wild and continues its sub-flow.
func (t *Table) ChooseColor(playerID uuid.UUID, color models.Color) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	p, err := t.chooser(playerID, PhaseChoosingColor, PendingChooseColor)
	if err != nil {
		return t.reject("colorChosen", playerID, err)
	}
	if !color.IsSuit() {
		return t.reject("colorChosen", playerID, ErrInvalidColor)
	}

	m := t.Match
	pending := m.Pending
	m.ActiveColor = color
	t.addLog(fmt.Sprintf("%s chose %s", p.Name, color))
	t.logAction(p.ID, "choose_color", map[string]interface{}{"color": color.String(), "card": pending.Card.String()})

	switch pending.Card.Value {
	case models.ValueWildPickUntil:
		if pending.DiscardedWilds {
			m.clearPending()
			if t.releaseWinnersOnHold() {
				return nil
			}
			t.advance()
			break
		}
		target := m.player(pending.TargetID)
		if target == nil || target.Status != models.StatusActive {
			target = m.Players[m.nextActiveIndex(m.CurrentPlayerIndex)]
		}
		m.setPending(PendingAction{
			Kind:        PendingPickUntilDraw,
			PlayerID:    p.ID,
			Card:        pending.Card,
			TargetID:    target.ID,
			TargetColor: color,
		})
		m.CurrentPlayerIndex = m.playerIndex(target.ID)
		t.addLog(fmt.Sprintf("%s must draw until they find a %s card", target.Name, color))
	case models.ValueWildSwap:
		m.setPending(PendingAction{
			Kind:        PendingChooseSwapTarget,
			PlayerID:    p.ID,
			Card:        pending.Card,
			TargetColor: color,
		})
	default:
		m.clearPending()
		t.advance()
	}
	t.broadcastState()
	return nil
}

// PickUntilChoice resolves a Wild Pick Until as discard-wilds or pick-color.
func (t *Table) PickUntilChoice(playerID uuid.UUID, choice string) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	p, err := t.chooser(playerID, PhaseChoosingPickUntilAction, PendingChoosePickUntil)
	if err != nil {
		return t.reject("pickUntilChoice", playerID, err)
	}
	m := t.Match
	card := m.Pending.Card

	switch choice {
	case PickUntilDiscardWilds:
		discarded := t.discardOpponentWilds(p)
		t.broadcast(Event{
			Type:    EventShowDiscardedWilds,
			Payload: map[string]interface{}{"discarded": discarded},
		})
		t.addLog(fmt.Sprintf("%s made everyone discard their wild cards", p.Name))
		m.setPending(PendingAction{Kind: PendingChooseColor, PlayerID: p.ID, Card: card, DiscardedWilds: true})
	case PickUntilPickColor:
		next := m.nextActiveIndex(m.CurrentPlayerIndex)
		if next < 0 || next == m.CurrentPlayerIndex {
			return t.reject("pickUntilChoice", playerID, ErrInvalidTarget)
		}
		target := m.Players[next]
		t.addLog(fmt.Sprintf("%s picks a color for %s to draw until", p.Name, target.Name))
		m.setPending(PendingAction{Kind: PendingChooseColor, PlayerID: p.ID, Card: card, TargetID: target.ID})
	default:
		return t.reject("pickUntilChoice", playerID, ErrInvalidChoice)
	}
	t.logAction(p.ID, "pick_until_choice", map[string]interface{}{"choice": choice})
	t.broadcastState()
	return nil
}

// discardOpponentWilds strips black cards from every other Active player. The
// top card stays on top. Emptied hands join the winners on hold.
// Assumes lock is held.
func (t *Table) discardOpponentWilds(chooser *models.Player) map[string]int {
	m := t.Match
	discarded := make(map[string]int)
	var pile []DiscardEntry
	for _, q := range m.Players {
		if q.ID == chooser.ID || q.Status != models.StatusActive {
			continue
		}
		kept := q.Hand[:0:0]
		for _, c := range q.Hand {
			if c.IsWild() {
				pile = append(pile, DiscardEntry{Card: c, PlayerName: q.Name})
				continue
			}
			kept = append(kept, c)
		}
		if n := len(q.Hand) - len(kept); n > 0 {
			discarded[q.Name] = n
			q.Hand = kept
			if len(q.Hand) != 1 {
				q.UnoState = models.UnoSafe
			}
			if len(q.Hand) == 0 {
				m.WinnersOnHold = append(m.WinnersOnHold, q.ID)
				t.addLog(q.Name + " discarded their last card")
			}
		}
	}
	if len(pile) > 0 {
		rest := append(pile, m.DiscardPile[1:]...)
		m.DiscardPile = append(m.DiscardPile[:1:1], rest...)
	}
	return discarded
}

// drawForPickUntil draws one card for the pick-until target. A card of the
// target color is played automatically and ends the sequence.
// Assumes lock is held.
func (t *Table) drawForPickUntil(p *models.Player) {
	m := t.Match
	pending := m.Pending

	if t.drawInto(p, 1) == 0 {
		t.addLog(fmt.Sprintf("%s can't draw, pick until ends", p.Name))
		m.clearPending()
		if t.releaseWinnersOnHold() {
			return
		}
		t.advance()
		t.broadcastState()
		return
	}

	idx := len(p.Hand) - 1
	card := p.Hand[idx]
	if card.Color != pending.TargetColor {
		t.addLog(fmt.Sprintf("%s drew, still no %s", p.Name, pending.TargetColor))
		t.broadcastState()
		return
	}

	p.Hand = removeCard(p.Hand, idx)
	m.pushDiscard(card, p.Name)
	m.ActiveColor = pending.TargetColor
	m.clearPending()
	t.broadcast(Event{
		Type: EventAnimatePlay,
		Payload: map[string]interface{}{
			"playerId":  p.ID,
			"cardIndex": idx,
			"card":      card,
		},
	})
	t.addLog(fmt.Sprintf("%s found %s and played it", p.Name, card))
	t.logAction(p.ID, "pick_until_found", map[string]interface{}{"card": card.String()})

	var emptied []*models.Player
	if len(p.Hand) == 0 {
		emptied = append(emptied, p)
	}
	if t.releaseWinnersOnHold(emptied...) {
		return
	}
	t.advance()
	t.broadcastState()
}

// SwapHandsChoice swaps the chooser's hand with another Active player's.
func (t *Table) SwapHandsChoice(playerID, targetID uuid.UUID) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()

	p, err := t.chooser(playerID, PhaseChoosingSwapHands, PendingChooseSwapTarget)
	if err != nil {
		return t.reject("swapHandsChoice", playerID, err)
	}
	m := t.Match
	target := m.player(targetID)
	if target == nil || target.ID == p.ID || target.Status != models.StatusActive {
		return t.reject("swapHandsChoice", playerID, ErrInvalidTarget)
	}

	p.Hand, target.Hand = target.Hand, p.Hand
	t.broadcast(Event{
		Type: EventAnimateSwap,
		Payload: map[string]interface{}{
			"fromPlayerId": p.ID,
			"toPlayerId":   target.ID,
		},
	})
	t.addLog(fmt.Sprintf("%s swapped hands with %s", p.Name, target.Name))
	t.logAction(p.ID, "swap_hands", map[string]interface{}{"target": target.ID})

	m.clearPending()
	var emptied []*models.Player
	for _, q := range []*models.Player{p, target} {
		if len(q.Hand) == 0 {
			emptied = append(emptied, q)
		}
	}
	if len(emptied) > 0 {
		t.releaseWinnersOnHold(emptied...)
		return nil
	}
	t.advance()

	// A swap can't be penalized as a missed UNO, so one card means declared.
	for _, q := range []*models.Player{p, target} {
		if len(q.Hand) == 1 {
			q.UnoState = models.UnoDeclared
			t.announceUno(q)
		} else {
			q.UnoState = models.UnoSafe
		}
	}
	t.broadcastState()
	return nil
}
