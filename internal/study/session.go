// Package study runs a pass over a deck's cards in shuffled order.
package study

import (
	"math/rand/v2"

	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/dom"
	"github.com/conorfennell/flashdeck/internal/domain"
)

// Session walks a private shuffled copy of a deck. It never changes the deck.
type Session struct {
	deckID  string
	cards   []domain.Card
	pos     int
	flipped bool
	ended   bool
	keys    *dom.Subscription
	onEnd   func()
}

// Start begins a session over d's cards in an order drawn from rng.
func Start(d domain.Deck, rng *rand.Rand) *Session {
	cards := d.Clone().Cards
	deck.Permute(rng, cards)
	return &Session{deckID: d.ID, cards: cards}
}

// DeckID is the deck being studied.
func (s *Session) DeckID() string { return s.deckID }

// Current returns the card being shown. It reports false when the deck was
// empty or the session ended.
func (s *Session) Current() (domain.Card, bool) {
	if s.ended || len(s.cards) == 0 {
		return domain.Card{}, false
	}
	return s.cards[s.pos], true
}

// Flip toggles between question and answer.
func (s *Session) Flip() {
	if _, ok := s.Current(); ok {
		s.flipped = !s.flipped
	}
}

// Flipped reports whether the answer side is showing.
func (s *Session) Flipped() bool { return s.flipped }

// Next advances to the following card, showing its question. It reports
// false at the last card.
func (s *Session) Next() bool {
	if s.ended || s.pos >= len(s.cards)-1 {
		return false
	}
	s.pos++
	s.flipped = false
	return true
}

// Prev goes back one card. It reports false at the first card.
func (s *Session) Prev() bool {
	if s.ended || s.pos == 0 {
		return false
	}
	s.pos--
	s.flipped = false
	return true
}

// Progress returns the 1-based position and the number of cards.
func (s *Session) Progress() (int, int) {
	if len(s.cards) == 0 {
		return 0, 0
	}
	return s.pos + 1, len(s.cards)
}

// Done reports whether the session has ended.
func (s *Session) Done() bool { return s.ended }

// Bind takes keyboard input from src until the session ends: Space flips,
// ArrowRight and ArrowLeft move, Escape ends. onEnd runs once on End.
func (s *Session) Bind(src dom.KeySource, onEnd func()) {
	s.keys.Release()
	s.onEnd = onEnd
	s.keys = src.OnKey(s.HandleKey)
}

// HandleKey applies one key press.
func (s *Session) HandleKey(ev *dom.KeyEvent) {
	switch ev.Key {
	case dom.KeySpace:
		ev.PreventDefault()
		s.Flip()
	case dom.KeyArrowRight:
		ev.PreventDefault()
		s.Next()
	case dom.KeyArrowLeft:
		ev.PreventDefault()
		s.Prev()
	case dom.KeyEscape:
		ev.PreventDefault()
		s.End()
	}
}

// End stops the session and releases the keyboard.
func (s *Session) End() {
	if s.ended {
		return
	}
	s.ended = true
	s.keys.Release()
	if s.onEnd != nil {
		s.onEnd()
	}
}
