package domain

// Deck is a named, ordered collection of cards.
//
// ActiveCardIndex is the persisted navigation cursor. It may be stale after
// the card list changes, so readers should go through ActiveIndex.
type Deck struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Cards           []Card `json:"cards"`
	ActiveCardIndex int    `json:"activeCardIndex"`
}

// ActiveIndex returns the cursor clamped into the current card range.
func (d Deck) ActiveIndex() int {
	return ClampIndex(d.ActiveCardIndex, len(d.Cards))
}

// ActiveCard returns the card under the cursor, or false for an empty deck.
func (d Deck) ActiveCard() (Card, bool) {
	if len(d.Cards) == 0 {
		return Card{}, false
	}
	return d.Cards[d.ActiveIndex()], true
}

// CardIndex returns the position of the card with the given id, or -1.
func (d Deck) CardIndex(id string) int {
	for i, c := range d.Cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the deck.
func (d Deck) Clone() Deck {
	out := d
	out.Cards = make([]Card, len(d.Cards))
	copy(out.Cards, d.Cards)
	return out
}

// ClampIndex clamps i into [0, max(0, n-1)].
func ClampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
