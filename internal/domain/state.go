package domain

// State is the whole persisted collection: the decks in display order and
// a reference to the active deck. ActiveDeckID is nil iff Decks is empty.
type State struct {
	Decks        []Deck  `json:"decks"`
	ActiveDeckID *string `json:"activeDeckId"`
}

// Clone returns a deep copy that shares nothing with s.
func (s State) Clone() State {
	out := State{Decks: make([]Deck, len(s.Decks))}
	for i, d := range s.Decks {
		out.Decks[i] = d.Clone()
	}
	if s.ActiveDeckID != nil {
		id := *s.ActiveDeckID
		out.ActiveDeckID = &id
	}
	return out
}

// DeckIndex returns the position of the deck with the given id, or -1.
func (s State) DeckIndex(id string) int {
	for i, d := range s.Decks {
		if d.ID == id {
			return i
		}
	}
	return -1
}
