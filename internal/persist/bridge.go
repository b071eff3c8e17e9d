// Package persist connects the deck store to the key/value store: it
// restores the collection at startup and snapshots it after every mutation.
package persist

import (
	"log/slog"

	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/kvstore"
)

const (
	// StateKey is the key the deck collection is stored under.
	StateKey = "state"
	// SchemaVersion is the envelope version of the stored collection.
	SchemaVersion = 1
)

// Bridge implements deck.Persister on top of a kvstore.Store.
type Bridge struct {
	kv     *kvstore.Store
	logger *slog.Logger
}

// NewBridge returns a bridge writing through kv.
func NewBridge(kv *kvstore.Store, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{kv: kv, logger: logger}
}

// Persist writes the full snapshot.
func (b *Bridge) Persist(st domain.State) bool {
	if st.Decks == nil {
		st.Decks = []domain.Deck{}
	}
	return b.kv.Save(StateKey, st, SchemaVersion)
}

// Load returns the stored collection, or false when nothing usable is stored.
// A payload without a decks array, such as null, counts as nothing stored.
func (b *Bridge) Load() (domain.State, bool) {
	var st domain.State
	if !b.kv.LoadInto(StateKey, SchemaVersion, &st) {
		return domain.State{}, false
	}
	if st.Decks == nil {
		b.logger.Warn("stored decks missing from payload, ignoring it", "key", StateKey)
		return domain.State{}, false
	}
	return st, true
}

// Restore builds a deck store from the stored collection, falling back to
// the seed data. The returned store persists through b.
func (b *Bridge) Restore(opts ...deck.Option) *deck.Store {
	st, ok := b.Load()
	if !ok {
		b.logger.Info("no saved decks found, starting from sample data")
		st = Seed()
	} else {
		b.logger.Info("restored decks", "decks", len(st.Decks))
	}
	opts = append([]deck.Option{deck.WithLogger(b.logger)}, opts...)
	return deck.NewStore(st, append(opts, deck.WithPersister(b))...)
}

// Reset deletes the stored collection.
func (b *Bridge) Reset() bool {
	return b.kv.Clear(StateKey)
}

// Seed is the collection a first run starts with: one sample deck holding
// one card, and two empty decks.
func Seed() domain.State {
	active := "deck-sample"
	return domain.State{
		Decks: []domain.Deck{
			{
				ID:    "deck-sample",
				Title: "Sample Deck",
				Cards: []domain.Card{{
					ID:       "card-sample",
					Question: "What is a flashcard?",
					Answer:   "A card with a question on one side and the answer on the other.",
				}},
			},
			{ID: "deck-spanish", Title: "Spanish Vocabulary", Cards: []domain.Card{}},
			{ID: "deck-capitals", Title: "World Capitals", Cards: []domain.Card{}},
		},
		ActiveDeckID: &active,
	}
}
