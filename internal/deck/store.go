// Package deck holds the in-memory deck collection and every operation that
// may change it. Each structural change is handed to a Persister before the
// operation returns. Rejected operations leave the state untouched.
package deck

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Persister receives a full snapshot after every persisted mutation.
// It reports whether the snapshot was stored.
type Persister interface {
	Persist(domain.State) bool
}

// Direction is a navigation step.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// SearchResult describes the outcome of Search.
type SearchResult struct {
	// Matches is the number of cards whose question or answer contains the query.
	Matches int
	// First is the index of the first match, or -1.
	First int
	// Cleared is true when the query was blank and the search was reset.
	Cleared bool
}

// Store is the deck collection together with the active-deck cursor.
type Store struct {
	state     domain.State
	persister Persister
	newID     func(prefix string) string
	rng       *rand.Rand
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersister sets where snapshots are written.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithIDGenerator replaces the id source. fn receives "deck" or "card".
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithRand sets the random source used by Shuffle.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func uuidID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// NewStore builds a store from initial, which is copied and repaired: duplicate
// deck ids are dropped, cards without an id or with a repeated id get a fresh
// one, every cursor is clamped and a dangling active deck is replaced by the
// first deck. Construction never persists.
func NewStore(initial domain.State, opts ...Option) *Store {
	s := &Store{newID: uuidID, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = newRand()
	}
	s.state = s.normalize(initial.Clone())
	return s
}

func (s *Store) normalize(st domain.State) domain.State {
	seen := make(map[string]bool, len(st.Decks))
	decks := make([]domain.Deck, 0, len(st.Decks))
	for _, d := range st.Decks {
		if d.ID == "" || seen[d.ID] {
			s.logger.Warn("deck: dropping deck with missing or duplicate id", "id", d.ID, "title", d.Title)
			continue
		}
		if err := ValidateTitle(d.Title); err != nil {
			s.logger.Warn("deck: dropping deck with invalid title", "id", d.ID, "error", err)
			continue
		}
		seen[d.ID] = true
		d.Title = strings.TrimSpace(d.Title)

		cards := make([]domain.Card, 0, len(d.Cards))
		for _, c := range d.Cards {
			if err := ValidateCard(c.Question, c.Answer); err != nil {
				s.logger.Warn("deck: dropping card with invalid content", "deck_id", d.ID, "card_id", c.ID, "error", err)
				continue
			}
			c.Question = strings.TrimSpace(c.Question)
			c.Answer = strings.TrimSpace(c.Answer)
			cards = append(cards, c)
		}
		d.Cards = cards

		cardIDs := make(map[string]bool, len(d.Cards))
		for i := range d.Cards {
			if id := d.Cards[i].ID; id == "" || cardIDs[id] {
				d.Cards[i].ID = s.cardID(d)
			}
			cardIDs[d.Cards[i].ID] = true
		}
		d.ActiveCardIndex = d.ActiveIndex()
		decks = append(decks, d)
	}
	st.Decks = decks

	switch {
	case len(st.Decks) == 0:
		st.ActiveDeckID = nil
	case st.ActiveDeckID == nil || st.DeckIndex(*st.ActiveDeckID) < 0:
		id := st.Decks[0].ID
		st.ActiveDeckID = &id
	}
	return st
}

// State returns a copy of the whole collection.
func (s *Store) State() domain.State {
	return s.state.Clone()
}

// Deck returns a copy of the deck with the given id.
func (s *Store) Deck(id string) (domain.Deck, error) {
	i := s.state.DeckIndex(id)
	if i < 0 {
		return domain.Deck{}, notFound("deck", id)
	}
	return s.state.Decks[i].Clone(), nil
}

// ActiveDeck returns a copy of the active deck. It reports false when there
// are no decks.
func (s *Store) ActiveDeck() (domain.Deck, bool) {
	if s.state.ActiveDeckID == nil {
		return domain.Deck{}, false
	}
	d, err := s.Deck(*s.state.ActiveDeckID)
	return d, err == nil
}

// ActiveDeckID returns the active deck id, or "" when there are no decks.
func (s *Store) ActiveDeckID() string {
	if s.state.ActiveDeckID == nil {
		return ""
	}
	return *s.state.ActiveDeckID
}

// CreateDeck appends a new empty deck and makes it active.
func (s *Store) CreateDeck(title string) (domain.Deck, error) {
	title = strings.TrimSpace(title)
	if err := check(deckInput{Title: title}); err != nil {
		return domain.Deck{}, err
	}

	d := domain.Deck{ID: s.deckID(), Title: title, Cards: []domain.Card{}}
	s.state.Decks = append(s.state.Decks, d)
	s.setActive(d.ID)
	s.logger.Debug("deck created", "deck_id", d.ID)
	s.persist()
	return d.Clone(), nil
}

// RenameDeck changes a deck's title.
func (s *Store) RenameDeck(id, title string) error {
	title = strings.TrimSpace(title)
	if err := check(deckInput{Title: title}); err != nil {
		return err
	}
	d, err := s.deck(id)
	if err != nil {
		return err
	}
	d.Title = title
	s.persist()
	return nil
}

// DeleteDeck removes a deck and its cards. When the active deck is removed
// the deck before it becomes active, or the new first deck, or none.
func (s *Store) DeleteDeck(id string) error {
	i := s.state.DeckIndex(id)
	if i < 0 {
		return notFound("deck", id)
	}
	s.state.Decks = append(s.state.Decks[:i], s.state.Decks[i+1:]...)

	if s.state.ActiveDeckID != nil && *s.state.ActiveDeckID == id {
		switch {
		case len(s.state.Decks) == 0:
			s.state.ActiveDeckID = nil
		case i > 0:
			s.setActive(s.state.Decks[i-1].ID)
		default:
			s.setActive(s.state.Decks[0].ID)
		}
	}
	s.logger.Debug("deck deleted", "deck_id", id, "remaining", len(s.state.Decks))
	s.persist()
	return nil
}

// SetActiveDeck moves the active-deck cursor.
func (s *Store) SetActiveDeck(id string) error {
	if s.state.DeckIndex(id) < 0 {
		return notFound("deck", id)
	}
	s.setActive(id)
	s.persist()
	return nil
}

// CreateCard appends a card to a deck and moves the deck's cursor onto it.
func (s *Store) CreateCard(deckID, question, answer string) (domain.Card, error) {
	in := cardInput{Question: strings.TrimSpace(question), Answer: strings.TrimSpace(answer)}
	if err := check(in); err != nil {
		return domain.Card{}, err
	}
	d, err := s.deck(deckID)
	if err != nil {
		return domain.Card{}, err
	}

	c := domain.Card{ID: s.cardID(*d), Question: in.Question, Answer: in.Answer}
	d.Cards = append(d.Cards, c)
	d.ActiveCardIndex = len(d.Cards) - 1
	s.persist()
	return c, nil
}

// UpdateCard replaces a card's question and answer. The id is kept.
func (s *Store) UpdateCard(deckID, cardID, question, answer string) error {
	in := cardInput{Question: strings.TrimSpace(question), Answer: strings.TrimSpace(answer)}
	if err := check(in); err != nil {
		return err
	}
	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	i := d.CardIndex(cardID)
	if i < 0 {
		return notFound("card", cardID)
	}
	d.Cards[i].Question = in.Question
	d.Cards[i].Answer = in.Answer
	s.persist()
	return nil
}

// DeleteCard removes a card and clamps the deck's cursor.
func (s *Store) DeleteCard(deckID, cardID string) error {
	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	i := d.CardIndex(cardID)
	if i < 0 {
		return notFound("card", cardID)
	}
	d.Cards = append(d.Cards[:i], d.Cards[i+1:]...)
	d.ActiveCardIndex = d.ActiveIndex()
	s.persist()
	return nil
}

// Navigate moves the deck's cursor one step, stopping at either end.
// Empty decks and moves past an end are no-ops.
func (s *Store) Navigate(deckID string, dir Direction) error {
	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	if len(d.Cards) == 0 {
		return nil
	}
	next := domain.ClampIndex(d.ActiveIndex()+int(dir), len(d.Cards))
	if next == d.ActiveCardIndex {
		return nil
	}
	d.ActiveCardIndex = next
	s.persist()
	return nil
}

// Shuffle randomly permutes a deck's cards and resets its cursor.
func (s *Store) Shuffle(deckID string) error {
	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	Permute(s.rng, d.Cards)
	d.ActiveCardIndex = 0
	s.persist()
	return nil
}

// Search counts the cards whose question or answer contains query,
// ignoring case, and moves the cursor to the first match. A blank query
// clears the search and resets the cursor. The cursor move is navigation
// only and is not persisted.
func (s *Store) Search(deckID, query string) (SearchResult, error) {
	d, err := s.deck(deckID)
	if err != nil {
		return SearchResult{}, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		d.ActiveCardIndex = 0
		return SearchResult{First: -1, Cleared: true}, nil
	}

	res := SearchResult{First: -1}
	for i, c := range d.Cards {
		if strings.Contains(strings.ToLower(c.Question), q) || strings.Contains(strings.ToLower(c.Answer), q) {
			if res.First < 0 {
				res.First = i
			}
			res.Matches++
		}
	}
	if res.First >= 0 {
		d.ActiveCardIndex = res.First
	}
	return res, nil
}

// ImportCards appends cards to a deck with fresh ids. Every card is validated
// before any is added; the first invalid card rejects the whole batch.
func (s *Store) ImportCards(deckID string, cards []domain.Card) (int, error) {
	d, err := s.deck(deckID)
	if err != nil {
		return 0, err
	}
	clean := make([]domain.Card, len(cards))
	for i, c := range cards {
		in := cardInput{Question: strings.TrimSpace(c.Question), Answer: strings.TrimSpace(c.Answer)}
		if err := check(in); err != nil {
			return 0, fmt.Errorf("card %d: %w", i, err)
		}
		clean[i] = domain.Card{Question: in.Question, Answer: in.Answer}
	}
	if len(clean) == 0 {
		return 0, nil
	}
	for _, c := range clean {
		c.ID = s.cardID(*d)
		d.Cards = append(d.Cards, c)
	}
	s.persist()
	return len(clean), nil
}

func (s *Store) deck(id string) (*domain.Deck, error) {
	i := s.state.DeckIndex(id)
	if i < 0 {
		return nil, notFound("deck", id)
	}
	return &s.state.Decks[i], nil
}

func (s *Store) setActive(id string) {
	s.state.ActiveDeckID = &id
}

func (s *Store) deckID() string {
	for {
		id := s.newID("deck")
		if s.state.DeckIndex(id) < 0 {
			return id
		}
	}
}

func (s *Store) cardID(d domain.Deck) string {
	for {
		id := s.newID("card")
		if d.CardIndex(id) < 0 {
			return id
		}
	}
}

func (s *Store) persist() {
	if s.persister == nil {
		return
	}
	if !s.persister.Persist(s.state.Clone()) {
		s.logger.Warn("deck: snapshot was not persisted; state kept in memory only")
	}
}
