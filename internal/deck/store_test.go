package deck

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/domain"
)

type recorder struct {
	snapshots []domain.State
	fail      bool
}

func (r *recorder) Persist(st domain.State) bool {
	r.snapshots = append(r.snapshots, st)
	return !r.fail
}

func (r *recorder) last() domain.State {
	return r.snapshots[len(r.snapshots)-1]
}

func sequentialIDs() func(string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestStore(t *testing.T, initial domain.State) (*Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := NewStore(initial,
		WithPersister(rec),
		WithIDGenerator(sequentialIDs()),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return s, rec
}

func deckWithCards(t *testing.T, s *Store, n int) domain.Deck {
	t.Helper()
	d, err := s.CreateDeck("Deck")
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := s.CreateCard(d.ID, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		require.NoError(t, err)
	}
	d, err = s.Deck(d.ID)
	require.NoError(t, err)
	return d
}

func TestCreateDeck(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})

	d, err := s.CreateDeck("  Spanish  ")
	require.NoError(t, err)
	assert.Equal(t, "Spanish", d.Title)
	assert.Empty(t, d.Cards)
	assert.Equal(t, d.ID, s.ActiveDeckID())
	require.Len(t, rec.snapshots, 1)
	assert.Equal(t, d.ID, *rec.last().ActiveDeckID)
}

func TestDeckTitleValidation(t *testing.T) {
	testCases := []struct {
		name  string
		title string
		valid bool
	}{
		{name: "empty", title: "", valid: false},
		{name: "whitespace", title: "   \t", valid: false},
		{name: "max length", title: strings.Repeat("a", 100), valid: true},
		{name: "too long", title: strings.Repeat("a", 101), valid: false},
		{name: "multibyte at limit", title: strings.Repeat("é", 100), valid: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, rec := newTestStore(t, domain.State{})
			_, err := s.CreateDeck(tc.title)
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, ve.Has("title"))
			assert.Empty(t, s.State().Decks)
			assert.Empty(t, rec.snapshots)
		})
	}
}

func TestRenameDeck(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	d, err := s.CreateDeck("Old")
	require.NoError(t, err)

	require.NoError(t, s.RenameDeck(d.ID, "New"))
	got, _ := s.Deck(d.ID)
	assert.Equal(t, "New", got.Title)

	before := len(rec.snapshots)
	assert.ErrorIs(t, s.RenameDeck("missing", "Title"), ErrNotFound)
	var ve *ValidationError
	assert.ErrorAs(t, s.RenameDeck(d.ID, " "), &ve)
	assert.Len(t, rec.snapshots, before)

	got, _ = s.Deck(d.ID)
	assert.Equal(t, "New", got.Title)
}

func TestDeleteActiveDeckMovesCursor(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	a, _ := s.CreateDeck("A")
	b, _ := s.CreateDeck("B")
	c, _ := s.CreateDeck("C")

	// Active is C; deleting it selects the previous deck.
	require.NoError(t, s.DeleteDeck(c.ID))
	assert.Equal(t, b.ID, s.ActiveDeckID())

	// Deleting the first deck while it is active selects the new first deck.
	require.NoError(t, s.SetActiveDeck(a.ID))
	require.NoError(t, s.DeleteDeck(a.ID))
	assert.Equal(t, b.ID, s.ActiveDeckID())

	require.NoError(t, s.DeleteDeck(b.ID))
	assert.Equal(t, "", s.ActiveDeckID())
	_, ok := s.ActiveDeck()
	assert.False(t, ok)
	assert.Nil(t, rec.last().ActiveDeckID)
	assert.Empty(t, rec.last().Decks)

	assert.ErrorIs(t, s.DeleteDeck(b.ID), ErrNotFound)
}

func TestDeleteInactiveDeckKeepsCursor(t *testing.T) {
	s, _ := newTestStore(t, domain.State{})
	a, _ := s.CreateDeck("A")
	b, _ := s.CreateDeck("B")
	require.NoError(t, s.SetActiveDeck(a.ID))

	require.NoError(t, s.DeleteDeck(b.ID))
	assert.Equal(t, a.ID, s.ActiveDeckID())
}

func TestDeleteDeckInvariantAcrossPositions(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for pos := 0; pos < n; pos++ {
			t.Run(fmt.Sprintf("n=%d pos=%d", n, pos), func(t *testing.T) {
				s, _ := newTestStore(t, domain.State{})
				var ids []string
				for i := 0; i < n; i++ {
					d, err := s.CreateDeck(fmt.Sprintf("D%d", i))
					require.NoError(t, err)
					ids = append(ids, d.ID)
				}
				require.NoError(t, s.SetActiveDeck(ids[pos]))
				require.NoError(t, s.DeleteDeck(ids[pos]))

				switch {
				case n == 1:
					assert.Equal(t, "", s.ActiveDeckID())
				case pos > 0:
					assert.Equal(t, ids[pos-1], s.ActiveDeckID())
				default:
					assert.Equal(t, ids[1], s.ActiveDeckID())
				}
			})
		}
	}
}

func TestSetActiveDeckNotFound(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	d, _ := s.CreateDeck("A")
	assert.ErrorIs(t, s.SetActiveDeck("nope"), ErrNotFound)
	assert.Equal(t, d.ID, s.ActiveDeckID())
	assert.Len(t, rec.snapshots, 1)
}

func TestCreateCard(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	d, _ := s.CreateDeck("Spanish")

	c1, err := s.CreateCard(d.ID, " hola ", " hello ")
	require.NoError(t, err)
	assert.Equal(t, "hola", c1.Question)
	assert.Equal(t, "hello", c1.Answer)

	c2, err := s.CreateCard(d.ID, "adiós", "goodbye")
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)

	got, _ := s.Deck(d.ID)
	assert.Equal(t, 1, got.ActiveCardIndex)
	assert.Len(t, rec.last().Decks[0].Cards, 2)

	_, err = s.CreateCard("missing", "q", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCardValidationReportsEachField(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	d, _ := s.CreateDeck("Deck")
	before := len(rec.snapshots)

	_, err := s.CreateCard(d.ID, "  ", "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has("question"))
	assert.True(t, ve.Has("answer"))

	_, err = s.CreateCard(d.ID, "q", strings.Repeat("x", 501))
	require.ErrorAs(t, err, &ve)
	assert.False(t, ve.Has("question"))
	assert.True(t, ve.Has("answer"))
	assert.Contains(t, ve.Error(), "at most 500")

	assert.Len(t, rec.snapshots, before)
	got, _ := s.Deck(d.ID)
	assert.Empty(t, got.Cards)
}

func TestCardIDsAvoidCollisions(t *testing.T) {
	ids := []string{"deck-1", "card-x", "card-x", "card-y"}
	n := 0
	s := NewStore(domain.State{}, WithIDGenerator(func(string) string {
		id := ids[n]
		n++
		return id
	}))
	d, err := s.CreateDeck("Deck")
	require.NoError(t, err)
	c1, err := s.CreateCard(d.ID, "q1", "a1")
	require.NoError(t, err)
	c2, err := s.CreateCard(d.ID, "q2", "a2")
	require.NoError(t, err)
	assert.Equal(t, "card-x", c1.ID)
	assert.Equal(t, "card-y", c2.ID)
}

func TestUpdateCard(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	d := deckWithCards(t, s, 2)
	target := d.Cards[1]

	require.NoError(t, s.UpdateCard(d.ID, target.ID, "new q", "new a"))
	got, _ := s.Deck(d.ID)
	assert.Equal(t, domain.Card{ID: target.ID, Question: "new q", Answer: "new a"}, got.Cards[1])

	before := len(rec.snapshots)
	assert.ErrorIs(t, s.UpdateCard(d.ID, "card-missing", "q", "a"), ErrNotFound)
	assert.ErrorIs(t, s.UpdateCard("deck-missing", target.ID, "q", "a"), ErrNotFound)
	var ve *ValidationError
	assert.ErrorAs(t, s.UpdateCard(d.ID, target.ID, "", "a"), &ve)
	assert.Len(t, rec.snapshots, before)
}

func TestDeleteCardClampsIndex(t *testing.T) {
	s, _ := newTestStore(t, domain.State{})
	d := deckWithCards(t, s, 3)
	require.Equal(t, 2, d.ActiveCardIndex)

	require.NoError(t, s.DeleteCard(d.ID, d.Cards[2].ID))
	got, _ := s.Deck(d.ID)
	assert.Equal(t, 1, got.ActiveCardIndex)

	assert.ErrorIs(t, s.DeleteCard(d.ID, d.Cards[2].ID), ErrNotFound)
}

func TestDeleteCardIndexAlwaysInRange(t *testing.T) {
	s, _ := newTestStore(t, domain.State{})
	d := deckWithCards(t, s, 6)
	r := rand.New(rand.NewPCG(7, 7))

	for len(d.Cards) > 0 {
		victim := d.Cards[r.IntN(len(d.Cards))]
		require.NoError(t, s.DeleteCard(d.ID, victim.ID))
		d, _ = s.Deck(d.ID)
		assert.GreaterOrEqual(t, d.ActiveCardIndex, 0)
		assert.LessOrEqual(t, d.ActiveCardIndex, max(0, len(d.Cards)-1))
	}
}

func TestNavigate(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	d := deckWithCards(t, s, 3)

	require.NoError(t, s.Navigate(d.ID, Next))
	got, _ := s.Deck(d.ID)
	assert.Equal(t, 2, got.ActiveCardIndex)

	before := len(rec.snapshots)
	require.NoError(t, s.Navigate(d.ID, Prev))
	require.NoError(t, s.Navigate(d.ID, Prev))
	require.NoError(t, s.Navigate(d.ID, Prev))
	got, _ = s.Deck(d.ID)
	assert.Equal(t, 0, got.ActiveCardIndex)
	assert.Len(t, rec.snapshots, before+2)

	empty, _ := s.CreateDeck("Empty")
	assert.NoError(t, s.Navigate(empty.ID, Next))
	assert.ErrorIs(t, s.Navigate("missing", Next), ErrNotFound)
}

func TestShuffleIsPermutation(t *testing.T) {
	s, _ := newTestStore(t, domain.State{})
	d := deckWithCards(t, s, 20)

	idsOf := func(cards []domain.Card) []string {
		out := make([]string, len(cards))
		for i, c := range cards {
			out[i] = c.ID
		}
		return out
	}
	before := idsOf(d.Cards)

	require.NoError(t, s.Shuffle(d.ID))
	got, _ := s.Deck(d.ID)
	after := idsOf(got.Cards)

	assert.Equal(t, 0, got.ActiveCardIndex)
	assert.Len(t, after, len(before))
	sort.Strings(before)
	sort.Strings(after)
	assert.Equal(t, before, after)
}

func TestPermuteIsUniform(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 99))
	counts := map[string]int{}
	const rounds = 60000
	for i := 0; i < rounds; i++ {
		cards := []domain.Card{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		Permute(r, cards)
		counts[cards[0].ID+cards[1].ID+cards[2].ID]++
	}
	require.Len(t, counts, 6)
	for perm, n := range counts {
		assert.InDelta(t, rounds/6, n, rounds/60, perm)
	}
}

func TestScenarioSingleCardShuffle(t *testing.T) {
	s, _ := newTestStore(t, domain.State{})
	d, err := s.CreateDeck("Spanish")
	require.NoError(t, err)
	c, err := s.CreateCard(d.ID, "hola", "hello")
	require.NoError(t, err)

	require.NoError(t, s.Navigate(d.ID, Next))
	got, _ := s.Deck(d.ID)
	assert.Equal(t, 0, got.ActiveCardIndex)

	require.NoError(t, s.Shuffle(d.ID))
	got, _ = s.Deck(d.ID)
	assert.Equal(t, 0, got.ActiveCardIndex)
	assert.Equal(t, c.ID, got.Cards[0].ID)
}

func TestSearch(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	d, _ := s.CreateDeck("Capitals")
	for _, qa := range [][2]string{
		{"Capital of France?", "Paris"},
		{"Capital of Spain?", "Madrid"},
		{"Largest city in France?", "Paris"},
	} {
		_, err := s.CreateCard(d.ID, qa[0], qa[1])
		require.NoError(t, err)
	}
	before := len(rec.snapshots)

	res, err := s.Search(d.ID, "PARIS")
	require.NoError(t, err)
	assert.Equal(t, SearchResult{Matches: 2, First: 0}, res)

	res, err = s.Search(d.ID, "spain")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matches)
	got, _ := s.Deck(d.ID)
	assert.Equal(t, 1, got.ActiveCardIndex)

	// Repeating a search gives the same result.
	again, _ := s.Search(d.ID, "spain")
	assert.Equal(t, res, again)

	res, err = s.Search(d.ID, "berlin")
	require.NoError(t, err)
	assert.Equal(t, SearchResult{First: -1}, res)
	got, _ = s.Deck(d.ID)
	assert.Equal(t, 1, got.ActiveCardIndex)

	res, err = s.Search(d.ID, "   ")
	require.NoError(t, err)
	assert.True(t, res.Cleared)
	got, _ = s.Deck(d.ID)
	assert.Equal(t, 0, got.ActiveCardIndex)

	assert.Len(t, rec.snapshots, before)

	_, err = s.Search("missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportCards(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	d, _ := s.CreateDeck("Imported")
	before := len(rec.snapshots)

	_, err := s.ImportCards(d.ID, []domain.Card{{Question: "ok", Answer: "ok"}, {Question: "", Answer: "x"}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, rec.snapshots, before)

	n, err := s.ImportCards(d.ID, []domain.Card{{ID: "ignored", Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, rec.snapshots, before+1)

	got, _ := s.Deck(d.ID)
	require.Len(t, got.Cards, 2)
	assert.NotEqual(t, "ignored", got.Cards[0].ID)
	assert.Equal(t, 0, got.ActiveCardIndex)
}

func TestNewStoreRepairsState(t *testing.T) {
	dangling := "gone"
	s, rec := newTestStore(t, domain.State{
		Decks: []domain.Deck{
			{ID: "d1", Title: "One", Cards: []domain.Card{{ID: "c1", Question: "q1", Answer: "a1"}, {ID: "c1", Question: "q2", Answer: "a2"}, {ID: "", Question: "q3", Answer: "a3"}}, ActiveCardIndex: 9},
			{ID: "d1", Title: "Duplicate"},
			{ID: "d2", Title: "Two"},
		},
		ActiveDeckID: &dangling,
	})

	st := s.State()
	require.Len(t, st.Decks, 2)
	assert.Equal(t, "d1", *st.ActiveDeckID)
	assert.Equal(t, 2, st.Decks[0].ActiveCardIndex)
	assert.NotNil(t, st.Decks[1].Cards)

	seen := map[string]bool{}
	for _, c := range st.Decks[0].Cards {
		assert.False(t, seen[c.ID], c.ID)
		seen[c.ID] = true
	}
	assert.Empty(t, rec.snapshots)
}

func TestNewStoreDropsInvalidContent(t *testing.T) {
	s, _ := newTestStore(t, domain.State{
		Decks: []domain.Deck{
			{ID: "d1", Title: "", Cards: []domain.Card{{ID: "c1", Question: "q", Answer: "a"}}},
			{ID: "d2", Title: "  Two  ", Cards: []domain.Card{
				{ID: "c1", Question: " q ", Answer: " a "},
				{ID: "c2", Question: strings.Repeat("q", 501), Answer: "a"},
			}, ActiveCardIndex: 1},
		},
	})

	st := s.State()
	require.Len(t, st.Decks, 1)
	assert.Equal(t, "Two", st.Decks[0].Title)
	assert.Equal(t, []domain.Card{{ID: "c1", Question: "q", Answer: "a"}}, st.Decks[0].Cards)
	assert.Equal(t, 0, st.Decks[0].ActiveCardIndex)
	assert.Equal(t, "d2", *st.ActiveDeckID)
}

func TestValidateCard(t *testing.T) {
	tests := []struct {
		name     string
		question string
		answer   string
		fields   []string
	}{
		{"valid", "q", "a", nil},
		{"blank question", "  ", "a", []string{"question"}},
		{"long answer", "q", strings.Repeat("a", 501), []string{"answer"}},
		{"both", "", "", []string{"question", "answer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCard(tt.question, tt.answer)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			for _, f := range tt.fields {
				assert.True(t, ve.Has(f), f)
			}
		})
	}
}

func TestPersistFailureKeepsState(t *testing.T) {
	s, rec := newTestStore(t, domain.State{})
	rec.fail = true
	d, err := s.CreateDeck("Offline")
	require.NoError(t, err)
	got, err := s.Deck(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Offline", got.Title)
}

func TestReadsReturnCopies(t *testing.T) {
	s, _ := newTestStore(t, domain.State{})
	d := deckWithCards(t, s, 1)
	d.Cards[0].Question = "mutated"

	got, _ := s.Deck(d.ID)
	assert.Equal(t, "q0", got.Cards[0].Question)
}
