package app

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/dialog"
	"github.com/conorfennell/flashdeck/internal/dom"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/input"
)

func newTestApp(t *testing.T) (*App, *dom.Document) {
	t.Helper()
	doc, err := dom.Parse(`<html><body><nav></nav><main><button id="start">Start</button></main></body></html>`)
	require.NoError(t, err)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := deck.NewStore(domain.State{}, deck.WithLogger(quiet), deck.WithRand(rand.New(rand.NewPCG(1, 2))))
	a := New(doc, store, WithLogger(quiet), WithRand(rand.New(rand.NewPCG(3, 4))))
	t.Cleanup(a.Close)
	return a, doc
}

func field(t *testing.T, a *App, id string) *html.Node {
	t.Helper()
	require.NotNil(t, a.Dialog())
	n := dom.FindByID(a.Dialog().Content(), id)
	require.NotNil(t, n, id)
	return n
}

func submitButton(t *testing.T, a *App) *html.Node {
	t.Helper()
	found := dom.Find(a.Dialog().Content(), func(n *html.Node) bool {
		v, _ := dom.Attr(n, "data-action")
		return v == "submit"
	})
	require.Len(t, found, 1)
	return found[0]
}

func TestNewDeckDialog(t *testing.T) {
	a, doc := newTestApp(t)

	doc.Press("n")
	require.NotNil(t, a.Dialog())
	assert.True(t, a.Dialog().IsOpen())
	title := field(t, a, "deck-title")
	assert.Equal(t, title, doc.ActiveElement())

	l, _ := a.Router().Active()
	assert.Equal(t, input.Dialog, l)

	dom.SetAttr(title, "value", "Spanish")
	submit := submitButton(t, a)
	require.True(t, doc.Focus(submit))
	root := a.Dialog().Root()
	doc.Press(dom.KeyEnter)

	assert.Nil(t, a.Dialog())
	assert.False(t, doc.Contains(root))
	assert.False(t, dom.HasClass(doc.Body(), dialog.BodyOpenClass))
	d, ok := a.Store().ActiveDeck()
	require.True(t, ok)
	assert.Equal(t, "Spanish", d.Title)
}

func TestValidationErrorKeepsDialogOpen(t *testing.T) {
	a, doc := newTestApp(t)
	doc.Press("n")
	dom.SetAttr(field(t, a, "deck-title"), "value", "   ")
	doc.Click(submitButton(t, a))

	require.NotNil(t, a.Dialog())
	assert.True(t, a.Dialog().IsOpen())
	errSlot := dom.Find(a.Dialog().Content(), func(n *html.Node) bool { return dom.HasAttr(n, "data-error-for") })
	require.Len(t, errSlot, 1)
	assert.Equal(t, "title must not be empty", dom.TextContent(errSlot[0]))
	assert.Empty(t, a.Store().State().Decks)

	doc.Press(dom.KeyEscape)
	assert.Nil(t, a.Dialog())
}

func TestShortcutsSuppressedWhileDialogOpen(t *testing.T) {
	a, doc := newTestApp(t)
	d, err := a.Store().CreateDeck("Deck")
	require.NoError(t, err)
	for _, q := range []string{"one", "two"} {
		_, err := a.Store().CreateCard(d.ID, q, q)
		require.NoError(t, err)
	}

	doc.Press(dom.KeyArrowLeft)
	v, _ := a.View()
	assert.Equal(t, 1, v.Position)

	doc.Press("e")
	require.NotNil(t, a.Dialog())
	doc.Press(dom.KeyArrowRight)
	v, _ = a.View()
	assert.Equal(t, 1, v.Position)

	doc.Press(dom.KeyEscape)
	doc.Press(dom.KeyArrowRight)
	v, _ = a.View()
	assert.Equal(t, 2, v.Position)
}

func TestRenameDialogEscapesTitle(t *testing.T) {
	a, doc := newTestApp(t)
	_, err := a.Store().CreateDeck(`"><img src=x>`)
	require.NoError(t, err)

	doc.Press("e")
	title := field(t, a, "deck-title")
	v, _ := dom.Attr(title, "value")
	assert.Equal(t, `"><img src=x>`, v)
	assert.Empty(t, dom.Find(a.Dialog().Root(), func(n *html.Node) bool { return n.Data == "img" }))

	dom.SetAttr(title, "value", "Renamed")
	doc.Click(submitButton(t, a))
	d, _ := a.Store().ActiveDeck()
	assert.Equal(t, "Renamed", d.Title)
}

func TestNewAndEditCardDialogs(t *testing.T) {
	a, doc := newTestApp(t)
	_, err := a.Store().CreateDeck("Deck")
	require.NoError(t, err)

	doc.Press("c")
	dom.SetText(field(t, a, "card-question"), "hola")
	doc.Click(submitButton(t, a))
	// The answer is missing, so only that field reports an error.
	require.NotNil(t, a.Dialog())
	answerErr := dom.Find(a.Dialog().Content(), func(n *html.Node) bool {
		v, _ := dom.Attr(n, "data-error-for")
		return v == "answer"
	})
	require.Len(t, answerErr, 1)
	assert.NotEmpty(t, dom.TextContent(answerErr[0]))

	dom.SetText(field(t, a, "card-answer"), "hello")
	doc.Click(submitButton(t, a))
	assert.Nil(t, a.Dialog())

	require.NoError(t, a.OpenEditCard())
	assert.Equal(t, "hola", dom.TextContent(field(t, a, "card-question")))
	dom.SetText(field(t, a, "card-answer"), "hi")
	doc.Click(submitButton(t, a))

	v, ok := a.View()
	require.True(t, ok)
	assert.Equal(t, "hi", v.Card.Answer)
	assert.Equal(t, 1, v.Total)
}

func TestDeleteDeckConfirmation(t *testing.T) {
	a, doc := newTestApp(t)
	first, _ := a.Store().CreateDeck("First")
	second, _ := a.Store().CreateDeck("Second")

	doc.Press(dom.KeyDelete)
	cancel := dom.Find(a.Dialog().Content(), func(n *html.Node) bool {
		v, _ := dom.Attr(n, "data-action")
		return v == "cancel"
	})
	require.Len(t, cancel, 1)
	doc.Click(cancel[0])
	assert.Len(t, a.Store().State().Decks, 2)

	doc.Press(dom.KeyDelete)
	doc.Click(submitButton(t, a))
	_, err := a.Store().Deck(second.ID)
	assert.ErrorIs(t, err, deck.ErrNotFound)
	assert.Equal(t, first.ID, a.Store().ActiveDeckID())
}

func TestStudySessionOwnsArrows(t *testing.T) {
	a, doc := newTestApp(t)
	d, _ := a.Store().CreateDeck("Deck")
	for _, q := range []string{"one", "two", "three"} {
		_, err := a.Store().CreateCard(d.ID, q, q)
		require.NoError(t, err)
	}
	before := a.Store().State()

	doc.Press("t")
	require.NotNil(t, a.Session())
	doc.Press(dom.KeyArrowRight)
	pos, total := a.Session().Progress()
	assert.Equal(t, 2, pos)
	assert.Equal(t, 3, total)
	doc.Press("s")
	assert.Equal(t, before, a.Store().State())

	doc.Press(dom.KeyEscape)
	assert.Nil(t, a.Session())
	doc.Press("s")
	d2, _ := a.Store().Deck(d.ID)
	assert.Equal(t, 0, d2.ActiveCardIndex)
}

func TestShortcutsWithoutDecks(t *testing.T) {
	a, doc := newTestApp(t)
	for _, key := range []string{dom.KeyArrowLeft, dom.KeyArrowRight, "s", "c", "e", dom.KeyDelete, "t"} {
		doc.Press(key)
	}
	assert.Nil(t, a.Dialog())
	assert.Nil(t, a.Session())
	_, ok := a.View()
	assert.False(t, ok)
}

func TestCloseReleasesListeners(t *testing.T) {
	a, doc := newTestApp(t)
	doc.Press("n")
	a.Close()
	keys, focus := doc.ListenerCount()
	assert.Zero(t, keys)
	assert.Zero(t, focus)
}
