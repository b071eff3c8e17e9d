// Package app wires the document, the input router, the deck store and the
// dialogs into the keyboard-driven flows of the flashcard UI.
package app

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"math/rand/v2"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/dialog"
	"github.com/conorfennell/flashdeck/internal/dom"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/input"
	"github.com/conorfennell/flashdeck/internal/study"
)

// App owns the keyboard and at most one dialog or study session at a time.
type App struct {
	doc    *dom.Document
	router *input.Router
	store  *deck.Store
	rng    *rand.Rand
	logger *slog.Logger

	dialog  *dialog.Dialog
	session *study.Session
	subs    dom.Group
}

// Option configures an App.
type Option func(*App)

// WithRand sets the random source for study sessions.
func WithRand(r *rand.Rand) Option {
	return func(a *App) { a.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New attaches an App to doc. Call Close to detach it.
func New(doc *dom.Document, store *deck.Store, opts ...Option) *App {
	a := &App{
		doc:    doc,
		router: input.NewRouter(),
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	a.subs.Add(a.router.Attach(doc))
	a.subs.Add(a.router.Acquire(input.Default, a.handleShortcut))
	return a
}

// Close ends any session, destroys any dialog and removes every listener.
func (a *App) Close() {
	if a.session != nil {
		a.session.End()
	}
	if a.dialog != nil {
		a.dialog.Destroy()
	}
	a.subs.Release()
}

// Store is the deck store the app mutates.
func (a *App) Store() *deck.Store { return a.store }

// Router is the app's input router.
func (a *App) Router() *input.Router { return a.router }

// Dialog is the open dialog, or nil.
func (a *App) Dialog() *dialog.Dialog { return a.dialog }

// Session is the running study session, or nil.
func (a *App) Session() *study.Session { return a.session }

func (a *App) handleShortcut(ev *dom.KeyEvent) {
	activeID := a.store.ActiveDeckID()
	var err error
	switch ev.Key {
	case dom.KeyArrowLeft:
		err = a.onActive(func(id string) error { return a.store.Navigate(id, deck.Prev) })
	case dom.KeyArrowRight:
		err = a.onActive(func(id string) error { return a.store.Navigate(id, deck.Next) })
	case "s":
		err = a.onActive(a.store.Shuffle)
	case "n":
		err = a.OpenNewDeck()
	case "c":
		err = a.OpenNewCard()
	case "e":
		err = a.OpenRenameDeck()
	case dom.KeyDelete:
		err = a.OpenDeleteDeck()
	case "t":
		err = a.StartStudy()
	default:
		return
	}
	ev.PreventDefault()
	if err != nil {
		a.logger.Debug("shortcut ignored", "key", ev.Key, "deck_id", activeID, "error", err)
	}
}

var errNoActiveDeck = errors.New("no active deck")

func (a *App) onActive(fn func(id string) error) error {
	id := a.store.ActiveDeckID()
	if id == "" {
		return errNoActiveDeck
	}
	return fn(id)
}

// StartStudy begins a shuffled pass over the active deck. Keys go to the
// session until it ends.
func (a *App) StartStudy() error {
	d, ok := a.store.ActiveDeck()
	if !ok {
		return errNoActiveDeck
	}
	if a.session != nil {
		a.session.End()
	}
	s := study.Start(d, a.rng)
	a.session = s
	s.Bind(a.router.Source(input.Study), func() {
		if a.session == s {
			a.session = nil
		}
	})
	return nil
}

// OpenNewDeck asks for a title and creates a deck.
func (a *App) OpenNewDeck() error {
	markup := `<form class="deck-form">
<label for="deck-title">Title</label>
<input id="deck-title" name="title" maxlength="100" required>
<p class="form-error" data-error-for="title"></p>
<button type="submit" data-action="submit">Create</button>
</form>`
	return a.showForm("New deck", markup, func(v values) error {
		_, err := a.store.CreateDeck(v.get("title"))
		return err
	})
}

// OpenRenameDeck asks for a new title for the active deck.
func (a *App) OpenRenameDeck() error {
	d, ok := a.store.ActiveDeck()
	if !ok {
		return errNoActiveDeck
	}
	markup := fmt.Sprintf(`<form class="deck-form">
<label for="deck-title">Title</label>
<input id="deck-title" name="title" maxlength="100" required value="%s">
<p class="form-error" data-error-for="title"></p>
<button type="submit" data-action="submit">Save</button>
</form>`, html.EscapeString(d.Title))
	return a.showForm("Rename deck", markup, func(v values) error {
		return a.store.RenameDeck(d.ID, v.get("title"))
	})
}

// OpenNewCard asks for a question and an answer and adds a card to the
// active deck.
func (a *App) OpenNewCard() error {
	d, ok := a.store.ActiveDeck()
	if !ok {
		return errNoActiveDeck
	}
	markup := fmt.Sprintf(`<form class="card-form">
<p class="form-deck">Adding to %s</p>
<label for="card-question">Question</label>
<textarea id="card-question" name="question" maxlength="500" required></textarea>
<p class="form-error" data-error-for="question"></p>
<label for="card-answer">Answer</label>
<textarea id="card-answer" name="answer" maxlength="500" required></textarea>
<p class="form-error" data-error-for="answer"></p>
<button type="submit" data-action="submit">Add card</button>
</form>`, html.EscapeString(d.Title))
	return a.showForm("New card", markup, func(v values) error {
		_, err := a.store.CreateCard(d.ID, v.get("question"), v.get("answer"))
		return err
	})
}

// OpenEditCard asks for new content for the active card of the active deck.
func (a *App) OpenEditCard() error {
	d, ok := a.store.ActiveDeck()
	if !ok {
		return errNoActiveDeck
	}
	c, ok := d.ActiveCard()
	if !ok {
		return fmt.Errorf("deck %q has no cards", d.ID)
	}
	markup := fmt.Sprintf(`<form class="card-form">
<label for="card-question">Question</label>
<textarea id="card-question" name="question" maxlength="500" required>%s</textarea>
<p class="form-error" data-error-for="question"></p>
<label for="card-answer">Answer</label>
<textarea id="card-answer" name="answer" maxlength="500" required>%s</textarea>
<p class="form-error" data-error-for="answer"></p>
<button type="submit" data-action="submit">Save</button>
</form>`, html.EscapeString(c.Question), html.EscapeString(c.Answer))
	return a.showForm("Edit card", markup, func(v values) error {
		return a.store.UpdateCard(d.ID, c.ID, v.get("question"), v.get("answer"))
	})
}

// OpenDeleteDeck asks for confirmation before deleting the active deck.
func (a *App) OpenDeleteDeck() error {
	d, ok := a.store.ActiveDeck()
	if !ok {
		return errNoActiveDeck
	}
	markup := fmt.Sprintf(`<p>Delete “%s” and its %d cards?</p>
<button type="button" data-action="cancel">Cancel</button>
<button type="button" data-action="submit" class="danger">Delete</button>`,
		html.EscapeString(d.Title), len(d.Cards))
	return a.showForm("Delete deck", markup, func(values) error {
		return a.store.DeleteDeck(d.ID)
	})
}

// showForm opens a one-shot dialog. submit runs when the submit control is
// activated; on success the dialog closes, on failure the error is shown in
// the dialog and it stays open.
func (a *App) showForm(title, markup string, submit func(values) error) error {
	if a.dialog != nil {
		a.dialog.Destroy()
	}

	var d *dialog.Dialog
	var clicks dom.Group
	d, err := dialog.New(a.doc, title, markup,
		dialog.WithKeySource(a.router.Source(input.Dialog)),
		dialog.WithOnClose(func() {
			clicks.Release()
			d.Destroy()
			if a.dialog == d {
				a.dialog = nil
			}
		}),
	)
	if err != nil {
		return err
	}
	a.dialog = d

	for _, btn := range dom.Find(d.Content(), func(n *nethtml.Node) bool {
		return n.DataAtom == atom.Button && dom.HasAttr(n, "data-action")
	}) {
		action, _ := dom.Attr(btn, "data-action")
		switch action {
		case "submit":
			clicks.Add(a.doc.OnClick(btn, func(*nethtml.Node) {
				a.clearErrors(d)
				if err := submit(readValues(d.Content())); err != nil {
					a.showError(d, err)
					return
				}
				d.Close()
			}))
		case "cancel":
			clicks.Add(a.doc.OnClick(btn, func(*nethtml.Node) { d.Close() }))
		}
	}

	d.Open()
	return nil
}

func (a *App) clearErrors(d *dialog.Dialog) {
	for _, n := range dom.Find(d.Content(), func(n *nethtml.Node) bool { return dom.HasClass(n, "form-error") }) {
		dom.SetText(n, "")
	}
}

func (a *App) showError(d *dialog.Dialog, err error) {
	var ve *deck.ValidationError
	if errors.As(err, &ve) {
		for _, fe := range ve.Fields {
			target := dom.Find(d.Content(), func(n *nethtml.Node) bool {
				v, ok := dom.Attr(n, "data-error-for")
				return ok && v == fe.Field
			})
			if len(target) > 0 {
				dom.SetText(target[0], fmt.Sprintf("%s %s", fe.Field, fe.Reason))
				continue
			}
			a.logger.Warn("no error slot for field", "field", fe.Field)
		}
		return
	}
	slots := dom.Find(d.Content(), func(n *nethtml.Node) bool { return dom.HasClass(n, "form-error") })
	if len(slots) > 0 {
		dom.SetText(slots[0], err.Error())
	}
	a.logger.Warn("dialog submit failed", "error", err)
}

// values holds the named form controls of a dialog.
type values map[string]string

func (v values) get(name string) string { return v[name] }

func readValues(root *nethtml.Node) values {
	v := values{}
	for _, n := range dom.Find(root, func(n *nethtml.Node) bool { return dom.HasAttr(n, "name") }) {
		name, _ := dom.Attr(n, "name")
		switch n.DataAtom {
		case atom.Textarea:
			v[name] = dom.TextContent(n)
		default:
			v[name], _ = dom.Attr(n, "value")
		}
	}
	return v
}

// CardView is what the UI shows for the active deck.
type CardView struct {
	Deck     domain.Deck
	Card     domain.Card
	HasCard  bool
	Position int
	Total    int
}

// View describes the active deck and card.
func (a *App) View() (CardView, bool) {
	d, ok := a.store.ActiveDeck()
	if !ok {
		return CardView{}, false
	}
	v := CardView{Deck: d, Total: len(d.Cards)}
	if c, ok := d.ActiveCard(); ok {
		v.Card = c
		v.HasCard = true
		v.Position = d.ActiveIndex() + 1
	}
	return v, true
}
