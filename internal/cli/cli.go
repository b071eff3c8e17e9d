// Package cli implements the flashdeck command line on top of a restored
// deck store.
package cli

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/persist"
	"github.com/conorfennell/flashdeck/internal/sources"
)

// ErrUsage is returned for unknown commands and wrong argument counts.
var ErrUsage = errors.New("usage")

// Runner executes one command against Store. Mutations are persisted by the
// store itself through its persister.
type Runner struct {
	Store    *deck.Store
	Bridge   *persist.Bridge
	ReposDir string
	Out      io.Writer
	// Progress receives git clone/pull output. Nil discards it.
	Progress io.Writer
}

type command struct {
	args []string
	help string
	run  func(r *Runner, args []string) error
}

var commands = map[string]command{
	"decks":       {nil, "list decks", (*Runner).decks},
	"cards":       {[]string{"deck"}, "list the cards of a deck", (*Runner).cards},
	"new-deck":    {[]string{"title"}, "create a deck and make it active", (*Runner).newDeck},
	"rename-deck": {[]string{"deck", "title"}, "rename a deck", (*Runner).renameDeck},
	"delete-deck": {[]string{"deck"}, "delete a deck and its cards", (*Runner).deleteDeck},
	"use":         {[]string{"deck"}, "make a deck active", (*Runner).use},
	"add-card":    {[]string{"deck", "question", "answer"}, "add a card", (*Runner).addCard},
	"edit-card":   {[]string{"deck", "card", "question", "answer"}, "replace a card's content", (*Runner).editCard},
	"delete-card": {[]string{"deck", "card"}, "delete a card", (*Runner).deleteCard},
	"shuffle":     {[]string{"deck"}, "shuffle a deck", (*Runner).shuffle},
	"search":      {[]string{"deck", "query"}, "count cards matching a query", (*Runner).search},
	"import":      {[]string{"deck", "source"}, "import Q:/A: markdown from a directory or git url", (*Runner).importCards},
	"reset":       {nil, "delete the saved decks", (*Runner).reset},
}

// Run dispatches args[0] to its command.
func (r *Runner) Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	if len(args)-1 != len(cmd.args) {
		return fmt.Errorf("%w: %s %s", ErrUsage, args[0], placeholders(cmd.args))
	}
	return cmd.run(r, args[1:])
}

// Usage writes the command list.
func Usage(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range slices.Sorted(maps.Keys(commands)) {
		cmd := commands[name]
		fmt.Fprintf(tw, "  %s %s\t%s\n", name, placeholders(cmd.args), cmd.help)
	}
	tw.Flush()
}

func placeholders(args []string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = "<" + a + ">"
	}
	return strings.Join(parts, " ")
}

func (r *Runner) decks(_ []string) error {
	st := r.Store.State()
	tw := tabwriter.NewWriter(r.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tCARDS")
	for _, d := range st.Decks {
		marker := ""
		if st.ActiveDeckID != nil && *st.ActiveDeckID == d.ID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", marker, d.ID, d.Title, len(d.Cards))
	}
	return tw.Flush()
}

func (r *Runner) cards(args []string) error {
	d, err := r.resolveDeck(args[0])
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(r.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\t#\tID\tQUESTION\tANSWER")
	for i, c := range d.Cards {
		marker := ""
		if i == d.ActiveIndex() {
			marker = ">"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", marker, i+1, c.ID, oneLine(c.Question), oneLine(c.Answer))
	}
	return tw.Flush()
}

func (r *Runner) newDeck(args []string) error {
	d, err := r.Store.CreateDeck(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "created deck %s (%s)\n", d.ID, d.Title)
	return nil
}

func (r *Runner) renameDeck(args []string) error {
	d, err := r.resolveDeck(args[0])
	if err != nil {
		return err
	}
	if err := r.Store.RenameDeck(d.ID, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "renamed deck %s\n", d.ID)
	return nil
}

func (r *Runner) deleteDeck(args []string) error {
	d, err := r.resolveDeck(args[0])
	if err != nil {
		return err
	}
	if err := r.Store.DeleteDeck(d.ID); err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "deleted deck %s and %d cards\n", d.ID, len(d.Cards))
	return nil
}

func (r *Runner) use(args []string) error {
	d, err := r.resolveDeck(args[0])
	if err != nil {
		return err
	}
	if err := r.Store.SetActiveDeck(d.ID); err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "active deck is now %s (%s)\n", d.ID, d.Title)
	return nil
}

func (r *Runner) addCard(args []string) error {
	d, err := r.resolveDeck(args[0])
	if err != nil {
		return err
	}
	c, err := r.Store.CreateCard(d.ID, args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "added card %s to %s\n", c.ID, d.ID)
	return nil
}

func (r *Runner) editCard(args []string) error {
	d, c, err := r.resolveCard(args[0], args[1])
	if err != nil {
		return err
	}
	if err := r.Store.UpdateCard(d.ID, c.ID, args[2], args[3]); err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "updated card %s\n", c.ID)
	return nil
}

func (r *Runner) deleteCard(args []string) error {
	d, c, err := r.resolveCard(args[0], args[1])
	if err != nil {
		return err
	}
	if err := r.Store.DeleteCard(d.ID, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "deleted card %s\n", c.ID)
	return nil
}

func (r *Runner) shuffle(args []string) error {
	d, err := r.resolveDeck(args[0])
	if err != nil {
		return err
	}
	if err := r.Store.Shuffle(d.ID); err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "shuffled %d cards in %s\n", len(d.Cards), d.ID)
	return nil
}

func (r *Runner) search(args []string) error {
	d, err := r.resolveDeck(args[0])
	if err != nil {
		return err
	}
	res, err := r.Store.Search(d.ID, args[1])
	if err != nil {
		return err
	}
	if res.Cleared {
		fmt.Fprintln(r.Out, "search cleared")
		return nil
	}
	fmt.Fprintf(r.Out, "%d matching cards\n", res.Matches)
	if res.Matches > 0 {
		found, _ := r.Store.Deck(d.ID)
		if c, ok := found.ActiveCard(); ok {
			fmt.Fprintf(r.Out, "first: %s %s\n", c.ID, oneLine(c.Question))
		}
	}
	return nil
}

func (r *Runner) importCards(args []string) error {
	d, err := r.resolveDeck(args[0])
	if err != nil {
		return err
	}
	progress := r.Progress
	if progress == nil {
		progress = io.Discard
	}
	rep, err := sources.Import(r.Store, d.ID, args[1], r.ReposDir, progress)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "scanned %d files: %d cards parsed, %d added, %d duplicates, %d errors\n",
		rep.Files, rep.Parsed, rep.Added, rep.Duplicates, len(rep.Errors))
	for _, e := range rep.Errors {
		fmt.Fprintf(r.Out, "- %s\n", e)
	}
	return nil
}

func (r *Runner) reset(_ []string) error {
	if r.Bridge == nil || !r.Bridge.Reset() {
		return errors.New("could not clear saved decks")
	}
	fmt.Fprintln(r.Out, "saved decks cleared; the next run starts from the sample data")
	return nil
}

// resolveDeck finds a deck by id, or else by exact title ignoring case.
func (r *Runner) resolveDeck(ref string) (domain.Deck, error) {
	if d, err := r.Store.Deck(ref); err == nil {
		return d, nil
	}
	var found []domain.Deck
	for _, d := range r.Store.State().Decks {
		if strings.EqualFold(d.Title, strings.TrimSpace(ref)) {
			found = append(found, d)
		}
	}
	switch len(found) {
	case 0:
		return domain.Deck{}, fmt.Errorf("deck %q: %w", ref, deck.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return domain.Deck{}, fmt.Errorf("%d decks are titled %q, use the id", len(found), ref)
	}
}

// resolveCard finds a card by id, or else by 1-based position.
func (r *Runner) resolveCard(deckRef, cardRef string) (domain.Deck, domain.Card, error) {
	d, err := r.resolveDeck(deckRef)
	if err != nil {
		return domain.Deck{}, domain.Card{}, err
	}
	if i := d.CardIndex(cardRef); i >= 0 {
		return d, d.Cards[i], nil
	}
	if n, err := strconv.Atoi(cardRef); err == nil && n >= 1 && n <= len(d.Cards) {
		return d, d.Cards[n-1], nil
	}
	return domain.Deck{}, domain.Card{}, fmt.Errorf("card %q in deck %s: %w", cardRef, d.ID, deck.ErrNotFound)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
