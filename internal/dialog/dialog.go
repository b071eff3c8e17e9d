// Package dialog implements a reusable modal overlay that traps keyboard
// focus while open and hands it back on close.
package dialog

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conorfennell/flashdeck/internal/dom"
)

// BodyOpenClass is set on <body> while any dialog is open.
const BodyOpenClass = "modal-open"

// State is the dialog lifecycle state.
type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

var seq int

// Dialog is a focus-trapping modal attached to a document.
type Dialog struct {
	doc      *dom.Document
	keys     dom.KeySource
	onClose  func()
	id       string
	root     *html.Node
	content  *html.Node
	closeBtn *html.Node

	state     State
	destroyed bool
	previous  *html.Node
	landmarks map[*html.Node]landmarkState
	listeners dom.Group
	clickSub  *dom.Subscription
}

type landmarkState struct {
	value string
	had   bool
}

// Option configures a Dialog.
type Option func(*Dialog)

// WithKeySource installs the dialog's key listener on src instead of the
// document, for example an input router layer.
func WithKeySource(src dom.KeySource) Option {
	return func(d *Dialog) { d.keys = src }
}

// WithOnClose registers fn to run after every transition to Closed.
func WithOnClose(fn func()) Option {
	return func(d *Dialog) { d.onClose = fn }
}

// WithID sets the id attribute of the dialog root.
func WithID(id string) Option {
	return func(d *Dialog) { d.id = id }
}

// New builds a closed dialog whose body is parsed from markup. The caller is
// responsible for escaping any user text interpolated into markup.
func New(doc *dom.Document, title, markup string, opts ...Option) (*Dialog, error) {
	nodes, err := dom.ParseFragment(markup)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dialog body: %w", err)
	}
	content := dom.Element("div", "class", "modal-body")
	for _, n := range nodes {
		content.AppendChild(n)
	}
	return build(doc, title, content, opts), nil
}

// NewWithNode builds a closed dialog around a pre-built body node. The node
// is moved out of any tree it currently belongs to.
func NewWithNode(doc *dom.Document, title string, body *html.Node, opts ...Option) *Dialog {
	content := dom.Element("div", "class", "modal-body")
	dom.Detach(body)
	content.AppendChild(body)
	return build(doc, title, content, opts)
}

func build(doc *dom.Document, title string, content *html.Node, opts []Option) *Dialog {
	d := &Dialog{doc: doc, keys: doc, content: content}
	for _, opt := range opts {
		opt(d)
	}
	if d.id == "" {
		seq++
		d.id = fmt.Sprintf("modal-%d", seq)
	}
	titleID := d.id + "-title"

	d.root = dom.Element("div",
		"id", d.id,
		"class", "modal",
		"role", "dialog",
		"aria-modal", "true",
		"aria-labelledby", titleID,
		"aria-hidden", "true",
		"hidden", "",
	)
	panel := dom.Element("div", "class", "modal-content")
	heading := dom.Element("h2", "id", titleID, "class", "modal-title")
	heading.AppendChild(dom.Text(title))
	d.closeBtn = dom.Element("button", "type", "button", "class", "modal-close", "aria-label", "Close dialog")
	d.closeBtn.AppendChild(dom.Text("Close"))

	panel.AppendChild(heading)
	panel.AppendChild(content)
	panel.AppendChild(d.closeBtn)
	d.root.AppendChild(panel)
	doc.Body().AppendChild(d.root)

	d.clickSub = doc.OnClick(d.closeBtn, func(*html.Node) { d.Close() })
	return d
}

// State reports the lifecycle state.
func (d *Dialog) State() State { return d.state }

// IsOpen reports whether the dialog is open.
func (d *Dialog) IsOpen() bool { return d.state == Open }

// Root is the dialog's outermost element.
func (d *Dialog) Root() *html.Node { return d.root }

// Content is the element wrapping the dialog body.
func (d *Dialog) Content() *html.Node { return d.content }

// CloseControl is the dialog's own close button.
func (d *Dialog) CloseControl() *html.Node { return d.closeBtn }

// Open shows the dialog and traps focus inside it. Opening an open or
// destroyed dialog does nothing.
func (d *Dialog) Open() {
	if d.state == Open || d.destroyed {
		return
	}
	d.previous = d.doc.ActiveElement()

	dom.RemoveAttr(d.root, "hidden")
	dom.SetAttr(d.root, "aria-hidden", "false")
	d.hideLandmarks()
	dom.AddClass(d.doc.Body(), BodyOpenClass)

	d.listeners.Add(d.keys.OnKey(d.handleKey))
	d.listeners.Add(d.doc.OnFocus(d.handleFocus))
	d.state = Open

	d.focusInitial()
}

// Close hides the dialog and undoes everything Open did.
func (d *Dialog) Close() {
	if d.state != Open {
		return
	}
	d.state = Closed

	dom.SetAttr(d.root, "hidden", "")
	dom.SetAttr(d.root, "aria-hidden", "true")
	dom.RemoveClass(d.doc.Body(), BodyOpenClass)
	d.listeners.Release()

	prev := d.previous
	d.previous = nil
	if prev == nil || prev == d.doc.Body() || !d.doc.Focus(prev) {
		d.doc.Blur()
	}
	d.restoreLandmarks()

	if d.onClose != nil {
		d.onClose()
	}
}

// Destroy closes the dialog and removes it from the document. The dialog
// cannot be opened again.
func (d *Dialog) Destroy() {
	if d.destroyed {
		return
	}
	d.Close()
	d.clickSub.Release()
	dom.Detach(d.root)
	d.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (d *Dialog) Destroyed() bool { return d.destroyed }

func (d *Dialog) focusInitial() {
	for _, n := range d.doc.Focusables(d.content) {
		if d.doc.Focus(n) {
			return
		}
	}
	d.doc.Focus(d.closeBtn)
}

func (d *Dialog) handleKey(ev *dom.KeyEvent) {
	switch ev.Key {
	case dom.KeyEscape:
		ev.PreventDefault()
		d.Close()
	case dom.KeyTab:
		items := d.doc.Focusables(d.root)
		if len(items) == 0 {
			ev.PreventDefault()
			return
		}
		first, last := items[0], items[len(items)-1]
		active := d.doc.ActiveElement()
		switch {
		case ev.Shift && active == first:
			ev.PreventDefault()
			d.doc.Focus(last)
		case !ev.Shift && active == last:
			ev.PreventDefault()
			d.doc.Focus(first)
		}
	}
}

func (d *Dialog) handleFocus(ev *dom.FocusEvent) {
	if dom.IsWithin(ev.Target, d.root) {
		return
	}
	ev.StopPropagation()
	d.focusInitial()
}

func isLandmark(n *html.Node) bool {
	if n.DataAtom == atom.Main || n.DataAtom == atom.Nav {
		return true
	}
	role, _ := dom.Attr(n, "role")
	return role == "main" || role == "navigation"
}

func (d *Dialog) hideLandmarks() {
	d.landmarks = make(map[*html.Node]landmarkState)
	for _, n := range dom.Find(d.doc.Body(), isLandmark) {
		if dom.IsWithin(n, d.root) {
			continue
		}
		v, had := dom.Attr(n, "aria-hidden")
		d.landmarks[n] = landmarkState{value: v, had: had}
		dom.SetAttr(n, "aria-hidden", "true")
	}
}

func (d *Dialog) restoreLandmarks() {
	for n, st := range d.landmarks {
		if st.had {
			dom.SetAttr(n, "aria-hidden", st.value)
		} else {
			dom.RemoveAttr(n, "aria-hidden")
		}
	}
	d.landmarks = nil
}
