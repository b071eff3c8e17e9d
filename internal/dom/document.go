// Package dom is a headless document: an html.Node tree with a focus cursor,
// document-level key and focus listeners, click handlers and the native
// Tab and Enter default actions.
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document owns a node tree and the keyboard focus within it.
type Document struct {
	root   *html.Node
	body   *html.Node
	active *html.Node

	keys   registry[KeyHandler]
	focus  registry[FocusHandler]
	clicks map[*html.Node]*registry[ClickHandler]
}

// New returns an empty document with <html>, <head> and <body>.
func New() *Document {
	root := &html.Node{Type: html.DocumentNode}
	htmlEl := Element("html")
	body := Element("body")
	root.AppendChild(htmlEl)
	htmlEl.AppendChild(Element("head"))
	htmlEl.AppendChild(body)
	return newDocument(root, body)
}

// Parse builds a document from a full HTML page.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	bodies := Find(root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	if len(bodies) == 0 {
		return nil, fmt.Errorf("document has no body")
	}
	return newDocument(root, bodies[0]), nil
}

func newDocument(root, body *html.Node) *Document {
	return &Document{
		root:   root,
		body:   body,
		clicks: make(map[*html.Node]*registry[ClickHandler]),
	}
}

// Root is the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body is the <body> element.
func (d *Document) Body() *html.Node { return d.body }

// Contains reports whether n is attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	return n != nil && IsWithin(n, d.root)
}

// ActiveElement is the focused element, or the body when nothing attached
// has focus.
func (d *Document) ActiveElement() *html.Node {
	if d.active == nil || !d.Contains(d.active) {
		return d.body
	}
	return d.active
}

// CanFocus reports whether n accepts focus right now.
func (d *Document) CanFocus(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || !d.Contains(n) {
		return false
	}
	if disabledControl(n) || !Rendered(n) {
		return false
	}
	return MatchesFocusable(n) || HasAttr(n, "tabindex")
}

// Focus moves focus to n and notifies focus listeners. It reports false and
// leaves focus alone when n does not accept focus.
func (d *Document) Focus(n *html.Node) bool {
	if !d.CanFocus(n) {
		return false
	}
	if d.active == n {
		return true
	}
	d.active = n
	ev := &FocusEvent{Target: n}
	for _, e := range d.focus.newestFirst() {
		if e.released {
			continue
		}
		e.fn(ev)
		if ev.stopped {
			break
		}
	}
	return true
}

// Blur drops focus back to the body.
func (d *Document) Blur() { d.active = nil }

// OnKey installs a document-level key listener.
func (d *Document) OnKey(fn KeyHandler) *Subscription { return d.keys.add(fn) }

// OnFocus installs a document-level focus listener.
func (d *Document) OnFocus(fn FocusHandler) *Subscription { return d.focus.add(fn) }

// ListenerCount reports how many document-level listeners are installed.
func (d *Document) ListenerCount() (keys, focus int) {
	return d.keys.len(), d.focus.len()
}

// OnClick installs a click handler on n. Clicks on descendants bubble to it.
func (d *Document) OnClick(n *html.Node, fn ClickHandler) *Subscription {
	r, ok := d.clicks[n]
	if !ok {
		r = &registry[ClickHandler]{}
		d.clicks[n] = r
	}
	sub := r.add(fn)
	return NewSubscription(func() {
		sub.Release()
		if r.len() == 0 {
			delete(d.clicks, n)
		}
	})
}

// Click activates n. Disabled controls and detached nodes ignore clicks.
func (d *Document) Click(n *html.Node) {
	if !d.Contains(n) || disabledControl(n) {
		return
	}
	for p := n; p != nil; p = p.Parent {
		r, ok := d.clicks[p]
		if !ok {
			continue
		}
		for _, e := range r.newestFirst() {
			if !e.released {
				e.fn(n)
			}
		}
	}
}

// DispatchKey delivers ev to the key listeners, newest first, then runs the
// default action unless a listener prevented it.
func (d *Document) DispatchKey(ev *KeyEvent) {
	ev.Target = d.ActiveElement()
	for _, e := range d.keys.newestFirst() {
		if e.released {
			continue
		}
		e.fn(ev)
		if ev.stopped {
			break
		}
	}
	if ev.defaultPrevented {
		return
	}

	switch ev.Key {
	case KeyTab:
		d.tab(ev.Shift)
	case KeyEnter, KeySpace:
		if t := d.ActiveElement(); t.DataAtom == atom.Button {
			d.Click(t)
		}
	}
}

// Press is shorthand for dispatching a fresh key event.
func (d *Document) Press(key string) *KeyEvent {
	ev := &KeyEvent{Key: key}
	d.DispatchKey(ev)
	return ev
}

// PressShift dispatches key with the shift modifier held.
func (d *Document) PressShift(key string) *KeyEvent {
	ev := &KeyEvent{Key: key, Shift: true}
	d.DispatchKey(ev)
	return ev
}

// Focusables lists the focusable descendants of within in document order:
// elements matching the focusable selector set that are rendered or
// currently focused.
func (d *Document) Focusables(within *html.Node) []*html.Node {
	active := d.ActiveElement()
	return Find(within, func(n *html.Node) bool {
		return MatchesFocusable(n) && (Rendered(n) || n == active)
	})
}

// tab is the native sequential focus navigation over the whole document.
func (d *Document) tab(backward bool) {
	order := Find(d.body, inTabOrder)
	if len(order) == 0 {
		return
	}
	cur := -1
	active := d.ActiveElement()
	for i, n := range order {
		if n == active {
			cur = i
			break
		}
	}

	var next int
	switch {
	case cur < 0 && backward:
		next = len(order) - 1
	case cur < 0:
		next = 0
	case backward:
		next = (cur - 1 + len(order)) % len(order)
	default:
		next = (cur + 1) % len(order)
	}
	d.Focus(order[next])
}
