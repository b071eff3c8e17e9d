// Package input routes keyboard events to exactly one owner.
//
// Owners acquire a layer; a key goes to the newest handler of the highest
// layer that has any handler at all. An open dialog therefore shadows a
// study session, which shadows the default shortcuts, without any of them
// checking global flags.
package input

import (
	"github.com/conorfennell/flashdeck/internal/dom"
)

// Layer is a keyboard priority level.
type Layer int

const (
	Default Layer = iota
	Study
	Dialog
	numLayers
)

func (l Layer) String() string {
	switch l {
	case Default:
		return "default"
	case Study:
		return "study"
	case Dialog:
		return "dialog"
	}
	return "unknown"
}

type handler struct {
	fn dom.KeyHandler
}

// Router is the single key listener of a document.
type Router struct {
	layers [numLayers][]*handler
}

// NewRouter returns a router with no handlers.
func NewRouter() *Router {
	return &Router{}
}

// Attach installs the router as a key listener on doc.
func (r *Router) Attach(doc *dom.Document) *dom.Subscription {
	return doc.OnKey(r.Dispatch)
}

// Acquire installs fn in layer l. Releasing the subscription gives the
// keys back to whoever held them before.
func (r *Router) Acquire(l Layer, fn dom.KeyHandler) *dom.Subscription {
	h := &handler{fn: fn}
	r.layers[l] = append(r.layers[l], h)
	return dom.NewSubscription(func() {
		hs := r.layers[l]
		for i, x := range hs {
			if x == h {
				r.layers[l] = append(hs[:i], hs[i+1:]...)
				return
			}
		}
	})
}

// Source adapts layer l to a dom.KeySource.
func (r *Router) Source(l Layer) dom.KeySource {
	return layerSource{r: r, layer: l}
}

// Active returns the layer that currently owns the keyboard.
func (r *Router) Active() (Layer, bool) {
	for l := numLayers - 1; l >= Default; l-- {
		if len(r.layers[l]) > 0 {
			return l, true
		}
	}
	return Default, false
}

// Dispatch hands ev to the owning handler, if any.
func (r *Router) Dispatch(ev *dom.KeyEvent) {
	l, ok := r.Active()
	if !ok {
		return
	}
	hs := r.layers[l]
	hs[len(hs)-1].fn(ev)
}

type layerSource struct {
	r     *Router
	layer Layer
}

func (s layerSource) OnKey(fn dom.KeyHandler) *dom.Subscription {
	return s.r.Acquire(s.layer, fn)
}
