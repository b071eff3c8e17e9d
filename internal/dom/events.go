package dom

import "golang.org/x/net/html"

// Key names used by the default actions and the dialog.
const (
	KeyTab        = "Tab"
	KeyEscape     = "Escape"
	KeyEnter      = "Enter"
	KeySpace      = " "
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyDelete     = "Delete"
)

// KeyEvent is a keydown delivered to document-level listeners.
type KeyEvent struct {
	Key    string
	Shift  bool
	Target *html.Node

	defaultPrevented bool
	stopped          bool
}

// PreventDefault suppresses the document's default action for the key.
func (e *KeyEvent) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *KeyEvent) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation stops delivery to the remaining listeners.
func (e *KeyEvent) StopPropagation() { e.stopped = true }

// Stopped reports whether StopPropagation was called.
func (e *KeyEvent) Stopped() bool { return e.stopped }

// FocusEvent reports that Target received focus.
type FocusEvent struct {
	Target *html.Node

	stopped bool
}

// StopPropagation stops delivery to the remaining listeners.
func (e *FocusEvent) StopPropagation() { e.stopped = true }

// Stopped reports whether StopPropagation was called.
func (e *FocusEvent) Stopped() bool { return e.stopped }

// KeyHandler handles a key event.
type KeyHandler func(*KeyEvent)

// FocusHandler handles a focus event.
type FocusHandler func(*FocusEvent)

// ClickHandler handles a click on target or one of its descendants.
type ClickHandler func(target *html.Node)

// KeySource is anything key listeners can be installed on.
type KeySource interface {
	OnKey(KeyHandler) *Subscription
}
