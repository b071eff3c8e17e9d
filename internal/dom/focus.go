package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MatchesFocusable reports whether n matches the focusable selector set:
//
//	a[href], area[href], button:not([disabled]), input:not([disabled]),
//	select:not([disabled]), textarea:not([disabled]), iframe, object, embed,
//	[tabindex]:not([tabindex="-1"]), [contenteditable]
func MatchesFocusable(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.A, atom.Area:
		if HasAttr(n, "href") {
			return true
		}
	case atom.Button, atom.Input, atom.Select, atom.Textarea:
		if !HasAttr(n, "disabled") {
			return true
		}
	case atom.Iframe, atom.Object, atom.Embed:
		return true
	}
	if v, ok := Attr(n, "tabindex"); ok && strings.TrimSpace(v) != "-1" {
		return true
	}
	if v, ok := Attr(n, "contenteditable"); ok && v != "false" {
		return true
	}
	return false
}

// Rendered reports whether n would occupy space: neither it nor any ancestor
// is hidden, and it is not a hidden input.
func Rendered(n *html.Node) bool {
	if n.DataAtom == atom.Input {
		if t, _ := Attr(n, "type"); strings.EqualFold(t, "hidden") {
			return false
		}
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if HasAttr(p, "hidden") {
			return false
		}
		if style, ok := Attr(p, "style"); ok {
			compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
			if strings.Contains(compact, "display:none") {
				return false
			}
		}
	}
	return true
}

func disabledControl(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Button, atom.Input, atom.Select, atom.Textarea:
		return HasAttr(n, "disabled")
	}
	return false
}

func inTabOrder(n *html.Node) bool {
	if !MatchesFocusable(n) || !Rendered(n) {
		return false
	}
	v, ok := Attr(n, "tabindex")
	return !ok || strings.TrimSpace(v) != "-1"
}
