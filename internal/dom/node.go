// Package dom models page snapshots as element trees and derives the
// reduced, LLM-legible view used to address elements on the live page.
package dom

import "strings"

// BoundingBox is an element's rendered geometry in page coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is a single element in either a raw or a filtered DOM tree.
//
// Raw trees come straight from the browser driver and mirror the live DOM.
// Filtered trees are derived views: their structure may reparent or drop
// nodes for legibility, but every filtered node carries an Origin back-link
// to the exact raw node it was derived from. Only raw nodes are safe to
// compute locators against.
type Node struct {
	Tag    string
	Attrs  map[string]string
	Styles map[string]string
	// Bounds is nil when the element was never laid out.
	Bounds *BoundingBox
	// Text is the element's own direct text content, whitespace-collapsed.
	Text     string
	Children []*Node
	Parent   *Node
	// Origin is a non-owning back-link into the unfiltered tree.
	// Nil for raw-tree nodes.
	Origin *Node
}

// Snapshot is one capture of a page: its URL and the raw element tree.
// Root is nil when the page had no readable document.
type Snapshot struct {
	URL  string
	Root *Node
}

// AddChild appends a child and sets its parent pointer.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Walk visits n and all descendants in depth-first pre-order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Root walks parent pointers up to the tree root.
func (n *Node) Root() *Node {
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// AllText returns the text of this node and all descendants, joined by sep.
func (n *Node) AllText(sep string) string {
	var parts []string
	n.Walk(func(node *Node) {
		if node.Text != "" {
			parts = append(parts, node.Text)
		}
	})
	return strings.Join(parts, sep)
}

// Visible reports whether computed styles allow the element to render.
// Elements without style data are assumed visible.
func (n *Node) Visible() bool {
	if n.Styles == nil {
		return true
	}
	if n.Styles["display"] == "none" {
		return false
	}
	if n.Styles["visibility"] == "hidden" {
		return false
	}
	if op, ok := n.Styles["opacity"]; ok && (op == "0" || op == "0.0") {
		return false
	}
	return true
}

// ZeroSize reports whether the element was laid out with no rendered area.
// Elements without layout data are not considered zero-sized.
func (n *Node) ZeroSize() bool {
	if n.Bounds == nil {
		return false
	}
	return n.Bounds.Width == 0 || n.Bounds.Height == 0
}

// Standard interactive HTML tags, per the HTML spec.
var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true,
	"textarea": true, "label": true, "option": true,
}

// Standard interactive ARIA roles, per ARIA 1.2.
var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true,
	"switch": true, "tab": true, "menuitem": true, "menuitemcheckbox": true,
	"menuitemradio": true, "option": true, "textbox": true, "searchbox": true,
	"combobox": true, "slider": true, "spinbutton": true,
}

// Interactive reports whether the element can receive user interaction,
// based on its tag, ARIA role, and focus/handler attributes.
func (n *Node) Interactive() bool {
	if interactiveTags[n.Tag] {
		return true
	}
	if role, ok := n.Attrs["role"]; ok && interactiveRoles[role] {
		return true
	}
	if _, ok := n.Attrs["tabindex"]; ok {
		return true
	}
	if _, ok := n.Attrs["aria-haspopup"]; ok {
		return true
	}
	if _, ok := n.Attrs["onclick"]; ok {
		return true
	}
	return false
}
