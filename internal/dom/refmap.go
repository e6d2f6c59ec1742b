package dom

import (
	"errors"
	"fmt"
)

// Sentinel errors for identifier resolution. The two cases demand different
// recoveries upstream: an unknown identifier means the role proposed against
// a stale view and must re-propose, while a failed locator computation means
// the page itself moved on and the snapshot must be rebuilt.
var (
	ErrReferenceNotFound        = errors.New("element reference not found")
	ErrLocatorComputationFailed = errors.New("locator computation failed")
)

// RefMap is the ephemeral identifier table for one context-build cycle.
// It is constructed fresh every step and handed to the dispatcher as a
// value; identifiers from a previous step never resolve against it.
type RefMap struct {
	rawRoot *Node
	ids     []string
	nodes   map[string]*Node
}

// Assign traverses a filtered tree depth-first and labels every node with a
// `<category>-<index>` identifier, the index scoped per category and reset
// each call. The traversal order is deterministic: the same filtered tree
// always produces the same mapping.
//
// rawRoot is the unfiltered snapshot root the filtered tree was derived
// from; Resolve verifies origin nodes are still attached to it.
// A nil filtered tree yields a valid, empty map.
func Assign(filtered *Node, rawRoot *Node) *RefMap {
	m := &RefMap{
		rawRoot: rawRoot,
		nodes:   make(map[string]*Node),
	}
	counters := make(map[string]int)

	filtered.Walk(func(n *Node) {
		cat := refCategory(n)
		id := fmt.Sprintf("%s-%d", cat, counters[cat])
		counters[cat]++
		m.ids = append(m.ids, id)
		m.nodes[id] = n
	})
	return m
}

// refCategory derives the identifier's semantic category from role or tag.
func refCategory(n *Node) string {
	if role, ok := n.Attrs["role"]; ok && interactiveRoles[role] {
		return role
	}
	if n.Tag == "a" {
		return "link"
	}
	if n.Tag == "" {
		return "node"
	}
	return n.Tag
}

// IDs returns all identifiers in assignment order.
func (m *RefMap) IDs() []string { return m.ids }

// Len returns the number of mapped elements.
func (m *RefMap) Len() int { return len(m.ids) }

// Node returns the filtered node for an identifier.
func (m *RefMap) Node(id string) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Resolve maps an identifier to a locator computed against the unfiltered
// tree. The filtered tree's own structure is never used for addressing:
// it may have reparented or pruned nodes, so only the origin node's position
// in the raw tree reflects what the driver can actually select.
//
// Fails with ErrReferenceNotFound for identifiers absent from this mapping
// and ErrLocatorComputationFailed when the origin node no longer belongs to
// the snapshot it was captured from.
func (m *RefMap) Resolve(id string) (Locator, error) {
	node, ok := m.nodes[id]
	if !ok {
		return Locator{}, fmt.Errorf("%q: %w", id, ErrReferenceNotFound)
	}
	origin := node.Origin
	if origin == nil {
		return Locator{}, fmt.Errorf("%q has no origin node: %w", id, ErrLocatorComputationFailed)
	}
	if m.rawRoot != nil && origin.Root() != m.rawRoot {
		return Locator{}, fmt.Errorf("%q origin detached from snapshot: %w", id, ErrLocatorComputationFailed)
	}
	loc, err := ComputeXPath(origin)
	if err != nil {
		return Locator{}, fmt.Errorf("%q: %v: %w", id, err, ErrLocatorComputationFailed)
	}
	return loc, nil
}

// Boxes returns the identifier-labeled bounding boxes of all mapped nodes
// that have layout data, in assignment order. Used for screenshot overlays.
func (m *RefMap) Boxes() []LabeledBox {
	var boxes []LabeledBox
	for _, id := range m.ids {
		if b := m.nodes[id].Bounds; b != nil {
			boxes = append(boxes, LabeledBox{ID: id, Box: *b})
		}
	}
	return boxes
}

// LabeledBox pairs an element identifier with its rendered geometry.
type LabeledBox struct {
	ID  string      `json:"id"`
	Box BoundingBox `json:"box"`
}
