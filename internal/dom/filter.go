package dom

// FilterConfig controls how a raw snapshot is reduced for LLM consumption.
type FilterConfig struct {
	// NonVisibleTags are pruned outright in the visibility pass.
	NonVisibleTags map[string]bool
	// KeptAttributes is the allowlist applied in the semantic pass.
	// Presentational attributes (class, style, data-*) are dropped.
	KeptAttributes map[string]bool
	// CollapseWrappers splices out non-interactive single-child wrappers.
	CollapseWrappers bool
}

// DefaultFilterConfig returns the standard filtering policy.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		NonVisibleTags: map[string]bool{
			"script": true, "style": true, "head": true, "meta": true,
			"link": true, "title": true, "noscript": true,
		},
		KeptAttributes: map[string]bool{
			"role": true, "aria-label": true, "aria-labelledby": true,
			"aria-describedby": true, "aria-checked": true, "aria-selected": true,
			"aria-expanded": true, "aria-disabled": true, "aria-haspopup": true,
			"type": true, "name": true, "placeholder": true, "value": true,
			"alt": true, "title": true, "href": true, "disabled": true,
			"checked": true, "selected": true, "tabindex": true, "onclick": true,
		},
		CollapseWrappers: true,
	}
}

// Filter derives the reduced tree from a raw snapshot root.
//
// Two passes, in order: a visibility pass dropping whole subtrees the user
// cannot see, then a semantic pass dropping pure layout wrappers while
// keeping ancestor chains legible (a label wrapping an input survives).
// Every returned node has a non-nil Origin resolving into the raw tree.
//
// An empty or nil raw tree yields a nil root. That is a valid state, not an
// error: callers represent it as "no interactive elements".
func Filter(raw *Node, cfg FilterConfig) *Node {
	visible := visibilityPass(raw, cfg)
	if visible == nil {
		return nil
	}
	kept := semanticPass(visible, cfg)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		kept[0].Parent = nil
		return kept[0]
	default:
		// Multiple top-level survivors need a synthetic root to stay a tree.
		root := &Node{Tag: visible.Tag, Origin: visible.Origin}
		for _, c := range kept {
			root.AddChild(c)
		}
		return root
	}
}

// visibilityPass copies the subtree, dropping nodes with a non-visible tag,
// CSS-hidden state, or zero rendered area. A hidden ancestor hides its whole
// subtree, so pruning cuts the branch.
func visibilityPass(raw *Node, cfg FilterConfig) *Node {
	if raw == nil {
		return nil
	}
	if cfg.NonVisibleTags[raw.Tag] {
		return nil
	}
	if !raw.Visible() || raw.ZeroSize() {
		return nil
	}

	node := &Node{
		Tag:    raw.Tag,
		Attrs:  raw.Attrs,
		Bounds: raw.Bounds,
		Text:   raw.Text,
		Origin: raw,
	}
	for _, child := range raw.Children {
		if kept := visibilityPass(child, cfg); kept != nil {
			node.AddChild(kept)
		}
	}
	return node
}

// semanticPass rewrites a visibility-filtered subtree bottom-up. It returns
// the nodes that replace n in its parent: n itself when it carries meaning,
// n's surviving children when n is a dropped or collapsed wrapper, or
// nothing when the subtree is empty noise.
func semanticPass(n *Node, cfg FilterConfig) []*Node {
	var keptChildren []*Node
	for _, child := range n.Children {
		keptChildren = append(keptChildren, semanticPass(child, cfg)...)
	}

	attrs := filterAttrs(n.Attrs, cfg.KeptAttributes)

	// role=presentation opts the element out of semantics; splice children up.
	if role := attrs["role"]; role == "none" || role == "presentation" {
		return detachAll(keptChildren)
	}

	interactive := (&Node{Tag: n.Tag, Attrs: attrs}).Interactive()
	meaningful := interactive || n.Text != ""

	if !meaningful {
		switch {
		case len(keptChildren) == 0:
			return nil
		// Only attribute-free wrappers collapse; a wrapper that kept a
		// semantic attribute still carries meaning for the reader.
		case len(keptChildren) == 1 && len(attrs) == 0 && cfg.CollapseWrappers:
			return detachAll(keptChildren)
		}
	}

	node := &Node{
		Tag:    n.Tag,
		Attrs:  attrs,
		Bounds: n.Bounds,
		Text:   n.Text,
		Origin: n.Origin,
	}
	for _, child := range detachAll(keptChildren) {
		node.AddChild(child)
	}
	return []*Node{node}
}

func filterAttrs(attrs map[string]string, keep map[string]bool) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if keep[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func detachAll(nodes []*Node) []*Node {
	for _, n := range nodes {
		n.Parent = nil
	}
	return nodes
}
