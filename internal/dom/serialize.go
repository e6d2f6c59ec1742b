package dom

import (
	"fmt"
	"sort"
	"strings"
)

// Serialize renders the filtered tree as the page-state block for LLM
// context, one line per element with its identifier inlined.
//
// A nil tree is a valid, representable state and serializes to an explicit
// explanation rather than an error, so roles can reason about blank pages.
func Serialize(url string, filtered *Node, refs *RefMap) string {
	var b strings.Builder
	b.WriteString("Page:\n")

	if filtered == nil || refs == nil || refs.Len() == 0 {
		writeEmptyPage(&b, url)
		return b.String()
	}

	fmt.Fprintf(&b, "  URL: %s\n\n", url)

	idByNode := make(map[*Node]string, refs.Len())
	for _, id := range refs.IDs() {
		n, _ := refs.Node(id)
		idByNode[n] = id
	}

	writeNode(&b, filtered, idByNode, 0)
	return b.String()
}

func writeEmptyPage(b *strings.Builder, url string) {
	if url == "" || url == "about:blank" {
		b.WriteString("  URL: (no page loaded)\n\n")
		b.WriteString("No URL loaded yet. Use the navigate tool to open a page.\n")
		return
	}
	fmt.Fprintf(b, "  URL: %s\n\n", url)
	b.WriteString("No visible interactive elements found on this page.\n")
	b.WriteString("The page may still be loading, or it has nothing to interact with.\n")
}

func writeNode(b *strings.Builder, n *Node, ids map[*Node]string, depth int) {
	indent := strings.Repeat("  ", depth)

	fmt.Fprintf(b, "%s[%s] <%s", indent, ids[n], n.Tag)
	for _, k := range sortedKeys(n.Attrs) {
		fmt.Fprintf(b, " %s=%q", k, n.Attrs[k])
	}
	b.WriteString(">")
	if n.Text != "" {
		fmt.Fprintf(b, " %q", n.Text)
	}
	b.WriteString("\n")

	for _, child := range n.Children {
		writeNode(b, child, ids, depth+1)
	}
}

// sortedKeys keeps attribute output deterministic across runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
