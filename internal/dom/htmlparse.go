package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML parses an HTML document into a raw element tree. Styles and
// bounds are absent since static markup carries no layout; such nodes pass
// the visibility checks by default.
//
// The driver uses this to build raw trees from DOM serializations, and
// tests use it to construct snapshots from fixture markup.
func ParseHTML(r io.Reader, url string) (*Snapshot, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := convertElement(findFirstElement(doc))
	return &Snapshot{URL: url, Root: root}, nil
}

// findFirstElement descends past the document node to the root element.
func findFirstElement(n *html.Node) *html.Node {
	for cur := n; cur != nil; cur = cur.FirstChild {
		if cur.Type == html.ElementNode {
			return cur
		}
		for sib := cur.FirstChild; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode {
				return sib
			}
		}
	}
	return nil
}

func convertElement(src *html.Node) *Node {
	if src == nil {
		return nil
	}

	node := &Node{Tag: strings.ToLower(src.Data)}
	if len(src.Attr) > 0 {
		node.Attrs = make(map[string]string, len(src.Attr))
		for _, attr := range src.Attr {
			node.Attrs[strings.ToLower(attr.Key)] = attr.Val
		}
	}

	var textParts []string
	for child := src.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.ElementNode:
			node.AddChild(convertElement(child))
		case html.TextNode:
			if t := collapseSpace(child.Data); t != "" {
				textParts = append(textParts, t)
			}
		}
	}
	node.Text = strings.Join(textParts, " ")
	return node
}

// collapseSpace trims and collapses runs of whitespace to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
