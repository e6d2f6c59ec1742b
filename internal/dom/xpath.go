package dom

import (
	"fmt"
	"strings"
)

// Locator addresses a live element for the browser driver.
type Locator struct {
	XPath string
}

func (l Locator) String() string { return l.XPath }

// ComputeXPath builds an XPath expression for a raw-tree node by walking its
// parent chain to the root. An element with an id attribute anchors the path
// there, which keeps locators short and stable against layout churn.
// Indices are 1-based and only emitted when same-tag siblings exist.
func ComputeXPath(n *Node) (Locator, error) {
	if n == nil {
		return Locator{}, fmt.Errorf("cannot compute xpath of nil node")
	}

	var segments []string
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Tag == "" {
			continue
		}

		if id := cur.Attrs["id"]; id != "" && !strings.ContainsAny(id, `'"`) {
			segments = append(segments, fmt.Sprintf(`//*[@id='%s']`, id))
			break
		}

		segment := cur.Tag
		if idx, total := siblingPosition(cur); total > 1 {
			segment = fmt.Sprintf("%s[%d]", cur.Tag, idx)
		}
		segments = append(segments, segment)
	}

	// Reverse into document order.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	xpath := strings.Join(segments, "/")
	if !strings.HasPrefix(xpath, "//*[@id=") {
		xpath = "/" + xpath
	}
	return Locator{XPath: xpath}, nil
}

// siblingPosition returns the 1-based index of n among same-tag siblings and
// the count of those siblings. A parentless node is its tag's only sibling.
func siblingPosition(n *Node) (index, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	index = 0
	for _, sibling := range n.Parent.Children {
		if sibling.Tag == n.Tag {
			total++
			if sibling == n {
				index = total
			}
		}
	}
	if index == 0 {
		// n is not among its parent's children; treat as sole occupant.
		return 1, 1
	}
	return index, total
}
