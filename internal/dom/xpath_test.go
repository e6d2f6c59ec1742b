package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeXPathAnchorsOnID(t *testing.T) {
	snap := mustParse(t, `<html><body><div id="content"><p><button>Go</button></p></div></body></html>`)

	var button *Node
	snap.Root.Walk(func(n *Node) {
		if n.Tag == "button" {
			button = n
		}
	})
	require.NotNil(t, button)

	loc, err := ComputeXPath(button)
	require.NoError(t, err)
	assert.Equal(t, `//*[@id='content']/p/button`, loc.XPath)
}

func TestComputeXPathSiblingIndices(t *testing.T) {
	snap := mustParse(t, `<html><body><ul><li>a</li><li>b</li><li>c</li></ul></body></html>`)

	var items []*Node
	snap.Root.Walk(func(n *Node) {
		if n.Tag == "li" {
			items = append(items, n)
		}
	})
	require.Len(t, items, 3)

	loc, err := ComputeXPath(items[1])
	require.NoError(t, err)
	assert.Equal(t, "/html/body/ul/li[2]", loc.XPath)
}

func TestComputeXPathOmitsIndexForSoleTag(t *testing.T) {
	snap := mustParse(t, `<html><body><form><input type="text"></form></body></html>`)

	var input *Node
	snap.Root.Walk(func(n *Node) {
		if n.Tag == "input" {
			input = n
		}
	})
	require.NotNil(t, input)

	loc, err := ComputeXPath(input)
	require.NoError(t, err)
	assert.Equal(t, "/html/body/form/input", loc.XPath)
}

func TestComputeXPathSkipsQuotedIDs(t *testing.T) {
	node := &Node{Tag: "button", Attrs: map[string]string{"id": `x'y`}}
	parent := &Node{Tag: "body"}
	parent.AddChild(node)

	loc, err := ComputeXPath(node)
	require.NoError(t, err)
	// An id containing quotes cannot be embedded in the predicate; fall back
	// to the positional path.
	assert.Equal(t, "/body/button", loc.XPath)
}

func TestComputeXPathNilNode(t *testing.T) {
	_, err := ComputeXPath(nil)
	assert.Error(t, err)
}
