package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeOutlineInlinesIdentifiers(t *testing.T) {
	snap := mustParse(t, `<html><body><a href="/home">Home</a><button aria-label="Search now">Search</button></body></html>`)
	filtered := Filter(snap.Root, DefaultFilterConfig())
	refs := Assign(filtered, snap.Root)

	out := Serialize(snap.URL, filtered, refs)

	assert.Contains(t, out, "URL: https://example.com")
	assert.Contains(t, out, `[link-0] <a href="/home"> "Home"`)
	assert.Contains(t, out, `[button-0] <button aria-label="Search now"> "Search"`)
}

func TestSerializeIndentsByDepth(t *testing.T) {
	snap := mustParse(t, `<html><body><form><input type="text"><button>Go</button></form></body></html>`)
	filtered := Filter(snap.Root, DefaultFilterConfig())
	refs := Assign(filtered, snap.Root)

	out := Serialize(snap.URL, filtered, refs)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	var formLine, inputLine string
	for _, line := range lines {
		if strings.Contains(line, "<form") {
			formLine = line
		}
		if strings.Contains(line, "<input") {
			inputLine = line
		}
	}
	require.NotEmpty(t, formLine)
	require.NotEmpty(t, inputLine)
	assert.Greater(t,
		len(inputLine)-len(strings.TrimLeft(inputLine, " ")),
		len(formLine)-len(strings.TrimLeft(formLine, " ")))
}

func TestSerializeBlankPage(t *testing.T) {
	out := Serialize("about:blank", nil, Assign(nil, nil))
	assert.Contains(t, out, "No URL loaded yet")

	out = Serialize("https://example.com/empty", nil, Assign(nil, nil))
	assert.Contains(t, out, "No visible interactive elements")
	assert.Contains(t, out, "https://example.com/empty")
}

func TestParseHTMLNormalizesMarkup(t *testing.T) {
	snap, err := ParseHTML(strings.NewReader(`<HTML><BODY><BUTTON NAME="Go">  Click
		me  </BUTTON></BODY></HTML>`), "https://example.com")
	require.NoError(t, err)

	var button *Node
	snap.Root.Walk(func(n *Node) {
		if n.Tag == "button" {
			button = n
		}
	})
	require.NotNil(t, button)
	assert.Equal(t, "Go", button.Attrs["name"])
	assert.Equal(t, "Click me", button.Text)
}
