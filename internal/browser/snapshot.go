package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/webpilot-ai/webpilot/internal/dom"
)

// snapshotJS walks the live DOM inside the page and returns a JSON tree of
// element nodes with the computed style and geometry the filter needs.
// Running in-page keeps the capture to a single CDP round trip.
const snapshotJS = `(() => {
	const pick = (style) => ({
		display: style.display,
		visibility: style.visibility,
		opacity: style.opacity,
	});
	const directText = (el) => {
		let text = "";
		for (const child of el.childNodes) {
			if (child.nodeType === Node.TEXT_NODE) text += child.textContent + " ";
		}
		return text.replace(/\s+/g, " ").trim();
	};
	const convert = (el) => {
		const attrs = {};
		for (const attr of el.attributes) attrs[attr.name.toLowerCase()] = attr.value;
		const rect = el.getBoundingClientRect();
		const node = {
			tag: el.tagName.toLowerCase(),
			attrs: attrs,
			styles: pick(window.getComputedStyle(el)),
			bounds: {
				x: rect.x + window.scrollX,
				y: rect.y + window.scrollY,
				width: rect.width,
				height: rect.height,
			},
			text: directText(el),
			children: [],
		};
		for (const child of el.children) node.children.push(convert(child));
		return node;
	};
	return document.documentElement ? convert(document.documentElement) : null;
})()`

// wireNode mirrors the JSON shape snapshotJS emits.
type wireNode struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs"`
	Styles   map[string]string `json:"styles"`
	Bounds   *dom.BoundingBox  `json:"bounds"`
	Text     string            `json:"text"`
	Children []*wireNode       `json:"children"`
}

// Snapshot implements agent.Driver. A page with no document yields a
// snapshot with a nil root, which downstream treats as a valid blank page.
func (d *Driver) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	var (
		url  string
		wire *wireNode
	)
	if err := d.run(ctx,
		chromedp.Location(&url),
		chromedp.Evaluate(snapshotJS, &wire),
	); err != nil {
		return nil, fmt.Errorf("dom capture failed: %w", err)
	}

	return &dom.Snapshot{URL: url, Root: toNode(wire)}, nil
}

// toNode converts the wire tree into a dom tree with parent links.
func toNode(w *wireNode) *dom.Node {
	if w == nil {
		return nil
	}
	node := &dom.Node{
		Tag:    w.Tag,
		Attrs:  w.Attrs,
		Styles: w.Styles,
		Bounds: w.Bounds,
		Text:   w.Text,
	}
	for _, child := range w.Children {
		node.AddChild(toNode(child))
	}
	return node
}
