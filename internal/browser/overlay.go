package browser

import (
	"fmt"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"

	"github.com/webpilot-ai/webpilot/internal/dom"
)

// overlayContainerID marks the injected overlay root so removal is a single
// element delete.
const overlayContainerID = "__webpilot_overlay__"

// overlayJS paints one absolutely positioned labeled box per element. The
// container ignores pointer events so the page underneath stays interactive.
const overlayJS = `((boxes) => {
	const old = document.getElementById(%q);
	if (old) old.remove();
	const container = document.createElement("div");
	container.id = %q;
	container.style.cssText = "position:absolute;top:0;left:0;width:0;height:0;z-index:2147483647;pointer-events:none;";
	for (const entry of boxes) {
		const box = document.createElement("div");
		box.style.cssText = "position:absolute;border:2px solid red;box-sizing:border-box;" +
			"left:" + entry.box.x + "px;top:" + entry.box.y + "px;" +
			"width:" + entry.box.width + "px;height:" + entry.box.height + "px;";
		const label = document.createElement("span");
		label.textContent = entry.id;
		label.style.cssText = "position:absolute;top:-14px;left:0;background:red;color:white;" +
			"font:10px monospace;padding:0 2px;white-space:nowrap;";
		box.appendChild(label);
		container.appendChild(box);
	}
	document.body.appendChild(container);
})(%s)`

// overlayScript renders the injection script for a set of labeled boxes.
func overlayScript(boxes []dom.LabeledBox) string {
	payload, _ := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(boxes)
	return fmt.Sprintf(overlayJS, overlayContainerID, overlayContainerID, payload)
}

// drawOverlays injects labeled boxes for every mapped element.
func drawOverlays(boxes []dom.LabeledBox) chromedp.Action {
	return chromedp.Evaluate(overlayScript(boxes), nil)
}

// removeOverlays deletes the overlay container if present.
func removeOverlays() chromedp.Action {
	script := fmt.Sprintf(
		`(() => { const el = document.getElementById(%q); if (el) el.remove(); })()`,
		overlayContainerID)
	return chromedp.Evaluate(script, nil)
}
