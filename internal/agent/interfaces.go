package agent

import (
	"context"
	"time"

	"github.com/webpilot-ai/webpilot/internal/dom"
)

// Driver abstracts the live browser. The engine only ever addresses elements
// through locators resolved from the current reference map, never by raw
// coordinates or driver-native handles.
type Driver interface {
	// Navigate loads a URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// Snapshot captures the current page as a raw element tree with computed
	// styles and layout geometry attached. An empty page yields a snapshot
	// with a nil root, not an error.
	Snapshot(ctx context.Context) (*dom.Snapshot, error)

	// Screenshot captures the viewport as PNG bytes. When overlays are
	// provided, labeled boxes are drawn over the page for the capture and
	// removed afterwards.
	Screenshot(ctx context.Context, overlays []dom.LabeledBox) ([]byte, error)

	// Click dispatches a click to the located element.
	Click(ctx context.Context, loc dom.Locator) error

	// Fill clears the located input and sets its value.
	Fill(ctx context.Context, loc dom.Locator, value string) error

	// Type sends keystrokes to the located element without clearing it.
	Type(ctx context.Context, loc dom.Locator, text string) error

	// UploadFiles attaches local files to the located file input.
	UploadFiles(ctx context.Context, loc dom.Locator, paths []string) error

	// Wait blocks for the duration or until the context is done.
	Wait(ctx context.Context, d time.Duration) error

	// Close releases the browser session.
	Close(ctx context.Context) error
}
