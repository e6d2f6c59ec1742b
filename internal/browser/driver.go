// Package browser implements the chromedp-backed driver the role engine
// interacts with. One Driver owns one browser tab for the lifetime of a task.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/webpilot-ai/webpilot/internal/agent"
	"github.com/webpilot-ai/webpilot/internal/config"
	"github.com/webpilot-ai/webpilot/internal/dom"
)

// Driver drives a single Chrome tab through CDP.
type Driver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	// tabCtx is the chromedp context all commands run against. Per-call
	// contexts only contribute their deadline; cancelling tabCtx kills the
	// whole session.
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	mu       sync.Mutex
	isClosed bool
}

var _ agent.Driver = (*Driver)(nil)

// New launches a browser and opens a fresh tab.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	d := &Driver{
		cfg:         cfg,
		logger:      logger.Named("browser"),
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	// Force target creation now so startup failures surface here, not on
	// the first navigation mid-task. Pinning device metrics keeps element
	// geometry stable across pages, which the reference overlays rely on.
	if err := chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(cfg.WindowWidth), int64(cfg.WindowHeight), 1, false),
	); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	d.logger.Info("Browser session started.",
		zap.Bool("headless", cfg.Headless),
		zap.Int("width", cfg.WindowWidth),
		zap.Int("height", cfg.WindowHeight))
	return d, nil
}

// run executes chromedp actions on the tab, honoring the caller's deadline
// and cancellation.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	if d.isClosed {
		d.mu.Unlock()
		return fmt.Errorf("browser session is closed")
	}
	d.mu.Unlock()

	runCtx := d.tabCtx
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate implements agent.Driver.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavigationTimeout)
	defer cancel()

	if err := d.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	d.logger.Debug("Navigated.", zap.String("url", url))
	return nil
}

// Click implements agent.Driver. Locators are XPath, so BySearch.
func (d *Driver) Click(ctx context.Context, loc dom.Locator) error {
	return d.run(ctx, chromedp.Click(loc.XPath, chromedp.BySearch))
}

// Fill implements agent.Driver. Clears the current value first.
func (d *Driver) Fill(ctx context.Context, loc dom.Locator, value string) error {
	return d.run(ctx,
		chromedp.Clear(loc.XPath, chromedp.BySearch),
		chromedp.SendKeys(loc.XPath, value, chromedp.BySearch),
	)
}

// Type implements agent.Driver. Appends keystrokes without clearing.
func (d *Driver) Type(ctx context.Context, loc dom.Locator, text string) error {
	return d.run(ctx, chromedp.SendKeys(loc.XPath, text, chromedp.BySearch))
}

// UploadFiles implements agent.Driver.
func (d *Driver) UploadFiles(ctx context.Context, loc dom.Locator, paths []string) error {
	return d.run(ctx, chromedp.SetUploadFiles(loc.XPath, paths, chromedp.BySearch))
}

// Wait implements agent.Driver. Purely time based; the page needs no
// involvement.
func (d *Driver) Wait(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Screenshot implements agent.Driver. When overlays are given they are
// painted into the page for the capture and removed afterwards; removal
// failures are logged, not returned, since the next navigation clears them
// anyway.
func (d *Driver) Screenshot(ctx context.Context, overlays []dom.LabeledBox) ([]byte, error) {
	if len(overlays) > 0 {
		if err := d.run(ctx, drawOverlays(overlays)); err != nil {
			return nil, fmt.Errorf("failed to draw overlays: %w", err)
		}
		defer func() {
			if err := d.run(ctx, removeOverlays()); err != nil {
				d.logger.Warn("Failed to remove screenshot overlays.", zap.Error(err))
			}
		}()
	}

	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return buf, nil
}

// Close implements agent.Driver.
func (d *Driver) Close(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isClosed {
		return nil
	}
	d.isClosed = true
	d.shutdown()
	d.logger.Info("Browser session closed.")
	return nil
}

func (d *Driver) shutdown() {
	d.cancelTab()
	d.cancelAlloc()
}
