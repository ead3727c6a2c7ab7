package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/refbundle/refbundle/internal/refs"
)

// A4 paper, inches. Backgrounds are included so the capture matches what a
// reader would see.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	marginInches      = 0.4
)

// renderOnce runs one complete attempt: launch an isolated browser process,
// navigate with tiered waits, check for blocking, and capture the page as a
// PDF. The browser is torn down on every exit path.
func (e *Engine) renderOnce(ctx context.Context, rawURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		// The hosting environment runs the browser without a usable sandbox.
		chromedp.NoSandbox,
		chromedp.WindowSize(e.cfg.WindowWidth, e.cfg.WindowHeight),
		chromedp.UserAgent(e.cfg.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(e.cfg.UserAgent),
		navigate(rawURL),
	); err != nil {
		return nil, classifyRenderError("navigation", err)
	}

	if err := e.waitSettled(tabCtx); err != nil {
		return nil, err
	}

	var (
		resolvedURL string
		content     string
	)
	if err := chromedp.Run(tabCtx,
		chromedp.Location(&resolvedURL),
		chromedp.OuterHTML("html", &content, chromedp.ByQuery),
	); err != nil {
		return nil, classifyRenderError("content readback", err)
	}

	if reason, hit := e.detector.Detect(content, resolvedURL); hit {
		return nil, &refs.BlockedError{Reason: reason}
	}

	var pdf []byte
	if err := chromedp.Run(tabCtx, printToPDF(&pdf)); err != nil {
		return nil, classifyCaptureError(err)
	}
	if len(pdf) == 0 {
		return nil, &refs.ProtocolError{Op: "pdf capture", Err: fmt.Errorf("empty capture for %s", rawURL)}
	}
	return pdf, nil
}

// waitSettled applies the three-tier waiting strategy, fastest first: DOM
// parsed, then the full load event, then proceed anyway after a settle delay.
// Only a timeout moves to the next tier; any other error aborts the attempt.
func (e *Engine) waitSettled(tabCtx context.Context) error {
	domCtx, cancel := context.WithTimeout(tabCtx, e.cfg.DOMWait)
	err := chromedp.Run(domCtx, chromedp.WaitReady("body", chromedp.ByQuery))
	cancel()
	if err == nil {
		return sleepCtx(tabCtx, 500*time.Millisecond)
	}
	if !isTimeout(err) || tabCtx.Err() != nil {
		return classifyRenderError("dom wait", err)
	}

	var complete bool
	loadCtx, cancel := context.WithTimeout(tabCtx, e.cfg.LoadWait)
	err = chromedp.Run(loadCtx, chromedp.Poll(
		"document.readyState === 'complete'",
		&complete,
		chromedp.WithPollingInterval(250*time.Millisecond),
	))
	cancel()
	if err == nil {
		return sleepCtx(tabCtx, 500*time.Millisecond)
	}
	if !isTimeout(err) || tabCtx.Err() != nil {
		return classifyRenderError("load wait", err)
	}

	// Both tiers timed out; capture whatever rendered.
	e.logger.Debug("page never settled, proceeding with best-effort capture")
	if err := sleepCtx(tabCtx, e.cfg.Settle); err != nil {
		return classifyRenderError("settle wait", err)
	}
	return nil
}

// navigate issues the navigation without waiting for the load event; the
// tiered waits in waitSettled own that.
func navigate(rawURL string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, _, err := page.Navigate(rawURL).Do(ctx)
		if err != nil {
			return fmt.Errorf("navigate %s: %w", rawURL, err)
		}
		if errText != "" {
			return fmt.Errorf("navigate %s: %s", rawURL, errText)
		}
		return nil
	})
}

func printToPDF(out *[]byte) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(paperWidthInches).
			WithPaperHeight(paperHeightInches).
			WithMarginTop(marginInches).
			WithMarginBottom(marginInches).
			WithMarginLeft(marginInches).
			WithMarginRight(marginInches).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("print to pdf: %w", err)
		}
		*out = data
		return nil
	})
}
