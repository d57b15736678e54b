package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	// Chrome emits screenshots as PNG.
	_ "image/png"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/jordan/design-validator/internal/types"
)

// Options configures a single capture.
type Options struct {
	Viewport          types.Viewport
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
}

// screenshotQuality is passed to chromedp.FullScreenshot; 100 selects
// lossless PNG output.
const screenshotQuality = 100

// Capture renders url in an isolated headless browser context and
// returns the full-page screenshot plus the DOM text-node snapshot.
// Each call owns its own browser context: no cookies, cache or state is
// shared across runs, and teardown is guaranteed on every exit path.
func Capture(ctx context.Context, url string, opts Options) (*types.LiveSnapshot, error) {
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		return nil, fmt.Errorf("capture requires a positive viewport, got %dx%d", opts.Viewport.Width, opts.Viewport.Height)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.Flag("force-device-scale-factor", "1"),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// The navigation timeout bounds the whole interaction, settle delay
	// included. Exceeding it is a render timeout, never an unbounded block.
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, opts.NavigationTimeout)
	defer cancelTimeout()

	var (
		jsErrMu  sync.Mutex
		jsErrors []string
	)
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *cdpruntime.EventExceptionThrown:
			jsErrMu.Lock()
			jsErrors = append(jsErrors, exceptionText(e))
			jsErrMu.Unlock()
		case *cdpruntime.EventConsoleAPICalled:
			if e.Type != cdpruntime.APITypeError {
				return
			}
			jsErrMu.Lock()
			jsErrors = append(jsErrors, consoleText(e))
			jsErrMu.Unlock()
		}
	})

	var (
		shot      []byte
		html      string
		textNodes []types.LiveTextNode
	)

	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(opts.Viewport.Width), int64(opts.Viewport.Height)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Registered before navigation so the override lands ahead
			// of the page's first paint.
			_, err := page.AddScriptToEvaluateOnNewDocument(disableAnimationsScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(opts.SettleDelay),
		chromedp.FullScreenshot(&shot, screenshotQuality),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(collectTextNodesScript, &textNodes),
	)
	if err != nil {
		return nil, classifyError(url, opts.NavigationTimeout, err)
	}

	screenshot, _, err := image.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, &NavigationError{URL: url, Message: "failed to decode screenshot", Cause: err}
	}

	jsErrMu.Lock()
	collected := append([]string(nil), jsErrors...)
	jsErrMu.Unlock()

	return &types.LiveSnapshot{
		URL:          url,
		Viewport:     opts.Viewport,
		TextNodes:    textNodes,
		DOMNodeCount: countDOMNodes(html),
		JSErrors:     collected,
		Screenshot:   screenshot,
		HTML:         html,
	}, nil
}

// classifyError maps a chromedp failure onto the capture error taxonomy:
// deadline expiry means the page never settled, anything else is a
// navigation failure.
func classifyError(url string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &RenderTimeoutError{URL: url, Timeout: timeout.String(), Cause: err}
	}
	return &NavigationError{URL: url, Message: "page load failed", Cause: err}
}

// countDOMNodes derives the DOM node count statistic from the rendered
// document.
func countDOMNodes(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}
	return doc.Find("*").Length()
}

func exceptionText(e *cdpruntime.EventExceptionThrown) string {
	if e.ExceptionDetails == nil {
		return "uncaught exception"
	}
	d := e.ExceptionDetails
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	return d.Text
}

func consoleText(e *cdpruntime.EventConsoleAPICalled) string {
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		switch {
		case arg.Description != "":
			parts = append(parts, arg.Description)
		case arg.Value != nil:
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
		}
	}
	if len(parts) == 0 {
		return "console.error"
	}
	return strings.Join(parts, " ")
}
