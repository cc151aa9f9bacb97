package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
)

// browserRender is tier 3: a headless browser navigates the page, waits for
// the network to settle, and the rendered DOM is run back through the
// readability parser. The browser context is always released, including on
// timeout and error paths.
func (e *Extractor) browserRender(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.browserTimeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(e.userAgent),
			chromedp.Flag("disable-gpu", true),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		// networkidle is approximated by a settle delay after load
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser navigation failed: %w", err)
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("readability parse of rendered page failed: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
