// Package chromepdf renders HTML documents to PDF through a headless
// Chrome instance driven over the DevTools protocol.
package chromepdf

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A4 page size and report margins, in inches as the DevTools API expects.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
	marginTBIn    = 0.787 // 20mm
	marginLRIn    = 0.591 // 15mm
)

// Config controls the browser invocation.
type Config struct {
	// ExecPath overrides the Chrome binary location. Empty uses the
	// allocator's default lookup.
	ExecPath string
	// Timeout bounds a single render, browser startup included.
	Timeout time.Duration
}

// Engine renders documents by launching a fresh headless browser per call.
// Renders are infrequent (one per PDF-producing job) so the startup cost is
// acceptable and no browser state leaks between jobs.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates a PDF rendering engine.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Engine{cfg: cfg, logger: logger}
}

// RenderPDF loads the document into a headless browser and exports it as A4
// PDF bytes with the report's fixed margins.
func (e *Engine) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if e.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(e.cfg.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(marginTBIn).
				WithMarginBottom(marginTBIn).
				WithMarginLeft(marginLRIn).
				WithMarginRight(marginLRIn).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("print to pdf: %w", err)
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	e.logger.Debug("rendered pdf",
		"bytes", len(pdf),
		"duration_ms", time.Since(start).Milliseconds())
	return pdf, nil
}
