package export

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Renderer turns report HTML into a binary document.
type Renderer interface {
	Render(ctx context.Context, html string, format Format) ([]byte, error)
}

// ChromeRenderer prints through a headless Chrome started per call.
type ChromeRenderer struct {
	timeout time.Duration
}

func NewChromeRenderer(timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeRenderer{timeout: timeout}
}

// Available reports whether a Chrome or Chromium binary is on PATH.
func (r *ChromeRenderer) Available() bool {
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func (r *ChromeRenderer) Render(ctx context.Context, html string, format Format) ([]byte, error) {
	if format != FormatPDF && format != FormatPNG {
		return nil, ErrUnsupportedFormat
	}
	if !r.Available() {
		return nil, fmt.Errorf("%w: chromium not installed", ErrRendererMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		// A4 at 96 dpi.
		chromedp.WindowSize(794, 1123),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	var out []byte
	actions := []chromedp.Action{
		chromedp.Navigate("data:text/html;charset=utf-8," + percentEncodeForDataURL(html)),
		chromedp.WaitReady("body"),
	}
	if format == FormatPDF {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			out, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}))
	} else {
		// Quality 100 yields a lossless PNG.
		actions = append(actions, chromedp.FullScreenshot(&out, 100))
	}

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("chrome %s rendering failed: %w", format, err)
	}
	return out, nil
}

func percentEncodeForDataURL(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
		if b.Len() >= 50 {
			break
		}
	}
	if b.Len() == 0 {
		return "reporte"
	}
	return b.String()
}
