package receipt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ChromiumRenderer prints the HTML receipt through a headless Chromium.
// Chromium embeds its own timestamps and ids, so two renders of the same
// Data differ byte-wise; the hash only ever covers the bytes of one render.
type ChromiumRenderer struct {
	bin    string
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

func NewChromiumRenderer(bin string, logger *slog.Logger) *ChromiumRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromiumRenderer{bin: bin, logger: logger}
}

func (r *ChromiumRenderer) Render(ctx context.Context, data Data) ([]byte, error) {
	html, err := RenderHTML(data)
	if err != nil {
		return nil, err
	}
	browser, err := r.ensureBrowser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open receipt page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("load receipt html: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait receipt html: %w", err)
	}
	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("print receipt pdf: %w", err)
	}
	out, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read receipt pdf: %w", err)
	}
	return out, nil
}

func (r *ChromiumRenderer) ensureBrowser(ctx context.Context) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		if _, err := r.browser.Version(); err == nil {
			return r.browser, nil
		}
		r.logger.Warn("stale chromium connection, relaunching")
		_ = r.browser.Close()
		r.browser = nil
	}

	l := launcher.New().Headless(true)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}
	r.browser = browser
	return browser, nil
}

// Close shuts the browser down if one was launched.
func (r *ChromiumRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
