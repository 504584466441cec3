package surface

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/rustinsight/pairing-agent/pkg/logger"
)

// Browser opens surfaces backed by a local Chrome/Chromium instance driven
// over the DevTools protocol. Every surface gets its own browser window but
// all share one profile directory, so cookies survive between surfaces the
// same way they would inside a single embedding shell.
type Browser struct {
	userDataDir string
	headless    bool
}

// NewBrowser returns a Browser storing profile state under dir.
// headless is only useful in tests and CI; interactive logins need a window.
func NewBrowser(dir string, headless bool) *Browser {
	return &Browser{userDataDir: dir, headless: headless}
}

func (b *Browser) allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	width, height := opts.Width, opts.Height
	if width == 0 {
		width = 500
	}
	if height == 0 {
		height = 700
	}
	out := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(b.userDataDir),
		chromedp.Flag("window-size", fmt.Sprintf("%d,%d", width, height)),
		// the loaded page must not gain any privileged capability
		chromedp.Flag("disable-extensions", true),
	}
	if b.headless {
		out = append(out, chromedp.Headless, chromedp.DisableGPU)
	}
	return out
}

// Open spawns a browser window and wires the host bridge into it.
func (b *Browser) Open(ctx context.Context, opts Options) (Surface, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	w := &window{
		ctx:      tabCtx,
		cancel:   func() { tabCancel(); allocCancel() },
		messages: make(chan string, 16),
		closed:   make(chan struct{}),
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventBindingCalled:
			if e.Name != BridgeFunc {
				return
			}
			select {
			case w.messages <- e.Payload:
			default:
				logger.Warnf("surface: dropping bridge payload, consumer too slow")
			}
		case *inspector.EventDetached:
			w.markClosed()
		}
	})

	// Start the browser and expose the bridge before any page loads.
	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.AddBinding(BridgeFunc).Do(ctx)
	})); err != nil {
		w.cancel()
		w.markClosed()
		return nil, fmt.Errorf("open surface: %w", err)
	}

	go func() {
		<-tabCtx.Done()
		w.markClosed()
	}()

	return w, nil
}

// ClearSiteData wipes cookies and storage for each origin using a short-lived
// headless instance over the shared profile.
func (b *Browser) ClearSiteData(ctx context.Context, origins []string) error {
	opts := append(b.allocatorOptions(Options{}), chromedp.Headless, chromedp.DisableGPU)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	runCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, origin := range origins {
			if err := storage.ClearDataForOrigin(origin, "all").Do(ctx); err != nil {
				return fmt.Errorf("clear site data for %s: %w", origin, err)
			}
		}
		return nil
	}))
}

type window struct {
	ctx       context.Context
	cancel    context.CancelFunc
	messages  chan string
	closed    chan struct{}
	closeOnce sync.Once
}

func (w *window) markClosed() {
	w.closeOnce.Do(func() { close(w.closed) })
}

func (w *window) Navigate(ctx context.Context, url string) error {
	return chromedp.Run(w.ctx, chromedp.Navigate(url))
}

func (w *window) AddInitScript(ctx context.Context, script string) error {
	return chromedp.Run(w.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	}))
}

func (w *window) Eval(ctx context.Context, script string) error {
	return chromedp.Run(w.ctx, chromedp.Evaluate(script, nil))
}

func (w *window) Messages() <-chan string { return w.messages }

func (w *window) Closed() <-chan struct{} { return w.closed }

func (w *window) Close() error {
	w.cancel()
	w.markClosed()
	return nil
}
