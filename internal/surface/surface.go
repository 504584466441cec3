// Package surface abstracts the isolated browser views the agent opens for
// login and token capture. Pages never get privileged scripting capability;
// the only channel back to the host is the message bridge installed by the
// host itself.
package surface

import "context"

// BridgeFunc is the name of the host-call function exposed to controlled
// scripts. A controlled script delivers a payload to the host by calling
// window.__hostBridge(string).
const BridgeFunc = "__hostBridge"

// Options describes the window hosting a surface.
type Options struct {
	Width  int
	Height int
	Modal  bool
}

// Surface is a single isolated browser view.
//
// Messages carries payloads posted through the host bridge by injected
// scripts. Closed is signalled exactly once when the view goes away for any
// reason, including the user closing it.
type Surface interface {
	// Navigate points the surface at url and waits for the load to begin.
	Navigate(ctx context.Context, url string) error
	// AddInitScript installs a script evaluated on every new document,
	// before the page's own scripts run.
	AddInitScript(ctx context.Context, script string) error
	// Eval runs a script in the current document, discarding its result.
	// Used for cosmetic in-page notices only.
	Eval(ctx context.Context, script string) error
	Messages() <-chan string
	Closed() <-chan struct{}
	Close() error
}

// Opener creates surfaces and manages browser-wide state shared by them.
type Opener interface {
	Open(ctx context.Context, opts Options) (Surface, error)
	// ClearSiteData wipes cookies and storage for the given origins, so a
	// fresh login can switch accounts instead of reusing a cached identity.
	ClearSiteData(ctx context.Context, origins []string) error
}
