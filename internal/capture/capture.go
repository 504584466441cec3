// Package capture extracts a short-lived registration token from the
// companion login page. The page is third-party and uncontrolled; the
// capturer owns a sandboxed surface for the duration of one attempt and
// resolves with the token, a cancellation, or a timeout.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/rustinsight/pairing-agent/internal/surface"
	"github.com/rustinsight/pairing-agent/pkg/logger"
	"github.com/rustinsight/pairing-agent/pkg/metrics"
)

var (
	// ErrCancelled means the user closed the surface before a token appeared.
	// Expected outcome, not a fault.
	ErrCancelled = errors.New("login cancelled")
	// ErrTimeout means the hard capture ceiling elapsed.
	ErrTimeout = errors.New("login timed out")
)

const (
	// DefaultTimeout is the hard ceiling on one capture attempt.
	DefaultTimeout = 300 * time.Second
	// DefaultGrace is how long the success notice stays visible before the
	// surface closes.
	DefaultGrace = 1500 * time.Millisecond
)

// Capturer runs token capture attempts against an Opener.
type Capturer struct {
	opener  surface.Opener
	timeout time.Duration
	grace   time.Duration
}

func New(opener surface.Opener, timeout, grace time.Duration) *Capturer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if grace < 0 {
		grace = DefaultGrace
	}
	return &Capturer{opener: opener, timeout: timeout, grace: grace}
}

// Capture opens a surface at loginURL and waits for the first bridge payload
// that yields a token. Exactly one surface is live per invocation and it is
// always closed before Capture returns, on every outcome path.
func (c *Capturer) Capture(ctx context.Context, loginURL string) (string, error) {
	s, err := c.opener.Open(ctx, surface.Options{Width: 500, Height: 700, Modal: true})
	if err != nil {
		metrics.TokenCaptures.WithLabelValues("error").Inc()
		return "", err
	}
	defer s.Close()

	if err := s.AddInitScript(ctx, postMessageShim); err != nil {
		metrics.TokenCaptures.WithLabelValues("error").Inc()
		return "", err
	}
	if err := s.Navigate(ctx, loginURL); err != nil {
		metrics.TokenCaptures.WithLabelValues("error").Inc()
		return "", err
	}

	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			metrics.TokenCaptures.WithLabelValues("error").Inc()
			return "", ctx.Err()
		case <-s.Closed():
			metrics.TokenCaptures.WithLabelValues("cancelled").Inc()
			return "", ErrCancelled
		case <-deadline.C:
			metrics.TokenCaptures.WithLabelValues("timeout").Inc()
			return "", ErrTimeout
		case payload := <-s.Messages():
			token, ok := ExtractToken(payload)
			if !ok {
				logger.Debugf("capture: unrecognized bridge payload (%d bytes)", len(payload))
				continue
			}
			c.showNotice(ctx, s)
			metrics.TokenCaptures.WithLabelValues("ok").Inc()
			return token, nil
		}
	}
}

// showNotice renders the success message and holds the surface open for the
// grace period. Failures here never affect the capture result.
func (c *Capturer) showNotice(ctx context.Context, s surface.Surface) {
	if err := s.Eval(ctx, successNotice); err != nil {
		return
	}
	select {
	case <-time.After(c.grace):
	case <-s.Closed():
	case <-ctx.Done():
	}
}
