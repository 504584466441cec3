// Package cloudsync pushes the locally persisted pairing credentials to the
// cloud backend.
package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rustinsight/pairing-agent/internal/pairing"
	"github.com/rustinsight/pairing-agent/internal/session"
	"github.com/rustinsight/pairing-agent/pkg/metrics"
)

var (
	// ErrNotLoggedIn means there is no cloud session to sync with. Local
	// precondition, no network call is made.
	ErrNotLoggedIn = errors.New("Not logged in to cloud")
	// ErrSessionExpired means the session is present but stale and could not
	// be refreshed; the user must log out and back in.
	ErrSessionExpired = errors.New("Session expired. Please log out and log back in.")
)

// UpstreamError carries a non-success response from the sync endpoint.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }

// TokenSource yields an access token valid for at least the safety margin,
// or "" when none can be produced.
type TokenSource interface {
	ValidAccessToken(ctx context.Context) string
}

// Client pushes the servers/entities snapshot to the backend.
type Client struct {
	sessions session.Repository
	tokens   TokenSource
	pairs    pairing.Repository
	client   *http.Client
}

func NewClient(sessions session.Repository, tokens TokenSource, pairs pairing.Repository) *Client {
	return &Client{
		sessions: sessions,
		tokens:   tokens,
		pairs:    pairs,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type syncRequest struct {
	Credentials map[string]interface{}           `json:"credentials"`
	Servers     map[string]*pairing.PairedServer `json:"servers"`
	Entities    map[string]*pairing.PairedEntity `json:"entities"`
}

// Push uploads the full current collections. A stale-but-refreshable session
// is refreshed through the token source before giving up; only a session
// that cannot produce a valid token is reported as expired.
func (c *Client) Push(ctx context.Context) error {
	sess, err := c.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if sess == nil || sess.WebAppURL == "" || sess.AccessToken == "" {
		metrics.SyncPushes.WithLabelValues("not_logged_in").Inc()
		return ErrNotLoggedIn
	}

	token := c.tokens.ValidAccessToken(ctx)
	if token == "" {
		metrics.SyncPushes.WithLabelValues("expired").Inc()
		return ErrSessionExpired
	}

	servers, err := c.pairs.Servers(ctx)
	if err != nil {
		return err
	}
	entities, err := c.pairs.Entities(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(syncRequest{
		Credentials: map[string]interface{}{},
		Servers:     servers,
		Entities:    entities,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sess.WebAppURL+"/api/sync/credentials", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.SyncPushes.WithLabelValues("network_error").Inc()
		return fmt.Errorf("sync request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		metrics.SyncPushes.WithLabelValues("expired").Inc()
		return ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.SyncPushes.WithLabelValues("rejected").Inc()
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error == "" {
			errBody.Error = fmt.Sprintf("Sync failed: %s", resp.Status)
		}
		return &UpstreamError{Status: resp.StatusCode, Message: errBody.Error}
	}

	metrics.SyncPushes.WithLabelValues("ok").Inc()
	return nil
}
