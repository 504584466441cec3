// Package session owns the cloud session record: login through the web
// app's desktop callback, silent refresh against the auth backend, and the
// persisted access/refresh token pair.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rustinsight/pairing-agent/internal/surface"
	"github.com/rustinsight/pairing-agent/pkg/logger"
	"github.com/rustinsight/pairing-agent/pkg/metrics"
)

// ErrCancelled means the user closed the login surface before completing.
// Expected outcome, not a fault.
var ErrCancelled = errors.New("login cancelled")

const (
	// SafetyMargin is how long before actual expiry a token stops counting
	// as valid and a refresh is attempted.
	SafetyMargin = 300 // seconds

	// defaultExpirySeconds is assumed when the backend omits expiry info.
	defaultExpirySeconds = 3600

	googleOrigin = "https://accounts.google.com"
	callbackPath = "/auth/desktop-callback"
	refreshPath  = "/auth/v1/token?grant_type=refresh_token"
)

// loginWatcherScript runs inside the desktop callback page. The page only
// exposes its result as a global, so the watcher samples it and posts the
// payload through the host bridge once it appears.
const loginWatcherScript = `
(function() {
  if (window.__authWatch) return;
  window.__authWatch = setInterval(function() {
    var d = window.__DESKTOP_AUTH_DATA__;
    if (d && d.success) {
      clearInterval(window.__authWatch);
      try { window.__hostBridge(JSON.stringify(d)); } catch (e) {}
    }
  }, 500);
})();
`

// Manager performs login, logout and on-demand refresh over an injected
// repository and surface opener.
type Manager struct {
	repo   Repository
	opener surface.Opener
	client *http.Client

	webAppURL string
	authURL   string
	anonKey   string

	// Now can be overridden in tests.
	Now func() time.Time
}

func NewManager(repo Repository, opener surface.Opener, webAppURL, authURL, anonKey string) *Manager {
	return &Manager{
		repo:      repo,
		opener:    opener,
		client:    &http.Client{Timeout: 30 * time.Second},
		webAppURL: webAppURL,
		authURL:   authURL,
		anonKey:   anonKey,
		Now:       time.Now,
	}
}

type authPayload struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
}

// Login clears any cached identity, opens an isolated surface at the web
// app's desktop callback and waits for the page to produce the auth payload.
// There is no hard timeout; the user closing the surface cancels the login.
func (m *Manager) Login(ctx context.Context) (*CloudSession, *User, error) {
	// Required so a second login can switch accounts instead of silently
	// reusing the cached identity.
	origins := []string{googleOrigin, m.authURL, m.webAppURL}
	if err := m.opener.ClearSiteData(ctx, origins); err != nil {
		return nil, nil, fmt.Errorf("clear login state: %w", err)
	}

	s, err := m.opener.Open(ctx, surface.Options{Width: 500, Height: 700, Modal: true})
	if err != nil {
		return nil, nil, err
	}
	defer s.Close()

	if err := s.AddInitScript(ctx, loginWatcherScript); err != nil {
		return nil, nil, err
	}
	if err := s.Navigate(ctx, m.webAppURL+callbackPath); err != nil {
		return nil, nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-s.Closed():
			return nil, nil, ErrCancelled
		case payload := <-s.Messages():
			var p authPayload
			if err := json.Unmarshal([]byte(payload), &p); err != nil || !p.Success {
				logger.Debugf("login: ignoring malformed bridge payload")
				continue
			}
			expiresAt := p.ExpiresAt
			if expiresAt == 0 {
				expiresAt = m.Now().Unix() + defaultExpirySeconds
			}
			sess := &CloudSession{
				AccessToken:  p.AccessToken,
				RefreshToken: p.RefreshToken,
				ExpiresAt:    expiresAt,
				WebAppURL:    m.webAppURL,
			}
			if err := m.repo.Save(ctx, sess); err != nil {
				return nil, nil, fmt.Errorf("persist session: %w", err)
			}
			return sess, &User{ID: p.UserID, Email: p.Email, Name: p.Name}, nil
		}
	}
}

// Logout clears the persisted session unconditionally.
func (m *Manager) Logout(ctx context.Context) error {
	return m.repo.Clear(ctx)
}

// Session returns the persisted session, nil when logged out.
func (m *Manager) Session(ctx context.Context) (*CloudSession, error) {
	return m.repo.Load(ctx)
}

// ValidAccessToken returns an access token good for at least the safety
// margin, refreshing once when needed. It returns "" when no session exists,
// no refresh token is available, or the refresh fails for any reason;
// refresh failures are never retried here, re-authentication is the
// caller's move.
func (m *Manager) ValidAccessToken(ctx context.Context) string {
	sess, err := m.repo.Load(ctx)
	if err != nil {
		logger.Errorf("session: load failed: %v", err)
		return ""
	}
	if sess == nil {
		return ""
	}
	if sess.ExpiresAt-m.Now().Unix() > SafetyMargin {
		return sess.AccessToken
	}
	if sess.RefreshToken == "" {
		return ""
	}
	return m.refresh(ctx, sess)
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (m *Manager) refresh(ctx context.Context, sess *CloudSession) string {
	body, _ := json.Marshal(map[string]string{"refresh_token": sess.RefreshToken})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		metrics.SessionRefreshes.WithLabelValues("failed").Inc()
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	if m.anonKey != "" {
		req.Header.Set("apikey", m.anonKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		logger.Warnf("session: refresh request failed: %v", err)
		metrics.SessionRefreshes.WithLabelValues("failed").Inc()
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warnf("session: refresh rejected with status %s", resp.Status)
		metrics.SessionRefreshes.WithLabelValues("failed").Inc()
		return ""
	}

	var tr refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil || tr.AccessToken == "" {
		metrics.SessionRefreshes.WithLabelValues("failed").Inc()
		return ""
	}
	if tr.ExpiresIn == 0 {
		tr.ExpiresIn = defaultExpirySeconds
	}

	updated := &CloudSession{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    m.Now().Unix() + tr.ExpiresIn,
		WebAppURL:    sess.WebAppURL,
	}
	if err := m.repo.Save(ctx, updated); err != nil {
		logger.Errorf("session: persist refreshed session: %v", err)
		metrics.SessionRefreshes.WithLabelValues("failed").Inc()
		return ""
	}
	metrics.SessionRefreshes.WithLabelValues("ok").Inc()
	return tr.AccessToken
}
