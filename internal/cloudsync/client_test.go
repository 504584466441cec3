package cloudsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustinsight/pairing-agent/internal/pairing"
	"github.com/rustinsight/pairing-agent/internal/session"
)

type staticTokens struct{ token string }

func (s staticTokens) ValidAccessToken(ctx context.Context) string { return s.token }

func seedPairs(t *testing.T) pairing.Repository {
	t.Helper()
	repo := pairing.NewMemoryRepository()
	require.NoError(t, repo.UpsertServer(context.Background(), &pairing.PairedServer{
		Name: "Alpha", IP: "192.0.2.1", Port: 28015, PlayerID: "p1", PlayerToken: "t1", PairedAt: 1,
	}))
	require.NoError(t, repo.UpsertEntity(context.Background(), &pairing.PairedEntity{
		EntityID: 42, EntityType: "switch", EntityName: "Device #42", ServerID: "192.0.2.1:28015", PairedAt: 2,
	}))
	return repo
}

func seedSession(t *testing.T, url string) session.Repository {
	t.Helper()
	repo := session.NewMemoryRepository()
	require.NoError(t, repo.Save(context.Background(), &session.CloudSession{
		AccessToken:  "A1",
		RefreshToken: "R1",
		ExpiresAt:    1900000000,
		WebAppURL:    url,
	}))
	return repo
}

func TestPush_NoSession(t *testing.T) {
	called := false
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer backend.Close()

	c := NewClient(session.NewMemoryRepository(), staticTokens{token: "A1"}, seedPairs(t))
	err := c.Push(context.Background())
	require.ErrorIs(t, err, ErrNotLoggedIn)
	require.Equal(t, "Not logged in to cloud", err.Error())
	require.False(t, called, "no network call may be issued without a session")
}

func TestPush_Success(t *testing.T) {
	var gotAuth string
	var gotBody syncRequest
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/sync/credentials", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	c := NewClient(seedSession(t, backend.URL), staticTokens{token: "A-fresh"}, seedPairs(t))
	require.NoError(t, c.Push(context.Background()))

	require.Equal(t, "Bearer A-fresh", gotAuth)
	require.NotNil(t, gotBody.Credentials)
	require.Len(t, gotBody.Servers, 1)
	require.Len(t, gotBody.Entities, 1)
	require.Equal(t, "Alpha", gotBody.Servers["192.0.2.1:28015"].Name)
}

func TestPush_StaleSessionWithoutRefreshableToken(t *testing.T) {
	called := false
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer backend.Close()

	c := NewClient(seedSession(t, backend.URL), staticTokens{token: ""}, seedPairs(t))
	err := c.Push(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Equal(t, "Session expired. Please log out and log back in.", err.Error())
	require.False(t, called)
}

func TestPush_Unauthorized(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer backend.Close()

	c := NewClient(seedSession(t, backend.URL), staticTokens{token: "A1"}, seedPairs(t))
	require.ErrorIs(t, c.Push(context.Background()), ErrSessionExpired)
}

func TestPush_UpstreamRejectedWithMessage(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "payload too large"})
	}))
	defer backend.Close()

	c := NewClient(seedSession(t, backend.URL), staticTokens{token: "A1"}, seedPairs(t))
	err := c.Push(context.Background())

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusBadRequest, upstream.Status)
	require.Equal(t, "payload too large", upstream.Message)
}

func TestPush_UpstreamRejectedStatusFallback(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	c := NewClient(seedSession(t, backend.URL), staticTokens{token: "A1"}, seedPairs(t))
	err := c.Push(context.Background())

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Contains(t, upstream.Message, "Sync failed")
}

func TestPush_NetworkFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := backend.URL
	backend.Close()

	c := NewClient(seedSession(t, url), staticTokens{token: "A1"}, seedPairs(t))
	err := c.Push(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSessionExpired)
	require.NotErrorIs(t, err, ErrNotLoggedIn)
}
