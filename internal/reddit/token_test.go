package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryTokenCache is an in-memory TokenCache for tests
type memoryTokenCache struct {
	mu     sync.Mutex
	tokens map[string]*CachedToken
}

func newMemoryTokenCache() *memoryTokenCache {
	return &memoryTokenCache{tokens: map[string]*CachedToken{}}
}

func (c *memoryTokenCache) LoadToken(_ context.Context, clientID string) (*CachedToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[clientID], nil
}

func (c *memoryTokenCache) SaveToken(_ context.Context, clientID string, tok *CachedToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[clientID] = tok
	return nil
}

func newTokenServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_in":   3600,
		})
	}))
}

func newTestManager(t *testing.T, tokenURL string, cache TokenCache) *TokenManager {
	t.Helper()
	m := NewTokenManager("id", "secret", "test-agent", cache, testLogger())
	if tokenURL != "" {
		m.tokenURL = tokenURL
	}
	return m
}

func TestTokenAcquire(t *testing.T) {
	hits := 0
	srv := newTokenServer(t, &hits)
	defer srv.Close()

	m := newTestManager(t, srv.URL, nil)

	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)
	assert.Equal(t, 1, hits)

	// The held token is reused without another exchange
	tok, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)
	assert.Equal(t, 1, hits)
}

func TestTokenExpiryMargin(t *testing.T) {
	srv := newTokenServer(t, nil)
	defer srv.Close()

	m := newTestManager(t, srv.URL, nil)
	base := time.Now()
	m.now = func() time.Time { return base }

	_, err := m.Token(context.Background())
	require.NoError(t, err)

	// 61 seconds before expiry the token is still usable
	m.now = func() time.Time { return base.Add(3600*time.Second - expiryMargin - time.Second) }
	m.mu.Lock()
	usable := m.usableLocked()
	m.mu.Unlock()
	assert.True(t, usable)

	// Inside the 60-second margin the token counts as expired
	m.now = func() time.Time { return base.Add(3600*time.Second - expiryMargin) }
	m.mu.Lock()
	usable = m.usableLocked()
	m.mu.Unlock()
	assert.False(t, usable)
}

func TestTokenCooldownAfterFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := newTestManager(t, srv.URL, nil)
	base := time.Now()
	m.now = func() time.Time { return base }

	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.False(t, m.IsAvailable())

	// Within the cooldown window no new exchange is attempted
	_, err = m.Token(context.Background())
	assert.ErrorIs(t, err, ErrTokenCooldown)

	// Once the cooldown elapses, acquisition is allowed again
	m.now = func() time.Time { return base.Add(acquireCooldown) }
	assert.True(t, m.IsAvailable())
}

func TestTokenIsAvailableNeverErrors(t *testing.T) {
	// No server at all: availability must still answer, not fail
	m := newTestManager(t, "http://127.0.0.1:0", nil)
	assert.True(t, m.IsAvailable()) // no failure recorded yet

	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.False(t, m.IsAvailable())
}

func TestTokenInvalidate(t *testing.T) {
	hits := 0
	srv := newTokenServer(t, &hits)
	defer srv.Close()

	m := newTestManager(t, srv.URL, nil)

	_, err := m.Token(context.Background())
	require.NoError(t, err)
	m.Invalidate()

	_, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestTokenCachePersistence(t *testing.T) {
	srv := newTokenServer(t, nil)
	defer srv.Close()

	cache := newMemoryTokenCache()
	m := newTestManager(t, srv.URL, cache)

	_, err := m.Token(context.Background())
	require.NoError(t, err)

	saved, err := cache.LoadToken(context.Background(), "id")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "tok-123", saved.AccessToken)
	assert.Equal(t, 3600, saved.ExpiresIn)

	// A fresh manager restores the token without hitting the endpoint
	hits := 0
	deadSrv := newTokenServer(t, &hits)
	deadSrv.Close()

	m2 := newTestManager(t, deadSrv.URL, cache)
	tok, err := m2.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)
	assert.Equal(t, 0, hits)
}

func TestTokenCacheSkipsExpired(t *testing.T) {
	cache := newMemoryTokenCache()
	cache.SaveToken(context.Background(), "id", &CachedToken{
		AccessToken: "stale",
		ExpiresIn:   3600,
		ExpiresAt:   time.Now().Add(-time.Hour),
	})

	srv := newTokenServer(t, nil)
	defer srv.Close()

	m := newTestManager(t, srv.URL, cache)
	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)
}

func TestTokenMissingCredentials(t *testing.T) {
	m := NewTokenManager("", "", "test-agent", nil, testLogger())
	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.False(t, m.IsAvailable())
}
