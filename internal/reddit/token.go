package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	// Tokens are treated as expired 60 seconds before their actual
	// expiry so an in-flight request never rides a dying token
	expiryMargin = 60 * time.Second

	// After a failed acquisition no new attempt is made for this long.
	// Reddit blocks clients that hammer the token endpoint
	acquireCooldown = 300 * time.Second

	tokenTimeout = 15 * time.Second
)

var (
	// ErrTokenCooldown is returned while acquisition is suspended after a failure
	ErrTokenCooldown = errors.New("token acquisition cooling down after failure")
	// ErrNoToken is returned when no usable token could be obtained
	ErrNoToken = errors.New("no usable access token")
)

// CachedToken is the persisted token record
type CachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenCache persists tokens across restarts, keyed by client ID
type TokenCache interface {
	LoadToken(ctx context.Context, clientID string) (*CachedToken, error)
	SaveToken(ctx context.Context, clientID string, token *CachedToken) error
}

// TokenManager owns the OAuth2 client-credentials token lifecycle:
// cached load at startup, acquisition, expiry tracking, and a cooldown
// window after failed acquisition
type TokenManager struct {
	clientID     string
	clientSecret string
	userAgent    string
	tokenURL     string
	cache        TokenCache
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	failedAt  time.Time
}

// NewTokenManager creates a token manager and loads any cached token.
// cache may be nil, in which case tokens live only in memory
func NewTokenManager(clientID, clientSecret, userAgent string, cache TokenCache, logger *slog.Logger) *TokenManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &TokenManager{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		tokenURL:     defaultTokenURL,
		cache:        cache,
		httpClient:   &http.Client{Timeout: tokenTimeout},
		logger:       logger,
		now:          time.Now,
	}
	m.loadCached()
	return m
}

// loadCached restores a persisted token if it is not within the expiry margin
func (m *TokenManager) loadCached() {
	if m.cache == nil {
		return
	}
	tok, err := m.cache.LoadToken(context.Background(), m.clientID)
	if err != nil {
		m.logger.Warn("failed to load cached token", "error", err)
		return
	}
	if tok == nil {
		return
	}
	if m.now().Before(tok.ExpiresAt.Add(-expiryMargin)) {
		m.mu.Lock()
		m.token = tok.AccessToken
		m.expiresAt = tok.ExpiresAt
		m.mu.Unlock()
		m.logger.Info("loaded access token from cache", "expires_at", tok.ExpiresAt)
	} else {
		m.logger.Info("cached access token already expired")
	}
}

// Token returns a usable access token, acquiring a new one if needed
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.usableLocked() {
		tok := m.token
		m.mu.Unlock()
		return tok, nil
	}
	m.mu.Unlock()

	if err := m.acquire(ctx); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

// Invalidate drops the held token so the next request acquires a fresh one.
// Used after the API rejects a token the manager still believed valid
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.token = ""
	m.expiresAt = time.Time{}
	m.mu.Unlock()
}

// IsAvailable reports whether a request is worth attempting: either a
// usable token is held, or acquisition is not in its cooldown window.
// Never returns an error; acquisition failures surface only as false
func (m *TokenManager) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usableLocked() {
		return true
	}
	return !m.inCooldownLocked()
}

func (m *TokenManager) usableLocked() bool {
	return m.token != "" && m.now().Before(m.expiresAt.Add(-expiryMargin))
}

func (m *TokenManager) inCooldownLocked() bool {
	return !m.failedAt.IsZero() && m.now().Sub(m.failedAt) < acquireCooldown
}

// acquire performs the client-credentials exchange. On success the token
// is stored and persisted and any failure marker is cleared; on failure
// the failure time is recorded, starting the cooldown window
func (m *TokenManager) acquire(ctx context.Context) error {
	m.mu.Lock()
	if m.inCooldownLocked() {
		remaining := acquireCooldown - m.now().Sub(m.failedAt)
		m.mu.Unlock()
		m.logger.Warn("token acquisition in cooldown", "remaining", remaining.Round(time.Second))
		return ErrTokenCooldown
	}
	m.mu.Unlock()

	m.logger.Info("acquiring new access token")

	if m.clientID == "" || m.clientSecret == "" {
		m.recordFailure()
		return errors.New("reddit API credentials not configured")
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		m.recordFailure()
		return fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(m.clientID, m.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.recordFailure()
		return fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		m.recordFailure()
		return fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		m.recordFailure()
		return fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		m.recordFailure()
		return errors.New("token response missing access_token")
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = 3600
	}

	expiresAt := m.now().Add(time.Duration(tr.ExpiresIn) * time.Second)

	m.mu.Lock()
	m.token = tr.AccessToken
	m.expiresAt = expiresAt
	m.failedAt = time.Time{}
	m.mu.Unlock()

	if m.cache != nil {
		cached := &CachedToken{
			AccessToken: tr.AccessToken,
			ExpiresIn:   tr.ExpiresIn,
			ExpiresAt:   expiresAt,
		}
		if err := m.cache.SaveToken(ctx, m.clientID, cached); err != nil {
			m.logger.Warn("failed to persist token", "error", err)
		}
	}

	m.logger.Info("acquired new access token", "expires_at", expiresAt)
	return nil
}

func (m *TokenManager) recordFailure() {
	m.mu.Lock()
	m.token = ""
	m.failedAt = m.now()
	m.mu.Unlock()
}
