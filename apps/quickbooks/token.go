package quickbooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/finledger/qbo-connector/pkg/prometheus"
)

const (
	// accessTokenTTL is how long an access token is valid after it
	// was obtained.
	accessTokenTTL = 3600 * time.Second

	// refreshTokenTTL is the rolling validity window of a refresh
	// token. Every successful refresh restarts it.
	refreshTokenTTL = 100 * 24 * time.Hour

	tokenRequestTimeout = 30 * time.Second
)

// TokenPair is the OAuth2 token state for one connected company.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	RealmID      string    `json:"realm_id"`
	ObtainedAt   time.Time `json:"obtained_at"`
}

// AccessExpired reports whether the access token is past its 3600s
// lifetime at the given instant.
func (p TokenPair) AccessExpired(now time.Time) bool {
	return now.After(p.ObtainedAt.Add(accessTokenTTL))
}

// RefreshExpired reports whether the rolling 100-day refresh window has
// elapsed without a successful refresh. Once true, the only way back is
// the browser consent flow.
func (p TokenPair) RefreshExpired(now time.Time) bool {
	return now.After(p.ObtainedAt.Add(refreshTokenTTL))
}

// tokenResponse is the wire shape of the Intuit bearer token endpoint.
type tokenResponse struct {
	AccessToken          string `json:"access_token"`
	RefreshToken         string `json:"refresh_token"`
	ExpiresIn            int    `json:"expires_in"`
	XRefreshTokenExpires int    `json:"x_refresh_token_expires_in"`
	TokenType            string `json:"token_type"`
}

// TokenManager owns the TokenPair for the connected company. All reads
// go through the mutex so concurrent resource calls always observe a
// whole pair, never one mid-rotation. Concurrent refreshes collapse
// into a single upstream call via singleflight.
type TokenManager struct {
	cfg Config

	// TokenURL and RevokeURL default to the Intuit endpoints and are
	// overridable in tests.
	TokenURL  string
	RevokeURL string

	HTTPClient *http.Client

	now func() time.Time

	mu      sync.RWMutex
	pair    TokenPair
	hasPair bool

	refreshGroup singleflight.Group
}

// NewTokenManager creates a manager in the unauthenticated state.
func NewTokenManager(cfg Config) *TokenManager {
	return &TokenManager{
		cfg:        cfg,
		TokenURL:   tokenEndpoint,
		RevokeURL:  revokeEndpoint,
		HTTPClient: &http.Client{Timeout: tokenRequestTimeout},
		now:        time.Now,
	}
}

// AuthCodeURL returns the browser consent URL for the given state.
func (m *TokenManager) AuthCodeURL(state string) string {
	return m.cfg.oauthConfig().AuthCodeURL(state)
}

// Current returns the stored pair and whether one exists.
func (m *TokenManager) Current() (TokenPair, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair, m.hasPair
}

// Set replaces the stored pair, e.g. when resuming from persistence.
func (m *TokenManager) Set(pair TokenPair) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = pair
	m.hasPair = true
}

// Clear drops the stored pair, returning to the unauthenticated state.
func (m *TokenManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = TokenPair{}
	m.hasPair = false
}

// Exchange swaps an authorization code from the OAuth callback for a
// TokenPair and stores it. A non-2xx response surfaces as *AuthError.
func (m *TokenManager) Exchange(ctx context.Context, code, realmID string) (TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", m.cfg.RedirectURI)

	resp, err := m.requestToken(ctx, data)
	if err != nil {
		prometheus.RecordTokenExchange("failure")
		return TokenPair{}, err
	}

	pair := TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		RealmID:      realmID,
		ObtainedAt:   m.now(),
	}
	m.Set(pair)

	prometheus.RecordTokenExchange("success")
	return pair, nil
}

// Refresh exchanges the stored refresh token for a fresh pair. Both
// tokens typically rotate. With no refresh token stored it fails with
// *StateError before any network call; a remote rejection (expired or
// revoked refresh token) surfaces as *AuthError, meaning the consent
// flow must be repeated.
func (m *TokenManager) Refresh(ctx context.Context) (TokenPair, error) {
	m.mu.RLock()
	current := m.pair
	hasPair := m.hasPair
	m.mu.RUnlock()

	if !hasPair || current.RefreshToken == "" {
		prometheus.RecordTokenRefreshFailure("no_refresh_token")
		return TokenPair{}, &StateError{Reason: "no refresh token available"}
	}

	if current.RefreshExpired(m.now()) {
		prometheus.RecordTokenRefreshFailure("refresh_window_elapsed")
		return TokenPair{}, &AuthError{Body: "refresh token window elapsed, re-authorization required"}
	}

	// Collapse concurrent refreshes into one upstream exchange.
	result, err, _ := m.refreshGroup.Do(current.RealmID, func() (interface{}, error) {
		m.mu.RLock()
		refreshToken := m.pair.RefreshToken
		realmID := m.pair.RealmID
		m.mu.RUnlock()

		data := url.Values{}
		data.Set("grant_type", "refresh_token")
		data.Set("refresh_token", refreshToken)

		resp, err := m.requestToken(ctx, data)
		if err != nil {
			return nil, err
		}

		pair := TokenPair{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			RealmID:      realmID,
			ObtainedAt:   m.now(),
		}
		if pair.RefreshToken == "" {
			// Some refreshes do not rotate the refresh token.
			pair.RefreshToken = refreshToken
		}
		m.Set(pair)
		return pair, nil
	})
	if err != nil {
		prometheus.RecordTokenRefresh("failure")
		return TokenPair{}, err
	}

	prometheus.RecordTokenRefresh("success")
	return result.(TokenPair), nil
}

// Revoke invalidates the stored refresh token upstream and clears the
// local pair.
func (m *TokenManager) Revoke(ctx context.Context) error {
	m.mu.RLock()
	refreshToken := m.pair.RefreshToken
	hasPair := m.hasPair
	m.mu.RUnlock()

	if !hasPair || refreshToken == "" {
		return &StateError{Reason: "no refresh token available"}
	}

	payload, err := json.Marshal(map[string]string{"token": refreshToken})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.RevokeURL, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.SetBasicAuth(m.cfg.ClientID, m.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	m.Clear()
	return nil
}

// requestToken performs one POST against the bearer token endpoint.
func (m *TokenManager) requestToken(ctx context.Context, data url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return tokenResponse{}, err
	}
	req.SetBasicAuth(m.cfg.ClientID, m.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return tokenResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenResponse{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tokenResponse{}, &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return tokenResponse{}, err
	}

	return parsed, nil
}
