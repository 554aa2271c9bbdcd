// ABOUTME: Bearer-token acquisition and refresh against the Starfish /auth/ endpoint.
// ABOUTME: Tolerates the several token response shapes older backends emit.

package starfish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dpreuss/sf-mcp/internal/metrics"
)

// DefaultTokenTimeout is the token lifetime requested from the backend
// when none is configured (16 hours).
const DefaultTokenTimeout = 16 * time.Hour

// refreshBuffer refreshes the token this long before its recorded expiry so
// an in-flight request never straddles the boundary.
const refreshBuffer = 5 * time.Minute

// tokenPrefix appears in plain-text token responses from old backends.
const tokenPrefix = "sf-api-v1:"

// TokenManager holds the current bearer token and refreshes it when it is
// missing or close to expiry. Safe for concurrent use; a refresh blocks
// other requests rather than racing them.
type TokenManager struct {
	endpoint     string
	username     string
	password     string
	tokenTimeout time.Duration
	httpClient   *http.Client
	logger       *slog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func newTokenManager(endpoint, username, password string, tokenTimeout time.Duration, httpClient *http.Client, logger *slog.Logger) *TokenManager {
	if tokenTimeout <= 0 {
		tokenTimeout = DefaultTokenTimeout
	}
	return &TokenManager{
		endpoint:     endpoint,
		username:     username,
		password:     password,
		tokenTimeout: tokenTimeout,
		httpClient:   httpClient,
		logger:       logger,
		now:          time.Now,
	}
}

// Token returns a valid bearer token, refreshing first if needed.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.needsRefresh() {
		return m.token, nil
	}

	if err := m.refresh(ctx); err != nil {
		return "", err
	}
	return m.token, nil
}

// needsRefresh must be called with mu held.
func (m *TokenManager) needsRefresh() bool {
	if m.token == "" || m.expiresAt.IsZero() {
		return true
	}
	return !m.now().Before(m.expiresAt.Add(-refreshBuffer))
}

// authRequest is the POST /auth/ body.
type authRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	TokenTimeoutSecs int    `json:"token_timeout_secs"`
	TokenDescription string `json:"token_description"`
	AutoGenerated    bool   `json:"auto_generated"`
}

// refresh acquires a new token. Must be called with mu held.
func (m *TokenManager) refresh(ctx context.Context) error {
	m.logger.Info("refreshing bearer token",
		"username", m.username,
		"token_timeout", m.tokenTimeout,
	)

	body, err := json.Marshal(authRequest{
		Username:         m.username,
		Password:         m.password,
		TokenTimeoutSecs: int(m.tokenTimeout.Seconds()),
		TokenDescription: "Starfish MCP Server",
		AutoGenerated:    true,
	})
	if err != nil {
		return fmt.Errorf("encoding auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/auth/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &Error{
			Code:     CodeAuthenticationFailed,
			Message:  "failed to connect for authentication: " + err.Error(),
			Endpoint: "/auth/",
			wrapped:  err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Code:     CodeAuthenticationFailed,
			Message:  "reading authentication response: " + err.Error(),
			Endpoint: "/auth/",
			wrapped:  err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return &Error{
			Code:       CodeAuthenticationFailed,
			Message:    fmt.Sprintf("authentication failed: HTTP %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Endpoint:   "/auth/",
			Body:       truncate(string(respBody), 512),
		}
	}

	token, err := decodeTokenResponse(respBody)
	if err != nil {
		return err
	}

	m.token = token
	m.expiresAt = m.now().Add(m.tokenTimeout)

	metrics.RecordTokenRefresh()
	m.logger.Info("bearer token refreshed", "expires_at", m.expiresAt.UTC().Format(time.RFC3339))
	return nil
}

// decodeTokenResponse extracts the bearer token from the response body.
// Backends have emitted, over various versions: a JSON object with "token"
// or "access_token", a bare JSON string, or a plain-text token line. The
// shape is resolved here, once, and never re-inspected downstream.
func decodeTokenResponse(body []byte) (string, error) {
	fail := func(msg string) (string, error) {
		return "", &Error{
			Code:     CodeAuthenticationFailed,
			Message:  msg,
			Endpoint: "/auth/",
			Body:     truncate(string(body), 512),
		}
	}

	if json.Valid(body) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err == nil {
			for _, key := range []string{"token", "access_token"} {
				if raw, ok := obj[key]; ok {
					var token string
					if err := json.Unmarshal(raw, &token); err == nil && token != "" {
						return token, nil
					}
				}
			}
			return fail("no token found in authentication response")
		}

		var token string
		if err := json.Unmarshal(body, &token); err == nil && token != "" {
			return token, nil
		}
		return fail("unexpected authentication response format")
	}

	// Plain-text fallback for old backends
	if text := strings.TrimSpace(string(body)); strings.Contains(text, tokenPrefix) {
		return text, nil
	}
	return fail("invalid authentication response format")
}

// Invalidate drops the cached token, forcing a refresh on next use.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.token = ""
	m.expiresAt = time.Time{}
	m.mu.Unlock()
}
