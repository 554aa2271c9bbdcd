// ABOUTME: HTTP client for the Starfish metadata API with bearer-token auth.
// ABOUTME: Single request path; all failures become structured *Error values.

package starfish

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default request behavior, matching the backend's recommended settings.
const (
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultQueryTimeout = 20 * time.Second
	DefaultPollInterval = 2 * time.Second
	DefaultAsyncTimeout = 5 * time.Minute

	// DefaultFormatFields is requested when the caller does not narrow the
	// output columns.
	DefaultFormatFields = "parent_path fn type size ct mt at uid gid mode volume tags_explicit tags_inherited"

	// asyncFormatFields adds the block counts the async endpoint can return.
	asyncFormatFields = "parent_path fn type size blck ct mt at uid gid mode tags_explicit tags_inherited volume"
)

// Config holds the connection settings for one Starfish deployment.
type Config struct {
	// Endpoint is the API base URL, e.g. https://starfish.example.com/api.
	Endpoint string
	Username string
	Password string

	// TokenTimeout is the requested bearer-token lifetime.
	TokenTimeout time.Duration

	// HTTPTimeout bounds any single request; zero means DefaultHTTPTimeout.
	HTTPTimeout time.Duration

	// PollInterval is the delay between async status checks; zero means
	// DefaultPollInterval. Tests shrink this.
	PollInterval time.Duration

	// TLSInsecureSkipVerify accepts self-signed certificates, common on
	// appliance deployments.
	TLSInsecureSkipVerify bool
	TLSMinVersion         uint16

	Logger *slog.Logger
}

// Client talks to the Starfish API. Safe for concurrent use.
type Client struct {
	endpoint     string
	httpClient   *http.Client
	tokens       *TokenManager
	httpTimeout  time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// New creates a Client. The bearer token is acquired lazily on first request.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("starfish: endpoint is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("starfish: username and password are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	minVersion := cfg.TLSMinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecureSkipVerify,
			MinVersion:         minVersion,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	httpTimeout := cfg.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = DefaultHTTPTimeout
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	httpClient := &http.Client{Transport: transport}

	return &Client{
		endpoint:     endpoint,
		httpClient:   httpClient,
		tokens:       newTokenManager(endpoint, cfg.Username, cfg.Password, cfg.TokenTimeout, httpClient, logger),
		httpTimeout:  httpTimeout,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// do performs one authenticated request. The timeout applies to this call
// alone, independent of any deadline already on ctx; whichever expires first
// wins. Responses with status 200 or 202 return the raw JSON body; anything
// else becomes a *Error with the status code and transient classification.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, timeout time.Duration) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = c.httpTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL := c.endpoint + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("starfish request",
		"method", method,
		"path", path,
		"timeout", timeout,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, path, timeout)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err, path, timeout)
	}

	c.logger.Debug("starfish response",
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(respBody),
	)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		if !json.Valid(respBody) {
			return nil, &Error{
				Code:       CodeUnexpectedFormat,
				Message:    fmt.Sprintf("non-JSON response from %s", path),
				StatusCode: resp.StatusCode,
				Endpoint:   path,
				Body:       truncate(string(respBody), 512),
			}
		}
		return json.RawMessage(respBody), nil
	}

	return nil, &Error{
		Code:       CodeAPIError,
		Message:    fmt.Sprintf("API request failed: HTTP %d", resp.StatusCode),
		StatusCode: resp.StatusCode,
		Endpoint:   path,
		Transient:  isTransientStatus(resp.StatusCode),
		Body:       truncate(string(respBody), 512),
	}
}

// isTransientStatus classifies backend statuses that mean "try again":
// 400 is how the async result endpoint says a query is not finished yet,
// and 404 is returned while a freshly submitted query is still registering.
func isTransientStatus(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusNotFound
}

// classifyTransportError separates per-call timeouts from connection-level
// failures so callers can report them distinctly.
func classifyTransportError(err error, path string, timeout time.Duration) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Code:     CodeRequestTimeout,
			Message:  fmt.Sprintf("request to %s timed out after %s", path, timeout),
			Endpoint: path,
			wrapped:  err,
		}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{
			Code:     CodeRequestTimeout,
			Message:  fmt.Sprintf("request to %s timed out after %s", path, timeout),
			Endpoint: path,
			wrapped:  err,
		}
	}
	return &Error{
		Code:     CodeConnectionFailed,
		Message:  "failed to connect to Starfish API: " + err.Error(),
		Endpoint: path,
		wrapped:  err,
	}
}
