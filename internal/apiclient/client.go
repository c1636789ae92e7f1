package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fe-v2/internal/domain"
	"fe-v2/pkg/errors"
	"fe-v2/pkg/logger"
)

// Backend endpoints the session core consumes
const (
	PathCallback = "/auth/callback"
	PathWhoAmI   = "/auth/whoami"
	PathMe       = "/me"
)

const maxResponseBytes = 1 << 20

// HTTPError is a non-2xx answer from the API
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the project API through the Authenticator
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates an API client. Every request carries the credential from source.
func New(baseURL string, timeout time.Duration, source CredentialSource, log *logger.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	return NewWithHTTPClient(u, &http.Client{
		Timeout:   timeout,
		Transport: &Authenticator{Source: source},
	}, log), nil
}

// NewWithHTTPClient uses httpClient as given; callers wanting bearer
// credentials must install an Authenticator themselves.
func NewWithHTTPClient(baseURL *url.URL, httpClient *http.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log.Component("apiclient"),
	}
}

// exchangeRequest is the body of POST /auth/callback
type exchangeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// ExchangeCode trades an authorization code for a token pair. It is called
// once per code; codes are single use so there is no retry.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.TokenPair, error) {
	body, err := json.Marshal(exchangeRequest{Code: code, RedirectURI: redirectURI})
	if err != nil {
		return nil, errors.NewExchangeFailedError("failed to encode exchange request", 0, err)
	}

	var pair domain.TokenPair
	status, err := c.do(ctx, http.MethodPost, PathCallback, bytes.NewReader(body), &pair)
	if err != nil {
		return nil, errors.NewExchangeFailedError("code exchange rejected", status, err)
	}
	if !pair.IsAuthenticated() {
		return nil, errors.NewExchangeFailedError("code exchange returned no credential", status, nil)
	}
	return &pair, nil
}

// profileWire is the profile shape returned by both profile endpoints
type profileWire struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (p profileWire) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		Subject: p.Sub,
		Email:   domain.OptionalString(p.Email),
		Name:    domain.OptionalString(p.Name),
	}
}

// meWire is GET /me: either {"profile": {...}} or flat fields
type meWire struct {
	Profile *profileWire `json:"profile"`
	profileWire
}

// WhoAmI fetches the primary profile
func (c *Client) WhoAmI(ctx context.Context) (*domain.UserProfile, error) {
	var p profileWire
	if _, err := c.do(ctx, http.MethodGet, PathWhoAmI, nil, &p); err != nil {
		return nil, errors.NewProfileResolutionError("whoami", err)
	}
	return p.toDomain(), nil
}

// Me fetches the legacy profile, preferring the nested profile object
func (c *Client) Me(ctx context.Context) (*domain.UserProfile, error) {
	var m meWire
	if _, err := c.do(ctx, http.MethodGet, PathMe, nil, &m); err != nil {
		return nil, errors.NewProfileResolutionError("me", err)
	}
	if m.Profile != nil {
		return m.Profile.toDomain(), nil
	}
	return m.profileWire.toDomain(), nil
}

// do performs one request and decodes a JSON answer into out. The returned
// status is 0 when no response was received.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) (int, error) {
	endpoint := c.baseURL.JoinPath(path).String()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"method": method,
			"path":   path,
		}).Warn("API request failed")
		return 0, err
	}
	defer resp.Body.Close()

	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
		"duration":    time.Since(start).String(),
	}).Debug("API request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}
