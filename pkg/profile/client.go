package profile

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/briefing-service/internal/resilience"
)

const (
	defaultContextPath   = "/api/user/profile-context"
	defaultRetryPath     = "/api/user/enrich/retry"
	defaultSessionCookie = "session"
)

// Client reads the enrichment state of the authenticated user's company
// profile and can trigger a server-side re-enrichment job.
type Client interface {
	// FetchContext performs one round-trip against the profile-context
	// endpoint. Non-2xx responses and undecodable bodies come back as
	// resilience.SoftError; context cancellation comes back as the
	// context's own error.
	FetchContext(ctx context.Context) (*ContextPayload, error)

	// TriggerReenrich fires the re-enrichment job. The response body is
	// ignored; callers treat the subsequent poll loop as the source of
	// truth for whether enrichment actually restarted.
	TriggerReenrich(ctx context.Context) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithPaths overrides the context and retry endpoint paths.
func WithPaths(contextPath, retryPath string) Option {
	return func(c *httpClient) {
		if contextPath != "" {
			c.contextPath = contextPath
		}
		if retryPath != "" {
			c.retryPath = retryPath
		}
	}
}

// WithSessionCookie overrides the session cookie name.
func WithSessionCookie(name string) Option {
	return func(c *httpClient) {
		c.cookieName = name
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the per-request timeout. Non-positive values keep
// the current timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLimiter installs a shared outbound rate limiter. Useful when one
// process hosts many concurrent briefing sessions against the same backend.
func WithLimiter(lim *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = lim
	}
}

type httpClient struct {
	baseURL      string
	contextPath  string
	retryPath    string
	cookieName   string
	sessionToken string
	limiter      *rate.Limiter
	http         *http.Client
}

// NewClient creates a profile-context client authenticated by session cookie.
func NewClient(baseURL, sessionToken string, opts ...Option) Client {
	c := &httpClient{
		baseURL:      baseURL,
		contextPath:  defaultContextPath,
		retryPath:    defaultRetryPath,
		cookieName:   defaultSessionCookie,
		sessionToken: sessionToken,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FetchContext(ctx context.Context) (*ContextPayload, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "profile: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.contextPath, nil)
	if err != nil {
		return nil, eris.Wrap(err, "profile: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.sessionToken})

	resp, err := c.http.Do(req)
	if err != nil {
		// Cancellation is not a soft failure: the caller must not
		// schedule another attempt off the back of it.
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "profile: fetch context")
		}
		return nil, resilience.NewSoftError(eris.Wrap(err, "profile: fetch context"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "profile: read response")
		}
		return nil, resilience.NewSoftError(eris.Wrap(err, "profile: read response"), resp.StatusCode)
	}

	if resilience.IsSoftHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewSoftError(
			eris.Errorf("profile: unexpected status %d", resp.StatusCode),
			resp.StatusCode,
		)
	}

	var payload ContextPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, resilience.NewSoftError(eris.Wrap(err, "profile: unmarshal response"), resp.StatusCode)
	}

	return &payload, nil
}

func (c *httpClient) TriggerReenrich(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.retryPath, nil)
	if err != nil {
		return eris.Wrap(err, "profile: create retry request")
	}
	req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.sessionToken})

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "profile: trigger reenrich")
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	if resilience.IsSoftHTTPStatus(resp.StatusCode) {
		return eris.Errorf("profile: trigger reenrich: unexpected status %d", resp.StatusCode)
	}

	return nil
}
