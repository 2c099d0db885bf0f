package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/acto-client/internal/metrics"
	"github.com/rickgao/acto-client/internal/session"
	"golang.org/x/time/rate"
)

// Defaults for NewClient.
const (
	DefaultBaseURL = "https://acto-0gf5.onrender.com"
	DefaultTimeout = 10 * time.Second
	LoginPath      = "/auth"
)

// SessionExpiredFunc is called after a 401 response cleared the credential.
// loginPath is where an interactive front end should send the user.
type SessionExpiredFunc func(ctx context.Context, loginPath string)

// Client provides access to the chat backend REST API.
type Client struct {
	baseURL    string
	creds      *session.Credentials
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string

	loginPath      string
	sessionExpired SessionExpiredFunc
	limiter        *rate.Limiter
	metrics        *metrics.HTTP
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. An empty baseURL means DefaultBaseURL.
// creds may be nil, in which case requests are sent without a credential.
func NewClient(baseURL string, creds *session.Credentials, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:    slog.Default(),
		loginPath: LoginPath,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSessionExpired sets the hook run after a 401 response.
func WithSessionExpired(fn SessionExpiredFunc) ClientOption {
	return func(c *Client) {
		c.sessionExpired = fn
	}
}

// WithLoginPath overrides the path passed to the session-expired hook.
func WithLoginPath(path string) ClientOption {
	return func(c *Client) {
		c.loginPath = path
	}
}

// WithRateLimiter paces outgoing requests. Requests wait for a token and fail
// only if their context ends first.
func WithRateLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *metrics.HTTP) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}
