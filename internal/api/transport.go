package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicolasacchi/vmcli/internal/ratelimit"
)

// Response is a raw API response. The transport never looks inside Body.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport performs requests against the API base URL. An error is returned
// only when no response was received; status codes are left to Classify.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values) (*Response, error)
	Post(ctx context.Context, path string, form url.Values) (*Response, error)
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *ratelimit.Tracker
	logger      zerolog.Logger
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

func WithHTTPClient(hc *http.Client) TransportOption {
	return func(t *HTTPTransport) { t.httpClient = hc }
}

func WithRateLimiter(r *ratelimit.Tracker) TransportOption {
	return func(t *HTTPTransport) { t.rateLimiter = r }
}

func WithUserAgent(ua string) TransportOption {
	return func(t *HTTPTransport) { t.userAgent = ua }
}

// WithTransportLogger logs every request at debug level. Query strings are
// never logged since they carry the access token.
func WithTransportLogger(l zerolog.Logger) TransportOption {
	return func(t *HTTPTransport) { t.logger = l }
}

// NewHTTPTransport creates a transport rooted at baseURL.
func NewHTTPTransport(baseURL string, opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get issues a GET with query appended to path.
func (t *HTTPTransport) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	fullURL := t.baseURL + path
	if qs := query.Encode(); qs != "" {
		fullURL += "?" + qs
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return t.do(req, path)
}

// Post issues a form-encoded POST.
func (t *HTTPTransport) Post(ctx context.Context, path string, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.do(req, path)
}

func (t *HTTPTransport) do(req *http.Request, path string) (*Response, error) {
	endpoint := endpointKey(path)
	if t.rateLimiter != nil {
		if err := t.rateLimiter.Check(endpoint); err != nil {
			return nil, &TransportError{Err: err}
		}
	}

	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Debug().Err(err).Str("method", req.Method).Str("path", path).Msg("request failed")
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("reading response body: %w", err)}
	}

	t.logger.Debug().
		Str("method", req.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if t.rateLimiter != nil {
		t.rateLimiter.Update(endpoint, resp)
		if resp.StatusCode == http.StatusTooManyRequests {
			if retryAt, ok := ratelimit.ParseRetryAfter(resp); ok {
				t.rateLimiter.RecordRetryAfter(endpoint, retryAt)
			}
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// endpointKey collapses identifiers out of a path so rate limits are tracked
// per endpoint: /users/123/friends -> /users/{id}/friends.
func endpointKey(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if strings.ContainsAny(p, "0123456789") {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}
