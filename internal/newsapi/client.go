// Package newsapi is a client for the NewsAPI v2 REST endpoints used by
// roundnews: /everything for paged search and /top-headlines/sources.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pders01/roundnews/internal/debuglog"
	"github.com/pders01/roundnews/internal/metrics"
)

const (
	DefaultBaseURL   = "https://newsapi.org/v2/"
	DefaultUserAgent = "roundnews/1.0 (news search; github.com/pders01/roundnews)"
	defaultTimeout   = 30 * time.Second

	// APIKeyHeader carries the static API key on every request.
	APIKeyHeader = "X-Api-Key"

	endpointEverything = "everything"
	endpointSources    = "top-headlines/sources"

	maxBodySize  = 8 << 20
	maxErrorBody = 4096
)

// ErrMissingAPIKey is returned before any request is made when no key is set.
var ErrMissingAPIKey = errors.New("news api: missing API key")

// Client talks to the news API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// NewClient constructs a client with the default base URL and a 30s timeout.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBaseURL overrides the API base URL (useful for tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient overrides the internal HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout on a copy of the current HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit allows at most perSecond requests per second with a burst of
// one. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// FetchPage runs one page of an /everything search. A structured API error is
// returned as *ErrorResponse with a nil error; err is non-nil only for
// transport and decode failures.
func (c *Client) FetchPage(ctx context.Context, q Query) (SearchResult, error) {
	start := time.Now()
	data, status, err := c.get(ctx, endpointEverything, q.Values())
	if err != nil {
		metrics.ObserveAPIRequest(endpointEverything, metrics.OutcomeTransport, time.Since(start))
		return nil, err
	}

	result, decodeErr := DecodeSearchResult(data)
	switch {
	case decodeErr == nil:
		outcome := metrics.OutcomeOK
		if _, ok := result.(*ErrorResponse); ok {
			outcome = metrics.OutcomeAPIError
		}
		metrics.ObserveAPIRequest(endpointEverything, outcome, time.Since(start))
		return result, nil
	case status >= http.StatusBadRequest:
		metrics.ObserveAPIRequest(endpointEverything, metrics.OutcomeHTTPError, time.Since(start))
		return nil, &StatusError{StatusCode: status, Body: snippet(data)}
	default:
		metrics.ObserveAPIRequest(endpointEverything, metrics.OutcomeDecode, time.Since(start))
		return nil, decodeErr
	}
}

// Sources lists the publishers available for searching.
func (c *Client) Sources(ctx context.Context, q SourcesQuery) (*SourcesResponse, error) {
	start := time.Now()
	data, status, err := c.get(ctx, endpointSources, q.Values())
	if err != nil {
		metrics.ObserveAPIRequest(endpointSources, metrics.OutcomeTransport, time.Since(start))
		return nil, err
	}

	var payload struct {
		Status  string          `json:"status"`
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Sources []SourceDetails `json:"sources"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		if status >= http.StatusBadRequest {
			metrics.ObserveAPIRequest(endpointSources, metrics.OutcomeHTTPError, time.Since(start))
			return nil, &StatusError{StatusCode: status, Body: snippet(data)}
		}
		metrics.ObserveAPIRequest(endpointSources, metrics.OutcomeDecode, time.Since(start))
		return nil, wrapDecode(err)
	}

	switch payload.Status {
	case StatusOK:
		metrics.ObserveAPIRequest(endpointSources, metrics.OutcomeOK, time.Since(start))
		return &SourcesResponse{Status: payload.Status, Sources: payload.Sources}, nil
	case StatusFailed:
		metrics.ObserveAPIRequest(endpointSources, metrics.OutcomeAPIError, time.Since(start))
		return nil, &APIError{Code: payload.Code, Message: payload.Message}
	default:
		metrics.ObserveAPIRequest(endpointSources, metrics.OutcomeDecode, time.Since(start))
		return nil, fmt.Errorf("%w: unknown status %q", ErrDecode, payload.Status)
	}
}

// get performs a GET and returns the body and HTTP status. Error statuses are
// not errors here; callers decide whether the body is a structured error.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, int, error) {
	if c.apiKey == "" {
		return nil, 0, ErrMissingAPIKey
	}

	log := debuglog.WithFields(debuglog.Fields{
		"request_id": uuid.NewString(),
		"endpoint":   endpoint,
	})

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	reqURL := strings.TrimRight(c.baseURL, "/") + "/" + endpoint
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	log.Debugf("GET %s", params.Encode())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warnf("request failed: %v", err)
		return nil, 0, fmt.Errorf("fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	log.With("status", resp.StatusCode).Debugf("received %d bytes", len(data))
	return data, resp.StatusCode, nil
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
