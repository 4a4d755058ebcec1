// Package tushare is a small client for the Tushare Pro data API.
package tushare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://api.tushare.pro"
	defaultTimeout = 30 * time.Second
)

// Client defines the Tushare Pro operations used by the pipeline.
type Client interface {
	Query(ctx context.Context, req Request) (*Response, error)
}

// Request is one API call. Fields selects the returned columns.
type Request struct {
	APIName string
	Params  map[string]string
	Fields  []string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.rc = resty.NewWithClient(hc)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

// WithRateLimit caps calls per minute. Zero disables pacing.
func WithRateLimit(perMinute int) Option {
	return func(c *httpClient) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

type httpClient struct {
	token   string
	baseURL string
	timeout time.Duration
	rc      *resty.Client
	limiter *rate.Limiter
}

// NewClient creates a Tushare Pro client authenticated with token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		rc:      resty.New(),
	}
	for _, o := range opts {
		o(c)
	}
	c.rc.SetTimeout(c.timeout)
	return c
}

type requestBody struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

func (c *httpClient) Query(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "tushare: %s rate limit wait", req.APIName)
		}
	}

	params := req.Params
	if params == nil {
		params = map[string]string{}
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(requestBody{
			APIName: req.APIName,
			Token:   c.token,
			Params:  params,
			Fields:  strings.Join(req.Fields, ","),
		}).
		Post(c.baseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "tushare: %s request", req.APIName)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &Error{
			APIName: req.APIName,
			Status:  resp.StatusCode(),
			Msg:     truncate(resp.String(), 200),
		}
	}

	out, err := Parse(resp.Body())
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			apiErr.APIName = req.APIName
			return nil, apiErr
		}
		return nil, eris.Wrapf(err, "tushare: %s parse", req.APIName)
	}
	return out, nil
}

// Upstream error codes.
const (
	CodeTokenInvalid = 40101
	CodeRateLimited  = 40203
)

// Error is a non-zero API code or an HTTP failure status.
type Error struct {
	APIName string
	Code    int
	Status  int
	Msg     string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("tushare: %s: http %d: %s", e.APIName, e.Status, e.Msg)
	}
	return fmt.Sprintf("tushare: %s: code %d: %s", e.APIName, e.Code, e.Msg)
}

// Temporary reports whether retrying may succeed.
func (e *Error) Temporary() bool {
	return e.Code == CodeRateLimited ||
		e.Status == http.StatusTooManyRequests ||
		e.Status >= http.StatusInternalServerError
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
