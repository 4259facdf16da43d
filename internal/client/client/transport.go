package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/metrics"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Request is a transport-level request. Path is relative to the base URL.
type Request struct {
	Method      string
	Path        string
	Body        []byte
	ContentType string
	Header      http.Header

	// SkipAuth suppresses the Authorization header and the forced-logout
	// reaction to 401. Login and registration set it.
	SkipAuth bool
}

// NewJSONRequest encodes v as the JSON body of a new Request.
func NewJSONRequest(method, path string, v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	return &Request{Method: method, Path: path, Body: body, ContentType: "application/json"}, nil
}

// Op names the request in errors and logs, e.g. "PUT /notes/42".
func (r *Request) Op() string {
	return r.Method + " " + r.Path
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentType returns the media type without parameters.
func (r *Response) ContentType() string {
	ct := r.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Transport sends one request. Implementations return an error only when no
// response was obtained; any status code is a successful round trip.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     logging.Logger
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *HTTPTransport) { t.http = c }
}

// WithTimeout bounds every round trip. It applies to the client given by
// WithHTTPClient regardless of option order; that client is copied, not
// modified.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTPTransport) { t.timeout = d }
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(t *HTTPTransport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records every request outcome.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *HTTPTransport) { t.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(t *HTTPTransport) { t.log = l }
}

// NewHTTPTransport builds a transport rooted at baseURL, e.g.
// "http://localhost:8080/api".
func NewHTTPTransport(baseURL string, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     logging.Discard(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.http == nil {
		t.http = &http.Client{}
	}
	if t.timeout > 0 {
		c := *t.http
		c.Timeout = t.timeout
		t.http = &c
	}
	return t
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &common.TransportError{Op: req.Op(), Err: err}
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	hr, err := http.NewRequestWithContext(ctx, req.Method, t.baseURL+req.Path, body)
	if err != nil {
		return nil, &common.TransportError{Op: req.Op(), Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		hr.Header.Set("Content-Type", req.ContentType)
	}
	if hr.Header.Get(common.RequestIDHeaderName) == "" {
		hr.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	}
	hr.Header.Set("Accept", "application/json, */*")

	resp, err := t.http.Do(hr)
	if err != nil {
		t.metrics.RecordRequest(req.Method, 0)
		t.log.Warn(ctx, "request failed", "op", req.Op(), "error", err)
		return nil, &common.TransportError{Op: req.Op(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.RecordRequest(req.Method, 0)
		return nil, &common.TransportError{Op: req.Op(), Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	t.metrics.RecordRequest(req.Method, resp.StatusCode)
	t.log.Debug(ctx, "request done", "op", req.Op(), "status", resp.StatusCode, "request_id", hr.Header.Get(common.RequestIDHeaderName))

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
