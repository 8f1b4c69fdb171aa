// Package pdnd calls PDND-protected endpoints with a voucher.
//
// A [Client] holds the target URLs, the query filters and the bearer token.
// Settings may be given at construction through [ClientConfig] or changed
// later with the setters; required settings are checked when a call needs
// them, not before.
//
// [Client.GetStatus] reports whatever the endpoint answers and fails only
// when no answer arrives. [Client.GetAPI] treats a non-2xx answer as an
// error carrying the status code and body.
package pdnd

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/StricklySoft/pdnd-client/pkg/pdnd"

// DefaultTimeout bounds every call when no HTTPClient is injected.
const DefaultTimeout = 30 * time.Second

const (
	// maxBodyBytes limits how much of a response body is read.
	maxBodyBytes = 16 << 20

	// maxMessageBody limits how much of a body is copied into an error
	// message. The full body stays in the error details.
	maxMessageBody = 512
)

// HTTPClient is the subset of [*http.Client] used by the client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// ClientConfig holds the initial settings of a [Client]. Every field is
// optional.
type ClientConfig struct {
	// APIURL is the target of GetAPI and the default target of PostAPI.
	APIURL string

	// StatusURL is the default target of GetStatus.
	StatusURL string

	// Filters are appended to APIURL as a query string.
	Filters Filters

	// Token is the bearer voucher.
	Token string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// Debug re-indents JSON bodies returned by GetAPI.
	Debug bool

	// Timeout bounds each call of the default HTTP client. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the default client. When set, InsecureSkipVerify
	// and Timeout are left to it.
	HTTPClient HTTPClient

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c ClientConfig) configured() bool {
	return c.APIURL != "" || c.StatusURL != "" || c.Token != "" || len(c.Filters) > 0
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client sends authenticated requests to PDND e-service endpoints. Calls
// are not meant to overlap; a call started while another is in flight
// fails with [sserr.CodeConfiguration].
type Client struct {
	mu        sync.Mutex
	state     State
	apiURL    string
	statusURL string
	filters   Filters
	token     string
	verifySSL bool
	debug     bool
	timeout   time.Duration

	injected HTTPClient
	client   HTTPClient

	logger *slog.Logger
	tracer trace.Tracer
}

// NewClient returns a Client for cfg. URLs and the token are not validated
// here; a negative timeout is a [sserr.CodeConfiguration] error.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Timeout < 0 {
		return nil, sserr.Configuration("pdnd: timeout must not be negative")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		state:     StateUnconfigured,
		apiURL:    cfg.APIURL,
		statusURL: cfg.StatusURL,
		filters:   slices.Clone(cfg.Filters),
		token:     cfg.Token,
		verifySSL: !cfg.InsecureSkipVerify,
		debug:     cfg.Debug,
		timeout:   cfg.Timeout,
		injected:  cfg.HTTPClient,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
	c.rebuildClient()
	if cfg.configured() || cfg.Debug || cfg.InsecureSkipVerify {
		c.state = StateConfigured
	}
	return c, nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetAPIURL sets the GetAPI target.
func (c *Client) SetAPIURL(u string) {
	c.update(func() { c.apiURL = u })
}

// SetStatusURL sets the default GetStatus target.
func (c *Client) SetStatusURL(u string) {
	c.update(func() { c.statusURL = u })
}

// SetFilters replaces the query filters of GetAPI. The slice is copied.
func (c *Client) SetFilters(filters Filters) {
	c.update(func() { c.filters = slices.Clone(filters) })
}

// SetToken sets the bearer voucher.
func (c *Client) SetToken(token string) {
	c.update(func() { c.token = token })
}

// SetVerifySSL turns TLS certificate verification on or off.
func (c *Client) SetVerifySSL(verify bool) {
	c.update(func() {
		c.verifySSL = verify
		c.rebuildClient()
	})
}

// SetDebug turns JSON re-indentation of GetAPI bodies on or off.
func (c *Client) SetDebug(debug bool) {
	c.update(func() { c.debug = debug })
}

// update applies fn under the lock and marks the client configured.
func (c *Client) update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
	if c.state == StateUnconfigured {
		c.state = StateConfigured
	}
}

func (c *Client) rebuildClient() {
	if c.injected != nil {
		c.client = c.injected
		return
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !c.verifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --no-verify-ssl
	}
	c.client = &http.Client{Timeout: c.timeout, Transport: transport}
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// GetStatus sends an authenticated GET to rawURL, or to the configured
// status URL when rawURL is empty, and returns the status code and body
// whatever the status. Only a missing setting
// ([sserr.CodeConfigurationMissing]) or a transport failure
// ([sserr.CodeAPICallTransport]) is an error.
func (c *Client) GetStatus(ctx context.Context, rawURL string) (int, string, error) {
	snap, err := c.begin()
	if err != nil {
		return 0, "", err
	}
	defer c.end()

	if rawURL == "" {
		rawURL = snap.statusURL
	}
	if rawURL == "" {
		return 0, "", sserr.Missingf("pdnd: %q is required", "statusUrl")
	}
	if snap.token == "" {
		return 0, "", sserr.Missingf("pdnd: %q is required", "token")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+snap.token)
	return c.do(ctx, snap, "pdnd.GetStatus", http.MethodGet, rawURL, nil, header)
}

// GetAPI sends an authenticated GET to the configured API URL with the
// filters as query string. token overrides the configured voucher when not
// empty.
//
// Error codes returned:
//   - [sserr.CodeConfigurationMissing]: no API URL or no token
//   - [sserr.CodeAPICallTransport]: the request could not be sent
//   - [sserr.CodeAPICallStatus]: non-2xx answer; status and body are in the
//     error details
//
// In debug mode a JSON body is returned re-indented with two spaces.
func (c *Client) GetAPI(ctx context.Context, token string) (int, string, error) {
	snap, err := c.begin()
	if err != nil {
		return 0, "", err
	}
	defer c.end()

	if snap.apiURL == "" {
		return 0, "", sserr.Missingf("pdnd: %q is required", "apiUrl")
	}
	if token == "" {
		token = snap.token
	}
	if token == "" {
		return 0, "", sserr.Missingf("pdnd: %q is required", "token")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("Accept", "*/*")

	target := appendQuery(snap.apiURL, snap.filters)
	status, body, err := c.do(ctx, snap, "pdnd.GetAPI", http.MethodGet, target, nil, header)
	if err != nil {
		return status, body, err
	}
	if status < 200 || status > 299 {
		return status, body, sserr.Newf(sserr.CodeAPICallStatus,
			"pdnd: API returned status %d: %s", status, truncate(body, maxMessageBody)).
			WithResponse(status, body)
	}
	if snap.debug {
		body, _ = PrettyJSON(body)
	}
	return status, body, nil
}

// PostAPI sends payload as JSON to rawURL, or to the configured API URL
// when rawURL is empty, with the bearer voucher. Like GetStatus it returns
// the status code and body whatever the status.
func (c *Client) PostAPI(ctx context.Context, rawURL string, payload any) (int, string, error) {
	snap, err := c.begin()
	if err != nil {
		return 0, "", err
	}
	defer c.end()

	if rawURL == "" {
		rawURL = snap.apiURL
	}
	if rawURL == "" {
		return 0, "", sserr.Missingf("pdnd: %q is required", "apiUrl")
	}
	if snap.token == "" {
		return 0, "", sserr.Missingf("pdnd: %q is required", "token")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, "", sserr.Wrap(err, sserr.CodeConfiguration, "pdnd: payload is not JSON encodable")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+snap.token)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "*/*")
	return c.do(ctx, snap, "pdnd.PostAPI", http.MethodPost, rawURL, data, header)
}

// snapshot is a copy of the settings a single call works with.
type snapshot struct {
	apiURL    string
	statusURL string
	filters   Filters
	token     string
	debug     bool
	client    HTTPClient
}

// begin moves the client to Dispatching and copies its settings.
func (c *Client) begin() (snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDispatching {
		return snapshot{}, sserr.Configuration("pdnd: a request is already in flight")
	}
	// An unconfigured client stays so; the call reports the missing
	// settings.
	if ValidTransition(c.state, StateDispatching) {
		c.state = StateDispatching
	}
	return snapshot{
		apiURL:    c.apiURL,
		statusURL: c.statusURL,
		filters:   c.filters,
		token:     c.token,
		debug:     c.debug,
		client:    c.client,
	}, nil
}

func (c *Client) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDispatching && ValidTransition(c.state, StateConfigured) {
		c.state = StateConfigured
	}
}

// do sends one request and reads its body. Only transport failures are
// errors.
func (c *Client) do(ctx context.Context, snap snapshot, spanName, method, target string, body []byte, header http.Header) (int, string, error) {
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.request.method", method))

	u, err := url.Parse(target)
	if err != nil {
		wrapped := sserr.Wrapf(err, sserr.CodeAPICallTransport, "pdnd: invalid URL %q", target)
		finishSpan(span, wrapped)
		return 0, "", wrapped
	}
	span.SetAttributes(
		attribute.String("server.address", u.Host),
		attribute.String("url.path", u.Path),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		wrapped := sserr.Wrap(err, sserr.CodeAPICallTransport, "pdnd: failed to build request")
		finishSpan(span, wrapped)
		return 0, "", wrapped
	}
	for k, v := range header {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := snap.client.Do(req)
	if err != nil {
		wrapped := sserr.Wrapf(err, sserr.CodeAPICallTransport, "pdnd: %s %s failed", method, u.Redacted())
		finishSpan(span, wrapped)
		return 0, "", wrapped
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		wrapped := sserr.Wrap(err, sserr.CodeAPICallTransport, "pdnd: failed to read response body").
			WithResponse(resp.StatusCode, "")
		finishSpan(span, wrapped)
		return resp.StatusCode, "", wrapped
	}

	c.logger.DebugContext(ctx, "pdnd request",
		slog.String("method", method),
		slog.String("host", u.Host),
		slog.String("path", u.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return resp.StatusCode, string(data), nil
}

// finishSpan records err on the span and marks it failed.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
