// Package exchange trades a signed client assertion for a PDND voucher at
// the authorization server's token endpoint.
//
// The response schema is driven by configuration: the access token and the
// expiry are read from configurable member names, with OAuth2 defaults.
// The expiry is resolved in this order:
//
//  1. a relative lifetime in seconds (ExpiresInField, "expires_in")
//  2. an absolute expiry (ExpiresAtField, "exp"), either unix seconds or a
//     timestamp string
//  3. the "exp" claim of the access token, when it is a JWT (read without
//     verification)
//
// Whichever is found, it is converted at once to the canonical
// [credential.Credential] form.
package exchange

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/StricklySoft/pdnd-client/pkg/config"
	"github.com/StricklySoft/pdnd-client/pkg/credential"
	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/StricklySoft/pdnd-client/pkg/exchange"

// Defaults applied by [NewExchanger] to empty [Config] fields.
const (
	DefaultGrantType           = "client_credentials"
	DefaultClientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	DefaultTokenField          = "access_token"
	DefaultExpiresInField      = "expires_in"
	DefaultExpiresAtField      = "exp"
	DefaultTimeout             = 30 * time.Second
)

// maxResponseBytes limits how much of the token endpoint's answer is read.
const maxResponseBytes = 1 << 20

// maxLifetimeSeconds is the longest relative lifetime a time.Duration holds.
const maxLifetimeSeconds = float64(math.MaxInt64 / int64(time.Second))

// HTTPClient is the subset of [*http.Client] used by the exchanger.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config controls the token request and how its answer is read.
type Config struct {
	// Endpoint is the token endpoint URL.
	Endpoint string

	// ClientID is sent as the client_id form field.
	ClientID string

	GrantType           string
	ClientAssertionType string

	TokenField     string
	ExpiresInField string
	ExpiresAtField string

	// Timeout bounds the request when HTTPClient is nil.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS verification of the default client.
	InsecureSkipVerify bool

	// HTTPClient overrides the default client.
	HTTPClient HTTPClient

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// ConfigFromSettings maps loaded [config.Settings] to an exchanger Config.
func ConfigFromSettings(s *config.Settings) Config {
	return Config{
		Endpoint:            s.Endpoint,
		ClientID:            s.ClientID,
		GrantType:           s.GrantType,
		ClientAssertionType: s.ClientAssertionType,
		TokenField:          s.TokenField,
		ExpiresInField:      s.ExpiresInField,
		ExpiresAtField:      s.ExpiresAtField,
		Timeout:             s.HTTPTimeout,
	}
}

func (c *Config) applyDefaults() {
	if c.GrantType == "" {
		c.GrantType = DefaultGrantType
	}
	if c.ClientAssertionType == "" {
		c.ClientAssertionType = DefaultClientAssertionType
	}
	if c.TokenField == "" {
		c.TokenField = DefaultTokenField
	}
	if c.ExpiresInField == "" {
		c.ExpiresInField = DefaultExpiresInField
	}
	if c.ExpiresAtField == "" {
		c.ExpiresAtField = DefaultExpiresAtField
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// ---------------------------------------------------------------------------
// Exchanger
// ---------------------------------------------------------------------------

// Exchanger performs client-assertion token exchanges. It is safe for
// concurrent use when its HTTPClient is.
type Exchanger struct {
	cfg    Config
	client HTTPClient
	tracer trace.Tracer
}

// NewExchanger returns an Exchanger for cfg. The endpoint and client id are
// required ([sserr.CodeConfigurationMissing]); the endpoint must be an
// absolute http(s) URL ([sserr.CodeConfiguration]).
func NewExchanger(cfg Config) (*Exchanger, error) {
	if cfg.Endpoint == "" {
		return nil, sserr.Missingf("exchange: %q is required", "endpoint")
	}
	if cfg.ClientID == "" {
		return nil, sserr.Missingf("exchange: %q is required", "clientId")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, sserr.Newf(sserr.CodeConfiguration,
			"exchange: endpoint %q is not an absolute http(s) URL", cfg.Endpoint)
	}
	if cfg.Timeout < 0 {
		return nil, sserr.Configuration("exchange: timeout must not be negative")
	}
	cfg.applyDefaults()

	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(cfg.Timeout, cfg.InsecureSkipVerify)
	}

	return &Exchanger{
		cfg:    cfg,
		client: client,
		tracer: otel.Tracer(tracerName),
	}, nil
}

func newHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --no-verify-ssl
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Exchange posts the assertion to the token endpoint and returns the
// voucher with its canonical expiry.
//
// Error codes returned:
//   - [sserr.CodeTokenExchangeTransport]: the request could not be sent or
//     its body could not be read
//   - [sserr.CodeTokenExchangeStatus]: non-2xx answer
//   - [sserr.CodeTokenExchangeResponse]: the answer is not JSON or lacks a
//     token or an expiry
//
// Status and response errors carry the status code and body as details.
func (e *Exchanger) Exchange(ctx context.Context, assertion string) (credential.Credential, error) {
	ctx, span := e.tracer.Start(ctx, "exchange.Exchange", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.request.method", http.MethodPost))

	form := url.Values{
		"client_id":             {e.cfg.ClientID},
		"client_assertion":      {assertion},
		"client_assertion_type": {e.cfg.ClientAssertionType},
		"grant_type":            {e.cfg.GrantType},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		wrapped := sserr.Wrap(err, sserr.CodeTokenExchangeTransport, "exchange: failed to build token request")
		finishSpan(span, wrapped)
		return credential.Credential{}, wrapped
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		wrapped := sserr.Wrap(err, sserr.CodeTokenExchangeTransport, "exchange: token request failed")
		finishSpan(span, wrapped)
		return credential.Credential{}, wrapped
	}
	defer func() { _ = resp.Body.Close() }()

	now := e.cfg.Now()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		wrapped := sserr.Wrap(err, sserr.CodeTokenExchangeTransport, "exchange: failed to read token response").
			WithResponse(resp.StatusCode, "")
		finishSpan(span, wrapped)
		return credential.Credential{}, wrapped
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		wrapped := sserr.Newf(sserr.CodeTokenExchangeStatus,
			"exchange: token endpoint returned status %d", resp.StatusCode).
			WithResponse(resp.StatusCode, string(body))
		finishSpan(span, wrapped)
		return credential.Credential{}, wrapped
	}

	cred, perr := e.parse(body, now)
	if perr != nil {
		wrapped := perr.WithResponse(resp.StatusCode, string(body))
		finishSpan(span, wrapped)
		return credential.Credential{}, wrapped
	}
	return cred, nil
}

// parse extracts the token and the expiry from a token endpoint answer.
func (e *Exchanger) parse(body []byte, now time.Time) (credential.Credential, *sserr.Error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return credential.Credential{}, sserr.Wrap(err, sserr.CodeTokenExchangeResponse,
			"exchange: token response is not a JSON object")
	}

	token, _ := doc[e.cfg.TokenField].(string)
	if token == "" {
		return credential.Credential{}, sserr.Newf(sserr.CodeTokenExchangeResponse,
			"exchange: token response has no %q", e.cfg.TokenField)
	}

	if raw, ok := doc[e.cfg.ExpiresInField]; ok && raw != nil {
		seconds, ok := numeric(raw)
		if !ok {
			return credential.Credential{}, sserr.Newf(sserr.CodeTokenExchangeResponse,
				"exchange: %q is not a number", e.cfg.ExpiresInField)
		}
		if seconds <= 0 || seconds > maxLifetimeSeconds {
			return credential.Credential{}, sserr.Newf(sserr.CodeTokenExchangeResponse,
				"exchange: %q is out of range: %v", e.cfg.ExpiresInField, seconds)
		}
		return credential.FromTTL(token, now, time.Duration(seconds*float64(time.Second))), nil
	}

	if raw, ok := doc[e.cfg.ExpiresAtField]; ok && raw != nil {
		exp, err := absoluteExpiry(raw)
		if err != nil {
			return credential.Credential{}, sserr.Wrapf(err, sserr.CodeTokenExchangeResponse,
				"exchange: %q is not a valid expiry", e.cfg.ExpiresAtField)
		}
		if exp.IsZero() {
			return credential.Credential{}, sserr.Newf(sserr.CodeTokenExchangeResponse,
				"exchange: %q is empty", e.cfg.ExpiresAtField)
		}
		cred := credential.New(token, exp)
		if !cred.ValidAt(now) {
			return credential.Credential{}, sserr.Newf(sserr.CodeTokenExchangeResponse,
				"exchange: %q is not in the future: %s", e.cfg.ExpiresAtField, cred.ExpiresAt.Format(time.RFC3339))
		}
		return cred, nil
	}

	if exp, ok := tokenExpiry(token); ok {
		cred := credential.New(token, exp)
		if !cred.ValidAt(now) {
			return credential.Credential{}, sserr.Newf(sserr.CodeTokenExchangeResponse,
				"exchange: access token expired at %s", cred.ExpiresAt.Format(time.RFC3339))
		}
		return cred, nil
	}

	return credential.Credential{}, sserr.Newf(sserr.CodeTokenExchangeResponse,
		"exchange: token response has neither %q nor %q and the token carries no exp claim",
		e.cfg.ExpiresInField, e.cfg.ExpiresAtField)
}

// numeric accepts JSON numbers and numeric strings.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

// absoluteExpiry reads unix seconds or a timestamp string.
func absoluteExpiry(v any) (time.Time, error) {
	if f, ok := v.(float64); ok {
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return time.Unix(int64(f), 0).UTC(), nil
		}
	}
	return credential.ParseExpiration(v)
}

// tokenExpiry reads the "exp" claim of a JWT access token without
// verifying it. Only the lifetime is taken from the token.
func tokenExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// finishSpan records err on the span and marks it failed.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
