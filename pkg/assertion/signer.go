// Package assertion builds the signed client assertion that a PDND client
// presents to the authorization server in exchange for a voucher.
//
// The assertion is a compact JWS carrying the client identity, the
// authorised purpose and a short validity window. A [Signer] loads its
// private key once at construction; every call to [Signer.Sign] mints a
// fresh assertion with a new "jti".
package assertion

import (
	"context"
	"crypto"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/StricklySoft/pdnd-client/pkg/config"
	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/StricklySoft/pdnd-client/pkg/assertion"

// DefaultLifetime is the validity window of an assertion when
// [Config.Lifetime] is zero.
const DefaultLifetime = 300 * time.Second

// DefaultAlgorithm is the JWS algorithm used when [Config.Algorithm] is
// empty.
const DefaultAlgorithm = "RS256"

// ClaimPurposeID is the private claim that carries the purpose id.
const ClaimPurposeID = "purposeId"

// supportedAlgorithms maps accepted "alg" values to their signing methods.
var supportedAlgorithms = map[string]jwt.SigningMethod{
	"RS256": jwt.SigningMethodRS256,
	"RS384": jwt.SigningMethodRS384,
	"RS512": jwt.SigningMethodRS512,
	"PS256": jwt.SigningMethodPS256,
	"ES256": jwt.SigningMethodES256,
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds everything the signer needs to build an assertion.
type Config struct {
	// KeyID is placed in the "kid" header.
	KeyID string

	// Issuer is the "iss" claim; ClientID is used when empty.
	Issuer string

	// ClientID is the "sub" claim.
	ClientID string

	// Audience is the "aud" claim.
	Audience string

	// PurposeID is the "purposeId" claim.
	PurposeID string

	// Algorithm defaults to [DefaultAlgorithm].
	Algorithm string

	// PrivateKeyPath is a PEM file. It takes precedence over PrivateKeyPEM.
	PrivateKeyPath string

	// PrivateKeyPEM is an inline PEM key.
	PrivateKeyPEM config.Secret

	// Lifetime is the distance between "iat" and "exp". Defaults to
	// [DefaultLifetime].
	Lifetime time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// ConfigFromSettings maps loaded [config.Settings] to a signer Config.
func ConfigFromSettings(s *config.Settings) Config {
	return Config{
		KeyID:          s.KeyID,
		Issuer:         s.EffectiveIssuer(),
		ClientID:       s.ClientID,
		Audience:       s.Audience,
		PurposeID:      s.PurposeID,
		Algorithm:      s.Algorithm,
		PrivateKeyPath: s.PrivateKeyPath,
		PrivateKeyPEM:  s.PrivateKey,
		Lifetime:       s.AssertionLifetime,
	}
}

// Validate checks that every claim and a key reference are present.
// It returns [sserr.CodeConfigurationMissing] naming the first missing
// setting.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"kid", c.KeyID},
		{"clientId", c.ClientID},
		{"audience", c.Audience},
		{"purposeId", c.PurposeID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return sserr.Missingf("assertion: %q is required", r.name)
		}
	}
	if c.PrivateKeyPath == "" && c.PrivateKeyPEM.Value() == "" {
		return sserr.Missingf("assertion: one of %q or %q is required", "privKeyPath", "privKey")
	}
	if c.Lifetime < 0 {
		return sserr.Configuration("assertion: lifetime must not be negative")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Signer
// ---------------------------------------------------------------------------

// Signer mints signed client assertions. It holds no mutable state after
// construction and is safe for concurrent use.
type Signer struct {
	cfg    Config
	method jwt.SigningMethod
	key    crypto.Signer
	tracer trace.Tracer
}

// NewSigner validates cfg and loads the private key.
//
// Error codes returned:
//   - [sserr.CodeConfigurationMissing]: a claim or key reference is missing
//   - [sserr.CodeConfiguration]: unsupported algorithm or negative lifetime
//   - [sserr.CodeSigningKey]: the key cannot be read, parsed, or does not
//     match the algorithm
func NewSigner(cfg Config) (*Signer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Algorithm == "" {
		cfg.Algorithm = DefaultAlgorithm
	}
	cfg.Algorithm = strings.ToUpper(cfg.Algorithm)
	method, ok := supportedAlgorithms[cfg.Algorithm]
	if !ok {
		return nil, sserr.Newf(sserr.CodeConfiguration,
			"assertion: unsupported algorithm %q", cfg.Algorithm)
	}
	if cfg.Lifetime == 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Issuer == "" {
		cfg.Issuer = cfg.ClientID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	pemBytes, err := readKey(cfg)
	if err != nil {
		return nil, err
	}
	key, err := parseKey(method, pemBytes)
	if err != nil {
		return nil, err
	}

	return &Signer{
		cfg:    cfg,
		method: method,
		key:    key,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Algorithm returns the effective JWS algorithm.
func (s *Signer) Algorithm() string {
	return s.cfg.Algorithm
}

// Sign returns a freshly signed compact JWS. Each call uses a new random
// "jti" and a single clock read for "iat" and "exp".
func (s *Signer) Sign(ctx context.Context) (string, error) {
	_, span := s.tracer.Start(ctx, "assertion.Sign")
	defer span.End()
	span.SetAttributes(
		attribute.String("assertion.kid", s.cfg.KeyID),
		attribute.String("assertion.alg", s.cfg.Algorithm),
		attribute.String("pdnd.purpose_id", s.cfg.PurposeID),
	)

	issuedAt := s.cfg.Now().UTC().Truncate(time.Second)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"iss":          s.cfg.Issuer,
		"sub":          s.cfg.ClientID,
		"aud":          s.cfg.Audience,
		ClaimPurposeID: s.cfg.PurposeID,
		"jti":          jti,
		"iat":          issuedAt.Unix(),
		"exp":          issuedAt.Add(s.cfg.Lifetime).Unix(),
	}

	token := jwt.NewWithClaims(s.method, claims)
	token.Header["kid"] = s.cfg.KeyID
	token.Header["typ"] = "JWT"

	signed, err := token.SignedString(s.key)
	if err != nil {
		wrapped := sserr.Wrap(err, sserr.CodeSigning, "assertion: failed to sign client assertion")
		finishSpan(span, wrapped)
		return "", wrapped
	}

	span.SetAttributes(attribute.String("assertion.jti", jti))
	return signed, nil
}

// ---------------------------------------------------------------------------
// Key loading
// ---------------------------------------------------------------------------

func readKey(cfg Config) ([]byte, error) {
	if cfg.PrivateKeyPath == "" {
		return []byte(cfg.PrivateKeyPEM.Value()), nil
	}
	data, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeSigningKey,
			"assertion: failed to read private key %q", cfg.PrivateKeyPath)
	}
	return data, nil
}

// parseKey decodes a PEM private key of the family the signing method
// expects. PKCS#1, PKCS#8 and SEC 1 encodings are accepted.
func parseKey(method jwt.SigningMethod, pemBytes []byte) (crypto.Signer, error) {
	var (
		key crypto.Signer
		err error
	)
	switch method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, err = jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	case *jwt.SigningMethodECDSA:
		key, err = jwt.ParseECPrivateKeyFromPEM(pemBytes)
	default:
		err = errors.New("no key parser for algorithm")
	}
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeSigningKey,
			"assertion: private key is not usable for %s", method.Alg())
	}
	return key, nil
}

// finishSpan records err on the span and marks it failed.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
