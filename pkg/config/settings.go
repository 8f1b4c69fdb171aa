package config

import (
	"strings"
	"time"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// Cache backends accepted by [Settings.CacheBackend].
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
)

// Settings are the per-environment values the PDND client needs to obtain
// and use a voucher. Field json tags are the keys of the configuration file;
// env tags are read with the loader's prefix (PDND_ in the CLI).
type Settings struct {
	// KeyID is the id of the public key registered on PDND, sent as the
	// assertion's "kid" header.
	KeyID string `json:"kid" env:"KID" required:"true"`

	// Issuer is the assertion "iss" claim. PDND expects the client id; it
	// defaults to ClientID when empty.
	Issuer string `json:"issuer" env:"ISSUER"`

	// ClientID identifies the client on PDND ("sub" claim and client_id
	// form field).
	ClientID string `json:"clientId" env:"CLIENT_ID" required:"true"`

	// PurposeID is the authorised purpose; it is a claim of the assertion
	// and the key of the token cache.
	PurposeID string `json:"purposeId" env:"PURPOSE_ID" required:"true"`

	// PrivateKeyPath is the PEM file holding the signing key.
	PrivateKeyPath string `json:"privKeyPath" env:"PRIV_KEY_PATH"`

	// PrivateKey is an inline PEM signing key, used when PrivateKeyPath is
	// empty.
	PrivateKey Secret `json:"privKey" env:"PRIV_KEY"`

	// Audience is the assertion "aud" claim.
	Audience string `json:"audience" env:"AUDIENCE" required:"true"`

	// Algorithm is the JWS algorithm of the assertion.
	Algorithm string `json:"alg" env:"ALG" envDefault:"RS256"`

	// Endpoint is the URL of the PDND token endpoint.
	Endpoint string `json:"endpoint" env:"ENDPOINT" required:"true"`

	// AssertionLifetime bounds the assertion between iat and exp. Plain
	// numbers are seconds.
	AssertionLifetime time.Duration `json:"assertionLifetime" env:"ASSERTION_LIFETIME" envDefault:"5m"`

	// GrantType and ClientAssertionType are sent as form fields on the
	// token request.
	GrantType           string `json:"grantType" env:"GRANT_TYPE" envDefault:"client_credentials"`
	ClientAssertionType string `json:"clientAssertionType" env:"CLIENT_ASSERTION_TYPE" envDefault:"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"`

	// TokenField, ExpiresInField and ExpiresAtField name the members of the
	// token endpoint's JSON answer.
	TokenField     string `json:"tokenField" env:"TOKEN_FIELD" envDefault:"access_token"`
	ExpiresInField string `json:"expiresInField" env:"EXPIRES_IN_FIELD" envDefault:"expires_in"`
	ExpiresAtField string `json:"expiresAtField" env:"EXPIRES_AT_FIELD" envDefault:"exp"`

	// CacheBackend selects where the voucher is cached: "file" (default)
	// or "redis".
	CacheBackend string `json:"cacheBackend" env:"CACHE_BACKEND" envDefault:"file"`

	// CacheDir overrides the directory of the file cache. Empty means the
	// system temporary directory.
	CacheDir string `json:"cacheDir" env:"CACHE_DIR"`

	// RedisURI is the connection string of the Redis cache backend.
	RedisURI Secret `json:"redisUri" env:"REDIS_URI"`

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout time.Duration `json:"httpTimeout" env:"HTTP_TIMEOUT" envDefault:"30s"`
}

// Validate implements [Validator].
func (s *Settings) Validate() error {
	if s.PrivateKeyPath == "" && s.PrivateKey.Value() == "" {
		return sserr.New(sserr.CodeConfigurationMissing,
			`config: one of "privKeyPath" or "privKey" is required`)
	}

	switch strings.ToLower(s.CacheBackend) {
	case CacheBackendFile:
	case CacheBackendRedis:
		if s.RedisURI.Value() == "" {
			return sserr.New(sserr.CodeConfigurationMissing,
				`config: "redisUri" is required when "cacheBackend" is "redis"`)
		}
	default:
		return sserr.Newf(sserr.CodeConfiguration,
			"config: unknown cacheBackend %q (use %q or %q)",
			s.CacheBackend, CacheBackendFile, CacheBackendRedis)
	}

	if s.AssertionLifetime <= 0 {
		return sserr.New(sserr.CodeConfiguration,
			"config: assertionLifetime must be positive")
	}
	if s.HTTPTimeout < 0 {
		return sserr.New(sserr.CodeConfiguration,
			"config: httpTimeout must be non-negative")
	}
	return nil
}

// EffectiveIssuer returns Issuer, falling back to ClientID.
func (s *Settings) EffectiveIssuer() string {
	if s.Issuer != "" {
		return s.Issuer
	}
	return s.ClientID
}
