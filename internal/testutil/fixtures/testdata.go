// Package fixtures provides shared test data constants for the PDND client
// test suite.
//
// Using common constants for client identities and configuration documents
// prevents magic strings in tests and keeps packages consistent.
package fixtures

// Standard PDND client identity values used across signer, exchanger and
// cache tests.
const (
	// KeyID is the id of the registered public key.
	KeyID = "kid-7f3a2c"

	// ClientID is the client id, also used as issuer.
	ClientID = "9b361d49-33f4-4f1e-a88b-4e12661f2309"

	// PurposeID is the authorised purpose.
	PurposeID = "1b361d49-33f4-4f1e-a88b-4e12661f2300"

	// Audience is the client assertion audience of the UAT environment.
	Audience = "auth.uat.interop.pagopa.it/client-assertion"

	// AltPurposeID is a second purpose for tests that need two caches.
	AltPurposeID = "2c472e5a-44a5-4a2f-b99c-5f23772f3411"
)

// Standard exchange values.
const (
	// AccessToken is an opaque voucher returned by fake token endpoints.
	AccessToken = "voucher-abc-123"

	// TokenResponse is a successful token endpoint answer with a relative
	// expiry of ten minutes.
	TokenResponse = `{"access_token":"voucher-abc-123","token_type":"Bearer","expires_in":600}`
)

// Standard configuration values used in loader and CLI tests.
const (
	// EnvPrefix is the environment variable prefix used by the CLI.
	EnvPrefix = "PDND"

	// Environment is the environment selected in fixture documents.
	Environment = "collaudo"

	// ConfigJSON is a minimal valid configuration with one environment. The
	// key path is expected to be substituted by tests that sign.
	ConfigJSON = `{
  "collaudo": {
    "kid": "kid-7f3a2c",
    "issuer": "9b361d49-33f4-4f1e-a88b-4e12661f2309",
    "clientId": "9b361d49-33f4-4f1e-a88b-4e12661f2309",
    "purposeId": "1b361d49-33f4-4f1e-a88b-4e12661f2300",
    "privKeyPath": "%s",
    "audience": "auth.uat.interop.pagopa.it/client-assertion",
    "alg": "RS256",
    "endpoint": "%s"
  }
}`
)
