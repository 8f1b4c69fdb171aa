// Package testutil provides shared test helpers for the PDND client.
//
// All helpers accept [testing.TB] for compatibility with both tests and
// benchmarks. Functions that halt the test on failure use [require] from
// testify; functions that record failures without stopping use [assert].
//
// Every helper calls t.Helper() so that test failure messages report the
// caller's file and line number rather than this package's.
package testutil

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// ===========================================================================
// Errors
// ===========================================================================

// RequireErrorCode halts the test if err is nil, is not an *sserr.Error,
// or does not carry the expected error code.
//
// Example:
//
//	_, err := assertion.NewSigner(assertion.Config{})
//	testutil.RequireErrorCode(t, err, sserr.CodeConfigurationMissing)
func RequireErrorCode(t testing.TB, err error, code sserr.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	ssErr, ok := sserr.AsError(err)
	require.True(t, ok, "expected *sserr.Error, got %T: %v", err, err)
	require.Equal(t, code, ssErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		ssErr.Code, code, ssErr.Message)
}

// AssertErrorCode records a test failure (without halting) if err is nil,
// is not an *sserr.Error, or does not carry the expected error code.
// Use this in table-driven tests where you want to check all rows.
func AssertErrorCode(t testing.TB, err error, code sserr.Code, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	ssErr, ok := sserr.AsError(err)
	if !assert.True(t, ok, "expected *sserr.Error, got %T: %v", err, err) {
		return false
	}
	return assert.Equal(t, code, ssErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		ssErr.Code, code, ssErr.Message)
}

// ===========================================================================
// Files
// ===========================================================================

// TempFile creates a file with the given name and content inside
// t.TempDir() with mode 0600 and returns its path.
func TempFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err, "failed to write temp file %s", path)
	return path
}

// AssertJSONNotContains marshals v to JSON and asserts that the result
// does not contain the unexpected substring. Useful for verifying that
// tokens and keys are redacted.
func AssertJSONNotContains(t testing.TB, v any, unexpected string) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err, "json.Marshal failed")
	assert.NotContains(t, string(data), unexpected,
		"expected JSON to NOT contain %q, got: %s", unexpected, string(data))
}

// ===========================================================================
// Keys and tokens
// ===========================================================================

// GenerateRSAKey returns a fresh 2048-bit RSA key and its PKCS#8 PEM
// encoding.
func GenerateRSAKey(t testing.TB) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate RSA key")
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err, "failed to marshal RSA key")
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

// GenerateECKey returns a fresh P-256 key and its SEC 1 PEM encoding.
func GenerateECKey(t testing.TB) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "failed to generate EC key")
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err, "failed to marshal EC key")
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

// WriteRSAKeyFile writes a fresh RSA key to a temp file and returns the key
// and the file path.
func WriteRSAKeyFile(t testing.TB) (*rsa.PrivateKey, string) {
	t.Helper()
	key, pemText := GenerateRSAKey(t)
	return key, TempFile(t, "client.pem", pemText)
}

// SignedAccessToken returns an HS256 JWT whose "exp" claim is exp. The
// exchanger reads it unverified, so the signing key is irrelevant.
func SignedAccessToken(t testing.TB, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "voucher",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("voucher-test-signing-key-32bytes"))
	require.NoError(t, err, "failed to sign access token")
	return signed
}

// ===========================================================================
// Tracing
// ===========================================================================

// InstallSpanRecorder installs a synchronous in-memory tracer provider as
// the global provider and restores the previous one on cleanup. Packages
// resolve their tracer at construction, so call this before building the
// component under test.
func InstallSpanRecorder(t testing.TB) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

// SpanNames returns the names of the spans recorded by exporter.
func SpanNames(exporter *tracetest.InMemoryExporter) []string {
	spans := exporter.GetSpans()
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name)
	}
	return names
}
