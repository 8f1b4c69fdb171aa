// Package credential defines the access credential issued by the PDND
// authorization server and the conversion of expiration values into their
// canonical form.
//
// Every expiration inside the client is an absolute UTC instant truncated to
// whole seconds. Values coming from outside (cache files, token endpoint
// responses) are converted with [ParseExpiration] or [FromTTL] at the
// boundary and never carried deeper as strings or durations.
package credential

import (
	"log/slog"
	"time"
)

// redacted replaces the bearer token in logs and formatted output.
const redacted = "[REDACTED]"

// Credential is a bearer token and the instant it stops being usable.
// A zero ExpiresAt means the expiration is unknown and the credential is
// never valid.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// New returns a Credential with expiresAt normalised to the canonical form.
func New(token string, expiresAt time.Time) Credential {
	return Credential{Token: token, ExpiresAt: Canonical(expiresAt)}
}

// FromTTL returns a Credential expiring ttl after now. It is the conversion
// used for relative "expires_in" answers.
func FromTTL(token string, now time.Time, ttl time.Duration) Credential {
	return New(token, now.Add(ttl))
}

// ValidAt reports whether the credential has a token and an expiration
// strictly after now.
func (c Credential) ValidAt(now time.Time) bool {
	if c.Token == "" || c.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(c.ExpiresAt)
}

// Valid reports whether the credential is usable at the current time.
func (c Credential) Valid() bool {
	return c.ValidAt(time.Now())
}

// IsZero reports whether c holds neither a token nor an expiration.
func (c Credential) IsZero() bool {
	return c.Token == "" && c.ExpiresAt.IsZero()
}

// String implements fmt.Stringer without exposing the token.
func (c Credential) String() string {
	if c.ExpiresAt.IsZero() {
		return "Credential{token: " + redacted + ", expires: never set}"
	}
	return "Credential{token: " + redacted + ", expires: " + c.ExpiresAt.Format(time.RFC3339) + "}"
}

// LogValue implements [slog.LogValuer] so that logging a Credential never
// writes the bearer token.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("token", redacted),
		slog.Time("expires_at", c.ExpiresAt),
	)
}

// Canonical converts t to the canonical expiration form: UTC, whole seconds.
// The zero time is returned unchanged.
func Canonical(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Second)
}
