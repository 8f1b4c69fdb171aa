// Package tokencache persists the PDND voucher between runs, one record per
// purpose id.
//
// The record is the JSON object
//
//	{"token": "<voucher>", "exp": "2006-01-02 15:04:05"}
//
// with the expiry in UTC. Two backends share it: [FileCache], a file in the
// system temporary directory (the default), and [RedisCache].
//
// Reading is forgiving: a missing record, unreadable storage, corrupt JSON
// or missing fields are all cache misses, never errors. An "exp" that is
// present but of the wrong type or in an unknown layout is different: it
// fails with [sserr.CodeInvalidExpiration] so that bad data is noticed.
//
// Neither backend takes a lock. Two processes using the same purpose id may
// race; the loser's voucher is simply overwritten on the next exchange.
package tokencache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/StricklySoft/pdnd-client/pkg/credential"
	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// KeyPrefix prefixes the purpose id in file names and Redis keys.
const KeyPrefix = "pdnd_token_"

// Store loads and saves the cached credential of one purpose id.
type Store interface {
	// Load returns the cached credential. found is false on a cache miss;
	// err is non-nil only for an invalid expiration format.
	Load(ctx context.Context) (cred credential.Credential, found bool, err error)

	// Save replaces the cached credential.
	Save(ctx context.Context, cred credential.Credential) error
}

type options struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a cache backend.
type Option func(*options)

// WithDir places the cache file in dir instead of the system temporary
// directory. Only [FileCache] uses it.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithClock overrides the clock used by IsValid and by the Redis TTL.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger for swallowed read failures. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// record is the persisted form of a credential.
type record struct {
	Token string `json:"token"`
	Exp   string `json:"exp"`
}

func encodeRecord(cred credential.Credential) ([]byte, error) {
	if cred.Token == "" || cred.ExpiresAt.IsZero() {
		return nil, sserr.New(sserr.CodeCacheWrite,
			"tokencache: refusing to cache a credential without token or expiration")
	}
	return json.Marshal(record{
		Token: cred.Token,
		Exp:   credential.FormatExpiration(cred.ExpiresAt),
	})
}

// decodeRecord parses a stored record. It reports found=false for anything
// that does not look like a record and an error only for a bad "exp".
func decodeRecord(data []byte) (credential.Credential, bool, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return credential.Credential{}, false, nil
	}

	token, _ := raw["token"].(string)
	exp, hasExp := raw["exp"]
	if token == "" || !hasExp || exp == nil {
		return credential.Credential{}, false, nil
	}

	expiresAt, err := credential.ParseExpiration(exp)
	if err != nil {
		return credential.Credential{}, false, err
	}
	if expiresAt.IsZero() {
		return credential.Credential{}, false, nil
	}
	return credential.New(token, expiresAt), true, nil
}

// IsValidAt reports whether exp lies strictly after now. exp may be a
// timestamp string, a time.Time or a *time.Time; nil or an empty string is
// never valid. Any other type fails with [sserr.CodeInvalidExpiration].
func IsValidAt(exp any, now time.Time) (bool, error) {
	t, err := credential.ParseExpiration(exp)
	if err != nil {
		return false, err
	}
	if t.IsZero() {
		return false, nil
	}
	return now.Before(t), nil
}

// expiryMemo remembers the last expiration a backend loaded or saved, so
// IsValid(nil) and IsValid("") can fall back to it.
type expiryMemo struct {
	last time.Time
	now  func() time.Time
}

func (m *expiryMemo) remember(t time.Time) { m.last = t }

// isValid implements the IsValid method shared by the backends.
func (m *expiryMemo) isValid(exp any) (bool, error) {
	if exp == nil || exp == "" {
		if m.last.IsZero() {
			return false, nil
		}
		return m.now().Before(m.last), nil
	}
	return IsValidAt(exp, m.now())
}
