// Package tokensource hands out a valid PDND voucher, reusing the cached one
// while it lasts and running the assertion exchange otherwise.
package tokensource

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/StricklySoft/pdnd-client/pkg/credential"
	"github.com/StricklySoft/pdnd-client/pkg/tokencache"
)

// Signer produces a signed client assertion.
type Signer interface {
	Sign(ctx context.Context) (string, error)
}

// Exchanger trades a client assertion for a voucher.
type Exchanger interface {
	Exchange(ctx context.Context, assertion string) (credential.Credential, error)
}

// Option configures a [Source].
type Option func(*Source)

// WithClock overrides the clock used to judge expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// Source returns a voucher from memory, from its store, or from a fresh
// exchange, in that order. It is safe for concurrent use; concurrent
// callers share a single exchange.
type Source struct {
	store     tokencache.Store
	signer    Signer
	exchanger Exchanger
	now       func() time.Time
	logger    *slog.Logger

	mu   sync.Mutex
	cred credential.Credential
}

// New returns a Source reading and writing store.
func New(store tokencache.Store, signer Signer, exchanger Exchanger, opts ...Option) *Source {
	s := &Source{
		store:     store,
		signer:    signer,
		exchanger: exchanger,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns a voucher valid now.
//
// A stored credential with an unreadable expiration fails with
// an EXP_001 error. Signing, exchange and save failures are
// returned as they come; a credential that could not be saved is not
// returned.
func (s *Source) Token(ctx context.Context) (credential.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cred.ValidAt(now) {
		s.logger.DebugContext(ctx, "voucher reused", slog.String("cache_hit", "memory"), slog.Any("credential", s.cred))
		return s.cred, nil
	}

	cached, found, err := s.store.Load(ctx)
	if err != nil {
		return credential.Credential{}, err
	}
	if found && cached.ValidAt(now) {
		s.cred = cached
		s.logger.InfoContext(ctx, "voucher loaded from cache", slog.Bool("cache_hit", true), slog.Any("credential", cached))
		return cached, nil
	}
	if found {
		s.logger.DebugContext(ctx, "cached voucher expired", slog.Time("expires_at", cached.ExpiresAt))
	}

	cred, err := s.fetch(ctx)
	if err != nil {
		return credential.Credential{}, err
	}
	if err := s.store.Save(ctx, cred); err != nil {
		return credential.Credential{}, err
	}
	s.cred = cred
	s.logger.InfoContext(ctx, "voucher obtained", slog.Bool("cache_hit", false), slog.Any("credential", cred))
	return cred, nil
}

func (s *Source) fetch(ctx context.Context) (credential.Credential, error) {
	assertion, err := s.signer.Sign(ctx)
	if err != nil {
		return credential.Credential{}, err
	}
	return s.exchanger.Exchange(ctx, assertion)
}
