package tokencache

import (
	"context"
	"log/slog"
	"time"

	"github.com/StricklySoft/pdnd-client/pkg/clients/redis"
	"github.com/StricklySoft/pdnd-client/pkg/credential"
	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// RedisCache stores the record at key pdnd_token_<purposeId> with a TTL
// equal to the voucher's remaining lifetime, so Redis drops it when it
// expires.
type RedisCache struct {
	client *redis.Client
	key    string
	logger *slog.Logger
	memo   expiryMemo
}

// Compile-time interface compliance check.
var _ Store = (*RedisCache)(nil)

// NewRedisCache returns the Redis cache of purposeID on client. The caller
// owns client and closes it.
func NewRedisCache(client *redis.Client, purposeID string, opts ...Option) *RedisCache {
	o := buildOptions(opts)
	return &RedisCache{
		client: client,
		key:    KeyPrefix + purposeID,
		logger: o.logger,
		memo:   expiryMemo{now: o.now},
	}
}

// Key returns the Redis key of the record.
func (c *RedisCache) Key() string {
	return c.key
}

// Load reads the record. Missing keys, backend failures and malformed
// records are misses.
func (c *RedisCache) Load(ctx context.Context) (credential.Credential, bool, error) {
	val, err := c.client.Get(ctx, c.key)
	if err != nil {
		if !redis.IsNil(err) {
			c.logger.Warn("redis token cache unavailable, treating as miss",
				slog.String("key", c.key), slog.Any("error", err))
		}
		return credential.Credential{}, false, nil
	}

	cred, found, err := decodeRecord([]byte(val))
	if err != nil {
		return credential.Credential{}, false, sserr.Wrapf(err, sserr.CodeInvalidExpiration,
			"tokencache: key %s holds an invalid expiration", c.key)
	}
	if !found {
		c.logger.Debug("redis token cache malformed, treating as miss", slog.String("key", c.key))
		return credential.Credential{}, false, nil
	}
	c.memo.remember(cred.ExpiresAt)
	return cred, true, nil
}

// Save writes the record with a TTL of the remaining lifetime. A credential
// that has less than a second left is not stored and any previous record is
// removed.
func (c *RedisCache) Save(ctx context.Context, cred credential.Credential) error {
	data, err := encodeRecord(cred)
	if err != nil {
		return err
	}

	ttl := cred.ExpiresAt.Sub(c.memo.now())
	if ttl < time.Second {
		if _, err := c.client.Del(ctx, c.key); err != nil {
			return sserr.Wrapf(err, sserr.CodeCacheWrite, "tokencache: failed to clear %s", c.key)
		}
		return nil
	}

	if err := c.client.Set(ctx, c.key, string(data), ttl); err != nil {
		return sserr.Wrapf(err, sserr.CodeCacheWrite, "tokencache: failed to write %s", c.key)
	}
	c.memo.remember(cred.ExpiresAt)
	return nil
}

// IsValid reports whether exp is strictly in the future; nil or "" falls
// back to the expiration last loaded or saved.
func (c *RedisCache) IsValid(exp any) (bool, error) {
	return c.memo.isValid(exp)
}
