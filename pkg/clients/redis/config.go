// Package redis provides the Redis connection used by the token cache's
// Redis backend, with OpenTelemetry tracing and structured error handling.
//
// # Connection Management
//
// The client wraps go-redis (github.com/redis/go-redis/v9). Connection
// pooling and reconnection are handled by go-redis; the CLI is a short-lived
// process, so the pool is kept small.
//
// # Configuration
//
// Create a client using [NewClient] with a [Config]:
//
//	client, err := redis.NewClient(redis.Config{URI: "redis://cache:6379/0"})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// For testing, use [NewFromClient] to inject a mock:
//
//	mock := &mockCmdable{}
//	client := redis.NewFromClient(mock, nil)
//
// # OpenTelemetry Tracing
//
// Every command creates a client span with database semantic attributes
// (db.system, db.redis.database_index, db.statement). Statements carry
// keys only, never values, and are truncated to 100 characters.
package redis

import (
	"fmt"
	"net/url"
	"time"
)

// maxStatementTruncateLen is the maximum length for Redis command statements
// recorded in OpenTelemetry trace spans.
const maxStatementTruncateLen = 100

// Default pool and timeout settings.
const (
	// DefaultPoolSize is the maximum number of pooled connections.
	DefaultPoolSize = 2

	// DefaultMaxRetries is the number of go-redis command retries. The
	// client itself never retries above go-redis.
	DefaultMaxRetries = 1

	// DefaultDialTimeout is the maximum time to establish a connection.
	DefaultDialTimeout = 5 * time.Second

	// DefaultReadTimeout is the maximum time to wait for a reply.
	DefaultReadTimeout = 3 * time.Second

	// DefaultWriteTimeout is the maximum time to wait for a write.
	DefaultWriteTimeout = 3 * time.Second

	// DefaultHealthTimeout bounds a health check ping when the caller's
	// context has no deadline.
	DefaultHealthTimeout = 5 * time.Second
)

// Secret is a string type that redacts its value when printed, so that
// connection strings carrying passwords never reach logs.
type Secret string

// redacted is the placeholder string returned by Secret's string methods.
const redacted = "[REDACTED]"

// String returns "[REDACTED]".
func (s Secret) String() string {
	return redacted
}

// GoString returns "[REDACTED]" for %#v.
func (s Secret) GoString() string {
	return redacted
}

// Value returns the actual secret string.
func (s Secret) Value() string {
	return string(s)
}

// MarshalText implements encoding.TextMarshaler, returning "[REDACTED]".
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Config holds the Redis connection configuration.
type Config struct {
	// URI is a Redis connection string, e.g. "redis://:password@host:6379/0"
	// or "rediss://host:6380/1" for TLS.
	URI Secret `json:"-"`

	// PoolSize is the maximum number of connections in the pool.
	// Default: 2
	PoolSize int `json:"pool_size,omitempty"`

	// MaxRetries is the go-redis retry count. Set to -1 to disable.
	// Default: 1
	MaxRetries int `json:"max_retries,omitempty"`

	// DialTimeout is the maximum time to establish a new connection.
	// Default: 5s
	DialTimeout time.Duration `json:"dial_timeout,omitempty"`

	// ReadTimeout is the maximum time to wait for a reply.
	// Default: 3s
	ReadTimeout time.Duration `json:"read_timeout,omitempty"`

	// WriteTimeout is the maximum time to wait for a write.
	// Default: 3s
	WriteTimeout time.Duration `json:"write_timeout,omitempty"`
}

// Validate applies defaults for zero-valued fields and checks the
// configuration. Returns the first validation error encountered.
//
// Validation rules:
//   - URI must be set and have a redis:// or rediss:// scheme
//   - PoolSize must be >= 1
//   - Duration fields must not be negative
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.URI == "" {
		return fmt.Errorf("redis: config URI is required")
	}
	u, err := url.Parse(c.URI.Value())
	if err != nil {
		// url errors echo the input, which may hold a password.
		return fmt.Errorf("redis: config URI is not a valid URL")
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return fmt.Errorf("redis: config URI scheme must be redis:// or rediss://, got %q", u.Scheme)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("redis: config pool_size must be >= 1, got %d", c.PoolSize)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("redis: config dial_timeout must not be negative, got %v", c.DialTimeout)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("redis: config read_timeout must not be negative, got %v", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("redis: config write_timeout must not be negative, got %v", c.WriteTimeout)
	}
	return nil
}

// applyDefaults sets default values for zero-valued pool and timeout fields.
func (c *Config) applyDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// truncateStatement truncates a statement to [maxStatementTruncateLen]
// runes, suffixed with "...". The truncation is rune-aware.
func truncateStatement(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStatementTruncateLen {
		return s
	}
	return string(runes[:maxStatementTruncateLen]) + "..."
}
