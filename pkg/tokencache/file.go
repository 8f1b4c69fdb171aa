package tokencache

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/StricklySoft/pdnd-client/pkg/credential"
	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// FileCache stores the record in <dir>/pdnd_token_<purposeId>.json, where
// dir defaults to [os.TempDir]. Files are written with mode 0600.
type FileCache struct {
	path   string
	logger *slog.Logger
	memo   expiryMemo
}

// Compile-time interface compliance check.
var _ Store = (*FileCache)(nil)

// NewFileCache returns the file cache of purposeID.
func NewFileCache(purposeID string, opts ...Option) *FileCache {
	o := buildOptions(opts)
	dir := o.dir
	if dir == "" {
		dir = os.TempDir()
	}
	return &FileCache{
		path:   filepath.Join(dir, fileName(purposeID)),
		logger: o.logger,
		memo:   expiryMemo{now: o.now},
	}
}

// fileName keeps the purpose id inside the cache directory.
func fileName(purposeID string) string {
	return KeyPrefix + filepath.Base(filepath.Clean("/"+purposeID)) + ".json"
}

// Path returns the cache file location.
func (c *FileCache) Path() string {
	return c.path
}

// Load reads the cache file. See the package documentation for which
// failures are misses.
func (c *FileCache) Load(_ context.Context) (credential.Credential, bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Debug("token cache unreadable, treating as miss",
				slog.String("path", c.path), slog.Any("error", err))
		}
		return credential.Credential{}, false, nil
	}

	cred, found, err := decodeRecord(data)
	if err != nil {
		return credential.Credential{}, false, sserr.Wrapf(err, sserr.CodeInvalidExpiration,
			"tokencache: %s holds an invalid expiration", c.path)
	}
	if !found {
		c.logger.Debug("token cache malformed, treating as miss", slog.String("path", c.path))
		return credential.Credential{}, false, nil
	}
	c.memo.remember(cred.ExpiresAt)
	return cred, true, nil
}

// Save writes the record through a temporary file renamed into place, so a
// reader never sees a partial record.
func (c *FileCache) Save(_ context.Context, cred credential.Credential) error {
	data, err := encodeRecord(cred)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return sserr.Wrapf(err, sserr.CodeCacheWrite, "tokencache: failed to write %s", c.path)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return sserr.Wrapf(err, sserr.CodeCacheWrite, "tokencache: failed to write %s", c.path)
	}
	if err := tmp.Close(); err != nil {
		return sserr.Wrapf(err, sserr.CodeCacheWrite, "tokencache: failed to write %s", c.path)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return sserr.Wrapf(err, sserr.CodeCacheWrite, "tokencache: failed to write %s", c.path)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return sserr.Wrapf(err, sserr.CodeCacheWrite, "tokencache: failed to write %s", c.path)
	}

	c.memo.remember(cred.ExpiresAt)
	return nil
}

// IsValid reports whether exp is strictly in the future. A nil or empty exp
// falls back to the expiration last loaded or saved by this cache, and is false
// when there is none.
func (c *FileCache) IsValid(exp any) (bool, error) {
	return c.memo.isValid(exp)
}
