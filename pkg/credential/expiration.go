package credential

import (
	"strings"
	"time"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

// CacheLayout is the timestamp layout written to cache records. Stored
// values are always UTC.
const CacheLayout = "2006-01-02 15:04:05"

// acceptedLayouts are the string layouts [ParseExpiration] recognises, in
// the order they are tried. Layouts without a zone are read as UTC.
var acceptedLayouts = []string{
	CacheLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseExpiration converts an expiration value to the canonical form.
//
// Accepted inputs are nil (returned as the zero time), a string in one of
// the accepted layouts, a time.Time, or a *time.Time. Any other type, or a
// string in no accepted layout, fails with [sserr.CodeInvalidExpiration].
// This failure marks a programming or data error; callers must not treat it
// as a cache miss.
func ParseExpiration(v any) (time.Time, error) {
	switch exp := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return Canonical(exp), nil
	case *time.Time:
		if exp == nil {
			return time.Time{}, nil
		}
		return Canonical(*exp), nil
	case string:
		s := strings.TrimSpace(exp)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range acceptedLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return Canonical(t), nil
			}
		}
		return time.Time{}, sserr.InvalidExpirationf(
			"credential: expiration %q is not a recognised timestamp", exp)
	default:
		return time.Time{}, sserr.InvalidExpirationf(
			"credential: expiration must be a timestamp string or time.Time, got %T", v)
	}
}

// FormatExpiration renders t in [CacheLayout]. The zero time renders as "".
func FormatExpiration(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return Canonical(t).Format(CacheLayout)
}
