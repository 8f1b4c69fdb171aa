package tokencache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/pdnd-client/internal/testutil"
	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

func TestIsValidAt(t *testing.T) {
	future := cacheTestNow.Add(time.Second)
	past := cacheTestNow.Add(-time.Second)

	tests := []struct {
		name string
		exp  any
		want bool
	}{
		{"nil", nil, false},
		{"empty string", "", false},
		{"future string", "2025-03-14 09:26:54", true},
		{"equal string", "2025-03-14 09:26:53", false},
		{"past string", "2025-03-14 09:26:52", false},
		{"rfc3339 future", "2025-03-14T10:26:54+01:00", true},
		{"future time", future, true},
		{"past time", past, false},
		{"now is not valid", cacheTestNow, false},
		{"future pointer", &future, true},
		{"nil pointer", (*time.Time)(nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsValidAt(tt.exp, cacheTestNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsValidAt_InvalidFormat(t *testing.T) {
	for _, exp := range []any{42, 1741946400.0, map[string]any{}, []string{"x"}, "next tuesday"} {
		_, err := IsValidAt(exp, cacheTestNow)
		testutil.AssertErrorCode(t, err, sserr.CodeInvalidExpiration, "exp=%v", exp)
		assert.True(t, sserr.IsInvalidExpiration(err))
	}
}
