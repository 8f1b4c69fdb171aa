package credential

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserr "github.com/StricklySoft/pdnd-client/pkg/errors"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func TestFromTTL_ExactExpiry(t *testing.T) {
	cred := FromTTL("T", fixedNow, 3600*time.Second)

	assert.Equal(t, "T", cred.Token)
	assert.Equal(t, fixedNow.Add(time.Hour), cred.ExpiresAt)
	assert.Equal(t, time.UTC, cred.ExpiresAt.Location())
}

func TestNew_Canonicalises(t *testing.T) {
	rome := time.FixedZone("CET", 3600)
	local := time.Date(2025, 3, 14, 10, 26, 53, 987654321, rome)

	cred := New("T", local)

	assert.Equal(t, fixedNow, cred.ExpiresAt)
	assert.Equal(t, time.UTC, cred.ExpiresAt.Location())
}

func TestCredential_ValidAt(t *testing.T) {
	tests := []struct {
		name string
		cred Credential
		want bool
	}{
		{"future expiry", Credential{Token: "T", ExpiresAt: fixedNow.Add(time.Second)}, true},
		{"expiry equals now", Credential{Token: "T", ExpiresAt: fixedNow}, false},
		{"past expiry", Credential{Token: "T", ExpiresAt: fixedNow.Add(-time.Minute)}, false},
		{"no expiry", Credential{Token: "T"}, false},
		{"no token", Credential{ExpiresAt: fixedNow.Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cred.ValidAt(fixedNow))
		})
	}
}

func TestCredential_NeverPrintsToken(t *testing.T) {
	cred := New("super-secret-token", fixedNow)

	assert.NotContains(t, cred.String(), "super-secret-token")
	assert.NotContains(t, fmt.Sprintf("%v", cred), "super-secret-token")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("credential", "cred", cred)
	assert.NotContains(t, buf.String(), "super-secret-token")
	assert.Contains(t, buf.String(), redacted)
}

func TestCredential_IsZero(t *testing.T) {
	assert.True(t, Credential{}.IsZero())
	assert.False(t, Credential{Token: "T"}.IsZero())
}

func TestParseExpiration(t *testing.T) {
	ts := fixedNow
	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{"nil", nil, time.Time{}},
		{"empty string", "", time.Time{}},
		{"cache layout", "2025-03-14 09:26:53", fixedNow},
		{"rfc3339 utc", "2025-03-14T09:26:53Z", fixedNow},
		{"rfc3339 offset", "2025-03-14T10:26:53+01:00", fixedNow},
		{"rfc3339 nano", "2025-03-14T09:26:53.5Z", fixedNow},
		{"no zone iso", "2025-03-14T09:26:53", fixedNow},
		{"time value", fixedNow.Add(250 * time.Millisecond), fixedNow},
		{"time pointer", &ts, fixedNow},
		{"nil time pointer", (*time.Time)(nil), time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExpiration(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseExpiration_InvalidFormat(t *testing.T) {
	inputs := []any{
		1700000000,
		int64(1700000000),
		1.7e9,
		map[string]any{"exp": "2025-03-14 09:26:53"},
		[]string{"2025-03-14 09:26:53"},
		"tomorrow",
		"14/03/2025 09:26",
	}

	for _, in := range inputs {
		t.Run(fmt.Sprintf("%T_%v", in, in), func(t *testing.T) {
			_, err := ParseExpiration(in)
			require.Error(t, err)
			assert.True(t, sserr.IsInvalidExpiration(err), "got %v", err)
		})
	}
}

func TestFormatExpiration(t *testing.T) {
	assert.Equal(t, "2025-03-14 09:26:53", FormatExpiration(fixedNow))
	assert.Equal(t, "2025-03-14 09:26:53", FormatExpiration(fixedNow.In(time.FixedZone("CET", 3600))))
	assert.Equal(t, "", FormatExpiration(time.Time{}))
}
