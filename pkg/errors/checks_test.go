package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsError_WrappedInStandardError(t *testing.T) {
	platformErr := New(CodeAPICallStatus, "not found")
	wrapped := fmt.Errorf("calling api: %w", platformErr)

	got, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Same(t, platformErr, got)
}

func TestAsError_StandardError(t *testing.T) {
	got, ok := AsError(errors.New("plain"))
	assert.False(t, ok)
	assert.Nil(t, got)

	got, ok = AsError(nil)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(New(CodeSigningKey, "x"), CodeSigningKey))
	assert.False(t, HasCode(New(CodeSigningKey, "x"), CodeSigning))
	assert.False(t, HasCode(errors.New("plain"), CodeSigning))
	assert.False(t, HasCode(nil, CodeSigning))
}

func TestCategoryPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"configuration", Missingf("x"), IsConfiguration, true},
		{"configuration negative", New(CodeSigning, "x"), IsConfiguration, false},
		{"signing", New(CodeSigningKey, "x"), IsSigning, true},
		{"token exchange", New(CodeTokenExchangeResponse, "x"), IsTokenExchange, true},
		{"api call", New(CodeAPICallStatus, "x"), IsAPICall, true},
		{"api call negative", New(CodeTokenExchangeStatus, "x"), IsAPICall, false},
		{"invalid expiration", InvalidExpirationf("bad %d", 1), IsInvalidExpiration, true},
		{"cache", New(CodeCacheWrite, "x"), IsCache, true},
		{"standard error", errors.New("plain"), IsSigning, false},
		{"nil", nil, IsTokenExchange, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestStatusCodeAndResponseBody(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeAPICallStatus, "x").WithResponse(404, "Not Found"))

	assert.Equal(t, 404, StatusCode(err))
	assert.Equal(t, "Not Found", ResponseBody(err))

	bare := New(CodeAPICallTransport, "x")
	assert.Zero(t, StatusCode(bare))
	assert.Empty(t, ResponseBody(bare))
	assert.Zero(t, StatusCode(errors.New("plain")))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
	assert.Equal(t, 2, ExitCode(fmt.Errorf("wrap: %w", Configuration("x"))))
	assert.Equal(t, 1, ExitCode(New(CodeAPICallStatus, "x")))
}
