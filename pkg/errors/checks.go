package errors

import (
	"errors"
)

// AsError attempts to convert an error to an *Error.
// Returns the Error and true if successful, nil and false otherwise.
// This function traverses the error chain using errors.As.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the error code from an error.
// If the error is not an *Error or is nil, returns an empty string.
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode checks if an error has the specified error code.
// Returns false if the error is nil or not an *Error.
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

func hasCategory(err error, category string) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == category
}

// IsConfiguration reports whether err is a configuration error (CFG_xxx).
func IsConfiguration(err error) bool {
	return hasCategory(err, "CFG")
}

// IsSigning reports whether err is an assertion signing error (SIGN_xxx).
func IsSigning(err error) bool {
	return hasCategory(err, "SIGN")
}

// IsTokenExchange reports whether err is a token exchange error (XCHG_xxx).
func IsTokenExchange(err error) bool {
	return hasCategory(err, "XCHG")
}

// IsAPICall reports whether err is an authenticated API call error (API_xxx).
func IsAPICall(err error) bool {
	return hasCategory(err, "API")
}

// IsInvalidExpiration reports whether err is an expiration format error
// (EXP_xxx). These signal a programming or data error and are never
// swallowed as cache misses.
func IsInvalidExpiration(err error) bool {
	return hasCategory(err, "EXP")
}

// IsCache reports whether err is a token cache error (CACHE_xxx).
func IsCache(err error) bool {
	return hasCategory(err, "CACHE")
}

// StatusCode returns the HTTP status code attached to err with
// [Error.WithResponse], or 0 if there is none (e.g., transport failures).
func StatusCode(err error) int {
	e, ok := AsError(err)
	if !ok {
		return 0
	}
	code, _ := e.Details[DetailStatusCode].(int)
	return code
}

// ResponseBody returns the HTTP response body attached to err with
// [Error.WithResponse], or "" if there is none.
func ResponseBody(err error) string {
	e, ok := AsError(err)
	if !ok {
		return ""
	}
	body, _ := e.Details[DetailResponseBody].(string)
	return body
}

// ExitCode returns the CLI exit status for err: 0 for nil, the code's
// [Error.ExitCode] for an *Error anywhere in the chain, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := AsError(err); ok {
		return e.ExitCode()
	}
	return 1
}
