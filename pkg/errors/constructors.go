package errors

import (
	"fmt"
)

// New creates a new Error with the specified code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with the specified code and formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeConfigurationEnvironment, "config: environment %q not found", env)
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
// The wrapped error becomes the Cause of the new error.
// If err is nil, Wrap returns nil.
//
// Example:
//
//	resp, err := client.Do(req)
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeAPICallTransport, "pdnd: API request failed")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a formatted message.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// Configuration creates a new configuration error.
func Configuration(message string) *Error {
	return New(CodeConfiguration, message)
}

// Missingf creates a new missing-setting error with a formatted message.
//
// Example:
//
//	err := errors.Missingf("assertion: %s is required", "purposeId")
func Missingf(format string, args ...any) *Error {
	return Newf(CodeConfigurationMissing, format, args...)
}

// InvalidExpirationf creates a new expiration format error.
func InvalidExpirationf(format string, args ...any) *Error {
	return Newf(CodeInvalidExpiration, format, args...)
}
