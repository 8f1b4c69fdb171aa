package errors

import (
	"fmt"
)

// Detail keys attached by [Error.WithResponse].
const (
	DetailStatusCode   = "status_code"
	DetailResponseBody = "body"
)

// Error represents a structured error with a code, message, and optional cause.
//
// Error values are not modified after creation; the With* helpers return
// copies.
type Error struct {
	// Code is the machine-readable error code (e.g., "XCHG_002").
	Code Code

	// Message is the human-readable error message. It must not contain
	// tokens or key material.
	Message string

	// Cause is the underlying error that caused this error, if any.
	Cause error

	// Details contains additional structured data about the error, such as
	// the HTTP status and body of a rejected call.
	Details map[string]any
}

// Error implements the error interface, returning the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of this error, supporting
// errors.Unwrap() and errors.Is() from the standard library.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the process exit status the CLI uses for this error:
// 2 for configuration errors, 1 for everything else.
func (e *Error) ExitCode() int {
	if e.Code.Category() == "CFG" {
		return 2
	}
	return 1
}

// WithDetails returns a new Error with the specified details added.
// The original error is not modified.
func (e *Error) WithDetails(details map[string]any) *Error {
	newDetails := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		newDetails[k] = v
	}
	for k, v := range details {
		newDetails[k] = v
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: newDetails,
	}
}

// WithDetail returns a new Error with a single detail key-value pair added.
// The original error is not modified.
func (e *Error) WithDetail(key string, value any) *Error {
	return e.WithDetails(map[string]any{key: value})
}

// WithResponse returns a new Error carrying the HTTP status code and
// response body of the call that failed. Read them back with [StatusCode]
// and [ResponseBody].
func (e *Error) WithResponse(statusCode int, body string) *Error {
	return e.WithDetails(map[string]any{
		DetailStatusCode:   statusCode,
		DetailResponseBody: body,
	})
}

// Format implements fmt.Formatter for detailed error output.
// Use %v for standard output, %+v for detailed output including the cause chain.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "Error{Code: %q, Message: %q", e.Code, e.Message)
			if len(e.Details) > 0 {
				fmt.Fprintf(s, ", Details: %v", e.Details)
			}
			if e.Cause != nil {
				fmt.Fprintf(s, ", Cause: %+v", e.Cause)
			}
			fmt.Fprint(s, "}")
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
