// Package errors provides the structured error type used across the PDND
// client. Every failure surfaced by the core carries a machine-readable
// [Code] that identifies which part of the credential lifecycle failed.
//
// # Error Categories
//
//   - Configuration errors (CFG): missing or invalid settings
//   - Signing errors (SIGN): the client assertion could not be built
//   - Token exchange errors (XCHG): the authorization endpoint rejected the
//     assertion or answered with something unusable
//   - API call errors (API): the authenticated data call failed
//   - Expiration format errors (EXP): an expiration value is neither a
//     timestamp nor a recognised timestamp string
//   - Cache errors (CACHE): the token cache could not be written
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.CodeConfigurationMissing, "config: clientId is required")
//
// Wrap an existing error and attach the HTTP exchange for diagnostics:
//
//	err := errors.Wrap(err, errors.CodeTokenExchangeStatus, "exchange: token endpoint rejected assertion").
//	    WithResponse(resp.StatusCode, string(body))
//
// Inspect an error:
//
//	if errors.IsTokenExchange(err) {
//	    slog.Error("token exchange failed",
//	        "status", errors.StatusCode(err),
//	        "body", errors.ResponseBody(err),
//	    )
//	}
package errors
