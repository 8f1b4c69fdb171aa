package errors

// Code represents a machine-readable error code. Codes follow the pattern
// CATEGORY_XXX where CATEGORY names the failing component and XXX is a
// three-digit number.
//
// Codes are stable once assigned; scripts wrapping the CLI may match on
// them.
type Code string

// Error code categories:
//
//	CFG_xxx   - Configuration errors (exit status 2)
//	SIGN_xxx  - Assertion signing errors
//	XCHG_xxx  - Token exchange errors
//	API_xxx   - Authenticated API call errors
//	EXP_xxx   - Expiration format errors
//	CACHE_xxx - Token cache errors
const (
	// CodeConfiguration indicates a general configuration failure.
	CodeConfiguration Code = "CFG_001"

	// CodeConfigurationMissing indicates a required setting is absent.
	CodeConfigurationMissing Code = "CFG_002"

	// CodeConfigurationEnvironment indicates the requested environment is
	// not present in the configuration file.
	CodeConfigurationEnvironment Code = "CFG_003"

	// CodeSigning indicates the signature operation itself failed.
	CodeSigning Code = "SIGN_001"

	// CodeSigningKey indicates the private key could not be read or parsed,
	// or does not match the configured algorithm.
	CodeSigningKey Code = "SIGN_002"

	// CodeTokenExchangeTransport indicates the request to the authorization
	// endpoint could not be completed.
	CodeTokenExchangeTransport Code = "XCHG_001"

	// CodeTokenExchangeStatus indicates the authorization endpoint answered
	// with a non-2xx status.
	CodeTokenExchangeStatus Code = "XCHG_002"

	// CodeTokenExchangeResponse indicates a 2xx answer whose body lacked a
	// token or a usable expiry.
	CodeTokenExchangeResponse Code = "XCHG_003"

	// CodeAPICallTransport indicates an authenticated call could not be
	// completed.
	CodeAPICallTransport Code = "API_001"

	// CodeAPICallStatus indicates an authenticated call answered with a
	// non-2xx status.
	CodeAPICallStatus Code = "API_002"

	// CodeInvalidExpiration indicates an expiration value of an
	// unsupported type or layout.
	CodeInvalidExpiration Code = "EXP_001"

	// CodeCacheWrite indicates the token cache could not be persisted.
	CodeCacheWrite Code = "CACHE_001"

	// CodeCacheBackend indicates the remote cache backend could not be
	// reached or rejected a command.
	CodeCacheBackend Code = "CACHE_002"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g., "CFG", "XCHG").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
