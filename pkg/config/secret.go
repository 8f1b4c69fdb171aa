package config

// Secret is a string type that redacts its value in String(), GoString(),
// and MarshalText() so that key material and connection passwords never
// reach logs or serialized output. Use [Secret.Value] where the raw value
// is needed.
type Secret string

const secretRedacted = "[REDACTED]"

// String returns the redacted placeholder.
func (s Secret) String() string { return secretRedacted }

// GoString returns the redacted placeholder for %#v.
func (s Secret) GoString() string { return secretRedacted }

// Value returns the actual secret string.
func (s Secret) Value() string { return string(s) }

// MarshalText implements [encoding.TextMarshaler], returning the redacted
// placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte(secretRedacted), nil }
