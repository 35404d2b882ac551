package config

import "fmt"

// ErrorKind classifies configuration failures.
type ErrorKind int

const (
	// MissingCredential means no layer supplied an API key.
	MissingCredential ErrorKind = iota + 1
	// Malformed means a config file could not be read or parsed.
	Malformed
	// Invalid means a merged value failed validation.
	Invalid
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case MissingCredential:
		return "MissingCredential"
	case Malformed:
		return "Malformed"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Error is returned by Resolve. It is terminal for the invocation.
type Error struct {
	Kind   ErrorKind
	Path   string
	Key    string
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case MissingCredential:
		return fmt.Sprintf("%s: no API key configured (set %s, pass --%s, or run `%s config set %s <key>`)",
			e.Kind, EnvVar(KeyAPIKey), FlagAPIKey, AppName, KeyAPIKey)
	case Malformed:
		return fmt.Sprintf("malformed config file %s: %s", e.Path, e.Detail)
	case Invalid:
		return fmt.Sprintf("invalid config value for %s: %s", e.Key, e.Detail)
	default:
		return "configuration error: " + e.Detail
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
