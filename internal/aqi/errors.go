package aqi

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is returned when the upstream API could not be reached.
	ErrNetwork = errors.New("network error")
	// ErrAPI is returned when the upstream API answered with an error status or a malformed payload.
	ErrAPI = errors.New("api error")
	// ErrPersistence is returned when the history store rejected or failed a read or write.
	ErrPersistence = errors.New("persistence error")
	// ErrConfiguration is returned for missing or invalid configuration.
	ErrConfiguration = errors.New("configuration error")
)

// APIError carries the raw status and detail reported by the upstream API.
type APIError struct {
	Status string
	Detail string

	// InvalidToken is set when the API rejected the configured token.
	InvalidToken bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned status %q: %s", e.Status, e.Detail)
}

// Unwrap lets callers match the error with errors.Is against ErrAPI,
// and against ErrConfiguration when the token was rejected.
func (e *APIError) Unwrap() []error {
	if e.InvalidToken {
		return []error{ErrAPI, ErrConfiguration}
	}
	return []error{ErrAPI}
}

// Kind returns a short name for the error class, for logs and exit messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrAPI):
		return "api"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "unknown"
	}
}
