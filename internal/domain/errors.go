package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	if errors.Is(err, ErrSymbolNotFound) || errors.Is(err, ErrNoPrice) {
		return true
	}
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError is a quote feed transport failure.
type NetworkError struct {
	Op        string // dial, fetch, read, decode
	Status    int    // HTTP status when the server answered; 0 otherwise
	Err       error
	Retriable bool
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewStatusError classifies a non-200 reply from a quote server. Rate
// limiting and server errors are retriable; anything else is not.
func NewStatusError(op string, status int) *NetworkError {
	return &NetworkError{
		Op:        op,
		Status:    status,
		Err:       fmt.Errorf("unexpected status code: %d", status),
		Retriable: status == 429 || status >= 500,
	}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrStreamExhausted is returned by replay sources once every tick has been served.
	// It is a normal termination signal, not a failure.
	ErrStreamExhausted = errors.New("quote stream exhausted")

	// ErrSymbolNotFound is returned when a snapshot does not carry the requested symbol. Retriable.
	ErrSymbolNotFound = errors.New("symbol not in snapshot")

	// ErrNoPrice is returned when no usable price can be derived from a snapshot. Retriable.
	ErrNoPrice = errors.New("no usable price")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
