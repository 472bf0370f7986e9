package webmodule

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the module refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates a non-2xx status code
	ErrTypeHTTP
	// ErrTypeParse indicates a body that is not a valid egon_data document
	ErrTypeParse
	// ErrTypeAuth indicates the module rejected the credentials
	ErrTypeAuth
	// ErrTypeEmpty indicates the module answered with an empty body
	ErrTypeEmpty
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeAuth:
		return "Authorization Error"
	case ErrTypeEmpty:
		return "Empty Response"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError is returned by every failed exchange with the web module
type DeviceError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether repeating the request may succeed
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a transport error onto the error taxonomy
func ClassifyNetworkError(err error) *DeviceError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &DeviceError{Type: ErrTypeTimeout, Message: "request timed out", Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Type:    ErrTypeDNS,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:     err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &DeviceError{Type: ErrTypeConnectionRefused, Message: "module refused connection", Err: err, Retryable: true}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return ClassifyNetworkError(urlErr.Err)
	}

	return &DeviceError{Type: ErrTypeNetwork, Message: "network error occurred", Err: err, Retryable: true}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *DeviceError {
	classified := ClassifyNetworkError(err)
	if classified == nil {
		return &DeviceError{Type: ErrTypeNetwork, Message: message, Retryable: true}
	}
	classified.Message = message
	return classified
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error. The module sometimes serves a
// truncated document while it is busy, so parse errors are retryable.
func NewParseError(message string, err error) *DeviceError {
	return &DeviceError{Type: ErrTypeParse, Message: message, Err: err, Retryable: true}
}

// NewAuthError creates an authorization error
func NewAuthError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeAuth, Message: message}
}

// NewEmptyError creates an error for a response without content
func NewEmptyError(message string) *DeviceError {
	return &DeviceError{Type: ErrTypeEmpty, Message: message, Retryable: true}
}

func typeOf(err error) (ErrorType, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Type, true
	}
	return 0, false
}

// IsNetworkError reports whether err is a transport failure (including
// timeout, connection refused and DNS errors)
func IsNetworkError(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeTimeout || t == ErrTypeConnectionRefused || t == ErrTypeDNS)
}

// IsAuthError reports whether the module rejected the credentials
func IsAuthError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeAuth
}

// IsParseError reports whether a body could not be parsed
func IsParseError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeParse
}

// IsEmptyError reports whether the module answered without content
func IsEmptyError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeEmpty
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Retryable
	}
	return false
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTimeout:
		return "Module not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Module refused connection - check the address and the --https setting"
	case ErrTypeDNS:
		return "Cannot resolve module hostname"
	case ErrTypeAuth:
		return "Authorization failed - check user and password"
	case ErrTypeHTTP:
		return fmt.Sprintf("Module error (HTTP %d)", devErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse module response"
	case ErrTypeEmpty:
		return "Module returned no data"
	default:
		return strings.TrimSpace("Network error - " + devErr.Message)
	}
}
