package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a resolution failure.
type ErrorCode string

const (
	// ErrCatalogUnavailable indicates a catalog could not be read or parsed.
	// Lookups treat such a catalog as empty; the code is reported through logs
	// and by APIs that load a single catalog explicitly.
	ErrCatalogUnavailable ErrorCode = "catalog-unavailable"
	// ErrAccessDenied indicates a URI was rejected by the allow/deny policy.
	ErrAccessDenied ErrorCode = "access-denied"
	// ErrFetchFailed indicates a network or file read failed.
	ErrFetchFailed ErrorCode = "fetch-failed"
	// ErrMalformedIdentifier indicates an identifier or URI could not be parsed.
	ErrMalformedIdentifier ErrorCode = "malformed-identifier"
	// ErrCacheIO indicates the resource cache directory could not be updated.
	ErrCacheIO ErrorCode = "cache-io"
)

// Error describes a resolution failure with a code and the URI involved.
//
//nolint:errname // public API name.
type Error struct {
	Err     error
	Code    ErrorCode
	URI     string
	Message string
}

// Error formats the error as "[code] message: uri: cause".
func (e *Error) Error() string {
	if e == nil {
		return "error <nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.URI != "" {
		fmt.Fprintf(&b, ": %s", e.URI)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds an Error without a cause.
func New(code ErrorCode, uri, msg string) *Error {
	return &Error{Code: code, URI: uri, Message: msg}
}

// Newf formats a message and builds an Error.
func Newf(code ErrorCode, uri, format string, args ...any) *Error {
	return New(code, uri, fmt.Sprintf(format, args...))
}

// Wrap builds an Error around err. It returns nil when err is nil.
func Wrap(code ErrorCode, uri, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, URI: uri, Message: msg, Err: err}
}

// AsError extracts the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
