package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure into one of the canonical categories.
// Every failure leaving an adapter or the token manager carries exactly
// one kind; vendor-specific error shapes never escape.
type ErrorKind string

const (
	// ErrorKindValidation indicates a malformed request or an unexpected
	// vendor payload shape.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindNotFound indicates the connection or entity does not exist.
	ErrorKindNotFound ErrorKind = "not_found"

	// ErrorKindAuthentication indicates credentials are invalid, expired
	// and unrefreshable, or rejected by the vendor.
	ErrorKindAuthentication ErrorKind = "authentication"

	// ErrorKindRateLimit indicates vendor throttling after the retry
	// budget was exhausted.
	ErrorKindRateLimit ErrorKind = "rate_limit"

	// ErrorKindProviderUnavailable indicates a network failure, timeout,
	// or vendor 5xx response.
	ErrorKindProviderUnavailable ErrorKind = "provider_unavailable"
)

// Kind sentinels for errors.Is checks across layers.
var (
	ErrValidation          = &Error{Kind: ErrorKindValidation, Message: "validation failed"}
	ErrNotFound            = &Error{Kind: ErrorKindNotFound, Message: "not found"}
	ErrAuthentication      = &Error{Kind: ErrorKindAuthentication, Message: "authentication failed"}
	ErrRateLimit           = &Error{Kind: ErrorKindRateLimit, Message: "rate limited"}
	ErrProviderUnavailable = &Error{Kind: ErrorKindProviderUnavailable, Message: "provider unavailable"}
)

// Error is the canonical error shape returned by adapters, the token
// manager, and the router. VendorStatus and VendorCode are diagnostics
// only; callers must branch on Kind.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	// VendorStatus is the vendor HTTP status, if one was observed.
	VendorStatus int `json:"vendor_status,omitempty"`

	// VendorCode is the vendor's native error code, if one was supplied.
	VendorCode string `json:"vendor_code,omitempty"`
}

func (e *Error) Error() string {
	if e.VendorStatus != 0 {
		return fmt.Sprintf("%s: %s (vendor status %d)", e.Kind, e.Message, e.VendorStatus)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so
// errors.Is(err, domain.ErrNotFound) works regardless of message.
func (e *Error) Is(target error) bool {
	var de *Error
	if !errors.As(target, &de) {
		return false
	}
	return e.Kind == de.Kind
}

// NewValidationError reports a malformed request or vendor payload.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports a missing connection or entity.
func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewAuthenticationError reports invalid or unrefreshable credentials.
func NewAuthenticationError(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindAuthentication, Message: fmt.Sprintf(format, args...)}
}

// NewRateLimitError reports exhausted vendor throttling retries.
func NewRateLimitError(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindRateLimit, Message: fmt.Sprintf(format, args...)}
}

// NewProviderUnavailableError reports a vendor outage, 5xx, or timeout.
func NewProviderUnavailableError(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindProviderUnavailable, Message: fmt.Sprintf(format, args...)}
}

// WithVendorStatus attaches the observed vendor HTTP status for diagnostics.
func (e *Error) WithVendorStatus(status int) *Error {
	e.VendorStatus = status
	return e
}

// WithVendorCode attaches the vendor's native error code for diagnostics.
func (e *Error) WithVendorCode(code string) *Error {
	e.VendorCode = code
	return e
}

// IsNotFound reports whether err is a canonical not_found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthentication reports whether err is a canonical authentication error.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsRateLimit reports whether err is a canonical rate_limit error.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

// IsProviderUnavailable reports whether err is a canonical
// provider_unavailable error.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsValidation reports whether err is a canonical validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
