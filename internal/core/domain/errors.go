package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents categorized error types.
// These codes are stable and can be used for programmatic error handling.
type ErrorCode string

const (
	ErrCodeConfigInvalid          ErrorCode = "config_invalid"
	ErrCodeCertificateNotFound    ErrorCode = "certificate_not_found"
	ErrCodeCertificateNotValid    ErrorCode = "certificate_not_valid"
	ErrCodeKeyLoadFailed          ErrorCode = "key_load_failed"
	ErrCodeInvalidRequest         ErrorCode = "invalid_request"
	ErrCodeHTTPRequestFailed      ErrorCode = "http_request_failed"
	ErrCodeSignatureNotFound      ErrorCode = "signature_not_found"
	ErrCodeReferenceInvalid       ErrorCode = "reference_invalid"
	ErrCodeSignatureInvalid       ErrorCode = "signature_invalid"
	ErrCodeSchemaValidationFailed ErrorCode = "schema_validation_failed"
	ErrCodeUnexpectedRootElement  ErrorCode = "unexpected_root_element"
	ErrCodeUnknownStatusCode      ErrorCode = "unknown_status_code"
	ErrCodeMalformedResponse      ErrorCode = "malformed_response"
	ErrCodeConsumerUnavailable    ErrorCode = "consumer_unavailable"
)

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category groups error codes by the layer that produced them.
type Category string

const (
	CategoryConfiguration Category = "configuration"
	CategoryTransport     Category = "transport"
	CategoryCryptographic Category = "cryptographic"
	CategorySchema        Category = "schema"
	CategoryBusiness      Category = "business"
	CategoryShape         Category = "unexpected_shape"
)

// Category returns the error category for this code.
func (c ErrorCode) Category() Category {
	switch c {
	case ErrCodeConfigInvalid, ErrCodeCertificateNotFound, ErrCodeCertificateNotValid,
		ErrCodeKeyLoadFailed, ErrCodeInvalidRequest, ErrCodeConsumerUnavailable:
		return CategoryConfiguration
	case ErrCodeHTTPRequestFailed:
		return CategoryTransport
	case ErrCodeSignatureNotFound, ErrCodeReferenceInvalid, ErrCodeSignatureInvalid:
		return CategoryCryptographic
	case ErrCodeSchemaValidationFailed:
		return CategorySchema
	default:
		return CategoryShape
	}
}

// AppError is a structured error with code, message, and optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code, so the
// sentinel values below can be matched with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinel errors for errors.Is matching. Only the code is compared.
var (
	ErrConfigInvalid          = &AppError{Code: ErrCodeConfigInvalid, Message: "configuration invalid"}
	ErrCertificateNotFound    = &AppError{Code: ErrCodeCertificateNotFound, Message: "certificate not found"}
	ErrCertificateNotValid    = &AppError{Code: ErrCodeCertificateNotValid, Message: "certificate not valid"}
	ErrKeyLoadFailed          = &AppError{Code: ErrCodeKeyLoadFailed, Message: "private key could not be loaded"}
	ErrInvalidRequest         = &AppError{Code: ErrCodeInvalidRequest, Message: "invalid request"}
	ErrHTTPRequestFailed      = &AppError{Code: ErrCodeHTTPRequestFailed, Message: "HTTP request failed"}
	ErrSignatureNotFound      = &AppError{Code: ErrCodeSignatureNotFound, Message: "signature not found"}
	ErrReferenceInvalid       = &AppError{Code: ErrCodeReferenceInvalid, Message: "reference validation failed"}
	ErrSignatureInvalid       = &AppError{Code: ErrCodeSignatureInvalid, Message: "signature invalid"}
	ErrSchemaValidationFailed = &AppError{Code: ErrCodeSchemaValidationFailed, Message: "schema validation failed"}
	ErrUnexpectedRootElement  = &AppError{Code: ErrCodeUnexpectedRootElement, Message: "unexpected root element"}
	ErrUnknownStatusCode      = &AppError{Code: ErrCodeUnknownStatusCode, Message: "unknown status code"}
	ErrMalformedResponse      = &AppError{Code: ErrCodeMalformedResponse, Message: "malformed response"}
	ErrConsumerUnavailable    = &AppError{Code: ErrCodeConsumerUnavailable, Message: "consumer unavailable while transaction status is unknown"}
)

// CodeOf extracts the ErrorCode from err, if it is (or wraps) an AppError.
func CodeOf(err error) (ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// ConfigError creates a configuration error.
func ConfigError(message string) *AppError {
	return &AppError{Code: ErrCodeConfigInvalid, Message: message}
}

// InvalidRequestError creates an invalid request error.
func InvalidRequestError(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidRequest, Message: message}
}

// MalformedResponseError creates a malformed response error with optional cause.
func MalformedResponseError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeMalformedResponse, Message: message, Cause: cause}
}

// HTTPRequestError creates a transport error with optional cause.
func HTTPRequestError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeHTTPRequestFailed, Message: message, Cause: cause}
}

// BusinessError is a protocol-level error returned by the acquirer in a
// correctly signed <Error> block. It is deliberately not an AppError so
// callers can branch on it with errors.As.
type BusinessError struct {
	Code            string
	Message         string
	Detail          string
	SuggestedAction string
	ConsumerMessage string
}

// Error implements the error interface.
func (e *BusinessError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%s): %q", e.Message, e.Code, e.Detail)
}

// Category always reports CategoryBusiness.
func (e *BusinessError) Category() Category {
	return CategoryBusiness
}
