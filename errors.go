package ideal

import (
	"github.com/juriansluiman/slm-ideal-payment/internal/core/domain"
)

// Re-export error types from domain package
type ErrorCode = domain.ErrorCode
type ErrorCategory = domain.Category
type AppError = domain.AppError
type BusinessError = domain.BusinessError

// Re-export error code constants
const (
	ErrCodeConfigInvalid          = domain.ErrCodeConfigInvalid
	ErrCodeCertificateNotFound    = domain.ErrCodeCertificateNotFound
	ErrCodeCertificateNotValid    = domain.ErrCodeCertificateNotValid
	ErrCodeKeyLoadFailed          = domain.ErrCodeKeyLoadFailed
	ErrCodeInvalidRequest         = domain.ErrCodeInvalidRequest
	ErrCodeHTTPRequestFailed      = domain.ErrCodeHTTPRequestFailed
	ErrCodeSignatureNotFound      = domain.ErrCodeSignatureNotFound
	ErrCodeReferenceInvalid       = domain.ErrCodeReferenceInvalid
	ErrCodeSignatureInvalid       = domain.ErrCodeSignatureInvalid
	ErrCodeSchemaValidationFailed = domain.ErrCodeSchemaValidationFailed
	ErrCodeUnexpectedRootElement  = domain.ErrCodeUnexpectedRootElement
	ErrCodeUnknownStatusCode      = domain.ErrCodeUnknownStatusCode
	ErrCodeMalformedResponse      = domain.ErrCodeMalformedResponse
	ErrCodeConsumerUnavailable    = domain.ErrCodeConsumerUnavailable
)

// Re-export error categories
const (
	CategoryConfiguration = domain.CategoryConfiguration
	CategoryTransport     = domain.CategoryTransport
	CategoryCryptographic = domain.CategoryCryptographic
	CategorySchema        = domain.CategorySchema
	CategoryBusiness      = domain.CategoryBusiness
	CategoryShape         = domain.CategoryShape
)

// Re-export sentinel errors for errors.Is
var (
	ErrConfigInvalid          = domain.ErrConfigInvalid
	ErrCertificateNotFound    = domain.ErrCertificateNotFound
	ErrCertificateNotValid    = domain.ErrCertificateNotValid
	ErrKeyLoadFailed          = domain.ErrKeyLoadFailed
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrHTTPRequestFailed      = domain.ErrHTTPRequestFailed
	ErrSignatureNotFound      = domain.ErrSignatureNotFound
	ErrReferenceInvalid       = domain.ErrReferenceInvalid
	ErrSignatureInvalid       = domain.ErrSignatureInvalid
	ErrSchemaValidationFailed = domain.ErrSchemaValidationFailed
	ErrUnexpectedRootElement  = domain.ErrUnexpectedRootElement
	ErrUnknownStatusCode      = domain.ErrUnknownStatusCode
	ErrMalformedResponse      = domain.ErrMalformedResponse
	ErrConsumerUnavailable    = domain.ErrConsumerUnavailable
)

// Re-export error constructors
var (
	ConfigError         = domain.ConfigError
	InvalidRequestError = domain.InvalidRequestError
	CodeOf              = domain.CodeOf
)
