// Package domain provides the rocket, collection, event, and error types shared by
// every layer of the payment gateway.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a gateway error.
type ErrorType string

const (
	// ErrorTypeInvalidParams indicates a missing or malformed request parameter.
	ErrorTypeInvalidParams ErrorType = "invalid_params"

	// ErrorTypeServiceNotFound indicates the service container could not resolve a capability.
	ErrorTypeServiceNotFound ErrorType = "service_not_found"

	// ErrorTypeConfig indicates missing or invalid merchant configuration.
	ErrorTypeConfig ErrorType = "config"

	// ErrorTypeUnknownOperation indicates no plugin list exists for a driver/operation pair.
	ErrorTypeUnknownOperation ErrorType = "unknown_operation"

	// ErrorTypeTransport indicates the outbound call failed or the gateway rejected it.
	ErrorTypeTransport ErrorType = "transport"

	// ErrorTypeVerification indicates a signature did not verify.
	ErrorTypeVerification ErrorType = "verification"

	// ErrorTypeDecode indicates the final payload could not be parsed.
	ErrorTypeDecode ErrorType = "decode"

	// ErrorTypeAuthentication indicates the caller of the operator API is not known.
	ErrorTypeAuthentication ErrorType = "authentication"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeParamsMissing       ErrorCode = "params_necessary_params_missing"
	ErrorCodeConfigMissing       ErrorCode = "config_missing"
	ErrorCodeResponseStatus      ErrorCode = "response_code_wrong"
	ErrorCodeResponseEmpty       ErrorCode = "response_empty"
	ErrorCodeSignatureMismatch   ErrorCode = "sign_wrong"
	ErrorCodeSignatureMissing    ErrorCode = "sign_missing"
	ErrorCodeUnknownDirection    ErrorCode = "unknown_direction"
	ErrorCodeContainerNotBound   ErrorCode = "container_not_bound"
	ErrorCodeOperationNotDefined ErrorCode = "operation_not_defined"
)

// Error is the canonical error returned by plugins, the executor, and the gateway.
type Error struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Field is the parameter or config key that caused the error (if applicable)
	Field string `json:"field,omitempty"`

	// Stage is the plugin or component that raised the error
	Stage string `json:"stage,omitempty"`

	// StatusCode is the upstream HTTP status, when the gateway answered
	StatusCode int `json:"-"`

	// Err is the underlying cause, if any
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" [field=%s]", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the HTTP status an API surface should answer with.
func (e *Error) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidParams:
		return http.StatusBadRequest
	case ErrorTypeUnknownOperation:
		return http.StatusNotFound
	case ErrorTypeVerification, ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeTransport, ErrorTypeDecode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new gateway error.
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *Error) WithCode(code ErrorCode) *Error {
	e.Code = code
	return e
}

// WithField names the parameter or config key at fault.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithStage records which plugin or component raised the error.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithStatusCode records the upstream HTTP status.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Convenience constructors for common errors

// ErrInvalidParams creates a parameter-validation error naming the offending field.
func ErrInvalidParams(field, message string) *Error {
	return NewError(ErrorTypeInvalidParams, message).
		WithCode(ErrorCodeParamsMissing).
		WithField(field)
}

// ErrServiceNotFound creates a service-resolution error for an unbound capability.
func ErrServiceNotFound(key string) *Error {
	return NewError(ErrorTypeServiceNotFound, fmt.Sprintf("service %q is not registered", key)).
		WithCode(ErrorCodeContainerNotBound).
		WithField(key)
}

// ErrConfig creates a configuration error naming the missing key.
func ErrConfig(field, message string) *Error {
	return NewError(ErrorTypeConfig, message).
		WithCode(ErrorCodeConfigMissing).
		WithField(field)
}

// ErrUnknownOperation creates an error for a driver/operation pair with no plugins.
func ErrUnknownOperation(driver, operation string) *Error {
	return NewError(ErrorTypeUnknownOperation, fmt.Sprintf("%s has no operation %q", driver, operation)).
		WithCode(ErrorCodeOperationNotDefined)
}

// ErrTransport creates a transport error.
func ErrTransport(message string) *Error {
	return NewError(ErrorTypeTransport, message)
}

// ErrVerification creates a signature verification error.
func ErrVerification(message string) *Error {
	return NewError(ErrorTypeVerification, message).
		WithCode(ErrorCodeSignatureMismatch)
}

// ErrAuthentication creates an operator API authentication error.
func ErrAuthentication(message string) *Error {
	return NewError(ErrorTypeAuthentication, message)
}

// ErrDecode creates a parser error.
func ErrDecode(message string) *Error {
	return NewError(ErrorTypeDecode, message)
}

// IsType reports whether err wraps a domain error of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errType
}

// IsInvalidParams returns true if err is a parameter-validation error.
func IsInvalidParams(err error) bool {
	return IsType(err, ErrorTypeInvalidParams)
}

// IsServiceNotFound returns true if err is a service-resolution error.
func IsServiceNotFound(err error) bool {
	return IsType(err, ErrorTypeServiceNotFound)
}

// IsVerification returns true if err is a signature verification error.
func IsVerification(err error) bool {
	return IsType(err, ErrorTypeVerification)
}
