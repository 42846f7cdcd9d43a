// Package apperror defines a centralized system for application-specific errors.
// Every service in the blog platform returns *AppError values so that the HTTP
// layer can map them to status codes and the standard failure envelope without
// knowing where the error came from.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of an application error.
type ErrorType int

const (
	// UnknownError is for unspecified errors
	UnknownError ErrorType = iota
	// DatabaseError represents an error originating from the database
	DatabaseError
	// ConfigError represents an error related to application configuration
	ConfigError
	// AuthError represents a missing or unusable bearer credential
	AuthError
	// InvalidCredentialsError is returned when a login or password check fails
	InvalidCredentialsError
	// WeakPasswordError is returned when a password does not satisfy the policy
	WeakPasswordError
	// TokenExpiredError is returned for signed tokens past their expiry
	TokenExpiredError
	// InvalidSignatureError is returned for forged, malformed or stale tokens
	InvalidSignatureError
	// PurposeMismatchError is returned when a token is used for the wrong operation
	PurposeMismatchError
	// ForbiddenError represents an ownership or permission failure
	ForbiddenError
	// NotFoundError represents an absent or soft-deleted resource
	NotFoundError
	// AlreadyDeletedError is returned when soft deleting an already deleted entity
	AlreadyDeletedError
	// ValidationError represents an input validation error
	ValidationError
	// BadRequestError represents a generic bad request
	BadRequestError
	// InternalError represents a generic internal server error
	InternalError
	// ExternalServiceError represents an error from an external service
	ExternalServiceError
	// MigrationError represents an error during database migrations
	MigrationError
	// ConflictError represents a conflict, e.g., resource already exists
	ConflictError
)

var typeNames = map[ErrorType]string{
	UnknownError:            "Unknown",
	DatabaseError:           "Database",
	ConfigError:             "Config",
	AuthError:               "Unauthenticated",
	InvalidCredentialsError: "InvalidCredentials",
	WeakPasswordError:       "WeakPassword",
	TokenExpiredError:       "Expired",
	InvalidSignatureError:   "InvalidSignature",
	PurposeMismatchError:    "PurposeMismatch",
	ForbiddenError:          "Forbidden",
	NotFoundError:           "NotFound",
	AlreadyDeletedError:     "AlreadyDeleted",
	ValidationError:         "Validation",
	BadRequestError:         "BadRequest",
	InternalError:           "Internal",
	ExternalServiceError:    "ExternalService",
	MigrationError:          "Migration",
	ConflictError:           "Conflict",
}

// String returns the kind name used in logs and in the failure envelope detail.
func (t ErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// AppError is a custom error type for the application.
// Message is safe to show to clients; Detail is an optional client-facing
// elaboration; Err is the underlying cause and is only ever logged.
type AppError struct {
	Type    ErrorType
	Message string
	Detail  string
	Err     error
}

// Error returns the string representation of the error, satisfying the `error` interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error so errors.Is and errors.As can walk the chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error carrying a client-facing detail string.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// StatusCode returns the HTTP status code appropriate for the error type
func (e *AppError) StatusCode() int {
	switch e.Type {
	case DatabaseError, ConfigError, InternalError, MigrationError:
		return http.StatusInternalServerError
	case AuthError, InvalidCredentialsError, TokenExpiredError, InvalidSignatureError, PurposeMismatchError:
		// 401: the caller is not (or no longer) authenticated for this operation.
		return http.StatusUnauthorized
	case ForbiddenError:
		// 403: authenticated, but not allowed to touch this resource.
		return http.StatusForbidden
	case NotFoundError:
		return http.StatusNotFound
	case WeakPasswordError, ValidationError:
		return http.StatusUnprocessableEntity
	case BadRequestError:
		return http.StatusBadRequest
	case ExternalServiceError:
		return http.StatusBadGateway
	case ConflictError, AlreadyDeletedError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new AppError. This is a generic constructor.
func NewAppError(errType ErrorType, message string, underlyingError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     underlyingError,
	}
}

// Constructor functions for specific error types.

// NewDatabaseError creates a new DatabaseError
func NewDatabaseError(message string, underlyingError error) *AppError {
	return NewAppError(DatabaseError, message, underlyingError)
}

// NewConfigError creates a new ConfigError
func NewConfigError(message string, underlyingError error) *AppError {
	return NewAppError(ConfigError, message, underlyingError)
}

// NewAuthError creates a new AuthError (missing or malformed bearer token)
func NewAuthError(message string, underlyingError error) *AppError {
	return NewAppError(AuthError, message, underlyingError)
}

// NewInvalidCredentialsError creates a new InvalidCredentialsError
func NewInvalidCredentialsError(message string) *AppError {
	return NewAppError(InvalidCredentialsError, message, nil)
}

// NewWeakPasswordError creates a new WeakPasswordError
func NewWeakPasswordError(message string) *AppError {
	return NewAppError(WeakPasswordError, message, nil)
}

// NewTokenExpiredError creates a new TokenExpiredError
func NewTokenExpiredError(message string, underlyingError error) *AppError {
	return NewAppError(TokenExpiredError, message, underlyingError)
}

// NewInvalidSignatureError creates a new InvalidSignatureError
func NewInvalidSignatureError(message string, underlyingError error) *AppError {
	return NewAppError(InvalidSignatureError, message, underlyingError)
}

// NewPurposeMismatchError creates a new PurposeMismatchError
func NewPurposeMismatchError(message string) *AppError {
	return NewAppError(PurposeMismatchError, message, nil)
}

// NewForbiddenError creates a new ForbiddenError (for ownership/authorization issues)
func NewForbiddenError(message string) *AppError {
	return NewAppError(ForbiddenError, message, nil)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(message string, underlyingError error) *AppError {
	return NewAppError(NotFoundError, message, underlyingError)
}

// NewAlreadyDeletedError creates a new AlreadyDeletedError
func NewAlreadyDeletedError(message string) *AppError {
	return NewAppError(AlreadyDeletedError, message, nil)
}

// NewValidationError creates a new ValidationError
func NewValidationError(message string, underlyingError error) *AppError {
	return NewAppError(ValidationError, message, underlyingError)
}

// NewBadRequestError creates a new BadRequestError
func NewBadRequestError(message string, underlyingError error) *AppError {
	return NewAppError(BadRequestError, message, underlyingError)
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, underlyingError error) *AppError {
	return NewAppError(InternalError, message, underlyingError)
}

// NewExternalServiceError creates a new ExternalServiceError
func NewExternalServiceError(message string, underlyingError error) *AppError {
	return NewAppError(ExternalServiceError, message, underlyingError)
}

// NewMigrationError creates a new MigrationError
func NewMigrationError(message string, underlyingError error) *AppError {
	return NewAppError(MigrationError, message, underlyingError)
}

// NewConflictError creates a new ConflictError
func NewConflictError(message string, underlyingError error) *AppError {
	return NewAppError(ConflictError, message, underlyingError)
}

// ErrorResponse is the failure envelope returned to API clients.
type ErrorResponse struct {
	Success    bool   `json:"success" example:"false"`
	Message    string `json:"message" example:"post not found"`
	Detail     string `json:"detail,omitempty" example:"NotFound"`
	StatusCode int    `json:"status_code" example:"404"`
}

// ToResponse converts an AppError to the failure envelope.
// Only the user-facing Message and Detail are included, never the underlying Err.
func (e *AppError) ToResponse() ErrorResponse {
	detail := e.Detail
	if detail == "" {
		detail = e.Type.String()
	}
	return ErrorResponse{
		Success:    false,
		Message:    e.Message,
		Detail:     detail,
		StatusCode: e.StatusCode(),
	}
}

// FromError converts any error to an *AppError. Errors that are not already
// application errors (anywhere in their chain) become InternalError.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("an unexpected error occurred", err)
}

// Is reports whether err is an *AppError of the given type.
func Is(err error, errType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool { return Is(err, NotFoundError) }

// IsAuthError checks if an error is an AuthError
func IsAuthError(err error) bool { return Is(err, AuthError) }

// IsForbidden checks if an error is a Forbidden error
func IsForbidden(err error) bool { return Is(err, ForbiddenError) }

// IsValidationError checks if an error is a Validation error
func IsValidationError(err error) bool { return Is(err, ValidationError) }

// IsConflictError checks if an error is a Conflict error
func IsConflictError(err error) bool { return Is(err, ConflictError) }
