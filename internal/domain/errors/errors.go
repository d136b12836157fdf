package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors for propagation and HTTP mapping
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeBusiness     ErrorType = "business"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnavailable  ErrorType = "unavailable"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		Retryable:  false,
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		Retryable:  false,
		StatusCode: 403,
	}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// NewBidTooLowError reports the minimum acceptable bid so the caller can
// retry without a second round trip.
func NewBidTooLowError(nextMinCents int64) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       "BID_TOO_LOW",
		Message:    "bid amount is below the minimum next bid",
		Retryable:  false,
		StatusCode: 422,
		Details:    map[string]interface{}{"next_min_cents": nextMinCents},
	}
}

// NewAuctionNotLiveError rejects bids outside the live window.
func NewAuctionNotLiveError(status string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       "AUCTION_NOT_LIVE",
		Message:    "auction is not accepting bids",
		Retryable:  false,
		StatusCode: 422,
		Details:    map[string]interface{}{"status": status},
	}
}

// NewAlreadyTerminalError marks an idempotent no-op on an ended or canceled
// auction. Callers treat it as informational, not a hard failure.
func NewAlreadyTerminalError(status string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       "ALREADY_TERMINAL",
		Message:    "auction is already in a terminal state",
		Retryable:  false,
		StatusCode: 409,
		Details:    map[string]interface{}{"status": status},
	}
}

// NewBusyError signals the auction's serialization point was unavailable
// within the bounded wait. Callers should retry.
func NewBusyError() *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Code:       "BUSY",
		Message:    "auction is busy, retry shortly",
		Retryable:  true,
		StatusCode: 503,
	}
}

// Predefined common errors
var (
	ErrAuctionNotFound = NewNotFoundError("auction")
	ErrBidNotFound     = NewNotFoundError("bid")
	ErrSelfBid         = NewForbiddenError("sellers cannot bid on their own auctions")
	ErrNotEligible     = NewUnauthorizedError("bidder is not signed in or not eligible to bid")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsCode checks if an error carries a specific application code
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
