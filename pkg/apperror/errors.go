package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ErrAuthorizationDenied covers both a wrong PIN and a rate-limited window.
// The message is deliberately generic: the caller learns nothing about the
// stored balance or which check failed.
func ErrAuthorizationDenied() *AppError {
	return New("AUTH_004", "Authorization denied", http.StatusUnauthorized)
}

// ---- Balance Ledger (BAL) ----

func ErrInsufficientBalance() *AppError {
	return New("BAL_001", "Insufficient balance for transfer", http.StatusPaymentRequired)
}

// ErrBalanceUnavailable reports a decrypt failure. Never surfaced as a zero
// balance; the wrapped error stays server-side.
func ErrBalanceUnavailable(err error) *AppError {
	return Wrap("BAL_002", "Balance unavailable", http.StatusInternalServerError, err)
}

func ErrInvalidAmount(message string) *AppError {
	if message == "" {
		message = "Invalid amount"
	}
	return New("BAL_003", message, http.StatusBadRequest)
}

func ErrRecipientNotFound() *AppError {
	return New("BAL_004", "Recipient not found", http.StatusNotFound)
}

func ErrInactiveAccount() *AppError {
	return New("BAL_005", "Account is inactive", http.StatusForbidden)
}

// ---- Proof System (ZKP) ----

// ErrCircuitValidation reports a proof whose validity flag is not "1" even
// though the prover returned success.
func ErrCircuitValidation() *AppError {
	return New("ZKP_001", "Circuit validation failed", http.StatusUnprocessableEntity)
}

func ErrProofRejected() *AppError {
	return New("ZKP_002", "Proof verification failed", http.StatusUnprocessableEntity)
}

// ErrSignalMismatch reports public signals inconsistent with the request
// context (signal substitution defense).
func ErrSignalMismatch() *AppError {
	return New("ZKP_003", "Proof signals do not match request", http.StatusUnprocessableEntity)
}

func ErrProofGeneration(err error) *AppError {
	return Wrap("ZKP_004", "Proof generation failed", http.StatusInternalServerError, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrPersistence wraps a storage transaction failure. The transfer is rolled
// back in full; the caller may safely retry.
func ErrPersistence(err error) *AppError {
	return Wrap("SYS_001", "Storage failure", http.StatusInternalServerError, err)
}

// InternalError wraps any other internal error.
func InternalError(err error) *AppError {
	return Wrap("SYS_002", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("BAL_003", message, http.StatusBadRequest)
}
