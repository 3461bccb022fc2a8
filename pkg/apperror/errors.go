package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is a coded, structured error. The code identifies the business
// rule or infrastructure failure so calling layers can render a precise
// message without string matching.
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

// Code extracts the AppError code from err, or "" if err carries none.
func Code(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Error codes.
const (
	CodeValidation          = "VAL_001"
	CodeUnauthorized        = "AUTH_001"
	CodeInsufficientFunds   = "LED_001"
	CodeDailyLimitExceeded  = "LED_002"
	CodeWalletNotFound      = "LED_003"
	CodeWalletInactive      = "LED_004"
	CodePinLocked           = "PIN_001"
	CodePinMismatch         = "PIN_002"
	CodeStorageUnavailable  = "SYS_001"
	CodeConcurrencyConflict = "SYS_002"
	CodeInternal            = "SYS_003"
	CodeRateLimited         = "SYS_004"
)

// ---- Validation (VAL) ----

// Validation reports a malformed amount, currency or PIN. Caller error,
// never retried.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

// ErrUnauthorized rejects requests without a valid bearer token.
func ErrUnauthorized() *AppError {
	return New(CodeUnauthorized, "missing or invalid bearer token", http.StatusUnauthorized)
}

// ---- Ledger Business Rules (LED) ----

func ErrInsufficientFunds(currency string) *AppError {
	return New(CodeInsufficientFunds, fmt.Sprintf("insufficient %s balance", currency), http.StatusPaymentRequired)
}

func ErrDailyLimitExceeded(bucket string, currency string) *AppError {
	return New(CodeDailyLimitExceeded,
		fmt.Sprintf("daily %s limit exceeded for %s", bucket, currency),
		http.StatusUnprocessableEntity)
}

// ErrWalletNotFound should not occur given get-or-create semantics; it is
// treated as fatal when it does.
func ErrWalletNotFound(userID string) *AppError {
	return New(CodeWalletNotFound, fmt.Sprintf("wallet not found for user %s", userID), http.StatusNotFound)
}

// ErrWalletInactive rejects mutations on suspended or frozen wallets.
// Reads stay available; deactivation is a status transition, not removal.
func ErrWalletInactive(status string) *AppError {
	return New(CodeWalletInactive, fmt.Sprintf("wallet is %s", status), http.StatusForbidden)
}

// ---- Transaction PIN (PIN) ----

func ErrPinLocked(until time.Time) *AppError {
	return New(CodePinLocked,
		fmt.Sprintf("transaction PIN locked until %s", until.UTC().Format(time.RFC3339)),
		http.StatusLocked)
}

func ErrPinMismatch() *AppError {
	return New(CodePinMismatch, "incorrect transaction PIN", http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorageUnavailable reports a transient persistence failure. Retried
// with backoff at the wallet-store boundary only.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap(CodeStorageUnavailable, "wallet storage unavailable", http.StatusServiceUnavailable, err)
}

// ErrConcurrencyConflict reports a conditional write that lost the race or
// an indeterminate outcome. Safe for the caller to retry only when no
// partial effect was committed.
func ErrConcurrencyConflict(err error) *AppError {
	return Wrap(CodeConcurrencyConflict, "concurrent wallet update conflict", http.StatusConflict, err)
}

// ErrRateLimitExceeded rejects requests over the per-user window budget.
func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests)
}

// InternalError wraps any other unexpected failure.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "internal ledger error", http.StatusInternalServerError, err)
}
