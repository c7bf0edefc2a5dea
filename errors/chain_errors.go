package errors

import (
	"blockvault/jsonx"
)

// ChainErrorCode represents standardized error codes for ledger operations
type ChainErrorCode string

const (
	// Integrity errors
	ErrCodeCorruptChain     ChainErrorCode = "corrupt_chain"
	ErrCodeIndexMismatch    ChainErrorCode = "index_mismatch"
	ErrCodeIntegrityFailure ChainErrorCode = "integrity_failure"

	// Lookup and authorization errors
	ErrCodeNotFound     ChainErrorCode = "not_found"
	ErrCodeUnauthorized ChainErrorCode = "unauthorized"

	// System errors
	ErrCodeStorage     ChainErrorCode = "storage_error"
	ErrCodeChainLocked ChainErrorCode = "chain_locked"
)

// ChainError represents a standardized ledger error
type ChainError struct {
	Code    ChainErrorCode `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
}

// Error implements the error interface
func (e *ChainError) Error() string {
	msg, _ := jsonx.Marshal(ChainError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(msg)
}

// Unwrap exposes the wrapped cause, if any
func (e *ChainError) Unwrap() error {
	return e.Err
}

// Is matches ChainErrors by code so callers can use errors.Is with the
// sentinel values below regardless of message or cause.
func (e *ChainError) Is(target error) bool {
	t, ok := target.(*ChainError)
	return ok && t.Code == e.Code
}

// Sentinel values for errors.Is checks.
var (
	ErrCorruptChain     = &ChainError{Code: ErrCodeCorruptChain, Message: "chain failed integrity verification on load"}
	ErrIndexMismatch    = &ChainError{Code: ErrCodeIndexMismatch, Message: "in-memory tail diverged from persisted tail"}
	ErrIntegrityFailure = &ChainError{Code: ErrCodeIntegrityFailure, Message: "verification failed while serving a read"}
	ErrNotFound         = &ChainError{Code: ErrCodeNotFound, Message: "requested entry not found"}
	ErrUnauthorized     = &ChainError{Code: ErrCodeUnauthorized, Message: "identity not authorized"}
	ErrStorage          = &ChainError{Code: ErrCodeStorage, Message: "storage failure"}
	ErrChainLocked      = &ChainError{Code: ErrCodeChainLocked, Message: "chain is locked by another writer"}
)

// New creates a ChainError with the given code and message
func New(code ChainErrorCode, message string) *ChainError {
	return &ChainError{Code: code, Message: message}
}

// Wrap creates a ChainError carrying an underlying cause
func Wrap(code ChainErrorCode, message string, err error) *ChainError {
	return &ChainError{Code: code, Message: message, Err: err}
}
