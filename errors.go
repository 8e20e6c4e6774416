package flowstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("flowstream: not found")
	ErrInvalidInput = errors.New("flowstream: invalid input")
	ErrUnauthorized = errors.New("flowstream: unauthorized")

	// Stream errors
	ErrStreamNotFound  = errors.New("flowstream: stream not found")
	ErrInvalidTerms    = errors.New("flowstream: invalid stream terms")
	ErrStreamCancelled = errors.New("flowstream: stream already cancelled")
	ErrStreamExhausted = errors.New("flowstream: stream fully withdrawn")

	// Escrow errors
	ErrInsufficientAuthorization = errors.New("flowstream: insufficient escrow authorization")
	ErrEscrowUnderflow           = errors.New("flowstream: escrow release exceeds held balance")

	// Negotiation errors
	ErrUnsupportedPaymentMode = errors.New("flowstream: unsupported payment mode")
	ErrMalformedPaymentTerms  = errors.New("flowstream: malformed payment terms")

	// Store errors
	ErrStoreNotReady     = errors.New("flowstream: store not ready")
	ErrStoreClosed       = errors.New("flowstream: store is closed")
	ErrAlreadyExists     = errors.New("flowstream: already exists")
	ErrTransactionFailed = errors.New("flowstream: transaction failed")
	ErrMigrationFailed   = errors.New("flowstream: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("flowstream: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStreamNotFound)
}

// IsTerminal returns true for errors that represent caller misuse or state
// violations. Terminal errors are never retried automatically; they must be
// surfaced to the caller.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrInvalidTerms) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrStreamCancelled) ||
		errors.Is(err, ErrInsufficientAuthorization) ||
		errors.Is(err, ErrUnsupportedPaymentMode) ||
		errors.Is(err, ErrMalformedPaymentTerms)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried by the caller. Ledger state errors are never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
