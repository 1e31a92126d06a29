package wallet

import (
	"errors"
	"fmt"
)

// Errors returned by account operations and the stores. Callers match them
// with errors.Is.
var (
	// ErrInvalidAmount is returned when a mutating operation is given an
	// amount that is zero or negative.
	ErrInvalidAmount = errors.New("wallet: amount must be positive")

	// ErrInsufficientFunds is returned when a withdrawal or transfer debit
	// exceeds the account balance.
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")

	// ErrDuplicateOwner is returned when an account is created for an owner
	// that already has one.
	ErrDuplicateOwner = errors.New("wallet: owner already has an account")

	// ErrInvalidOwner is returned when an owner identity cannot name an
	// account record.
	ErrInvalidOwner = errors.New("wallet: invalid owner id")

	// ErrNotFound is returned when no account exists for the given owner.
	ErrNotFound = errors.New("wallet: account not found")

	// ErrSameOwner is returned when a transfer names the same owner on both
	// sides.
	ErrSameOwner = errors.New("wallet: transfer source and destination are the same account")

	// ErrCorruptRecord is returned when a durable record cannot be decoded.
	ErrCorruptRecord = errors.New("wallet: corrupt account record")
)

// PersistenceError reports a durable write that failed after the in-memory
// mutation already succeeded. Until the save is retried, memory and durable
// storage disagree for the named account.
type PersistenceError struct {
	AccountID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("wallet: persisting account %s: %v", e.AccountID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsNotFound reports whether err indicates a missing account.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorrupt reports whether err indicates an undecodable durable record.
func IsCorrupt(err error) bool { return errors.Is(err, ErrCorruptRecord) }
