package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferState tracks how far a transfer got. A transfer is irrevocable
// once the debit leg succeeds; there is no rollback, so the state a failed
// transfer stopped at tells the caller exactly what happened.
type TransferState string

const (
	// StateInitiated: nothing has changed yet.
	StateInitiated TransferState = "INITIATED"
	// StateDebited: the source account was debited; the credit leg failed.
	StateDebited TransferState = "DEBITED"
	// StateCredited: both accounts mutated in memory; persistence failed,
	// so durable storage lags until the save is retried.
	StateCredited TransferState = "CREDITED"
	// StatePersisted: both accounts mutated and saved.
	StatePersisted TransferState = "PERSISTED"
)

// Transfer is the record of one two-leg transfer between accounts.
type Transfer struct {
	ID          string
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
	State       TransferState
	CreatedAt   time.Time
}
