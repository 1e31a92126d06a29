package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry by the operation that produced it.
type EntryKind string

const (
	EntryDeposit     EntryKind = "DEPOSIT"
	EntryWithdrawal  EntryKind = "WITHDRAWAL"
	EntryTransferOut EntryKind = "TRANSFER_OUT"
	EntryTransferIn  EntryKind = "TRANSFER_IN"
)

// Signed returns +1 for kinds that increase the balance and -1 for kinds
// that decrease it.
func (k EntryKind) Signed() int {
	switch k {
	case EntryWithdrawal, EntryTransferOut:
		return -1
	default:
		return 1
	}
}

// LedgerEntry is one immutable record of a balance change. Entries are
// created exactly once when the owning operation commits and are never
// mutated or deleted afterward.
type LedgerEntry struct {
	ID        string          // unique identifier
	Kind      EntryKind       // what kind of operation produced this entry
	Amount    decimal.Decimal // always positive; Kind carries the sign
	Note      string          // free-form, may name a counterparty account
	CreatedAt time.Time       // non-decreasing within one account's log
	// ResultingBalance is the account balance immediately after this entry,
	// recorded redundantly for audit display and corruption detection.
	ResultingBalance decimal.Decimal
}

// SignedAmount is the amount with the sign implied by the entry kind.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Kind.Signed() < 0 {
		return e.Amount.Neg()
	}
	return e.Amount
}
