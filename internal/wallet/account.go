package wallet

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the balance-bearing entity for one owner. The balance is
// derived state: it always equals the sum of the signed amounts of all
// entries in log order and never goes negative. Accounts are not safe for
// concurrent use; the ledger service serializes access per account.
type Account struct {
	AccountID string // stable, immutable after creation
	OwnerID   string // one account per owner
	Balance   decimal.Decimal
	Entries   []LedgerEntry // insertion order == chronological order
}

// ValidateOwnerID rejects owner identities that cannot name an account:
// empty strings, path separators or "..", which would place the durable
// record outside the data directory, and newlines, which would corrupt the
// record header.
func ValidateOwnerID(ownerID string) error {
	if ownerID == "" || ownerID == ".." || strings.ContainsAny(ownerID, "/\\\n") {
		return ErrInvalidOwner
	}
	return nil
}

// NewAccount allocates a zero-balance account with an empty log for the
// given owner. The caller is responsible for persisting it.
func NewAccount(ownerID string) *Account {
	return &Account{
		AccountID: fmt.Sprintf("%s_ACC%s", ownerID, uuid.NewString()[:8]),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
	}
}

// Deposit credits the account and appends a Deposit entry. It returns the
// new balance, or ErrInvalidAmount if amount is not positive.
func (a *Account) Deposit(amount decimal.Decimal, note string) (decimal.Decimal, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return a.Balance, ErrInvalidAmount
	}
	if note == "" {
		note = "Deposit"
	}
	a.append(EntryDeposit, amount, note)
	return a.Balance, nil
}

// Withdraw debits the account and appends a Withdrawal entry. It returns
// ErrInvalidAmount if amount is not positive and ErrInsufficientFunds if
// amount exceeds the balance; in both cases nothing changes.
func (a *Account) Withdraw(amount decimal.Decimal, note string) (decimal.Decimal, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return a.Balance, ErrInvalidAmount
	}
	if amount.Cmp(a.Balance) > 0 {
		return a.Balance, ErrInsufficientFunds
	}
	if note == "" {
		note = "Withdrawal"
	}
	a.append(EntryWithdrawal, amount, note)
	return a.Balance, nil
}

// DebitForTransfer is the outgoing leg of a transfer. Same preconditions as
// Withdraw; the entry is tagged TransferOut and notes the counterparty so
// the audit trail distinguishes transfers from plain withdrawals.
func (a *Account) DebitForTransfer(amount decimal.Decimal, counterpartyID string) (decimal.Decimal, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return a.Balance, ErrInvalidAmount
	}
	if amount.Cmp(a.Balance) > 0 {
		return a.Balance, ErrInsufficientFunds
	}
	a.append(EntryTransferOut, amount, "Transfer to "+counterpartyID)
	return a.Balance, nil
}

// CreditFromTransfer is the incoming leg of a transfer. Same preconditions
// as Deposit; the entry is tagged TransferIn and notes the counterparty.
func (a *Account) CreditFromTransfer(amount decimal.Decimal, counterpartyID string) (decimal.Decimal, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return a.Balance, ErrInvalidAmount
	}
	a.append(EntryTransferIn, amount, "Transfer from "+counterpartyID)
	return a.Balance, nil
}

// append commits one entry: balance update and log append happen together,
// so the account is never observed half-mutated.
func (a *Account) append(kind EntryKind, amount decimal.Decimal, note string) {
	if kind.Signed() < 0 {
		a.Balance = a.Balance.Sub(amount)
	} else {
		a.Balance = a.Balance.Add(amount)
	}
	a.Entries = append(a.Entries, LedgerEntry{
		ID:               "TXN" + uuid.NewString()[:8],
		Kind:             kind,
		Amount:           amount,
		Note:             note,
		CreatedAt:        time.Now(),
		ResultingBalance: a.Balance,
	})
}

// Clone returns a deep copy whose entry log does not alias the original,
// so a caller can read it while the original keeps mutating.
func (a *Account) Clone() *Account {
	c := *a
	c.Entries = make([]LedgerEntry, len(a.Entries))
	copy(c.Entries, a.Entries)
	return &c
}

// History returns the most recent limit entries, newest first, as a lazy
// sequence that can be ranged over more than once. A limit larger than the
// log yields the whole log; a limit of zero or less yields nothing. An
// empty log yields an empty sequence.
func (a *Account) History(limit int) iter.Seq[LedgerEntry] {
	return func(yield func(LedgerEntry) bool) {
		n := limit
		if n > len(a.Entries) {
			n = len(a.Entries)
		}
		for i := 0; i < n; i++ {
			if !yield(a.Entries[len(a.Entries)-1-i]) {
				return
			}
		}
	}
}
