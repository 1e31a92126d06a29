// Package postgres implements the account store on database/sql. It keeps
// the same contract as the file store: the in-memory index is the source
// of truth, and Save rewrites the account's rows wholesale inside one
// transaction instead of appending.
//
// Expected schema:
//
//	CREATE TABLE accounts (
//	    account_id TEXT PRIMARY KEY,
//	    owner_id   TEXT NOT NULL UNIQUE,
//	    balance    NUMERIC NOT NULL
//	);
//	CREATE TABLE ledger_entries (
//	    account_id        TEXT NOT NULL REFERENCES accounts(account_id),
//	    position          INT NOT NULL,
//	    id                TEXT NOT NULL,
//	    kind              TEXT NOT NULL,
//	    amount            NUMERIC NOT NULL,
//	    note              TEXT NOT NULL,
//	    created_at        TIMESTAMPTZ NOT NULL,
//	    resulting_balance NUMERIC NOT NULL,
//	    PRIMARY KEY (account_id, position)
//	);
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/walletsys/wallet-ledger/internal/interfaces"
	"github.com/walletsys/wallet-ledger/internal/wallet"
)

type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	index map[string]*wallet.Account
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		index: make(map[string]*wallet.Account),
	}
}

// LoadAll reads every account and its ordered entry log into the index.
// Unlike the file store there is no per-record skip: a database that fails
// mid-scan fails the bootstrap, since row-level corruption is not an
// expected postgres failure mode.
func (s *Store) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT account_id, owner_id, balance FROM accounts`)
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}
	defer rows.Close()

	index := make(map[string]*wallet.Account)
	for rows.Next() {
		var account wallet.Account
		if err := rows.Scan(&account.AccountID, &account.OwnerID, &account.Balance); err != nil {
			return fmt.Errorf("scanning account: %w", err)
		}
		index[account.OwnerID] = &account
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}

	for _, account := range index {
		if err := s.loadEntries(ctx, account); err != nil {
			return err
		}
	}

	s.index = index
	return nil
}

func (s *Store) loadEntries(ctx context.Context, account *wallet.Account) error {
	const query = `SELECT id, kind, amount, note, created_at, resulting_balance
	FROM ledger_entries WHERE account_id = $1 ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query, account.AccountID)
	if err != nil {
		return fmt.Errorf("loading entries for %s: %w", account.AccountID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e wallet.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Amount, &e.Note, &e.CreatedAt, &e.ResultingBalance); err != nil {
			return fmt.Errorf("scanning entry for %s: %w", account.AccountID, err)
		}
		account.Entries = append(account.Entries, e)
	}
	return rows.Err()
}

// Save rewrites the account row and its full entry log in one transaction.
func (s *Store) Save(ctx context.Context, account *wallet.Account) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO accounts (account_id, owner_id, balance) VALUES ($1, $2, $3)
	ON CONFLICT (account_id) DO UPDATE SET balance = EXCLUDED.balance`
	if _, err = tx.ExecContext(ctx, upsert, account.AccountID, account.OwnerID, account.Balance); err != nil {
		return fmt.Errorf("upserting account %s: %w", account.AccountID, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE account_id = $1`, account.AccountID); err != nil {
		return fmt.Errorf("clearing entries for %s: %w", account.AccountID, err)
	}

	const insert = `INSERT INTO ledger_entries
	(account_id, position, id, kind, amount, note, created_at, resulting_balance)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, e := range account.Entries {
		if _, err = tx.ExecContext(ctx, insert,
			account.AccountID, i, e.ID, e.Kind, e.Amount, e.Note, e.CreatedAt, e.ResultingBalance); err != nil {
			return fmt.Errorf("inserting entry %d for %s: %w", i, account.AccountID, err)
		}
	}

	return tx.Commit()
}

// Find returns the indexed account for the owner, or wallet.ErrNotFound.
func (s *Store) Find(ownerID string) (*wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.index[ownerID]
	if !ok {
		return nil, wallet.ErrNotFound
	}
	return account, nil
}

// Create allocates and indexes a fresh zero-balance account for the owner.
// The caller is responsible for the initial Save.
func (s *Store) Create(ownerID string) (*wallet.Account, error) {
	if err := wallet.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[ownerID]; exists {
		return nil, wallet.ErrDuplicateOwner
	}
	account := wallet.NewAccount(ownerID)
	s.index[ownerID] = account
	return account, nil
}

var _ interfaces.AccountStore = (*Store)(nil)
