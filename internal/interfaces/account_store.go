package interfaces

import (
	"context"

	"github.com/walletsys/wallet-ledger/internal/wallet"
)

// AccountStore keeps the in-memory index of all known accounts and mirrors
// each account's full state to durable storage. The index is the single
// source of truth while the process runs; durable records are rebuilt
// wholesale on each Save.
type AccountStore interface {
	// LoadAll enumerates the durable records, decodes each, and populates
	// the index keyed by owner. A record that fails to decode is skipped
	// with a warning; loading continues with the remainder.
	LoadAll(ctx context.Context) error

	// Save re-encodes the entire account and overwrites its durable record
	// in place. Cost is proportional to log length.
	Save(ctx context.Context, account *wallet.Account) error

	// Find returns the indexed account for the owner, or wallet.ErrNotFound.
	// It never touches durable storage.
	Find(ownerID string) (*wallet.Account, error)

	// Create allocates a fresh zero-balance account for the owner and
	// indexes it, or returns wallet.ErrDuplicateOwner. The caller is
	// responsible for the initial Save.
	Create(ownerID string) (*wallet.Account, error)
}
