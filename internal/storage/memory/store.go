package memory

import (
	"context"
	"sync"

	"github.com/walletsys/wallet-ledger/internal/interfaces"
	"github.com/walletsys/wallet-ledger/internal/wallet"
)

// Store is an in-memory implementation of interfaces.AccountStore. The
// "durable" side is a map of deep-copied account snapshots, so Save/LoadAll
// behave like the file store without touching disk. It is the default
// backend when no data directory is configured, and the test double.
type Store struct {
	mu    sync.Mutex
	index map[string]*wallet.Account // live accounts keyed by owner
	saved map[string]*wallet.Account // snapshots keyed by owner, stand-in for durable records
}

// NewStore creates an empty in-memory account store.
func NewStore() *Store {
	return &Store{
		index: make(map[string]*wallet.Account),
		saved: make(map[string]*wallet.Account),
	}
}

// LoadAll rebuilds the index from the saved snapshots, mirroring what the
// durable stores do at startup.
func (s *Store) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = make(map[string]*wallet.Account, len(s.saved))
	for owner, snap := range s.saved {
		s.index[owner] = snap.Clone()
	}
	return nil
}

// Save snapshots the account's full state, replacing any prior snapshot.
func (s *Store) Save(ctx context.Context, account *wallet.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved[account.OwnerID] = account.Clone()
	return nil
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

// Compile-time check: Store implements the AccountStore interface.
var _ interfaces.AccountStore = (*Store)(nil)
