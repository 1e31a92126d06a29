// Package file implements the account store on a directory of durable
// records, one file per account. Records are discovered at startup by
// extension and rewritten in full after every mutation.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/walletsys/wallet-ledger/internal/codec"
	"github.com/walletsys/wallet-ledger/internal/interfaces"
	"github.com/walletsys/wallet-ledger/internal/wallet"
)

// Ext is the durable record file extension.
const Ext = ".wal"

// Store keeps the live account index in memory and mirrors each account to
// <dir>/<account_id>.wal through the codec.
type Store struct {
	mu     sync.Mutex
	dir    string
	index  map[string]*wallet.Account // keyed by owner
	strict bool
	log    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load warnings.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithStrictDecode makes LoadAll replay each record's entry log and treat
// divergence from the stored balances as corruption.
func WithStrictDecode() Option {
	return func(s *Store) { s.strict = true }
}

// NewStore creates a store over dir, creating the directory if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:   dir,
		index: make(map[string]*wallet.Account),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return s, nil
}

// LoadAll scans the directory for record files and rebuilds the index.
// Records that cannot be read or decoded are skipped with a warning; the
// bootstrap is best effort, not an atomic import.
func (s *Store) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scanning data dir: %w", err)
	}

	s.index = make(map[string]*wallet.Account)
	loaded, skipped := 0, 0
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), Ext) {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("skipping unreadable account record", zap.String("file", de.Name()), zap.Error(err))
			skipped++
			continue
		}
		var opts []codec.DecodeOption
		if s.strict {
			opts = append(opts, codec.Strict())
		}
		account, err := codec.Decode(data, opts...)
		if err != nil {
			s.log.Warn("skipping corrupt account record", zap.String("file", de.Name()), zap.Error(err))
			skipped++
			continue
		}
		if prev, exists := s.index[account.OwnerID]; exists {
			s.log.Warn("skipping duplicate record for owner",
				zap.String("file", de.Name()),
				zap.String("owner_id", account.OwnerID),
				zap.String("kept_account_id", prev.AccountID))
			skipped++
			continue
		}
		s.index[account.OwnerID] = account
		loaded++
	}

	s.log.Info("account records loaded", zap.Int("loaded", loaded), zap.Int("skipped", skipped))
	return nil
}

// Save overwrites the account's durable record with its full state. The
// write goes to a temp file first and is moved into place with a rename, so
// a crash mid-write never leaves a truncated record behind.
func (s *Store) Save(ctx context.Context, account *wallet.Account) error {
	data := codec.Encode(account)
	path := filepath.Join(s.dir, account.AccountID+Ext)

	tmp, err := os.CreateTemp(s.dir, account.AccountID+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing record: %w", err)
	}
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
// The caller is responsible for the initial Save. The owner id is validated
// first: it becomes part of the record filename.
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
