// Package ledger is the operation surface over the account store: it
// serializes access per account, persists after every mutation, and runs
// the two-leg transfer protocol.
package ledger

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/walletsys/wallet-ledger/internal/events"
	"github.com/walletsys/wallet-ledger/internal/interfaces"
	"github.com/walletsys/wallet-ledger/internal/metrics"
	"github.com/walletsys/wallet-ledger/internal/wallet"
)

// Service coordinates all balance-changing operations. The two-step
// debit/credit sequence is not safe under interleaving, so every operation
// holds the per-account locks for the accounts it touches.
type Service struct {
	store     interfaces.AccountStore
	publisher interfaces.EventPublisher
	collector metrics.Collector
	log       *zap.Logger

	muMap map[string]*sync.Mutex // one mutex per owner
	mapMu sync.Mutex             // protects muMap itself
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithPublisher sets the publisher notified of completed transfers.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithCollector sets the metrics collector.
func WithCollector(c metrics.Collector) Option {
	return func(s *Service) { s.collector = c }
}

// NewService creates a service over the given account store.
func NewService(store interfaces.AccountStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		collector: metrics.Noop{},
		log:       zap.NewNop(),
		muMap:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) accountLock(ownerID string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, exists := s.muMap[ownerID]; !exists {
		s.muMap[ownerID] = &sync.Mutex{}
	}
	return s.muMap[ownerID]
}

// Provision creates a zero-balance account for the owner and writes its
// initial durable record. ErrDuplicateOwner if the owner already has one.
func (s *Service) Provision(ctx context.Context, ownerID string) (acct *wallet.Account, err error) {
	defer func() { s.collector.RecordOperation("provision", err) }()

	mu := s.accountLock(ownerID)
	mu.Lock()
	defer mu.Unlock()

	acct, err = s.store.Create(ownerID)
	if err != nil {
		return nil, err
	}
	if saveErr := s.store.Save(ctx, acct); saveErr != nil {
		err = &wallet.PersistenceError{AccountID: acct.AccountID, Err: saveErr}
		s.log.Error("initial save failed, account exists only in memory",
			zap.String("account_id", acct.AccountID), zap.Error(saveErr))
		return acct, err
	}
	s.log.Info("account provisioned",
		zap.String("owner_id", ownerID), zap.String("account_id", acct.AccountID))
	return acct, nil
}

// Deposit credits the owner's account and persists it. Returns the new
// balance.
func (s *Service) Deposit(ctx context.Context, ownerID string, amount decimal.Decimal, note string) (decimal.Decimal, error) {
	return s.mutate(ctx, "deposit", ownerID, func(a *wallet.Account) (decimal.Decimal, error) {
		return a.Deposit(amount, note)
	})
}

// Withdraw debits the owner's account and persists it. Returns the new
// balance.
func (s *Service) Withdraw(ctx context.Context, ownerID string, amount decimal.Decimal, note string) (decimal.Decimal, error) {
	return s.mutate(ctx, "withdraw", ownerID, func(a *wallet.Account) (decimal.Decimal, error) {
		return a.Withdraw(amount, note)
	})
}

func (s *Service) mutate(ctx context.Context, op, ownerID string, fn func(*wallet.Account) (decimal.Decimal, error)) (balance decimal.Decimal, err error) {
	defer func() { s.collector.RecordOperation(op, err) }()

	mu := s.accountLock(ownerID)
	mu.Lock()
	defer mu.Unlock()

	acct, err := s.store.Find(ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err = fn(acct)
	if err != nil {
		return balance, err
	}
	if saveErr := s.store.Save(ctx, acct); saveErr != nil {
		err = &wallet.PersistenceError{AccountID: acct.AccountID, Err: saveErr}
		s.log.Error("save failed after mutation, durable record is stale",
			zap.String("account_id", acct.AccountID),
			zap.String("op", op),
			zap.Error(saveErr))
		return balance, err
	}
	return balance, nil
}

// Transfer moves amount from one owner's account to another's: debit the
// source, credit the destination, persist both. If the debit leg fails
// nothing has changed. Once the debit succeeds the transfer is
// irrevocable; a persistence failure after that point is returned as a
// *wallet.PersistenceError with the returned Transfer showing the state
// reached, and the in-memory ledger keeps the completed transfer.
func (s *Service) Transfer(ctx context.Context, fromOwner, toOwner string, amount decimal.Decimal) (tr *Transfer, err error) {
	defer func() {
		s.collector.RecordOperation("transfer", err)
		if tr != nil {
			s.collector.RecordTransferState(string(tr.State))
		}
	}()

	if fromOwner == toOwner {
		return nil, wallet.ErrSameOwner
	}

	srcMu := s.accountLock(fromOwner)
	dstMu := s.accountLock(toOwner)

	// Lock in a fixed order to avoid deadlocks with a concurrent transfer
	// running the opposite direction.
	if fromOwner < toOwner {
		srcMu.Lock()
		dstMu.Lock()
	} else {
		dstMu.Lock()
		srcMu.Lock()
	}
	defer srcMu.Unlock()
	defer dstMu.Unlock()

	src, err := s.store.Find(fromOwner)
	if err != nil {
		return nil, err
	}
	dst, err := s.store.Find(toOwner)
	if err != nil {
		return nil, err
	}

	tr = &Transfer{
		ID:          uuid.New().String(),
		FromAccount: src.AccountID,
		ToAccount:   dst.AccountID,
		Amount:      amount,
		State:       StateInitiated,
		CreatedAt:   time.Now(),
	}

	if _, err = src.DebitForTransfer(amount, dst.AccountID); err != nil {
		return tr, err
	}
	tr.State = StateDebited

	if _, err = dst.CreditFromTransfer(amount, src.AccountID); err != nil {
		// Unreachable when the debit leg validated the amount; surfaced
		// rather than swallowed in case it ever happens.
		s.log.Error("credit leg failed after debit",
			zap.String("transfer_id", tr.ID), zap.Error(err))
		return tr, err
	}
	tr.State = StateCredited

	if saveErr := s.persistBoth(ctx, src, dst); saveErr != nil {
		err = saveErr
		s.log.Error("transfer completed in memory but persistence failed; retry the save",
			zap.String("transfer_id", tr.ID),
			zap.String("from_account", src.AccountID),
			zap.String("to_account", dst.AccountID),
			zap.Error(saveErr))
		return tr, err
	}
	tr.State = StatePersisted

	s.publish(ctx, tr)
	return tr, nil
}

func (s *Service) persistBoth(ctx context.Context, src, dst *wallet.Account) error {
	if err := s.store.Save(ctx, src); err != nil {
		return &wallet.PersistenceError{AccountID: src.AccountID, Err: err}
	}
	if err := s.store.Save(ctx, dst); err != nil {
		return &wallet.PersistenceError{AccountID: dst.AccountID, Err: err}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, tr *Transfer) {
	if s.publisher == nil {
		return
	}
	event := events.TransferCompleted{
		TransferID:  tr.ID,
		FromAccount: tr.FromAccount,
		ToAccount:   tr.ToAccount,
		Amount:      tr.Amount,
		OccurredAt:  tr.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// Events are advisory; a publish failure never fails the transfer.
		s.log.Warn("publishing transfer event failed",
			zap.String("transfer_id", tr.ID), zap.Error(err))
	}
}

// Balance returns the owner's current balance.
func (s *Service) Balance(ownerID string) (decimal.Decimal, error) {
	mu := s.accountLock(ownerID)
	mu.Lock()
	defer mu.Unlock()

	acct, err := s.store.Find(ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// Account returns a snapshot of the owner's account, copied out under the
// account lock. Handing out the live account would let a concurrent caller
// observe a mutation in progress.
func (s *Service) Account(ownerID string) (*wallet.Account, error) {
	mu := s.accountLock(ownerID)
	mu.Lock()
	defer mu.Unlock()

	acct, err := s.store.Find(ownerID)
	if err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

// History returns up to limit of the owner's most recent entries, newest
// first. The entries are copied out under the account lock, so the result
// is stable even if the account keeps mutating.
func (s *Service) History(ownerID string, limit int) ([]wallet.LedgerEntry, error) {
	mu := s.accountLock(ownerID)
	mu.Lock()
	defer mu.Unlock()

	acct, err := s.store.Find(ownerID)
	if err != nil {
		return nil, err
	}
	return slices.Collect(acct.History(limit)), nil
}
