package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/services/lock"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps the ledger in process. Balance cells are guarded by
// per-wallet locks and transaction rows by per-reference locks; mu only
// protects the maps themselves.
type MemoryStore struct {
	mu      sync.RWMutex
	locks   *lock.MemoryLocker
	clock   utils.Clock
	wallets map[string]*domain.Wallet
	byUser  map[int64]string
	txns    map[string]*domain.Transaction
	order   []string
	entries []domain.Entry
	records map[string]*domain.IdempotencyRecord
	nextTx  int64
}

func NewMemoryStore(clock utils.Clock) *MemoryStore {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &MemoryStore{
		locks:   lock.NewMemoryLocker(),
		clock:   clock,
		wallets: make(map[string]*domain.Wallet),
		byUser:  make(map[int64]string),
		txns:    make(map[string]*domain.Transaction),
		records: make(map[string]*domain.IdempotencyRecord),
	}
}

func walletKey(id string) string { return "wallet:" + id }
func txnKey(ref string) string   { return "txn:" + ref }

func (s *MemoryStore) CreateWallet(ctx context.Context, w *domain.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUser[w.UserID]; ok {
		return domain.NewLedgerError(domain.ErrWalletExists, w.ID, "")
	}
	if _, ok := s.wallets[w.ID]; ok {
		return domain.NewLedgerError(domain.ErrWalletExists, w.ID, "")
	}

	now := s.clock.Now()
	c := *w
	c.CreatedAt, c.UpdatedAt = now, now
	s.wallets[w.ID] = &c
	s.byUser[w.UserID] = w.ID
	*w = c
	return nil
}

func (s *MemoryStore) GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return nil, domain.NewLedgerError(domain.ErrWalletNotFound, walletID, "")
	}
	c := *w
	return &c, nil
}

func (s *MemoryStore) GetWalletByUser(ctx context.Context, userID int64) (*domain.Wallet, error) {
	s.mu.RLock()
	id, ok := s.byUser[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewLedgerError(domain.ErrWalletNotFound, "", "")
	}
	return s.GetWallet(ctx, id)
}

func (s *MemoryStore) DeactivateWallet(ctx context.Context, walletID string) error {
	unlock, err := s.locks.Lock(ctx, walletKey(walletID))
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return domain.NewLedgerError(domain.ErrWalletNotFound, walletID, "")
	}
	w.IsActive = false
	w.UpdatedAt = s.clock.Now()
	return nil
}

func (s *MemoryStore) GetBalance(ctx context.Context, walletID string) (decimal.Decimal, error) {
	w, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (s *MemoryStore) ApplyDelta(ctx context.Context, walletID string, delta decimal.Decimal, reference string) (decimal.Decimal, error) {
	res, err := s.Apply(ctx, Mutation{
		Reference: reference,
		Deltas:    []Delta{{WalletID: walletID, Amount: delta}},
	})
	if err != nil {
		return decimal.Zero, err
	}
	return res.Balances[walletID], nil
}

func (s *MemoryStore) Apply(ctx context.Context, m Mutation) (*Result, error) {
	if err := validateMutation(m); err != nil {
		return nil, err
	}

	ids := walletIDs(m.Deltas)
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, walletKey(id))
	}
	keys = append(keys, txnKey(m.Reference))

	unlock, err := lock.LockMany(ctx, s.locks, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.RLock()
	existing, exists := s.txns[m.Reference]
	wallets := make(map[string]*domain.Wallet, len(ids))
	for _, id := range ids {
		if w, ok := s.wallets[id]; ok {
			wallets[id] = w
		}
	}
	s.mu.RUnlock()

	switch {
	case m.Insert != nil && exists:
		return nil, domain.NewLedgerError(domain.ErrDuplicateReference, "", m.Reference)
	case m.Insert == nil && !exists:
		return nil, domain.NewLedgerError(domain.ErrTransactionNotFound, "", m.Reference)
	case m.Transition != nil && existing.Status != m.Transition.From:
		return nil, domain.NewLedgerError(domain.ErrInvalidTransition, "", m.Reference)
	}

	// Validate every delta before touching any balance
	balances := make(map[string]decimal.Decimal, len(ids))
	for _, d := range m.Deltas {
		w, ok := wallets[d.WalletID]
		if !ok || (!w.IsActive && !d.AllowInactive) {
			return nil, domain.NewLedgerError(missingErr(d), d.WalletID, m.Reference)
		}
		cur, seen := balances[d.WalletID]
		if !seen {
			cur = w.Balance
		}
		next := cur.Add(d.Amount)
		if next.IsNegative() {
			return nil, domain.NewLedgerError(domain.ErrInsufficientFunds, d.WalletID, m.Reference)
		}
		balances[d.WalletID] = next
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var txn *domain.Transaction
	if m.Insert != nil {
		s.nextTx++
		txn = m.Insert.Clone()
		txn.ID = s.nextTx
		txn.CreatedAt, txn.UpdatedAt = now, now
		s.txns[m.Reference] = txn
		s.order = append(s.order, m.Reference)
	} else {
		txn = existing
	}

	if t := m.Transition; t != nil {
		txn.Status = t.To
		txn.Reversed = txn.Reversed || t.Reversed
		if t.ProviderReference != "" {
			txn.ProviderReference = t.ProviderReference
		}
		txn.UpdatedAt = now
	}

	running := make(map[string]decimal.Decimal, len(ids))
	for _, d := range m.Deltas {
		w := wallets[d.WalletID]
		cur, seen := running[d.WalletID]
		if !seen {
			cur = w.Balance
		}
		cur = cur.Add(d.Amount)
		running[d.WalletID] = cur
		s.entries = append(s.entries, domain.Entry{
			ID:                   int64(len(s.entries) + 1),
			TransactionReference: m.Reference,
			WalletID:             d.WalletID,
			Kind:                 entryKind(d),
			Delta:                d.Amount,
			BalanceAfter:         cur,
			CreatedAt:            now,
		})
	}
	for id, bal := range balances {
		wallets[id].Balance = bal
		wallets[id].UpdatedAt = now
	}

	return &Result{Transaction: txn.Clone(), Balances: balances}, nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, reference string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txns[reference]
	if !ok {
		return nil, domain.NewLedgerError(domain.ErrTransactionNotFound, "", reference)
	}
	return t.Clone(), nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, walletID string, limit, offset int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	skipped := 0
	// Newest first
	for i := len(s.order) - 1; i >= 0; i-- {
		t := s.txns[s.order[i]]
		if t.SourceWalletID != walletID && t.Destination.WalletID != walletID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, *t.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, ref := range s.order {
		t := s.txns[ref]
		if t.Status != domain.StatusPending || !t.Type.Settles() || !t.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, *t.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) ListEntries(ctx context.Context, walletID string) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Entry, 0)
	for _, e := range s.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	c := *rec
	return &c, nil
}

func (s *MemoryStore) InsertIdempotencyRecord(ctx context.Context, rec *domain.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.Key]; ok {
		return domain.NewLedgerError(domain.ErrDuplicateReference, "", rec.Key)
	}
	c := *rec
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.clock.Now()
	}
	s.records[rec.Key] = &c
	return nil
}

func (s *MemoryStore) DeleteIdempotencyRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0)
	for k, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		delete(s.records, k)
	}
	return int64(len(keys)), nil
}
