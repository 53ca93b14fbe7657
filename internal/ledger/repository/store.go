package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/shopspring/decimal"
)

// Delta is one signed balance change inside a Mutation.
type Delta struct {
	WalletID string
	Amount   decimal.Decimal
	Kind     domain.EntryKind
	// MissingErr is returned when the wallet is absent or inactive.
	// Defaults to domain.ErrWalletNotFound.
	MissingErr error
	// AllowInactive lets reversals credit a deactivated wallet.
	AllowInactive bool
}

// Transition moves an existing transaction out of From.
type Transition struct {
	From              domain.TransactionStatus
	To                domain.TransactionStatus
	Reversed          bool
	ProviderReference string
}

// Mutation is the unit of atomicity: balances, ledger entries and the
// transaction row commit together or not at all.
type Mutation struct {
	Reference  string
	Insert     *domain.Transaction
	Transition *Transition
	Deltas     []Delta
}

type Result struct {
	Transaction *domain.Transaction
	Balances    map[string]decimal.Decimal
}

type WalletStore interface {
	CreateWallet(ctx context.Context, w *domain.Wallet) error
	GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error)
	GetWalletByUser(ctx context.Context, userID int64) (*domain.Wallet, error)
	DeactivateWallet(ctx context.Context, walletID string) error
	GetBalance(ctx context.Context, walletID string) (decimal.Decimal, error)
}

type TransactionLog interface {
	GetTransaction(ctx context.Context, reference string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, walletID string, limit, offset int) ([]domain.Transaction, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error)
	ListEntries(ctx context.Context, walletID string) ([]domain.Entry, error)
}

type IdempotencyStore interface {
	GetIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	// InsertIdempotencyRecord fails with domain.ErrDuplicateReference when key exists.
	InsertIdempotencyRecord(ctx context.Context, rec *domain.IdempotencyRecord) error
	DeleteIdempotencyRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the ledger's persistence boundary.
type Store interface {
	WalletStore
	TransactionLog
	IdempotencyStore

	// ApplyDelta changes one wallet's balance and journals it against an
	// existing transaction. Debits that would go negative fail with
	// domain.ErrInsufficientFunds and change nothing.
	ApplyDelta(ctx context.Context, walletID string, delta decimal.Decimal, reference string) (decimal.Decimal, error)
	Apply(ctx context.Context, m Mutation) (*Result, error)
}

func entryKind(d Delta) domain.EntryKind {
	if d.Kind != "" {
		return d.Kind
	}
	if d.Amount.IsNegative() {
		return domain.EntryDebit
	}
	return domain.EntryCredit
}

func missingErr(d Delta) error {
	if d.MissingErr != nil {
		return d.MissingErr
	}
	return domain.ErrWalletNotFound
}

func walletIDs(deltas []Delta) []string {
	ids := make([]string, 0, len(deltas))
	seen := make(map[string]bool, len(deltas))
	for _, d := range deltas {
		if !seen[d.WalletID] {
			seen[d.WalletID] = true
			ids = append(ids, d.WalletID)
		}
	}
	return ids
}

func validateMutation(m Mutation) error {
	if m.Insert != nil && m.Insert.Reference != m.Reference {
		return fmt.Errorf("mutation reference %q does not match transaction %q", m.Reference, m.Insert.Reference)
	}
	if m.Insert != nil && m.Transition != nil {
		return fmt.Errorf("mutation %q both inserts and transitions a transaction", m.Reference)
	}
	if m.Insert == nil && m.Reference == "" {
		return fmt.Errorf("mutation has no transaction reference")
	}
	if m.Transition != nil && !m.Transition.From.CanTransition(m.Transition.To) {
		return domain.NewLedgerError(domain.ErrInvalidTransition, "", m.Reference)
	}
	return nil
}
