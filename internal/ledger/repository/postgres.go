package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/db"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"
)

// PostgresStore serialises balance changes with row locks taken in wallet id
// order, so concurrent debits on one wallet queue behind each other while
// unrelated wallets proceed in parallel.
type PostgresStore struct {
	store *db.Store
	clock utils.Clock
}

func NewPostgresStore(store *db.Store, clock utils.Clock) *PostgresStore {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &PostgresStore{store: store, clock: clock}
}

const walletColumns = `id, user_id, email, balance, currency, virtual_account_number,
	virtual_bank_name, is_active, created_at, updated_at`

const transactionColumns = `id, reference, type, amount, COALESCE(source_wallet_id, ''), destination,
	status, reversed, narration, provider_reference, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Email, &w.Balance, &w.Currency, &w.VirtualAccountNumber,
		&w.VirtualBankName, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t           domain.Transaction
		destination []byte
		metadata    pqtype.NullRawMessage
	)
	err := row.Scan(&t.ID, &t.Reference, &t.Type, &t.Amount, &t.SourceWalletID, &destination,
		&t.Status, &t.Reversed, &t.Narration, &t.ProviderReference, &metadata, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(destination) > 0 {
		if err := json.Unmarshal(destination, &t.Destination); err != nil {
			return nil, fmt.Errorf("decode destination: %w", err)
		}
	}
	if metadata.Valid {
		t.Metadata = metadata.RawMessage
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *PostgresStore) CreateWallet(ctx context.Context, w *domain.Wallet) error {
	now := s.clock.Now()
	row := s.store.DB.QueryRowContext(ctx, `
		INSERT INTO wallets (id, user_id, email, balance, currency, virtual_account_number,
			virtual_bank_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+walletColumns,
		w.ID, w.UserID, w.Email, w.Balance, w.Currency, w.VirtualAccountNumber,
		w.VirtualBankName, w.IsActive, now)

	created, err := scanWallet(row)
	if err != nil {
		if db.IsErrorCode(err, db.DuplicateEntry) {
			return domain.NewLedgerError(domain.ErrWalletExists, w.ID, "", err)
		}
		return fmt.Errorf("create wallet: %w", err)
	}
	*w = *created
	return nil
}

func (s *PostgresStore) GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	w, err := scanWallet(s.store.DB.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewLedgerError(domain.ErrWalletNotFound, walletID, "")
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) GetWalletByUser(ctx context.Context, userID int64) (*domain.Wallet, error) {
	w, err := scanWallet(s.store.DB.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewLedgerError(domain.ErrWalletNotFound, "", "")
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet by user: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) DeactivateWallet(ctx context.Context, walletID string) error {
	res, err := s.store.DB.ExecContext(ctx,
		`UPDATE wallets SET is_active = FALSE, updated_at = $2 WHERE id = $1`, walletID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("deactivate wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewLedgerError(domain.ErrWalletNotFound, walletID, "")
	}
	return nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, walletID string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := s.store.DB.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.NewLedgerError(domain.ErrWalletNotFound, walletID, "")
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return bal, nil
}

func (s *PostgresStore) ApplyDelta(ctx context.Context, walletID string, delta decimal.Decimal, reference string) (decimal.Decimal, error) {
	res, err := s.Apply(ctx, Mutation{
		Reference: reference,
		Deltas:    []Delta{{WalletID: walletID, Amount: delta}},
	})
	if err != nil {
		return decimal.Zero, err
	}
	return res.Balances[walletID], nil
}

type lockedWallet struct {
	balance  decimal.Decimal
	isActive bool
}

func (s *PostgresStore) Apply(ctx context.Context, m Mutation) (*Result, error) {
	if err := validateMutation(m); err != nil {
		return nil, err
	}

	var result *Result
	err := s.store.ExecTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		ids := walletIDs(m.Deltas)
		locked, err := lockWallets(ctx, tx, ids)
		if err != nil {
			return err
		}

		var existing *domain.Transaction
		if m.Insert == nil {
			existing, err = scanTransaction(tx.QueryRowContext(ctx,
				`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1 FOR UPDATE`, m.Reference))
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NewLedgerError(domain.ErrTransactionNotFound, "", m.Reference)
			}
			if err != nil {
				return fmt.Errorf("lock transaction: %w", err)
			}
			if m.Transition != nil && existing.Status != m.Transition.From {
				return domain.NewLedgerError(domain.ErrInvalidTransition, "", m.Reference)
			}
		}

		balances := make(map[string]decimal.Decimal, len(ids))
		for _, d := range m.Deltas {
			w, ok := locked[d.WalletID]
			if !ok || (!w.isActive && !d.AllowInactive) {
				return domain.NewLedgerError(missingErr(d), d.WalletID, m.Reference)
			}
			cur, seen := balances[d.WalletID]
			if !seen {
				cur = w.balance
			}
			next := cur.Add(d.Amount)
			if next.IsNegative() {
				return domain.NewLedgerError(domain.ErrInsufficientFunds, d.WalletID, m.Reference)
			}
			balances[d.WalletID] = next
		}

		now := s.clock.Now()

		var txn *domain.Transaction
		switch {
		case m.Insert != nil:
			txn, err = insertTransaction(ctx, tx, m.Insert, now)
		case m.Transition != nil:
			txn, err = transitionTransaction(ctx, tx, m.Reference, m.Transition, now)
		default:
			txn = existing
		}
		if err != nil {
			return err
		}

		running := make(map[string]decimal.Decimal, len(ids))
		for _, d := range m.Deltas {
			cur, seen := running[d.WalletID]
			if !seen {
				cur = locked[d.WalletID].balance
			}
			cur = cur.Add(d.Amount)
			running[d.WalletID] = cur
			_, err := tx.ExecContext(ctx, `
				INSERT INTO ledger_entries (transaction_reference, wallet_id, kind, delta, balance_after, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				m.Reference, d.WalletID, entryKind(d), d.Amount, cur, now)
			if err != nil {
				return fmt.Errorf("insert ledger entry: %w", err)
			}
		}

		for id, bal := range balances {
			_, err := tx.ExecContext(ctx,
				`UPDATE wallets SET balance = $2, updated_at = $3 WHERE id = $1`, id, bal, now)
			if err != nil {
				return fmt.Errorf("update balance: %w", err)
			}
		}

		result = &Result{Transaction: txn, Balances: balances}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func lockWallets(ctx context.Context, tx *sql.Tx, ids []string) (map[string]lockedWallet, error) {
	locked := make(map[string]lockedWallet, len(ids))
	if len(ids) == 0 {
		return locked, nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, balance, is_active FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock wallets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			w  lockedWallet
		)
		if err := rows.Scan(&id, &w.balance, &w.isActive); err != nil {
			return nil, fmt.Errorf("scan locked wallet: %w", err)
		}
		locked[id] = w
	}
	return locked, rows.Err()
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t *domain.Transaction, now time.Time) (*domain.Transaction, error) {
	destination, err := json.Marshal(t.Destination)
	if err != nil {
		return nil, fmt.Errorf("encode destination: %w", err)
	}
	metadata := pqtype.NullRawMessage{RawMessage: t.Metadata, Valid: len(t.Metadata) > 0}

	inserted, err := scanTransaction(tx.QueryRowContext(ctx, `
		INSERT INTO transactions (reference, type, amount, source_wallet_id, destination, dest_wallet_id,
			status, reversed, narration, provider_reference, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (reference) DO NOTHING
		RETURNING `+transactionColumns,
		t.Reference, t.Type, t.Amount, nullString(t.SourceWalletID), destination,
		nullString(t.Destination.WalletID), t.Status, t.Reversed, t.Narration, t.ProviderReference,
		metadata, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewLedgerError(domain.ErrDuplicateReference, "", t.Reference)
	}
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return inserted, nil
}

func transitionTransaction(ctx context.Context, tx *sql.Tx, reference string, t *Transition, now time.Time) (*domain.Transaction, error) {
	updated, err := scanTransaction(tx.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = $2,
			reversed = reversed OR $3,
			provider_reference = CASE WHEN $4 = '' THEN provider_reference ELSE $4 END,
			updated_at = $5
		WHERE reference = $1 AND status = $6
		RETURNING `+transactionColumns,
		reference, t.To, t.Reversed, t.ProviderReference, now, t.From))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewLedgerError(domain.ErrInvalidTransition, "", reference)
	}
	if err != nil {
		return nil, fmt.Errorf("transition transaction: %w", err)
	}
	return updated, nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, reference string) (*domain.Transaction, error) {
	t, err := scanTransaction(s.store.DB.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewLedgerError(domain.ErrTransactionNotFound, "", reference)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListTransactions(ctx context.Context, walletID string, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE source_wallet_id = $1 OR dest_wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, walletID, limit, offset)
}

func (s *PostgresStore) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE status = $1 AND type = ANY($2) AND created_at < $3
		ORDER BY created_at ASC
		LIMIT $4`,
		domain.StatusPending,
		pq.Array([]string{string(domain.TypeWithdrawal), string(domain.TypeAirtimePurchase), string(domain.TypeDataPurchase)}),
		cutoff, limit)
}

func (s *PostgresStore) ListEntries(ctx context.Context, walletID string) ([]domain.Entry, error) {
	rows, err := s.store.DB.QueryContext(ctx, `
		SELECT id, transaction_reference, wallet_id, kind, delta, balance_after, created_at
		FROM ledger_entries WHERE wallet_id = $1 ORDER BY id`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Entry, 0)
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.TransactionReference, &e.WalletID, &e.Kind, &e.Delta, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var (
		rec     domain.IdempotencyRecord
		outcome []byte
	)
	err := s.store.DB.QueryRowContext(ctx,
		`SELECT key, scope, outcome, created_at FROM idempotency_records WHERE key = $1`, key).
		Scan(&rec.Key, &rec.Scope, &outcome, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	if err := json.Unmarshal(outcome, &rec.Outcome); err != nil {
		return nil, fmt.Errorf("decode idempotency outcome: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) InsertIdempotencyRecord(ctx context.Context, rec *domain.IdempotencyRecord) error {
	outcome, err := json.Marshal(rec.Outcome)
	if err != nil {
		return fmt.Errorf("encode idempotency outcome: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	res, err := s.store.DB.ExecContext(ctx, `
		INSERT INTO idempotency_records (key, scope, outcome, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING`,
		rec.Key, rec.Scope, outcome, createdAt)
	if err != nil {
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewLedgerError(domain.ErrDuplicateReference, "", rec.Key)
	}
	return nil
}

func (s *PostgresStore) DeleteIdempotencyRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.store.DB.ExecContext(ctx, `DELETE FROM idempotency_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete idempotency records: %w", err)
	}
	return res.RowsAffected()
}
