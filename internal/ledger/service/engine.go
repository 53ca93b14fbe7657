package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/idempotency"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/repository"
	"github.com/SwiftFiat/NexaWallet-Backend/services/events"
	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/logging"
	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/metrics"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	sourceProvider = "provider"
	sourceWebhook  = "webhook"
	sourceAdmin    = "admin"
	sourceSweep    = "sweep"

	walletIDAttempts = 3
)

// Engine is the only writer of wallet balances. Every operation is validated,
// reserved through the idempotency guard and applied as one atomic mutation.
type Engine struct {
	store    repository.Store
	guard    *idempotency.Guard
	provider PaymentProvider
	plans    PlanCatalog
	events   events.Publisher
	metrics  *metrics.Metrics
	logger   *logging.Logger
	clock    utils.Clock
}

type EngineParams struct {
	Store    repository.Store
	Guard    *idempotency.Guard
	Provider PaymentProvider
	Plans    PlanCatalog
	// Events and Metrics are optional.
	Events  events.Publisher
	Metrics *metrics.Metrics
	Logger  *logging.Logger
	Clock   utils.Clock
}

func NewEngine(p EngineParams) *Engine {
	if p.Clock == nil {
		p.Clock = utils.RealClock{}
	}
	if p.Logger == nil {
		p.Logger = logging.NewNopLogger()
	}
	return &Engine{
		store:    p.Store,
		guard:    p.Guard,
		provider: p.Provider,
		plans:    p.Plans,
		events:   p.Events,
		metrics:  p.Metrics,
		logger:   p.Logger,
		clock:    p.Clock,
	}
}

// CreateWallet opens a zero-balance wallet for userID. A virtual account is
// requested from the provider; if that fails the wallet is still created
// without one.
func (e *Engine) CreateWallet(ctx context.Context, userID int64, email string) (*domain.Wallet, error) {
	if userID <= 0 {
		return nil, domain.NewLedgerError(domain.ErrInvalidRequest, "", "", fmt.Errorf("user id is required"))
	}
	if _, err := e.store.GetWalletByUser(ctx, userID); err == nil {
		return nil, domain.NewLedgerError(domain.ErrWalletExists, "", "")
	} else if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}

	var lastErr error
	for i := 0; i < walletIDAttempts; i++ {
		w := &domain.Wallet{
			ID:       utils.GenerateWalletID(),
			UserID:   userID,
			Email:    email,
			Balance:  decimal.Zero,
			Currency: domain.DefaultCurrency,
			IsActive: true,
		}
		e.attachVirtualAccount(ctx, w)

		err := e.store.CreateWallet(ctx, w)
		if err == nil {
			e.logger.WithFields(logrus.Fields{"wallet_id": w.ID, "user_id": userID}).Info("wallet created")
			return w, nil
		}
		if !errors.Is(err, domain.ErrWalletExists) {
			return nil, err
		}
		// Either another request created this user's wallet or the id collided
		if _, gerr := e.store.GetWalletByUser(ctx, userID); gerr == nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("allocate wallet id: %w", lastErr)
}

func (e *Engine) attachVirtualAccount(ctx context.Context, w *domain.Wallet) {
	if e.provider == nil {
		return
	}
	started := time.Now()
	va, err := e.provider.CreateVirtualAccount(ctx, domain.VirtualAccountRequest{
		CustomerEmail: w.Email,
		WalletID:      w.ID,
		IsPermanent:   true,
	})
	e.metrics.ObserveProviderCall("virtual_account", started, err)
	if err != nil {
		e.logger.WithFields(logrus.Fields{"wallet_id": w.ID}).WithError(err).Warn("virtual account not provisioned")
		return
	}
	w.VirtualAccountNumber = va.AccountNumber
	w.VirtualBankName = va.BankName
}

func (e *Engine) GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return e.store.GetWallet(ctx, walletID)
}

func (e *Engine) GetWalletByUser(ctx context.Context, userID int64) (*domain.Wallet, error) {
	return e.store.GetWalletByUser(ctx, userID)
}

func (e *Engine) GetBalance(ctx context.Context, walletID string) (decimal.Decimal, error) {
	return e.store.GetBalance(ctx, walletID)
}

func (e *Engine) GetTransaction(ctx context.Context, reference string) (*domain.Transaction, error) {
	return e.store.GetTransaction(ctx, reference)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ListTransactions returns a wallet's history, newest first.
func (e *Engine) ListTransactions(ctx context.Context, walletID string, limit, offset int) ([]domain.Transaction, error) {
	if _, err := e.store.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return e.store.ListTransactions(ctx, walletID, limit, offset)
}

// fingerprint covers the fields a retry under the same reference must repeat.
func fingerprint(t *domain.Transaction) string {
	d := t.Destination
	return domain.Fingerprint(
		string(t.Type),
		t.SourceWalletID,
		domain.FormatAmount(t.Amount),
		d.WalletID,
		d.BankCode,
		d.AccountNumber,
		d.PhoneNumber,
		d.PlanCode,
	)
}

func referenceOr(ref string, t domain.TransactionType) string {
	if ref != "" {
		return ref
	}
	return utils.GenerateReference(t.ReferencePrefix())
}

// submit reserves txn.Reference and applies the insert with its deltas.
// fresh is false when the reference was already used for the same request;
// the stored transaction is returned then and nothing is applied.
func (e *Engine) submit(ctx context.Context, txn *domain.Transaction, deltas []repository.Delta) (out *domain.Transaction, fresh bool, err error) {
	fp := fingerprint(txn)

	res, err := e.guard.CheckAndReserve(ctx, domain.ScopeClient, txn.Reference)
	if err != nil {
		return nil, false, err
	}
	if res.Duplicate {
		e.metrics.ObserveDuplicate(string(domain.ScopeClient))
		if res.Prior.Fingerprint != fp {
			return nil, false, domain.NewLedgerError(domain.ErrReferenceConflict, txn.SourceWalletID, txn.Reference)
		}
		prior, err := e.store.GetTransaction(ctx, res.Prior.TransactionReference)
		return prior, false, err
	}
	defer res.Release()

	result, err := e.store.Apply(ctx, repository.Mutation{
		Reference: txn.Reference,
		Insert:    txn,
		Deltas:    deltas,
	})
	if errors.Is(err, domain.ErrDuplicateReference) {
		// The log outlives idempotency records, so an old reference lands here
		prior, gerr := e.store.GetTransaction(ctx, txn.Reference)
		if gerr != nil {
			return nil, false, gerr
		}
		if fingerprint(prior) != fp {
			return nil, false, domain.NewLedgerError(domain.ErrReferenceConflict, txn.SourceWalletID, txn.Reference)
		}
		e.metrics.ObserveDuplicate(string(domain.ScopeClient))
		return prior, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	out = result.Transaction
	err = res.Commit(ctx, domain.Outcome{
		TransactionReference: out.Reference,
		Status:               out.Status,
		Fingerprint:          fp,
	})
	if err != nil {
		// The unique reference in the log still blocks a replay
		e.logger.WithFields(logrus.Fields{"reference": out.Reference}).WithError(err).Error("idempotency record not saved")
	}

	e.metrics.ObserveTransaction(string(out.Type), string(out.Status))
	e.logger.WithFields(logrus.Fields{
		"reference": out.Reference,
		"type":      out.Type,
		"status":    out.Status,
		"amount":    domain.FormatAmount(out.Amount),
		"wallet_id": out.SourceWalletID,
	}).Info("transaction recorded")
	e.publish(ctx, "transaction.created", out)
	return out, true, nil
}

// settle applies a synchronous provider answer. Anything other than a
// definite success or failure leaves the transaction Pending for the webhook
// or the sweep.
func (e *Engine) settle(ctx context.Context, txn *domain.Transaction, result *domain.ProviderResult, callErr error) (*domain.Transaction, error) {
	// The debit is already held; the outcome must be recorded even if the
	// caller has gone away.
	ctx = context.WithoutCancel(ctx)

	fields := logrus.Fields{"reference": txn.Reference, "type": txn.Type}
	if callErr != nil {
		e.logger.WithFields(fields).WithError(callErr).Warn("provider call failed, transaction left pending")
		return txn, nil
	}
	if result == nil || !result.Outcome.Status().IsTerminal() {
		e.logger.WithFields(fields).Info("provider accepted request, awaiting confirmation")
		return txn, nil
	}
	return e.resolve(ctx, txn.Reference, result.Outcome, result.ProviderReference, sourceProvider)
}

// resolve moves a Pending transaction to the outcome's terminal status. A
// Failed outcome credits the source wallet back in the same mutation. When
// the transaction is no longer Pending its current state is returned
// unchanged, so the reversal can only ever be applied once.
func (e *Engine) resolve(ctx context.Context, reference string, outcome domain.ProviderOutcome, providerRef, source string) (*domain.Transaction, error) {
	to := outcome.Status()
	if !to.IsTerminal() {
		return nil, domain.NewLedgerError(domain.ErrInvalidRequest, "", reference, fmt.Errorf("outcome %q is not terminal", outcome))
	}

	txn, err := e.store.GetTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.StatusPending {
		return txn, nil
	}

	m := repository.Mutation{
		Reference: reference,
		Transition: &repository.Transition{
			From:              domain.StatusPending,
			To:                to,
			ProviderReference: providerRef,
		},
	}
	if to == domain.StatusFailed && txn.SourceWalletID != "" {
		m.Transition.Reversed = true
		m.Deltas = []repository.Delta{{
			WalletID:      txn.SourceWalletID,
			Amount:        txn.Amount,
			Kind:          domain.EntryReversal,
			AllowInactive: true,
		}}
	}

	result, err := e.store.Apply(ctx, m)
	if errors.Is(err, domain.ErrInvalidTransition) {
		return e.store.GetTransaction(ctx, reference)
	}
	if err != nil {
		return nil, err
	}

	out := result.Transaction
	e.metrics.ObserveResolution(source, string(out.Status), m.Transition.Reversed)
	e.logger.WithFields(logrus.Fields{
		"reference": out.Reference,
		"status":    out.Status,
		"reversed":  out.Reversed,
		"source":    source,
	}).Info("transaction resolved")
	e.publish(ctx, "transaction.resolved", out)
	return out, nil
}

// ForceResolve is the entry point for the pending sweep and administrators.
// It follows the webhook's contract: one application per reference, and an
// already terminal transaction is returned as is.
func (e *Engine) ForceResolve(ctx context.Context, reference string, outcome domain.ProviderOutcome) (*domain.Transaction, error) {
	return e.forceResolve(ctx, reference, outcome, "", sourceAdmin)
}

func (e *Engine) forceResolve(ctx context.Context, reference string, outcome domain.ProviderOutcome, providerRef, source string) (*domain.Transaction, error) {
	if reference == "" {
		return nil, domain.NewLedgerError(domain.ErrInvalidRequest, "", "", fmt.Errorf("reference is required"))
	}
	if !outcome.Status().IsTerminal() {
		return nil, domain.NewLedgerError(domain.ErrInvalidRequest, "", reference, fmt.Errorf("outcome %q is not terminal", outcome))
	}

	res, err := e.guard.CheckAndReserve(ctx, domain.ScopeResolve, reference)
	if err != nil {
		return nil, err
	}
	if res.Duplicate {
		e.metrics.ObserveDuplicate(string(domain.ScopeResolve))
		return e.store.GetTransaction(ctx, reference)
	}
	defer res.Release()

	txn, err := e.resolve(ctx, reference, outcome, providerRef, source)
	if err != nil {
		return nil, err
	}
	err = res.Commit(ctx, domain.Outcome{
		TransactionReference: txn.Reference,
		Status:               txn.Status,
		Note:                 source,
	})
	if err != nil {
		e.logger.WithFields(logrus.Fields{"reference": reference}).WithError(err).Error("resolve record not saved")
	}
	return txn, nil
}

func (e *Engine) publish(ctx context.Context, kind string, t *domain.Transaction) {
	if e.events == nil {
		return
	}
	walletID := t.SourceWalletID
	if walletID == "" {
		walletID = t.Destination.WalletID
	}
	ev := events.TransactionEvent{
		EventType: kind,
		Reference: t.Reference,
		Type:      string(t.Type),
		Status:    string(t.Status),
		Amount:    domain.FormatAmount(t.Amount),
		WalletID:  walletID,
		Reversed:  t.Reversed,
		Timestamp: e.clock.Now(),
	}
	if err := e.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		e.logger.WithFields(logrus.Fields{"reference": t.Reference, "event": kind}).WithError(err).Warn("transaction event not published")
	}
}
