package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/sirupsen/logrus"
)

const (
	noteApplied       = "applied"
	noteCredited      = "credited"
	noteUnknown       = "unknown reference"
	noteNotSettling   = "transaction does not settle through the provider"
	noteTerminal      = "transaction already terminal"
	noteAmountDiffers = "amount mismatch"
	noteStillPending  = "provider still pending"
	noteNoCredit      = "deposit not successful"
)

// Reconciler consumes provider webhook events. Each event id is processed at
// most once; events that match nothing are logged and dropped.
type Reconciler struct {
	engine *Engine
}

func NewReconciler(engine *Engine) *Reconciler {
	return &Reconciler{engine: engine}
}

// HandleEvent applies ev and returns the recorded outcome. Redelivering an
// event id returns the first outcome without touching the ledger. Errors
// leave the event id unrecorded so the provider may redeliver.
func (r *Reconciler) HandleEvent(ctx context.Context, ev domain.ProviderEvent) (domain.Outcome, error) {
	e := r.engine
	if ev.EventID == "" {
		return domain.Outcome{}, domain.NewLedgerError(domain.ErrInvalidRequest, ev.WalletID, ev.Reference, fmt.Errorf("event id is required"))
	}

	res, err := e.guard.CheckAndReserve(ctx, domain.ScopeWebhook, ev.EventID)
	if err != nil {
		return domain.Outcome{}, err
	}
	if res.Duplicate {
		e.metrics.ObserveDuplicate(string(domain.ScopeWebhook))
		e.metrics.ObserveWebhook("duplicate")
		return res.Prior, nil
	}
	defer res.Release()

	// Once reserved the event runs to completion
	ctx = context.WithoutCancel(ctx)

	var outcome domain.Outcome
	switch ev.Type {
	case domain.EventDeposit:
		outcome, err = r.deposit(ctx, ev)
	case domain.EventPayout, domain.EventVAS:
		outcome, err = r.settle(ctx, ev)
	default:
		err = domain.NewLedgerError(domain.ErrInvalidRequest, ev.WalletID, ev.Reference, fmt.Errorf("unsupported event type %q", ev.Type))
	}
	if err != nil {
		e.metrics.ObserveWebhook("error")
		e.logger.WithFields(eventFields(ev)).WithError(err).Warn("webhook event rejected")
		return domain.Outcome{}, err
	}

	if err := res.Commit(ctx, outcome); err != nil {
		return outcome, err
	}
	if outcome.Note == noteApplied || outcome.Note == noteCredited {
		e.metrics.ObserveWebhook("applied")
	} else {
		e.metrics.ObserveWebhook("ignored")
	}
	return outcome, nil
}

func (r *Reconciler) deposit(ctx context.Context, ev domain.ProviderEvent) (domain.Outcome, error) {
	ref := ev.Reference
	if ref == "" {
		ref = ev.ProviderReference
	}
	if ev.Outcome != "" && ev.Outcome != domain.OutcomeSuccess {
		r.engine.logger.WithFields(eventFields(ev)).Info("webhook discarded: " + noteNoCredit)
		return domain.Outcome{TransactionReference: ref, Note: noteNoCredit}, nil
	}
	txn, err := r.engine.Deposit(ctx, DepositRequest{
		WalletID:          ev.WalletID,
		Amount:            ev.Amount,
		Reference:         ref,
		ProviderReference: ev.ProviderReference,
		Metadata:          ev.Raw,
	})
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Outcome{TransactionReference: txn.Reference, Status: txn.Status, Note: noteCredited}, nil
}

func (r *Reconciler) settle(ctx context.Context, ev domain.ProviderEvent) (domain.Outcome, error) {
	e := r.engine
	log := e.logger.WithFields(eventFields(ev))

	txn, err := e.store.GetTransaction(ctx, ev.Reference)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		log.Warn("webhook for unknown transaction discarded")
		return domain.Outcome{TransactionReference: ev.Reference, Note: noteUnknown}, nil
	}
	if err != nil {
		return domain.Outcome{}, err
	}

	current := domain.Outcome{TransactionReference: txn.Reference, Status: txn.Status}
	switch {
	case !txn.Type.Settles():
		current.Note = noteNotSettling
	case txn.Status != domain.StatusPending:
		current.Note = noteTerminal
	case !ev.Amount.IsZero() && !ev.Amount.Equal(txn.Amount):
		current.Note = noteAmountDiffers
	case !ev.Outcome.Status().IsTerminal():
		current.Note = noteStillPending
	}
	if current.Note != "" {
		log.WithField("status", txn.Status).Info("webhook discarded: " + current.Note)
		return current, nil
	}

	resolved, err := e.resolve(ctx, txn.Reference, ev.Outcome, ev.ProviderReference, sourceWebhook)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Outcome{TransactionReference: resolved.Reference, Status: resolved.Status, Note: noteApplied}, nil
}

func eventFields(ev domain.ProviderEvent) logrus.Fields {
	return logrus.Fields{
		"event_id":  ev.EventID,
		"type":      ev.Type,
		"reference": ev.Reference,
		"outcome":   ev.Outcome,
	}
}
