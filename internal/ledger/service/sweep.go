package service

import (
	"context"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/sirupsen/logrus"
)

const defaultSweepBatch = 100

// Sweeper settles withdrawals and VAS purchases that stayed Pending past
// their timeout by asking the provider for a final status.
type Sweeper struct {
	engine    *Engine
	timeout   time.Duration
	batch     int
	recordTTL time.Duration
}

type SweeperParams struct {
	Engine         *Engine
	PendingTimeout time.Duration
	Batch          int
	// RecordTTL is how long idempotency records are kept.
	RecordTTL time.Duration
}

func NewSweeper(p SweeperParams) *Sweeper {
	if p.Batch <= 0 {
		p.Batch = defaultSweepBatch
	}
	return &Sweeper{
		engine:    p.Engine,
		timeout:   p.PendingTimeout,
		batch:     p.Batch,
		recordTTL: p.RecordTTL,
	}
}

// Run makes one pass and returns how many transactions reached a terminal
// status. A provider error on one transaction does not stop the pass.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	e := s.engine
	cutoff := e.clock.Now().Add(-s.timeout)

	pending, err := e.store.ListPendingBefore(ctx, cutoff, s.batch)
	if err != nil {
		e.metrics.ObserveSweep(0, err)
		return 0, err
	}

	resolved := 0
	for _, txn := range pending {
		if ctx.Err() != nil {
			break
		}
		log := e.logger.WithFields(logrus.Fields{"reference": txn.Reference, "type": txn.Type})

		started := time.Now()
		result, err := e.provider.TransactionStatus(ctx, txn.Reference)
		e.metrics.ObserveProviderCall("status", started, err)
		if err != nil {
			log.WithError(err).Warn("sweep: provider status unavailable")
			continue
		}
		if !result.Outcome.Status().IsTerminal() {
			continue
		}

		out, err := e.forceResolve(ctx, txn.Reference, result.Outcome, result.ProviderReference, sourceSweep)
		if err != nil {
			log.WithError(err).Error("sweep: resolve failed")
			continue
		}
		if out.Status != domain.StatusPending {
			resolved++
		}
	}

	e.metrics.ObserveSweep(resolved, nil)
	if resolved > 0 {
		e.logger.WithField("resolved", resolved).Info("pending sweep finished")
	}
	return resolved, nil
}

// Task adapts Run to the scheduler's signature.
func (s *Sweeper) Task(ctx context.Context) error {
	_, err := s.Run(ctx)
	return err
}

// Cleanup drops idempotency records older than the configured TTL.
func (s *Sweeper) Cleanup(ctx context.Context) error {
	if s.recordTTL <= 0 {
		return nil
	}
	deleted, err := s.engine.guard.Purge(ctx, s.recordTTL)
	if err != nil {
		return err
	}
	s.engine.metrics.ObserveCleanup(deleted)
	return nil
}
