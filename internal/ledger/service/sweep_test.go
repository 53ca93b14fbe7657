package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/idempotency"
	"github.com/SwiftFiat/NexaWallet-Backend/providers/payscribe"
	"github.com/SwiftFiat/NexaWallet-Backend/services/lock"
	"github.com/SwiftFiat/NexaWallet-Backend/services/security"
)

func TestSweepResolvesStalePending(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "1000.00")
	ctx := context.Background()

	for _, ref := range []string{"wd-s1", "wd-s2", "wd-s3"} {
		if _, err := h.engine.Withdraw(ctx, WithdrawRequest{
			WalletID: "NEXAAAAA0001", Amount: amt("100.00"), BankCode: "058", AccountNumber: "0123456789", ClientRef: ref,
		}); err != nil {
			t.Fatalf("withdraw %s: %v", ref, err)
		}
	}
	h.provider.status["wd-s1"] = &domain.ProviderResult{Outcome: domain.OutcomeSuccess}
	h.provider.status["wd-s2"] = &domain.ProviderResult{Outcome: domain.OutcomeFailed}

	sweeper := NewSweeper(SweeperParams{Engine: h.engine, PendingTimeout: 15 * time.Minute})

	// Nothing is old enough yet
	n, err := sweeper.Run(ctx)
	if err != nil || n != 0 {
		t.Fatalf("early sweep resolved=%d err=%v", n, err)
	}
	if calls := h.provider.count("status"); calls != 0 {
		t.Fatalf("provider queried before timeout: %d", calls)
	}

	h.clock.Advance(20 * time.Minute)
	n, err = sweeper.Run(ctx)
	if err != nil {
		t.Fatalf("sweep err: %v", err)
	}
	if n != 2 {
		t.Fatalf("resolved got=%d", n)
	}

	want := map[string]domain.TransactionStatus{
		"wd-s1": domain.StatusSuccess,
		"wd-s2": domain.StatusFailed,
		"wd-s3": domain.StatusPending,
	}
	for ref, status := range want {
		txn, err := h.engine.GetTransaction(ctx, ref)
		if err != nil {
			t.Fatalf("get %s: %v", ref, err)
		}
		if txn.Status != status {
			t.Fatalf("%s status got=%s want=%s", ref, txn.Status, status)
		}
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "800.00" {
		t.Fatalf("balance got=%s", got)
	}
}

func TestCleanupPurgesOldRecords(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "100.00")
	ctx := context.Background()

	sweeper := NewSweeper(SweeperParams{Engine: h.engine, RecordTTL: time.Hour})
	h.clock.Advance(2 * time.Hour)
	if err := sweeper.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := h.store.GetIdempotencyRecord(ctx, domain.IdempotencyKey(domain.ScopeClient, "seed-NEXAAAAA0001")); err == nil {
		t.Fatalf("expired record still present")
	}

	// The transaction log still blocks a replay of the purged reference
	txn, err := h.engine.Deposit(ctx, DepositRequest{WalletID: "NEXAAAAA0001", Amount: amt("100.00"), Reference: "seed-NEXAAAAA0001"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if txn.Reference != "seed-NEXAAAAA0001" {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "100.00" {
		t.Fatalf("balance got=%s", got)
	}
}

func TestSweepKeepsHoldWhenStatusQueryIsRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		h := newHarness(t)
		h.seed(t, "NEXAAAAA0001", 1, "1000.00")
		ctx := context.Background()

		// Payouts are accepted but the status endpoint refuses our key
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path == "/payouts/bank" {
				io.WriteString(w, `{"status":true,"data":{"reference":"wd-key","trans_id":"PS-1","status":"processing"}}`)
				return
			}
			w.WriteHeader(status)
			io.WriteString(w, `{"status":false,"message":"invalid api key"}`)
		}))
		t.Cleanup(srv.Close)

		ps := payscribe.NewPayscribeProvider(&payscribe.PayscribeConfig{BaseURL: srv.URL, APIKey: "rotated"}, nil)
		engine := NewEngine(EngineParams{
			Store:    h.store,
			Guard:    idempotency.NewGuard(h.store, lock.NewMemoryLocker(), idempotency.WithClock(h.clock)),
			Provider: ps,
			Plans:    NewCachedPlanCatalog(ps, NewMemoryPlanCache(security.NewCache(time.Minute, time.Minute))),
			Clock:    h.clock,
		})

		txn, err := engine.Withdraw(ctx, WithdrawRequest{
			WalletID: "NEXAAAAA0001", Amount: amt("400.00"), BankCode: "058", AccountNumber: "0123456789", ClientRef: "wd-key",
		})
		if err != nil || txn.Status != domain.StatusPending {
			t.Fatalf("status %d: withdraw txn=%+v err=%v", status, txn, err)
		}

		h.clock.Advance(time.Hour)
		n, err := NewSweeper(SweeperParams{Engine: engine, PendingTimeout: 15 * time.Minute}).Run(ctx)
		if err != nil || n != 0 {
			t.Fatalf("status %d: sweep resolved=%d err=%v", status, n, err)
		}

		txn, err = engine.GetTransaction(ctx, "wd-key")
		if err != nil || txn.Status != domain.StatusPending || txn.Reversed {
			t.Fatalf("status %d: expected pending hold got=%+v err=%v", status, txn, err)
		}
		if got := h.balance(t, "NEXAAAAA0001"); got != "600.00" {
			t.Fatalf("status %d: balance got=%s", status, got)
		}
	}
}
