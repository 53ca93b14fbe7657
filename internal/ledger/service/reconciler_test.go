package service

import (
	"context"
	"errors"
	"testing"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/providers/payscribe"
)

func TestReconcilerDiscardsUnmatchedEvents(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "1000.00")
	h.seed(t, "NEXAAAAA0002", 2, "0.00")
	ctx := context.Background()

	if _, err := h.engine.Withdraw(ctx, WithdrawRequest{
		WalletID: "NEXAAAAA0001", Amount: amt("400.00"), BankCode: "058", AccountNumber: "0123456789", ClientRef: "wd-m",
	}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := h.engine.Transfer(ctx, TransferRequest{
		SourceWalletID: "NEXAAAAA0001", DestWalletID: "NEXAAAAA0002", Amount: amt("100.00"), ClientRef: "tr-m",
	}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	tests := []struct {
		name string
		ev   domain.ProviderEvent
		note string
	}{
		{
			name: "unknown reference",
			ev:   domain.ProviderEvent{EventID: "e1", Type: domain.EventPayout, Reference: "wd-none", Outcome: domain.OutcomeFailed},
			note: noteUnknown,
		},
		{
			name: "amount mismatch",
			ev:   domain.ProviderEvent{EventID: "e2", Type: domain.EventPayout, Reference: "wd-m", Outcome: domain.OutcomeFailed, Amount: amt("40.00")},
			note: noteAmountDiffers,
		},
		{
			name: "still pending",
			ev:   domain.ProviderEvent{EventID: "e3", Type: domain.EventPayout, Reference: "wd-m", Outcome: domain.OutcomePending},
			note: noteStillPending,
		},
		{
			name: "internal transfer",
			ev:   domain.ProviderEvent{EventID: "e4", Type: domain.EventPayout, Reference: "tr-m", Outcome: domain.OutcomeFailed},
			note: noteNotSettling,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := h.recon.HandleEvent(ctx, tc.ev)
			if err != nil {
				t.Fatalf("handle err: %v", err)
			}
			if out.Note != tc.note {
				t.Fatalf("note got=%q want=%q", out.Note, tc.note)
			}
		})
	}

	if got := h.balance(t, "NEXAAAAA0001"); got != "500.00" {
		t.Fatalf("balance got=%s", got)
	}
	txn, _ := h.engine.GetTransaction(ctx, "wd-m")
	if txn.Status != domain.StatusPending {
		t.Fatalf("withdrawal should still be pending, got=%s", txn.Status)
	}
}

func TestDepositEvent(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "0.00")
	ctx := context.Background()

	ev := domain.ProviderEvent{
		EventID:           "dep-evt-1",
		Type:              domain.EventDeposit,
		Reference:         "DEP-0A1B2C3D",
		ProviderReference: "PS-DEP-9",
		Outcome:           domain.OutcomeSuccess,
		Amount:            amt("2500.50"),
		WalletID:          "NEXAAAAA0001",
		Raw:               []byte(`{"sender":"GTB"}`),
	}
	for i := 0; i < 3; i++ {
		out, err := h.recon.HandleEvent(ctx, ev)
		if err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
		if out.TransactionReference != "DEP-0A1B2C3D" || out.Status != domain.StatusSuccess {
			t.Fatalf("delivery %d outcome: %+v", i, out)
		}
	}
	// Same deposit reference under a new event id still credits once
	ev.EventID = "dep-evt-2"
	if _, err := h.recon.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("second event id: %v", err)
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "2500.50" {
		t.Fatalf("balance got=%s", got)
	}

	txn, err := h.engine.GetTransaction(ctx, "DEP-0A1B2C3D")
	if err != nil {
		t.Fatalf("get deposit: %v", err)
	}
	if txn.Type != domain.TypeDeposit || txn.Destination.WalletID != "NEXAAAAA0001" || txn.SourceWalletID != "" {
		t.Fatalf("unexpected deposit: %+v", txn)
	}
	if string(txn.Metadata) != `{"sender":"GTB"}` {
		t.Fatalf("metadata got=%s", txn.Metadata)
	}
}

func TestDepositToUnknownWalletIsRetryable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ev := domain.ProviderEvent{
		EventID: "dep-x", Type: domain.EventDeposit, Reference: "DEP-X", Outcome: domain.OutcomeSuccess,
		Amount: amt("10.00"), WalletID: "NEXAFFFFFFFF",
	}
	if _, err := h.recon.HandleEvent(ctx, ev); !errors.Is(err, domain.ErrWalletNotFound) {
		t.Fatalf("expected wallet not found, got=%v", err)
	}

	h.seed(t, "NEXAFFFFFFFF", 9, "0.00")
	if _, err := h.recon.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("redelivery after wallet exists: %v", err)
	}
	if got := h.balance(t, "NEXAFFFFFFFF"); got != "10.00" {
		t.Fatalf("balance got=%s", got)
	}
}

func TestEventWithoutIDRejected(t *testing.T) {
	h := newHarness(t)
	_, err := h.recon.HandleEvent(context.Background(), domain.ProviderEvent{Type: domain.EventPayout, Reference: "x"})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got=%v", err)
	}
}

func TestDepositsWithoutReferenceCreditSeparately(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "0.00")
	h.seed(t, "NEXAAAAA0002", 2, "0.00")
	ctx := context.Background()

	payloads := []payscribe.WebhookPayload{
		{Event: "deposit", TransID: "PS-1", Amount: "100.00", WalletID: "NEXAAAAA0001"},
		{Event: "deposit", TransID: "PS-2", Amount: "250.00", WalletID: "NEXAAAAA0002"},
	}
	for _, p := range payloads {
		ev, err := p.ToEvent(nil)
		if err != nil {
			t.Fatalf("%s: to event: %v", p.TransID, err)
		}
		out, err := h.recon.HandleEvent(ctx, ev)
		if err != nil {
			t.Fatalf("%s: handle: %v", p.TransID, err)
		}
		if out.TransactionReference != p.TransID || out.Note != noteCredited {
			t.Fatalf("%s: unexpected outcome got=%+v", p.TransID, out)
		}
	}

	// Redelivery of the first deposit stays a no-op
	ev, _ := payloads[0].ToEvent(nil)
	if _, err := h.recon.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	if got := h.balance(t, "NEXAAAAA0001"); got != "100.00" {
		t.Fatalf("first wallet balance got=%s", got)
	}
	if got := h.balance(t, "NEXAAAAA0002"); got != "250.00" {
		t.Fatalf("second wallet balance got=%s", got)
	}
}
