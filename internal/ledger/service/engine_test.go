package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/idempotency"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/repository"
	"github.com/SwiftFiat/NexaWallet-Backend/services/events"
	"github.com/SwiftFiat/NexaWallet-Backend/services/lock"
	"github.com/SwiftFiat/NexaWallet-Backend/services/security"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/shopspring/decimal"
)

type fakeProvider struct {
	mu      sync.Mutex
	result  *domain.ProviderResult
	err     error
	status  map[string]*domain.ProviderResult
	plans   []domain.DataPlan
	vaErr   error
	calls   map[string]int
	lastRef string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		result: &domain.ProviderResult{Outcome: domain.OutcomePending},
		status: make(map[string]*domain.ProviderResult),
		calls:  make(map[string]int),
		plans: []domain.DataPlan{
			{Code: "MTN-1GB", Network: "MTN", Name: "1GB 30 days", Amount: decimal.RequireFromString("300.00")},
		},
	}
}

func (f *fakeProvider) record(op, ref string) (*domain.ProviderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	f.lastRef = ref
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

func (f *fakeProvider) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeProvider) CreateVirtualAccount(ctx context.Context, req domain.VirtualAccountRequest) (*domain.VirtualAccount, error) {
	if f.vaErr != nil {
		return nil, f.vaErr
	}
	return &domain.VirtualAccount{AccountNumber: "9012345678", BankName: "Wema Bank", AccountName: req.CustomerEmail}, nil
}

func (f *fakeProvider) Payout(ctx context.Context, req domain.PayoutRequest) (*domain.ProviderResult, error) {
	return f.record("payout", req.Reference)
}

func (f *fakeProvider) BuyAirtime(ctx context.Context, order domain.AirtimeOrder) (*domain.ProviderResult, error) {
	return f.record("airtime", order.Reference)
}

func (f *fakeProvider) BuyData(ctx context.Context, order domain.DataOrder) (*domain.ProviderResult, error) {
	return f.record("data", order.Reference)
}

func (f *fakeProvider) TransactionStatus(ctx context.Context, reference string) (*domain.ProviderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["status"]++
	if r, ok := f.status[reference]; ok {
		return r, nil
	}
	return &domain.ProviderResult{Outcome: domain.OutcomePending}, nil
}

func (f *fakeProvider) DataPlans(ctx context.Context, network string) ([]domain.DataPlan, error) {
	out := make([]domain.DataPlan, 0)
	for _, p := range f.plans {
		if p.Network == network {
			out = append(out, p)
		}
	}
	return out, nil
}

type harness struct {
	engine   *Engine
	recon    *Reconciler
	store    *repository.MemoryStore
	provider *fakeProvider
	events   *events.Recorder
	clock    *utils.FixedClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := utils.NewFixedClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	store := repository.NewMemoryStore(clock)
	provider := newFakeProvider()
	rec := &events.Recorder{}
	engine := NewEngine(EngineParams{
		Store:    store,
		Guard:    idempotency.NewGuard(store, lock.NewMemoryLocker(), idempotency.WithClock(clock)),
		Provider: provider,
		Plans:    NewCachedPlanCatalog(provider, NewMemoryPlanCache(security.NewCache(time.Minute, time.Minute))),
		Events:   rec,
		Clock:    clock,
	})
	return &harness{
		engine:   engine,
		recon:    NewReconciler(engine),
		store:    store,
		provider: provider,
		events:   rec,
		clock:    clock,
	}
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seed opens walletID and funds it through a deposit.
func (h *harness) seed(t *testing.T, walletID string, userID int64, balance string) {
	t.Helper()
	ctx := context.Background()
	err := h.store.CreateWallet(ctx, &domain.Wallet{
		ID:       walletID,
		UserID:   userID,
		Currency: domain.DefaultCurrency,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("create wallet %s: %v", walletID, err)
	}
	if balance == "0.00" {
		return
	}
	if _, err := h.engine.Deposit(ctx, DepositRequest{WalletID: walletID, Amount: amt(balance), Reference: "seed-" + walletID}); err != nil {
		t.Fatalf("seed deposit %s: %v", walletID, err)
	}
}

func (h *harness) balance(t *testing.T, walletID string) string {
	t.Helper()
	b, err := h.engine.GetBalance(context.Background(), walletID)
	if err != nil {
		t.Fatalf("balance %s: %v", walletID, err)
	}
	return domain.FormatAmount(b)
}

func TestWithdrawConfirmedByWebhook(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, "NEXA12345678", 1, "5000.00")

	txn, err := h.engine.Withdraw(ctx, WithdrawRequest{
		WalletID:      "NEXA12345678",
		Amount:        amt("1000.00"),
		BankCode:      "058",
		AccountNumber: "0123456789",
		AccountName:   "Ada Obi",
		ClientRef:     "wd-1",
	})
	if err != nil {
		t.Fatalf("withdraw err: %v", err)
	}
	if txn.Status != domain.StatusPending {
		t.Fatalf("expected pending withdrawal, got=%s", txn.Status)
	}
	if got := h.balance(t, "NEXA12345678"); got != "4000.00" {
		t.Fatalf("balance after hold got=%s", got)
	}

	ev := domain.ProviderEvent{
		EventID:   "evt-100",
		Type:      domain.EventPayout,
		Reference: "wd-1",
		Outcome:   domain.OutcomeSuccess,
		Amount:    amt("1000.00"),
	}
	out, err := h.recon.HandleEvent(ctx, ev)
	if err != nil {
		t.Fatalf("webhook err: %v", err)
	}
	if out.Status != domain.StatusSuccess {
		t.Fatalf("webhook outcome got=%+v", out)
	}

	// Redelivery of the same event id is a no-op
	again, err := h.recon.HandleEvent(ctx, ev)
	if err != nil {
		t.Fatalf("redelivered webhook err: %v", err)
	}
	if again != out {
		t.Fatalf("redelivery outcome changed: first=%+v second=%+v", out, again)
	}

	got, err := h.engine.GetTransaction(ctx, "wd-1")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Status != domain.StatusSuccess || got.Reversed {
		t.Fatalf("unexpected final transaction: %+v", got)
	}
	if b := h.balance(t, "NEXA12345678"); b != "4000.00" {
		t.Fatalf("final balance got=%s", b)
	}
}

func TestTransferToMissingWallet(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXA12345678", 1, "4000.00")

	_, err := h.engine.Transfer(context.Background(), TransferRequest{
		SourceWalletID: "NEXA12345678",
		DestWalletID:   "NEXA00000000",
		Amount:         amt("500.00"),
		ClientRef:      "tr-missing",
	})
	if !errors.Is(err, domain.ErrDestinationNotFound) {
		t.Fatalf("expected destination not found, got=%v", err)
	}
	if b := h.balance(t, "NEXA12345678"); b != "4000.00" {
		t.Fatalf("balance changed got=%s", b)
	}
	if _, err := h.engine.GetTransaction(context.Background(), "tr-missing"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("failed transfer left a transaction: %v", err)
	}
}

func TestTransferIsZeroSum(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t, "NEXAAAAA0001", 1, "750.25")
	h.seed(t, "NEXAAAAA0002", 2, "100.00")

	txn, err := h.engine.Transfer(ctx, TransferRequest{
		SourceWalletID: "NEXAAAAA0001",
		DestWalletID:   "NEXAAAAA0002",
		Amount:         amt("250.25"),
		Narration:      "rent",
	})
	if err != nil {
		t.Fatalf("transfer err: %v", err)
	}
	if txn.Status != domain.StatusSuccess {
		t.Fatalf("transfer status got=%s", txn.Status)
	}
	if len(txn.Reference) != len("TXN-")+8 || txn.Reference[:4] != "TXN-" {
		t.Fatalf("generated reference has wrong shape: %s", txn.Reference)
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "500.00" {
		t.Fatalf("source balance got=%s", got)
	}
	if got := h.balance(t, "NEXAAAAA0002"); got != "350.25" {
		t.Fatalf("destination balance got=%s", got)
	}

	// Both wallets see the transfer in their history
	for _, id := range []string{"NEXAAAAA0001", "NEXAAAAA0002"} {
		list, err := h.engine.ListTransactions(ctx, id, 10, 0)
		if err != nil {
			t.Fatalf("list %s: %v", id, err)
		}
		if len(list) == 0 || list[0].Reference != txn.Reference {
			t.Fatalf("latest transaction for %s not the transfer: %+v", id, list)
		}
	}
}

func TestTransferRejectsSelfAndBadAmounts(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "100.00")
	h.seed(t, "NEXAAAAA0002", 2, "0.00")

	tests := []struct {
		name   string
		dest   string
		amount string
		want   error
	}{
		{name: "self", dest: "NEXAAAAA0001", amount: "1.00", want: domain.ErrSelfTransfer},
		{name: "zero", dest: "NEXAAAAA0002", amount: "0", want: domain.ErrInvalidAmount},
		{name: "negative", dest: "NEXAAAAA0002", amount: "-5.00", want: domain.ErrInvalidAmount},
		{name: "three places", dest: "NEXAAAAA0002", amount: "1.005", want: domain.ErrInvalidAmount},
		{name: "more than balance", dest: "NEXAAAAA0002", amount: "100.01", want: domain.ErrInsufficientFunds},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.engine.Transfer(context.Background(), TransferRequest{
				SourceWalletID: "NEXAAAAA0001",
				DestWalletID:   tc.dest,
				Amount:         amt(tc.amount),
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got=%v", tc.want, err)
			}
		})
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "100.00" {
		t.Fatalf("balance changed by rejected transfers got=%s", got)
	}
}

func TestExactBalanceIsSpendable(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "100.00")
	h.seed(t, "NEXAAAAA0002", 2, "0.00")

	_, err := h.engine.Transfer(context.Background(), TransferRequest{
		SourceWalletID: "NEXAAAAA0001",
		DestWalletID:   "NEXAAAAA0002",
		Amount:         amt("100.00"),
	})
	if err != nil {
		t.Fatalf("transfer of full balance err: %v", err)
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "0.00" {
		t.Fatalf("source balance got=%s", got)
	}
}

func TestConcurrentDebitsOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "100.00")
	h.seed(t, "NEXAAAAA0002", 2, "0.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.engine.Transfer(context.Background(), TransferRequest{
				SourceWalletID: "NEXAAAAA0001",
				DestWalletID:   "NEXAAAAA0002",
				Amount:         amt("60.00"),
			})
		}(i)
	}
	wg.Wait()

	ok, short := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientFunds):
			short++
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if ok != 1 || short != 1 {
		t.Fatalf("expected one success and one insufficient funds, got ok=%d short=%d", ok, short)
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "40.00" {
		t.Fatalf("source balance got=%s", got)
	}
}

func TestDuplicateClientRefAppliesOnce(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "1000.00")

	const callers = 8
	var wg sync.WaitGroup
	refs := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txn, err := h.engine.Withdraw(context.Background(), WithdrawRequest{
				WalletID:      "NEXAAAAA0001",
				Amount:        amt("200.00"),
				BankCode:      "044",
				AccountNumber: "0011223344",
				ClientRef:     "wd-dup",
			})
			errs[i] = err
			if txn != nil {
				refs[i] = txn.Reference
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("caller %d err: %v", i, errs[i])
		}
		if refs[i] != "wd-dup" {
			t.Fatalf("caller %d got reference %q", i, refs[i])
		}
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "800.00" {
		t.Fatalf("balance got=%s, want one debit", got)
	}
	if n := h.provider.count("payout"); n != 1 {
		t.Fatalf("provider called %d times", n)
	}
	list, err := h.engine.ListTransactions(context.Background(), "NEXAAAAA0001", 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	withdrawals := 0
	for _, txn := range list {
		if txn.Type == domain.TypeWithdrawal {
			withdrawals++
		}
	}
	if withdrawals != 1 {
		t.Fatalf("expected one withdrawal record, got=%d", withdrawals)
	}
}

func TestReferenceReuseWithDifferentRequest(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "1000.00")
	h.seed(t, "NEXAAAAA0002", 2, "0.00")
	ctx := context.Background()

	req := TransferRequest{SourceWalletID: "NEXAAAAA0001", DestWalletID: "NEXAAAAA0002", Amount: amt("10.00"), ClientRef: "tr-1"}
	if _, err := h.engine.Transfer(ctx, req); err != nil {
		t.Fatalf("first transfer: %v", err)
	}
	req.Amount = amt("20.00")
	if _, err := h.engine.Transfer(ctx, req); !errors.Is(err, domain.ErrReferenceConflict) {
		t.Fatalf("expected reference conflict, got=%v", err)
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "990.00" {
		t.Fatalf("balance got=%s", got)
	}
}

func TestInsufficientFundsLeavesReferenceFree(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "50.00")
	ctx := context.Background()

	req := WithdrawRequest{WalletID: "NEXAAAAA0001", Amount: amt("80.00"), BankCode: "058", AccountNumber: "0123456789", ClientRef: "wd-retry"}
	if _, err := h.engine.Withdraw(ctx, req); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got=%v", err)
	}
	if _, err := h.engine.Deposit(ctx, DepositRequest{WalletID: "NEXAAAAA0001", Amount: amt("50.00"), Reference: "top-up"}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	txn, err := h.engine.Withdraw(ctx, req)
	if err != nil {
		t.Fatalf("retry after funding: %v", err)
	}
	if txn.Status != domain.StatusPending {
		t.Fatalf("retry status got=%s", txn.Status)
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "20.00" {
		t.Fatalf("balance got=%s", got)
	}
}

func TestFailedWebhookReversesExactlyOnce(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "5000.00")
	ctx := context.Background()

	if _, err := h.engine.Withdraw(ctx, WithdrawRequest{
		WalletID: "NEXAAAAA0001", Amount: amt("1000.00"), BankCode: "058", AccountNumber: "0123456789", ClientRef: "wd-fail",
	}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	failed := domain.ProviderEvent{EventID: "evt-f1", Type: domain.EventPayout, Reference: "wd-fail", Outcome: domain.OutcomeFailed}
	for i := 0; i < 2; i++ {
		if _, err := h.recon.HandleEvent(ctx, failed); err != nil {
			t.Fatalf("delivery %d err: %v", i, err)
		}
	}
	// A second event id for the same transaction finds it terminal
	failed.EventID = "evt-f2"
	out, err := h.recon.HandleEvent(ctx, failed)
	if err != nil {
		t.Fatalf("second event err: %v", err)
	}
	if out.Note != noteTerminal {
		t.Fatalf("expected terminal note, got=%+v", out)
	}

	if got := h.balance(t, "NEXAAAAA0001"); got != "5000.00" {
		t.Fatalf("balance after reversal got=%s", got)
	}
	txn, _ := h.engine.GetTransaction(ctx, "wd-fail")
	if txn.Status != domain.StatusFailed || !txn.Reversed {
		t.Fatalf("unexpected transaction: %+v", txn)
	}

	entries, err := h.store.ListEntries(ctx, "NEXAAAAA0001")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	reversals := 0
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Delta)
		if e.Kind == domain.EntryReversal {
			reversals++
		}
	}
	if reversals != 1 {
		t.Fatalf("expected one reversal entry, got=%d", reversals)
	}
	if !sum.Equal(amt("5000.00")) {
		t.Fatalf("entries do not sum to balance: %s", sum)
	}
}

func TestProviderUnavailableKeepsHold(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "300.00")
	h.provider.err = domain.NewLedgerError(domain.ErrProviderUnavailable, "", "")

	txn, err := h.engine.PurchaseAirtime(context.Background(), AirtimeRequest{
		WalletID: "NEXAAAAA0001", PhoneNumber: "08031234567", Amount: amt("100.00"), Network: "mtn",
	})
	if err != nil {
		t.Fatalf("airtime err: %v", err)
	}
	if txn.Status != domain.StatusPending {
		t.Fatalf("status got=%s", txn.Status)
	}
	if txn.Destination.Network != "MTN" || txn.Reference[:4] != "AIR-" {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "200.00" {
		t.Fatalf("balance got=%s", got)
	}
}

func TestSynchronousProviderResults(t *testing.T) {
	tests := []struct {
		name     string
		outcome  domain.ProviderOutcome
		status   domain.TransactionStatus
		balance  string
		reversed bool
	}{
		{name: "success", outcome: domain.OutcomeSuccess, status: domain.StatusSuccess, balance: "700.00"},
		{name: "failed", outcome: domain.OutcomeFailed, status: domain.StatusFailed, balance: "1000.00", reversed: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.seed(t, "NEXAAAAA0001", 1, "1000.00")
			h.provider.result = &domain.ProviderResult{Outcome: tc.outcome, ProviderReference: "PS-1"}

			txn, err := h.engine.PurchaseData(context.Background(), DataRequest{
				WalletID: "NEXAAAAA0001", PhoneNumber: "08031234567", PlanCode: "MTN-1GB", Network: "MTN",
			})
			if err != nil {
				t.Fatalf("data err: %v", err)
			}
			if txn.Status != tc.status || txn.Reversed != tc.reversed {
				t.Fatalf("unexpected transaction: %+v", txn)
			}
			if !txn.Amount.Equal(amt("300.00")) || txn.ProviderReference != "PS-1" {
				t.Fatalf("plan price or provider ref not recorded: %+v", txn)
			}
			if got := h.balance(t, "NEXAAAAA0001"); got != tc.balance {
				t.Fatalf("balance got=%s", got)
			}
		})
	}
}

func TestPurchaseDataValidation(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "1000.00")
	ctx := context.Background()

	if _, err := h.engine.PurchaseData(ctx, DataRequest{WalletID: "NEXAAAAA0001", PhoneNumber: "080", PlanCode: "GLO-9GB", Network: "MTN"}); !errors.Is(err, domain.ErrUnknownPlan) {
		t.Fatalf("expected unknown plan, got=%v", err)
	}
	if _, err := h.engine.PurchaseData(ctx, DataRequest{WalletID: "NEXAAAAA0001", PhoneNumber: "080", PlanCode: "MTN-1GB", Network: "ETISALAT"}); !errors.Is(err, domain.ErrInvalidNetwork) {
		t.Fatalf("expected invalid network, got=%v", err)
	}
	if n := h.provider.count("data"); n != 0 {
		t.Fatalf("provider called for invalid request: %d", n)
	}
}

func TestForceResolveAppliesOnce(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "500.00")
	ctx := context.Background()

	if _, err := h.engine.Withdraw(ctx, WithdrawRequest{
		WalletID: "NEXAAAAA0001", Amount: amt("500.00"), BankCode: "058", AccountNumber: "0123456789", ClientRef: "wd-force",
	}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	txn, err := h.engine.ForceResolve(ctx, "wd-force", domain.OutcomeFailed)
	if err != nil {
		t.Fatalf("force resolve: %v", err)
	}
	if txn.Status != domain.StatusFailed || !txn.Reversed {
		t.Fatalf("unexpected transaction: %+v", txn)
	}

	txn, err = h.engine.ForceResolve(ctx, "wd-force", domain.OutcomeSuccess)
	if err != nil {
		t.Fatalf("second force resolve: %v", err)
	}
	if txn.Status != domain.StatusFailed {
		t.Fatalf("terminal transaction changed: %+v", txn)
	}
	if got := h.balance(t, "NEXAAAAA0001"); got != "500.00" {
		t.Fatalf("balance got=%s", got)
	}

	if _, err := h.engine.ForceResolve(ctx, "nope", domain.OutcomeSuccess); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected not found, got=%v", err)
	}
	if _, err := h.engine.ForceResolve(ctx, "wd-force", domain.OutcomePending); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for pending outcome, got=%v", err)
	}
}

func TestCreateWallet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	w, err := h.engine.CreateWallet(ctx, 42, "ada@example.com")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if len(w.ID) != 12 || w.ID[:4] != utils.WalletIDPrefix {
		t.Fatalf("wallet id has wrong shape: %s", w.ID)
	}
	if w.VirtualAccountNumber != "9012345678" || !w.Balance.IsZero() || !w.IsActive {
		t.Fatalf("unexpected wallet: %+v", w)
	}
	if _, err := h.engine.CreateWallet(ctx, 42, "ada@example.com"); !errors.Is(err, domain.ErrWalletExists) {
		t.Fatalf("expected wallet exists, got=%v", err)
	}

	h.provider.vaErr = errors.New("provider down")
	w2, err := h.engine.CreateWallet(ctx, 43, "obi@example.com")
	if err != nil {
		t.Fatalf("wallet creation must survive provider failure: %v", err)
	}
	if w2.VirtualAccountNumber != "" {
		t.Fatalf("virtual account set despite failure: %+v", w2)
	}
}

func TestEventsPublished(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "100.00")
	h.provider.result = &domain.ProviderResult{Outcome: domain.OutcomeSuccess}

	if _, err := h.engine.Withdraw(context.Background(), WithdrawRequest{
		WalletID: "NEXAAAAA0001", Amount: amt("10.00"), BankCode: "058", AccountNumber: "0123456789", ClientRef: "wd-ev",
	}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	var kinds []string
	for _, ev := range h.events.Events() {
		if ev.Reference == "wd-ev" {
			kinds = append(kinds, ev.EventType+":"+ev.Status)
		}
	}
	if len(kinds) != 2 || kinds[0] != "transaction.created:PENDING" || kinds[1] != "transaction.resolved:SUCCESS" {
		t.Fatalf("unexpected events: %v", kinds)
	}
}

func TestListTransactionsCapsLimit(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "NEXAAAAA0001", 1, "0.00")
	ctx := context.Background()

	for i := 0; i < maxHistoryLimit+5; i++ {
		if _, err := h.engine.Deposit(ctx, DepositRequest{WalletID: "NEXAAAAA0001", Amount: amt("1.00")}); err != nil {
			t.Fatalf("deposit %d: %v", i, err)
		}
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, defaultHistoryLimit},
		{30, 30},
		{500, maxHistoryLimit},
	}
	for _, tc := range tests {
		txns, err := h.engine.ListTransactions(ctx, "NEXAAAAA0001", tc.limit, 0)
		if err != nil {
			t.Fatalf("limit %d: %v", tc.limit, err)
		}
		if len(txns) != tc.want {
			t.Fatalf("limit %d: expected %d got=%d", tc.limit, tc.want, len(txns))
		}
	}
}
