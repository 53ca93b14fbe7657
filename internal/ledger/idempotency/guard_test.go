package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/repository"
	"github.com/SwiftFiat/NexaWallet-Backend/services/lock"
	"github.com/SwiftFiat/NexaWallet-Backend/services/security"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
)

func newTestGuard(opts ...Option) (*Guard, *repository.MemoryStore) {
	clock := utils.NewFixedClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	store := repository.NewMemoryStore(clock)
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewGuard(store, lock.NewMemoryLocker(), opts...), store
}

func TestConcurrentReserveYieldsOneFresh(t *testing.T) {
	g, _ := newTestGuard()
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh, dup := 0, 0
	var priors []domain.Outcome

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := g.CheckAndReserve(ctx, domain.ScopeClient, "TXN-1")
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if res.Duplicate {
				mu.Lock()
				dup++
				priors = append(priors, res.Prior)
				mu.Unlock()
				return
			}
			mu.Lock()
			fresh++
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			if err := res.Commit(ctx, domain.Outcome{TransactionReference: "TXN-1", Status: domain.StatusPending}); err != nil {
				t.Errorf("commit: %v", err)
			}
		}()
	}
	wg.Wait()

	if fresh != 1 || dup != callers-1 {
		t.Fatalf("fresh=%d dup=%d", fresh, dup)
	}
	for _, p := range priors {
		if p.TransactionReference != "TXN-1" || p.Status != domain.StatusPending {
			t.Fatalf("duplicate saw wrong outcome: %+v", p)
		}
	}
}

func TestReleaseLeavesReferenceFree(t *testing.T) {
	g, _ := newTestGuard()
	ctx := context.Background()

	res, err := g.CheckAndReserve(ctx, domain.ScopeClient, "TXN-2")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	res.Release()
	res.Release()

	again, err := g.CheckAndReserve(ctx, domain.ScopeClient, "TXN-2")
	if err != nil {
		t.Fatalf("reserve again: %v", err)
	}
	if again.Duplicate {
		t.Fatalf("released reference reported as duplicate")
	}
	again.Release()
}

func TestScopesAreIndependent(t *testing.T) {
	g, _ := newTestGuard()
	ctx := context.Background()

	res, err := g.CheckAndReserve(ctx, domain.ScopeWebhook, "evt-1")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := res.Commit(ctx, domain.Outcome{Note: "applied"}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	other, err := g.CheckAndReserve(ctx, domain.ScopeClient, "evt-1")
	if err != nil {
		t.Fatalf("reserve client scope: %v", err)
	}
	if other.Duplicate {
		t.Fatalf("client scope collided with webhook scope")
	}
	other.Release()
}

func TestCacheAnswersDuplicates(t *testing.T) {
	cache := security.NewCache(time.Minute, time.Minute)
	g, store := newTestGuard(WithCache(cache))
	ctx := context.Background()

	res, _ := g.CheckAndReserve(ctx, domain.ScopeClient, "TXN-3")
	if err := res.Commit(ctx, domain.Outcome{TransactionReference: "TXN-3", Status: domain.StatusSuccess}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Drop the stored record; the cache still knows the outcome
	if _, err := store.DeleteIdempotencyRecordsBefore(ctx, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("purge: %v", err)
	}
	dup, err := g.CheckAndReserve(ctx, domain.ScopeClient, "TXN-3")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !dup.Duplicate || dup.Prior.Status != domain.StatusSuccess {
		t.Fatalf("cache miss for committed reference: %+v", dup)
	}
}

func TestEmptyReferenceRejected(t *testing.T) {
	g, _ := newTestGuard()
	if _, err := g.CheckAndReserve(context.Background(), domain.ScopeClient, ""); err == nil {
		t.Fatalf("empty reference accepted")
	}
}
