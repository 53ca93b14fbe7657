package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/repository"
	"github.com/SwiftFiat/NexaWallet-Backend/services/lock"
	"github.com/SwiftFiat/NexaWallet-Backend/services/security"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
)

// Guard makes sure a reference reaches the ledger at most once. Callers
// sharing a key are serialised on a per-key lock; the first gets a fresh
// reservation and the rest see the outcome it committed.
type Guard struct {
	store  repository.IdempotencyStore
	locker lock.Locker
	cache  *security.Cache
	clock  utils.Clock
}

type Option func(*Guard)

// WithCache answers duplicates from memory before touching the lock or store.
func WithCache(c *security.Cache) Option {
	return func(g *Guard) { g.cache = c }
}

func WithClock(c utils.Clock) Option {
	return func(g *Guard) { g.clock = c }
}

func NewGuard(store repository.IdempotencyStore, locker lock.Locker, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		locker: locker,
		clock:  utils.RealClock{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type Reservation struct {
	Key       string
	Scope     domain.IdempotencyScope
	Duplicate bool
	Prior     domain.Outcome

	guard  *Guard
	unlock func()
	once   sync.Once
}

// CheckAndReserve returns a Duplicate reservation carrying the prior outcome,
// or a fresh one that holds the key until Commit or Release.
func (g *Guard) CheckAndReserve(ctx context.Context, scope domain.IdempotencyScope, reference string) (*Reservation, error) {
	if reference == "" {
		return nil, fmt.Errorf("idempotency reference is required")
	}
	key := domain.IdempotencyKey(scope, reference)

	if prior, ok := g.cached(key); ok {
		return &Reservation{Key: key, Scope: scope, Duplicate: true, Prior: prior}, nil
	}

	unlock, err := g.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reserve %s: %w", key, err)
	}

	rec, err := g.store.GetIdempotencyRecord(ctx, key)
	switch {
	case err == nil:
		unlock()
		g.remember(key, rec.Outcome)
		return &Reservation{Key: key, Scope: scope, Duplicate: true, Prior: rec.Outcome}, nil
	case errors.Is(err, domain.ErrRecordNotFound):
		return &Reservation{Key: key, Scope: scope, guard: g, unlock: unlock}, nil
	default:
		unlock()
		return nil, fmt.Errorf("load idempotency record %s: %w", key, err)
	}
}

// Commit records the outcome and frees the key. Later callers become duplicates.
func (r *Reservation) Commit(ctx context.Context, outcome domain.Outcome) error {
	if r.Duplicate || r.guard == nil {
		return nil
	}
	defer r.Release()

	rec := &domain.IdempotencyRecord{
		Key:       r.Key,
		Scope:     r.Scope,
		Outcome:   outcome,
		CreatedAt: r.guard.clock.Now(),
	}
	if err := r.guard.store.InsertIdempotencyRecord(ctx, rec); err != nil {
		return fmt.Errorf("commit %s: %w", r.Key, err)
	}
	r.guard.remember(r.Key, outcome)
	return nil
}

// Release frees the key without recording anything, leaving the reference
// usable by a retry. Safe to call more than once.
func (r *Reservation) Release() {
	if r.unlock == nil {
		return
	}
	r.once.Do(r.unlock)
}

// Purge deletes records older than ttl and returns how many went.
func (g *Guard) Purge(ctx context.Context, ttl time.Duration) (int64, error) {
	return g.store.DeleteIdempotencyRecordsBefore(ctx, g.clock.Now().Add(-ttl))
}

func (g *Guard) cached(key string) (domain.Outcome, bool) {
	if g.cache == nil {
		return domain.Outcome{}, false
	}
	v, err := g.cache.Get(key)
	if err != nil {
		return domain.Outcome{}, false
	}
	o, ok := v.(domain.Outcome)
	return o, ok
}

func (g *Guard) remember(key string, o domain.Outcome) {
	if g.cache != nil {
		g.cache.Insert(key, o)
	}
}
