package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/services/security"
)

// PlanCache holds plan lists between provider fetches.
type PlanCache interface {
	LoadPlans(ctx context.Context, network string) ([]domain.DataPlan, bool)
	StorePlans(ctx context.Context, network string, plans []domain.DataPlan)
}

// CachedPlanCatalog prices data bundles from the provider's catalog,
// fetching each network's list at most once per cache lifetime.
type CachedPlanCatalog struct {
	source PlanSource
	cache  PlanCache
}

func NewCachedPlanCatalog(source PlanSource, cache PlanCache) *CachedPlanCatalog {
	return &CachedPlanCatalog{source: source, cache: cache}
}

func planKey(network string) string { return "plans:" + network }

func (c *CachedPlanCatalog) Plans(ctx context.Context, network string) ([]domain.DataPlan, error) {
	network, err := domain.NormalizeNetwork(network)
	if err != nil {
		return nil, err
	}

	if plans, ok := c.cache.LoadPlans(ctx, network); ok {
		return plans, nil
	}

	plans, err := c.source.DataPlans(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("fetch %s data plans: %w", network, err)
	}
	c.cache.StorePlans(ctx, network, plans)
	return plans, nil
}

func (c *CachedPlanCatalog) Plan(ctx context.Context, network, code string) (*domain.DataPlan, error) {
	plans, err := c.Plans(ctx, network)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if plans[i].Code == code {
			p := plans[i]
			return &p, nil
		}
	}
	return nil, domain.NewLedgerError(domain.ErrUnknownPlan, "", "", fmt.Errorf("plan %q on %s", code, network))
}

// MemoryPlanCache keeps plans in the process.
type MemoryPlanCache struct {
	cache *security.Cache
}

func NewMemoryPlanCache(cache *security.Cache) *MemoryPlanCache {
	return &MemoryPlanCache{cache: cache}
}

func (m *MemoryPlanCache) LoadPlans(ctx context.Context, network string) ([]domain.DataPlan, bool) {
	v, err := m.cache.Get(planKey(network))
	if err != nil {
		return nil, false
	}
	plans, ok := v.([]domain.DataPlan)
	return plans, ok
}

func (m *MemoryPlanCache) StorePlans(ctx context.Context, network string, plans []domain.DataPlan) {
	m.cache.Insert(planKey(network), plans)
}

// KeyValue is the part of the redis service the shared plan cache uses.
type KeyValue interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisPlanCache shares plan lists between instances as JSON.
type RedisPlanCache struct {
	kv  KeyValue
	ttl time.Duration
}

func NewRedisPlanCache(kv KeyValue, ttl time.Duration) *RedisPlanCache {
	return &RedisPlanCache{kv: kv, ttl: ttl}
}

func (r *RedisPlanCache) LoadPlans(ctx context.Context, network string) ([]domain.DataPlan, bool) {
	raw, err := r.kv.Get(ctx, planKey(network))
	if err != nil {
		return nil, false
	}
	var plans []domain.DataPlan
	if err := json.Unmarshal([]byte(raw), &plans); err != nil {
		return nil, false
	}
	return plans, true
}

func (r *RedisPlanCache) StorePlans(ctx context.Context, network string, plans []domain.DataPlan) {
	raw, err := json.Marshal(plans)
	if err != nil {
		return
	}
	// A failed write only costs another provider fetch
	_ = r.kv.Set(ctx, planKey(network), raw, r.ttl)
}
