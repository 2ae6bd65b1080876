package cache

import (
	"context"
	"encoding/json"
	"time"

	"truowners/internal/models"
)

const plansKey = "truowners:plans:active"

// PlanCache кэширует список активных тарифов.
type PlanCache struct {
	store Store
	ttl   time.Duration
}

func NewPlanCache(store Store, ttl time.Duration) *PlanCache {
	return &PlanCache{store: store, ttl: ttl}
}

func (c *PlanCache) Get(ctx context.Context) ([]models.SubscriptionPlan, bool) {
	b, ok, err := c.store.Get(ctx, plansKey)
	if err != nil || !ok {
		return nil, false
	}
	var plans []models.SubscriptionPlan
	if err := json.Unmarshal(b, &plans); err != nil {
		return nil, false
	}
	return plans, true
}

func (c *PlanCache) Set(ctx context.Context, plans []models.SubscriptionPlan) error {
	b, err := json.Marshal(plans)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, plansKey, b, c.ttl)
}

func (c *PlanCache) Invalidate(ctx context.Context) error {
	return c.store.Del(ctx, plansKey)
}
