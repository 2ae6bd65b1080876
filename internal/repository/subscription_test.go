package repository

import (
	"context"
	"testing"
	"time"

	"truowners/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantActive_ReplacesActive(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	subs := NewSubscriptionRepository(pool)

	silver := addPlan(t, pool, "Silver Plan", 6, 15)
	gold := addPlan(t, pool, "Gold Plan", 19, 30)
	now := time.Now().UTC().Truncate(time.Millisecond)

	first, err := subs.GrantActive(ctx, 1, silver, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, first.Status)

	second, err := subs.GrantActive(ctx, 1, gold, now)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, second.Status)
	assert.Equal(t, gold.ID, second.PlanID)
	require.NotNil(t, second.EndDate)
	assert.WithinDuration(t, now.AddDate(0, 0, 30), *second.EndDate, time.Second)
	assert.Equal(t, 19, second.Plan.ContactLimit)

	prev, err := subs.GetSubscriptionByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, prev.Status)
	require.NotNil(t, prev.EndDate)
	assert.WithinDuration(t, now, *prev.EndDate, time.Second)

	active, err := subs.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	// у другого пользователя своя подписка
	_, err = subs.GrantActive(ctx, 2, silver, now)
	require.NoError(t, err)
	active, err = subs.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestExpireDue(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	subs := NewSubscriptionRepository(pool)

	plan := addPlan(t, pool, "Silver Plan", 6, 15)
	now := time.Now().UTC()
	stale, err := subs.GrantActive(ctx, 1, plan, now.AddDate(0, 0, -20))
	require.NoError(t, err)
	fresh, err := subs.GrantActive(ctx, 2, plan, now.AddDate(0, 0, -2))
	require.NoError(t, err)

	n, err := subs.ExpireDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := subs.GetSubscriptionByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, got.Status)
	got, err = subs.GetSubscriptionByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, got.Status)

	_, err = subs.GetActiveSubscription(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
