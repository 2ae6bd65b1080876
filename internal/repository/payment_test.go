package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"truowners/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettle_SecondCallIsNoop(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	payments := NewPaymentRepository(pool)
	subs := NewSubscriptionRepository(pool)

	plan := addPlan(t, pool, "Silver Plan", 6, 15)
	_, pending := addCheckout(t, pool, 1, plan, "TRU_1_000001_A")
	now := time.Now().UTC().Truncate(time.Millisecond)

	snapshot := json.RawMessage(`{"orderId":"OMO1","state":"COMPLETED"}`)
	p, applied, err := payments.Settle(ctx, "TRU_1_000001_A", models.PaymentOutcome{
		Status:               models.PaymentSuccess,
		GatewayTransactionID: "TX1",
		PaymentMethod:        "UPI_QR",
		ResponseCode:         "COMPLETED",
		Raw:                  snapshot,
	}, now)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.PaymentSuccess, p.Status)
	assert.Equal(t, "TX1", p.GatewayTransactionID)
	assert.JSONEq(t, string(snapshot), string(p.CallbackData), "снимок шлюза сохраняется при закрытии")

	sub, err := subs.GetSubscriptionByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.EndDate)
	assert.WithinDuration(t, now.AddDate(0, 0, 15), *sub.EndDate, time.Second)

	again, applied, err := payments.Settle(ctx, "TRU_1_000001_A", models.PaymentOutcome{
		Status: models.PaymentFailed,
		Raw:    json.RawMessage(`{"state":"FAILED"}`),
	}, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, applied, "повторное закрытие ничего не меняет")
	assert.Equal(t, models.PaymentSuccess, again.Status)
	assert.JSONEq(t, string(snapshot), string(again.CallbackData))

	sub, err = subs.GetSubscriptionByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
}

func TestSettle_KeepsCallbackBodyWithoutSnapshot(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	payments := NewPaymentRepository(pool)

	plan := addPlan(t, pool, "Silver Plan", 6, 15)
	addCheckout(t, pool, 1, plan, "TRU_1_000002_B")

	body := json.RawMessage(`{"merchantOrderId":"TRU_1_000002_B"}`)
	require.NoError(t, payments.SaveCallbackData(ctx, "TRU_1_000002_B", body))

	p, applied, err := payments.Settle(ctx, "TRU_1_000002_B", models.PaymentOutcome{
		Status:       models.PaymentSuccess,
		ResponseCode: "SANDBOX",
	}, time.Now())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.JSONEq(t, string(body), string(p.CallbackData))

	// закрытый платёж не перезаписывается повторным колбэком
	require.NoError(t, payments.SaveCallbackData(ctx, "TRU_1_000002_B", json.RawMessage(`{"replay":true}`)))
	p, err = payments.GetByMerchantTransactionID(ctx, "TRU_1_000002_B")
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(p.CallbackData))
}

func TestSettle_ReplacesActiveSubscription(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	payments := NewPaymentRepository(pool)
	subs := NewSubscriptionRepository(pool)

	silver := addPlan(t, pool, "Silver Plan", 6, 15)
	gold := addPlan(t, pool, "Gold Plan", 19, 15)
	now := time.Now().UTC()

	old, err := subs.GrantActive(ctx, 1, silver, now.Add(-time.Hour))
	require.NoError(t, err)
	_, upgrade := addCheckout(t, pool, 1, gold, "TRU_1_000003_C")

	_, applied, err := payments.Settle(ctx, "TRU_1_000003_C", models.PaymentOutcome{Status: models.PaymentSuccess}, now)
	require.NoError(t, err)
	assert.True(t, applied)

	prev, err := subs.GetSubscriptionByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, prev.Status)

	active, err := subs.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, upgrade.ID, active.ID)
	assert.Equal(t, 0, active.ContactsViewed)
}

func TestSettle_FailureCancelsPendingSubscription(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	payments := NewPaymentRepository(pool)
	subs := NewSubscriptionRepository(pool)

	plan := addPlan(t, pool, "Silver Plan", 6, 15)
	_, pending := addCheckout(t, pool, 1, plan, "TRU_1_000004_D")

	p, applied, err := payments.Settle(ctx, "TRU_1_000004_D", models.PaymentOutcome{Status: models.PaymentFailed}, time.Now())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.PaymentFailed, p.Status)

	sub, err := subs.GetSubscriptionByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)
}

func TestSettle_ConcurrentActivationIsConflict(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	payments := NewPaymentRepository(pool)

	plan := addPlan(t, pool, "Silver Plan", 6, 15)
	addCheckout(t, pool, 1, plan, "TRU_1_000005_E")
	now := time.Now().UTC()

	// вторая активация того же пользователя в соседней транзакции
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	_, err = tx.Exec(ctx, `
		INSERT INTO user_subscriptions (user_id, plan_id, start_date, end_date, contacts_viewed, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 'active', NOW(), NOW())`, 1, plan.ID, now, now.AddDate(0, 0, 15))
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, _, err := payments.Settle(ctx, "TRU_1_000005_E", models.PaymentOutcome{Status: models.PaymentSuccess}, now)
		errc <- err
	}()
	// Settle ждёт на уникальном индексе, пока соседняя транзакция не завершится
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, tx.Commit(ctx))

	assert.ErrorIs(t, <-errc, ErrConflict)
	p, err := payments.GetByMerchantTransactionID(ctx, "TRU_1_000005_E")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status, "платёж остаётся pending до сверки")

	// сверка позже проходит: прежняя активная подписка отменяется
	_, applied, err := payments.Settle(ctx, "TRU_1_000005_E", models.PaymentOutcome{Status: models.PaymentSuccess}, now)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestListPendingBefore(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	payments := NewPaymentRepository(pool)

	plan := addPlan(t, pool, "Silver Plan", 6, 15)
	addCheckout(t, pool, 1, plan, "TRU_1_000006_F")
	addCheckout(t, pool, 2, plan, "TRU_1_000007_G")
	_, _, err := payments.Settle(ctx, "TRU_1_000007_G", models.PaymentOutcome{Status: models.PaymentSuccess}, time.Now())
	require.NoError(t, err)

	stuck, err := payments.ListPendingBefore(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "TRU_1_000006_F", stuck[0].MerchantTransactionID)

	none, err := payments.ListPendingBefore(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
