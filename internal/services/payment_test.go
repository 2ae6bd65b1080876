package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"truowners/internal/events"
	"truowners/internal/models"
	"truowners/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var merchantTxnPattern = regexp.MustCompile(`^TRU_[0-9]+_[0-9]{6}_[A-Za-z0-9]+$`)

type paymentFixture struct {
	svc      *PaymentService
	plans    *fakePlans
	subs     *fakeSubs
	payments *fakePayments
	gateway  *fakeGateway
	pub      *fakePublisher
	silver   *models.SubscriptionPlan
	gold     *models.SubscriptionPlan
	now      time.Time
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{plans: newFakePlans(), gateway: newFakeGateway(), pub: &fakePublisher{}}
	f.subs = newFakeSubs(f.plans)
	f.payments = newFakePayments(f.subs)
	f.silver = &models.SubscriptionPlan{Name: "Silver Plan", Price: 599, ContactLimit: 6, ValidityDays: 15, IsActive: true}
	f.gold = &models.SubscriptionPlan{Name: "Gold Plan", Price: 1199, ContactLimit: 19, ValidityDays: 15, IsActive: true}
	require.NoError(t, f.plans.UpsertPlan(context.Background(), f.silver))
	require.NoError(t, f.plans.UpsertPlan(context.Background(), f.gold))

	f.svc = NewPaymentService(f.payments, f.plans, f.subs, f.gateway, fakeValidator{}, f.pub, PaymentConfig{
		GSTPercent:     18,
		ReconcileAfter: 10 * time.Minute,
	})
	f.now = time.Now().UTC().Truncate(time.Second)
	f.svc.now = fixedClock(f.now)
	return f
}

func TestSplitGST(t *testing.T) {
	gst, total := SplitGST(599, 18)
	assert.Equal(t, 108.0, gst)
	assert.Equal(t, 707.0, total)

	gst, total = SplitGST(1199, 18)
	assert.Equal(t, 216.0, gst)
	assert.Equal(t, 1415.0, total)
}

func TestNewMerchantTransactionID(t *testing.T) {
	id := NewMerchantTransactionID(1234567, time.UnixMilli(1700000000000))
	assert.Regexp(t, merchantTxnPattern, id)
	assert.Contains(t, id, "TRU_1700000000000_234567_")
}

func TestInitiate(t *testing.T) {
	f := newPaymentFixture(t)

	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)
	assert.Regexp(t, merchantTxnPattern, session.MerchantTransactionID)
	assert.Equal(t, 599.0, session.Amount)
	assert.Equal(t, 108.0, session.GSTAmount)
	assert.Equal(t, 707.0, session.TotalAmount)
	assert.Equal(t, "https://pay.example/checkout", session.RedirectURL)

	require.Len(t, f.gateway.payCalls, 1)
	call := f.gateway.payCalls[0]
	assert.Equal(t, int64(70700), call.AmountPaise)
	assert.Equal(t, session.SubscriptionID, call.SubscriptionID)

	sub := f.subs.get(session.SubscriptionID)
	assert.Equal(t, models.SubscriptionPending, sub.Status)
	require.NotNil(t, sub.PaymentID)
	assert.Equal(t, session.PaymentID, *sub.PaymentID)
}

func TestInitiate_NoRedirectFailsPayment(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.payResp = &PayResponse{OrderID: "OMO1", State: OrderStatePending}

	_, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadRequest))

	payments, _ := f.payments.ListByUser(context.Background(), 42)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentFailed, payments[0].Status)
	assert.Equal(t, models.SubscriptionCancelled, f.subs.get(*payments[0].SubscriptionID).Status)
	assert.Equal(t, 1, f.pub.count(events.PaymentFailed))
}

func TestInitiate_GatewayError(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.payErr = errors.New("connection refused")

	_, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	assert.True(t, errors.Is(err, ErrGateway))

	payments, _ := f.payments.ListByUser(context.Background(), 42)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentFailed, payments[0].Status)
}

func TestHandleCallback_ActivatesOnce(t *testing.T) {
	f := newPaymentFixture(t)
	old := f.subs.addActive(42, f.silver.ID, f.now.AddDate(0, 0, -2), 15)

	session, err := f.svc.Upgrade(context.Background(), 42, f.gold.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, f.subs.get(old.ID).Status, "старая подписка действует до оплаты")

	txn := session.MerchantTransactionID
	f.gateway.setState(txn, OrderStateCompleted)
	body := []byte(`{"merchantOrderId":"` + txn + `","state":"COMPLETED"}`)

	res, err := f.svc.HandleCallback(context.Background(), body, "")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.PaymentSuccess, res.Status)

	res, err = f.svc.HandleCallback(context.Background(), nil, txn)
	require.NoError(t, err)
	assert.False(t, res.Applied, "повторный колбэк ничего не меняет")
	assert.Equal(t, models.PaymentSuccess, res.Status)

	sub := f.subs.get(session.SubscriptionID)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, f.now.AddDate(0, 0, 15), *sub.EndDate)
	assert.Equal(t, models.SubscriptionCancelled, f.subs.get(old.ID).Status)
	assert.Equal(t, 1, f.pub.count(events.PaymentSucceeded))
	assert.Equal(t, 1, f.pub.count(events.SubscriptionActivated))

	p, _ := f.payments.GetByMerchantTransactionID(context.Background(), txn)
	assert.Equal(t, "TX-"+txn, p.GatewayTransactionID)
	assert.Equal(t, "UPI_QR", p.PaymentMethod)
	assert.NotEmpty(t, p.CallbackData)
}

func TestCallbackAndPollRace(t *testing.T) {
	f := newPaymentFixture(t)
	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)
	txn := session.MerchantTransactionID
	f.gateway.setState(txn, OrderStateCompleted)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.svc.HandleCallback(context.Background(), nil, txn)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.CheckStatus(context.Background(), 42, txn)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.payments.settle)
	assert.Equal(t, 1, f.pub.count(events.SubscriptionActivated))
}

func TestHandleCallback_Errors(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.HandleCallback(context.Background(), []byte(`{}`), "")
	assert.True(t, errors.Is(err, ErrBadRequest), "нет идентификатора")

	_, err = f.svc.HandleCallback(context.Background(), nil, "TRU_1_000001_ABCD")
	assert.True(t, errors.Is(err, ErrNotFound))

	f.svc.validator = fakeValidator{err: errors.New("pattern mismatch")}
	_, err = f.svc.HandleCallback(context.Background(), []byte(`{"merchantOrderId":"bad"}`), "")
	assert.True(t, errors.Is(err, ErrBadRequest))
}

func TestHandleCallback_GatewayDownIsDeferred(t *testing.T) {
	f := newPaymentFixture(t)
	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)

	f.gateway.statusErr = errors.New("timeout")
	res, err := f.svc.HandleCallback(context.Background(), nil, session.MerchantTransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, res.Status)
	assert.Equal(t, "payment will be checked later", res.Message)
}

func TestHandleCallback_FailedCancelsSubscription(t *testing.T) {
	f := newPaymentFixture(t)
	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)
	f.gateway.setState(session.MerchantTransactionID, OrderStateFailed)

	body := []byte(`{"payload":{"merchantOrderId":"` + session.MerchantTransactionID + `"}}`)
	res, err := f.svc.HandleCallback(context.Background(), body, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, res.Status)
	assert.Equal(t, models.SubscriptionCancelled, f.subs.get(session.SubscriptionID).Status)
}

func TestHandleCallback_ReplayKeepsStoredSnapshot(t *testing.T) {
	f := newPaymentFixture(t)
	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)
	txn := session.MerchantTransactionID
	f.gateway.setState(txn, OrderStateCompleted)

	_, err = f.svc.HandleCallback(context.Background(), []byte(`{"merchantOrderId":"`+txn+`","state":"COMPLETED"}`), "")
	require.NoError(t, err)
	settled, _ := f.payments.GetByMerchantTransactionID(context.Background(), txn)
	stored := string(settled.CallbackData)
	require.NotEmpty(t, stored)

	replay := []byte(`{"merchantOrderId":"` + txn + `","state":"FAILED"}`)
	res, err := f.svc.HandleCallback(context.Background(), replay, "")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, models.PaymentSuccess, res.Status)

	p, _ := f.payments.GetByMerchantTransactionID(context.Background(), txn)
	assert.Equal(t, stored, string(p.CallbackData), "закрытый платёж хранит прежний снимок")
	assert.NotContains(t, string(p.CallbackData), "FAILED")
}

func TestCheckStatus_StoresGatewaySnapshot(t *testing.T) {
	f := newPaymentFixture(t)
	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)
	txn := session.MerchantTransactionID
	f.gateway.setState(txn, OrderStateCompleted)

	p, err := f.svc.CheckStatus(context.Background(), 42, txn)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, p.Status)
	assert.JSONEq(t, `{"orderId":"OMO-`+txn+`","state":"COMPLETED"}`, string(p.CallbackData))
}

func TestSettleConflictIsDeferred(t *testing.T) {
	f := newPaymentFixture(t)
	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)
	txn := session.MerchantTransactionID
	f.gateway.setState(txn, OrderStateCompleted)

	f.payments.settleErr = repository.ErrConflict
	res, err := f.svc.HandleCallback(context.Background(), nil, txn)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, models.PaymentPending, res.Status)
	assert.Equal(t, "payment will be checked later", res.Message)
	assert.Equal(t, 0, f.pub.count(events.SubscriptionActivated))

	f.payments.settleErr = repository.ErrConflict
	p, err := f.svc.CheckStatus(context.Background(), 42, txn)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)

	res, err = f.svc.HandleCallback(context.Background(), nil, txn)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.SubscriptionActive, f.subs.get(session.SubscriptionID).Status)
	assert.Equal(t, 1, f.pub.count(events.SubscriptionActivated))
}

func TestCheckStatus_ForeignPayment(t *testing.T) {
	f := newPaymentFixture(t)
	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)

	_, err = f.svc.CheckStatus(context.Background(), 7, session.MerchantTransactionID)
	assert.True(t, errors.Is(err, ErrNotFound))

	p, err := f.svc.CheckStatus(context.Background(), 42, session.MerchantTransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)
}

func TestSandboxComplete(t *testing.T) {
	f := newPaymentFixture(t)
	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)

	_, err = f.svc.SandboxComplete(context.Background(), 42, session.MerchantTransactionID, "refunded")
	assert.True(t, errors.Is(err, ErrBadRequest))

	p, err := f.svc.SandboxComplete(context.Background(), 42, session.MerchantTransactionID, models.PaymentSuccess)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, p.Status)
	assert.Equal(t, models.SubscriptionActive, f.subs.get(session.SubscriptionID).Status)

	f.svc.cfg.Production = true
	_, err = f.svc.SandboxComplete(context.Background(), 42, session.MerchantTransactionID, models.PaymentSuccess)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestReconcilePending(t *testing.T) {
	f := newPaymentFixture(t)
	done, err := f.svc.Initiate(context.Background(), 1, f.silver.ID)
	require.NoError(t, err)
	stuck, err := f.svc.Initiate(context.Background(), 2, f.silver.ID)
	require.NoError(t, err)
	f.gateway.setState(done.MerchantTransactionID, OrderStateCompleted)

	closed, err := f.svc.ReconcilePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, closed, "свежие платежи не трогаем")

	f.svc.now = fixedClock(time.Now().Add(time.Hour))
	closed, err = f.svc.ReconcilePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	p, _ := f.payments.GetByMerchantTransactionID(context.Background(), stuck.MerchantTransactionID)
	assert.Equal(t, models.PaymentPending, p.Status)
}

func TestHistoryAttachesSubscription(t *testing.T) {
	f := newPaymentFixture(t)
	session, err := f.svc.Initiate(context.Background(), 42, f.silver.ID)
	require.NoError(t, err)

	history, err := f.svc.History(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Subscription)
	assert.Equal(t, session.SubscriptionID, history[0].Subscription.ID)
}
