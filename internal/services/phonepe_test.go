package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"truowners/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPhonePeTestServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "1", r.PostForm.Get("client_version"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-1",
			"expires_at":   time.Now().Add(time.Hour).Unix(),
			"token_type":   "O-Bearer",
		})
	})

	mux.HandleFunc("/checkout/v2/pay", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "O-Bearer tok-1", r.Header.Get("Authorization"))

		var body payRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(70700), body.Amount)
		assert.Equal(t, "PG_CHECKOUT", body.PaymentFlow.Type)
		assert.Equal(t, "42", body.MetaInfo["udf1"])
		assert.Equal(t, "3", body.MetaInfo["udf3"])

		redirect, err := url.Parse(body.PaymentFlow.MerchantUrls.RedirectURL)
		require.NoError(t, err)
		assert.Equal(t, body.MerchantOrderID, redirect.Query().Get("merchantTransactionId"))

		_ = json.NewEncoder(w).Encode(PayResponse{OrderID: "OMO1", State: OrderStatePending, RedirectURL: "https://mercury.example/pay"})
	})

	mux.HandleFunc("/checkout/v2/order/TRU_1_000042_AB/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orderId":"OMO1","state":"COMPLETED","amount":70700,
			"paymentDetails":[{"transactionId":"OM1","paymentMode":"UPI_INTENT","state":"COMPLETED","amount":70700}]}`))
	})

	mux.HandleFunc("/checkout/v2/order/TRU_1_000042_XX/status", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"INTERNAL_SERVER_ERROR"}`, http.StatusInternalServerError)
	})

	return httptest.NewServer(mux)
}

func TestPhonePe_PayAndStatus(t *testing.T) {
	var tokenCalls int32
	srv := newPhonePeTestServer(t, &tokenCalls)
	defer srv.Close()

	svc := NewPhonePeService("cid", "secret", "1", "sandbox", "https://truowners.example/payment/callback")
	svc.BaseURL = srv.URL

	resp, err := svc.Pay(context.Background(), PayRequest{
		MerchantOrderID: "TRU_1_000042_AB",
		AmountPaise:     70700,
		UserID:          42,
		PlanID:          1,
		SubscriptionID:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://mercury.example/pay", resp.RedirectURL)

	st, err := svc.OrderStatus(context.Background(), "TRU_1_000042_AB")
	require.NoError(t, err)
	out := st.Outcome()
	assert.Equal(t, models.PaymentSuccess, out.Status)
	assert.Equal(t, "OM1", out.GatewayTransactionID)
	assert.Equal(t, "UPI_INTENT", out.PaymentMethod)
	assert.NotEmpty(t, out.Raw)

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls), "токен берётся из кэша")

	_, err = svc.OrderStatus(context.Background(), "TRU_1_000042_XX")
	assert.Error(t, err)
}

func TestNewPhonePeService_Env(t *testing.T) {
	assert.Equal(t, phonePeSandboxURL, NewPhonePeService("", "", "1", "sandbox", "").BaseURL)
	assert.Equal(t, phonePeProductionURL, NewPhonePeService("", "", "1", "production", "").BaseURL)
}

func TestOrderStatusOutcome(t *testing.T) {
	assert.Equal(t, models.PaymentPending, (&OrderStatus{State: "PENDING"}).Outcome().Status)
	failed := (&OrderStatus{State: "FAILED", ErrorCode: "TXN_DECLINED"}).Outcome()
	assert.Equal(t, models.PaymentFailed, failed.Status)
	assert.Equal(t, "TXN_DECLINED", failed.ResponseMessage)
}
