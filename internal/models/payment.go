package models

import (
	"encoding/json"
	"time"
)

const (
	PaymentPending   = "pending"
	PaymentSuccess   = "success"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

type Payment struct {
	ID                    int64             `json:"id"`
	UserID                int64             `json:"user_id"`
	SubscriptionID        *int64            `json:"subscription_id,omitempty"`
	PlanID                int64             `json:"plan_id"`
	Plan                  *SubscriptionPlan `json:"plan,omitempty"`
	Subscription          *UserSubscription `json:"subscription,omitempty"`
	Amount                float64           `json:"amount"`
	GSTAmount             float64           `json:"gst_amount"`
	TotalAmount           float64           `json:"total_amount"`
	MerchantTransactionID string            `json:"merchant_transaction_id"`
	GatewayTransactionID  string            `json:"gateway_transaction_id,omitempty"`
	Status                string            `json:"status"`
	PaymentMethod         string            `json:"payment_method,omitempty"`
	ResponseCode          string            `json:"response_code,omitempty"`
	ResponseMessage       string            `json:"response_message,omitempty"`
	CallbackData          json.RawMessage   `json:"callback_data,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// PaymentOutcome — итог опроса шлюза, применяемый к платежу.
type PaymentOutcome struct {
	Status               string
	GatewayTransactionID string
	PaymentMethod        string
	ResponseCode         string
	ResponseMessage      string
	Raw                  json.RawMessage
}

type CheckoutSession struct {
	PaymentID             int64   `json:"payment_id"`
	SubscriptionID        int64   `json:"subscription_id"`
	MerchantTransactionID string  `json:"merchant_transaction_id"`
	RedirectURL           string  `json:"redirect_url"`
	Amount                float64 `json:"amount"`
	GSTAmount             float64 `json:"gst_amount"`
	TotalAmount           float64 `json:"total_amount"`
}
