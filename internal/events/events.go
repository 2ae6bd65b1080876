package events

import (
	"context"
	"encoding/json"
	"time"

	"truowners/internal/reqctx"
)

const (
	PaymentSucceeded      = "payment.succeeded"
	PaymentFailed         = "payment.failed"
	SubscriptionActivated = "subscription.activated"
	SubscriptionCancelled = "subscription.cancelled"
	PropertyStatusChanged = "property.status_changed"
	BookingRequested      = "booking.requested"
	ContactUnlocked       = "contact.unlocked"
)

const envelopeVersion = "1.0.0"

// Envelope — формат всех доменных событий на шине.
type Envelope struct {
	Type       string          `json:"type"`
	Version    string          `json:"version"`
	OccurredAt time.Time       `json:"occurred_at"`
	RequestID  string          `json:"request_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher публикует доменное событие. Ошибка публикации не должна
// откатывать бизнес-операцию: вызывающие только логируют её.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close() error
}

func newEnvelope(ctx context.Context, eventType string, payload interface{}, now time.Time) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env := Envelope{
		Type:       eventType,
		Version:    envelopeVersion,
		OccurredAt: now.UTC(),
		Payload:    body,
	}
	if rid, ok := reqctx.GetRequestID(ctx); ok {
		env.RequestID = rid
	}
	return json.Marshal(env)
}
