package models

import "time"

const (
	SubscriptionPending   = "pending"
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

type SubscriptionPlan struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	ContactLimit int      `json:"contact_limit"`
	ValidityDays int      `json:"validity_days"`
	Description  string   `json:"description"`
	Features     []string `json:"features"`
	IsActive     bool     `json:"is_active"`
}

type UserSubscription struct {
	ID             int64             `json:"id"`
	UserID         int64             `json:"user_id"`
	PlanID         int64             `json:"plan_id"`
	Plan           *SubscriptionPlan `json:"plan,omitempty"`
	StartDate      *time.Time        `json:"start_date,omitempty"`
	EndDate        *time.Time        `json:"end_date,omitempty"`
	ContactsViewed int               `json:"contacts_viewed"`
	Status         string            `json:"status"`
	PaymentID      *int64            `json:"payment_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// IsUsable — подписка активна и не истекла на момент now.
func (s *UserSubscription) IsUsable(now time.Time) bool {
	return s.Status == SubscriptionActive && s.EndDate != nil && now.Before(*s.EndDate)
}

// RemainingContacts не уходит в минус.
func (s *UserSubscription) RemainingContacts() int {
	if s.Plan == nil {
		return 0
	}
	if left := s.Plan.ContactLimit - s.ContactsViewed; left > 0 {
		return left
	}
	return 0
}

type SubscriptionSummary struct {
	ID                int64      `json:"id"`
	PlanName          string     `json:"plan_name"`
	Status            string     `json:"status"`
	ContactsViewed    int        `json:"contacts_viewed"`
	ContactLimit      int        `json:"contact_limit"`
	RemainingContacts int        `json:"remaining_contacts"`
	EndDate           *time.Time `json:"end_date,omitempty"`
}

func (s *UserSubscription) Summary() *SubscriptionSummary {
	sum := &SubscriptionSummary{
		ID:                s.ID,
		Status:            s.Status,
		ContactsViewed:    s.ContactsViewed,
		RemainingContacts: s.RemainingContacts(),
		EndDate:           s.EndDate,
	}
	if s.Plan != nil {
		sum.PlanName = s.Plan.Name
		sum.ContactLimit = s.Plan.ContactLimit
	}
	return sum
}
