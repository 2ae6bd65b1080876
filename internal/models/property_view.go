package models

import "time"

type PropertyView struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	PropertyID     int64           `json:"property_id"`
	SubscriptionID int64           `json:"subscription_id"`
	ViewedAt       time.Time       `json:"viewed_at"`
	Property       *PublicProperty `json:"property,omitempty"`
}

type ContactReveal struct {
	PropertyID        int64        `json:"property_id"`
	Owner             OwnerContact `json:"owner"`
	AlreadyViewed     bool         `json:"already_viewed"`
	ContactsViewed    int          `json:"contacts_viewed"`
	ContactLimit      int          `json:"contact_limit"`
	RemainingContacts int          `json:"remaining_contacts"`
}
