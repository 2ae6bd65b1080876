package models

import "time"

const (
	RoleUser  = "user"
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PasswordHash  string    `json:"-"`
	AccessKeyHash string    `json:"-"`
	Role          string    `json:"role"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UserProfileResponse struct {
	ID           int64                `json:"id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	Phone        string               `json:"phone"`
	Role         string               `json:"role"`
	Verified     bool                 `json:"verified"`
	CreatedAt    time.Time            `json:"created_at"`
	OwnerID      *int64               `json:"owner_id,omitempty"`
	Subscription *SubscriptionSummary `json:"subscription,omitempty"`
}

// UserWithSubscription — строка админского списка пользователей.
type UserWithSubscription struct {
	User
	Subscription *SubscriptionSummary `json:"subscription,omitempty"`
}

type UserHistory struct {
	User          *User              `json:"user"`
	Subscriptions []UserSubscription `json:"subscriptions"`
	Views         []PropertyView     `json:"views"`
	Payments      []Payment          `json:"payments"`
}
