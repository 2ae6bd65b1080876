package models

import "time"

const (
	BookingPending   = "pending"
	BookingApproved  = "approved"
	BookingRejected  = "rejected"
	BookingCompleted = "completed"
)

type Booking struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	PropertyID    int64     `json:"property_id"`
	PropertyTitle string    `json:"property_title,omitempty"`
	UserEmail     string    `json:"user_email,omitempty"`
	VisitDate     time.Time `json:"visit_date"`
	Message       string    `json:"message"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type BookingBreakdown struct {
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}
