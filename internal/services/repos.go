package services

import (
	"context"
	"encoding/json"
	"time"

	"truowners/internal/models"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *models.User) error
	CreateOwnerUser(ctx context.Context, user *models.User, owner *models.Owner) error
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateCredentials(ctx context.Context, id int64, passwordHash, accessKeyHash, role string) error
	SaveRefreshToken(ctx context.Context, userID int64, token string) error
	IsRefreshTokenValid(ctx context.Context, userID int64, token string) (bool, error)
	DeleteRefreshToken(ctx context.Context, userID int64, token string) error
	ListUsers(ctx context.Context, role string, page, limit int) ([]models.User, int, error)
	GetSystemStats(ctx context.Context) (*models.SystemStats, error)
}

type OwnerRepo interface {
	CreateOwner(ctx context.Context, o *models.Owner) error
	GetOwnerByID(ctx context.Context, id int64) (*models.Owner, error)
	GetOwnerByUserID(ctx context.Context, userID int64) (*models.Owner, error)
	GetOwnerByEmail(ctx context.Context, email string) (*models.Owner, error)
	UpdateOwner(ctx context.Context, o *models.Owner) error
	SetVerified(ctx context.Context, id int64, verified bool) error
	FillElectricityBill(ctx context.Context, id int64, number, imageURL string) error
}

type PropertyRepo interface {
	CreateProperty(ctx context.Context, p *models.Property) error
	GetPropertyByID(ctx context.Context, id int64) (*models.Property, error)
	UpdateProperty(ctx context.Context, p *models.Property) error
	SetStatus(ctx context.Context, id int64, status string) error
	DeleteOwnedProperty(ctx context.Context, id, ownerID int64) error
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Property, error)
	ListPublished(ctx context.Context, f models.CatalogFilter) ([]models.PublicProperty, int, error)
	GetPublished(ctx context.Context, id int64) (*models.PublicProperty, error)
	ListAdmin(ctx context.Context, f models.AdminPropertyFilter) ([]models.Property, int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type BookingRepo interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	HasOpenBooking(ctx context.Context, userID, propertyID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Booking, error)
	ListBookings(ctx context.Context, status string, page, limit int) ([]models.Booking, int, error)
	Breakdown(ctx context.Context) (*models.BookingBreakdown, error)
	SetBookingStatus(ctx context.Context, id int64, status string) error
	DeletePendingBooking(ctx context.Context, id, userID int64) error
}

type PlanRepo interface {
	UpsertPlan(ctx context.Context, p *models.SubscriptionPlan) error
	ListActivePlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	GetPlanByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error)
}

type SubscriptionRepo interface {
	GetActiveSubscription(ctx context.Context, userID int64) (*models.UserSubscription, error)
	GetSubscriptionByID(ctx context.Context, id int64) (*models.UserSubscription, error)
	ListByUser(ctx context.Context, userID int64) ([]models.UserSubscription, error)
	MarkExpired(ctx context.Context, id int64) error
	CancelActive(ctx context.Context, userID int64, now time.Time) (*models.UserSubscription, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	GrantActive(ctx context.Context, userID int64, plan *models.SubscriptionPlan, now time.Time) (*models.UserSubscription, error)
	ListUsersWithSubscriptions(ctx context.Context, page, limit int) ([]models.UserWithSubscription, int, error)
}

type PaymentRepo interface {
	CreateCheckout(ctx context.Context, p *models.Payment, s *models.UserSubscription) error
	GetByMerchantTransactionID(ctx context.Context, merchantTxnID string) (*models.Payment, error)
	SaveCallbackData(ctx context.Context, merchantTxnID string, raw json.RawMessage) error
	Settle(ctx context.Context, merchantTxnID string, out models.PaymentOutcome, now time.Time) (*models.Payment, bool, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Payment, error)
	ListPayments(ctx context.Context, status string, page, limit int) ([]models.Payment, int, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error)
}

type PropertyViewRepo interface {
	RecordView(ctx context.Context, userID, propertyID, subscriptionID int64, limit int) (int, bool, error)
	ListBySubscription(ctx context.Context, subscriptionID int64) ([]models.PropertyView, error)
	ListByUser(ctx context.Context, userID int64) ([]models.PropertyView, error)
}

type TokenBlocklist interface {
	Block(ctx context.Context, token string, ttl time.Duration) error
	IsBlocked(ctx context.Context, token string) (bool, error)
}

type PlanCache interface {
	Get(ctx context.Context) ([]models.SubscriptionPlan, bool)
	Set(ctx context.Context, plans []models.SubscriptionPlan) error
	Invalidate(ctx context.Context) error
}
