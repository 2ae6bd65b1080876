package migrate

import (
	"time"

	"gorm.io/datatypes"
)

// Схема таблиц. Репозитории работают с ними через pgx, gorm нужен только для миграций.

type User struct {
	ID            int64  `gorm:"primaryKey"`
	Name          string `gorm:"size:255;not null;default:''"`
	Email         string `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	Phone         string `gorm:"size:32;not null;default:''"`
	PasswordHash  string `gorm:"not null"`
	AccessKeyHash string `gorm:"not null;default:''"`
	Role          string `gorm:"size:16;not null;default:user;index:idx_users_role"`
	Verified      bool   `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type RefreshToken struct {
	ID        int64  `gorm:"primaryKey"`
	UserID    int64  `gorm:"not null;index:idx_refresh_tokens_user"`
	Token     string `gorm:"not null;uniqueIndex:idx_refresh_tokens_token"`
	CreatedAt time.Time
}

type Owner struct {
	ID                      int64  `gorm:"primaryKey"`
	UserID                  *int64 `gorm:"uniqueIndex:idx_owners_user"`
	Name                    string `gorm:"size:255;not null;default:''"`
	Email                   string `gorm:"size:255;not null;default:'';index:idx_owners_email"`
	Phone                   string `gorm:"size:32;not null;default:''"`
	IDProofType             string `gorm:"column:id_proof_type;not null;default:pending"`
	IDProofNumber           string `gorm:"column:id_proof_number;not null;default:pending"`
	IDProofImageURL         string `gorm:"column:id_proof_image_url;not null;default:pending"`
	ElectricityBill         string `gorm:"not null;default:''"`
	ElectricityBillImageURL string `gorm:"column:electricity_bill_image_url;not null;default:''"`
	Verified                bool   `gorm:"not null;default:false"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

type Property struct {
	ID           int64          `gorm:"primaryKey"`
	OwnerID      *int64         `gorm:"index:idx_properties_owner"`
	Title        string         `gorm:"size:255;not null"`
	Description  string         `gorm:"type:text;not null;default:''"`
	Address      string         `gorm:"not null;default:''"`
	City         string         `gorm:"size:128;not null;default:'';index:idx_properties_city"`
	State        string         `gorm:"size:128;not null;default:''"`
	Pincode      string         `gorm:"size:16;not null;default:''"`
	Country      string         `gorm:"size:64;not null;default:''"`
	Lat          *float64
	Lng          *float64
	Geohash      string         `gorm:"size:12;not null;default:'';index:idx_properties_geohash"`
	ListingType  string         `gorm:"size:16;not null;default:rent"`
	Rent         *float64
	Deposit      *float64
	Price        *float64
	PropertyType *string        `gorm:"size:32"`
	Bedrooms     *int
	Bathrooms    *int
	Area         *float64
	Amenities    datatypes.JSON `gorm:"not null;default:'[]'"`
	Images       datatypes.JSON `gorm:"not null;default:'[]'"`
	OwnerDetails datatypes.JSON `gorm:"not null;default:'{}'"`
	Status       string         `gorm:"size:16;not null;default:pending;index:idx_properties_status"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Booking struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     int64     `gorm:"not null;index:idx_bookings_user_property,priority:1"`
	PropertyID int64     `gorm:"not null;index:idx_bookings_user_property,priority:2"`
	VisitDate  time.Time `gorm:"not null"`
	Message    string    `gorm:"type:text;not null;default:''"`
	Status     string    `gorm:"size:16;not null;default:pending;index:idx_bookings_status"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type SubscriptionPlan struct {
	ID           int64          `gorm:"primaryKey"`
	Name         string         `gorm:"size:64;not null;uniqueIndex:idx_subscription_plans_name"`
	Price        float64        `gorm:"type:numeric(10,2);not null"`
	ContactLimit int            `gorm:"not null"`
	ValidityDays int            `gorm:"not null;default:15"`
	Description  string         `gorm:"not null;default:''"`
	Features     datatypes.JSON `gorm:"not null;default:'[]'"`
	IsActive     bool           `gorm:"not null;default:true"`
}

type UserSubscription struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"not null;index:idx_user_subscriptions_user_status,priority:1;uniqueIndex:idx_user_subscriptions_one_active,where:status = 'active'"`
	PlanID int64 `gorm:"not null"`
	// start/end выставляются при активации
	StartDate      *time.Time
	EndDate        *time.Time `gorm:"index:idx_user_subscriptions_end"`
	ContactsViewed int        `gorm:"not null;default:0"`
	Status         string     `gorm:"size:16;not null;default:pending;index:idx_user_subscriptions_user_status,priority:2"`
	PaymentID      *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Payment struct {
	ID                    int64          `gorm:"primaryKey"`
	UserID                int64          `gorm:"not null;index:idx_payments_user_created,priority:1"`
	SubscriptionID        *int64         `gorm:"index:idx_payments_subscription"`
	PlanID                int64          `gorm:"not null"`
	Amount                float64        `gorm:"type:numeric(10,2);not null"`
	GSTAmount             float64        `gorm:"column:gst_amount;type:numeric(10,2);not null"`
	TotalAmount           float64        `gorm:"type:numeric(10,2);not null"`
	MerchantTransactionID string         `gorm:"column:merchant_transaction_id;size:64;not null;uniqueIndex:idx_payments_merchant_txn"`
	GatewayTransactionID  string         `gorm:"column:gateway_transaction_id;size:128;not null;default:''"`
	Status                string         `gorm:"size:16;not null;default:pending;index:idx_payments_status"`
	PaymentMethod         string         `gorm:"size:64;not null;default:''"`
	ResponseCode          string         `gorm:"size:64;not null;default:''"`
	ResponseMessage       string         `gorm:"not null;default:''"`
	CallbackData          datatypes.JSON `gorm:"not null;default:'{}'"`
	CreatedAt             time.Time      `gorm:"index:idx_payments_user_created,priority:2"`
	UpdatedAt             time.Time
}

type PropertyView struct {
	ID             int64 `gorm:"primaryKey"`
	UserID         int64 `gorm:"not null;uniqueIndex:idx_property_views_unique,priority:1"`
	PropertyID     int64 `gorm:"not null;uniqueIndex:idx_property_views_unique,priority:2"`
	SubscriptionID int64 `gorm:"not null;uniqueIndex:idx_property_views_unique,priority:3;index:idx_property_views_subscription"`
	ViewedAt       time.Time
}

// Models — порядок важен только для читаемости лога миграции.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Owner{},
		&Property{},
		&Booking{},
		&SubscriptionPlan{},
		&UserSubscription{},
		&Payment{},
		&PropertyView{},
	}
}
