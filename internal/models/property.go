package models

import "time"

const (
	PropertyPending   = "pending"
	PropertyApproved  = "approved"
	PropertyRejected  = "rejected"
	PropertyPublished = "published"
	PropertySold      = "sold"
)

const (
	ListingRent       = "rent"
	ListingSell       = "sell"
	ListingLease      = "lease"
	ListingCommercial = "commercial"
)

func IsValidListingType(t string) bool {
	switch t {
	case ListingRent, ListingSell, ListingLease, ListingCommercial:
		return true
	}
	return false
}

type Location struct {
	Address string   `json:"address"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	Pincode string   `json:"pincode"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// OwnerDetails — данные владельца, указанные при загрузке конкретного объекта.
type OwnerDetails struct {
	Name                    string `json:"name,omitempty"`
	Email                   string `json:"email,omitempty"`
	Phone                   string `json:"phone,omitempty"`
	IDProofType             string `json:"id_proof_type,omitempty"`
	IDProofNumber           string `json:"id_proof_number,omitempty"`
	IDProofImageURL         string `json:"id_proof_image_url,omitempty"`
	ElectricityBillNumber   string `json:"electricity_bill_number,omitempty"`
	ElectricityBillImageURL string `json:"electricity_bill_image_url,omitempty"`
}

type Property struct {
	ID           int64        `json:"id"`
	OwnerID      *int64       `json:"owner_id,omitempty"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Location     Location     `json:"location"`
	Geohash      string       `json:"-"`
	ListingType  string       `json:"listing_type"`
	Rent         *float64     `json:"rent"`
	Deposit      *float64     `json:"deposit"`
	Price        *float64     `json:"price"`
	PropertyType *string      `json:"property_type"`
	Bedrooms     *int         `json:"bedrooms"`
	Bathrooms    *int         `json:"bathrooms"`
	Area         *float64     `json:"area"`
	Amenities    []string     `json:"amenities"`
	Images       []string     `json:"images"`
	OwnerDetails OwnerDetails `json:"owner_details"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// PublicProperty — объект в каталоге, без контактов владельца.
type PublicProperty struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Location      Location  `json:"location"`
	ListingType   string    `json:"listing_type"`
	Rent          *float64  `json:"rent"`
	Deposit       *float64  `json:"deposit"`
	Price         *float64  `json:"price"`
	PropertyType  *string   `json:"property_type"`
	Bedrooms      *int      `json:"bedrooms"`
	Bathrooms     *int      `json:"bathrooms"`
	Area          *float64  `json:"area"`
	Amenities     []string  `json:"amenities"`
	Images        []string  `json:"images"`
	OwnerVerified bool      `json:"owner_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// AdminProperty — объект вместе с профилем владельца и его пользователем.
type AdminProperty struct {
	Property
	Owner     *Owner `json:"owner,omitempty"`
	OwnerUser *User  `json:"owner_user,omitempty"`
}

// PropertyInput — поля, которые можно задать при создании/обновлении.
type PropertyInput struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Location     *Location `json:"location"`
	ListingType  *string   `json:"listing_type" validate:"omitempty,oneof=rent sell lease commercial"`
	Rent         *float64  `json:"rent" validate:"omitempty,gte=0"`
	Deposit      *float64  `json:"deposit" validate:"omitempty,gte=0"`
	Price        *float64  `json:"price" validate:"omitempty,gte=0"`
	PropertyType *string   `json:"property_type" validate:"omitempty,oneof=apartment house villa condo office shop warehouse plot"`
	Bedrooms     *int      `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms    *int      `json:"bathrooms" validate:"omitempty,gte=0"`
	Area         *float64  `json:"area" validate:"omitempty,gte=0"`
	Amenities    []string  `json:"amenities"`
	Images       []string  `json:"images" validate:"omitempty,dive,url"`
}

type CatalogFilter struct {
	City         string
	ListingType  string
	PropertyType string
	MinRent      *float64
	MaxRent      *float64
	MinPrice     *float64
	MaxPrice     *float64
	Bedrooms     *int
	Search       string
	GeohashNear  []string
	Sort         string
	Page         int
	Limit        int
}

type AdminPropertyFilter struct {
	Status        string
	PropertyType  string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	MinRent       *float64
	MaxRent       *float64
	Bedrooms      *int
	Bathrooms     *int
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	SortBy        string
	SortDesc      bool
	Page          int
	Limit         int
}
