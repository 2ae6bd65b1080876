package services

import (
	"strings"

	"truowners/internal/models"

	"github.com/mmcloughlin/geohash"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	storedGeohashPrecision = 9
	defaultNearPrecision   = 5
)

// NormalizeCity приводит город к виду "New Delhi".
func NormalizeCity(city string) string {
	city = strings.Join(strings.Fields(city), " ")
	if city == "" {
		return ""
	}
	// Caser хранит состояние, поэтому создаётся на каждый вызов
	return cases.Title(language.English).String(city)
}

// ApplyListingRules обнуляет поля, не относящиеся к типу объявления.
// Для rent остаются rent и deposit, для остальных типов только price.
func ApplyListingRules(p *models.Property) {
	if p.ListingType == "" {
		p.ListingType = models.ListingRent
	}
	if p.ListingType == models.ListingRent {
		p.Price = nil
	} else {
		p.Rent = nil
		p.Deposit = nil
	}
	if p.ListingType == models.ListingCommercial {
		p.Bedrooms = nil
		p.Bathrooms = nil
		p.PropertyType = nil
	}
}

// applyPropertyInput переносит заданные поля ввода в объект.
func applyPropertyInput(p *models.Property, in models.PropertyInput) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Location != nil {
		p.Location = *in.Location
	}
	if in.ListingType != nil {
		p.ListingType = *in.ListingType
	}
	if in.Rent != nil {
		p.Rent = in.Rent
	}
	if in.Deposit != nil {
		p.Deposit = in.Deposit
	}
	if in.Price != nil {
		p.Price = in.Price
	}
	if in.PropertyType != nil {
		p.PropertyType = in.PropertyType
	}
	if in.Bedrooms != nil {
		p.Bedrooms = in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = in.Bathrooms
	}
	if in.Area != nil {
		p.Area = in.Area
	}
	if in.Amenities != nil {
		p.Amenities = in.Amenities
	}
	if in.Images != nil {
		p.Images = in.Images
	}
}

// finalizeProperty — общий шаг перед сохранением объекта.
func finalizeProperty(p *models.Property) {
	p.Location.City = NormalizeCity(p.Location.City)
	p.Geohash = encodeLocation(p.Location)
	ApplyListingRules(p)
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

func encodeLocation(loc models.Location) string {
	if loc.Lat == nil || loc.Lng == nil {
		return ""
	}
	return geohash.EncodeWithPrecision(*loc.Lat, *loc.Lng, storedGeohashPrecision)
}

// NearPrefixes — ячейка точки и восемь соседних ячеек заданной точности.
func NearPrefixes(lat, lng float64, precision uint) []string {
	if precision == 0 || precision > storedGeohashPrecision {
		precision = defaultNearPrecision
	}
	center := geohash.EncodeWithPrecision(lat, lng, precision)
	return append([]string{center}, geohash.Neighbors(center)...)
}
