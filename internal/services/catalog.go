package services

import (
	"context"
	"strings"

	"truowners/internal/logger"
	"truowners/internal/models"

	"go.uber.org/zap"
)

type CatalogService struct {
	properties PropertyRepo
}

func NewCatalogService(properties PropertyRepo) *CatalogService {
	return &CatalogService{properties: properties}
}

// NearQuery — поиск рядом с точкой; Precision задаёт длину геохеша.
type NearQuery struct {
	Lat       float64
	Lng       float64
	Precision uint
}

func (s *CatalogService) ListPublished(ctx context.Context, f models.CatalogFilter, near *NearQuery) ([]models.PublicProperty, int, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	if f.City != "" {
		f.City = NormalizeCity(f.City)
	}
	f.ListingType = strings.ToLower(strings.TrimSpace(f.ListingType))
	if f.ListingType != "" && !models.IsValidListingType(f.ListingType) {
		return nil, 0, badRequest("неизвестный тип объявления: %s", f.ListingType)
	}
	if f.MinRent != nil && f.MaxRent != nil && *f.MinRent > *f.MaxRent {
		return nil, 0, badRequest("minRent больше maxRent")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, 0, badRequest("minPrice больше maxPrice")
	}
	if near != nil {
		if near.Lat < -90 || near.Lat > 90 || near.Lng < -180 || near.Lng > 180 {
			return nil, 0, badRequest("некорректные координаты")
		}
		f.GeohashNear = NearPrefixes(near.Lat, near.Lng, near.Precision)
	}

	items, total, err := s.properties.ListPublished(ctx, f)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка получения каталога", zap.Error(err))
		return nil, 0, err
	}
	return items, total, nil
}

func (s *CatalogService) GetPublished(ctx context.Context, id int64) (*models.PublicProperty, error) {
	p, err := s.properties.GetPublished(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "объект не найден")
	}
	return p, nil
}
