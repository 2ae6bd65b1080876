package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"truowners/internal/logger"
	"truowners/internal/models"
	"truowners/internal/services"
	"truowners/internal/utils/helpers"

	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListProperties godoc
// @Summary Каталог опубликованных объектов
// @Description Контакты владельца в каталоге не раскрываются.
// @Tags catalog
// @Produce json
// @Param city query string false "Город"
// @Param listingType query string false "rent, sell, lease, commercial"
// @Param propertyType query string false "Тип жилья"
// @Param minRent query number false "Мин. аренда"
// @Param maxRent query number false "Макс. аренда"
// @Param minPrice query number false "Мин. цена"
// @Param maxPrice query number false "Макс. цена"
// @Param bedrooms query int false "Спальни"
// @Param search query string false "Поиск по названию"
// @Param lat query number false "Широта для поиска рядом"
// @Param lng query number false "Долгота для поиска рядом"
// @Param precision query int false "Длина геохеша (1-9, по умолчанию 5)"
// @Param sort query string false "newest, oldest, rent_asc, rent_desc, price_asc, price_desc"
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы (до 100)"
// @Success 200 {object} helpers.Response{data=helpers.Paged}
// @Failure 400 {object} helpers.Response
// @Router /api/properties [get]
func (h *CatalogHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := pageParams(r)
	f := models.CatalogFilter{
		City:         strings.TrimSpace(q.Get("city")),
		ListingType:  q.Get("listingType"),
		PropertyType: strings.TrimSpace(q.Get("propertyType")),
		MinRent:      queryFloatPtr(r, "minRent"),
		MaxRent:      queryFloatPtr(r, "maxRent"),
		MinPrice:     queryFloatPtr(r, "minPrice"),
		MaxPrice:     queryFloatPtr(r, "maxPrice"),
		Bedrooms:     queryIntPtr(r, "bedrooms"),
		Search:       strings.TrimSpace(q.Get("search")),
		Sort:         q.Get("sort"),
		Page:         page,
		Limit:        limit,
	}

	var near *services.NearQuery
	lat, lng := queryFloatPtr(r, "lat"), queryFloatPtr(r, "lng")
	if lat != nil && lng != nil {
		precision, _ := strconv.ParseUint(q.Get("precision"), 10, 8)
		near = &services.NearQuery{Lat: *lat, Lng: *lng, Precision: uint(precision)}
	}

	items, total, err := h.catalogService.ListPublished(r.Context(), f, near)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.WithCtx(r.Context()).Debug("Каталог", zap.Int("total", total), zap.String("city", f.City))

	helpers.JSON(w, http.StatusOK, helpers.NewPaged(items, page, limit, total))
}

// GetProperty godoc
// @Summary Опубликованный объект
// @Tags catalog
// @Produce json
// @Param id path int true "ID объекта"
// @Success 200 {object} helpers.Response{data=models.PublicProperty}
// @Failure 404 {object} helpers.Response
// @Router /api/properties/{id} [get]
func (h *CatalogHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.catalogService.GetPublished(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, p)
}
