package handlers

import (
	"net/http"
	"strings"

	"truowners/internal/logger"
	"truowners/internal/models"
	"truowners/internal/services"
	"truowners/internal/utils/helpers"

	"go.uber.org/zap"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

type adminPropertyRequest struct {
	Owner    models.OwnerInput    `json:"owner"`
	Property models.PropertyInput `json:"property"`
	Status   string               `json:"status" validate:"omitempty,oneof=pending approved rejected"`
}

type adminPropertyUpdateRequest struct {
	Owner    models.OwnerInput    `json:"owner"`
	Property models.PropertyInput `json:"property"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type verifyOwnerRequest struct {
	Verified bool `json:"verified"`
}

type grantSubscriptionRequest struct {
	PlanID int64 `json:"plan_id" validate:"required,gt=0"`
}

// CheckOwnerExists godoc
// @Summary Проверка владельца по email
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param email query string true "Email"
// @Success 200 {object} helpers.Response{data=services.OwnerLookup}
// @Router /api/admin/owners/check [get]
func (h *AdminHandler) CheckOwnerExists(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		helpers.Error(w, http.StatusBadRequest, "email обязателен")
		return
	}
	res, err := h.adminService.CheckOwnerExists(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, res)
}

// CreateProperty godoc
// @Summary Создание объекта вместе с владельцем
// @Description Владелец ищется по email, при отсутствии создаётся.
// @Tags admin
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body adminPropertyRequest true "Владелец и объект"
// @Success 201 {object} helpers.Response{data=models.AdminProperty}
// @Failure 400 {object} helpers.Response
// @Router /api/admin/properties [post]
func (h *AdminHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req adminPropertyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.adminService.CreatePropertyWithOwner(r.Context(), services.AdminPropertyInput{
		Owner:    req.Owner,
		Property: req.Property,
		Status:   req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, p)
}

// ListProperties godoc
// @Summary Все объекты с фильтрами
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param status query string false "Статус"
// @Param propertyType query string false "Тип"
// @Param customerEmail query string false "Email владельца"
// @Param customerName query string false "Имя владельца"
// @Param customerPhone query string false "Телефон владельца"
// @Param minRent query number false "Мин. аренда"
// @Param maxRent query number false "Макс. аренда"
// @Param bedrooms query int false "Спальни"
// @Param bathrooms query int false "Санузлы"
// @Param createdFrom query string false "С даты (2006-01-02)"
// @Param createdTo query string false "По дату (2006-01-02)"
// @Param sortBy query string false "createdAt (по умолчанию), updatedAt, rent, title"
// @Param sortOrder query string false "asc или desc"
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы (до 100)"
// @Success 200 {object} helpers.Response{data=helpers.Paged}
// @Router /api/admin/properties [get]
func (h *AdminHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := pageParams(r)
	f := models.AdminPropertyFilter{
		Status:        q.Get("status"),
		PropertyType:  q.Get("propertyType"),
		CustomerEmail: strings.TrimSpace(q.Get("customerEmail")),
		CustomerName:  strings.TrimSpace(q.Get("customerName")),
		CustomerPhone: strings.TrimSpace(q.Get("customerPhone")),
		MinRent:       queryFloatPtr(r, "minRent"),
		MaxRent:       queryFloatPtr(r, "maxRent"),
		Bedrooms:      queryIntPtr(r, "bedrooms"),
		Bathrooms:     queryIntPtr(r, "bathrooms"),
		CreatedFrom:   queryTimePtr(r, "createdFrom"),
		CreatedTo:     queryTimePtr(r, "createdTo"),
		SortBy:        q.Get("sortBy"),
		SortDesc:      !strings.EqualFold(q.Get("sortOrder"), "asc"),
		Page:          page,
		Limit:         limit,
	}
	items, total, err := h.adminService.ListProperties(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, helpers.NewPaged(items, page, limit, total))
}

// GetProperty godoc
// @Summary Объект с владельцем (админ)
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID объекта"
// @Success 200 {object} helpers.Response{data=models.AdminProperty}
// @Failure 404 {object} helpers.Response
// @Router /api/admin/properties/{id} [get]
func (h *AdminHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.adminService.GetPropertyForAdmin(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, p)
}

// UpdateProperty godoc
// @Summary Обновление объекта и владельца (админ)
// @Tags admin
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "ID объекта"
// @Param input body adminPropertyUpdateRequest true "Изменения"
// @Success 200 {object} helpers.Response{data=models.AdminProperty}
// @Failure 404 {object} helpers.Response
// @Router /api/admin/properties/{id} [put]
func (h *AdminHandler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req adminPropertyUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.adminService.UpdatePropertyForAdmin(r.Context(), id, req.Property, req.Owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, p)
}

// ReviewProperty godoc
// @Summary Модерация объекта
// @Tags admin
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "ID объекта"
// @Param input body statusRequest true "approved или rejected"
// @Success 200 {object} helpers.Response{data=models.Property}
// @Failure 400 {object} helpers.Response
// @Router /api/admin/properties/{id}/review [patch]
func (h *AdminHandler) ReviewProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.adminService.ReviewProperty(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, p)
}

// UpdatePropertyStatus godoc
// @Summary Публикация, продажа или отклонение объекта
// @Description Первая публикация требует полных данных владельца.
// @Tags admin
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "ID объекта"
// @Param input body statusRequest true "published, sold или rejected"
// @Success 200 {object} helpers.Response{data=models.Property}
// @Failure 400 {object} helpers.Response
// @Router /api/admin/properties/{id}/status [patch]
func (h *AdminHandler) UpdatePropertyStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.adminService.UpdatePropertyStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, p)
}

// StatusCounts godoc
// @Summary Количество объектов по статусам
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=map[string]int}
// @Router /api/admin/properties/counts [get]
func (h *AdminHandler) StatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.adminService.StatusCounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, counts)
}

// VerifyOwner godoc
// @Summary Отметка проверки владельца
// @Tags admin
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "ID владельца"
// @Param input body verifyOwnerRequest true "Флаг проверки"
// @Success 200 {object} helpers.Response{data=models.Owner}
// @Router /api/admin/owners/{id}/verify [patch]
func (h *AdminHandler) VerifyOwner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req verifyOwnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	owner, err := h.adminService.VerifyOwner(r.Context(), id, req.Verified)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, owner)
}

// ManageSiteVisit godoc
// @Summary Решение по заявке на просмотр
// @Tags admin
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "ID заявки"
// @Param input body statusRequest true "approved, rejected или completed"
// @Success 200 {object} helpers.Response{data=models.Booking}
// @Router /api/admin/bookings/{id} [patch]
func (h *AdminHandler) ManageSiteVisit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.adminService.ManageSiteVisit(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, b)
}

// ListBookings godoc
// @Summary Все заявки на просмотр
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param status query string false "Статус"
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Success 200 {object} helpers.Response
// @Router /api/admin/bookings [get]
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	items, total, breakdown, err := h.adminService.ListBookings(r.Context(), r.URL.Query().Get("status"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]interface{}{
		"bookings":  helpers.NewPaged(items, page, limit, total),
		"breakdown": breakdown,
	})
}

// ListUsers godoc
// @Summary Пользователи
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param role query string false "user, owner или admin"
// @Param withSubscriptions query bool false "Добавить активную подписку"
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Success 200 {object} helpers.Response{data=helpers.Paged}
// @Router /api/admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	if r.URL.Query().Get("withSubscriptions") == "true" {
		items, total, err := h.adminService.ListUsersWithSubscriptions(r.Context(), page, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		helpers.JSON(w, http.StatusOK, helpers.NewPaged(items, page, limit, total))
		return
	}
	items, total, err := h.adminService.ListUsers(r.Context(), r.URL.Query().Get("role"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, helpers.NewPaged(items, page, limit, total))
}

// UserHistory godoc
// @Summary История пользователя: подписки, просмотры, платежи
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID пользователя"
// @Success 200 {object} helpers.Response{data=models.UserHistory}
// @Failure 404 {object} helpers.Response
// @Router /api/admin/users/{id}/history [get]
func (h *AdminHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.adminService.UserHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, res)
}

// GrantSubscription godoc
// @Summary Выдать подписку без оплаты
// @Tags admin
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "ID пользователя"
// @Param input body grantSubscriptionRequest true "Тариф"
// @Success 201 {object} helpers.Response{data=models.UserSubscription}
// @Router /api/admin/users/{id}/subscription [post]
func (h *AdminHandler) GrantSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var req grantSubscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := h.adminService.GrantSubscription(r.Context(), id, req.PlanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.WithCtx(r.Context()).Info("Подписка выдана админом", zap.Int64("target_user_id", id), zap.Int64("plan_id", req.PlanID))
	helpers.JSON(w, http.StatusCreated, sub)
}

// ListPayments godoc
// @Summary Все платежи
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param status query string false "pending, success, failed, cancelled"
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Success 200 {object} helpers.Response{data=helpers.Paged}
// @Router /api/admin/payments [get]
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	items, total, err := h.adminService.ListPayments(r.Context(), r.URL.Query().Get("status"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, helpers.NewPaged(items, page, limit, total))
}

// Stats godoc
// @Summary Сводная статистика
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=models.SystemStats}
// @Router /api/admin/stats [get]
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.adminService.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, st)
}
