package handlers

import (
	"net/http"
	"strings"
	"time"

	"truowners/internal/services"
	"truowners/internal/utils/helpers"
)

type BookingHandler struct {
	bookingService *services.BookingService
}

func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

type visitRequest struct {
	PropertyID int64     `json:"property_id" validate:"required,gt=0"`
	VisitDate  time.Time `json:"visit_date" validate:"required"`
	Message    string    `json:"message" validate:"max=1000"`
}

// RequestVisit godoc
// @Summary Заявка на просмотр объекта
// @Description Объект должен быть опубликован, дата в будущем. Одна открытая заявка на объект.
// @Tags bookings
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body visitRequest true "Заявка"
// @Success 201 {object} helpers.Response{data=models.Booking}
// @Failure 400 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Failure 409 {object} helpers.Response "Заявка уже есть"
// @Router /api/bookings [post]
func (h *BookingHandler) RequestVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.bookingService.RequestVisit(r.Context(), currentUserID(r), req.PropertyID, req.VisitDate, strings.TrimSpace(req.Message))
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, b)
}

// MyBookings godoc
// @Summary Мои заявки
// @Tags bookings
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=[]models.Booking}
// @Router /api/bookings [get]
func (h *BookingHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	items, err := h.bookingService.MyBookings(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, items)
}

// CancelBooking godoc
// @Summary Отмена заявки (только pending)
// @Tags bookings
// @Security ApiKeyAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} helpers.Response
// @Failure 400 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Router /api/bookings/{id} [delete]
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		helpers.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.bookingService.CancelBooking(r.Context(), currentUserID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Заявка отменена"})
}
