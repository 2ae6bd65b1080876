package handlers

import (
	"errors"
	"io"
	"net/http"

	"truowners/internal/logger"
	"truowners/internal/services"
	"truowners/internal/utils/helpers"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type sandboxCompleteRequest struct {
	Status string `json:"status" validate:"required,oneof=success failed cancelled"`
}

// Callback godoc
// @Summary Callback от PhonePe
// @Description Статус всегда перепроверяется у шлюза. Ошибка шлюза не приводит к 5xx: платёж проверит фоновая сверка.
// @Tags payments
// @Accept json
// @Produce json
// @Param merchantTransactionId query string false "Номер транзакции, если его нет в теле"
// @Success 200 {object} helpers.Response{data=services.CallbackResult}
// @Failure 400 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Router /api/payments/callback [post]
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		log.Warn("Не удалось прочитать тело callback", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "не удалось прочитать тело запроса")
		return
	}

	res, err := h.paymentService.HandleCallback(r.Context(), body, r.URL.Query().Get("merchantTransactionId"))
	if err != nil {
		if errors.Is(err, services.ErrBadRequest) || errors.Is(err, services.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		log.Error("Ошибка обработки callback", zap.Error(err))
		helpers.JSON(w, http.StatusOK, map[string]string{"message": "платёж будет проверен позже"})
		return
	}
	helpers.JSON(w, http.StatusOK, res)
}

// CheckStatus godoc
// @Summary Статус платежа
// @Description Ожидающий платёж перепроверяется у шлюза.
// @Tags payments
// @Security ApiKeyAuth
// @Produce json
// @Param merchantTransactionId path string true "Номер транзакции"
// @Success 200 {object} helpers.Response{data=models.Payment}
// @Failure 404 {object} helpers.Response
// @Router /api/payments/status/{merchantTransactionId} [get]
func (h *PaymentHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	txn := mux.Vars(r)["merchantTransactionId"]
	p, err := h.paymentService.CheckStatus(r.Context(), currentUserID(r), txn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, p)
}

// History godoc
// @Summary История платежей
// @Tags payments
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=[]models.Payment}
// @Router /api/payments/history [get]
func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	items, err := h.paymentService.History(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, items)
}

// SandboxComplete godoc
// @Summary Завершить платёж вручную (только sandbox)
// @Tags payments
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param merchantTransactionId path string true "Номер транзакции"
// @Param input body sandboxCompleteRequest true "success, failed или cancelled"
// @Success 200 {object} helpers.Response{data=models.Payment}
// @Failure 403 {object} helpers.Response "В production недоступно"
// @Router /api/payments/sandbox/{merchantTransactionId} [post]
func (h *PaymentHandler) SandboxComplete(w http.ResponseWriter, r *http.Request) {
	var req sandboxCompleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txn := mux.Vars(r)["merchantTransactionId"]
	p, err := h.paymentService.SandboxComplete(r.Context(), currentUserID(r), txn, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, p)
}
