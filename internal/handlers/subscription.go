package handlers

import (
	"net/http"

	"truowners/internal/services"
	"truowners/internal/utils/helpers"
)

type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
	paymentService      *services.PaymentService
}

func NewSubscriptionHandler(subs *services.SubscriptionService, payments *services.PaymentService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subs, paymentService: payments}
}

type planRequest struct {
	PlanID int64 `json:"plan_id" validate:"required,gt=0"`
}

// ListPlans godoc
// @Summary Активные тарифы
// @Tags subscriptions
// @Produce json
// @Success 200 {object} helpers.Response{data=[]models.SubscriptionPlan}
// @Router /api/subscriptions/plans [get]
func (h *SubscriptionHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subscriptionService.ListPlans(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, plans)
}

// SeedPlans godoc
// @Summary Создать или обновить стандартные тарифы
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=[]models.SubscriptionPlan}
// @Router /api/admin/subscriptions/plans/seed [post]
func (h *SubscriptionHandler) SeedPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subscriptionService.SeedPlans(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, plans)
}

// MySubscription godoc
// @Summary Текущая подписка
// @Description Просроченная подписка помечается expired и не возвращается.
// @Tags subscriptions
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=models.UserSubscription}
// @Router /api/subscriptions/my [get]
func (h *SubscriptionHandler) MySubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subscriptionService.MySubscription(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]interface{}{
		"has_subscription": sub != nil,
		"subscription":     sub,
	})
}

// Subscribe godoc
// @Summary Оформить подписку
// @Description Создаёт платёж и возвращает ссылку на оплату PhonePe.
// @Tags subscriptions
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body planRequest true "Тариф"
// @Success 201 {object} helpers.Response{data=models.CheckoutSession}
// @Failure 400 {object} helpers.Response
// @Failure 502 {object} helpers.Response
// @Router /api/subscriptions/subscribe [post]
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.paymentService.Initiate(r.Context(), currentUserID(r), req.PlanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, session)
}

// Upgrade godoc
// @Summary Сменить тариф
// @Description Старая подписка действует до активации новой.
// @Tags subscriptions
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body planRequest true "Новый тариф"
// @Success 201 {object} helpers.Response{data=models.CheckoutSession}
// @Failure 400 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Router /api/subscriptions/upgrade [post]
func (h *SubscriptionHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.paymentService.Upgrade(r.Context(), currentUserID(r), req.PlanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, session)
}

// Cancel godoc
// @Summary Отменить подписку
// @Tags subscriptions
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=models.UserSubscription}
// @Failure 404 {object} helpers.Response
// @Router /api/subscriptions/cancel [post]
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subscriptionService.Cancel(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, sub)
}
