package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"truowners/internal/contracts"
	"truowners/internal/events"
	"truowners/internal/logger"
	"truowners/internal/models"
	"truowners/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reconcileBatch = 50

// SchemaValidator проверяет тело запроса по зарегистрированной JSON-схеме.
type SchemaValidator interface {
	Validate(key string, body []byte) error
}

type PaymentConfig struct {
	GSTPercent     int
	ReconcileAfter time.Duration
	Production     bool
}

type PaymentService struct {
	payments      PaymentRepo
	plans         PlanRepo
	subscriptions SubscriptionRepo
	gateway       PaymentGateway
	validator     SchemaValidator
	events        events.Publisher
	cfg           PaymentConfig
	now           func() time.Time
}

func NewPaymentService(payments PaymentRepo, plans PlanRepo, subs SubscriptionRepo, gateway PaymentGateway,
	validator SchemaValidator, pub events.Publisher, cfg PaymentConfig) *PaymentService {
	return &PaymentService{
		payments:      payments,
		plans:         plans,
		subscriptions: subs,
		gateway:       gateway,
		validator:     validator,
		events:        pub,
		cfg:           cfg,
		now:           time.Now,
	}
}

// NewMerchantTransactionID — TRU_<unix ms>_<6 цифр id пользователя>_<суффикс>.
func NewMerchantTransactionID(userID int64, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("TRU_%d_%06d_%s", now.UnixMilli(), userID%1000000, suffix)
}

// SplitGST возвращает сумму налога (округлённую до рупии) и итог к оплате.
func SplitGST(price float64, percent int) (gst, total float64) {
	gst = math.Round(price * float64(percent) / 100)
	return gst, price + gst
}

func (s *PaymentService) Initiate(ctx context.Context, userID, planID int64) (*models.CheckoutSession, error) {
	log := logger.WithCtx(ctx)
	log.Info("Старт оплаты (service)", zap.Int64("plan_id", planID))

	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, orNotFound(err, "тариф не найден")
	}
	if !plan.IsActive {
		return nil, badRequest("тариф недоступен")
	}

	gst, total := SplitGST(plan.Price, s.cfg.GSTPercent)
	payment := &models.Payment{
		UserID:                userID,
		PlanID:                plan.ID,
		Amount:                plan.Price,
		GSTAmount:             gst,
		TotalAmount:           total,
		MerchantTransactionID: NewMerchantTransactionID(userID, s.now()),
	}
	sub := &models.UserSubscription{UserID: userID, PlanID: plan.ID}

	if err := s.payments.CreateCheckout(ctx, payment, sub); err != nil {
		log.Error("Ошибка создания платежа", zap.Error(err))
		return nil, err
	}

	resp, err := s.gateway.Pay(ctx, PayRequest{
		MerchantOrderID: payment.MerchantTransactionID,
		AmountPaise:     int64(math.Round(total * 100)),
		UserID:          userID,
		PlanID:          plan.ID,
		SubscriptionID:  sub.ID,
	})
	if err != nil {
		log.Error("Шлюз отклонил создание заказа", zap.Error(err))
		s.settle(ctx, payment.MerchantTransactionID, models.PaymentOutcome{
			Status:          models.PaymentFailed,
			ResponseCode:    "GATEWAY_ERROR",
			ResponseMessage: err.Error(),
		})
		return nil, newErr(ErrGateway, "платёжный шлюз недоступен")
	}
	if resp.RedirectURL == "" {
		log.Warn("Шлюз не вернул ссылку на оплату", zap.String("merchant_transaction_id", payment.MerchantTransactionID))
		s.settle(ctx, payment.MerchantTransactionID, models.PaymentOutcome{
			Status:          models.PaymentFailed,
			ResponseCode:    "NO_REDIRECT_URL",
			ResponseMessage: "gateway returned no redirect url",
		})
		return nil, badRequest("не удалось получить ссылку на оплату")
	}

	log.Info("Заказ на оплату создан",
		zap.String("merchant_transaction_id", payment.MerchantTransactionID), zap.Float64("total", total))
	return &models.CheckoutSession{
		PaymentID:             payment.ID,
		SubscriptionID:        sub.ID,
		MerchantTransactionID: payment.MerchantTransactionID,
		RedirectURL:           resp.RedirectURL,
		Amount:                payment.Amount,
		GSTAmount:             gst,
		TotalAmount:           total,
	}, nil
}

// Upgrade — оплата другого тарифа при действующей подписке. Текущая
// подписка остаётся активной до подтверждения оплаты.
func (s *PaymentService) Upgrade(ctx context.Context, userID, planID int64) (*models.CheckoutSession, error) {
	current, err := currentSubscription(ctx, s.subscriptions, userID, s.now())
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, notFound("активная подписка не найдена")
	}
	if current.PlanID == planID {
		return nil, badRequest("этот тариф уже активен")
	}
	return s.Initiate(ctx, userID, planID)
}

// settle закрывает платёж и публикует события, только если этот вызов его закрыл.
func (s *PaymentService) settle(ctx context.Context, merchantTxnID string, out models.PaymentOutcome) (*models.Payment, bool, error) {
	log := logger.WithCtx(ctx)
	p, applied, err := s.payments.Settle(ctx, merchantTxnID, out, s.now())
	if errors.Is(err, repository.ErrConflict) {
		log.Warn("Параллельная активация подписки, платёж останется pending",
			zap.String("merchant_transaction_id", merchantTxnID))
		return nil, false, err
	}
	if err != nil {
		log.Error("Ошибка закрытия платежа", zap.String("merchant_transaction_id", merchantTxnID), zap.Error(err))
		return nil, false, err
	}
	if !applied {
		log.Info("Платёж уже обработан", zap.String("merchant_transaction_id", merchantTxnID), zap.String("status", p.Status))
		return p, false, nil
	}

	payload := map[string]interface{}{
		"payment_id":              p.ID,
		"user_id":                 p.UserID,
		"plan_id":                 p.PlanID,
		"subscription_id":         p.SubscriptionID,
		"merchant_transaction_id": p.MerchantTransactionID,
		"total_amount":            p.TotalAmount,
		"status":                  p.Status,
	}
	switch p.Status {
	case models.PaymentSuccess:
		publish(ctx, s.events, events.PaymentSucceeded, payload)
		publish(ctx, s.events, events.SubscriptionActivated, map[string]interface{}{
			"user_id":         p.UserID,
			"subscription_id": p.SubscriptionID,
			"plan_id":         p.PlanID,
		})
	default:
		publish(ctx, s.events, events.PaymentFailed, payload)
	}
	return p, true, nil
}

type callbackBody struct {
	MerchantOrderID         string `json:"merchantOrderId"`
	OriginalMerchantOrderID string `json:"originalMerchantOrderId"`
	Payload                 struct {
		MerchantOrderID string `json:"merchantOrderId"`
	} `json:"payload"`
}

type CallbackResult struct {
	MerchantTransactionID string `json:"merchant_transaction_id"`
	Status                string `json:"status"`
	Applied               bool   `json:"applied"`
	Message               string `json:"message,omitempty"`
}

func (s *PaymentService) HandleCallback(ctx context.Context, body []byte, queryTxnID string) (*CallbackResult, error) {
	log := logger.WithCtx(ctx)

	var cb callbackBody
	if len(body) > 0 {
		if s.validator != nil {
			if err := s.validator.Validate(contracts.GatewayCallback, body); err != nil {
				log.Warn("Колбэк не прошёл проверку схемы", zap.Error(err))
				return nil, badRequest("некорректное тело колбэка")
			}
		}
		if err := json.Unmarshal(body, &cb); err != nil {
			return nil, badRequest("некорректное тело колбэка")
		}
	}

	txnID := firstFilled(cb.MerchantOrderID, strings.TrimSpace(queryTxnID), cb.OriginalMerchantOrderID, cb.Payload.MerchantOrderID)
	if txnID == "" {
		return nil, badRequest("merchantTransactionId обязателен")
	}
	log.Info("Колбэк платёжного шлюза", zap.String("merchant_transaction_id", txnID))

	payment, err := s.payments.GetByMerchantTransactionID(ctx, txnID)
	if err != nil {
		return nil, orNotFound(err, "платёж не найден")
	}
	res := &CallbackResult{MerchantTransactionID: txnID, Status: payment.Status}
	if payment.Status != models.PaymentPending {
		return res, nil
	}
	if len(body) > 0 {
		if err := s.payments.SaveCallbackData(ctx, txnID, json.RawMessage(body)); err != nil {
			log.Warn("Не удалось сохранить тело колбэка", zap.Error(err))
		}
	}

	st, err := s.gateway.OrderStatus(ctx, txnID)
	if err != nil {
		log.Warn("Статус в шлюзе недоступен, платёж будет проверен позже", zap.Error(err))
		res.Message = "payment will be checked later"
		return res, nil
	}

	out := st.Outcome()
	if out.Status == models.PaymentPending {
		return res, nil
	}
	p, applied, err := s.settle(ctx, txnID, out)
	if errors.Is(err, repository.ErrConflict) {
		res.Message = "payment will be checked later"
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	res.Status = p.Status
	res.Applied = applied
	return res, nil
}

// CheckStatus возвращает платёж пользователя; pending перепроверяется в шлюзе.
func (s *PaymentService) CheckStatus(ctx context.Context, userID int64, merchantTxnID string) (*models.Payment, error) {
	p, err := s.payments.GetByMerchantTransactionID(ctx, merchantTxnID)
	if err != nil {
		return nil, orNotFound(err, "платёж не найден")
	}
	if p.UserID != userID {
		return nil, notFound("платёж не найден")
	}
	if p.Status != models.PaymentPending {
		return p, nil
	}

	st, err := s.gateway.OrderStatus(ctx, merchantTxnID)
	if err != nil {
		logger.WithCtx(ctx).Warn("Не удалось получить статус в шлюзе", zap.Error(err))
		return p, nil
	}
	out := st.Outcome()
	if out.Status == models.PaymentPending {
		return p, nil
	}
	settled, _, err := s.settle(ctx, merchantTxnID, out)
	if errors.Is(err, repository.ErrConflict) {
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	return settled, nil
}

func (s *PaymentService) History(ctx context.Context, userID int64) ([]models.Payment, error) {
	payments, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	subs, err := s.subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.UserSubscription, len(subs))
	for i := range subs {
		byID[subs[i].ID] = &subs[i]
	}
	for i := range payments {
		if id := payments[i].SubscriptionID; id != nil {
			payments[i].Subscription = byID[*id]
		}
	}
	return payments, nil
}

// SandboxComplete закрывает платёж без шлюза. Только вне продакшена.
func (s *PaymentService) SandboxComplete(ctx context.Context, userID int64, merchantTxnID, status string) (*models.Payment, error) {
	if s.cfg.Production {
		return nil, forbidden("недоступно в продакшене")
	}
	switch status {
	case models.PaymentSuccess, models.PaymentFailed, models.PaymentCancelled:
	default:
		return nil, badRequest("недопустимый статус: %s", status)
	}

	p, err := s.payments.GetByMerchantTransactionID(ctx, merchantTxnID)
	if err != nil {
		return nil, orNotFound(err, "платёж не найден")
	}
	if p.UserID != userID {
		return nil, notFound("платёж не найден")
	}
	settled, _, err := s.settle(ctx, merchantTxnID, models.PaymentOutcome{
		Status:          status,
		ResponseCode:    "SANDBOX",
		ResponseMessage: "completed in sandbox",
	})
	return settled, err
}

// ReconcilePending перепроверяет зависшие pending-платежи. Возвращает число закрытых.
func (s *PaymentService) ReconcilePending(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.ReconcileAfter)
	pending, err := s.payments.ListPendingBefore(ctx, cutoff, reconcileBatch)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, p := range pending {
		st, err := s.gateway.OrderStatus(ctx, p.MerchantTransactionID)
		if err != nil {
			logger.Log.Warn("Сверка: шлюз недоступен",
				zap.String("merchant_transaction_id", p.MerchantTransactionID), zap.Error(err))
			continue
		}
		out := st.Outcome()
		if out.Status == models.PaymentPending {
			continue
		}
		_, applied, err := s.settle(ctx, p.MerchantTransactionID, out)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
				continue
			}
			return closed, err
		}
		if applied {
			closed++
		}
	}
	if closed > 0 {
		logger.Log.Info("Сверка платежей завершена", zap.Int("closed", closed), zap.Int("checked", len(pending)))
	}
	return closed, nil
}
