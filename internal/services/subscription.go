package services

import (
	"context"
	"time"

	"truowners/internal/events"
	"truowners/internal/logger"
	"truowners/internal/models"

	"go.uber.org/zap"
)

// DefaultPlans — тарифы, которые создаются командой seed.
var DefaultPlans = []models.SubscriptionPlan{
	{
		Name:         "Silver Plan",
		Price:        599,
		ContactLimit: 6,
		ValidityDays: 15,
		Description:  "Контакты 6 владельцев на 15 дней",
		Features:     []string{"6 owner contacts", "15 days validity"},
		IsActive:     true,
	},
	{
		Name:         "Gold Plan",
		Price:        1199,
		ContactLimit: 19,
		ValidityDays: 15,
		Description:  "Контакты 19 владельцев на 15 дней",
		Features:     []string{"19 owner contacts", "15 days validity", "Priority support"},
		IsActive:     true,
	},
	{
		Name:         "Diamond Plan",
		Price:        1799,
		ContactLimit: 25,
		ValidityDays: 15,
		Description:  "Контакты 25 владельцев на 15 дней",
		Features:     []string{"25 owner contacts", "15 days validity", "Priority support", "Site visit assistance"},
		IsActive:     true,
	},
}

type SubscriptionService struct {
	plans         PlanRepo
	subscriptions SubscriptionRepo
	cache         PlanCache
	events        events.Publisher
	now           func() time.Time
}

func NewSubscriptionService(plans PlanRepo, subs SubscriptionRepo, cache PlanCache, pub events.Publisher) *SubscriptionService {
	return &SubscriptionService{plans: plans, subscriptions: subs, cache: cache, events: pub, now: time.Now}
}

func (s *SubscriptionService) SeedPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	log := logger.WithCtx(ctx)
	seeded := make([]models.SubscriptionPlan, 0, len(DefaultPlans))
	for _, p := range DefaultPlans {
		plan := p
		if err := s.plans.UpsertPlan(ctx, &plan); err != nil {
			log.Error("Ошибка создания тарифа", zap.String("plan", plan.Name), zap.Error(err))
			return nil, err
		}
		seeded = append(seeded, plan)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Warn("Не удалось сбросить кэш тарифов", zap.Error(err))
		}
	}
	log.Info("Тарифы созданы", zap.Int("count", len(seeded)))
	return seeded, nil
}

func (s *SubscriptionService) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	if s.cache != nil {
		if plans, ok := s.cache.Get(ctx); ok {
			return plans, nil
		}
	}
	plans, err := s.plans.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, plans); err != nil {
			logger.WithCtx(ctx).Warn("Не удалось закэшировать тарифы", zap.Error(err))
		}
	}
	return plans, nil
}

// MySubscription возвращает nil без ошибки, если активной подписки нет.
func (s *SubscriptionService) MySubscription(ctx context.Context, userID int64) (*models.UserSubscription, error) {
	return currentSubscription(ctx, s.subscriptions, userID, s.now())
}

func (s *SubscriptionService) Cancel(ctx context.Context, userID int64) (*models.UserSubscription, error) {
	sub, err := s.subscriptions.CancelActive(ctx, userID, s.now())
	if err != nil {
		return nil, orNotFound(err, "активная подписка не найдена")
	}
	logger.WithCtx(ctx).Info("Подписка отменена пользователем", zap.Int64("subscription_id", sub.ID))
	publish(ctx, s.events, events.SubscriptionCancelled, map[string]interface{}{
		"user_id":         userID,
		"subscription_id": sub.ID,
	})
	return sub, nil
}

func (s *SubscriptionService) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.subscriptions.ExpireDue(ctx, s.now())
	if err != nil {
		logger.Log.Error("Ошибка истечения подписок", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		logger.Log.Info("Подписки переведены в expired", zap.Int64("count", n))
	}
	return n, nil
}
