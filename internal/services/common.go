package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"truowners/internal/events"
	"truowners/internal/logger"
	"truowners/internal/models"
	"truowners/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isFilled — значение указано и не является заглушкой "pending".
func isFilled(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, models.DetailPending)
}

func firstFilled(values ...string) string {
	for _, v := range values {
		if isFilled(v) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// publish отправляет событие; сбой брокера не влияет на результат операции.
func publish(ctx context.Context, pub events.Publisher, eventType string, payload interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, eventType, payload); err != nil {
		logger.WithCtx(ctx).Warn("Не удалось опубликовать событие", zap.String("type", eventType), zap.Error(err))
	}
}

// currentSubscription возвращает активную подписку пользователя и лениво
// переводит её в expired, если срок прошёл. nil без ошибки — подписки нет.
func currentSubscription(ctx context.Context, repo SubscriptionRepo, userID int64, now time.Time) (*models.UserSubscription, error) {
	sub, err := repo.GetActiveSubscription(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !sub.IsUsable(now) {
		logger.WithCtx(ctx).Info("Подписка истекла при обращении", zap.Int64("subscription_id", sub.ID))
		if err := repo.MarkExpired(ctx, sub.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return sub, nil
}
