package services

import (
	"context"
	"errors"
	"time"

	"truowners/internal/events"
	"truowners/internal/logger"
	"truowners/internal/models"
	"truowners/internal/repository"

	"go.uber.org/zap"
)

type PropertyViewService struct {
	views         PropertyViewRepo
	subscriptions SubscriptionRepo
	properties    PropertyRepo
	owners        OwnerRepo
	users         UserRepo
	events        events.Publisher
	fallback      string
	now           func() time.Time
}

type PropertyViewDeps struct {
	Views         PropertyViewRepo
	Subscriptions SubscriptionRepo
	Properties    PropertyRepo
	Owners        OwnerRepo
	Users         UserRepo
	Events        events.Publisher
	// Fallback подставляется, когда контакт владельца неизвестен.
	Fallback string
}

func NewPropertyViewService(d PropertyViewDeps) *PropertyViewService {
	fallback := d.Fallback
	if fallback == "" {
		fallback = "N/A"
	}
	return &PropertyViewService{
		views:         d.Views,
		subscriptions: d.Subscriptions,
		properties:    d.Properties,
		owners:        d.Owners,
		users:         d.Users,
		events:        d.Events,
		fallback:      fallback,
		now:           time.Now,
	}
}

// ViewOwnerDetails раскрывает контакты владельца опубликованного объекта.
// Повторный просмотр в рамках той же подписки лимит не расходует.
func (s *PropertyViewService) ViewOwnerDetails(ctx context.Context, userID, propertyID int64) (*models.ContactReveal, error) {
	log := logger.WithCtx(ctx)

	sub, err := currentSubscription(ctx, s.subscriptions, userID, s.now())
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, forbidden("нужна активная подписка")
	}
	if sub.Plan == nil {
		return nil, forbidden("тариф подписки не найден")
	}

	p, err := s.properties.GetPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, orNotFound(err, "объект не найден")
	}
	if p.Status != models.PropertyPublished {
		return nil, notFound("объект не найден")
	}

	viewed, already, err := s.views.RecordView(ctx, userID, propertyID, sub.ID, sub.Plan.ContactLimit)
	switch {
	case errors.Is(err, repository.ErrQuotaExhausted):
		log.Info("Лимит контактов исчерпан", zap.Int64("subscription_id", sub.ID))
		return nil, forbidden("лимит просмотров контактов исчерпан")
	case errors.Is(err, repository.ErrSubscriptionClosed):
		return nil, forbidden("подписка больше не активна")
	case err != nil:
		log.Error("Ошибка учёта просмотра", zap.Error(err))
		return nil, err
	}

	contact, err := s.resolveContact(ctx, p)
	if err != nil {
		return nil, err
	}

	remaining := sub.Plan.ContactLimit - viewed
	if remaining < 0 {
		remaining = 0
	}
	if !already {
		publish(ctx, s.events, events.ContactUnlocked, map[string]interface{}{
			"user_id":         userID,
			"property_id":     propertyID,
			"subscription_id": sub.ID,
			"contacts_viewed": viewed,
		})
	}

	return &models.ContactReveal{
		PropertyID:        propertyID,
		Owner:             contact,
		AlreadyViewed:     already,
		ContactsViewed:    viewed,
		ContactLimit:      sub.Plan.ContactLimit,
		RemainingContacts: remaining,
	}, nil
}

// resolveContact: данные в объекте, затем учётная запись владельца, затем его профиль.
func (s *PropertyViewService) resolveContact(ctx context.Context, p *models.Property) (models.OwnerContact, error) {
	var owner *models.Owner
	var user *models.User
	if p.OwnerID != nil {
		o, err := s.owners.GetOwnerByID(ctx, *p.OwnerID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return models.OwnerContact{}, err
		}
		owner = o
	}
	if owner != nil && owner.UserID != nil {
		u, err := s.users.GetUserByID(ctx, *owner.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return models.OwnerContact{}, err
		}
		user = u
	}

	var userName, userEmail, userPhone string
	if user != nil {
		userName, userEmail, userPhone = user.Name, user.Email, user.Phone
	}
	var ownerName, ownerEmail, ownerPhone string
	if owner != nil {
		ownerName, ownerEmail, ownerPhone = owner.Name, owner.Email, owner.Phone
	}
	d := p.OwnerDetails
	orFallback := func(v string) string {
		if v == "" {
			return s.fallback
		}
		return v
	}
	return models.OwnerContact{
		Name:  orFallback(firstFilled(d.Name, userName, ownerName)),
		Email: orFallback(firstFilled(d.Email, userEmail, ownerEmail)),
		Phone: orFallback(firstFilled(d.Phone, userPhone, ownerPhone)),
	}, nil
}

// ViewedProperties — просмотры текущей активной подписки, новые сверху.
func (s *PropertyViewService) ViewedProperties(ctx context.Context, userID int64) ([]models.PropertyView, error) {
	sub, err := currentSubscription(ctx, s.subscriptions, userID, s.now())
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return []models.PropertyView{}, nil
	}
	return s.views.ListBySubscription(ctx, sub.ID)
}
