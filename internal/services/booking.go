package services

import (
	"context"
	"strings"
	"time"

	"truowners/internal/events"
	"truowners/internal/logger"
	"truowners/internal/models"

	"go.uber.org/zap"
)

type BookingService struct {
	bookings   BookingRepo
	properties PropertyRepo
	events     events.Publisher
	now        func() time.Time
}

func NewBookingService(bookings BookingRepo, properties PropertyRepo, pub events.Publisher) *BookingService {
	return &BookingService{bookings: bookings, properties: properties, events: pub, now: time.Now}
}

func (s *BookingService) RequestVisit(ctx context.Context, userID, propertyID int64, visitDate time.Time, message string) (*models.Booking, error) {
	log := logger.WithCtx(ctx)
	log.Info("Заявка на просмотр (service)", zap.Int64("property_id", propertyID))

	if !visitDate.After(s.now()) {
		return nil, badRequest("дата визита должна быть в будущем")
	}
	prop, err := s.properties.GetPublished(ctx, propertyID)
	if err != nil {
		return nil, orNotFound(err, "объект не найден или не опубликован")
	}

	open, err := s.bookings.HasOpenBooking(ctx, userID, propertyID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, conflict("заявка на этот объект уже существует")
	}

	b := &models.Booking{
		UserID:     userID,
		PropertyID: propertyID,
		VisitDate:  visitDate.UTC(),
		Message:    strings.TrimSpace(message),
		Status:     models.BookingPending,
	}
	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		log.Error("Ошибка создания заявки", zap.Error(err))
		return nil, err
	}
	b.PropertyTitle = prop.Title

	publish(ctx, s.events, events.BookingRequested, map[string]interface{}{
		"booking_id":  b.ID,
		"user_id":     userID,
		"property_id": propertyID,
		"visit_date":  b.VisitDate,
	})
	return b, nil
}

func (s *BookingService) MyBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// CancelBooking удаляет собственную заявку, пока она не рассмотрена.
func (s *BookingService) CancelBooking(ctx context.Context, userID, id int64) error {
	b, err := s.bookings.GetBookingByID(ctx, id)
	if err != nil {
		return orNotFound(err, "заявка не найдена")
	}
	if b.UserID != userID {
		return notFound("заявка не найдена")
	}
	if b.Status != models.BookingPending {
		return badRequest("отменить можно только заявку в статусе pending")
	}
	if err := s.bookings.DeletePendingBooking(ctx, id, userID); err != nil {
		return orNotFound(err, "заявка не найдена")
	}
	logger.WithCtx(ctx).Info("Заявка отменена", zap.Int64("booking_id", id))
	return nil
}
