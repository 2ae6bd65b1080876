package repository

import (
	"context"

	"truowners/internal/logger"
	"truowners/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type BookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `b.id, b.user_id, b.property_id, COALESCE(p.title, ''), COALESCE(u.email, ''),
	b.visit_date, b.message, b.status, b.created_at, b.updated_at`

const bookingFrom = ` FROM bookings b
	LEFT JOIN properties p ON p.id = b.property_id
	LEFT JOIN users u ON u.id = b.user_id`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.PropertyID,
		&b.PropertyTitle,
		&b.UserEmail,
		&b.VisitDate,
		&b.Message,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]models.Booking, error) {
	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *BookingRepository) CreateBooking(ctx context.Context, b *models.Booking) error {
	logger.Log.Info("Создание заявки на просмотр (repo)", zap.Int64("user_id", b.UserID), zap.Int64("property_id", b.PropertyID))
	err := r.db.QueryRow(ctx, `
		INSERT INTO bookings (user_id, property_id, visit_date, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		b.UserID, b.PropertyID, b.VisitDate, b.Message, b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		logger.Log.Error("Ошибка создания заявки (repo)", zap.Error(err))
	}
	return mapErr(err)
}

func (r *BookingRepository) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+bookingFrom+` WHERE b.id = $1`, id))
}

// HasOpenBooking — есть ли у пользователя незакрытая заявка на этот объект.
func (r *BookingRepository) HasOpenBooking(ctx context.Context, userID, propertyID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM bookings
		WHERE user_id = $1 AND property_id = $2 AND status IN ('pending', 'approved'))`,
		userID, propertyID).Scan(&exists)
	return exists, err
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+bookingFrom+` WHERE b.user_id = $1 ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *BookingRepository) ListBookings(ctx context.Context, status string, page, limit int) ([]models.Booking, int, error) {
	logger.Log.Info("Список заявок (repo)", zap.String("status", status), zap.Int("page", page))

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE ($1 = '' OR status = $1)`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+bookingFrom+`
		WHERE ($1 = '' OR b.status = $1)
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3`, status, limit, offset(page, limit))
	if err != nil {
		logger.Log.Error("Ошибка получения заявок (repo)", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectBookings(rows)
	return items, total, err
}

func (r *BookingRepository) Breakdown(ctx context.Context) (*models.BookingBreakdown, error) {
	var b models.BookingBreakdown
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*)
		FROM bookings`).Scan(&b.Pending, &b.Approved, &b.Rejected, &b.Completed, &b.Total)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) SetBookingStatus(ctx context.Context, id int64, status string) error {
	logger.Log.Info("Смена статуса заявки (repo)", zap.Int64("booking_id", id), zap.String("status", status))
	tag, err := r.db.Exec(ctx, `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePendingBooking удаляет только свою заявку в статусе pending.
func (r *BookingRepository) DeletePendingBooking(ctx context.Context, id, userID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1 AND user_id = $2 AND status = 'pending'`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
