package repository

import (
	"context"

	"truowners/internal/logger"
	"truowners/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PropertyViewRepository struct {
	db *pgxpool.Pool
}

func NewPropertyViewRepository(db *pgxpool.Pool) *PropertyViewRepository {
	return &PropertyViewRepository{db: db}
}

// RecordView списывает один контакт и записывает просмотр. Строка подписки
// блокируется на время транзакции, поэтому счётчик не превышает limit.
// Повторный просмотр в рамках подписки возвращает already=true без списания.
func (r *PropertyViewRepository) RecordView(ctx context.Context, userID, propertyID, subscriptionID int64, limit int) (viewed int, already bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `
		SELECT contacts_viewed, status FROM user_subscriptions
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`, subscriptionID, userID).Scan(&viewed, &status)
	if err != nil {
		return 0, false, mapErr(err)
	}
	if status != models.SubscriptionActive {
		return viewed, false, ErrSubscriptionClosed
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM property_views
		WHERE user_id = $1 AND property_id = $2 AND subscription_id = $3)`,
		userID, propertyID, subscriptionID).Scan(&exists)
	if err != nil {
		return 0, false, err
	}
	if exists {
		return viewed, true, nil
	}

	if viewed >= limit {
		return viewed, false, ErrQuotaExhausted
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO property_views (user_id, property_id, subscription_id, viewed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, property_id, subscription_id) DO NOTHING`,
		userID, propertyID, subscriptionID)
	if err != nil {
		return 0, false, err
	}
	if tag.RowsAffected() == 0 {
		return viewed, true, nil
	}

	err = tx.QueryRow(ctx, `
		UPDATE user_subscriptions SET contacts_viewed = contacts_viewed + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING contacts_viewed`, subscriptionID).Scan(&viewed)
	if err != nil {
		return 0, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, err
	}

	logger.Log.Info("Контакт раскрыт (repo)",
		zap.Int64("user_id", userID), zap.Int64("property_id", propertyID), zap.Int("contacts_viewed", viewed))
	return viewed, false, nil
}

func (r *PropertyViewRepository) ListBySubscription(ctx context.Context, subscriptionID int64) ([]models.PropertyView, error) {
	return r.list(ctx, `v.subscription_id = $1`, subscriptionID)
}

func (r *PropertyViewRepository) ListByUser(ctx context.Context, userID int64) ([]models.PropertyView, error) {
	return r.list(ctx, `v.user_id = $1`, userID)
}

func (r *PropertyViewRepository) list(ctx context.Context, cond string, arg int64) ([]models.PropertyView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.id, v.user_id, v.property_id, v.subscription_id, v.viewed_at, `+publicColumns+`
		FROM property_views v
		JOIN properties p ON p.id = v.property_id
		LEFT JOIN owners o ON o.id = p.owner_id
		WHERE `+cond+`
		ORDER BY v.viewed_at DESC`, arg)
	if err != nil {
		logger.Log.Error("Ошибка получения просмотров (repo)", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []models.PropertyView{}
	for rows.Next() {
		var v models.PropertyView
		var p models.PublicProperty
		err := rows.Scan(
			&v.ID, &v.UserID, &v.PropertyID, &v.SubscriptionID, &v.ViewedAt,
			&p.ID, &p.Title, &p.Description, &p.Location.Address, &p.Location.City, &p.Location.State,
			&p.Location.Pincode, &p.Location.Country, &p.Location.Lat, &p.Location.Lng, &p.ListingType,
			&p.Rent, &p.Deposit, &p.Price, &p.PropertyType, &p.Bedrooms, &p.Bathrooms, &p.Area,
			&p.Amenities, &p.Images, &p.OwnerVerified, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		v.Property = &p
		out = append(out, v)
	}
	return out, rows.Err()
}
