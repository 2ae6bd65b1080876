package repository

import (
	"context"
	"time"

	"truowners/internal/logger"
	"truowners/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `s.id, s.user_id, s.plan_id, s.start_date, s.end_date, s.contacts_viewed, s.status,
	s.payment_id, s.created_at, pl.id, pl.name, pl.price::float8, pl.contact_limit, pl.validity_days,
	pl.description, pl.features, pl.is_active`

const subscriptionFrom = ` FROM user_subscriptions s JOIN subscription_plans pl ON pl.id = s.plan_id`

func scanSubscription(row pgx.Row) (*models.UserSubscription, error) {
	var s models.UserSubscription
	var p models.SubscriptionPlan
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlanID,
		&s.StartDate,
		&s.EndDate,
		&s.ContactsViewed,
		&s.Status,
		&s.PaymentID,
		&s.CreatedAt,
		&p.ID,
		&p.Name,
		&p.Price,
		&p.ContactLimit,
		&p.ValidityDays,
		&p.Description,
		&p.Features,
		&p.IsActive,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	s.Plan = &p
	return &s, nil
}

func collectSubscriptions(rows pgx.Rows) ([]models.UserSubscription, error) {
	out := []models.UserSubscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SubscriptionRepository) GetActiveSubscription(ctx context.Context, userID int64) (*models.UserSubscription, error) {
	logger.Log.Debug("Поиск активной подписки (repo)", zap.Int64("user_id", userID))
	return scanSubscription(r.db.QueryRow(ctx, `SELECT `+subscriptionColumns+subscriptionFrom+`
		WHERE s.user_id = $1 AND s.status = 'active'
		ORDER BY s.created_at DESC
		LIMIT 1`, userID))
}

func (r *SubscriptionRepository) GetSubscriptionByID(ctx context.Context, id int64) (*models.UserSubscription, error) {
	return scanSubscription(r.db.QueryRow(ctx, `SELECT `+subscriptionColumns+subscriptionFrom+` WHERE s.id = $1`, id))
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]models.UserSubscription, error) {
	rows, err := r.db.Query(ctx, `SELECT `+subscriptionColumns+subscriptionFrom+`
		WHERE s.user_id = $1 ORDER BY s.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// MarkExpired переводит активную подписку в expired.
func (r *SubscriptionRepository) MarkExpired(ctx context.Context, id int64) error {
	logger.Log.Info("Подписка истекла (repo)", zap.Int64("subscription_id", id))
	_, err := r.db.Exec(ctx, `
		UPDATE user_subscriptions SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'active'`, id)
	return err
}

// CancelActive отменяет активную подписку пользователя, end_date = now.
func (r *SubscriptionRepository) CancelActive(ctx context.Context, userID int64, now time.Time) (*models.UserSubscription, error) {
	logger.Log.Info("Отмена подписки (repo)", zap.Int64("user_id", userID))
	var id int64
	err := r.db.QueryRow(ctx, `
		UPDATE user_subscriptions SET status = 'cancelled', end_date = $2, updated_at = NOW()
		WHERE user_id = $1 AND status = 'active'
		RETURNING id`, userID, now).Scan(&id)
	if err != nil {
		return nil, mapErr(err)
	}
	return r.GetSubscriptionByID(ctx, id)
}

// ExpireDue переводит все просроченные активные подписки в expired.
func (r *SubscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE user_subscriptions SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND end_date <= $1`, now)
	if err != nil {
		logger.Log.Error("Ошибка истечения подписок (repo)", zap.Error(err))
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GrantActive активирует тариф без оплаты, отменяя прочие активные подписки пользователя.
func (r *SubscriptionRepository) GrantActive(ctx context.Context, userID int64, plan *models.SubscriptionPlan, now time.Time) (*models.UserSubscription, error) {
	logger.Log.Info("Выдача подписки (repo)", zap.Int64("user_id", userID), zap.Int64("plan_id", plan.ID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE user_subscriptions SET status = 'cancelled', end_date = $2, updated_at = NOW()
		WHERE user_id = $1 AND status = 'active'`, userID, now); err != nil {
		return nil, err
	}

	end := now.AddDate(0, 0, plan.ValidityDays)
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO user_subscriptions (user_id, plan_id, start_date, end_date, contacts_viewed, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 'active', NOW(), NOW())
		RETURNING id`, userID, plan.ID, now, end).Scan(&id)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetSubscriptionByID(ctx, id)
}

// ListUsersWithSubscriptions — пользователи с текущей активной подпиской (если есть).
func (r *SubscriptionRepository) ListUsersWithSubscriptions(ctx context.Context, page, limit int) ([]models.UserWithSubscription, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'user'`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT u.`+userColumnsPrefixed+`,
			s.id, pl.name, s.status, s.contacts_viewed, pl.contact_limit, s.end_date
		FROM users u
		LEFT JOIN LATERAL (
			SELECT * FROM user_subscriptions
			WHERE user_id = u.id AND status = 'active'
			ORDER BY created_at DESC LIMIT 1
		) s ON TRUE
		LEFT JOIN subscription_plans pl ON pl.id = s.plan_id
		WHERE u.role = 'user'
		ORDER BY u.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset(page, limit))
	if err != nil {
		logger.Log.Error("Ошибка списка пользователей с подписками (repo)", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.UserWithSubscription{}
	for rows.Next() {
		var u models.UserWithSubscription
		var (
			subID    *int64
			planName *string
			status   *string
			viewed   *int
			limitN   *int
			endDate  *time.Time
		)
		err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.AccessKeyHash, &u.Role, &u.Verified,
			&u.CreatedAt, &u.UpdatedAt,
			&subID, &planName, &status, &viewed, &limitN, &endDate,
		)
		if err != nil {
			return nil, 0, err
		}
		if subID != nil {
			sum := &models.SubscriptionSummary{ID: *subID, EndDate: endDate}
			if planName != nil {
				sum.PlanName = *planName
			}
			if status != nil {
				sum.Status = *status
			}
			if viewed != nil {
				sum.ContactsViewed = *viewed
			}
			if limitN != nil {
				sum.ContactLimit = *limitN
			}
			if left := sum.ContactLimit - sum.ContactsViewed; left > 0 {
				sum.RemainingContacts = left
			}
			u.Subscription = sum
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}
