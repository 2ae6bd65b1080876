package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"truowners/internal/logger"
	"truowners/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `pm.id, pm.user_id, pm.subscription_id, pm.plan_id, pm.amount::float8, pm.gst_amount::float8,
	pm.total_amount::float8, pm.merchant_transaction_id, pm.gateway_transaction_id, pm.status,
	pm.payment_method, pm.response_code, pm.response_message, pm.callback_data, pm.created_at, pm.updated_at,
	pl.name, pl.price::float8, pl.contact_limit, pl.validity_days`

const paymentFrom = ` FROM payments pm JOIN subscription_plans pl ON pl.id = pm.plan_id`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	var plan models.SubscriptionPlan
	var raw []byte
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.SubscriptionID,
		&p.PlanID,
		&p.Amount,
		&p.GSTAmount,
		&p.TotalAmount,
		&p.MerchantTransactionID,
		&p.GatewayTransactionID,
		&p.Status,
		&p.PaymentMethod,
		&p.ResponseCode,
		&p.ResponseMessage,
		&raw,
		&p.CreatedAt,
		&p.UpdatedAt,
		&plan.Name,
		&plan.Price,
		&plan.ContactLimit,
		&plan.ValidityDays,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	plan.ID = p.PlanID
	p.Plan = &plan
	if len(raw) > 0 {
		p.CallbackData = json.RawMessage(raw)
	}
	return &p, nil
}

func collectPayments(rows pgx.Rows) ([]models.Payment, error) {
	out := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CreateCheckout создаёт pending-подписку и pending-платёж, связанные друг с другом.
func (r *PaymentRepository) CreateCheckout(ctx context.Context, p *models.Payment, s *models.UserSubscription) error {
	logger.Log.Info("Создание платежа (repo)",
		zap.Int64("user_id", p.UserID), zap.String("merchant_transaction_id", p.MerchantTransactionID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO user_subscriptions (user_id, plan_id, contacts_viewed, status, created_at, updated_at)
		VALUES ($1, $2, 0, 'pending', NOW(), NOW())
		RETURNING id, created_at`, s.UserID, s.PlanID).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return mapErr(err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO payments (user_id, subscription_id, plan_id, amount, gst_amount, total_amount,
			merchant_transaction_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		p.UserID, s.ID, p.PlanID, p.Amount, p.GSTAmount, p.TotalAmount, p.MerchantTransactionID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.Log.Error("Ошибка создания платежа (repo)", zap.Error(err))
		return mapErr(err)
	}

	if _, err := tx.Exec(ctx, `UPDATE user_subscriptions SET payment_id = $2 WHERE id = $1`, s.ID, p.ID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	p.SubscriptionID = &s.ID
	p.Status = models.PaymentPending
	s.PaymentID = &p.ID
	s.Status = models.SubscriptionPending
	return nil
}

func (r *PaymentRepository) GetByMerchantTransactionID(ctx context.Context, merchantTxnID string) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+paymentFrom+` WHERE pm.merchant_transaction_id = $1`, merchantTxnID))
}

// SaveCallbackData сохраняет сырое тело колбэка шлюза, пока платёж не закрыт.
func (r *PaymentRepository) SaveCallbackData(ctx context.Context, merchantTxnID string, raw json.RawMessage) error {
	_, err := r.db.Exec(ctx, `
		UPDATE payments SET callback_data = $2, updated_at = NOW()
		WHERE merchant_transaction_id = $1 AND status = 'pending'`, merchantTxnID, raw)
	return err
}

// Settle переводит платёж из pending в итоговый статус и в той же транзакции
// применяет результат к подписке. applied=false, если платёж уже был закрыт.
func (r *PaymentRepository) Settle(ctx context.Context, merchantTxnID string, out models.PaymentOutcome, now time.Time) (*models.Payment, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	var (
		userID int64
		subID  *int64
		planID int64
		raw    []byte
	)
	if len(out.Raw) > 0 {
		raw = out.Raw
	}
	err = tx.QueryRow(ctx, `
		UPDATE payments SET
			status = $2,
			gateway_transaction_id = COALESCE(NULLIF($3, ''), gateway_transaction_id),
			payment_method = COALESCE(NULLIF($4, ''), payment_method),
			response_code = $5,
			response_message = $6,
			updated_at = $7,
			callback_data = COALESCE($8::jsonb, callback_data)
		WHERE merchant_transaction_id = $1 AND status = 'pending'
		RETURNING user_id, subscription_id, plan_id`,
		merchantTxnID, out.Status, out.GatewayTransactionID, out.PaymentMethod, out.ResponseCode,
		out.ResponseMessage, now, raw,
	).Scan(&userID, &subID, &planID)
	if errors.Is(err, pgx.ErrNoRows) {
		// уже обработан другим запросом (колбэк или опрос)
		_ = tx.Rollback(ctx)
		p, gerr := r.GetByMerchantTransactionID(ctx, merchantTxnID)
		return p, false, gerr
	}
	if err != nil {
		logger.Log.Error("Ошибка обновления платежа (repo)", zap.Error(err))
		return nil, false, err
	}

	if subID != nil {
		switch out.Status {
		case models.PaymentSuccess:
			var days int
			if err := tx.QueryRow(ctx, `SELECT validity_days FROM subscription_plans WHERE id = $1`, planID).Scan(&days); err != nil {
				return nil, false, mapErr(err)
			}
			if _, err := tx.Exec(ctx, `
				UPDATE user_subscriptions SET status = 'cancelled', end_date = $3, updated_at = NOW()
				WHERE user_id = $1 AND status = 'active' AND id <> $2`, userID, *subID, now); err != nil {
				return nil, false, err
			}
			if _, err := tx.Exec(ctx, `
				UPDATE user_subscriptions SET status = 'active', start_date = $2, end_date = $3,
					contacts_viewed = 0, updated_at = NOW()
				WHERE id = $1 AND status = 'pending'`, *subID, now, now.AddDate(0, 0, days)); err != nil {
				// параллельная активация другой подписки того же пользователя
				// (idx_user_subscriptions_one_active) даёт ErrConflict
				return nil, false, mapErr(err)
			}
		case models.PaymentFailed, models.PaymentCancelled:
			if _, err := tx.Exec(ctx, `
				UPDATE user_subscriptions SET status = 'cancelled', updated_at = NOW()
				WHERE id = $1 AND status = 'pending'`, *subID); err != nil {
				return nil, false, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	logger.Log.Info("Платёж закрыт (repo)",
		zap.String("merchant_transaction_id", merchantTxnID), zap.String("status", out.Status))

	p, err := r.GetByMerchantTransactionID(ctx, merchantTxnID)
	return p, true, err
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64) ([]models.Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+paymentFrom+`
		WHERE pm.user_id = $1 ORDER BY pm.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *PaymentRepository) ListPayments(ctx context.Context, status string, page, limit int) ([]models.Payment, int, error) {
	logger.Log.Info("Список платежей (repo)", zap.String("status", status), zap.Int("page", page))

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE ($1 = '' OR status = $1)`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+paymentFrom+`
		WHERE ($1 = '' OR pm.status = $1)
		ORDER BY pm.created_at DESC
		LIMIT $2 OFFSET $3`, status, limit, offset(page, limit))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectPayments(rows)
	return items, total, err
}

// ListPendingBefore — зависшие pending-платежи, созданные раньше cutoff.
func (r *PaymentRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+paymentFrom+`
		WHERE pm.status = 'pending' AND pm.created_at < $1
		ORDER BY pm.created_at ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}
