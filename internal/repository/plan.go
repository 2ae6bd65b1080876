package repository

import (
	"context"

	"truowners/internal/logger"
	"truowners/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PlanRepository struct {
	db *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, name, price::float8, contact_limit, validity_days, description, features, is_active`

func scanPlan(row pgx.Row) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.ContactLimit, &p.ValidityDays, &p.Description, &p.Features, &p.IsActive)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// UpsertPlan создаёт тариф или обновляет существующий с тем же именем.
func (r *PlanRepository) UpsertPlan(ctx context.Context, p *models.SubscriptionPlan) error {
	logger.Log.Info("Сохранение тарифа (repo)", zap.String("name", p.Name))
	err := r.db.QueryRow(ctx, `
		INSERT INTO subscription_plans (name, price, contact_limit, validity_days, description, features, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			price = EXCLUDED.price,
			contact_limit = EXCLUDED.contact_limit,
			validity_days = EXCLUDED.validity_days,
			description = EXCLUDED.description,
			features = EXCLUDED.features,
			is_active = EXCLUDED.is_active
		RETURNING id`,
		p.Name, p.Price, p.ContactLimit, p.ValidityDays, p.Description, nonNil(p.Features), p.IsActive,
	).Scan(&p.ID)
	if err != nil {
		logger.Log.Error("Ошибка сохранения тарифа (repo)", zap.Error(err))
	}
	return mapErr(err)
}

func (r *PlanRepository) ListActivePlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE is_active ORDER BY price ASC`)
	if err != nil {
		logger.Log.Error("Ошибка получения тарифов (repo)", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []models.SubscriptionPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PlanRepository) GetPlanByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error) {
	return scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id))
}
