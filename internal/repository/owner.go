package repository

import (
	"context"

	"truowners/internal/logger"
	"truowners/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type OwnerRepository struct {
	db *pgxpool.Pool
}

func NewOwnerRepository(db *pgxpool.Pool) *OwnerRepository {
	return &OwnerRepository{db: db}
}

const ownerColumns = `o.id, o.user_id, o.name, o.email, o.phone, o.id_proof_type, o.id_proof_number,
	o.id_proof_image_url, o.electricity_bill, o.electricity_bill_image_url, o.verified,
	(SELECT COUNT(*) FROM properties p WHERE p.owner_id = o.id)`

func scanOwner(row pgx.Row) (*models.Owner, error) {
	var o models.Owner
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Name,
		&o.Email,
		&o.Phone,
		&o.IDProofType,
		&o.IDProofNumber,
		&o.IDProofImageURL,
		&o.ElectricityBill,
		&o.ElectricityBillImageURL,
		&o.Verified,
		&o.PropertyCount,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (r *OwnerRepository) CreateOwner(ctx context.Context, o *models.Owner) error {
	logger.Log.Info("Создание владельца (repo)", zap.String("email", o.Email))
	err := r.db.QueryRow(ctx, `
		INSERT INTO owners (user_id, name, email, phone, id_proof_type, id_proof_number, id_proof_image_url,
			electricity_bill, electricity_bill_image_url, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`,
		o.UserID, o.Name, o.Email, o.Phone, o.IDProofType, o.IDProofNumber, o.IDProofImageURL,
		o.ElectricityBill, o.ElectricityBillImageURL, o.Verified,
	).Scan(&o.ID)
	if err != nil {
		logger.Log.Error("Ошибка создания владельца (repo)", zap.Error(err))
	}
	return mapErr(err)
}

func (r *OwnerRepository) GetOwnerByID(ctx context.Context, id int64) (*models.Owner, error) {
	return scanOwner(r.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners o WHERE o.id = $1`, id))
}

func (r *OwnerRepository) GetOwnerByUserID(ctx context.Context, userID int64) (*models.Owner, error) {
	logger.Log.Debug("Поиск профиля владельца (repo)", zap.Int64("user_id", userID))
	return scanOwner(r.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners o WHERE o.user_id = $1`, userID))
}

// GetOwnerByEmail ищет по email профиля или email связанного пользователя.
func (r *OwnerRepository) GetOwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	return scanOwner(r.db.QueryRow(ctx, `
		SELECT `+ownerColumns+` FROM owners o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE LOWER(o.email) = LOWER($1) OR LOWER(u.email) = LOWER($1)
		ORDER BY o.id
		LIMIT 1`, email))
}

func (r *OwnerRepository) UpdateOwner(ctx context.Context, o *models.Owner) error {
	logger.Log.Info("Обновление владельца (repo)", zap.Int64("owner_id", o.ID))
	tag, err := r.db.Exec(ctx, `
		UPDATE owners SET user_id = $2, name = $3, email = $4, phone = $5, id_proof_type = $6,
			id_proof_number = $7, id_proof_image_url = $8, electricity_bill = $9,
			electricity_bill_image_url = $10, verified = $11, updated_at = NOW()
		WHERE id = $1`,
		o.ID, o.UserID, o.Name, o.Email, o.Phone, o.IDProofType, o.IDProofNumber, o.IDProofImageURL,
		o.ElectricityBill, o.ElectricityBillImageURL, o.Verified)
	if err != nil {
		logger.Log.Error("Ошибка обновления владельца (repo)", zap.Error(err))
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OwnerRepository) SetVerified(ctx context.Context, id int64, verified bool) error {
	logger.Log.Info("Верификация владельца (repo)", zap.Int64("owner_id", id), zap.Bool("verified", verified))
	tag, err := r.db.Exec(ctx, `UPDATE owners SET verified = $2, updated_at = NOW() WHERE id = $1`, id, verified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FillElectricityBill заполняет поля счёта, только если они пустые.
func (r *OwnerRepository) FillElectricityBill(ctx context.Context, id int64, number, imageURL string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE owners SET
			electricity_bill = CASE WHEN electricity_bill = '' AND $2 <> '' THEN $2 ELSE electricity_bill END,
			electricity_bill_image_url = CASE WHEN electricity_bill_image_url = '' AND $3 <> '' THEN $3 ELSE electricity_bill_image_url END,
			updated_at = NOW()
		WHERE id = $1`, id, number, imageURL)
	if err != nil {
		logger.Log.Error("Ошибка обновления счёта владельца (repo)", zap.Error(err))
	}
	return err
}
