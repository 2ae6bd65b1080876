package repository

import (
	"context"

	"truowners/internal/logger"
	"truowners/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, phone, password_hash, access_key_hash, role, verified, created_at, updated_at`

const userColumnsPrefixed = `id, u.name, u.email, u.phone, u.password_hash, u.access_key_hash, u.role, u.verified, u.created_at, u.updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.PasswordHash,
		&u.AccessKeyHash,
		&u.Role,
		&u.Verified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	logger.Log.Info("Создание пользователя (repo)", zap.String("email", user.Email), zap.String("role", user.Role))
	query := `
	INSERT INTO users (name, email, phone, password_hash, access_key_hash, role, verified, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.AccessKeyHash,
		user.Role,
		user.Verified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		logger.Log.Error("Ошибка создания пользователя (repo)", zap.Error(err))
	}
	return mapErr(err)
}

// CreateOwnerUser создаёт пользователя-владельца и его профиль в одной транзакции.
func (r *UserRepository) CreateOwnerUser(ctx context.Context, user *models.User, o *models.Owner) error {
	logger.Log.Info("Создание пользователя-владельца (repo)", zap.String("email", user.Email))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO users (name, email, phone, password_hash, access_key_hash, role, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		user.Name, user.Email, user.Phone, user.PasswordHash, user.AccessKeyHash, user.Role, user.Verified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		logger.Log.Error("Ошибка создания пользователя (repo)", zap.Error(err))
		return mapErr(err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO owners (user_id, name, email, phone, id_proof_type, id_proof_number, id_proof_image_url,
			electricity_bill, electricity_bill_image_url, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`,
		user.ID, o.Name, o.Email, o.Phone, o.IDProofType, o.IDProofNumber, o.IDProofImageURL,
		o.ElectricityBill, o.ElectricityBillImageURL, o.Verified,
	).Scan(&o.ID)
	if err != nil {
		logger.Log.Error("Ошибка создания владельца (repo)", zap.Error(err))
		return mapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	o.UserID = &user.ID
	return nil
}

func (r *UserRepository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	logger.Log.Debug("Проверка email на уникальность (repo)", zap.String("email", email))
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	if err != nil {
		logger.Log.Error("Ошибка проверки email (repo)", zap.Error(err))
	}
	return exists, err
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	logger.Log.Debug("Получение пользователя по email (repo)", zap.String("email", email))
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	logger.Log.Debug("Получение пользователя по ID (repo)", zap.Int64("user_id", id))
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdateCredentials перезаписывает пароль, ключ доступа и роль (create-admin).
func (r *UserRepository) UpdateCredentials(ctx context.Context, id int64, passwordHash, accessKeyHash, role string) error {
	logger.Log.Info("Обновление учётных данных (repo)", zap.Int64("user_id", id), zap.String("role", role))
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, access_key_hash = $3, role = $4, updated_at = NOW()
		WHERE id = $1`, id, passwordHash, accessKeyHash, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SaveRefreshToken(ctx context.Context, userID int64, token string) error {
	logger.Log.Debug("Сохранение refresh токена (repo)", zap.Int64("user_id", userID))
	_, err := r.db.Exec(ctx, `INSERT INTO refresh_tokens (user_id, token, created_at) VALUES ($1, $2, NOW())`, userID, token)
	if err != nil {
		logger.Log.Error("Ошибка сохранения refresh токена (repo)", zap.Error(err))
	}
	return err
}

func (r *UserRepository) IsRefreshTokenValid(ctx context.Context, userID int64, token string) (bool, error) {
	logger.Log.Debug("Проверка refresh токена (repo)", zap.Int64("user_id", userID))
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE user_id = $1 AND token = $2)`, userID, token).Scan(&exists)
	if err != nil {
		logger.Log.Error("Ошибка проверки refresh токена (repo)", zap.Error(err))
	}
	return exists, err
}

func (r *UserRepository) DeleteRefreshToken(ctx context.Context, userID int64, token string) error {
	logger.Log.Debug("Удаление refresh токена (repo)", zap.Int64("user_id", userID))
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		logger.Log.Error("Ошибка удаления refresh токена (repo)", zap.Error(err))
	}
	return err
}

func (r *UserRepository) ListUsers(ctx context.Context, role string, page, limit int) ([]models.User, int, error) {
	logger.Log.Info("Получение пользователей (repo)", zap.String("role", role), zap.Int("page", page))

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE ($1 = '' OR role = $1)`, role).Scan(&total); err != nil {
		logger.Log.Error("Ошибка подсчёта пользователей (repo)", zap.Error(err))
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, role, limit, offset(page, limit))
	if err != nil {
		logger.Log.Error("Ошибка получения пользователей (repo)", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) GetSystemStats(ctx context.Context) (*models.SystemStats, error) {
	logger.Log.Info("Сбор статистики (repo)")
	stats := &models.SystemStats{PropertiesByStatus: map[string]int{}}

	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE role = 'admin'),
			COUNT(*) FILTER (WHERE role = 'owner'),
			COUNT(*) FILTER (WHERE role = 'user')
		FROM users`).Scan(&stats.TotalUsers, &stats.Admins, &stats.Owners, &stats.RegularUsers)
	if err != nil {
		logger.Log.Error("Ошибка статистики пользователей (repo)", zap.Error(err))
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM properties GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.PropertiesByStatus[status] = n
		stats.TotalProperties += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_subscriptions WHERE status = 'active' AND end_date > NOW()`).
		Scan(&stats.ActiveSubscriptions)
	if err != nil {
		return nil, err
	}
	err = r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_amount), 0)::float8 FROM payments WHERE status = 'success'`).
		Scan(&stats.SuccessfulPayments, &stats.Revenue)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
