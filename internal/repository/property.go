package repository

import (
	"context"
	"fmt"
	"strings"

	"truowners/internal/logger"
	"truowners/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PropertyRepository struct {
	db *pgxpool.Pool
}

func NewPropertyRepository(db *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{db: db}
}

const propertyColumns = `p.id, p.owner_id, p.title, p.description, p.address, p.city, p.state, p.pincode,
	p.country, p.lat, p.lng, p.geohash, p.listing_type, p.rent, p.deposit, p.price, p.property_type,
	p.bedrooms, p.bathrooms, p.area, p.amenities, p.images, p.owner_details, p.status,
	p.created_at, p.updated_at`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&p.Location.Address,
		&p.Location.City,
		&p.Location.State,
		&p.Location.Pincode,
		&p.Location.Country,
		&p.Location.Lat,
		&p.Location.Lng,
		&p.Geohash,
		&p.ListingType,
		&p.Rent,
		&p.Deposit,
		&p.Price,
		&p.PropertyType,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.Area,
		&p.Amenities,
		&p.Images,
		&p.OwnerDetails,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *PropertyRepository) CreateProperty(ctx context.Context, p *models.Property) error {
	logger.Log.Info("Создание объекта (repo)", zap.String("title", p.Title), zap.String("listing_type", p.ListingType))
	err := r.db.QueryRow(ctx, `
		INSERT INTO properties (owner_id, title, description, address, city, state, pincode, country, lat, lng,
			geohash, listing_type, rent, deposit, price, property_type, bedrooms, bathrooms, area, amenities,
			images, owner_details, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		p.OwnerID, p.Title, p.Description, p.Location.Address, p.Location.City, p.Location.State,
		p.Location.Pincode, p.Location.Country, p.Location.Lat, p.Location.Lng, p.Geohash, p.ListingType,
		p.Rent, p.Deposit, p.Price, p.PropertyType, p.Bedrooms, p.Bathrooms, p.Area, nonNil(p.Amenities),
		nonNil(p.Images), p.OwnerDetails, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		logger.Log.Error("Ошибка создания объекта (repo)", zap.Error(err))
	}
	return mapErr(err)
}

func (r *PropertyRepository) GetPropertyByID(ctx context.Context, id int64) (*models.Property, error) {
	logger.Log.Debug("Получение объекта (repo)", zap.Int64("property_id", id))
	return scanProperty(r.db.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties p WHERE p.id = $1`, id))
}

func (r *PropertyRepository) UpdateProperty(ctx context.Context, p *models.Property) error {
	logger.Log.Info("Обновление объекта (repo)", zap.Int64("property_id", p.ID))
	err := r.db.QueryRow(ctx, `
		UPDATE properties SET owner_id = $2, title = $3, description = $4, address = $5, city = $6, state = $7,
			pincode = $8, country = $9, lat = $10, lng = $11, geohash = $12, listing_type = $13, rent = $14,
			deposit = $15, price = $16, property_type = $17, bedrooms = $18, bathrooms = $19, area = $20,
			amenities = $21, images = $22, owner_details = $23, status = $24, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.OwnerID, p.Title, p.Description, p.Location.Address, p.Location.City, p.Location.State,
		p.Location.Pincode, p.Location.Country, p.Location.Lat, p.Location.Lng, p.Geohash, p.ListingType,
		p.Rent, p.Deposit, p.Price, p.PropertyType, p.Bedrooms, p.Bathrooms, p.Area, nonNil(p.Amenities),
		nonNil(p.Images), p.OwnerDetails, p.Status,
	).Scan(&p.UpdatedAt)
	if err != nil {
		logger.Log.Error("Ошибка обновления объекта (repo)", zap.Error(err))
	}
	return mapErr(err)
}

func (r *PropertyRepository) SetStatus(ctx context.Context, id int64, status string) error {
	logger.Log.Info("Смена статуса объекта (repo)", zap.Int64("property_id", id), zap.String("status", status))
	tag, err := r.db.Exec(ctx, `UPDATE properties SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOwnedProperty удаляет объект только если он принадлежит владельцу.
func (r *PropertyRepository) DeleteOwnedProperty(ctx context.Context, id, ownerID int64) error {
	logger.Log.Info("Удаление объекта (repo)", zap.Int64("property_id", id), zap.Int64("owner_id", ownerID))
	tag, err := r.db.Exec(ctx, `DELETE FROM properties WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		logger.Log.Error("Ошибка удаления объекта (repo)", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PropertyRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.Property, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+propertyColumns+` FROM properties p
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

func collectProperties(rows pgx.Rows) ([]models.Property, error) {
	out := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// where собирает условия с позиционными параметрами.
// Все "?" в одном условии ссылаются на один и тот же аргумент.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var catalogSort = map[string]string{
	"":           "p.created_at DESC",
	"newest":     "p.created_at DESC",
	"oldest":     "p.created_at ASC",
	"rent_asc":   "p.rent ASC NULLS LAST",
	"rent_desc":  "p.rent DESC NULLS LAST",
	"price_asc":  "p.price ASC NULLS LAST",
	"price_desc": "p.price DESC NULLS LAST",
}

const publicColumns = `p.id, p.title, p.description, p.address, p.city, p.state, p.pincode, p.country,
	p.lat, p.lng, p.listing_type, p.rent, p.deposit, p.price, p.property_type, p.bedrooms, p.bathrooms,
	p.area, p.amenities, p.images, COALESCE(o.verified, FALSE), p.created_at`

func scanPublic(row pgx.Row) (*models.PublicProperty, error) {
	var p models.PublicProperty
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Location.Address,
		&p.Location.City,
		&p.Location.State,
		&p.Location.Pincode,
		&p.Location.Country,
		&p.Location.Lat,
		&p.Location.Lng,
		&p.ListingType,
		&p.Rent,
		&p.Deposit,
		&p.Price,
		&p.PropertyType,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.Area,
		&p.Amenities,
		&p.Images,
		&p.OwnerVerified,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *PropertyRepository) ListPublished(ctx context.Context, f models.CatalogFilter) ([]models.PublicProperty, int, error) {
	logger.Log.Debug("Каталог объектов (repo)", zap.Any("filter", f))

	w := &where{}
	w.add("p.status = ?", models.PropertyPublished)
	if f.City != "" {
		w.add("LOWER(p.city) = LOWER(?)", f.City)
	}
	if f.ListingType != "" {
		w.add("p.listing_type = ?", f.ListingType)
	}
	if f.PropertyType != "" {
		w.add("p.property_type = ?", f.PropertyType)
	}
	if f.MinRent != nil {
		w.add("p.rent >= ?", *f.MinRent)
	}
	if f.MaxRent != nil {
		w.add("p.rent <= ?", *f.MaxRent)
	}
	if f.MinPrice != nil {
		w.add("p.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("p.price <= ?", *f.MaxPrice)
	}
	if f.Bedrooms != nil {
		w.add("p.bedrooms >= ?", *f.Bedrooms)
	}
	if f.Search != "" {
		w.add("p.title ILIKE ?", "%"+f.Search+"%")
	}
	if len(f.GeohashNear) > 0 {
		w.add(fmt.Sprintf("LEFT(p.geohash, %d) = ANY(?)", len(f.GeohashNear[0])), f.GeohashNear)
	}

	from := ` FROM properties p LEFT JOIN owners o ON o.id = p.owner_id` + w.sql()

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+from, w.args...).Scan(&total); err != nil {
		logger.Log.Error("Ошибка подсчёта каталога (repo)", zap.Error(err))
		return nil, 0, err
	}

	order, ok := catalogSort[f.Sort]
	if !ok {
		order = catalogSort[""]
	}
	args := append(w.args, f.Limit, offset(f.Page, f.Limit))
	query := `SELECT ` + publicColumns + from +
		fmt.Sprintf(" ORDER BY %s, p.id DESC LIMIT $%d OFFSET $%d", order, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Log.Error("Ошибка получения каталога (repo)", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	items := []models.PublicProperty{}
	for rows.Next() {
		p, err := scanPublic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *p)
	}
	return items, total, rows.Err()
}

func (r *PropertyRepository) GetPublished(ctx context.Context, id int64) (*models.PublicProperty, error) {
	return scanPublic(r.db.QueryRow(ctx, `
		SELECT `+publicColumns+`
		FROM properties p LEFT JOIN owners o ON o.id = p.owner_id
		WHERE p.id = $1 AND p.status = 'published'`, id))
}

var adminSort = map[string]string{
	"createdAt": "p.created_at",
	"updatedAt": "p.updated_at",
	"rent":      "p.rent",
	"title":     "p.title",
}

func (r *PropertyRepository) ListAdmin(ctx context.Context, f models.AdminPropertyFilter) ([]models.Property, int, error) {
	logger.Log.Info("Админский список объектов (repo)", zap.Int("page", f.Page), zap.Int("limit", f.Limit))

	w := &where{}
	if f.Status != "" {
		w.add("p.status = ?", f.Status)
	}
	if f.PropertyType != "" {
		w.add("p.property_type = ?", f.PropertyType)
	}
	if f.CustomerEmail != "" {
		w.add("(o.email ILIKE ? OR u.email ILIKE ?)", "%"+f.CustomerEmail+"%")
	}
	if f.CustomerName != "" {
		w.add("(o.name ILIKE ? OR u.name ILIKE ?)", "%"+f.CustomerName+"%")
	}
	if f.CustomerPhone != "" {
		w.add("(o.phone ILIKE ? OR u.phone ILIKE ?)", "%"+f.CustomerPhone+"%")
	}
	if f.MinRent != nil {
		w.add("p.rent >= ?", *f.MinRent)
	}
	if f.MaxRent != nil {
		w.add("p.rent <= ?", *f.MaxRent)
	}
	if f.Bedrooms != nil {
		w.add("p.bedrooms = ?", *f.Bedrooms)
	}
	if f.Bathrooms != nil {
		w.add("p.bathrooms = ?", *f.Bathrooms)
	}
	if f.CreatedFrom != nil {
		w.add("p.created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		w.add("p.created_at <= ?", *f.CreatedTo)
	}
	from := ` FROM properties p LEFT JOIN owners o ON o.id = p.owner_id LEFT JOIN users u ON u.id = o.user_id` + w.sql()

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+from, w.args...).Scan(&total); err != nil {
		logger.Log.Error("Ошибка подсчёта объектов (repo)", zap.Error(err))
		return nil, 0, err
	}

	col, ok := adminSort[f.SortBy]
	if !ok {
		col = adminSort["createdAt"]
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	args := append(w.args, f.Limit, offset(f.Page, f.Limit))
	query := `SELECT ` + propertyColumns + from +
		fmt.Sprintf(" ORDER BY %s %s NULLS LAST, p.id DESC LIMIT $%d OFFSET $%d", col, dir, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Log.Error("Ошибка получения объектов (repo)", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectProperties(rows)
	return items, total, err
}

func (r *PropertyRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM properties GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
