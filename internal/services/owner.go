package services

import (
	"context"
	"errors"
	"strings"

	"truowners/internal/events"
	"truowners/internal/logger"
	"truowners/internal/models"
	"truowners/internal/repository"

	"go.uber.org/zap"
)

type OwnerService struct {
	owners     OwnerRepo
	properties PropertyRepo
	users      UserRepo
	events     events.Publisher
}

func NewOwnerService(owners OwnerRepo, properties PropertyRepo, users UserRepo, pub events.Publisher) *OwnerService {
	return &OwnerService{owners: owners, properties: properties, users: users, events: pub}
}

type UploadPropertyInput struct {
	models.PropertyInput
	OwnerPhone                   string
	OwnerIDProofType             string
	OwnerIDProofNumber           string
	OwnerIDProofImageURL         string
	OwnerElectricityBillNumber   string
	OwnerElectricityBillImageURL string
}

// OwnerPropertyView — объект с данными владельца, собранными из объекта, профиля и пользователя.
type OwnerPropertyView struct {
	models.Property
	Owner models.OwnerDetails `json:"owner"`
}

func (s *OwnerService) ownerFor(ctx context.Context, userID int64) (*models.Owner, error) {
	owner, err := s.owners.GetOwnerByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, forbidden("профиль владельца не найден")
	}
	return owner, err
}

func (s *OwnerService) UploadProperty(ctx context.Context, userID int64, in UploadPropertyInput) (*OwnerPropertyView, error) {
	log := logger.WithCtx(ctx)
	log.Info("Загрузка объекта владельцем (service)")

	owner, err := s.ownerFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	billNumber := strings.TrimSpace(in.OwnerElectricityBillNumber)
	billImage := strings.TrimSpace(in.OwnerElectricityBillImageURL)
	if billNumber == "" && billImage == "" {
		return nil, badRequest("для загрузки объекта нужен номер или фото счёта за электричество")
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, badRequest("название объекта обязательно")
	}

	p := &models.Property{
		OwnerID: &owner.ID,
		Status:  models.PropertyPending,
		OwnerDetails: models.OwnerDetails{
			Phone:                   strings.TrimSpace(in.OwnerPhone),
			IDProofType:             strings.TrimSpace(in.OwnerIDProofType),
			IDProofNumber:           strings.TrimSpace(in.OwnerIDProofNumber),
			IDProofImageURL:         strings.TrimSpace(in.OwnerIDProofImageURL),
			ElectricityBillNumber:   billNumber,
			ElectricityBillImageURL: billImage,
		},
	}
	applyPropertyInput(p, in.PropertyInput)
	finalizeProperty(p)

	if err := s.properties.CreateProperty(ctx, p); err != nil {
		log.Error("Ошибка сохранения объекта", zap.Error(err))
		return nil, err
	}

	if err := s.owners.FillElectricityBill(ctx, owner.ID, billNumber, billImage); err != nil {
		log.Warn("Не удалось обновить счёт владельца", zap.Error(err))
	}

	log.Info("Объект загружен", zap.Int64("property_id", p.ID), zap.Int64("owner_id", owner.ID))
	publish(ctx, s.events, events.PropertyStatusChanged, map[string]interface{}{
		"property_id": p.ID,
		"status":      p.Status,
		"owner_id":    owner.ID,
	})

	return s.view(ctx, p, owner), nil
}

func (s *OwnerService) view(ctx context.Context, p *models.Property, owner *models.Owner) *OwnerPropertyView {
	v := &OwnerPropertyView{Property: *p}
	var user *models.User
	if owner.UserID != nil {
		if u, err := s.users.GetUserByID(ctx, *owner.UserID); err == nil {
			user = u
		}
	}
	var userName, userEmail, userPhone string
	if user != nil {
		userName, userEmail, userPhone = user.Name, user.Email, user.Phone
	}
	d := p.OwnerDetails
	v.Owner = models.OwnerDetails{
		Name:                    firstFilled(userName, owner.Name),
		Email:                   firstFilled(userEmail, owner.Email),
		Phone:                   firstFilled(d.Phone, userPhone, owner.Phone),
		IDProofType:             firstFilled(d.IDProofType, owner.IDProofType),
		IDProofNumber:           firstFilled(d.IDProofNumber, owner.IDProofNumber),
		IDProofImageURL:         firstFilled(d.IDProofImageURL, owner.IDProofImageURL),
		ElectricityBillNumber:   firstFilled(d.ElectricityBillNumber, owner.ElectricityBill),
		ElectricityBillImageURL: firstFilled(d.ElectricityBillImageURL, owner.ElectricityBillImageURL),
	}
	return v
}

func (s *OwnerService) ListMyProperties(ctx context.Context, userID int64) ([]models.Property, error) {
	owner, err := s.ownerFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.properties.ListByOwner(ctx, owner.ID)
}

// ownedProperty возвращает объект, только если он принадлежит владельцу.
func (s *OwnerService) ownedProperty(ctx context.Context, owner *models.Owner, id int64) (*models.Property, error) {
	p, err := s.properties.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "объект не найден")
	}
	if p.OwnerID == nil || *p.OwnerID != owner.ID {
		return nil, notFound("объект не найден")
	}
	return p, nil
}

func (s *OwnerService) GetMyProperty(ctx context.Context, userID, id int64) (*OwnerPropertyView, error) {
	owner, err := s.ownerFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.ownedProperty(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p, owner), nil
}

// UpdateMyProperty — одобренные и опубликованные объекты после правки уходят на повторную проверку.
func (s *OwnerService) UpdateMyProperty(ctx context.Context, userID, id int64, in models.PropertyInput) (*OwnerPropertyView, error) {
	owner, err := s.ownerFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.ownedProperty(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	prevStatus := p.Status
	applyPropertyInput(p, in)
	if p.Title == "" {
		return nil, badRequest("название объекта обязательно")
	}
	finalizeProperty(p)
	if p.Status == models.PropertyApproved || p.Status == models.PropertyPublished {
		p.Status = models.PropertyPending
	}

	if err := s.properties.UpdateProperty(ctx, p); err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("Объект обновлён владельцем", zap.Int64("property_id", p.ID), zap.String("status", p.Status))

	if prevStatus != p.Status {
		publish(ctx, s.events, events.PropertyStatusChanged, map[string]interface{}{
			"property_id": p.ID,
			"from":        prevStatus,
			"status":      p.Status,
		})
	}
	return s.view(ctx, p, owner), nil
}

func (s *OwnerService) DeleteMyProperty(ctx context.Context, userID, id int64) error {
	owner, err := s.ownerFor(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.properties.DeleteOwnedProperty(ctx, id, owner.ID); err != nil {
		return orNotFound(err, "объект не найден")
	}
	logger.WithCtx(ctx).Info("Объект удалён владельцем", zap.Int64("property_id", id))
	return nil
}
