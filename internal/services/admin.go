package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"truowners/internal/events"
	"truowners/internal/logger"
	"truowners/internal/models"
	"truowners/internal/repository"
	"truowners/internal/utils"

	"go.uber.org/zap"
)

const defaultPropertyType = "apartment"

type AdminService struct {
	users         UserRepo
	owners        OwnerRepo
	properties    PropertyRepo
	bookings      BookingRepo
	plans         PlanRepo
	subscriptions SubscriptionRepo
	payments      PaymentRepo
	views         PropertyViewRepo
	events        events.Publisher
	now           func() time.Time
}

type AdminDeps struct {
	Users         UserRepo
	Owners        OwnerRepo
	Properties    PropertyRepo
	Bookings      BookingRepo
	Plans         PlanRepo
	Subscriptions SubscriptionRepo
	Payments      PaymentRepo
	Views         PropertyViewRepo
	Events        events.Publisher
}

func NewAdminService(d AdminDeps) *AdminService {
	return &AdminService{
		users:         d.Users,
		owners:        d.Owners,
		properties:    d.Properties,
		bookings:      d.Bookings,
		plans:         d.Plans,
		subscriptions: d.Subscriptions,
		payments:      d.Payments,
		views:         d.Views,
		events:        d.Events,
		now:           time.Now,
	}
}

// OwnerLookup — результат проверки email перед созданием объекта.
type OwnerLookup struct {
	Exists  bool          `json:"exists"`
	IsOwner bool          `json:"is_owner"`
	User    *models.User  `json:"user,omitempty"`
	Owner   *models.Owner `json:"owner,omitempty"`
}

func (s *AdminService) CheckOwnerExists(ctx context.Context, email string) (*OwnerLookup, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, badRequest("email обязателен")
	}

	res := &OwnerLookup{}
	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		res.Exists = true
		res.User = user
		res.IsOwner = user.Role == models.RoleOwner
		if owner, err := s.owners.GetOwnerByUserID(ctx, user.ID); err == nil {
			res.Owner = owner
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		// владелец мог быть создан админом без учётной записи
		owner, err := s.owners.GetOwnerByEmail(ctx, email)
		if err == nil {
			res.Exists = true
			res.IsOwner = true
			res.Owner = owner
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	default:
		return nil, err
	}
	return res, nil
}

type AdminPropertyInput struct {
	Owner    models.OwnerInput
	Property models.PropertyInput
	Status   string
}

func newOwnerFromInput(in models.OwnerInput, userID *int64) *models.Owner {
	orPending := func(v string) string {
		if v = strings.TrimSpace(v); v == "" {
			return models.DetailPending
		}
		return v
	}
	return &models.Owner{
		UserID:                  userID,
		Name:                    strings.TrimSpace(in.Name),
		Email:                   normalizeEmail(in.Email),
		Phone:                   strings.TrimSpace(in.Phone),
		IDProofType:             orPending(in.IDProofType),
		IDProofNumber:           orPending(in.IDProofNumber),
		IDProofImageURL:         orPending(in.IDProofImageURL),
		ElectricityBill:         models.DetailPending,
		ElectricityBillImageURL: models.DetailPending,
	}
}

// mergeOwner переносит непустые поля ввода в профиль. Возвращает true, если что-то изменилось.
func mergeOwner(o *models.Owner, in models.OwnerInput) bool {
	changed := false
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" && v != *dst {
			*dst = v
			changed = true
		}
	}
	set(&o.Name, in.Name)
	set(&o.Email, normalizeEmail(in.Email))
	set(&o.Phone, in.Phone)
	set(&o.IDProofType, in.IDProofType)
	set(&o.IDProofNumber, in.IDProofNumber)
	set(&o.IDProofImageURL, in.IDProofImageURL)
	return changed
}

// resolveOwner находит или создаёт владельца по данным из админской формы.
func (s *AdminService) resolveOwner(ctx context.Context, in models.OwnerInput) (*models.Owner, error) {
	log := logger.WithCtx(ctx)
	if in.IsEmpty() {
		return nil, nil
	}

	email := normalizeEmail(in.Email)
	if email == "" {
		owner := newOwnerFromInput(in, nil)
		if err := s.owners.CreateOwner(ctx, owner); err != nil {
			return nil, err
		}
		log.Info("Создан владелец без учётной записи", zap.Int64("owner_id", owner.ID))
		return owner, nil
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if user != nil {
		if user.Role != models.RoleOwner {
			return nil, badRequest("пользователь %s не является владельцем", email)
		}
		owner, err := s.owners.GetOwnerByUserID(ctx, user.ID)
		if errors.Is(err, repository.ErrNotFound) {
			owner = newOwnerFromInput(in, &user.ID)
			owner.Name = firstFilled(owner.Name, user.Name)
			owner.Phone = firstFilled(owner.Phone, user.Phone)
			if err := s.owners.CreateOwner(ctx, owner); err != nil {
				return nil, err
			}
			log.Info("Создан профиль владельца для пользователя", zap.Int64("user_id", user.ID))
			return owner, nil
		}
		if err != nil {
			return nil, err
		}
		if mergeOwner(owner, in) {
			if err := s.owners.UpdateOwner(ctx, owner); err != nil {
				return nil, err
			}
		}
		return owner, nil
	}

	password, err := utils.RandomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user = &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         models.RoleOwner,
	}
	owner := newOwnerFromInput(in, nil)
	if err := s.users.CreateOwnerUser(ctx, user, owner); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, conflict("email уже зарегистрирован")
		}
		return nil, err
	}
	log.Info("Создан пользователь-владелец админом", zap.Int64("user_id", user.ID), zap.Int64("owner_id", owner.ID))
	return owner, nil
}

func (s *AdminService) CreatePropertyWithOwner(ctx context.Context, in AdminPropertyInput) (*models.AdminProperty, error) {
	log := logger.WithCtx(ctx)
	log.Info("Создание объекта админом (service)")

	pi := in.Property
	if pi.Title == nil || strings.TrimSpace(*pi.Title) == "" {
		return nil, badRequest("название объекта обязательно")
	}
	if pi.Rent == nil && pi.Price == nil {
		return nil, badRequest("нужно указать аренду или цену")
	}
	if pi.Location == nil || (strings.TrimSpace(pi.Location.Address) == "" && strings.TrimSpace(pi.Location.City) == "") {
		return nil, badRequest("местоположение обязательно")
	}

	status := strings.TrimSpace(in.Status)
	switch status {
	case "":
		status = models.PropertyPending
	case models.PropertyPending, models.PropertyApproved, models.PropertyRejected:
	default:
		return nil, badRequest("недопустимый статус при создании: %s", status)
	}

	owner, err := s.resolveOwner(ctx, in.Owner)
	if err != nil {
		return nil, err
	}

	p := &models.Property{Status: status}
	applyPropertyInput(p, pi)
	if p.PropertyType == nil {
		pt := defaultPropertyType
		p.PropertyType = &pt
	}
	if owner != nil {
		p.OwnerID = &owner.ID
	}
	finalizeProperty(p)

	if err := s.properties.CreateProperty(ctx, p); err != nil {
		log.Error("Ошибка создания объекта", zap.Error(err))
		return nil, err
	}
	log.Info("Объект создан админом", zap.Int64("property_id", p.ID))
	return s.adminView(ctx, p)
}

func (s *AdminService) adminView(ctx context.Context, p *models.Property) (*models.AdminProperty, error) {
	owner, user, err := s.ownerOf(ctx, p)
	if err != nil {
		return nil, err
	}
	return &models.AdminProperty{Property: *p, Owner: owner, OwnerUser: user}, nil
}

// ownerOf возвращает профиль владельца объекта и его учётную запись, если они есть.
func (s *AdminService) ownerOf(ctx context.Context, p *models.Property) (*models.Owner, *models.User, error) {
	if p.OwnerID == nil {
		return nil, nil, nil
	}
	owner, err := s.owners.GetOwnerByID(ctx, *p.OwnerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if owner.UserID == nil {
		return owner, nil, nil
	}
	user, err := s.users.GetUserByID(ctx, *owner.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return owner, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return owner, user, nil
}

func (s *AdminService) ReviewProperty(ctx context.Context, id int64, status string) (*models.Property, error) {
	if status != models.PropertyApproved && status != models.PropertyRejected {
		return nil, badRequest("статус проверки должен быть approved или rejected")
	}
	p, err := s.properties.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "объект не найден")
	}
	return s.changeStatus(ctx, p, status)
}

func (s *AdminService) changeStatus(ctx context.Context, p *models.Property, status string) (*models.Property, error) {
	prev := p.Status
	if prev == status {
		return p, nil
	}
	if err := s.properties.SetStatus(ctx, p.ID, status); err != nil {
		return nil, orNotFound(err, "объект не найден")
	}
	p.Status = status
	logger.WithCtx(ctx).Info("Статус объекта изменён",
		zap.Int64("property_id", p.ID), zap.String("from", prev), zap.String("to", status))
	publish(ctx, s.events, events.PropertyStatusChanged, map[string]interface{}{
		"property_id": p.ID,
		"from":        prev,
		"status":      status,
	})
	return p, nil
}

// ownerDetails собирает данные владельца для проверки перед публикацией.
func ownerDetails(p *models.Property, owner *models.Owner, user *models.User) models.OwnerDetails {
	var userName, userEmail, userPhone string
	if user != nil {
		userName, userEmail, userPhone = user.Name, user.Email, user.Phone
	}
	d := p.OwnerDetails
	return models.OwnerDetails{
		Name:            firstFilled(userName, owner.Name),
		Email:           firstFilled(userEmail, owner.Email),
		Phone:           firstFilled(userPhone, owner.Phone, d.Phone),
		IDProofType:     firstFilled(owner.IDProofType, d.IDProofType),
		IDProofNumber:   firstFilled(owner.IDProofNumber, d.IDProofNumber),
		IDProofImageURL: firstFilled(owner.IDProofImageURL, d.IDProofImageURL),
	}
}

func hasOwnerDetails(d models.OwnerDetails) bool {
	return isFilled(d.Name) && isFilled(d.Email) && isFilled(d.Phone) &&
		isFilled(d.IDProofType) && isFilled(d.IDProofNumber) && isFilled(d.IDProofImageURL)
}

// checkPublishable — правила допуска объекта в каталог.
func (s *AdminService) checkPublishable(ctx context.Context, p *models.Property) error {
	owner, user, err := s.ownerOf(ctx, p)
	if err != nil {
		return err
	}
	if owner == nil {
		return badRequest("у объекта нет владельца")
	}
	details := ownerDetails(p, owner, user)

	if p.Status == models.PropertyApproved {
		if !hasOwnerDetails(details) {
			return badRequest("для первой публикации нужны полные данные владельца: имя, email, телефон и документ")
		}
		return nil
	}

	verified := owner.Verified || (user != nil && user.Verified)
	if !verified && p.Status != models.PropertyPublished && p.Status != models.PropertySold {
		return badRequest("объект должен быть одобрен перед публикацией")
	}
	if verified {
		if !isFilled(details.Email) || !isFilled(details.Phone) {
			return badRequest("у проверенного владельца должны быть email и телефон")
		}
		return nil
	}
	if !hasOwnerDetails(details) {
		return badRequest("данные владельца неполные")
	}
	return nil
}

func (s *AdminService) UpdatePropertyStatus(ctx context.Context, id int64, status string) (*models.Property, error) {
	switch status {
	case models.PropertyPublished, models.PropertySold, models.PropertyRejected:
	default:
		return nil, badRequest("недопустимый статус: %s", status)
	}

	p, err := s.properties.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "объект не найден")
	}
	if p.Status == status {
		return p, nil
	}

	switch status {
	case models.PropertySold:
		if p.Status != models.PropertyPublished {
			return nil, badRequest("продать можно только опубликованный объект")
		}
	case models.PropertyPublished:
		if err := s.checkPublishable(ctx, p); err != nil {
			logger.WithCtx(ctx).Warn("Публикация отклонена", zap.Int64("property_id", id), zap.Error(err))
			return nil, err
		}
	}
	return s.changeStatus(ctx, p, status)
}

func (s *AdminService) GetPropertyForAdmin(ctx context.Context, id int64) (*models.AdminProperty, error) {
	p, err := s.properties.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "объект не найден")
	}
	return s.adminView(ctx, p)
}

func (s *AdminService) UpdatePropertyForAdmin(ctx context.Context, id int64, in models.PropertyInput, ownerIn models.OwnerInput) (*models.AdminProperty, error) {
	p, err := s.properties.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "объект не найден")
	}

	applyPropertyInput(p, in)
	if strings.TrimSpace(p.Title) == "" {
		return nil, badRequest("название объекта обязательно")
	}
	finalizeProperty(p)

	if !ownerIn.IsEmpty() {
		if p.OwnerID == nil {
			owner, err := s.resolveOwner(ctx, ownerIn)
			if err != nil {
				return nil, err
			}
			p.OwnerID = &owner.ID
		} else {
			owner, err := s.owners.GetOwnerByID(ctx, *p.OwnerID)
			if err != nil {
				return nil, orNotFound(err, "владелец не найден")
			}
			if mergeOwner(owner, ownerIn) {
				if err := s.owners.UpdateOwner(ctx, owner); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := s.properties.UpdateProperty(ctx, p); err != nil {
		return nil, orNotFound(err, "объект не найден")
	}
	logger.WithCtx(ctx).Info("Объект обновлён админом", zap.Int64("property_id", p.ID))
	return s.adminView(ctx, p)
}

func (s *AdminService) ListProperties(ctx context.Context, f models.AdminPropertyFilter) ([]models.Property, int, error) {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	switch f.SortBy {
	case "createdAt", "updatedAt", "rent", "title":
	default:
		f.SortBy = "createdAt"
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return nil, 0, badRequest("некорректный диапазон дат")
	}
	return s.properties.ListAdmin(ctx, f)
}

func (s *AdminService) StatusCounts(ctx context.Context) (map[string]int, error) {
	return s.properties.CountByStatus(ctx)
}

func (s *AdminService) VerifyOwner(ctx context.Context, ownerID int64, verified bool) (*models.Owner, error) {
	if err := s.owners.SetVerified(ctx, ownerID, verified); err != nil {
		return nil, orNotFound(err, "владелец не найден")
	}
	owner, err := s.owners.GetOwnerByID(ctx, ownerID)
	if err != nil {
		return nil, orNotFound(err, "владелец не найден")
	}
	logger.WithCtx(ctx).Info("Статус проверки владельца изменён", zap.Int64("owner_id", ownerID), zap.Bool("verified", verified))
	return owner, nil
}

func (s *AdminService) ManageSiteVisit(ctx context.Context, bookingID int64, status string) (*models.Booking, error) {
	switch status {
	case models.BookingApproved, models.BookingRejected, models.BookingCompleted:
	default:
		return nil, badRequest("недопустимый статус визита: %s", status)
	}

	b, err := s.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, orNotFound(err, "заявка не найдена")
	}
	if b.Status == status {
		return b, nil
	}
	if b.Status == models.BookingCompleted || b.Status == models.BookingRejected {
		return nil, badRequest("заявка уже закрыта")
	}
	if status == models.BookingCompleted && b.Status != models.BookingApproved {
		return nil, badRequest("завершить можно только одобренный визит")
	}

	if err := s.bookings.SetBookingStatus(ctx, bookingID, status); err != nil {
		return nil, orNotFound(err, "заявка не найдена")
	}
	b.Status = status
	logger.WithCtx(ctx).Info("Статус визита изменён", zap.Int64("booking_id", bookingID), zap.String("status", status))
	return b, nil
}

func (s *AdminService) ListUsers(ctx context.Context, role string, page, limit int) ([]models.User, int, error) {
	switch role {
	case "", models.RoleUser, models.RoleOwner, models.RoleAdmin:
	default:
		return nil, 0, badRequest("неизвестная роль: %s", role)
	}
	page, limit = normalizePage(page, limit)
	return s.users.ListUsers(ctx, role, page, limit)
}

func (s *AdminService) ListUsersWithSubscriptions(ctx context.Context, page, limit int) ([]models.UserWithSubscription, int, error) {
	page, limit = normalizePage(page, limit)
	return s.subscriptions.ListUsersWithSubscriptions(ctx, page, limit)
}

func (s *AdminService) UserHistory(ctx context.Context, userID int64) (*models.UserHistory, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, orNotFound(err, "пользователь не найден")
	}
	subs, err := s.subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views, err := s.views.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserHistory{User: user, Subscriptions: subs, Views: views, Payments: payments}, nil
}

func (s *AdminService) ListBookings(ctx context.Context, status string, page, limit int) ([]models.Booking, int, *models.BookingBreakdown, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.bookings.ListBookings(ctx, status, page, limit)
	if err != nil {
		return nil, 0, nil, err
	}
	breakdown, err := s.bookings.Breakdown(ctx)
	if err != nil {
		return nil, 0, nil, err
	}
	return items, total, breakdown, nil
}

func (s *AdminService) ListPayments(ctx context.Context, status string, page, limit int) ([]models.Payment, int, error) {
	switch status {
	case "", models.PaymentPending, models.PaymentSuccess, models.PaymentFailed, models.PaymentCancelled:
	default:
		return nil, 0, badRequest("неизвестный статус платежа: %s", status)
	}
	page, limit = normalizePage(page, limit)
	return s.payments.ListPayments(ctx, status, page, limit)
}

func (s *AdminService) Stats(ctx context.Context) (*models.SystemStats, error) {
	return s.users.GetSystemStats(ctx)
}

// GrantSubscription активирует тариф без оплаты; прежняя активная подписка отменяется.
func (s *AdminService) GrantSubscription(ctx context.Context, userID, planID int64) (*models.UserSubscription, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, orNotFound(err, "пользователь не найден")
	}
	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, orNotFound(err, "тариф не найден")
	}
	if !plan.IsActive {
		return nil, badRequest("тариф недоступен")
	}

	sub, err := s.subscriptions.GrantActive(ctx, userID, plan, s.now())
	if err != nil {
		return nil, err
	}
	sub.Plan = plan
	logger.WithCtx(ctx).Info("Подписка выдана админом", zap.Int64("user_id", userID), zap.Int64("subscription_id", sub.ID))
	publish(ctx, s.events, events.SubscriptionActivated, map[string]interface{}{
		"user_id":         userID,
		"subscription_id": sub.ID,
		"plan_id":         plan.ID,
		"granted":         true,
	})
	return sub, nil
}
