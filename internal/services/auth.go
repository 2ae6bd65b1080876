package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"truowners/internal/logger"
	"truowners/internal/models"
	"truowners/internal/repository"
	"truowners/internal/utils"

	"go.uber.org/zap"
)

type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthService struct {
	repo      UserRepo
	owners    OwnerRepo
	subs      SubscriptionRepo
	blocklist TokenBlocklist
	cfg       AuthConfig
	now       func() time.Time
}

func NewAuthService(repo UserRepo, owners OwnerRepo, subs SubscriptionRepo, blocklist TokenBlocklist, cfg AuthConfig) *AuthService {
	return &AuthService{
		repo:      repo,
		owners:    owners,
		subs:      subs,
		blocklist: blocklist,
		cfg:       cfg,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
}

type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	logger.Log.Info("Регистрация пользователя (service)", zap.String("email", email), zap.String("role", in.Role))

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleOwner {
		return nil, badRequest("недопустимая роль: %s", role)
	}

	if exists, err := s.repo.IsEmailTaken(ctx, email); err != nil {
		logger.Log.Error("Ошибка проверки email", zap.Error(err))
		return nil, err
	} else if exists {
		return nil, conflict("адрес электронной почты уже зарегистрирован")
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		logger.Log.Error("Ошибка хеширования пароля", zap.Error(err))
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hashed,
		Role:         role,
	}
	if role == models.RoleOwner {
		owner := &models.Owner{
			Name:            user.Name,
			Email:           user.Email,
			Phone:           user.Phone,
			IDProofType:     models.DetailPending,
			IDProofNumber:   models.DetailPending,
			IDProofImageURL: models.DetailPending,
		}
		err = s.repo.CreateOwnerUser(ctx, user, owner)
	} else {
		err = s.repo.CreateUser(ctx, user)
	}
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, conflict("адрес электронной почты уже зарегистрирован")
		}
		logger.Log.Error("Ошибка создания пользователя", zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Пользователь зарегистрирован (service)", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := utils.GenerateToken(s.cfg.JWTSecret, user.ID, user.Role, s.cfg.AccessTTL, utils.TokenTypeAccess)
	if err != nil {
		logger.Log.Error("Ошибка генерации access-токена", zap.Error(err))
		return nil, err
	}
	refreshToken, err := utils.GenerateToken(s.cfg.JWTSecret, user.ID, user.Role, s.cfg.RefreshTTL, utils.TokenTypeRefresh)
	if err != nil {
		logger.Log.Error("Ошибка генерации refresh-токена", zap.Error(err))
		return nil, err
	}
	if err := s.repo.SaveRefreshToken(ctx, user.ID, refreshToken); err != nil {
		logger.Log.Error("Ошибка сохранения refresh-токена", zap.Error(err))
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}

func (s *AuthService) checkCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		logger.Log.Warn("Пользователь не найден (service)", zap.String("email", email))
		return nil, newErr(ErrUnauthorized, "неверный email или пароль")
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		logger.Log.Warn("Неверный пароль (service)", zap.Int64("user_id", user.ID))
		return nil, newErr(ErrUnauthorized, "неверный email или пароль")
	}
	return user, nil
}

// LoginUser — вход пользователей и владельцев. Админы входят через AdminLogin.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*TokenPair, error) {
	logger.Log.Info("Попытка входа (service)", zap.String("email", email))
	user, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return nil, forbidden("для администратора используйте вход с ключом доступа")
	}
	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Вход выполнен (service)", zap.Int64("user_id", user.ID))
	return pair, nil
}

func (s *AuthService) AdminLogin(ctx context.Context, email, password, accessKey string) (*TokenPair, error) {
	logger.Log.Info("Попытка входа администратора (service)", zap.String("email", email))
	user, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAdmin {
		return nil, forbidden("доступ только для администраторов")
	}
	if !utils.CheckPasswordHash(accessKey, user.AccessKeyHash) {
		logger.Log.Warn("Неверный ключ доступа администратора", zap.Int64("user_id", user.ID))
		return nil, newErr(ErrUnauthorized, "неверный ключ доступа")
	}
	return s.issueTokens(ctx, user)
}

// Refresh выдаёт новый access-токен по действующему refresh-токену.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := utils.ParseToken(s.cfg.JWTSecret, refreshToken)
	if err != nil || claims.TokenType != utils.TokenTypeRefresh {
		return "", newErr(ErrUnauthorized, "недействительный refresh-токен")
	}
	ok, err := s.repo.IsRefreshTokenValid(ctx, claims.UserID, refreshToken)
	if err != nil {
		return "", err
	}
	if !ok {
		logger.Log.Warn("Refresh-токен отозван", zap.Int64("user_id", claims.UserID))
		return "", newErr(ErrUnauthorized, "refresh-токен отозван")
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return "", orNotFound(err, "пользователь не найден")
	}
	return utils.GenerateToken(s.cfg.JWTSecret, user.ID, user.Role, s.cfg.AccessTTL, utils.TokenTypeAccess)
}

// Logout удаляет refresh-токен и блокирует access-токен до истечения срока.
func (s *AuthService) Logout(ctx context.Context, userID int64, refreshToken, accessToken string) error {
	logger.Log.Info("Выход пользователя (service)", zap.Int64("user_id", userID))
	if refreshToken != "" {
		if err := s.repo.DeleteRefreshToken(ctx, userID, refreshToken); err != nil {
			return err
		}
	}
	if accessToken == "" || s.blocklist == nil {
		return nil
	}
	claims, err := utils.ParseToken(s.cfg.JWTSecret, accessToken)
	if err != nil {
		return nil
	}
	return s.blocklist.Block(ctx, accessToken, claims.ExpiresAt.Sub(s.now()))
}

func (s *AuthService) Profile(ctx context.Context, userID int64) (*models.UserProfileResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, orNotFound(err, "пользователь не найден")
	}
	resp := &models.UserProfileResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt,
	}
	if user.Role == models.RoleOwner {
		if owner, err := s.owners.GetOwnerByUserID(ctx, userID); err == nil {
			resp.OwnerID = &owner.ID
		}
	}
	sub, err := currentSubscription(ctx, s.subs, userID, s.now())
	if err != nil {
		return nil, err
	}
	if sub != nil {
		resp.Subscription = sub.Summary()
	}
	return resp, nil
}

// ChangePassword меняет пароль по старому паролю.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	logger.Log.Info("Смена пароля (service)", zap.Int64("user_id", userID))

	if len(newPassword) < 8 {
		return badRequest("пароль должен быть не короче 8 символов")
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return orNotFound(err, "пользователь не найден")
	}
	if !utils.CheckPasswordHash(oldPassword, user.PasswordHash) {
		logger.Log.Warn("Старый пароль не совпадает", zap.Int64("user_id", userID))
		return badRequest("старый пароль указан неверно")
	}
	newHash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdateCredentials(ctx, userID, newHash, user.AccessKeyHash, user.Role)
}

// EnsureAdmin создаёт администратора или обновляет пароль и ключ существующего пользователя.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password, accessKey string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" || accessKey == "" {
		return nil, false, badRequest("email, пароль и ключ доступа обязательны")
	}
	pwHash, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	keyHash, err := utils.HashPassword(accessKey)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.repo.UpdateCredentials(ctx, existing.ID, pwHash, keyHash, models.RoleAdmin); err != nil {
			return nil, false, err
		}
		existing.Role = models.RoleAdmin
		logger.Log.Info("Администратор обновлён", zap.Int64("user_id", existing.ID))
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, err
	}

	user := &models.User{
		Name:          name,
		Email:         email,
		PasswordHash:  pwHash,
		AccessKeyHash: keyHash,
		Role:          models.RoleAdmin,
		Verified:      true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	logger.Log.Info("Администратор создан", zap.Int64("user_id", user.ID))
	return user, true, nil
}
