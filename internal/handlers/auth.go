package handlers

import (
	"net/http"

	"truowners/internal/logger"
	"truowners/internal/middleware"
	"truowners/internal/services"
	"truowners/internal/utils/helpers"

	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=user owner"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type adminLoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	AccessKey string `json:"access_key" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Register godoc
// @Summary Регистрация пользователя или владельца
// @Tags auth
// @Accept json
// @Produce json
// @Param input body registerRequest true "Данные регистрации"
// @Success 201 {object} helpers.Response{data=models.User}
// @Failure 400 {object} helpers.Response
// @Failure 409 {object} helpers.Response "Email уже зарегистрирован"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	logger.WithCtx(r.Context()).Info("Регистрация пользователя", zap.String("email", req.Email), zap.String("role", req.Role))

	user, err := h.authService.RegisterUser(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, user)
}

// Login godoc
// @Summary Вход пользователя или владельца
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginRequest true "Данные для входа"
// @Success 200 {object} helpers.Response{data=services.TokenPair}
// @Failure 401 {object} helpers.Response "Неверный email или пароль"
// @Failure 403 {object} helpers.Response "Администратор входит с ключом доступа"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := h.authService.LoginUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, pair)
}

// AdminLogin godoc
// @Summary Вход администратора
// @Tags auth
// @Accept json
// @Produce json
// @Param input body adminLoginRequest true "Email, пароль и ключ доступа"
// @Success 200 {object} helpers.Response{data=services.TokenPair}
// @Failure 401 {object} helpers.Response
// @Failure 403 {object} helpers.Response
// @Router /api/auth/admin/login [post]
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := h.authService.AdminLogin(r.Context(), req.Email, req.Password, req.AccessKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, pair)
}

// Refresh godoc
// @Summary Обновление access-токена
// @Tags auth
// @Accept json
// @Produce json
// @Param input body refreshRequest true "Refresh-токен"
// @Success 200 {object} helpers.Response{data=map[string]string}
// @Failure 401 {object} helpers.Response "Недействительный refresh-токен"
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	access, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]string{"access_token": access})
}

// Logout godoc
// @Summary Выход
// @Description Удаляет refresh-токен и блокирует текущий access-токен до истечения срока
// @Tags auth
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body logoutRequest false "Refresh-токен"
// @Success 200 {object} helpers.Response
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.Logout(r.Context(), currentUserID(r), req.RefreshToken, middleware.AccessToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Вы вышли из системы"})
}

// Profile godoc
// @Summary Профиль текущего пользователя
// @Tags profile
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} helpers.Response{data=models.UserProfileResponse}
// @Failure 401 {object} helpers.Response
// @Router /api/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authService.Profile(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, profile)
}

// ChangePassword godoc
// @Summary Смена пароля
// @Tags profile
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body changePasswordRequest true "Старый и новый пароль"
// @Success 200 {object} helpers.Response
// @Failure 400 {object} helpers.Response
// @Router /api/profile/password [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.ChangePassword(r.Context(), currentUserID(r), req.OldPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Пароль изменён"})
}
