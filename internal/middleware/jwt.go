package middleware

import (
	"context"
	"net/http"
	"strings"

	"truowners/internal/logger"
	"truowners/internal/reqctx"
	"truowners/internal/utils"
	helpers "truowners/internal/utils/helpers"

	"go.uber.org/zap"
)

// TokenBlocklist — отозванные при logout access-токены.
type TokenBlocklist interface {
	IsBlocked(ctx context.Context, token string) (bool, error)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

func JWTAuth(secret string, blocklist TokenBlocklist) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			tokenString, ok := bearerToken(r)
			if !ok {
				logger.WithCtx(r.Context()).Warn("JWTAuth: отсутствует access token")
				helpers.Error(w, http.StatusUnauthorized, "Отсутствует access token")
				return
			}

			claims, err := utils.ParseToken(secret, tokenString)
			if err != nil || claims.TokenType != utils.TokenTypeAccess {
				logger.WithCtx(r.Context()).Warn("JWTAuth: неверный или просроченный токен", zap.Error(err))
				helpers.Error(w, http.StatusUnauthorized, "Неверный или просроченный токен")
				return
			}

			if blocklist != nil {
				if blocked, err := blocklist.IsBlocked(r.Context(), tokenString); err != nil {
					logger.WithCtx(r.Context()).Error("JWTAuth: ошибка проверки блоклиста", zap.Error(err))
				} else if blocked {
					logger.WithCtx(r.Context()).Warn("JWTAuth: токен найден в блоклисте")
					helpers.Error(w, http.StatusUnauthorized, "Неверный или просроченный токен")
					return
				}
			}

			if h := authHolderFrom(r.Context()); h != nil {
				h.userID, h.role = claims.UserID, claims.Role
			}

			ctx := reqctx.WithUserID(r.Context(), claims.UserID)
			ctx = reqctx.WithRole(ctx, claims.Role)

			logger.WithCtx(ctx).Debug("JWTAuth: токен валиден", zap.String("role", claims.Role))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessToken возвращает bearer-токен текущего запроса (нужен для logout).
func AccessToken(r *http.Request) string {
	tok, _ := bearerToken(r)
	return tok
}
