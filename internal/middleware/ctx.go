package middleware

import "context"

type ctxKey string

// Флаг ставится админам, чтобы пропускать ролевые проверки.
const contextSkipGuards ctxKey = "skip_guards"

func WithSkipGuards(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextSkipGuards, true)
}

func SkipGuards(ctx context.Context) bool {
	b, _ := ctx.Value(contextSkipGuards).(bool)
	return b
}

// authHolder заполняется JWTAuth, чтобы внешний Logging видел пользователя.
type authHolder struct {
	userID int64
	role   string
}

const contextAuthHolder ctxKey = "auth_holder"

func withAuthHolder(ctx context.Context, h *authHolder) context.Context {
	return context.WithValue(ctx, contextAuthHolder, h)
}

func authHolderFrom(ctx context.Context) *authHolder {
	h, _ := ctx.Value(contextAuthHolder).(*authHolder)
	return h
}
