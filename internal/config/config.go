package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	JWTSecret       string
	AccessTokenTTL  string
	RefreshTokenTTL string

	Log      string
	LogLevel string
	Env      string // dev|prod

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL    string
	EventsExchange string

	PhonePeClientID      string
	PhonePeClientSecret  string
	PhonePeClientVersion string
	PhonePeEnv           string // sandbox|production
	PhonePeRedirectURL   string

	GSTPercent            int
	ReconcileAfterMinutes int
	ContactRevealFallback string
	SwaggerHost           string
}

// LoadConfig загружает .env, читает переменные окружения и выставляет дефолты.
// Ничего не логирует — чтобы не создавать зависимость от logger.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}
	defInt := func(v string, d int) (int, error) {
		v = strings.TrimSpace(v)
		if v == "" {
			return d, nil
		}
		return strconv.Atoi(v)
	}

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "8080"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    os.Getenv("DB_NAME"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "disable"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  def(os.Getenv("ACCESS_TOKEN_EXPIRY"), "15m"),
		RefreshTokenTTL: def(os.Getenv("REFRESH_TOKEN_EXPIRY"), "720h"),

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		EventsExchange: def(os.Getenv("EVENTS_EXCHANGE"), "truowners.events"),

		PhonePeClientID:      os.Getenv("PHONEPE_CLIENT_ID"),
		PhonePeClientSecret:  os.Getenv("PHONEPE_CLIENT_SECRET"),
		PhonePeClientVersion: def(os.Getenv("PHONEPE_CLIENT_VERSION"), "1"),
		PhonePeEnv:           strings.ToLower(def(os.Getenv("PHONEPE_ENV"), "sandbox")),
		PhonePeRedirectURL:   def(os.Getenv("PHONEPE_REDIRECT_URL"), "http://localhost:3000/payment/callback"),

		ContactRevealFallback: def(os.Getenv("CONTACT_FALLBACK"), "N/A"),
		SwaggerHost:           def(os.Getenv("SWAGGER_HOST"), "localhost:8080"),
	}

	var err error
	if cfg.RedisDB, err = defInt(os.Getenv("REDIS_DB"), 0); err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	if cfg.GSTPercent, err = defInt(os.Getenv("GST_PERCENT"), 18); err != nil {
		return nil, fmt.Errorf("GST_PERCENT: %w", err)
	}
	if cfg.ReconcileAfterMinutes, err = defInt(os.Getenv("PAYMENT_RECONCILE_AFTER_MIN"), 10); err != nil {
		return nil, fmt.Errorf("PAYMENT_RECONCILE_AFTER_MIN: %w", err)
	}

	return cfg, nil
}

// Validate возвращает предупреждения и фатальную ошибку (если критично).
func (c *Config) Validate() (warnings []string, err error) {
	// Критичные: БД
	if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
		return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		if c.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is empty")
		}
		warnings = append(warnings, "JWT_SECRET is empty")
	}

	if c.GSTPercent < 0 || c.GSTPercent > 100 {
		return nil, fmt.Errorf("GST_PERCENT must be within 0..100, got %d", c.GSTPercent)
	}

	// PhonePe — предупреждение, каталог и просмотр работают и без оплат
	if c.PhonePeClientID == "" || c.PhonePeClientSecret == "" {
		warnings = append(warnings, "PhonePe credentials are not set")
	}

	if c.RedisAddr == "" {
		warnings = append(warnings, "REDIS_ADDR is empty, token blocklist and plan cache are in-process only")
	}
	if c.RabbitMQURL == "" {
		warnings = append(warnings, "RABBITMQ_URL is empty, domain events are dropped")
	}

	return warnings, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// GetDSN — полная DSN (с паролем)
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe — DSN без пароля (для логов)
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}
