package app

import (
	"context"
	"fmt"
	"time"

	"truowners/internal/cache"
	"truowners/internal/config"
	"truowners/internal/contracts"
	"truowners/internal/db"
	"truowners/internal/events"
	"truowners/internal/handlers"
	"truowners/internal/logger"
	"truowners/internal/repository"
	"truowners/internal/routes"
	"truowners/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	planCacheTTL      = 10 * time.Minute
	expireInterval    = time.Hour
	reconcileInterval = 5 * time.Minute
)

// InitApp собирает зависимости и роутер. cleanup останавливает фоновые задачи
// и закрывает соединения.
func InitApp(cfg *config.Config) (*mux.Router, func(), error) {
	accessTTL, err := time.ParseDuration(cfg.AccessTokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("ACCESS_TOKEN_EXPIRY: %w", err)
	}
	refreshTTL, err := time.ParseDuration(cfg.RefreshTokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("REFRESH_TOKEN_EXPIRY: %w", err)
	}

	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, nil, err
	}

	registry, err := contracts.Load()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	store, closeStore := cache.NewStore(cfg)
	blocklist := cache.NewTokenBlocklist(store)
	planCache := cache.NewPlanCache(store, planCacheTTL)
	publisher := events.New(cfg, registry)

	// Репозитории
	userRepo := repository.NewUserRepository(conn)
	ownerRepo := repository.NewOwnerRepository(conn)
	propertyRepo := repository.NewPropertyRepository(conn)
	bookingRepo := repository.NewBookingRepository(conn)
	planRepo := repository.NewPlanRepository(conn)
	subRepo := repository.NewSubscriptionRepository(conn)
	paymentRepo := repository.NewPaymentRepository(conn)
	viewRepo := repository.NewPropertyViewRepository(conn)

	// Сервисы
	authService := services.NewAuthService(userRepo, ownerRepo, subRepo, blocklist, services.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	})
	ownerService := services.NewOwnerService(ownerRepo, propertyRepo, userRepo, publisher)
	catalogService := services.NewCatalogService(propertyRepo)
	bookingService := services.NewBookingService(bookingRepo, propertyRepo, publisher)
	subscriptionService := services.NewSubscriptionService(planRepo, subRepo, planCache, publisher)

	phonePe := services.NewPhonePeService(
		cfg.PhonePeClientID,
		cfg.PhonePeClientSecret,
		cfg.PhonePeClientVersion,
		cfg.PhonePeEnv,
		cfg.PhonePeRedirectURL,
	)
	paymentService := services.NewPaymentService(paymentRepo, planRepo, subRepo, phonePe, registry, publisher, services.PaymentConfig{
		GSTPercent:     cfg.GSTPercent,
		ReconcileAfter: time.Duration(cfg.ReconcileAfterMinutes) * time.Minute,
		Production:     cfg.PhonePeEnv == "production" || cfg.PhonePeEnv == "prod",
	})
	viewService := services.NewPropertyViewService(services.PropertyViewDeps{
		Views:         viewRepo,
		Subscriptions: subRepo,
		Properties:    propertyRepo,
		Owners:        ownerRepo,
		Users:         userRepo,
		Events:        publisher,
		Fallback:      cfg.ContactRevealFallback,
	})
	adminService := services.NewAdminService(services.AdminDeps{
		Users:         userRepo,
		Owners:        ownerRepo,
		Properties:    propertyRepo,
		Bookings:      bookingRepo,
		Plans:         planRepo,
		Subscriptions: subRepo,
		Payments:      paymentRepo,
		Views:         viewRepo,
		Events:        publisher,
	})

	// Хендлеры
	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Owner:        handlers.NewOwnerHandler(ownerService),
		Catalog:      handlers.NewCatalogHandler(catalogService),
		Admin:        handlers.NewAdminHandler(adminService),
		Booking:      handlers.NewBookingHandler(bookingService),
		Subscription: handlers.NewSubscriptionHandler(subscriptionService, paymentService),
		Payment:      handlers.NewPaymentHandler(paymentService),
		PropertyView: handlers.NewPropertyViewHandler(viewService),
		Logs:         handlers.NewAdminLogsHandler(),
	}

	_, _ = subscriptionService.ExpireDue(context.Background())

	jobsCtx, stopJobs := context.WithCancel(context.Background())
	StartSubscriptionCleaner(jobsCtx, subscriptionService)
	StartPaymentReconciler(jobsCtx, paymentService)

	router := mux.NewRouter()
	routes.InitRoutes(router, h, cfg.JWTSecret, blocklist)

	cleanup := func() {
		stopJobs()
		if err := publisher.Close(); err != nil {
			logger.Log.Warn("Ошибка закрытия RabbitMQ", zap.Error(err))
		}
		closeStore()
		conn.Close()
	}
	return router, cleanup, nil
}

// StartSubscriptionCleaner раз в час переводит просроченные подписки в expired.
func StartSubscriptionCleaner(ctx context.Context, svc *services.SubscriptionService) {
	t := time.NewTicker(expireInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = svc.ExpireDue(ctx)
			}
		}
	}()
}

// StartPaymentReconciler перепроверяет у шлюза платежи, застрявшие в pending.
func StartPaymentReconciler(ctx context.Context, svc *services.PaymentService) {
	t := time.NewTicker(reconcileInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := svc.ReconcilePending(ctx); err != nil {
					logger.Log.Error("Ошибка сверки платежей", zap.Error(err))
				}
			}
		}
	}()
}
