package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"truowners/internal/cache"
	"truowners/internal/config"
	"truowners/internal/contracts"
	"truowners/internal/db"
	"truowners/internal/events"
	"truowners/internal/logger"
	"truowners/internal/migrate"
	"truowners/internal/repository"
	"truowners/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// env — общее окружение команд: конфиг, логгер и пул Postgres.
type env struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

func loadEnv(needDB bool) (*env, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger.InitLogger(cfg)
	if _, err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	e := &env{cfg: cfg}
	if !needDB {
		return e, func() { _ = logger.Log.Sync() }, nil
	}
	pool, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("подключение к БД: %w", err)
	}
	e.pool = pool
	return e, func() {
		pool.Close()
		_ = logger.Log.Sync()
	}, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Создать или обновить таблицы",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := loadEnv(false)
			if err != nil {
				return err
			}
			defer done()

			gdb, err := migrate.Open(e.cfg.GetDSN())
			if err != nil {
				return err
			}
			defer migrate.Close(gdb)
			if err := migrate.Run(gdb); err != nil {
				return err
			}
			fmt.Println("Миграция завершена")
			return nil
		},
	}
}

func seedPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-plans",
		Short: "Создать или обновить стандартные тарифы",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer done()

			store, closeStore := cache.NewStore(e.cfg)
			defer closeStore()
			svc := services.NewSubscriptionService(
				repository.NewPlanRepository(e.pool),
				repository.NewSubscriptionRepository(e.pool),
				cache.NewPlanCache(store, 10*time.Minute),
				events.NoopPublisher{},
			)
			plans, err := svc.SeedPlans(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range plans {
				fmt.Printf("%-14s %8.2f  контактов: %-3d дней: %d\n", p.Name, p.Price, p.ContactLimit, p.ValidityDays)
			}
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name, email, password, accessKey string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Создать администратора или сбросить его пароль и ключ",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer done()

			users := repository.NewUserRepository(e.pool)
			svc := services.NewAuthService(users, repository.NewOwnerRepository(e.pool),
				repository.NewSubscriptionRepository(e.pool), nil, services.AuthConfig{JWTSecret: e.cfg.JWTSecret})
			user, created, err := svc.EnsureAdmin(cmd.Context(), name, email, password, accessKey)
			if err != nil {
				return err
			}
			if created {
				fmt.Printf("Администратор создан: id=%d email=%s\n", user.ID, user.Email)
			} else {
				fmt.Printf("Администратор обновлён: id=%d email=%s\n", user.ID, user.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Admin", "имя")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "пароль")
	cmd.Flags().StringVar(&accessKey, "access-key", "", "ключ доступа для входа в админку")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("access-key")
	return cmd
}

func statusCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status-counts",
		Short: "Количество объектов по статусам",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer done()

			counts, err := repository.NewPropertyRepository(e.pool).CountByStatus(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%-10s %d\n", k, counts[k])
			}
			return nil
		},
	}
}

func expireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Перевести просроченные подписки в expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer done()

			svc := services.NewSubscriptionService(
				repository.NewPlanRepository(e.pool),
				repository.NewSubscriptionRepository(e.pool),
				cache.NewPlanCache(cache.NewMemoryStore(), time.Minute),
				events.NoopPublisher{},
			)
			n, err := svc.ExpireDue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Истекло подписок: %d\n", n)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	var after time.Duration
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Перепроверить зависшие платежи у PhonePe",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer done()

			registry, err := contracts.Load()
			if err != nil {
				return err
			}
			publisher := events.New(e.cfg, registry)
			defer publisher.Close()

			gateway := services.NewPhonePeService(e.cfg.PhonePeClientID, e.cfg.PhonePeClientSecret,
				e.cfg.PhonePeClientVersion, e.cfg.PhonePeEnv, e.cfg.PhonePeRedirectURL)
			svc := services.NewPaymentService(
				repository.NewPaymentRepository(e.pool),
				repository.NewPlanRepository(e.pool),
				repository.NewSubscriptionRepository(e.pool),
				gateway, registry, publisher,
				services.PaymentConfig{GSTPercent: e.cfg.GSTPercent, ReconcileAfter: after},
			)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			n, err := svc.ReconcilePending(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Закрыто платежей: %d\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&after, "older-than", 10*time.Minute, "проверять pending старше указанного времени")
	return cmd
}
