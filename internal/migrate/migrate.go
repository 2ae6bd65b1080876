package migrate

import (
	"fmt"

	"truowners/internal/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open открывает gorm-соединение с Postgres для миграций.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return db, nil
}

// Run создаёт и обновляет таблицы и индексы.
func Run(db *gorm.DB) error {
	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return fmt.Errorf("parse %T: %w", m, err)
		}
		logger.Log.Info("Миграция таблицы", zap.String("table", stmt.Schema.Table))
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %s: %w", stmt.Schema.Table, err)
		}
	}
	return nil
}

// Close закрывает пул под gorm.
func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
