package database

import (
	"fmt"
	"os"
	"time"

	"github.com/acadarchive/archive-api/internal/models"
	pkgLogger "github.com/acadarchive/archive-api/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL string) (*gorm.DB, error) {
	logLevel := logger.Silent
	if os.Getenv("ENVIRONMENT") != "production" {
		logLevel = logger.Info
	}

	gormLogger := pkgLogger.NewGormLogger(
		logLevel,
		200*time.Millisecond,
	)

	// SkipDefaultTransaction: every mutating operation opens its own explicit
	// transaction in the service layer, so the per-statement wrapping is waste.
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true, // surface FK violations as gorm.ErrForeignKeyViolated
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for all models. Reference and account
// tables go first so the FK constraints on extension and log tables resolve.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.Program{},
		&models.Department{},
		&models.Abstract{},
		&models.ThesisDetail{},
		&models.DissertationDetail{},
		&models.FileDetail{},
		&models.LogEntry{},
		&models.LogAbstract{},
		&models.LogProgram{},
		&models.LogDepartment{},
		&models.LogAccount{},
	)
}
