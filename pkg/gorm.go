package pkg

import (
	"fmt"

	"github.com/quizforge/scoring-service/internal/config"
	"github.com/quizforge/scoring-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// Surfaces unique-index violations as gorm.ErrDuplicatedKey; the
		// duplicate-submission guard depends on it.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the service's tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.QuizSettings{},
		&models.QuizSection{},
		&models.Question{},
		&models.AttemptSession{},
		&models.ViolationEvent{},
		&models.Result{},
	)
}
