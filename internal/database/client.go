// Package database opens GORM connections to PostgreSQL.
package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreateConnection creates a database connection with the standard GORM
// configuration, logging through zapLogger
func CreateConnection(connectionString string, zapLogger *zap.Logger) (*gorm.DB, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}

	dbLogger := logger.New(
		zap.NewStdLog(zapLogger),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to create a PostgreSQL connection: %w", err)
	}

	return db, nil
}
