// Package database opens gorm connections to PostgreSQL/TimescaleDB.
package database

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/volcanomonitor/internal/log"
)

// CreateConnection opens a gorm connection that logs through zap.
func CreateConnection(connectionString string) (*gorm.DB, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}

	return db, nil
}
