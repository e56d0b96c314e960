// Package database opens GORM connections with the service's zap logger
// wired in.
package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/remoteweather-lightning/internal/log"
	"go.uber.org/zap"
)

// NewGormLogger bridges GORM's logger to zap
func NewGormLogger() logger.Interface {
	return logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// CreateConnection opens a PostgreSQL/TimescaleDB connection with the
// standard GORM configuration
func CreateConnection(connectionString string) (*gorm.DB, error) {
	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: NewGormLogger()})
	if err != nil {
		log.Warnf("warning: unable to create a TimescaleDB connection: %v", err)
		return nil, err
	}

	return db, nil
}
