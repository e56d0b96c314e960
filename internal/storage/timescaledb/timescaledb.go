// Package timescaledb archives individual strikes in a TimescaleDB hypertable
package timescaledb

import (
	"context"
	"fmt"
	"regexp"

	"github.com/chrissnell/remoteweather-lightning/internal/database"
	"github.com/chrissnell/remoteweather-lightning/internal/log"
	"github.com/chrissnell/remoteweather-lightning/internal/storage"
	"gorm.io/gorm"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Storage holds the connection for a TimescaleDB strike archive
type Storage struct {
	TimescaleDBConn *gorm.DB
	table           string
}

var (
	_ storage.Recorder = (*Storage)(nil)
	_ storage.Querier  = (*Storage)(nil)
)

// New connects to TimescaleDB and prepares the strike table
func New(ctx context.Context, connectionString, table string) (*Storage, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("timescaledb: invalid table name %q (lower case identifiers only)", table)
	}

	db, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}

	t, err := NewWithDB(ctx, db, table)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return t, nil
}

// NewWithDB prepares the strike table on an existing connection
func NewWithDB(ctx context.Context, db *gorm.DB, table string) (*Storage, error) {
	t := &Storage{TimescaleDBConn: db, table: table}

	log.Infof("creating strike table %s...", table)
	if err := db.WithContext(ctx).Exec(fmt.Sprintf(createTableSQL, table)).Error; err != nil {
		return nil, fmt.Errorf("could not create table %s: %w", table, err)
	}

	if err := t.checkSchema(ctx); err != nil {
		return nil, err
	}

	log.Info("creating TimescaleDB extension...")
	if err := db.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		return nil, fmt.Errorf("could not create TimescaleDB extension: %w", err)
	}

	log.Info("creating hypertable...")
	if err := db.WithContext(ctx).Exec(fmt.Sprintf(createHypertableSQL, table)).Error; err != nil {
		return nil, fmt.Errorf("could not create hypertable on %s: %w", table, err)
	}

	return t, nil
}

func (t *Storage) checkSchema(ctx context.Context) error {
	columnTypes, err := t.TimescaleDBConn.WithContext(ctx).Migrator().ColumnTypes(t.table)
	if err != nil {
		return fmt.Errorf("could not read columns of %s: %w", t.table, err)
	}

	found := make([]string, len(columnTypes))
	for i, c := range columnTypes {
		found[i] = c.Name()
	}
	return storage.CheckColumns(t.table, found)
}

// Append stores one strike
func (t *Storage) Append(ctx context.Context, timestamp int64, distanceKm *float64) error {
	r := storage.NewStrikeRecord(timestamp, distanceKm)
	if err := t.TimescaleDBConn.WithContext(ctx).Table(t.table).Create(&r).Error; err != nil {
		return fmt.Errorf("could not store strike at %d: %w", timestamp, err)
	}
	return nil
}

// Strikes returns the strikes stored in [from, to), oldest first
func (t *Storage) Strikes(ctx context.Context, from, to int64) ([]storage.StrikeRecord, error) {
	var out []storage.StrikeRecord
	err := t.TimescaleDBConn.WithContext(ctx).Table(t.table).
		Where("datetime >= ? AND datetime < ?", from, to).
		Order("datetime").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("could not query strikes: %w", err)
	}
	return out, nil
}

// Ping verifies the connection is alive
func (t *Storage) Ping(ctx context.Context) error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
