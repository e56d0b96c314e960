// Package storage defines the per-strike archive schema shared by the
// persistence backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chrissnell/remoteweather-lightning/internal/types"
)

// ErrSchemaMismatch is returned at startup when an existing strike table
// does not have the expected columns
var ErrSchemaMismatch = errors.New("schema mismatch")

// Column is one column of the strike table
type Column struct {
	Name string
	Type string
}

// Schema is the strike table layout, in order. It is compatible with the
// weewx lightning archive so existing databases can be reused.
var Schema = []Column{
	{Name: "dateTime", Type: "INTEGER NOT NULL PRIMARY KEY"},
	{Name: "usUnits", Type: "INTEGER NOT NULL"},
	{Name: "distance", Type: "REAL"},
}

// StrikeUnits is the unit system strikes are stored in
const StrikeUnits = types.UnitSystemMetric

// StrikeRecord is one persisted strike. Distance is NULL for a strike
// beyond the sensor's range.
type StrikeRecord struct {
	DateTime int64    `gorm:"column:datetime;primaryKey;autoIncrement:false"`
	USUnits  int      `gorm:"column:usunits;not null"`
	Distance *float64 `gorm:"column:distance"`
}

// NewStrikeRecord builds the row stored for a strike
func NewStrikeRecord(timestamp int64, distanceKm *float64) StrikeRecord {
	return StrikeRecord{
		DateTime: timestamp,
		USUnits:  int(StrikeUnits),
		Distance: distanceKm,
	}
}

// Recorder is a closable strike archive
type Recorder interface {
	Append(ctx context.Context, timestamp int64, distanceKm *float64) error
	Close() error
}

// Querier reads back archived strikes
type Querier interface {
	Strikes(ctx context.Context, from, to int64) ([]StrikeRecord, error)
}

// ColumnNames returns the expected column names in order
func ColumnNames() []string {
	names := make([]string, len(Schema))
	for i, c := range Schema {
		names[i] = c.Name
	}
	return names
}

// CheckColumns compares the columns found on disk with Schema. Names are
// compared case-insensitively since PostgreSQL folds unquoted identifiers.
func CheckColumns(table string, found []string) error {
	want := ColumnNames()
	if len(found) == len(want) {
		match := true
		for i := range want {
			if !strings.EqualFold(found[i], want[i]) {
				match = false
				break
			}
		}
		if match {
			return nil
		}
	}
	return fmt.Errorf("table %s: %w: %v != %v", table, ErrSchemaMismatch, found, want)
}

// Km returns a pointer to a distance, for building records in place
func Km(v float64) *float64 {
	return &v
}
