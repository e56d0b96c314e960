// Package sqlite archives individual strikes in a SQLite database
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/chrissnell/remoteweather-lightning/internal/storage"
	_ "modernc.org/sqlite"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Storage holds the connection to a SQLite strike archive
type Storage struct {
	db        *sql.DB
	table     string
	insertSQL string
}

var (
	_ storage.Recorder = (*Storage)(nil)
	_ storage.Querier  = (*Storage)(nil)
)

// New opens (creating if needed) the database at path and makes sure the
// strike table exists with the expected columns. A table with different
// columns is a fatal ErrSchemaMismatch.
func New(ctx context.Context, path, table string) (*Storage, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("sqlite: invalid table name %q", table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases intact
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	s := &Storage{
		db:        db,
		table:     table,
		insertSQL: fmt.Sprintf(`INSERT INTO %s (dateTime, usUnits, distance) VALUES (?, ?, ?)`, table),
	}

	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) ensureSchema(ctx context.Context) error {
	cols := make([]string, len(storage.Schema))
	for i, c := range storage.Schema {
		cols[i] = c.Name + " " + c.Type
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.table, strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	found, err := s.columns(ctx)
	if err != nil {
		return err
	}
	return storage.CheckColumns(s.table, found)
}

func (s *Storage) columns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", s.table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", s.table, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Append stores one strike
func (s *Storage) Append(ctx context.Context, timestamp int64, distanceKm *float64) error {
	r := storage.NewStrikeRecord(timestamp, distanceKm)
	if _, err := s.db.ExecContext(ctx, s.insertSQL, r.DateTime, r.USUnits, r.Distance); err != nil {
		return fmt.Errorf("failed to insert strike at %d: %w", timestamp, err)
	}
	return nil
}

// Strikes returns the strikes stored in [from, to), oldest first
func (s *Storage) Strikes(ctx context.Context, from, to int64) ([]storage.StrikeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT dateTime, usUnits, distance FROM %s WHERE dateTime >= ? AND dateTime < ? ORDER BY dateTime", s.table),
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query strikes: %w", err)
	}
	defer rows.Close()

	var out []storage.StrikeRecord
	for rows.Next() {
		var r storage.StrikeRecord
		if err := rows.Scan(&r.DateTime, &r.USUnits, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan strike: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
