package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/chrissnell/remoteweather-lightning/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lightning.sdb")

	s, err := New(ctx, path, "archive")
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, 1000, storage.Km(12)))
	require.NoError(t, s.Append(ctx, 1005, storage.Km(7)))
	require.NoError(t, s.Append(ctx, 2000, nil))

	got, err := s.Strikes(ctx, 1000, 2000)
	require.NoError(t, err)
	assert.Equal(t, []storage.StrikeRecord{
		{DateTime: 1000, USUnits: 0x10, Distance: storage.Km(12)},
		{DateTime: 1005, USUnits: 0x10, Distance: storage.Km(7)},
	}, got)

	require.NoError(t, s.Close())

	// Reopening an existing archive with the right schema succeeds
	s, err = New(ctx, path, "archive")
	require.NoError(t, err)
	got, err = s.Strikes(ctx, 0, 3000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// The out-of-range strike is stored with a NULL distance
	assert.Nil(t, got[2].Distance)
	require.NoError(t, s.Close())
}

func TestAppendDuplicateTimestamp(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, filepath.Join(t.TempDir(), "lightning.sdb"), "archive")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(ctx, 1000, storage.Km(12)))
	assert.Error(t, s.Append(ctx, 1000, storage.Km(3)))
}

func TestSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lightning.sdb")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE archive (dateTime INTEGER NOT NULL PRIMARY KEY, distance REAL)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = New(ctx, path, "archive")
	assert.ErrorIs(t, err, storage.ErrSchemaMismatch)
}

func TestInvalidTableName(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "x.sdb"), "archive; DROP TABLE x")
	assert.Error(t, err)
}
