package managers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chrissnell/remoteweather-lightning/internal/storage"
	"github.com/chrissnell/remoteweather-lightning/internal/storage/sqlite"
	"github.com/chrissnell/remoteweather-lightning/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecorderNoBinding(t *testing.T) {
	rec, err := NewRecorder(context.Background(), &config.ConfigData{})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestNewRecorderSQLite(t *testing.T) {
	cfg := &config.ConfigData{
		Lightning: config.LightningData{DataBinding: "lightning_sqlite"},
		Storage: config.StorageData{Bindings: map[string]config.BindingData{
			"lightning_sqlite": {
				Backend: "sqlite",
				Path:    filepath.Join(t.TempDir(), "lightning.sdb"),
				Table:   "archive",
			},
		}},
	}

	rec, err := NewRecorder(context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &sqlite.Storage{}, rec)
	require.NoError(t, rec.Append(context.Background(), 1000, storage.Km(5)))
	require.NoError(t, rec.Close())
}

func TestNewRecorderErrors(t *testing.T) {
	tests := []struct {
		name     string
		bindings map[string]config.BindingData
	}{
		{name: "undefined binding"},
		{name: "unknown backend", bindings: map[string]config.BindingData{"db": {Backend: "influxdb"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.ConfigData{
				Lightning: config.LightningData{DataBinding: "db"},
				Storage:   config.StorageData{Bindings: tt.bindings},
			}
			_, err := NewRecorder(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}
