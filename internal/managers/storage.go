package managers

import (
	"context"
	"fmt"

	"github.com/chrissnell/remoteweather-lightning/internal/log"
	"github.com/chrissnell/remoteweather-lightning/internal/storage"
	"github.com/chrissnell/remoteweather-lightning/internal/storage/sqlite"
	"github.com/chrissnell/remoteweather-lightning/internal/storage/timescaledb"
	"github.com/chrissnell/remoteweather-lightning/pkg/config"
)

// NewRecorder opens the strike archive named by the lightning section's
// data-binding. It returns a nil Recorder when no binding is configured.
// Schema mismatches and connection failures are returned unchanged so
// startup aborts.
func NewRecorder(ctx context.Context, cfg *config.ConfigData) (storage.Recorder, error) {
	name := cfg.Lightning.DataBinding
	if name == "" {
		log.Info("no data-binding configured; strikes will not be archived")
		return nil, nil
	}

	b, ok := cfg.Storage.Bindings[name]
	if !ok {
		return nil, fmt.Errorf("data-binding %q is not defined", name)
	}

	switch b.Backend {
	case "sqlite":
		log.Infof("archiving strikes to SQLite database %s (table %s)", b.Path, b.Table)
		s, err := sqlite.New(ctx, b.Path, b.Table)
		if err != nil {
			return nil, fmt.Errorf("could not open data-binding %q: %w", name, err)
		}
		return s, nil
	case "timescaledb":
		log.Infof("archiving strikes to TimescaleDB (table %s)", b.Table)
		s, err := timescaledb.New(ctx, b.ConnectionString, b.Table)
		if err != nil {
			return nil, fmt.Errorf("could not open data-binding %q: %w", name, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("data-binding %q: unsupported backend %q", name, b.Backend)
	}
}
