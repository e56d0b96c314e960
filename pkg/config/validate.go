package config

import (
	"fmt"
	"strings"

	"github.com/chrissnell/remoteweather-lightning/internal/types"
)

// Validate checks a fully-defaulted configuration for values the service
// cannot run with. It returns the first problem found.
func (c *ConfigData) Validate() error {
	l := c.Lightning

	if l.Address < 0x01 || l.Address > 0x7F {
		return fmt.Errorf("lightning [%s]: address 0x%02x is not a valid 7-bit I2C address", l.Name, l.Address)
	}
	if l.Bus < 0 {
		return fmt.Errorf("lightning [%s]: bus %d must not be negative", l.Name, l.Bus)
	}
	if l.NoiseFloor < 0 || l.NoiseFloor > 7 {
		return fmt.Errorf("lightning [%s]: noise-floor %d out of range 0-7", l.Name, l.NoiseFloor)
	}
	if l.Calibration < 0 || l.Calibration > 0x0F {
		return fmt.Errorf("lightning [%s]: calibration 0x%02x out of range 0x00-0x0f", l.Name, l.Calibration)
	}
	if l.Pin < 0 {
		return fmt.Errorf("lightning [%s]: pin %d must not be negative", l.Name, l.Pin)
	}
	if _, err := types.ParseRecordKind(l.Binding); err != nil {
		return fmt.Errorf("lightning [%s]: %w", l.Name, err)
	}

	if l.DataBinding != "" {
		b, ok := c.Storage.Bindings[l.DataBinding]
		if !ok {
			return fmt.Errorf("lightning [%s]: data-binding %q is not defined under storage.bindings", l.Name, l.DataBinding)
		}
		switch strings.ToLower(b.Backend) {
		case "sqlite":
			if b.Path == "" {
				return fmt.Errorf("binding %q: sqlite backend requires a path", l.DataBinding)
			}
		case "timescaledb":
			if b.ConnectionString == "" {
				return fmt.Errorf("binding %q: timescaledb backend requires a connection-string", l.DataBinding)
			}
		default:
			return fmt.Errorf("binding %q: unsupported backend %q", l.DataBinding, b.Backend)
		}
	}

	if _, err := types.ParseUnitSystem(c.Engine.UnitSystem); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.Engine.LoopInterval <= 0 || c.Engine.ArchiveInterval <= 0 {
		return fmt.Errorf("engine: loop-interval and archive-interval must be positive")
	}
	if c.Engine.ArchiveInterval < c.Engine.LoopInterval {
		return fmt.Errorf("engine: archive-interval %v is shorter than loop-interval %v", c.Engine.ArchiveInterval, c.Engine.LoopInterval)
	}

	return nil
}
