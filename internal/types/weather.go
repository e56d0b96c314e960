package types

import (
	"fmt"
	"strings"
	"time"
)

// UnitSystem identifies the measurement system a record's values are
// expressed in. The numeric values match the usUnits codes weewx stores in
// its databases so records can be exchanged with that ecosystem.
type UnitSystem int

const (
	UnitSystemUS       UnitSystem = 0x01
	UnitSystemMetric   UnitSystem = 0x10
	UnitSystemMetricWX UnitSystem = 0x11
)

// String returns the configuration name of the unit system
func (u UnitSystem) String() string {
	switch u {
	case UnitSystemUS:
		return "us"
	case UnitSystemMetric:
		return "metric"
	case UnitSystemMetricWX:
		return "metricwx"
	default:
		return fmt.Sprintf("unknown(0x%02x)", int(u))
	}
}

// ParseUnitSystem converts a configuration string into a UnitSystem
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "us":
		return UnitSystemUS, nil
	case "metric":
		return UnitSystemMetric, nil
	case "metricwx":
		return UnitSystemMetricWX, nil
	default:
		return 0, fmt.Errorf("unknown unit system %q", s)
	}
}

// RecordKind distinguishes the two kinds of periodic records the engine emits
type RecordKind int

const (
	// LoopPacket is a raw telemetry sample, emitted every few seconds
	LoopPacket RecordKind = iota
	// ArchiveRecord closes an archive interval
	ArchiveRecord
)

func (k RecordKind) String() string {
	switch k {
	case LoopPacket:
		return "loop"
	case ArchiveRecord:
		return "archive"
	default:
		return "unknown"
	}
}

// ParseRecordKind converts a packet binding name into a RecordKind
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loop":
		return LoopPacket, nil
	case "archive":
		return ArchiveRecord, nil
	default:
		return 0, fmt.Errorf("unknown packet binding %q (want \"loop\" or \"archive\")", s)
	}
}

// Reading is an outgoing weather record. Services attached to the engine
// may add their own fields before the record is handed to storage.
type Reading struct {
	Timestamp   time.Time  `json:"timestamp"`
	StationName string     `json:"station_name"`
	Kind        RecordKind `json:"-"`
	UnitSystem  UnitSystem `json:"us_units"`

	// Interval is the span an archive record covers. Zero for loop packets.
	Interval time.Duration `json:"-"`

	// LightningStrikes is the number of strikes seen since the previous record
	LightningStrikes int `json:"lightning_strikes"`
	// LightningAvgDistance is the mean strike distance in the record's unit
	// system (km or miles). Nil when no strikes were seen.
	LightningAvgDistance *float64 `json:"avg_distance,omitempty"`
}

// ToMap converts a Reading into a flat map for logging and storage
func (r *Reading) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"dateTime":          r.Timestamp.Unix(),
		"usUnits":           int(r.UnitSystem),
		"lightning_strikes": r.LightningStrikes,
	}
	if r.LightningAvgDistance != nil {
		m["avg_distance"] = *r.LightningAvgDistance
	}
	return m
}
