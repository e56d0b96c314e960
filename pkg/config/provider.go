package config

import "time"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetLightningConfig() (*LightningData, error)
	GetStorageConfig() (*StorageData, error)
	GetEngineConfig() (*EngineData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Lightning   LightningData    `json:"lightning"`
	Engine      EngineData       `json:"engine"`
	Storage     StorageData      `json:"storage,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty"`
}

// Defaults for the AS3935 section. They match the factory wiring of the
// common breakout boards on a Raspberry Pi rev. 2 or newer.
const (
	DefaultLightningName = "as3935"
	DefaultAddress       = 0x03
	DefaultBus           = 1
	DefaultIndoors       = true
	DefaultNoiseFloor    = 0
	DefaultCalibration   = 0x06
	DefaultPin           = 17
	DefaultBinding       = "archive"

	DefaultUnitSystem      = "us"
	DefaultLoopInterval    = 2 * time.Second
	DefaultArchiveInterval = 5 * time.Minute
	DefaultStationName     = "station"

	DefaultTable = "archive"
)

// LightningData holds the AS3935 sensor configuration. It is resolved once
// at startup; every field carries its default after ApplyDefaults.
type LightningData struct {
	Name        string `json:"name"`
	Address     int    `json:"address"`
	Bus         int    `json:"bus"`
	Indoors     bool   `json:"indoors"`
	NoiseFloor  int    `json:"noise_floor"`
	Calibration int    `json:"calibration"`
	Pin         int    `json:"pin"`
	// Binding selects which engine records are augmented: "loop" or "archive"
	Binding string `json:"binding"`
	// DataBinding names an entry in StorageData.Bindings. Empty disables
	// per-strike persistence.
	DataBinding string `json:"data_binding,omitempty"`
}

// EngineData configures the host record scheduler
type EngineData struct {
	StationName     string        `json:"station_name"`
	UnitSystem      string        `json:"unit_system"`
	LoopInterval    time.Duration `json:"loop_interval"`
	ArchiveInterval time.Duration `json:"archive_interval"`
}

// StorageData holds the named data bindings strikes can be persisted to
type StorageData struct {
	Bindings map[string]BindingData `json:"bindings,omitempty"`
}

// BindingData describes one persistence target
type BindingData struct {
	// Backend is "sqlite" or "timescaledb"
	Backend          string `json:"backend"`
	Path             string `json:"path,omitempty"`
	ConnectionString string `json:"connection_string,omitempty"`
	Table            string `json:"table,omitempty"`
}

// ControllerData holds the configuration for controller backends
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
}

type RESTServerData struct {
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}
