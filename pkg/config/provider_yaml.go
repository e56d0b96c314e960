package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file. The file is
// read once; later calls return the cached result.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseYAML(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

// ParseYAML decodes a YAML document, applies defaults and validates the result
func ParseYAML(data []byte) (*ConfigData, error) {
	var yamlConfig ConfigYAML
	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	config, err := yamlConfig.toConfigData()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (y *YAMLProvider) GetLightningConfig() (*LightningData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Lightning, nil
}

func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

func (y *YAMLProvider) GetEngineConfig() (*EngineData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Engine, nil
}

func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Controllers, nil
}

// IsReadOnly returns true; YAML configuration is never written back
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs. Optional scalars are pointers so an omitted key
// can be told apart from an explicit zero.
type ConfigYAML struct {
	Lightning   LightningYAML    `yaml:"lightning"`
	Engine      EngineYAML       `yaml:"engine,omitempty"`
	Storage     StorageYAML      `yaml:"storage,omitempty"`
	Controllers []ControllerYAML `yaml:"controllers,omitempty"`
}

type LightningYAML struct {
	Name        string `yaml:"name,omitempty"`
	Address     *int   `yaml:"address,omitempty"`
	Bus         *int   `yaml:"bus,omitempty"`
	Indoors     *bool  `yaml:"indoors,omitempty"`
	NoiseFloor  *int   `yaml:"noise-floor,omitempty"`
	Calibration *int   `yaml:"calibration,omitempty"`
	Pin         *int   `yaml:"pin,omitempty"`
	Binding     string `yaml:"binding,omitempty"`
	DataBinding string `yaml:"data-binding,omitempty"`
}

type EngineYAML struct {
	StationName     string `yaml:"station-name,omitempty"`
	UnitSystem      string `yaml:"unit-system,omitempty"`
	LoopInterval    string `yaml:"loop-interval,omitempty"`
	ArchiveInterval string `yaml:"archive-interval,omitempty"`
}

type StorageYAML struct {
	Bindings map[string]BindingYAML `yaml:"bindings,omitempty"`
}

type BindingYAML struct {
	Backend          string `yaml:"backend"`
	Path             string `yaml:"path,omitempty"`
	ConnectionString string `yaml:"connection-string,omitempty"`
	Table            string `yaml:"table,omitempty"`
}

type ControllerYAML struct {
	Type       string          `yaml:"type,omitempty"`
	RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
}

type RESTServerYAML struct {
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func durationOr(s string, def time.Duration, key string) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("engine: invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func (c ConfigYAML) toConfigData() (*ConfigData, error) {
	config := &ConfigData{
		Lightning: LightningData{
			Name:        c.Lightning.Name,
			Address:     intOr(c.Lightning.Address, DefaultAddress),
			Bus:         intOr(c.Lightning.Bus, DefaultBus),
			Indoors:     DefaultIndoors,
			NoiseFloor:  intOr(c.Lightning.NoiseFloor, DefaultNoiseFloor),
			Calibration: intOr(c.Lightning.Calibration, DefaultCalibration),
			Pin:         intOr(c.Lightning.Pin, DefaultPin),
			Binding:     strings.ToLower(c.Lightning.Binding),
			DataBinding: c.Lightning.DataBinding,
		},
		Engine: EngineData{
			StationName: c.Engine.StationName,
			UnitSystem:  strings.ToLower(c.Engine.UnitSystem),
		},
		Controllers: make([]ControllerData, len(c.Controllers)),
	}

	if config.Lightning.Name == "" {
		config.Lightning.Name = DefaultLightningName
	}
	if c.Lightning.Indoors != nil {
		config.Lightning.Indoors = *c.Lightning.Indoors
	}
	if config.Lightning.Binding == "" {
		config.Lightning.Binding = DefaultBinding
	}

	if config.Engine.StationName == "" {
		config.Engine.StationName = DefaultStationName
	}
	if config.Engine.UnitSystem == "" {
		config.Engine.UnitSystem = DefaultUnitSystem
	}

	var err error
	config.Engine.LoopInterval, err = durationOr(c.Engine.LoopInterval, DefaultLoopInterval, "loop-interval")
	if err != nil {
		return nil, err
	}
	config.Engine.ArchiveInterval, err = durationOr(c.Engine.ArchiveInterval, DefaultArchiveInterval, "archive-interval")
	if err != nil {
		return nil, err
	}

	if len(c.Storage.Bindings) > 0 {
		config.Storage.Bindings = make(map[string]BindingData, len(c.Storage.Bindings))
		for name, b := range c.Storage.Bindings {
			table := b.Table
			if table == "" {
				table = DefaultTable
			}
			config.Storage.Bindings[name] = BindingData{
				Backend:          strings.ToLower(b.Backend),
				Path:             b.Path,
				ConnectionString: b.ConnectionString,
				Table:            table,
			}
		}
	}

	for i, controller := range c.Controllers {
		config.Controllers[i] = ControllerData{
			Type: controller.Type,
		}
		if controller.RESTServer != nil {
			config.Controllers[i].RESTServer = &RESTServerData{
				Port:       controller.RESTServer.Port,
				ListenAddr: controller.RESTServer.ListenAddr,
			}
		}
	}

	return config, nil
}
