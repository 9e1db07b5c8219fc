package config

import (
	"fmt"
	"os"
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

// LoadConfig loads the complete configuration from YAML file
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

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// ParseYAML converts a YAML document into ConfigData
func ParseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Counter     CounterYAML     `yaml:"counter,omitempty"`
		Detectors   []DetectorYAML  `yaml:"detectors,omitempty"`
		Storage     StorageYAML     `yaml:"storage,omitempty"`
		Controllers ControllersYAML `yaml:"controllers,omitempty"`
	}

	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	var err error
	config := &ConfigData{
		Detectors: make([]DetectorData, len(yamlConfig.Detectors)),
	}

	config.Counter.ReportInterval, err = parseDuration("counter.report-interval", yamlConfig.Counter.ReportInterval)
	if err != nil {
		return nil, err
	}

	// Convert detectors
	for i, d := range yamlConfig.Detectors {
		enabled := true
		if d.Enabled != nil {
			enabled = *d.Enabled
		}
		config.Detectors[i] = DetectorData{
			Name:         d.Name,
			Type:         d.Type,
			Enabled:      enabled,
			SerialDevice: d.SerialDevice,
			Baud:         d.Baud,
			Hostname:     d.Hostname,
			Port:         d.Port,
			Simulator: SimulatorData{
				AlphaMean: d.Simulator.AlphaMean,
				BetaMean:  d.Simulator.BetaMean,
				GammaMean: d.Simulator.GammaMean,
			},
		}
		config.Detectors[i].Simulator.Interval, err = parseDuration(fmt.Sprintf("detectors[%s].simulator.interval", d.Name), d.Simulator.Interval)
		if err != nil {
			return nil, err
		}
	}

	// Convert storage
	config.Storage = StorageData{Backend: yamlConfig.Storage.Backend}
	if yamlConfig.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: yamlConfig.Storage.SQLite.Path}
	}
	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}
	config.Storage.HealthCheckInterval, err = parseDuration("storage.health-check-interval", yamlConfig.Storage.HealthCheckInterval)
	if err != nil {
		return nil, err
	}

	// Convert controllers
	if rc := yamlConfig.Controllers.REST; rc != nil {
		config.Controllers.REST = &RESTServerData{
			Cert:       rc.Cert,
			Key:        rc.Key,
			Port:       rc.Port,
			ListenAddr: rc.ListenAddr,
		}
	}
	if gc := yamlConfig.Controllers.GRPC; gc != nil {
		config.Controllers.GRPC = &GRPCData{
			Cert:       gc.Cert,
			Key:        gc.Key,
			Port:       gc.Port,
			ListenAddr: gc.ListenAddr,
		}
	}

	return config, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", field, err)
	}
	return d, nil
}

// YAML-specific structs with proper YAML tags for parsing the file format
type CounterYAML struct {
	ReportInterval string `yaml:"report-interval,omitempty"`
}

type DetectorYAML struct {
	Name         string        `yaml:"name"`
	Type         string        `yaml:"type"`
	Enabled      *bool         `yaml:"enabled,omitempty"`
	SerialDevice string        `yaml:"serial-device,omitempty"`
	Baud         int           `yaml:"baud,omitempty"`
	Hostname     string        `yaml:"hostname,omitempty"`
	Port         string        `yaml:"port,omitempty"`
	Simulator    SimulatorYAML `yaml:"simulator,omitempty"`
}

type SimulatorYAML struct {
	Interval  string  `yaml:"interval,omitempty"`
	AlphaMean float64 `yaml:"alpha-mean,omitempty"`
	BetaMean  float64 `yaml:"beta-mean,omitempty"`
	GammaMean float64 `yaml:"gamma-mean,omitempty"`
}

type StorageYAML struct {
	Backend             string           `yaml:"backend,omitempty"`
	SQLite              *SQLiteYAML      `yaml:"sqlite,omitempty"`
	TimescaleDB         *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
	HealthCheckInterval string           `yaml:"health-check-interval,omitempty"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type ControllersYAML struct {
	REST *ServerYAML `yaml:"rest,omitempty"`
	GRPC *ServerYAML `yaml:"grpc,omitempty"`
}

type ServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}
