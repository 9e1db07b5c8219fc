package config

import (
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// Storage backend names
const (
	BackendMemory      = "memory"
	BackendSQLite      = "sqlite"
	BackendTimescaleDB = "timescaledb"
)

// Detector types
const (
	DetectorSerial    = "serial"
	DetectorSimulator = "simulator"
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Counter     CounterData     `json:"counter"`
	Detectors   []DetectorData  `json:"detectors,omitempty"`
	Storage     StorageData     `json:"storage"`
	Controllers ControllersData `json:"controllers"`
}

// CounterData configures the rate counter's periodic reporting. A zero ReportInterval
// disables the reporter; windows are then closed only on request.
type CounterData struct {
	ReportInterval time.Duration `json:"report_interval,omitempty"`
}

// DetectorData holds configuration specific to particle detectors
type DetectorData struct {
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Enabled      bool          `json:"enabled"`
	SerialDevice string        `json:"serial_device,omitempty"`
	Baud         int           `json:"baud,omitempty"`
	Hostname     string        `json:"hostname,omitempty"`
	Port         string        `json:"port,omitempty"`
	Simulator    SimulatorData `json:"simulator,omitempty"`
}

// SimulatorData configures a simulated detector. The means are the average number of
// particles per emitted reading.
type SimulatorData struct {
	Interval  time.Duration `json:"interval,omitempty"`
	AlphaMean float64       `json:"alpha_mean,omitempty"`
	BetaMean  float64       `json:"beta_mean,omitempty"`
	GammaMean float64       `json:"gamma_mean,omitempty"`
}

// StorageData selects and configures the sample history backend
type StorageData struct {
	Backend             string           `json:"backend"`
	SQLite              *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB         *TimescaleDBData `json:"timescaledb,omitempty"`
	HealthCheckInterval time.Duration    `json:"health_check_interval,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// ControllersData holds the configuration for the transports
type ControllersData struct {
	REST *RESTServerData `json:"rest,omitempty"`
	GRPC *GRPCData       `json:"grpc,omitempty"`
}

type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

type GRPCData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

// ApplyDefaults fills in values left unset by the configuration source
func (c *ConfigData) ApplyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendMemory
	}
	if c.Storage.HealthCheckInterval == 0 {
		c.Storage.HealthCheckInterval = 60 * time.Second
	}
	for i := range c.Detectors {
		d := &c.Detectors[i]
		if d.Type == DetectorSerial && d.SerialDevice != "" && d.Baud == 0 {
			d.Baud = 9600
		}
		if d.Type == DetectorSimulator && d.Simulator.Interval == 0 {
			d.Simulator.Interval = time.Second
		}
	}
	if c.Controllers.REST != nil && c.Controllers.REST.Port == 0 {
		c.Controllers.REST.Port = 8080
	}
	if c.Controllers.GRPC != nil && c.Controllers.GRPC.Port == 0 {
		c.Controllers.GRPC.Port = 50051
	}
}

// Validate checks the configuration for errors that would prevent startup
func (c *ConfigData) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLite == nil || c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage backend %q requires sqlite.path", c.Storage.Backend)
		}
	case BackendTimescaleDB:
		if c.Storage.TimescaleDB == nil || c.Storage.TimescaleDB.ConnectionString == "" {
			return fmt.Errorf("storage backend %q requires timescaledb.connection-string", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}

	if c.Counter.ReportInterval < 0 {
		return fmt.Errorf("counter.report-interval must not be negative")
	}

	seen := make(map[string]bool)
	for _, d := range c.Detectors {
		if d.Name == "" {
			return fmt.Errorf("every detector must have a name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate detector name: %s", d.Name)
		}
		seen[d.Name] = true

		switch d.Type {
		case DetectorSerial:
			if d.SerialDevice == "" && (d.Hostname == "" || d.Port == "") {
				return fmt.Errorf("detector [%s] must define either a serial device or hostname+port", d.Name)
			}
		case DetectorSimulator:
		default:
			return fmt.Errorf("detector [%s] has unsupported type %q", d.Name, d.Type)
		}
	}

	return nil
}
