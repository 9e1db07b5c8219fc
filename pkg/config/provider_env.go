package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment override variable
const EnvPrefix = "RADMON_"

// envOverrides lists the settings that may be overridden from the environment.
// Unset variables leave the underlying configuration untouched.
type envOverrides struct {
	ReportInterval        time.Duration `env:"REPORT_INTERVAL"`
	StorageBackend        string        `env:"STORAGE_BACKEND"`
	SQLitePath            string        `env:"SQLITE_PATH"`
	TimescaleDBConnection string        `env:"TIMESCALEDB_CONNECTION_STRING"`
	RESTListenAddr        string        `env:"REST_LISTEN_ADDR"`
	RESTPort              int           `env:"REST_PORT"`
	GRPCListenAddr        string        `env:"GRPC_LISTEN_ADDR"`
	GRPCPort              int           `env:"GRPC_PORT"`
}

// EnvOverlay wraps another ConfigProvider and applies RADMON_* environment overrides
// on top of whatever it loads.
type EnvOverlay struct {
	base    ConfigProvider
	environ map[string]string
}

// NewEnvOverlay creates an overlay that reads the process environment
func NewEnvOverlay(base ConfigProvider) *EnvOverlay {
	return &EnvOverlay{base: base}
}

// WithEnvironment makes the overlay read from environ instead of the process environment
func (e *EnvOverlay) WithEnvironment(environ map[string]string) *EnvOverlay {
	e.environ = environ
	return e
}

// LoadConfig loads the base configuration and applies environment overrides
func (e *EnvOverlay) LoadConfig() (*ConfigData, error) {
	cfg, err := e.base.LoadConfig()
	if err != nil {
		return nil, err
	}

	var o envOverrides
	opts := env.Options{Prefix: EnvPrefix}
	if e.environ != nil {
		opts.Environment = e.environ
	}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return nil, fmt.Errorf("error parsing environment overrides: %w", err)
	}

	if o.ReportInterval != 0 {
		cfg.Counter.ReportInterval = o.ReportInterval
	}
	if o.StorageBackend != "" {
		cfg.Storage.Backend = o.StorageBackend
	}
	if o.SQLitePath != "" {
		cfg.Storage.SQLite = &SQLiteData{Path: o.SQLitePath}
	}
	if o.TimescaleDBConnection != "" {
		cfg.Storage.TimescaleDB = &TimescaleDBData{ConnectionString: o.TimescaleDBConnection}
	}
	if o.RESTListenAddr != "" || o.RESTPort != 0 {
		if cfg.Controllers.REST == nil {
			cfg.Controllers.REST = &RESTServerData{}
		}
		if o.RESTListenAddr != "" {
			cfg.Controllers.REST.ListenAddr = o.RESTListenAddr
		}
		if o.RESTPort != 0 {
			cfg.Controllers.REST.Port = o.RESTPort
		}
	}
	if o.GRPCListenAddr != "" || o.GRPCPort != 0 {
		if cfg.Controllers.GRPC == nil {
			cfg.Controllers.GRPC = &GRPCData{}
		}
		if o.GRPCListenAddr != "" {
			cfg.Controllers.GRPC.ListenAddr = o.GRPCListenAddr
		}
		if o.GRPCPort != 0 {
			cfg.Controllers.GRPC.Port = o.GRPCPort
		}
	}

	return cfg, nil
}

// IsReadOnly defers to the wrapped provider
func (e *EnvOverlay) IsReadOnly() bool {
	return e.base.IsReadOnly()
}

// Close closes the wrapped provider
func (e *EnvOverlay) Close() error {
	return e.base.Close()
}
