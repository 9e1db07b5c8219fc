package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
counter:
  report-interval: 30s
detectors:
  - name: lab-geiger
    type: serial
    serial-device: /dev/ttyUSB0
  - name: bench
    type: simulator
    enabled: false
    simulator:
      interval: 250ms
      alpha-mean: 1.5
      beta-mean: 3
      gamma-mean: 0.5
storage:
  backend: sqlite
  sqlite:
    path: /var/lib/radmon/samples.db
controllers:
  rest:
    port: 9090
  grpc:
    listen-addr: 127.0.0.1
`

func TestParseYAML(t *testing.T) {
	cfg, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Counter.ReportInterval)
	require.Len(t, cfg.Detectors, 2)

	assert.Equal(t, "lab-geiger", cfg.Detectors[0].Name)
	assert.Equal(t, DetectorSerial, cfg.Detectors[0].Type)
	assert.True(t, cfg.Detectors[0].Enabled, "detectors default to enabled")
	assert.Equal(t, "/dev/ttyUSB0", cfg.Detectors[0].SerialDevice)

	assert.False(t, cfg.Detectors[1].Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Detectors[1].Simulator.Interval)
	assert.Equal(t, 1.5, cfg.Detectors[1].Simulator.AlphaMean)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	require.NotNil(t, cfg.Storage.SQLite)
	assert.Equal(t, "/var/lib/radmon/samples.db", cfg.Storage.SQLite.Path)

	require.NotNil(t, cfg.Controllers.REST)
	assert.Equal(t, 9090, cfg.Controllers.REST.Port)
	require.NotNil(t, cfg.Controllers.GRPC)
	assert.Equal(t, "127.0.0.1", cfg.Controllers.GRPC.ListenAddr)

	cfg.ApplyDefaults()
	assert.Equal(t, 9600, cfg.Detectors[0].Baud)
	assert.Equal(t, 50051, cfg.Controllers.GRPC.Port)
	assert.Equal(t, 60*time.Second, cfg.Storage.HealthCheckInterval)
	require.NoError(t, cfg.Validate())
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad duration", "counter:\n  report-interval: soon\n"},
		{"unknown key", "storage:\n  backend: memory\n  bogus: 1\n"},
		{"bad simulator interval", "detectors:\n  - name: x\n    type: simulator\n    simulator:\n      interval: fast\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ConfigData
		wantErr bool
	}{
		{
			name: "defaults are valid",
			cfg:  ConfigData{},
		},
		{
			name:    "unknown backend",
			cfg:     ConfigData{Storage: StorageData{Backend: "influxdb"}},
			wantErr: true,
		},
		{
			name:    "sqlite without path",
			cfg:     ConfigData{Storage: StorageData{Backend: BackendSQLite}},
			wantErr: true,
		},
		{
			name:    "timescaledb without connection string",
			cfg:     ConfigData{Storage: StorageData{Backend: BackendTimescaleDB, TimescaleDB: &TimescaleDBData{}}},
			wantErr: true,
		},
		{
			name:    "detector without name",
			cfg:     ConfigData{Detectors: []DetectorData{{Type: DetectorSimulator}}},
			wantErr: true,
		},
		{
			name: "duplicate detector",
			cfg: ConfigData{Detectors: []DetectorData{
				{Name: "a", Type: DetectorSimulator},
				{Name: "a", Type: DetectorSimulator},
			}},
			wantErr: true,
		},
		{
			name:    "serial detector without device or address",
			cfg:     ConfigData{Detectors: []DetectorData{{Name: "a", Type: DetectorSerial, Hostname: "geiger.local"}}},
			wantErr: true,
		},
		{
			name: "serial detector over tcp",
			cfg:  ConfigData{Detectors: []DetectorData{{Name: "a", Type: DetectorSerial, Hostname: "geiger.local", Port: "7000"}}},
		},
		{
			name:    "unknown detector type",
			cfg:     ConfigData{Detectors: []DetectorData{{Name: "a", Type: "usb"}}},
			wantErr: true,
		},
		{
			name:    "negative report interval",
			cfg:     ConfigData{Counter: CounterData{ReportInterval: -time.Second}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestYAMLProviderAndEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	provider := NewEnvOverlay(NewYAMLProvider(path)).WithEnvironment(map[string]string{
		"RADMON_STORAGE_BACKEND":                "timescaledb",
		"RADMON_TIMESCALEDB_CONNECTION_STRING":  "postgres://radmon@db/radmon",
		"RADMON_REPORT_INTERVAL":                "5m",
		"RADMON_REST_PORT":                      "8181",
		"RADMON_GRPC_PORT":                      "6000",
		"UNRELATED_STORAGE_BACKEND_NOT_PREFIXED": "memory",
	})
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	require.NoError(t, err)

	assert.True(t, provider.IsReadOnly())
	assert.Equal(t, BackendTimescaleDB, cfg.Storage.Backend)
	require.NotNil(t, cfg.Storage.TimescaleDB)
	assert.Equal(t, "postgres://radmon@db/radmon", cfg.Storage.TimescaleDB.ConnectionString)
	assert.Equal(t, 5*time.Minute, cfg.Counter.ReportInterval)
	assert.Equal(t, 8181, cfg.Controllers.REST.Port)
	assert.Equal(t, 6000, cfg.Controllers.GRPC.Port)
	assert.Equal(t, "127.0.0.1", cfg.Controllers.GRPC.ListenAddr, "unset overrides leave file values alone")
}

func TestYAMLProviderMissingFile(t *testing.T) {
	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).LoadConfig()
	assert.Error(t, err)
}
