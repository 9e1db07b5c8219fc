package managers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/chrissnell/radmon/internal/detectors"
	"github.com/chrissnell/radmon/internal/detectors/serial"
	"github.com/chrissnell/radmon/internal/detectors/simulator"
	"github.com/chrissnell/radmon/pkg/config"
)

// DetectorManager owns the configured particle detectors
type DetectorManager struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	recorder  detectors.Recorder
	logger    *zap.SugaredLogger
	mu        sync.RWMutex
	detectors map[string]detectors.Detector
}

// NewDetectorManager creates a DetectorManager populated with all enabled detectors
func NewDetectorManager(ctx context.Context, wg *sync.WaitGroup, cfgs []config.DetectorData, recorder detectors.Recorder, logger *zap.SugaredLogger) (*DetectorManager, error) {
	dm := &DetectorManager{
		ctx:       ctx,
		wg:        wg,
		recorder:  recorder,
		logger:    logger,
		detectors: make(map[string]detectors.Detector),
	}

	for _, dc := range cfgs {
		if !dc.Enabled {
			logger.Infof("Skipping disabled detector [%s]", dc.Name)
			continue
		}
		if _, exists := dm.detectors[dc.Name]; exists {
			return nil, fmt.Errorf("detector %s already exists", dc.Name)
		}
		d, err := dm.createDetector(dc)
		if err != nil {
			return nil, fmt.Errorf("error creating detector [%s]: %w", dc.Name, err)
		}
		dm.detectors[dc.Name] = d
	}

	return dm, nil
}

// StartDetectors starts every detector
func (m *DetectorManager) StartDetectors() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range m.namesLocked() {
		m.logger.Infof("Starting detector [%v]...", name)
		if err := m.detectors[name].StartDetector(); err != nil {
			return fmt.Errorf("failed to start detector [%s]: %w", name, err)
		}
	}
	return nil
}

// GetDetector retrieves a detector by name, or nil if it does not exist
func (m *DetectorManager) GetDetector(name string) detectors.Detector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.detectors[name]
}

// Names lists the managed detectors in sorted order
func (m *DetectorManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.namesLocked()
}

func (m *DetectorManager) namesLocked() []string {
	names := make([]string, 0, len(m.detectors))
	for name := range m.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// createDetector creates the appropriate detector based on its type
func (m *DetectorManager) createDetector(dc config.DetectorData) (detectors.Detector, error) {
	switch dc.Type {
	case config.DetectorSerial:
		m.logger.Infof("Initializing serial detector [%v]", dc.Name)
		return serial.New(m.ctx, m.wg, dc, m.recorder, m.logger)
	case config.DetectorSimulator:
		m.logger.Infof("Initializing simulated detector [%v]", dc.Name)
		return simulator.New(m.ctx, m.wg, dc, m.recorder, m.logger)
	default:
		return nil, fmt.Errorf("unknown detector type: %s", dc.Type)
	}
}
