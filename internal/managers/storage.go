package managers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/chrissnell/radmon/internal/storage"
	"github.com/chrissnell/radmon/internal/storage/memory"
	"github.com/chrissnell/radmon/internal/storage/sqlite"
	"github.com/chrissnell/radmon/internal/storage/timescaledb"
	"github.com/chrissnell/radmon/internal/types"
	"github.com/chrissnell/radmon/pkg/config"
)

const sinkBuffer = 16

// StorageManager owns the sample history backend and fans reported samples
// out to live subscribers
type StorageManager struct {
	Backend           string
	Store             storage.SampleStore
	Health            *storage.HealthManager
	SampleDistributor chan types.RadiationSample

	logger  *zap.SugaredLogger
	mu      sync.RWMutex
	sinks   map[string]chan types.RadiationSample
	dropped atomic.Uint64
}

// NewStorageManager builds the configured storage backend and starts the sample distributor
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, c config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	var (
		store storage.SampleStore
		err   error
	)

	switch c.Backend {
	case config.BackendMemory, "":
		store = memory.New()
	case config.BackendSQLite:
		store, err = sqlite.New(ctx, c.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
	case config.BackendTimescaleDB:
		store, err = timescaledb.New(ctx, c.TimescaleDB.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", c.Backend)
	}

	backend := c.Backend
	if backend == "" {
		backend = config.BackendMemory
	}
	return NewStorageManagerWithStore(ctx, wg, backend, store, c.HealthCheckInterval, logger), nil
}

// NewStorageManagerWithStore wraps an already-open store. A positive healthInterval
// starts a health monitor when the store implements storage.HealthChecker.
func NewStorageManagerWithStore(ctx context.Context, wg *sync.WaitGroup, backend string, store storage.SampleStore, healthInterval time.Duration, logger *zap.SugaredLogger) *StorageManager {
	s := &StorageManager{
		Backend:           backend,
		Store:             store,
		Health:            storage.NewHealthManager(),
		SampleDistributor: make(chan types.RadiationSample, 20),
		logger:            logger,
		sinks:             make(map[string]chan types.RadiationSample),
	}

	if checker, ok := store.(storage.HealthChecker); ok && healthInterval > 0 {
		storage.StartHealthMonitor(ctx, s.Health, backend, checker, healthInterval)
	}

	wg.Add(1)
	go s.startSampleDistributor(ctx, wg)

	logger.Infof("%s storage backend ready", backend)
	return s
}

// RegisterSink returns an ID and a channel that receives every sample published
// after registration. Slow sinks miss samples rather than stall the distributor.
func (s *StorageManager) RegisterSink() (string, <-chan types.RadiationSample) {
	id := uuid.NewString()
	ch := make(chan types.RadiationSample, sinkBuffer)

	s.mu.Lock()
	s.sinks[id] = ch
	s.mu.Unlock()

	s.logger.Debugf("registered sample sink %s", id)
	return id, ch
}

// DeregisterSink removes and closes the sink with the given ID
func (s *StorageManager) DeregisterSink(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.sinks[id]; ok {
		delete(s.sinks, id)
		close(ch)
		s.logger.Debugf("deregistered sample sink %s", id)
	}
}

// SinkCount returns the number of registered sinks
func (s *StorageManager) SinkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sinks)
}

// DroppedSamples counts samples a full sink could not accept
func (s *StorageManager) DroppedSamples() uint64 {
	return s.dropped.Load()
}

// Close closes the history backend
func (s *StorageManager) Close() error {
	if err := s.Store.Close(); err != nil {
		return fmt.Errorf("error closing %s storage: %w", s.Backend, err)
	}
	return nil
}

// startSampleDistributor receives reported samples and fans them out to the registered sinks
func (s *StorageManager) startSampleDistributor(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case sample := <-s.SampleDistributor:
			s.mu.RLock()
			for id, ch := range s.sinks {
				select {
				case ch <- sample:
				default:
					s.dropped.Inc()
					s.logger.Warnf("sample sink %s is full; dropping sample for window %s", id, sample.WindowStart)
				}
			}
			s.mu.RUnlock()
		case <-ctx.Done():
			s.mu.Lock()
			for id, ch := range s.sinks {
				delete(s.sinks, id)
				close(ch)
			}
			s.mu.Unlock()
			return
		}
	}
}
