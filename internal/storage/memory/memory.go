// Package memory provides a volatile, in-process radiation sample history.
package memory

import (
	"context"
	"sync"

	"github.com/chrissnell/radmon/internal/storage"
	"github.com/chrissnell/radmon/internal/types"
)

// Storage keeps samples in a slice. Samples are appended in ID order, so the
// slice is always sorted.
type Storage struct {
	mu      sync.RWMutex
	samples []types.RadiationSample
	nextID  uint64
	closed  bool
}

// New creates an empty in-memory store
func New() *Storage {
	return &Storage{nextID: 1}
}

// AppendSample assigns s the next ID and stores a copy of it
func (m *Storage) AppendSample(_ context.Context, s *types.RadiationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return storage.ErrClosed
	}

	s.ID = m.nextID
	m.nextID++
	m.samples = append(m.samples, *s)
	return nil
}

// ListSamples returns the samples matching q in ascending ID order
func (m *Storage) ListSamples(ctx context.Context, q types.SampleQuery) ([]types.RadiationSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, storage.ErrClosed
	}

	out := make([]types.RadiationSample, 0, len(m.samples))
	for _, s := range m.samples {
		if q.Matches(s) {
			out = append(out, s)
		}
	}
	return storage.LimitTail(out, q.Limit), nil
}

// CheckHealth reports the store healthy until it is closed
func (m *Storage) CheckHealth(ctx context.Context) *storage.HealthData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return storage.CreateHealthData(storage.StatusUnhealthy, "memory store closed", storage.ErrClosed)
	}
	return storage.CreateHealthData(storage.StatusHealthy, "memory store operational", nil)
}

// Close discards the history
func (m *Storage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.samples = nil
	return nil
}
