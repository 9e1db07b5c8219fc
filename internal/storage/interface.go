// Package storage defines interfaces and implementations for radiation sample history backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/chrissnell/radmon/internal/types"
)

// ErrClosed is returned by a store that has been closed
var ErrClosed = errors.New("storage closed")

// SampleStore is the history of closed counting windows. Implementations assign
// each appended sample an ID that increases monotonically within the store.
type SampleStore interface {
	AppendSample(ctx context.Context, s *types.RadiationSample) error
	// ListSamples returns matching samples in ascending ID order. A positive
	// q.Limit keeps only the most recent q.Limit of them.
	ListSamples(ctx context.Context, q types.SampleQuery) ([]types.RadiationSample, error)
	Close() error
}

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthData is the result of a single backend health check
type HealthData struct {
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// HealthChecker defines the interface for storage backends to implement health checks
type HealthChecker interface {
	CheckHealth(ctx context.Context) *HealthData
}

// LimitTail trims samples to the last n entries when n is positive
func LimitTail(samples []types.RadiationSample, n int) []types.RadiationSample {
	if n > 0 && len(samples) > n {
		return samples[len(samples)-n:]
	}
	return samples
}
