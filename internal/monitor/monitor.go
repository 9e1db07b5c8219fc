// Package monitor connects the rate counter to history storage and live subscribers.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/chrissnell/radmon/internal/counter"
	"github.com/chrissnell/radmon/internal/stats"
	"github.com/chrissnell/radmon/internal/storage"
	"github.com/chrissnell/radmon/internal/types"
)

const storeTimeout = 10 * time.Second

// Monitor is the single entry point for readings and reports. It owns no
// counting state itself; that lives in the RateCounter.
type Monitor struct {
	counter     *counter.RateCounter
	store       storage.SampleStore
	distributor chan<- types.RadiationSample
	logger      *zap.SugaredLogger

	readings      atomic.Uint64
	windows       atomic.Uint64
	storeFailures atomic.Uint64
}

// Stats are the monitor's lifetime counters
type Stats struct {
	ReadingsAccepted  uint64    `json:"readings_accepted"`
	WindowsReported   uint64    `json:"windows_reported"`
	StoreFailures     uint64    `json:"store_failures"`
	ActiveWindowStart time.Time `json:"active_window_start"`
}

// New creates a Monitor. distributor may be nil when nothing subscribes to live samples.
func New(c *counter.RateCounter, store storage.SampleStore, distributor chan<- types.RadiationSample, logger *zap.SugaredLogger) *Monitor {
	return &Monitor{
		counter:     c,
		store:       store,
		distributor: distributor,
		logger:      logger,
	}
}

// Record adds a reading to the active window
func (m *Monitor) Record(r types.ParticleReading) error {
	if err := m.counter.Record(r); err != nil {
		return err
	}
	m.readings.Inc()
	return nil
}

// Report closes the active window, stores the resulting sample and publishes it
// to live subscribers. Cancelling ctx does not interrupt the store write. If
// storing fails the window is already closed, so the sample is returned
// alongside the error.
func (m *Monitor) Report(ctx context.Context) (types.RadiationSample, error) {
	sample, err := m.counter.CloseAndReport()
	if err != nil {
		return types.RadiationSample{}, err
	}

	// The window is already gone from the counter, so a caller that hangs up
	// must not abandon the write.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if err := m.store.AppendSample(storeCtx, &sample); err != nil {
		m.storeFailures.Inc()
		return sample, fmt.Errorf("window starting %s closed but not stored: %w", sample.WindowStart.Format(time.RFC3339Nano), err)
	}

	if m.distributor != nil {
		select {
		case m.distributor <- sample:
		default:
			m.logger.Warnf("sample distributor is full; live subscribers miss window %d", sample.ID)
		}
	}

	m.windows.Inc()
	return sample, nil
}

// History returns stored samples matching q in ascending ID order
func (m *Monitor) History(ctx context.Context, q types.SampleQuery) ([]types.RadiationSample, error) {
	return m.store.ListSamples(ctx, q)
}

// Summary computes statistics over the stored samples matching q
func (m *Monitor) Summary(ctx context.Context, q types.SampleQuery) (stats.Summary, error) {
	samples, err := m.store.ListSamples(ctx, q)
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Summarize(samples), nil
}

// Stats returns the lifetime counters
func (m *Monitor) Stats() Stats {
	return Stats{
		ReadingsAccepted:  m.readings.Load(),
		WindowsReported:   m.windows.Load(),
		StoreFailures:     m.storeFailures.Load(),
		ActiveWindowStart: m.counter.ActiveWindowStart(),
	}
}

// StartReporter closes a window every interval until ctx is cancelled. A
// non-positive interval disables it.
func (m *Monitor) StartReporter(ctx context.Context, wg *sync.WaitGroup, interval time.Duration) {
	if interval <= 0 {
		m.logger.Info("periodic reporting disabled; windows close on request only")
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		m.logger.Infof("reporting radiation rates every %v", interval)
		for {
			select {
			case <-ticker.C:
				sample, err := m.Report(ctx)
				if err != nil {
					m.logger.Errorf("error reporting window: %v", err)
					continue
				}
				m.logger.Infow("radiation window closed",
					"id", sample.ID,
					"window_start", sample.WindowStart,
					"sample_count", sample.SampleCount,
					"alpha_rate", sample.AlphaRate,
					"beta_rate", sample.BetaRate,
					"gamma_rate", sample.GammaRate,
				)
			case <-ctx.Done():
				m.logger.Info("cancellation request received. Stopping reporter.")
				return
			}
		}
	}()
}
