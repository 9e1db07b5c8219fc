package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chrissnell/radmon/internal/clock"
	"github.com/chrissnell/radmon/internal/counter"
	"github.com/chrissnell/radmon/internal/storage"
	"github.com/chrissnell/radmon/internal/storage/memory"
	"github.com/chrissnell/radmon/internal/types"
)

var t0 = time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC)

type failingStore struct{}

var errDiskFull = errors.New("disk full")

func (failingStore) AppendSample(context.Context, *types.RadiationSample) error { return errDiskFull }
func (failingStore) ListSamples(context.Context, types.SampleQuery) ([]types.RadiationSample, error) {
	return nil, errDiskFull
}
func (failingStore) Close() error { return nil }

func TestReportStoresAndPublishes(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewScripted(t0, t0.Add(2*time.Second), t0.Add(2*time.Second), t0.Add(3*time.Second), t0.Add(3*time.Second))
	dist := make(chan types.RadiationSample, 4)
	m := New(counter.New(clk), memory.New(), dist, zap.NewNop().Sugar())

	require.NoError(t, m.Record(types.ParticleReading{Alpha: 4, Beta: 2}))
	require.NoError(t, m.Record(types.ParticleReading{Gamma: 6}))

	first, err := m.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, int64(2), first.SampleCount)
	assert.InDelta(t, 2.0, first.AlphaRate, 1e-9)
	assert.InDelta(t, 1.0, first.BetaRate, 1e-9)
	assert.InDelta(t, 3.0, first.GammaRate, 1e-9)

	second, err := m.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.ID)
	assert.True(t, second.WindowStart.Equal(t0.Add(2*time.Second)))
	assert.Zero(t, second.SampleCount)
	assert.Equal(t, 5, clk.Calls())

	assert.Equal(t, first, <-dist)
	assert.Equal(t, second, <-dist)

	history, err := m.History(ctx, types.SampleQuery{})
	require.NoError(t, err)
	assert.Equal(t, []types.RadiationSample{first, second}, history)

	summary, err := m.Summary(ctx, types.SampleQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Windows)
	assert.Equal(t, int64(2), summary.TotalReadings)

	st := m.Stats()
	assert.Equal(t, uint64(2), st.ReadingsAccepted)
	assert.Equal(t, uint64(2), st.WindowsReported)
	assert.Zero(t, st.StoreFailures)
	assert.True(t, st.ActiveWindowStart.Equal(t0.Add(3*time.Second)))
}

func TestReportStoreFailure(t *testing.T) {
	clk := clock.NewScripted(t0, t0.Add(time.Second), t0.Add(time.Second))
	m := New(counter.New(clk), failingStore{}, nil, zap.NewNop().Sugar())
	require.NoError(t, m.Record(types.ParticleReading{Alpha: 1}))

	sample, err := m.Report(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Contains(t, err.Error(), "2018-06-01T12:00:00Z")
	assert.Equal(t, int64(1), sample.SampleCount, "closed sample is still returned")

	st := m.Stats()
	assert.Equal(t, uint64(1), st.StoreFailures)
	assert.Zero(t, st.WindowsReported)

	_, err = m.Summary(context.Background(), types.SampleQuery{})
	assert.ErrorIs(t, err, errDiskFull)
}

// ctxStore fails writes on a done context, as the SQL backends do
type ctxStore struct {
	*memory.Storage
}

func (c ctxStore) AppendSample(ctx context.Context, s *types.RadiationSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Storage.AppendSample(ctx, s)
}

func TestReportWithCancelledContext(t *testing.T) {
	tests := []struct {
		name  string
		store storage.SampleStore
	}{
		{"memory", memory.New()},
		{"context-aware store", ctxStore{memory.New()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewManual(t0)
			m := New(counter.New(clk), tt.store, nil, zap.NewNop().Sugar())
			for i := 0; i < 5; i++ {
				require.NoError(t, m.Record(types.ParticleReading{Gamma: 2}))
			}
			clk.Advance(time.Second)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			sample, err := m.Report(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(5), sample.SampleCount)

			history, err := m.History(context.Background(), types.SampleQuery{})
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, int64(5), history[0].SampleCount)
			assert.InDelta(t, 10.0, history[0].GammaRate, 1e-9)
		})
	}
}

func TestReportDoesNotBlockOnFullDistributor(t *testing.T) {
	clk := clock.NewManual(t0)
	dist := make(chan types.RadiationSample)
	m := New(counter.New(clk), memory.New(), dist, zap.NewNop().Sugar())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := m.Report(context.Background())
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Report blocked on the distributor")
	}
}

func TestStartReporter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	store := memory.New()
	m := New(counter.New(clock.System{}), store, nil, zap.NewNop().Sugar())
	m.StartReporter(ctx, &wg, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return m.Stats().WindowsReported >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()

	history, err := store.ListSamples(context.Background(), types.SampleQuery{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(history), 2)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].WindowStart.After(history[i-1].WindowStart))
	}
}

func TestStartReporterDisabled(t *testing.T) {
	var wg sync.WaitGroup
	m := New(counter.New(clock.System{}), memory.New(), nil, zap.NewNop().Sugar())
	m.StartReporter(context.Background(), &wg, 0)
	wg.Wait()
	assert.Zero(t, m.Stats().WindowsReported)
}
