package managers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chrissnell/radmon/internal/types"
	"github.com/chrissnell/radmon/pkg/config"
)

type countingRecorder struct {
	mu sync.Mutex
	n  int
}

func (c *countingRecorder) Record(types.ParticleReading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func (c *countingRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestDetectorManager(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	rec := &countingRecorder{}

	cfgs := []config.DetectorData{
		{Name: "bench", Type: config.DetectorSimulator, Enabled: true, Simulator: config.SimulatorData{Interval: 5 * time.Millisecond, GammaMean: 2}},
		{Name: "spare", Type: config.DetectorSimulator, Enabled: false, Simulator: config.SimulatorData{Interval: time.Second}},
		{Name: "lab", Type: config.DetectorSerial, Enabled: true, Hostname: "127.0.0.1", Port: "1"},
	}

	dm, err := NewDetectorManager(ctx, &wg, cfgs, rec, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, []string{"bench", "lab"}, dm.Names())
	assert.Nil(t, dm.GetDetector("spare"))
	require.NotNil(t, dm.GetDetector("bench"))

	require.NoError(t, dm.StartDetectors())
	require.Eventually(t, func() bool { return rec.count() > 0 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestDetectorManagerRejectsUnknownType(t *testing.T) {
	var wg sync.WaitGroup
	_, err := NewDetectorManager(context.Background(), &wg,
		[]config.DetectorData{{Name: "x", Type: "usb", Enabled: true}},
		&countingRecorder{}, zap.NewNop().Sugar())
	assert.Error(t, err)
}
