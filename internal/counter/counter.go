package counter

import (
	"sync"
	"time"

	"github.com/chrissnell/radmon/internal/clock"
	"github.com/chrissnell/radmon/internal/types"
)

// RateCounter counts particle readings from many goroutines and reports the average
// detection rate since the previous report.
//
// The mutex guards only the pointer to the active window. CloseAndReport swaps in a
// fresh window under the lock and does the rate arithmetic on the detached window
// after releasing it, so writers are never held up by a report.
type RateCounter struct {
	clock  clock.Clock
	mu     sync.Mutex
	active *Window
}

// New creates a RateCounter whose first window opens now
func New(clk clock.Clock) *RateCounter {
	return &RateCounter{
		clock:  clk,
		active: NewWindow(clk),
	}
}

// Record adds a reading to the active window
func (c *RateCounter) Record(r types.ParticleReading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.Record(r)
}

// CloseAndReport closes the active window, opens the next one, and returns the
// closed window's sample. The next window starts at the clock reading taken during
// the swap, so consecutive windows are contiguous.
func (c *RateCounter) CloseAndReport() (types.RadiationSample, error) {
	c.mu.Lock()
	closing := c.active
	c.active = NewWindow(c.clock)
	c.mu.Unlock()

	// closing is now private to this goroutine
	return closing.Finalize()
}

// ActiveWindowStart returns the start time of the window currently accumulating
func (c *RateCounter) ActiveWindowStart() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.Start()
}
