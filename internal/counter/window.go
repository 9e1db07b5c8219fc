// Package counter implements the windowed accumulate-and-reset radiation counter.
package counter

import (
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/radmon/internal/clock"
	"github.com/chrissnell/radmon/internal/types"
)

// ErrInvalidState is returned when a Window is used after it has been finalized.
var ErrInvalidState = errors.New("invalid counter state")

// Window accumulates particle readings over a single counting interval. The interval
// opens when the Window is created and closes when Finalize is called; after that the
// Window accepts nothing further, which is what prevents a reading from being counted
// in two reported samples.
//
// A Window is not safe for concurrent use. RateCounter serializes access to the active
// window and hands the detached one to a single goroutine for finalization.
type Window struct {
	clock       clock.Clock
	start       time.Time
	closed      bool
	sampleCount int64
	alpha       uint64
	beta        uint64
	gamma       uint64
}

// NewWindow opens a window starting at clk.Now()
func NewWindow(clk clock.Clock) *Window {
	return &Window{
		clock: clk,
		start: clk.Now(),
	}
}

// Record folds a reading into the window's running totals
func (w *Window) Record(r types.ParticleReading) error {
	if w.closed {
		return fmt.Errorf("%w: reading recorded after window starting %v was finalized", ErrInvalidState, w.start)
	}

	w.sampleCount++
	w.alpha += r.Alpha
	w.beta += r.Beta
	w.gamma += r.Gamma
	return nil
}

// Finalize closes the window and computes the average per-second rate of each channel
// between the window's start and now. It may only be called once.
func (w *Window) Finalize() (types.RadiationSample, error) {
	if w.closed {
		return types.RadiationSample{}, fmt.Errorf("%w: window starting %v finalized twice", ErrInvalidState, w.start)
	}
	w.closed = true

	now := w.clock.Now()
	sample := types.RadiationSample{
		WindowStart: w.start,
		SampleCount: w.sampleCount,
	}

	// A window with no measurable duration reports zero, not an extrapolated spike.
	seconds := now.Sub(w.start).Seconds()
	if seconds > 0 {
		sample.AlphaRate = float64(w.alpha) / seconds
		sample.BetaRate = float64(w.beta) / seconds
		sample.GammaRate = float64(w.gamma) / seconds
	}

	return sample, nil
}

// Start returns the time the window opened
func (w *Window) Start() time.Time {
	return w.start
}

// SampleCount returns the number of readings recorded so far
func (w *Window) SampleCount() int64 {
	return w.sampleCount
}

// Closed reports whether Finalize has been called
func (w *Window) Closed() bool {
	return w.closed
}
