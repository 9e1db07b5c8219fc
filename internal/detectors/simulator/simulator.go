// Package simulator provides a detector that emits random particle counts, for
// demos and soak tests.
package simulator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/chrissnell/radmon/internal/detectors"
	"github.com/chrissnell/radmon/internal/types"
	"github.com/chrissnell/radmon/pkg/config"
)

// Generator draws per-channel Poisson counts around fixed means
type Generator struct {
	alpha, beta, gamma *distuv.Poisson
}

// NewGenerator creates a generator. Channels with a non-positive mean always count zero.
func NewGenerator(alphaMean, betaMean, gammaMean float64, src rand.Source) *Generator {
	return &Generator{
		alpha: poisson(alphaMean, src),
		beta:  poisson(betaMean, src),
		gamma: poisson(gammaMean, src),
	}
}

func poisson(mean float64, src rand.Source) *distuv.Poisson {
	if mean <= 0 {
		return nil
	}
	return &distuv.Poisson{Lambda: mean, Src: src}
}

func draw(p *distuv.Poisson) uint64 {
	if p == nil {
		return 0
	}
	return uint64(p.Rand())
}

// Next returns a random reading
func (g *Generator) Next() types.ParticleReading {
	return types.ParticleReading{
		Alpha: draw(g.alpha),
		Beta:  draw(g.beta),
		Gamma: draw(g.gamma),
	}
}

// Detector records a generated reading on every tick
type Detector struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	config    config.DetectorData
	recorder  detectors.Recorder
	generator *Generator
	logger    *zap.SugaredLogger
}

// New creates a simulated detector seeded from the current time
func New(ctx context.Context, wg *sync.WaitGroup, cfg config.DetectorData, recorder detectors.Recorder, logger *zap.SugaredLogger) (*Detector, error) {
	seed := uint64(time.Now().UnixNano())
	return NewWithSource(ctx, wg, cfg, recorder, rand.NewPCG(seed, seed>>1|1), logger)
}

// NewWithSource creates a simulated detector drawing from src
func NewWithSource(ctx context.Context, wg *sync.WaitGroup, cfg config.DetectorData, recorder detectors.Recorder, src rand.Source, logger *zap.SugaredLogger) (*Detector, error) {
	if cfg.Simulator.Interval <= 0 {
		return nil, fmt.Errorf("simulated detector [%s] needs a positive interval", cfg.Name)
	}

	sim := cfg.Simulator
	return &Detector{
		ctx:       ctx,
		wg:        wg,
		config:    cfg,
		recorder:  recorder,
		generator: NewGenerator(sim.AlphaMean, sim.BetaMean, sim.GammaMean, src),
		logger:    logger,
	}, nil
}

// DetectorName returns the configured name
func (d *Detector) DetectorName() string {
	return d.config.Name
}

// StartDetector launches the emit loop
func (d *Detector) StartDetector() error {
	d.logger.Infof("Starting simulated detector [%s] every %v (means alpha=%.2f beta=%.2f gamma=%.2f)",
		d.config.Name, d.config.Simulator.Interval,
		d.config.Simulator.AlphaMean, d.config.Simulator.BetaMean, d.config.Simulator.GammaMean)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(d.config.Simulator.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r := d.generator.Next()
				if err := d.recorder.Record(r); err != nil {
					d.logger.Errorf("simulated detector [%s] could not record reading: %v", d.config.Name, err)
				}
			case <-d.ctx.Done():
				d.logger.Infof("cancellation request received. Stopping simulated detector [%s]", d.config.Name)
				return
			}
		}
	}()

	return nil
}
