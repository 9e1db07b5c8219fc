package main

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpccontroller "github.com/chrissnell/radmon/internal/controllers/grpc"
	"github.com/chrissnell/radmon/internal/detectors/simulator"
)

// Pusher sends generated readings straight to a radmon gRPC endpoint instead of
// waiting for a detector to connect
type Pusher struct {
	Client     *grpccontroller.Client
	Interval   time.Duration
	CloseEvery time.Duration
	AlphaMean  float64
	BetaMean   float64
	GammaMean  float64
	Source     rand.Source
	Logger     *zap.SugaredLogger
}

// Run pushes a reading every Interval and, when CloseEvery is set, closes the
// server's window on that period. It returns when ctx is cancelled. Failed calls
// are logged and retried on the next tick.
func (p *Pusher) Run(ctx context.Context) {
	src := p.Source
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	gen := simulator.NewGenerator(p.AlphaMean, p.BetaMean, p.GammaMean, src)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	var closeC <-chan time.Time
	if p.CloseEvery > 0 {
		closeTicker := time.NewTicker(p.CloseEvery)
		defer closeTicker.Stop()
		closeC = closeTicker.C
	}

	for {
		select {
		case <-ticker.C:
			r := gen.Next()
			if err := p.Client.RecordReading(ctx, r); err != nil {
				if ctx.Err() != nil {
					return
				}
				p.Logger.Errorf("could not record reading: %v", err)
				continue
			}
			p.Logger.Debugw("pushed reading", "alpha", r.Alpha, "beta", r.Beta, "gamma", r.Gamma)
		case <-closeC:
			s, err := p.Client.CloseWindow(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.Logger.Errorf("could not close window: %v", err)
				continue
			}
			p.Logger.Infow("window closed",
				"id", s.ID,
				"window_start", s.WindowStart,
				"sample_count", s.SampleCount,
				"alpha_rate", s.AlphaRate,
				"beta_rate", s.BetaRate,
				"gamma_rate", s.GammaRate)
		case <-ctx.Done():
			return
		}
	}
}

// Follow logs every sample the server reports until ctx is cancelled or the
// stream ends
func Follow(ctx context.Context, client *grpccontroller.Client, logger *zap.SugaredLogger) error {
	stream, err := client.LiveSamples(ctx)
	if err != nil {
		return err
	}

	for {
		s, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			return err
		}
		logger.Infow("live sample",
			"id", s.ID,
			"window_start", s.WindowStart,
			"sample_count", s.SampleCount,
			"gamma_rate", s.GammaRate)
	}
}
