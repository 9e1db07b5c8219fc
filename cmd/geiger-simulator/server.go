package main

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/radmon/internal/detectors/simulator"
)

// Server streams newline-delimited JSON particle readings to every client that connects
type Server struct {
	Interval  time.Duration
	AlphaMean float64
	BetaMean  float64
	GammaMean float64
	Logger    *zap.SugaredLogger
}

// Serve accepts connections until ctx is cancelled, then closes the listener and
// waits for client handlers to exit
func (s *Server) Serve(ctx context.Context, listener net.Listener) {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.Logger.Errorf("Failed to accept connection: %v", err)
			continue
		}

		s.Logger.Infof("Client connected from %s", conn.RemoteAddr())
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	wg.Wait()
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	seed := uint64(time.Now().UnixNano())
	gen := simulator.NewGenerator(s.AlphaMean, s.BetaMean, s.GammaMean, rand.NewPCG(seed, seed>>1|1))
	encoder := json.NewEncoder(conn)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		r := gen.Next()
		if err := encoder.Encode(r); err != nil {
			s.Logger.Infof("Client %s went away: %v", conn.RemoteAddr(), err)
			return
		}
		s.Logger.Debugw("sent reading", "alpha", r.Alpha, "beta", r.Beta, "gamma", r.Gamma)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
