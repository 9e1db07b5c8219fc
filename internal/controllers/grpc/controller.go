// Package grpc serves the radiation counter over gRPC.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chrissnell/radmon/internal/storage"
	"github.com/chrissnell/radmon/internal/types"
	"github.com/chrissnell/radmon/pkg/config"
)

// Recorder is what the service needs from the monitor
type Recorder interface {
	Record(r types.ParticleReading) error
	Report(ctx context.Context) (types.RadiationSample, error)
}

// SinkRegistry hands out live sample subscriptions
type SinkRegistry interface {
	RegisterSink() (string, <-chan types.RadiationSample)
	DeregisterSink(id string)
}

// Controller represents the gRPC controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	Server     *grpc.Server
	GRPCConfig config.GRPCData
	recorder   Recorder
	sinks      SinkRegistry
	health     *health.Server
	logger     *zap.SugaredLogger
	streams    atomic.Int32
}

// NewController creates a new gRPC controller instance
func NewController(ctx context.Context, wg *sync.WaitGroup, gc config.GRPCData, recorder Recorder, sinks SinkRegistry, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		GRPCConfig: gc,
		recorder:   recorder,
		sinks:      sinks,
		health:     health.NewServer(),
		logger:     logger,
	}

	// Create gRPC server with optional TLS
	if gc.Cert != "" && gc.Key != "" {
		creds, err := credentials.NewServerTLSFromFile(gc.Cert, gc.Key)
		if err != nil {
			return nil, fmt.Errorf("could not create TLS server from keypair: %w", err)
		}
		ctrl.Server = grpc.NewServer(grpc.Creds(creds))
	} else {
		ctrl.Server = grpc.NewServer()
	}

	ctrl.Server.RegisterService(&RadiationServiceDesc, ctrl)
	healthpb.RegisterHealthServer(ctrl.Server, ctrl.health)
	ctrl.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return ctrl, nil
}

// StartController listens on the configured address and serves until ctx is cancelled
func (c *Controller) StartController() error {
	listenAddr := fmt.Sprintf("%s:%d", c.GRPCConfig.ListenAddr, c.GRPCConfig.Port)
	l, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("gRPC controller could not create listener: %w", err)
	}

	c.logger.Infof("gRPC controller listening on %s", listenAddr)
	c.Serve(l)
	return nil
}

// Serve serves on l in the background and stops gracefully when ctx is cancelled
func (c *Controller) Serve(l net.Listener) {
	c.wg.Add(2)

	go func() {
		defer c.wg.Done()
		if err := c.Server.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			c.logger.Errorf("gRPC controller serve error: %v", err)
		}
	}()

	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		c.StopController()
	}()
}

// StopController stops the gRPC controller
func (c *Controller) StopController() {
	c.logger.Info("Stopping gRPC controller...")
	c.health.Shutdown()
	c.Server.GracefulStop()
}

// ActiveStreams returns the number of connected LiveSamples subscribers
func (c *Controller) ActiveStreams() int32 {
	return c.streams.Load()
}

// RecordReading adds one reading to the active window
func (c *Controller) RecordReading(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	r, err := ReadingFromStruct(in)
	if err != nil {
		return nil, err
	}
	if err := c.recorder.Record(r); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &emptypb.Empty{}, nil
}

// CloseWindow closes the active window and returns the stored sample
func (c *Controller) CloseWindow(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sample, err := c.recorder.Report(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrClosed) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	out, err := SampleToStruct(sample)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// LiveSamples streams every reported sample until the client goes away
func (c *Controller) LiveSamples(_ *emptypb.Empty, stream grpc.ServerStream) error {
	if c.sinks == nil {
		return status.Error(codes.Unimplemented, "live samples are not available")
	}

	id, samples := c.sinks.RegisterSink()
	defer c.sinks.DeregisterSink(id)

	c.streams.Inc()
	defer c.streams.Dec()

	client := "unknown"
	if p, ok := peer.FromContext(stream.Context()); ok {
		client = p.Addr.String()
	}
	c.logger.Infof("gRPC live sample subscriber %s connected from %s", id, client)

	for {
		select {
		case sample, ok := <-samples:
			if !ok {
				return nil
			}
			msg, err := SampleToStruct(sample)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.SendMsg(msg); err != nil {
				c.logger.Infof("gRPC live sample subscriber %s went away: %v", id, err)
				return err
			}
		case <-stream.Context().Done():
			c.logger.Infof("gRPC live sample subscriber %s disconnected", id)
			return nil
		case <-c.ctx.Done():
			return nil
		}
	}
}
