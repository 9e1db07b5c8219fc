package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chrissnell/radmon/internal/types"
)

// Client calls the radmon.v1.Radiation service over an existing connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// RecordReading sends one reading
func (c *Client) RecordReading(ctx context.Context, r types.ParticleReading, opts ...grpc.CallOption) error {
	out := new(emptypb.Empty)
	return c.cc.Invoke(ctx, RecordReadingMethod, ReadingToStruct(r), out, opts...)
}

// RecordRaw sends an arbitrary Struct as a reading
func (c *Client) RecordRaw(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) error {
	out := new(emptypb.Empty)
	return c.cc.Invoke(ctx, RecordReadingMethod, in, out, opts...)
}

// CloseWindow closes the active window and returns the stored sample
func (c *Client) CloseWindow(ctx context.Context, opts ...grpc.CallOption) (types.RadiationSample, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CloseWindowMethod, new(emptypb.Empty), out, opts...); err != nil {
		return types.RadiationSample{}, err
	}
	return StructToSample(out)
}

// SampleStream receives samples from LiveSamples
type SampleStream struct {
	stream grpc.ClientStream
}

// Recv blocks until the next sample arrives
func (s *SampleStream) Recv() (types.RadiationSample, error) {
	m := new(structpb.Struct)
	if err := s.stream.RecvMsg(m); err != nil {
		return types.RadiationSample{}, err
	}
	return StructToSample(m)
}

// LiveSamples subscribes to every sample reported from now on. Cancel ctx to stop.
func (c *Client) LiveSamples(ctx context.Context, opts ...grpc.CallOption) (*SampleStream, error) {
	stream, err := c.cc.NewStream(ctx, &RadiationServiceDesc.Streams[0], LiveSamplesMethod, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(new(emptypb.Empty)); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SampleStream{stream: stream}, nil
}
