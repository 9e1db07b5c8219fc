package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chrissnell/radmon/internal/types"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "radmon.v1.Radiation"

// Full method names, for clients and interceptors
const (
	RecordReadingMethod = "/" + ServiceName + "/RecordReading"
	CloseWindowMethod   = "/" + ServiceName + "/CloseWindow"
	LiveSamplesMethod   = "/" + ServiceName + "/LiveSamples"
)

// RadiationServer is the server API for the radmon.v1.Radiation service. Its
// messages are protobuf well-known types.
type RadiationServer interface {
	RecordReading(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	CloseWindow(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	LiveSamples(*emptypb.Empty, grpc.ServerStream) error
}

// RadiationServiceDesc describes the radmon.v1.Radiation service for grpc.Server.RegisterService
var RadiationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RadiationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecordReading", Handler: recordReadingHandler},
		{MethodName: "CloseWindow", Handler: closeWindowHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "LiveSamples", Handler: liveSamplesHandler, ServerStreams: true},
	},
	Metadata: "radmon/v1/radiation.proto",
}

func recordReadingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RadiationServer).RecordReading(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RecordReadingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RadiationServer).RecordReading(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func closeWindowHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RadiationServer).CloseWindow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CloseWindowMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RadiationServer).CloseWindow(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func liveSamplesHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RadiationServer).LiveSamples(in, stream)
}

// SampleToStruct converts a stored sample to its wire form
func SampleToStruct(s types.RadiationSample) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":           s.ID,
		"window_start": s.WindowStart.UTC().Format(time.RFC3339Nano),
		"sample_count": s.SampleCount,
		"alpha_rate":   s.AlphaRate,
		"beta_rate":    s.BetaRate,
		"gamma_rate":   s.GammaRate,
	})
}

// StructToSample is the inverse of SampleToStruct
func StructToSample(st *structpb.Struct) (types.RadiationSample, error) {
	var s types.RadiationSample
	f := st.GetFields()

	start, err := time.Parse(time.RFC3339Nano, f["window_start"].GetStringValue())
	if err != nil {
		return s, fmt.Errorf("invalid window_start: %w", err)
	}
	s.ID = uint64(f["id"].GetNumberValue())
	s.WindowStart = start
	s.SampleCount = int64(f["sample_count"].GetNumberValue())
	s.AlphaRate = f["alpha_rate"].GetNumberValue()
	s.BetaRate = f["beta_rate"].GetNumberValue()
	s.GammaRate = f["gamma_rate"].GetNumberValue()
	return s, nil
}

// ReadingFromStruct validates a RecordReading request. Missing counts are zero.
func ReadingFromStruct(st *structpb.Struct) (types.ParticleReading, error) {
	var counts [3]float64
	for name, v := range st.GetFields() {
		var idx int
		switch name {
		case "alpha":
			idx = 0
		case "beta":
			idx = 1
		case "gamma":
			idx = 2
		default:
			return types.ParticleReading{}, status.Errorf(codes.InvalidArgument, "unknown field %q", name)
		}
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
			return types.ParticleReading{}, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
		}
		counts[idx] = v.GetNumberValue()
	}

	r, err := types.ReadingFromFloats(counts[0], counts[1], counts[2])
	if err != nil {
		return types.ParticleReading{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return r, nil
}

// ReadingToStruct builds a RecordReading request
func ReadingToStruct(r types.ParticleReading) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"alpha": structpb.NewNumberValue(float64(r.Alpha)),
		"beta":  structpb.NewNumberValue(float64(r.Beta)),
		"gamma": structpb.NewNumberValue(float64(r.Gamma)),
	}}
}
