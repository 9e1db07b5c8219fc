package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chrissnell/radmon/internal/clock"
	"github.com/chrissnell/radmon/internal/counter"
	"github.com/chrissnell/radmon/internal/monitor"
	"github.com/chrissnell/radmon/internal/storage/memory"
	"github.com/chrissnell/radmon/internal/types"
	"github.com/chrissnell/radmon/pkg/config"
)

var t0 = time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC)

// hub is a minimal SinkRegistry fed from the monitor's distributor channel
type hub struct {
	mu    sync.Mutex
	next  int
	sinks map[string]chan types.RadiationSample
}

func (h *hub) RegisterSink() (string, <-chan types.RadiationSample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := fmt.Sprintf("sink-%d", h.next)
	ch := make(chan types.RadiationSample, 4)
	h.sinks[id] = ch
	return id, ch
}

func (h *hub) DeregisterSink(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.sinks[id]; ok {
		delete(h.sinks, id)
		close(ch)
	}
}

func (h *hub) run(ctx context.Context, in <-chan types.RadiationSample) {
	for {
		select {
		case s := <-in:
			h.mu.Lock()
			for _, ch := range h.sinks {
				ch <- s
			}
			h.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

type fixture struct {
	client *Client
	conn   *grpc.ClientConn
	ctrl   *Controller
	clock  *clock.Manual
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	logger := zap.NewNop().Sugar()

	clk := clock.NewManual(t0)
	dist := make(chan types.RadiationSample, 4)
	sinks := &hub{sinks: make(map[string]chan types.RadiationSample)}
	go sinks.run(ctx, dist)
	mon := monitor.New(counter.New(clk), memory.New(), dist, logger)

	ctrl, err := NewController(ctx, &wg, config.GRPCData{}, mon, sinks, logger)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctrl.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		wg.Wait()
	})

	return &fixture{client: NewClient(conn), conn: conn, ctrl: ctrl, clock: clk}
}

func TestRecordAndCloseWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.client.RecordReading(ctx, types.ParticleReading{Alpha: 3, Beta: 6, Gamma: 9}))
	require.NoError(t, f.client.RecordReading(ctx, types.ParticleReading{Alpha: 1}))
	f.clock.Advance(4 * time.Second)

	sample, err := f.client.CloseWindow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sample.ID)
	assert.True(t, sample.WindowStart.Equal(t0))
	assert.Equal(t, int64(2), sample.SampleCount)
	assert.InDelta(t, 1.0, sample.AlphaRate, 1e-9)
	assert.InDelta(t, 1.5, sample.BetaRate, 1e-9)
	assert.InDelta(t, 2.25, sample.GammaRate, 1e-9)
}

func TestRecordReadingValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		fields map[string]any
		code   codes.Code
	}{
		{"missing fields", map[string]any{"beta": 2}, codes.OK},
		{"negative", map[string]any{"alpha": -1}, codes.InvalidArgument},
		{"fraction", map[string]any{"gamma": 0.5}, codes.InvalidArgument},
		{"string", map[string]any{"alpha": "1"}, codes.InvalidArgument},
		{"unknown field", map[string]any{"muon": 1}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := structpb.NewStruct(tt.fields)
			require.NoError(t, err)
			err = f.client.RecordRaw(context.Background(), in)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestLiveSamples(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := f.client.LiveSamples(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.ctrl.ActiveStreams() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.client.RecordReading(context.Background(), types.ParticleReading{Gamma: 5}))
	f.clock.Advance(time.Second)
	closed, err := f.client.CloseWindow(context.Background())
	require.NoError(t, err)

	got, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, closed.ID, got.ID)
	assert.InDelta(t, 5.0, got.GammaRate, 1e-9)

	cancel()
	require.Eventually(t, func() bool { return f.ctrl.ActiveStreams() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHealthService(t *testing.T) {
	f := newFixture(t)

	resp, err := healthpb.NewHealthClient(f.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestSampleStructRoundTrip(t *testing.T) {
	in := types.RadiationSample{
		ID:          42,
		WindowStart: t0.Add(1500 * time.Millisecond),
		SampleCount: 7,
		AlphaRate:   0.125,
		BetaRate:    3,
		GammaRate:   11.5,
	}

	st, err := SampleToStruct(in)
	require.NoError(t, err)
	out, err := StructToSample(st)
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.WindowStart.Equal(out.WindowStart))
	assert.Equal(t, in.SampleCount, out.SampleCount)
	assert.Equal(t, in.AlphaRate, out.AlphaRate)
	assert.Equal(t, in.GammaRate, out.GammaRate)
}
