package main

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chrissnell/radmon/internal/types"
)

func TestServerStreamsReadings(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{Interval: 5 * time.Millisecond, GammaMean: 3, Logger: zap.NewNop().Sugar()}

	done := make(chan struct{})
	go func() {
		srv.Serve(ctx, lis)
		close(done)
	}()

	conn, err := net.Dial("tcp", lis.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for i := 0; i < 3; i++ {
		require.True(t, scanner.Scan())
		r, err := types.ParseReading(scanner.Bytes())
		require.NoError(t, err)
		assert.Zero(t, r.Alpha)
		assert.Zero(t, r.Beta)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
