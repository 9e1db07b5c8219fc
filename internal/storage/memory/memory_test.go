package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/radmon/internal/storage"
	"github.com/chrissnell/radmon/internal/storage/storagetest"
	"github.com/chrissnell/radmon/internal/types"
)

func TestSampleStore(t *testing.T) {
	storagetest.RunSampleStore(t, func(t *testing.T) storage.SampleStore {
		return New()
	})
}

func TestListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := New()
	s := storagetest.Sample(0)
	require.NoError(t, st.AppendSample(ctx, &s))

	got, err := st.ListSamples(ctx, types.SampleQuery{})
	require.NoError(t, err)
	got[0].AlphaRate = 99

	again, err := st.ListSamples(ctx, types.SampleQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, again[0].AlphaRate)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	st := New()
	assert.Equal(t, storage.StatusHealthy, st.CheckHealth(ctx).Status)

	require.NoError(t, st.Close())

	s := storagetest.Sample(0)
	assert.True(t, errors.Is(st.AppendSample(ctx, &s), storage.ErrClosed))
	_, err := st.ListSamples(ctx, types.SampleQuery{})
	assert.True(t, errors.Is(err, storage.ErrClosed))
	assert.Equal(t, storage.StatusUnhealthy, st.CheckHealth(ctx).Status)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().ListSamples(ctx, types.SampleQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
