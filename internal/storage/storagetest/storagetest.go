// Package storagetest holds behaviour checks shared by every SampleStore implementation.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/radmon/internal/storage"
	"github.com/chrissnell/radmon/internal/types"
)

var base = time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC)

// Sample builds a sample whose window starts i minutes after a fixed base time
func Sample(i int) types.RadiationSample {
	return types.RadiationSample{
		WindowStart: base.Add(time.Duration(i) * time.Minute),
		SampleCount: int64(i + 1),
		AlphaRate:   float64(i) + 0.5,
		BetaRate:    float64(i) * 2,
		GammaRate:   0.25,
	}
}

// RunSampleStore exercises the SampleStore contract against stores built by newStore
func RunSampleStore(t *testing.T, newStore func(t *testing.T) storage.SampleStore) {
	ctx := context.Background()

	t.Run("empty history", func(t *testing.T) {
		st := newStore(t)
		got, err := st.ListSamples(ctx, types.SampleQuery{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ids increase and values round trip", func(t *testing.T) {
		st := newStore(t)
		var lastID uint64
		for i := 0; i < 5; i++ {
			s := Sample(i)
			require.NoError(t, st.AppendSample(ctx, &s))
			assert.Greater(t, s.ID, lastID)
			lastID = s.ID
		}

		got, err := st.ListSamples(ctx, types.SampleQuery{})
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i, s := range got {
			want := Sample(i)
			assert.True(t, want.WindowStart.Equal(s.WindowStart), "window start %d", i)
			assert.Equal(t, want.SampleCount, s.SampleCount)
			assert.InDelta(t, want.AlphaRate, s.AlphaRate, 1e-9)
			assert.InDelta(t, want.BetaRate, s.BetaRate, 1e-9)
			assert.InDelta(t, want.GammaRate, s.GammaRate, 1e-9)
			if i > 0 {
				assert.Greater(t, s.ID, got[i-1].ID)
			}
		}
	})

	t.Run("query bounds and limit", func(t *testing.T) {
		st := newStore(t)
		for i := 0; i < 10; i++ {
			s := Sample(i)
			require.NoError(t, st.AppendSample(ctx, &s))
		}

		tests := []struct {
			name  string
			query types.SampleQuery
			first int
			count int
		}{
			{"from inclusive", types.SampleQuery{From: Sample(7).WindowStart}, 7, 3},
			{"to inclusive", types.SampleQuery{To: Sample(2).WindowStart}, 0, 3},
			{"range", types.SampleQuery{From: Sample(3).WindowStart, To: Sample(5).WindowStart}, 3, 3},
			{"limit keeps newest", types.SampleQuery{Limit: 4}, 6, 4},
			{"range with limit", types.SampleQuery{To: Sample(5).WindowStart, Limit: 2}, 4, 2},
			{"empty range", types.SampleQuery{From: Sample(20).WindowStart}, 0, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := st.ListSamples(ctx, tt.query)
				require.NoError(t, err)
				require.Len(t, got, tt.count)
				for i, s := range got {
					assert.True(t, Sample(tt.first+i).WindowStart.Equal(s.WindowStart))
				}
			})
		}
	})
}
