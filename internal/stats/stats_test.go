package stats

import (
	"math"
	"testing"
	"time"

	"github.com/chrissnell/radmon/internal/types"
)

const epsilon = 1e-9

func TestSummarize(t *testing.T) {
	t0 := time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		samples []types.RadiationSample
		want    Summary
	}{
		{
			name: "empty",
			want: Summary{},
		},
		{
			name: "single sample",
			samples: []types.RadiationSample{
				{WindowStart: t0, SampleCount: 6, AlphaRate: 4.5, BetaRate: 9, GammaRate: 1.5},
			},
			want: Summary{
				Windows:       1,
				TotalReadings: 6,
				First:         t0,
				Last:          t0,
				Alpha:         ChannelSummary{Mean: 4.5, Min: 4.5, Max: 4.5},
				Beta:          ChannelSummary{Mean: 9, Min: 9, Max: 9},
				Gamma:         ChannelSummary{Mean: 1.5, Min: 1.5, Max: 1.5},
			},
		},
		{
			name: "several samples out of order",
			samples: []types.RadiationSample{
				{WindowStart: t0.Add(time.Minute), SampleCount: 2, AlphaRate: 2, BetaRate: 1, GammaRate: 0},
				{WindowStart: t0, SampleCount: 3, AlphaRate: 4, BetaRate: 1, GammaRate: 0},
				{WindowStart: t0.Add(2 * time.Minute), SampleCount: 0, AlphaRate: 0, BetaRate: 1, GammaRate: 0},
			},
			want: Summary{
				Windows:       3,
				TotalReadings: 5,
				First:         t0,
				Last:          t0.Add(2 * time.Minute),
				// sample standard deviation of {2, 4, 0} is 2
				Alpha: ChannelSummary{Mean: 2, StdDev: 2, Min: 0, Max: 4},
				Beta:  ChannelSummary{Mean: 1, StdDev: 0, Min: 1, Max: 1},
				Gamma: ChannelSummary{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.samples)

			if got.Windows != tt.want.Windows || got.TotalReadings != tt.want.TotalReadings {
				t.Errorf("windows/readings = %d/%d, want %d/%d", got.Windows, got.TotalReadings, tt.want.Windows, tt.want.TotalReadings)
			}
			if !got.First.Equal(tt.want.First) || !got.Last.Equal(tt.want.Last) {
				t.Errorf("first/last = %v/%v, want %v/%v", got.First, got.Last, tt.want.First, tt.want.Last)
			}
			checkChannel(t, "alpha", got.Alpha, tt.want.Alpha)
			checkChannel(t, "beta", got.Beta, tt.want.Beta)
			checkChannel(t, "gamma", got.Gamma, tt.want.Gamma)
		})
	}
}

func checkChannel(t *testing.T, name string, got, want ChannelSummary) {
	t.Helper()
	fields := []struct {
		field     string
		got, want float64
	}{
		{"mean", got.Mean, want.Mean},
		{"stddev", got.StdDev, want.StdDev},
		{"min", got.Min, want.Min},
		{"max", got.Max, want.Max},
	}
	for _, f := range fields {
		if math.IsNaN(f.got) || math.Abs(f.got-f.want) > epsilon {
			t.Errorf("%s %s = %v, want %v", name, f.field, f.got, f.want)
		}
	}
}
