// Package stats summarizes a run of radiation samples.
package stats

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/radmon/internal/types"
)

// ChannelSummary describes the distribution of one channel's per-window rates
type ChannelSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary describes a run of samples. Rates are unweighted: every window counts
// once regardless of its length.
type Summary struct {
	Windows       int            `json:"windows"`
	TotalReadings int64          `json:"total_readings"`
	First         time.Time      `json:"first,omitempty"`
	Last          time.Time      `json:"last,omitempty"`
	Alpha         ChannelSummary `json:"alpha"`
	Beta          ChannelSummary `json:"beta"`
	Gamma         ChannelSummary `json:"gamma"`
}

// Summarize computes a Summary over samples. An empty input gives a zero Summary.
func Summarize(samples []types.RadiationSample) Summary {
	var s Summary
	if len(samples) == 0 {
		return s
	}

	alpha := make([]float64, len(samples))
	beta := make([]float64, len(samples))
	gamma := make([]float64, len(samples))

	s.First = samples[0].WindowStart
	s.Last = samples[0].WindowStart
	for i, sample := range samples {
		s.TotalReadings += sample.SampleCount
		alpha[i] = sample.AlphaRate
		beta[i] = sample.BetaRate
		gamma[i] = sample.GammaRate

		if sample.WindowStart.Before(s.First) {
			s.First = sample.WindowStart
		}
		if sample.WindowStart.After(s.Last) {
			s.Last = sample.WindowStart
		}
	}

	s.Windows = len(samples)
	s.Alpha = summarizeChannel(alpha)
	s.Beta = summarizeChannel(beta)
	s.Gamma = summarizeChannel(gamma)
	return s
}

func summarizeChannel(rates []float64) ChannelSummary {
	var c ChannelSummary
	if len(rates) == 1 {
		// MeanStdDev yields NaN for a single observation
		c.Mean = rates[0]
	} else {
		c.Mean, c.StdDev = stat.MeanStdDev(rates, nil)
	}
	c.Min = floats.Min(rates)
	c.Max = floats.Max(rates)
	return c
}
