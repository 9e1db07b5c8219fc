// Package types holds the values that flow between the counter, storage and transports.
package types

import "time"

// ParticleReading is a single detector event: the number of alpha, beta and gamma
// particles seen since the detector's previous report.
type ParticleReading struct {
	Alpha uint64 `json:"alpha"`
	Beta  uint64 `json:"beta"`
	Gamma uint64 `json:"gamma"`
}

// RadiationSample is the immutable result of closing a counting window. The rates are
// average particles per second over the window.
type RadiationSample struct {
	// Surrogate key, assigned by storage
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	WindowStart time.Time `gorm:"column:window_start;primaryKey" json:"window_start"`
	SampleCount int64     `gorm:"column:sample_count" json:"sample_count"`
	AlphaRate   float64   `gorm:"column:alpha_rate" json:"alpha_rate"`
	BetaRate    float64   `gorm:"column:beta_rate" json:"beta_rate"`
	GammaRate   float64   `gorm:"column:gamma_rate" json:"gamma_rate"`
}

// TableName implements the GORM Tabler interface
func (RadiationSample) TableName() string {
	return "radiation_samples"
}

// SampleQuery narrows a history lookup. Zero values mean unbounded.
type SampleQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

// Matches reports whether s falls within the query's time bounds
func (q SampleQuery) Matches(s RadiationSample) bool {
	if !q.From.IsZero() && s.WindowStart.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && s.WindowStart.After(q.To) {
		return false
	}
	return true
}
