package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidReading is returned for readings that are malformed or carry negative
// or non-integral counts
var ErrInvalidReading = errors.New("invalid particle reading")

// maxExactCount is the largest count a float64 carries without loss
const maxExactCount = 1 << 53

// Counts stay raw so that quoted numbers can be told apart from JSON numbers
type wireReading struct {
	Alpha json.RawMessage `json:"alpha"`
	Beta  json.RawMessage `json:"beta"`
	Gamma json.RawMessage `json:"gamma"`
}

// ParseReading decodes a JSON object of the form {"alpha":n,"beta":n,"gamma":n}.
// Missing and null counts are zero. Unknown fields, strings, negative numbers and
// fractions are rejected.
func ParseReading(data []byte) (ParticleReading, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireReading
	if err := dec.Decode(&w); err != nil {
		return ParticleReading{}, fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}
	if dec.More() {
		return ParticleReading{}, fmt.Errorf("%w: trailing data after reading", ErrInvalidReading)
	}

	var (
		r   ParticleReading
		err error
	)
	if r.Alpha, err = parseCount("alpha", w.Alpha); err != nil {
		return ParticleReading{}, err
	}
	if r.Beta, err = parseCount("beta", w.Beta); err != nil {
		return ParticleReading{}, err
	}
	if r.Gamma, err = parseCount("gamma", w.Gamma); err != nil {
		return ParticleReading{}, err
	}
	return r, nil
}

func parseCount(field string, raw json.RawMessage) (uint64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %s", ErrInvalidReading, field, raw)
	}
	return v, nil
}

// ReadingFromFloats builds a reading from counts carried as float64, as protobuf
// Struct values are. Each count must be a non-negative integer.
func ReadingFromFloats(alpha, beta, gamma float64) (ParticleReading, error) {
	var r ParticleReading
	counts := []struct {
		field string
		value float64
		dst   *uint64
	}{
		{"alpha", alpha, &r.Alpha},
		{"beta", beta, &r.Beta},
		{"gamma", gamma, &r.Gamma},
	}
	for _, c := range counts {
		if math.IsNaN(c.value) || c.value < 0 || c.value != math.Trunc(c.value) || c.value > maxExactCount {
			return ParticleReading{}, fmt.Errorf("%w: %s must be a non-negative integer, got %v", ErrInvalidReading, c.field, c.value)
		}
		*c.dst = uint64(c.value)
	}
	return r, nil
}
