// Package detectors defines the interface shared by particle detector backends.
package detectors

import (
	"github.com/chrissnell/radmon/internal/types"
)

// Detector is an interface that provides standard methods for various
// particle detector backends
type Detector interface {
	StartDetector() error
	DetectorName() string
}

// Recorder receives the readings a detector produces
type Recorder interface {
	Record(r types.ParticleReading) error
}
