package referenceframe

import (
	"time"

	"github.com/golang/geo/r3"

	spatial "go.viam.com/pointsframe/spatialmath"
)

// Point is one record of the stream being converted.
type Point struct {
	// Time is the observation time, only meaningful when HasTime is set.
	Time time.Time
	// HasTime is set when the record carries a timestamp. Any time, including the zero time, is
	// a valid timestamp.
	HasTime bool
	// Position is converted by every frame of a chain.
	Position r3.Vector
	// Orientation is optional and converted along with the position when set.
	Orientation spatial.Orientation
	// Payload is carried through untouched, e.g. the raw input record.
	Payload any
}
