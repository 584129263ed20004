package referenceframe

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrMissingTimestamp is returned when a point without a timestamp reaches a time-varying frame.
var ErrMissingTimestamp = errors.New("point has no timestamp")

// GapError is returned when the trajectory records around a point's timestamp are further apart
// than the allowed maximum gap.
type GapError struct {
	Frame      string
	Time       time.Time
	Prev, Next time.Time
	MaxGap     time.Duration
}

func (e *GapError) Error() string {
	return fmt.Sprintf("frame %q: gap of %s between trajectory records at %s and %s exceeds %s for point at %s",
		e.Frame, e.Next.Sub(e.Prev), formatTime(e.Prev), formatTime(e.Next), e.MaxGap, formatTime(e.Time))
}

// OutOfRangeError is returned when a point's timestamp is not covered by a frame's trajectory.
// Last is the latest record the trajectory had reached; HasLast is false if it had none.
type OutOfRangeError struct {
	Frame   string
	Time    time.Time
	Last    time.Time
	HasLast bool
}

func (e *OutOfRangeError) Error() string {
	if !e.HasLast {
		return fmt.Sprintf("frame %q: no trajectory record for point at %s", e.Frame, formatTime(e.Time))
	}
	return fmt.Sprintf("frame %q: point at %s is outside the trajectory window ending at %s",
		e.Frame, formatTime(e.Time), formatTime(e.Last))
}

// NewPoseMissingError returns an error indicating that a static frame was given no pose.
func NewPoseMissingError(name string) error {
	return errors.Errorf("frame %q: pose is not allowed to be nil", name)
}

func formatTime(t time.Time) string {
	return t.UTC().Format("20060102T150405.999999")
}
