// Package referenceframe converts points between coordinate frames. A frame is either fixed
// relative to the reference frame or moves over time along a trajectory; frames are applied to a
// point in a configured order by a Chain.
package referenceframe

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	spatial "go.viam.com/pointsframe/spatialmath"
	"go.viam.com/pointsframe/trajectory"
)

// Direction says which way a frame converts points.
type Direction int

const (
	// From converts points expressed in the frame into the reference frame.
	From Direction = iota
	// To converts points expressed in the reference frame into the frame.
	To
)

func (d Direction) String() string {
	switch d {
	case From:
		return "from"
	case To:
		return "to"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection returns the Direction named by s.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "from":
		return From, nil
	case "to":
		return To, nil
	default:
		return From, errors.Errorf("unknown direction %q, expected \"from\" or \"to\"", s)
	}
}

// Status is the disposition of a point after a conversion.
type Status int

const (
	// Converted means the point was converted and should be emitted.
	Converted Status = iota
	// Discarded means the point was dropped under the discard policy and the stream continues.
	Discarded
	// Fatal means the stream must stop.
	Fatal
)

func (s Status) String() string {
	switch s {
	case Converted:
		return "converted"
	case Discarded:
		return "discarded"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of converting a point through one frame. Pose is the frame's pose at the
// point's time and is only set when the frame emits its pose. Err explains a Discarded or Fatal
// outcome.
type Outcome struct {
	Status Status
	Point  Point
	Pose   spatial.Pose
	Err    error
}

// Frame represents a reference frame that points can be converted through.
type Frame interface {
	// Name returns the name of the frame.
	Name() string

	// Direction returns whether points are converted from or to this frame.
	Direction() Direction

	// EmitsPose returns whether the frame's pose is appended to each converted point.
	EmitsPose() bool

	// TimeVarying returns whether the frame's pose depends on the point's timestamp.
	TimeVarying() bool

	// Convert converts a single point through the frame.
	Convert(pt Point) Outcome
}

// a static Frame is a simple coordinate system that encodes a fixed translation and rotation
// relative to the reference frame.
type staticFrame struct {
	name      string
	pose      spatial.Pose
	direction Direction
	emitPose  bool
}

// NewStaticFrame creates a frame given its pose relative to the reference frame. The pose is fixed
// for all time. Pose is not allowed to be nil.
func NewStaticFrame(name string, pose spatial.Pose, direction Direction, emitPose bool) (Frame, error) {
	if pose == nil {
		return nil, NewPoseMissingError(name)
	}
	return &staticFrame{name: name, pose: pose, direction: direction, emitPose: emitPose}, nil
}

// Name is the name of the frame.
func (sf *staticFrame) Name() string {
	return sf.name
}

func (sf *staticFrame) Direction() Direction {
	return sf.direction
}

func (sf *staticFrame) EmitsPose() bool {
	return sf.emitPose
}

// TimeVarying is always false for a static frame.
func (sf *staticFrame) TimeVarying() bool {
	return false
}

// Convert always succeeds for a static frame.
func (sf *staticFrame) Convert(pt Point) Outcome {
	return converted(pt, sf.pose, sf.direction, sf.emitPose)
}

// TrajectoryFrame is a Frame backed by a trajectory log.
type TrajectoryFrame interface {
	Frame
	Source() *trajectory.Source
}

// a trajectory Frame is a frame whose pose relative to the reference frame is read from a time
// ordered log and evaluated at each point's timestamp.
type trajectoryFrame struct {
	name      string
	source    *trajectory.Source
	direction Direction
	emitPose  bool
	discard   bool
}

// NewTrajectoryFrame creates a time-varying frame backed by source. When discard is true, points
// the trajectory cannot place (gap exceeded or out of range) are discarded instead of stopping the
// stream.
func NewTrajectoryFrame(name string, source *trajectory.Source, direction Direction, emitPose, discard bool) (TrajectoryFrame, error) {
	if source == nil {
		return nil, errors.Errorf("frame %q: trajectory source is not allowed to be nil", name)
	}
	return &trajectoryFrame{
		name:      name,
		source:    source,
		direction: direction,
		emitPose:  emitPose,
		discard:   discard,
	}, nil
}

// Name is the name of the frame.
func (tf *trajectoryFrame) Name() string {
	return tf.name
}

func (tf *trajectoryFrame) Direction() Direction {
	return tf.direction
}

func (tf *trajectoryFrame) EmitsPose() bool {
	return tf.emitPose
}

// TimeVarying is always true for a trajectory frame.
func (tf *trajectoryFrame) TimeVarying() bool {
	return true
}

// Convert looks up the frame's pose at the point's timestamp and applies it.
func (tf *trajectoryFrame) Convert(pt Point) Outcome {
	if !pt.HasTime {
		return Outcome{Status: Fatal, Err: errors.Wrapf(ErrMissingTimestamp, "frame %q", tf.name)}
	}
	res, err := tf.source.AdvanceTo(pt.Time)
	if err != nil {
		return Outcome{Status: Fatal, Err: errors.Wrapf(err, "frame %q", tf.name)}
	}

	if res.Found() {
		return converted(pt, res.Pose, tf.direction, tf.emitPose)
	}

	switch res.Kind {
	case trajectory.GapExceeded:
		err = &GapError{
			Frame:  tf.name,
			Time:   pt.Time,
			Prev:   res.Prev.Time,
			Next:   res.Next.Time,
			MaxGap: tf.source.Options().MaxGap,
		}
	default:
		oor := &OutOfRangeError{Frame: tf.name, Time: pt.Time}
		if res.Next != nil {
			oor.Last, oor.HasLast = res.Next.Time, true
		}
		err = oor
	}
	if tf.discard {
		return Outcome{Status: Discarded, Err: err}
	}
	return Outcome{Status: Fatal, Err: err}
}

// Source returns the trajectory the frame reads its poses from.
func (tf *trajectoryFrame) Source() *trajectory.Source {
	return tf.source
}

// Close releases the trajectory log.
func (tf *trajectoryFrame) Close() error {
	return tf.source.Close()
}

// converted applies pose to pt in the given direction.
func converted(pt Point, pose spatial.Pose, direction Direction, emitPose bool) Outcome {
	out := pt
	if direction == From {
		out.Position = spatial.TransformPoint(pose, pt.Position)
		if pt.Orientation != nil {
			out.Orientation = spatial.ComposeOrientations(pose.Orientation(), pt.Orientation)
		}
	} else {
		out.Position = spatial.InverseTransformPoint(pose, pt.Position)
		if pt.Orientation != nil {
			out.Orientation = spatial.ComposeOrientations(spatial.OrientationInverse(pose.Orientation()), pt.Orientation)
		}
	}
	o := Outcome{Status: Converted, Point: out}
	if emitPose {
		o.Pose = pose
	}
	return o
}
