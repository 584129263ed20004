package referenceframe

import (
	"io"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	spatial "go.viam.com/pointsframe/spatialmath"
)

// ChainOutcome is the result of converting a point through every frame of a chain. Poses holds the
// pose of each pose emitting frame in chain order. Frame names the frame that discarded the point
// or failed.
type ChainOutcome struct {
	Status Status
	Point  Point
	Poses  []spatial.Pose
	Frame  string
	Err    error
}

// Chain is an ordered list of frames applied one after another to each point.
type Chain struct {
	frames []Frame
}

// NewChain returns a chain applying frames in the order given.
func NewChain(frames ...Frame) *Chain {
	return &Chain{frames: frames}
}

// Frames returns the frames of the chain in application order.
func (c *Chain) Frames() []Frame {
	return c.frames
}

// RequiresTimestamp reports whether any frame of the chain is time-varying, in which case every
// point must carry a timestamp.
func (c *Chain) RequiresTimestamp() bool {
	return lo.SomeBy(c.frames, Frame.TimeVarying)
}

// EmittedPoseCount returns how many poses are appended to each converted point.
func (c *Chain) EmittedPoseCount() int {
	return lo.CountBy(c.frames, Frame.EmitsPose)
}

// Convert applies every frame of the chain to pt. The first frame that discards the point or fails
// stops the chain; no partially converted point is returned.
func (c *Chain) Convert(pt Point) ChainOutcome {
	var poses []spatial.Pose
	for _, f := range c.frames {
		out := f.Convert(pt)
		if out.Status != Converted {
			return ChainOutcome{Status: out.Status, Frame: f.Name(), Err: out.Err}
		}
		pt = out.Point
		if out.Pose != nil {
			poses = append(poses, out.Pose)
		}
	}
	return ChainOutcome{Status: Converted, Point: pt, Poses: poses}
}

// Close closes any trajectory logs held by the chain's frames.
func (c *Chain) Close() error {
	closers := lo.FilterMap(c.frames, func(f Frame, _ int) (io.Closer, bool) {
		closer, ok := f.(io.Closer)
		return closer, ok
	})
	var err error
	for _, closer := range closers {
		err = multierr.Combine(err, closer.Close())
	}
	return err
}

// String describes the chain, e.g. "from nav.csv + to 1,2,3".
func (c *Chain) String() string {
	return strings.Join(lo.Map(c.frames, func(f Frame, _ int) string {
		return f.Direction().String() + " " + f.Name()
	}), " + ")
}
