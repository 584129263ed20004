// Package pipeline streams points through a frame chain: read a point, convert it, write it, one
// at a time, until the input ends, the context is cancelled, or a fatal error occurs.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/pointsframe/logging"
	"go.viam.com/pointsframe/referenceframe"
	spatial "go.viam.com/pointsframe/spatialmath"
)

// PointReader yields input points in stream order. Read returns io.EOF at the end of input and may
// block until a point is available.
type PointReader interface {
	Read(ctx context.Context) (referenceframe.Point, error)
}

// PointWriter emits converted points along with the poses the chain attached to them.
type PointWriter interface {
	Write(pt referenceframe.Point, poses []spatial.Pose) error
	Flush() error
}

// State is the lifecycle state of a Pipeline.
type State int32

const (
	// Running means the pipeline is reading and converting points.
	Running State = iota
	// Draining means no further points will be read and the output is being flushed.
	Draining
	// Stopped means the pipeline has finished.
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Stats counts the points a pipeline has handled.
type Stats struct {
	Read      uint64
	Emitted   uint64
	Discarded uint64
}

// Pipeline drives points from a reader through a chain to a writer on the calling goroutine.
// State and Stats may be read from other goroutines while Run is in progress.
type Pipeline struct {
	chain  *referenceframe.Chain
	reader PointReader
	writer PointWriter
	logger logging.Logger

	state     atomic.Int32
	read      atomic.Uint64
	emitted   atomic.Uint64
	discarded atomic.Uint64
}

// New returns a pipeline that has not started yet.
func New(chain *referenceframe.Chain, reader PointReader, writer PointWriter, logger logging.Logger) *Pipeline {
	return &Pipeline{chain: chain, reader: reader, writer: writer, logger: logger}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Stats returns the counts so far.
func (p *Pipeline) Stats() Stats {
	return Stats{Read: p.read.Load(), Emitted: p.emitted.Load(), Discarded: p.discarded.Load()}
}

// Run processes points until the input ends or ctx is cancelled, both of which return nil, or
// until a fatal conversion or I/O error, which is returned. Cancellation is only observed between
// reads; a point read after cancellation was signalled is not converted.
func (p *Pipeline) Run(ctx context.Context) error {
	p.state.Store(int32(Running))
	defer func() {
		p.state.Store(int32(Stopped))
	}()

	for {
		if ctx.Err() != nil {
			p.logger.Debugw("shutdown requested, draining", "read", p.read.Load())
			return p.drain()
		}

		pt, err := p.reader.Read(ctx)
		if errors.Is(err, io.EOF) {
			p.logger.Debugw("end of input, draining", "read", p.read.Load())
			return p.drain()
		}
		if err != nil {
			if ctx.Err() != nil {
				// The read was interrupted by the shutdown.
				return p.drain()
			}
			return errors.Wrap(err, "failed to read point")
		}
		p.read.Inc()
		if ctx.Err() != nil {
			p.logger.Debugw("dropping point read after shutdown", "time", pt.Time)
			return p.drain()
		}

		out := p.chain.Convert(pt)
		switch out.Status {
		case referenceframe.Converted:
			if err := p.writer.Write(out.Point, out.Poses); err != nil {
				return errors.Wrap(err, "failed to write point")
			}
			if err := p.writer.Flush(); err != nil {
				return errors.Wrap(err, "failed to flush output")
			}
			p.emitted.Inc()
		case referenceframe.Discarded:
			p.discarded.Inc()
			p.logger.Debugw("discarded point", "frame", out.Frame, "reason", out.Err)
		default:
			if out.Err == nil {
				out.Err = errors.Errorf("frame %q failed", out.Frame)
			}
			return errors.Wrapf(out.Err, "failed to convert point %d", p.read.Load())
		}
	}
}

func (p *Pipeline) drain() error {
	p.state.Store(int32(Draining))
	if err := p.writer.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush output")
	}
	return nil
}
