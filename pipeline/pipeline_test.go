package pipeline

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/pointsframe/logging"
	"go.viam.com/pointsframe/referenceframe"
	spatial "go.viam.com/pointsframe/spatialmath"
	"go.viam.com/pointsframe/trajectory"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return epoch.Add(time.Duration(seconds * float64(time.Second)))
}

type fakeReader struct {
	points []referenceframe.Point
	err    error
	// onRead is called before the n-th point (1-based) is returned.
	onRead func(n int)
	n      int
}

func (fr *fakeReader) Read(ctx context.Context) (referenceframe.Point, error) {
	if len(fr.points) == 0 {
		if fr.err != nil {
			return referenceframe.Point{}, fr.err
		}
		return referenceframe.Point{}, io.EOF
	}
	fr.n++
	if fr.onRead != nil {
		fr.onRead(fr.n)
	}
	pt := fr.points[0]
	fr.points = fr.points[1:]
	return pt, nil
}

type written struct {
	pt    referenceframe.Point
	poses []spatial.Pose
}

type fakeWriter struct {
	out      []written
	flushes  int
	writeErr error
}

func (fw *fakeWriter) Write(pt referenceframe.Point, poses []spatial.Pose) error {
	if fw.writeErr != nil {
		return fw.writeErr
	}
	fw.out = append(fw.out, written{pt, poses})
	return nil
}

func (fw *fakeWriter) Flush() error {
	fw.flushes++
	return nil
}

func points(seconds ...float64) []referenceframe.Point {
	pts := make([]referenceframe.Point, 0, len(seconds))
	for _, s := range seconds {
		pts = append(pts, referenceframe.Point{HasTime: true, Time: at(s), Position: r3.Vector{X: s}})
	}
	return pts
}

func navChain(t *testing.T, discard bool) *referenceframe.Chain {
	t.Helper()
	opts := trajectory.DefaultOptions()
	opts.MaxGap = 10 * time.Second
	src := trajectory.NewSource(trajectory.NewSliceReader(
		trajectory.Record{Time: at(0), Pose: spatial.NewZeroPose()},
		trajectory.Record{Time: at(10), Pose: spatial.NewPoseFromPoint(r3.Vector{Y: 10})},
		trajectory.Record{Time: at(100), Pose: spatial.NewPoseFromPoint(r3.Vector{Y: 100})},
	), opts, logging.NewTestLogger(t))
	nav, err := referenceframe.NewTrajectoryFrame("nav", src, referenceframe.From, true, discard)
	test.That(t, err, test.ShouldBeNil)
	return referenceframe.NewChain(nav)
}

func TestRunToEndOfInput(t *testing.T) {
	logger := logging.NewTestLogger(t)
	reader := &fakeReader{points: points(1, 2, 5)}
	writer := &fakeWriter{}
	p := New(navChain(t, false), reader, writer, logger)

	err := p.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.State(), test.ShouldEqual, Stopped)
	test.That(t, p.Stats(), test.ShouldResemble, Stats{Read: 3, Emitted: 3})

	test.That(t, writer.out, test.ShouldHaveLength, 3)
	for i, s := range []float64{1, 2, 5} {
		test.That(t, writer.out[i].pt.Time, test.ShouldEqual, at(s))
		test.That(t, writer.out[i].pt.Position.X, test.ShouldAlmostEqual, s)
		test.That(t, writer.out[i].pt.Position.Y, test.ShouldAlmostEqual, s)
		test.That(t, writer.out[i].poses, test.ShouldHaveLength, 1)
		test.That(t, writer.out[i].poses[0].Point().Y, test.ShouldAlmostEqual, s)
	}
	// One flush per point plus one when draining.
	test.That(t, writer.flushes, test.ShouldEqual, 4)
}

func TestRunDiscards(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	writer := &fakeWriter{}
	p := New(navChain(t, true), &fakeReader{points: points(5, 50, 100, 101)}, writer, logger)

	err := p.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Stats(), test.ShouldResemble, Stats{Read: 4, Emitted: 2, Discarded: 2})
	test.That(t, writer.out, test.ShouldHaveLength, 2)
	test.That(t, writer.out[0].pt.Time, test.ShouldEqual, at(5))
	test.That(t, writer.out[1].pt.Time, test.ShouldEqual, at(100))
	test.That(t, logs.FilterMessage("discarded point").Len(), test.ShouldEqual, 2)
}

func TestRunFatal(t *testing.T) {
	writer := &fakeWriter{}
	p := New(navChain(t, false), &fakeReader{points: points(5, 50, 60)}, writer, logging.NewTestLogger(t))

	err := p.Run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	var gapErr *referenceframe.GapError
	test.That(t, errors.As(err, &gapErr), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "point 2")
	test.That(t, p.State(), test.ShouldEqual, Stopped)
	test.That(t, writer.out, test.ShouldHaveLength, 1)
	test.That(t, p.Stats().Read, test.ShouldEqual, 2)
}

func TestRunIOErrors(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		reader := &fakeReader{points: points(1), err: errors.New("bad record on line 3")}
		p := New(navChain(t, false), reader, &fakeWriter{}, logging.NewTestLogger(t))
		err := p.Run(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "line 3")
		test.That(t, p.Stats().Emitted, test.ShouldEqual, 1)
	})

	t.Run("write", func(t *testing.T) {
		writer := &fakeWriter{writeErr: errors.New("broken pipe")}
		p := New(navChain(t, false), &fakeReader{points: points(1)}, writer, logging.NewTestLogger(t))
		err := p.Run(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "broken pipe")
		test.That(t, p.Stats().Emitted, test.ShouldEqual, 0)
	})
}

func TestRunShutdown(t *testing.T) {
	t.Run("between reads", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		reader := &fakeReader{points: points(1, 2, 3, 4), onRead: func(n int) {
			if n == 3 {
				cancel()
			}
		}}
		writer := &fakeWriter{}
		p := New(navChain(t, false), reader, writer, logging.NewTestLogger(t))

		err := p.Run(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, p.State(), test.ShouldEqual, Stopped)
		// The point whose read raced the shutdown is not converted.
		test.That(t, writer.out, test.ShouldHaveLength, 2)
		test.That(t, p.Stats(), test.ShouldResemble, Stats{Read: 3, Emitted: 2})
	})

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		reader := &fakeReader{points: points(1)}
		p := New(navChain(t, false), reader, &fakeWriter{}, logging.NewTestLogger(t))
		test.That(t, p.Run(ctx), test.ShouldBeNil)
		test.That(t, reader.n, test.ShouldEqual, 0)
	})
}

// blockingReader announces each read on waiting, then blocks until a point arrives.
type blockingReader struct {
	points  chan referenceframe.Point
	waiting chan struct{}
}

func (br *blockingReader) Read(ctx context.Context) (referenceframe.Point, error) {
	select {
	case <-ctx.Done():
		return referenceframe.Point{}, ctx.Err()
	case br.waiting <- struct{}{}:
	}
	select {
	case <-ctx.Done():
		return referenceframe.Point{}, ctx.Err()
	case pt, ok := <-br.points:
		if !ok {
			return referenceframe.Point{}, io.EOF
		}
		return pt, nil
	}
}

func TestRunBlockingRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &blockingReader{points: make(chan referenceframe.Point), waiting: make(chan struct{})}
	writer := &fakeWriter{}
	p := New(navChain(t, false), reader, writer, logging.NewTestLogger(t))

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = p.Run(ctx)
	}()

	<-reader.waiting
	reader.points <- points(1)[0]
	<-reader.waiting
	test.That(t, p.State(), test.ShouldEqual, Running)
	test.That(t, p.Stats().Emitted, test.ShouldEqual, 1)

	cancel()
	wg.Wait()
	test.That(t, runErr, test.ShouldBeNil)
	test.That(t, p.State(), test.ShouldEqual, Stopped)
	test.That(t, writer.out, test.ShouldHaveLength, 1)
}

func TestStateString(t *testing.T) {
	test.That(t, Running.String(), test.ShouldEqual, "running")
	test.That(t, Draining.String(), test.ShouldEqual, "draining")
	test.That(t, Stopped.String(), test.ShouldEqual, "stopped")
}
