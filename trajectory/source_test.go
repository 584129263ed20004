package trajectory

import (
	"io"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/pointsframe/logging"
	"go.viam.com/pointsframe/spatialmath"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return epoch.Add(time.Duration(seconds * float64(time.Second)))
}

func rec(seconds, x float64) Record {
	return Record{Time: at(seconds), Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: x})}
}

func TestInterpolation(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("midpoint", func(t *testing.T) {
		src := NewSource(NewSliceReader(rec(0, 0), rec(10, 10)), DefaultOptions(), logger)
		res, err := src.AdvanceTo(at(5))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, Interpolated)
		test.That(t, res.Found(), test.ShouldBeTrue)
		test.That(t, spatialmath.PoseAlmostEqual(res.Pose, spatialmath.NewPoseFromPoint(r3.Vector{X: 5})), test.ShouldBeTrue)
		test.That(t, res.Gap(), test.ShouldEqual, 10*time.Second)
	})

	t.Run("orientation is slerped", func(t *testing.T) {
		src := NewSource(NewSliceReader(
			Record{Time: at(0), Pose: spatialmath.NewPoseFromRPYDegrees(0, 0, 0, 0, 0, 0)},
			Record{Time: at(1), Pose: spatialmath.NewPoseFromRPYDegrees(2, 0, 0, 0, 0, 90)},
		), DefaultOptions(), logger)
		res, err := src.AdvanceTo(at(0.5))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, Interpolated)
		expected := spatialmath.NewPoseFromRPYDegrees(1, 0, 0, 0, 0, 45)
		test.That(t, spatialmath.PoseAlmostEqual(res.Pose, expected), test.ShouldBeTrue)
	})

	t.Run("nearest ties go to the earlier record", func(t *testing.T) {
		src := NewSource(NewSliceReader(rec(0, 0), rec(10, 10)), Options{}, logger)
		res, err := src.AdvanceTo(at(5))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, Nearest)
		test.That(t, spatialmath.PoseAlmostEqual(res.Pose, spatialmath.NewZeroPose()), test.ShouldBeTrue)

		res, err = src.AdvanceTo(at(5.1))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, Nearest)
		test.That(t, res.Pose.Point().X, test.ShouldAlmostEqual, 10)
	})

	t.Run("exact hits use the record pose", func(t *testing.T) {
		src := NewSource(NewSliceReader(rec(0, 0), rec(10, 10), rec(20, 40)), DefaultOptions(), logger)
		for _, tc := range []struct {
			t, x float64
		}{{0, 0}, {10, 10}, {15, 25}, {20, 40}} {
			res, err := src.AdvanceTo(at(tc.t))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Found(), test.ShouldBeTrue)
			test.That(t, res.Pose.Point().X, test.ShouldAlmostEqual, tc.x)
		}
	})
}

func TestMaxGap(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	opts := DefaultOptions()
	opts.MaxGap = 10 * time.Second

	src := NewSource(NewSliceReader(rec(0, 0), rec(100, 100)), opts, logger)
	res, err := src.AdvanceTo(at(50))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Kind, test.ShouldEqual, GapExceeded)
	test.That(t, res.Found(), test.ShouldBeFalse)
	test.That(t, res.Pose, test.ShouldBeNil)
	test.That(t, res.Gap(), test.ShouldEqual, 100*time.Second)

	entries := logs.FilterMessage("trajectory gap exceeded").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	fields := entries[0].ContextMap()
	test.That(t, fields["prev"], test.ShouldEqual, spatialmath.PrettyPrintPose(rec(0, 0).Pose))
	test.That(t, fields["next"], test.ShouldEqual, spatialmath.PrettyPrintPose(rec(100, 100).Pose))

	// The ends of a wide bracket are still exact matches.
	res, err = src.AdvanceTo(at(100))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Kind, test.ShouldEqual, Interpolated)
	test.That(t, res.Pose.Point().X, test.ShouldAlmostEqual, 100)

	src = NewSource(NewSliceReader(rec(0, 0), rec(5, 5)), opts, logger)
	res, err = src.AdvanceTo(at(2.5))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Kind, test.ShouldEqual, Interpolated)
}

func TestOutOfOrder(t *testing.T) {
	records := func() RecordReader {
		return NewSliceReader(rec(0, 0), rec(10, 10), rec(5, 99), rec(10, 99), rec(20, 20))
	}

	t.Run("discarded", func(t *testing.T) {
		logger, logs := logging.NewObservedTestLogger(t)
		opts := DefaultOptions()
		opts.DiscardOutOfOrder = true
		src := NewSource(records(), opts, logger)

		res, err := src.AdvanceTo(at(15))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, Interpolated)
		test.That(t, res.Pose.Point().X, test.ShouldAlmostEqual, 15)
		test.That(t, src.RecordsRead(), test.ShouldEqual, 5)
		test.That(t, src.RecordsDropped(), test.ShouldEqual, 2)
		test.That(t, logs.FilterMessage("dropped out of order trajectory record").Len(), test.ShouldEqual, 2)
	})

	t.Run("fatal", func(t *testing.T) {
		src := NewSource(records(), DefaultOptions(), logging.NewTestLogger(t))
		_, err := src.AdvanceTo(at(15))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrOutOfOrder), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "record 3")
	})
}

func TestOutOfRange(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("before first record", func(t *testing.T) {
		logger, logs := logging.NewObservedTestLogger(t)
		src := NewSource(NewSliceReader(rec(10, 10), rec(20, 20)), DefaultOptions(), logger)
		res, err := src.AdvanceTo(at(5))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, OutOfRange)
		test.That(t, logs.FilterMessage("query before trajectory window").Len(), test.ShouldEqual, 1)

		res, err = src.AdvanceTo(at(15))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, Interpolated)
	})

	t.Run("after last record", func(t *testing.T) {
		logger, logs := logging.NewObservedTestLogger(t)
		src := NewSource(NewSliceReader(rec(0, 0), rec(10, 10)), DefaultOptions(), logger)
		res, err := src.AdvanceTo(at(11))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, OutOfRange)
		entries := logs.FilterMessage("trajectory log exhausted").All()
		test.That(t, entries, test.ShouldHaveLength, 1)
		test.That(t, entries[0].ContextMap()["pose"], test.ShouldEqual, spatialmath.PrettyPrintPose(rec(10, 10).Pose))

		// Once exhausted, later queries stay out of range without reading.
		res, err = src.AdvanceTo(at(12))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, OutOfRange)
		test.That(t, src.RecordsRead(), test.ShouldEqual, 2)
	})

	t.Run("behind the window", func(t *testing.T) {
		src := NewSource(NewSliceReader(rec(0, 0), rec(10, 10), rec(20, 20)), DefaultOptions(), logger)
		_, err := src.AdvanceTo(at(15))
		test.That(t, err, test.ShouldBeNil)

		res, err := src.AdvanceTo(at(12))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, Interpolated)
		test.That(t, res.Pose.Point().X, test.ShouldAlmostEqual, 12)

		res, err = src.AdvanceTo(at(5))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, OutOfRange)
	})

	t.Run("empty log", func(t *testing.T) {
		src := NewSource(NewSliceReader(), DefaultOptions(), logger)
		res, err := src.AdvanceTo(at(0))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, OutOfRange)
		res, err = src.AdvanceTo(at(1))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, OutOfRange)
	})

	t.Run("single record", func(t *testing.T) {
		src := NewSource(NewSliceReader(rec(10, 3)), DefaultOptions(), logger)
		res, err := src.AdvanceTo(at(9))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, OutOfRange)

		res, err = src.AdvanceTo(at(10))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, Interpolated)
		test.That(t, res.Pose.Point().X, test.ShouldAlmostEqual, 3)

		res, err = src.AdvanceTo(at(11))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Kind, test.ShouldEqual, OutOfRange)
	})
}

type failingReader struct {
	closed bool
}

func (fr *failingReader) Read() (Record, error) {
	return Record{}, errors.New("disk on fire")
}

func (fr *failingReader) Close() error {
	fr.closed = true
	return nil
}

func TestReaderErrors(t *testing.T) {
	reader := &failingReader{}
	src := NewSource(reader, DefaultOptions(), logging.NewTestLogger(t))
	_, err := src.AdvanceTo(at(0))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "disk on fire")
	test.That(t, errors.Is(err, io.EOF), test.ShouldBeFalse)

	test.That(t, src.Close(), test.ShouldBeNil)
	test.That(t, reader.closed, test.ShouldBeTrue)

	test.That(t, NewSource(NewSliceReader(), Options{}, logging.NewTestLogger(t)).Close(), test.ShouldBeNil)
}

func TestKindString(t *testing.T) {
	test.That(t, Interpolated.String(), test.ShouldEqual, "interpolated")
	test.That(t, GapExceeded.String(), test.ShouldEqual, "gap exceeded")
	test.That(t, Kind(42).String(), test.ShouldEqual, "Kind(42)")
}
