package trajectory

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/pointsframe/logging"
	"go.viam.com/pointsframe/spatialmath"
)

// ErrOutOfOrder is returned when a log record is not strictly after the previously retained
// record and out of order records are not being discarded.
var ErrOutOfOrder = errors.New("trajectory record out of order")

// Kind is the outcome of a pose query.
type Kind int

const (
	// OutOfRange means the query time is before the first record, behind the current window, or
	// after the last record of the log.
	OutOfRange Kind = iota
	// Interpolated means the pose was interpolated between the bracketing records.
	Interpolated
	// Nearest means the pose is that of the bracketing record closest in time.
	Nearest
	// GapExceeded means the bracketing records are further apart than the configured maximum gap.
	GapExceeded
)

func (k Kind) String() string {
	switch k {
	case OutOfRange:
		return "out of range"
	case Interpolated:
		return "interpolated"
	case Nearest:
		return "nearest"
	case GapExceeded:
		return "gap exceeded"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is the answer to a pose query. Prev and Next are the bracketing records when known; Pose
// is only set for Interpolated and Nearest.
type Result struct {
	Kind Kind
	Pose spatialmath.Pose
	Prev *Record
	Next *Record
}

// Found reports whether the result carries a pose.
func (r Result) Found() bool {
	return r.Kind == Interpolated || r.Kind == Nearest
}

// Gap returns the time between the bracketing records, or zero if there is no bracket.
func (r Result) Gap() time.Duration {
	if r.Prev == nil || r.Next == nil {
		return 0
	}
	return r.Next.Time.Sub(r.Prev.Time)
}

// Options controls how a Source treats irregularities in its log.
type Options struct {
	// DiscardOutOfOrder drops records that are not strictly after the previous retained record
	// instead of failing.
	DiscardOutOfOrder bool
	// MaxGap is the longest valid time between two successive records. Zero means unbounded.
	MaxGap time.Duration
	// Interpolate selects interpolation between bracketing records; otherwise the nearest one is used.
	Interpolate bool
}

// DefaultOptions interpolates, has no maximum gap and fails on out of order records.
func DefaultOptions() Options {
	return Options{Interpolate: true}
}

// Source is a forward only window over a trajectory log. Queries must be non-decreasing in time;
// the window never rewinds.
type Source struct {
	reader RecordReader
	opts   Options
	logger logging.Logger

	prev, next *Record
	started    bool
	exhausted  bool
	lastQuery  time.Time

	recordsRead    int
	recordsDropped int
}

// NewSource returns a Source reading records from reader.
func NewSource(reader RecordReader, opts Options, logger logging.Logger) *Source {
	return &Source{reader: reader, opts: opts, logger: logger}
}

// Options returns the options the source was built with.
func (s *Source) Options() Options {
	return s.opts
}

// AdvanceTo moves the window forward until it brackets t and returns the pose at t. The error is
// only set for fatal faults: an out of order record with discarding disabled, or a read failure.
func (s *Source) AdvanceTo(t time.Time) (Result, error) {
	if s.started && t.Before(s.lastQuery) {
		s.logger.Debugw("trajectory queried backwards in time", "time", t, "previous", s.lastQuery)
	}
	s.lastQuery = t

	if !s.started {
		s.started = true
		rec, ok, err := s.readRecord()
		if err != nil {
			return Result{}, err
		}
		if !ok {
			s.logger.Debug("trajectory log is empty")
			return Result{Kind: OutOfRange}, nil
		}
		s.next = &rec
	}
	if s.next == nil {
		return Result{Kind: OutOfRange}, nil
	}

	for s.next.Time.Before(t) {
		if s.exhausted {
			return Result{Kind: OutOfRange, Prev: s.prev, Next: s.next}, nil
		}
		rec, ok, err := s.readRecord()
		if err != nil {
			return Result{}, err
		}
		if !ok {
			s.logger.Debugw("trajectory log exhausted",
				"last", s.next.Time, "pose", spatialmath.PrettyPrintPose(s.next.Pose), "query", t)
			return Result{Kind: OutOfRange, Prev: s.prev, Next: s.next}, nil
		}
		if !rec.Time.After(s.next.Time) {
			if !s.opts.DiscardOutOfOrder {
				return Result{}, errors.Wrapf(ErrOutOfOrder, "record %d at %s is not after %s",
					s.recordsRead, formatTime(rec.Time), formatTime(s.next.Time))
			}
			s.recordsDropped++
			s.logger.Debugw("dropped out of order trajectory record", "time", rec.Time, "after", s.next.Time)
			continue
		}
		s.prev, s.next = s.next, &rec
	}

	return s.poseAt(t), nil
}

// poseAt answers a query once the window satisfies t <= next.Time.
func (s *Source) poseAt(t time.Time) Result {
	found := Nearest
	if s.opts.Interpolate {
		found = Interpolated
	}

	if t.Equal(s.next.Time) {
		return Result{Kind: found, Pose: s.next.Pose, Prev: s.prev, Next: s.next}
	}
	if s.prev == nil || t.Before(s.prev.Time) {
		s.logger.Debugw("query before trajectory window",
			"query", t, "first", s.next.Time, "pose", spatialmath.PrettyPrintPose(s.next.Pose))
		return Result{Kind: OutOfRange, Prev: s.prev, Next: s.next}
	}
	if t.Equal(s.prev.Time) {
		return Result{Kind: found, Pose: s.prev.Pose, Prev: s.prev, Next: s.next}
	}

	res := Result{Kind: found, Prev: s.prev, Next: s.next}
	if s.opts.MaxGap > 0 && res.Gap() > s.opts.MaxGap {
		res.Kind = GapExceeded
		s.logger.Debugw("trajectory gap exceeded", "query", t, "gap", res.Gap(),
			"prev", spatialmath.PrettyPrintPose(s.prev.Pose), "next", spatialmath.PrettyPrintPose(s.next.Pose))
		return res
	}

	sincePrev := t.Sub(s.prev.Time)
	if s.opts.Interpolate {
		by := float64(sincePrev) / float64(res.Gap())
		res.Pose = spatialmath.Interpolate(s.prev.Pose, s.next.Pose, by)
		return res
	}
	if s.next.Time.Sub(t) < sincePrev {
		res.Pose = s.next.Pose
	} else {
		res.Pose = s.prev.Pose
	}
	return res
}

// readRecord returns the next record of the log; ok is false at the end of the log.
func (s *Source) readRecord() (rec Record, ok bool, err error) {
	rec, err = s.reader.Read()
	if errors.Is(err, io.EOF) {
		s.exhausted = true
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, errors.Wrap(err, "failed to read trajectory record")
	}
	s.recordsRead++
	return rec, true, nil
}

// RecordsRead returns the number of records read from the log so far, dropped ones included.
func (s *Source) RecordsRead() int {
	return s.recordsRead
}

// RecordsDropped returns the number of out of order records discarded so far.
func (s *Source) RecordsDropped() int {
	return s.recordsDropped
}

// Close closes the underlying reader if it holds resources.
func (s *Source) Close() error {
	if closer, ok := s.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format("20060102T150405.999999")
}
