package csvio

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	spatial "go.viam.com/pointsframe/spatialmath"
	"go.viam.com/pointsframe/trajectory"
)

// TrajectoryReader reads trajectory log records. Angles are in degrees.
type TrajectoryReader struct {
	name   string
	r      *csv.Reader
	fields Fields
	closer io.Closer
}

// NewTrajectoryReader returns a reader of trajectory records laid out as fields, which must
// include the timestamp. name is used in error messages.
func NewTrajectoryReader(name string, r io.Reader, fields Fields, delimiter rune) (*TrajectoryReader, error) {
	if err := fields.Require(FieldTime); err != nil {
		return nil, errors.Wrapf(err, "trajectory %q", name)
	}
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	return &TrajectoryReader{name: name, r: reader, fields: fields}, nil
}

// OpenTrajectory opens the trajectory log at path. The returned reader must be closed.
func OpenTrajectory(path string, fields Fields, delimiter rune) (*TrajectoryReader, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open trajectory")
	}
	tr, err := NewTrajectoryReader(path, f, fields, delimiter)
	if err != nil {
		return nil, multierr.Combine(err, f.Close())
	}
	tr.closer = f
	return tr, nil
}

// Read returns the next record of the log, or io.EOF at its end.
func (tr *TrajectoryReader) Read() (trajectory.Record, error) {
	record, err := tr.r.Read()
	if errors.Is(err, io.EOF) {
		return trajectory.Record{}, io.EOF
	}
	if err != nil {
		return trajectory.Record{}, errors.Wrapf(err, "trajectory %q", tr.name)
	}
	line, _ := tr.r.FieldPos(0)
	rec, err := tr.parse(record)
	if err != nil {
		return trajectory.Record{}, errors.Wrapf(err, "trajectory %q line %d", tr.name, line)
	}
	return rec, nil
}

func (tr *TrajectoryReader) parse(record []string) (trajectory.Record, error) {
	if len(record) < tr.fields.Len() {
		return trajectory.Record{}, errors.Errorf("expected at least %d fields, got %d", tr.fields.Len(), len(record))
	}
	col, _ := tr.fields.column(FieldTime)
	t, err := ParseTime(record[col])
	if err != nil {
		return trajectory.Record{}, err
	}
	position, err := parseVector(tr.fields, record, FieldX, FieldY, FieldZ)
	if err != nil {
		return trajectory.Record{}, err
	}
	rpy, err := parseVector(tr.fields, record, FieldRoll, FieldPitch, FieldYaw)
	if err != nil {
		return trajectory.Record{}, err
	}
	pose := spatial.NewPose(position, spatial.NewEulerAnglesFromDegrees(rpy.X, rpy.Y, rpy.Z))
	return trajectory.Record{Time: t, Pose: pose}, nil
}

// Close closes the log file if the reader opened it.
func (tr *TrajectoryReader) Close() error {
	if tr.closer == nil {
		return nil
	}
	return tr.closer.Close()
}

