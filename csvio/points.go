package csvio

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/pointsframe/referenceframe"
	spatial "go.viam.com/pointsframe/spatialmath"
)

// PointReader reads points from delimited records. The raw record is kept as the point's payload
// so that a PointWriter can re-emit the columns it does not convert.
type PointReader struct {
	r      *csv.Reader
	fields Fields
}

// NewPointReader returns a reader of records laid out as fields and separated by delimiter.
// Records may have more columns than fields; the extra columns are carried through.
func NewPointReader(r io.Reader, fields Fields, delimiter rune) *PointReader {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return &PointReader{r: reader, fields: fields}
}

// Read returns the next point, or io.EOF at the end of input. Malformed records are errors naming
// the line they are on.
func (pr *PointReader) Read(ctx context.Context) (referenceframe.Point, error) {
	if err := ctx.Err(); err != nil {
		return referenceframe.Point{}, err
	}
	record, err := pr.r.Read()
	if errors.Is(err, io.EOF) {
		return referenceframe.Point{}, io.EOF
	}
	if err != nil {
		return referenceframe.Point{}, errors.Wrap(err, "failed to read point record")
	}
	line, _ := pr.r.FieldPos(0)
	pt, err := pr.parse(record)
	if err != nil {
		return referenceframe.Point{}, errors.Wrapf(err, "line %d", line)
	}
	return pt, nil
}

func (pr *PointReader) parse(record []string) (referenceframe.Point, error) {
	if len(record) < pr.fields.Len() {
		return referenceframe.Point{}, errors.Errorf("expected at least %d fields, got %d", pr.fields.Len(), len(record))
	}
	pt := referenceframe.Point{Payload: record}
	if col, ok := pr.fields.column(FieldTime); ok {
		t, err := ParseTime(record[col])
		if err != nil {
			return referenceframe.Point{}, err
		}
		pt.Time = t
		pt.HasTime = true
	}
	position, err := parseVector(pr.fields, record, FieldX, FieldY, FieldZ)
	if err != nil {
		return referenceframe.Point{}, err
	}
	pt.Position = position
	if pr.fields.HasOrientation() {
		rpy, err := parseVector(pr.fields, record, FieldRoll, FieldPitch, FieldYaw)
		if err != nil {
			return referenceframe.Point{}, err
		}
		pt.Orientation = spatial.NewEulerAnglesFromDegrees(rpy.X, rpy.Y, rpy.Z)
	}
	return pt, nil
}

// PointWriter writes converted points as delimited records.
type PointWriter struct {
	w         *csv.Writer
	fields    Fields
	precision int
}

// NewPointWriter returns a writer laying records out as fields, writing values with precision
// significant digits.
func NewPointWriter(w io.Writer, fields Fields, delimiter rune, precision int) *PointWriter {
	writer := csv.NewWriter(w)
	writer.Comma = delimiter
	return &PointWriter{w: writer, fields: fields, precision: precision}
}

// Write writes the point's record with the converted position (and orientation, if the layout
// has one) substituted, followed by x,y,z,roll,pitch,yaw of each pose.
func (pw *PointWriter) Write(pt referenceframe.Point, poses []spatial.Pose) error {
	record := pw.baseRecord(pt)
	pw.set(record, FieldX, pt.Position.X)
	pw.set(record, FieldY, pt.Position.Y)
	pw.set(record, FieldZ, pt.Position.Z)
	if pt.Orientation != nil {
		roll, pitch, yaw := pt.Orientation.EulerAngles().Degrees()
		pw.set(record, FieldRoll, roll)
		pw.set(record, FieldPitch, pitch)
		pw.set(record, FieldYaw, yaw)
	}
	for _, pose := range poses {
		p := pose.Point()
		roll, pitch, yaw := pose.Orientation().EulerAngles().Degrees()
		for _, v := range []float64{p.X, p.Y, p.Z, roll, pitch, yaw} {
			record = append(record, pw.format(v))
		}
	}
	return pw.w.Write(record)
}

// Flush writes any buffered records to the underlying writer.
func (pw *PointWriter) Flush() error {
	pw.w.Flush()
	return pw.w.Error()
}

// baseRecord copies the input record, or lays out a fresh one for points built in memory.
func (pw *PointWriter) baseRecord(pt referenceframe.Point) []string {
	if raw, ok := pt.Payload.([]string); ok && len(raw) >= pw.fields.Len() {
		return append([]string(nil), raw...)
	}
	record := make([]string, pw.fields.Len())
	if col, ok := pw.fields.column(FieldTime); ok && pt.HasTime {
		record[col] = FormatTime(pt.Time)
	}
	return record
}

func (pw *PointWriter) set(record []string, name string, v float64) {
	if col, ok := pw.fields.column(name); ok {
		record[col] = pw.format(v)
	}
}

func (pw *PointWriter) format(v float64) string {
	if v == 0 {
		// Avoid printing -0.
		v = 0
	}
	return strconv.FormatFloat(v, 'g', pw.precision, 64)
}

// parseVector parses the three named columns; a column missing from the layout reads as zero.
func parseVector(fields Fields, record []string, names ...string) (r3.Vector, error) {
	var v [3]float64
	for i, name := range names {
		col, ok := fields.column(name)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(record[col], 64)
		if err != nil {
			return r3.Vector{}, errors.Errorf("invalid %s value %q", name, record[col])
		}
		v[i] = f
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}
