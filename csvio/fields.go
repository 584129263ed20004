// Package csvio reads and writes points and trajectory logs as delimited ASCII records.
package csvio

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Recognised field names. Any other name, including an empty one, is carried through untouched.
const (
	FieldTime  = "t"
	FieldX     = "x"
	FieldY     = "y"
	FieldZ     = "z"
	FieldRoll  = "roll"
	FieldPitch = "pitch"
	FieldYaw   = "yaw"
)

const (
	// DefaultPointFields is the layout of point records unless configured otherwise.
	DefaultPointFields = "t,x,y,z"
	// DefaultTrajectoryFields is the layout of trajectory log records unless configured otherwise.
	DefaultTrajectoryFields = "t,x,y,z,roll,pitch,yaw"
	// DefaultDelimiter separates the columns of a record.
	DefaultDelimiter = ','
	// DefaultPrecision is the number of significant digits written for converted values.
	DefaultPrecision = 12
)

var (
	recognised       = []string{FieldTime, FieldX, FieldY, FieldZ, FieldRoll, FieldPitch, FieldYaw}
	orientationNames = []string{FieldRoll, FieldPitch, FieldYaw}
)

// Fields is the column layout of a record.
type Fields struct {
	names []string
	index map[string]int
}

// ParseFields parses a comma separated list of field names, e.g. "t,x,y,z". A recognised name may
// appear at most once.
func ParseFields(s string) (Fields, error) {
	names := lo.Map(strings.Split(s, ","), func(name string, _ int) string {
		return strings.TrimSpace(name)
	})
	index := map[string]int{}
	for i, name := range names {
		if !lo.Contains(recognised, name) {
			continue
		}
		if _, ok := index[name]; ok {
			return Fields{}, errors.Errorf("field %q appears more than once in %q", name, s)
		}
		index[name] = i
	}
	return Fields{names: names, index: index}, nil
}

// MustParseFields is like ParseFields but panics on error.
func MustParseFields(s string) Fields {
	f, err := ParseFields(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of columns in the layout.
func (f Fields) Len() int {
	return len(f.names)
}

// Has reports whether the layout contains the named field.
func (f Fields) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// HasOrientation reports whether the layout contains any of roll, pitch and yaw.
func (f Fields) HasOrientation() bool {
	return lo.SomeBy(orientationNames, f.Has)
}

// Require returns an error naming the first of names missing from the layout.
func (f Fields) Require(names ...string) error {
	if missing, ok := lo.Find(names, func(name string) bool { return !f.Has(name) }); ok {
		return errors.Errorf("field %q is required in %q", missing, f.String())
	}
	return nil
}

func (f Fields) String() string {
	return strings.Join(f.names, ",")
}

// column returns the column of a recognised field.
func (f Fields) column(name string) (int, bool) {
	i, ok := f.index[name]
	return i, ok
}
