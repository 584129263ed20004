// Package trajectory answers "where was this moving frame at time t" from a time ordered log of
// poses. The log is read forward only through a two record window, so memory stays constant no
// matter how long the log is.
package trajectory

import (
	"io"
	"time"

	"go.viam.com/pointsframe/spatialmath"
)

// Record is a single timestamped pose of a trajectory log.
type Record struct {
	Time time.Time
	Pose spatialmath.Pose
}

// RecordReader yields the records of a trajectory log in file order. Read returns io.EOF once
// the log is exhausted.
type RecordReader interface {
	Read() (Record, error)
}

type sliceReader struct {
	records []Record
}

// NewSliceReader returns a RecordReader over an in-memory list of records.
func NewSliceReader(records ...Record) RecordReader {
	return &sliceReader{records: records}
}

func (sr *sliceReader) Read() (Record, error) {
	if len(sr.records) == 0 {
		return Record{}, io.EOF
	}
	rec := sr.records[0]
	sr.records = sr.records[1:]
	return rec, nil
}
