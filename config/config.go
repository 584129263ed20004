// Package config describes a frame conversion: the chain of frames to convert through, the layout
// of point records, and how trajectory irregularities are handled. A Config is built from a JSON
// or YAML file, from command line frame specs, or both.
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/pointsframe/csvio"
	"go.viam.com/pointsframe/referenceframe"
	"go.viam.com/pointsframe/trajectory"
)

// Config is the full description of a conversion.
type Config struct {
	ConfigFilePath string `json:"-" yaml:"-"`

	Links []LinkConfig `json:"links" yaml:"links"`

	// DiscardOutOfOrder drops out of order trajectory records, and points the trajectories cannot
	// place, instead of failing.
	DiscardOutOfOrder bool `json:"discard_out_of_order,omitempty" yaml:"discard_out_of_order,omitempty"`
	// MaxGap is the longest valid time between trajectory records. Zero means unbounded.
	MaxGap Duration `json:"max_gap,omitempty" yaml:"max_gap,omitempty"`
	// Interpolate defaults to true; when false the nearest trajectory record is used.
	Interpolate *bool `json:"interpolate,omitempty" yaml:"interpolate,omitempty"`
	// OutputFrame appends the pose of every trajectory frame to each converted point.
	OutputFrame bool `json:"output_frame,omitempty" yaml:"output_frame,omitempty"`

	Fields    string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Precision int    `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// LinkConfig is a run of frames converted in one direction.
type LinkConfig struct {
	Direction string        `json:"direction" yaml:"direction"`
	Frames    []FrameConfig `json:"frames" yaml:"frames"`
}

// FrameConfig is a single frame: either a fixed pose or a trajectory log.
type FrameConfig struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Pose        *PoseConfig       `json:"pose,omitempty" yaml:"pose,omitempty"`
	Trajectory  *TrajectoryConfig `json:"trajectory,omitempty" yaml:"trajectory,omitempty"`
	OutputFrame bool              `json:"output_frame,omitempty" yaml:"output_frame,omitempty"`
}

// PoseConfig is a fixed pose. Angles are in degrees.
type PoseConfig struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
	Roll  float64 `json:"roll" yaml:"roll"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
}

// TrajectoryConfig locates a trajectory log and describes its layout.
type TrajectoryConfig struct {
	File      string `json:"file" yaml:"file"`
	Fields    string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if len(c.Links) == 0 {
		return utils.NewConfigValidationFieldRequiredError("", "links")
	}
	for idx, link := range c.Links {
		if err := link.Validate(fmt.Sprintf("links.%d", idx)); err != nil {
			return err
		}
	}
	if c.MaxGap < 0 {
		return utils.NewConfigValidationError("max_gap", errors.Errorf("must be positive, got %s", c.MaxGap))
	}
	if c.Precision < 0 || c.Precision > 17 {
		return utils.NewConfigValidationError("precision", errors.Errorf("must be between 0 and 17, got %d", c.Precision))
	}
	if _, err := ParseDelimiter(c.Delimiter); err != nil {
		return utils.NewConfigValidationError("delimiter", err)
	}
	if _, err := c.PointFields(); err != nil {
		return utils.NewConfigValidationError("fields", err)
	}
	return nil
}

// Validate ensures all parts of the link are valid.
func (link *LinkConfig) Validate(path string) error {
	if link.Direction == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "direction")
	}
	if _, err := referenceframe.ParseDirection(link.Direction); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if len(link.Frames) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "frames")
	}
	for idx, frame := range link.Frames {
		if err := frame.Validate(fmt.Sprintf("%s.frames.%d", path, idx)); err != nil {
			return err
		}
	}
	return nil
}

// Validate ensures all parts of the frame are valid.
func (fc *FrameConfig) Validate(path string) error {
	if (fc.Pose == nil) == (fc.Trajectory == nil) {
		return utils.NewConfigValidationError(path, errors.New("exactly one of pose or trajectory is required"))
	}
	if fc.Trajectory == nil {
		return nil
	}
	if fc.Trajectory.File == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "trajectory.file")
	}
	fields, err := fc.Trajectory.fields()
	if err != nil {
		return utils.NewConfigValidationError(path+".trajectory.fields", err)
	}
	if err := fields.Require(csvio.FieldTime); err != nil {
		return utils.NewConfigValidationError(path+".trajectory.fields", err)
	}
	if _, err := ParseDelimiter(fc.Trajectory.Delimiter); err != nil {
		return utils.NewConfigValidationError(path+".trajectory.delimiter", err)
	}
	return nil
}

// DisplayName is the name used for the frame in logs and errors.
func (fc *FrameConfig) DisplayName() string {
	switch {
	case fc.Name != "":
		return fc.Name
	case fc.Trajectory != nil:
		return fc.Trajectory.File
	case fc.Pose != nil:
		return fc.Pose.String()
	default:
		return "<empty>"
	}
}

func (pc *PoseConfig) String() string {
	if pc.Roll == 0 && pc.Pitch == 0 && pc.Yaw == 0 {
		return fmt.Sprintf("%g,%g,%g", pc.X, pc.Y, pc.Z)
	}
	return fmt.Sprintf("%g,%g,%g,%g,%g,%g", pc.X, pc.Y, pc.Z, pc.Roll, pc.Pitch, pc.Yaw)
}

func (tc *TrajectoryConfig) fields() (csvio.Fields, error) {
	if tc.Fields == "" {
		return csvio.ParseFields(csvio.DefaultTrajectoryFields)
	}
	return csvio.ParseFields(tc.Fields)
}

// PointFields returns the layout of point records.
func (c *Config) PointFields() (csvio.Fields, error) {
	if c.Fields == "" {
		return csvio.ParseFields(csvio.DefaultPointFields)
	}
	return csvio.ParseFields(c.Fields)
}

// PointDelimiter returns the delimiter of point records.
func (c *Config) PointDelimiter() rune {
	d, err := ParseDelimiter(c.Delimiter)
	if err != nil {
		return csvio.DefaultDelimiter
	}
	return d
}

// OutputPrecision returns the number of significant digits written for converted values.
func (c *Config) OutputPrecision() int {
	if c.Precision == 0 {
		return csvio.DefaultPrecision
	}
	return c.Precision
}

// TrajectoryOptions returns the options every trajectory source is built with.
func (c *Config) TrajectoryOptions() trajectory.Options {
	interpolate := true
	if c.Interpolate != nil {
		interpolate = *c.Interpolate
	}
	return trajectory.Options{
		DiscardOutOfOrder: c.DiscardOutOfOrder,
		MaxGap:            c.MaxGap.Duration(),
		Interpolate:       interpolate,
	}
}

// ParseDelimiter parses a single character delimiter. The empty string is a comma and "tab" or
// "\t" is a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return csvio.DefaultDelimiter, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	case "space":
		return ' ', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, errors.Errorf("delimiter must be a single character, got %q", s)
	}
	if strings.ContainsRune("\"\r\n#", r[0]) {
		return 0, errors.Errorf("%q cannot be used as a delimiter", s)
	}
	return r[0], nil
}
