package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/pointsframe/csvio"
	"go.viam.com/pointsframe/logging"
	"go.viam.com/pointsframe/referenceframe"
	spatial "go.viam.com/pointsframe/spatialmath"
	"go.viam.com/pointsframe/trajectory"
)

// BuildChain opens every trajectory log of a validated config and returns the frame chain, with
// frames in link order. The caller must close the chain.
func (c *Config) BuildChain(logger logging.Logger) (chain *referenceframe.Chain, err error) {
	var frames []referenceframe.Frame
	defer func() {
		if err != nil {
			err = multierr.Combine(err, referenceframe.NewChain(frames...).Close())
		}
	}()

	opts := c.TrajectoryOptions()
	for i, link := range c.Links {
		direction, err := referenceframe.ParseDirection(link.Direction)
		if err != nil {
			return nil, errors.Wrapf(err, "links.%d", i)
		}
		for j, fc := range link.Frames {
			frame, err := c.buildFrame(fc, direction, opts, logger)
			if err != nil {
				return nil, errors.Wrapf(err, "links.%d.frames.%d", i, j)
			}
			frames = append(frames, frame)
		}
	}
	chain = referenceframe.NewChain(frames...)
	logger.Debugw("built frame chain", "chain", chain.String(), "emitted_poses", chain.EmittedPoseCount(),
		"options", fmt.Sprintf("%+v", opts))
	return chain, nil
}

func (c *Config) buildFrame(
	fc FrameConfig,
	direction referenceframe.Direction,
	opts trajectory.Options,
	logger logging.Logger,
) (referenceframe.Frame, error) {
	name := fc.DisplayName()
	if fc.Pose != nil {
		pose := spatial.NewPoseFromRPYDegrees(fc.Pose.X, fc.Pose.Y, fc.Pose.Z, fc.Pose.Roll, fc.Pose.Pitch, fc.Pose.Yaw)
		return referenceframe.NewStaticFrame(name, pose, direction, fc.OutputFrame)
	}
	if fc.Trajectory == nil {
		return nil, errors.New("exactly one of pose or trajectory is required")
	}

	fields, err := fc.Trajectory.fields()
	if err != nil {
		return nil, err
	}
	delimiter, err := ParseDelimiter(fc.Trajectory.Delimiter)
	if err != nil {
		return nil, err
	}
	reader, err := csvio.OpenTrajectory(fc.Trajectory.File, fields, delimiter)
	if err != nil {
		return nil, err
	}
	source := trajectory.NewSource(reader, opts, logger.Sublogger("trajectory"))
	frame, err := referenceframe.NewTrajectoryFrame(name, source, direction, fc.OutputFrame || c.OutputFrame, c.DiscardOutOfOrder)
	if err != nil {
		return nil, multierr.Combine(err, source.Close())
	}
	return frame, nil
}
