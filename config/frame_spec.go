package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/pointsframe/referenceframe"
)

// Frame spec options, written after the frame and separated by ';'.
const (
	optionOutputFrame = "output-frame"
	optionFields      = "fields"
	optionDelimiter   = "delimiter"
)

// ParseLink parses a command line frame spec into a link converting in direction.
//
// A spec is one or more frames joined by '+'. Each frame is either a pose "x,y,z" or
// "x,y,z,roll,pitch,yaw" (degrees), or the path of a trajectory log. Options may follow a frame,
// separated by ';': "output-frame" for any frame, and "fields=<fields>" and "delimiter=<c>" for a
// trajectory. For example:
//
//	nav.csv;fields=t,x,y,z,,,yaw;output-frame+0,0,1.5
func ParseLink(direction referenceframe.Direction, spec string) (LinkConfig, error) {
	if strings.TrimSpace(spec) == "" {
		return LinkConfig{}, errors.New("empty frame spec")
	}
	link := LinkConfig{Direction: direction.String()}
	for _, part := range strings.Split(spec, "+") {
		frame, err := ParseFrame(part)
		if err != nil {
			return LinkConfig{}, errors.Wrapf(err, "invalid frame spec %q", spec)
		}
		link.Frames = append(link.Frames, frame)
	}
	return link, nil
}

// ParseFrame parses a single frame of a command line frame spec.
func ParseFrame(spec string) (FrameConfig, error) {
	parts := lo.Map(strings.Split(spec, ";"), func(p string, _ int) string { return strings.TrimSpace(p) })
	head, options := parts[0], parts[1:]
	if head == "" {
		return FrameConfig{}, errors.New("empty frame")
	}

	var frame FrameConfig
	if pose, ok := parsePose(head); ok {
		frame.Pose = pose
	} else {
		frame.Trajectory = &TrajectoryConfig{File: head}
	}

	for _, option := range options {
		key, value, hasValue := strings.Cut(option, "=")
		switch {
		case option == "":
		case key == optionOutputFrame && !hasValue:
			frame.OutputFrame = true
		case key == optionFields && hasValue && frame.Trajectory != nil:
			frame.Trajectory.Fields = value
		case key == optionDelimiter && hasValue && frame.Trajectory != nil:
			frame.Trajectory.Delimiter = value
		default:
			return FrameConfig{}, errors.Errorf("unknown option %q for frame %q", option, head)
		}
	}
	return frame, nil
}

// parsePose parses s as a pose if it is a list of 3 or 6 numbers. Anything else, including a
// number list of another length, is the path of a trajectory log.
func parsePose(s string) (*PoseConfig, bool) {
	values := strings.Split(s, ",")
	if len(values) != 3 && len(values) != 6 {
		return nil, false
	}
	numbers := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, false
		}
		numbers = append(numbers, f)
	}
	pose := &PoseConfig{X: numbers[0], Y: numbers[1], Z: numbers[2]}
	if len(numbers) == 6 {
		pose.Roll, pose.Pitch, pose.Yaw = numbers[3], numbers[4], numbers[5]
	}
	return pose, true
}
