// Package cli contains the points-frame command line application.
package cli

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/pointsframe/config"
	"go.viam.com/pointsframe/csvio"
	"go.viam.com/pointsframe/logging"
	"go.viam.com/pointsframe/pipeline"
	"go.viam.com/pointsframe/referenceframe"
)

const description = `Reads delimited point records on stdin and writes them to stdout converted through
a chain of frames. Frames are given with --from and --to, which may be repeated and are applied
in the order given. A frame is a pose "x,y,z" or "x,y,z,roll,pitch,yaw" (angles in degrees), or
a trajectory log of timestamped poses whose pose is interpolated at each point's time. Frames
joined by '+' are applied left to right.

Frame options follow the frame, separated by ';':
   output-frame       append the frame's pose x,y,z,roll,pitch,yaw to each output record
   fields=<fields>    trajectory log fields, default t,x,y,z,roll,pitch,yaw
   delimiter=<c>      trajectory log delimiter, default ','

Examples:
   convert sensor points into the world frame along a vehicle trajectory:
      points-frame --from "nav.csv+0.2,0,-1.1,0,0,180" < sensor.csv
   convert world points into a frame rotated 90 degrees about z:
      echo 1,0,0 | points-frame --fields x,y,z --to 0,0,0,0,0,90`

// NewApp returns a new app reading points from in, writing converted points to out and usage
// errors to errOut. Each call returns a fresh app with its own flag state.
func NewApp(in io.Reader, out, errOut io.Writer, logger logging.Logger) *cli.App {
	links := &linkList{}
	return &cli.App{
		Name:            "points-frame",
		Usage:           "convert timestamped points between coordinate frames",
		Description:     description,
		HideHelpCommand: true,
		Reader:          in,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.GenericFlag{
				Name:  flagFrom,
				Usage: "convert points from `FRAMES` into the reference frame",
				Value: &linkFlag{direction: referenceframe.From, list: links},
			},
			&cli.GenericFlag{
				Name:  flagTo,
				Usage: "convert points from the reference frame into `FRAMES`",
				Value: &linkFlag{direction: referenceframe.To, list: links},
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load frames and options from a JSON or YAML `FILE`; command line frames are applied after it",
			},
			&cli.BoolFlag{
				Name:    flagDiscardOutOfOrder,
				Aliases: []string{"discard"},
				Usage:   "drop out of order trajectory records and points no trajectory record covers instead of failing",
			},
			&cli.StringFlag{
				Name:  flagMaxGap,
				Usage: "longest valid time between trajectory records, as `SECONDS` or a duration like 500ms",
			},
			&cli.BoolFlag{
				Name:  flagNoInterpolate,
				Usage: "use the nearest trajectory record instead of interpolating",
			},
			&cli.BoolFlag{
				Name:  flagOutputFrame,
				Usage: "append the pose of every trajectory frame to each output record",
			},
			&cli.StringFlag{
				Name:    flagFields,
				Aliases: []string{"f"},
				Usage:   "comma separated point `FIELDS`; t,x,y,z,roll,pitch,yaw are recognised",
				Value:   csvio.DefaultPointFields,
			},
			&cli.StringFlag{
				Name:    flagDelimiter,
				Aliases: []string{"d"},
				Usage:   "point record `DELIMITER`",
				Value:   ",",
			},
			&cli.IntFlag{
				Name:  flagPrecision,
				Usage: "significant `DIGITS` written for converted values",
				Value: csvio.DefaultPrecision,
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging, same as --log-level debug",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "minimum log `LEVEL` written to stderr: debug, info, warn or error",
				Value: "info",
			},
		},
		Action: func(c *cli.Context) error {
			return convertAction(c, links, logger)
		},
	}
}

func convertAction(c *cli.Context, links *linkList, logger logging.Logger) (err error) {
	if c.NArg() > 0 {
		return errors.Errorf("unexpected arguments %q", c.Args().Slice())
	}
	if c.IsSet(flagLogLevel) {
		level, err := logging.LevelFromString(c.String(flagLogLevel))
		if err != nil {
			return errors.Wrapf(err, "--%s", flagLogLevel)
		}
		logger.SetLevel(level)
	}
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}

	cfg, err := configFromFlags(c, links)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	chain, err := cfg.BuildChain(logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, chain.Close())
	}()

	fields, err := cfg.PointFields()
	if err != nil {
		return err
	}
	if chain.RequiresTimestamp() && !fields.Has(csvio.FieldTime) {
		return errors.Errorf("points need timestamps to convert through %s, fields %q have no %q",
			chain, fields, csvio.FieldTime)
	}
	delimiter := cfg.PointDelimiter()
	reader := csvio.NewPointReader(c.App.Reader, fields, delimiter)
	writer := csvio.NewPointWriter(c.App.Writer, fields, delimiter, cfg.OutputPrecision())

	p := pipeline.New(chain, reader, writer, logger)
	runErr := p.Run(c.Context)
	stats := p.Stats()
	logger.Infof("%s points read, %s converted, %s discarded",
		humanize.Comma(int64(stats.Read)), humanize.Comma(int64(stats.Emitted)), humanize.Comma(int64(stats.Discarded)))
	logTrajectorySummary(chain, logger)
	return runErr
}

// logTrajectorySummary reports how many records each trajectory log yielded and how many were
// dropped as out of order.
func logTrajectorySummary(chain *referenceframe.Chain, logger logging.Logger) {
	for _, f := range chain.Frames() {
		tf, ok := f.(referenceframe.TrajectoryFrame)
		if !ok {
			continue
		}
		src := tf.Source()
		if src.RecordsDropped() > 0 {
			logger.Infof("trajectory %s: %s records read, %s dropped out of order",
				tf.Name(), humanize.Comma(int64(src.RecordsRead())), humanize.Comma(int64(src.RecordsDropped())))
			continue
		}
		logger.Debugf("trajectory %s: %s records read", tf.Name(), humanize.Comma(int64(src.RecordsRead())))
	}
}

// configFromFlags reads the config file, if any, then applies the command line on top of it.
func configFromFlags(c *cli.Context, links *linkList) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}
	cfg.Links = append(cfg.Links, links.links...)

	if c.IsSet(flagDiscardOutOfOrder) {
		cfg.DiscardOutOfOrder = c.Bool(flagDiscardOutOfOrder)
	}
	if c.IsSet(flagMaxGap) {
		gap, err := config.ParseDuration(c.String(flagMaxGap))
		if err != nil {
			return nil, errors.Wrapf(err, "--%s", flagMaxGap)
		}
		if gap <= 0 {
			return nil, errors.Errorf("--%s must be positive, got %s", flagMaxGap, gap)
		}
		cfg.MaxGap = gap
	}
	if c.IsSet(flagNoInterpolate) {
		interpolate := !c.Bool(flagNoInterpolate)
		cfg.Interpolate = &interpolate
	}
	if c.IsSet(flagOutputFrame) {
		cfg.OutputFrame = c.Bool(flagOutputFrame)
	}
	if c.IsSet(flagFields) || cfg.Fields == "" {
		cfg.Fields = c.String(flagFields)
	}
	if c.IsSet(flagDelimiter) || cfg.Delimiter == "" {
		cfg.Delimiter = c.String(flagDelimiter)
	}
	if c.IsSet(flagPrecision) || cfg.Precision == 0 {
		cfg.Precision = c.Int(flagPrecision)
	}
	return cfg, nil
}
