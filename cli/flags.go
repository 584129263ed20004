package cli

import (
	"go.viam.com/pointsframe/config"
	"go.viam.com/pointsframe/referenceframe"
)

// Flags.
const (
	flagFrom              = "from"
	flagTo                = "to"
	flagConfig            = "config"
	flagDiscardOutOfOrder = "discard-out-of-order"
	flagMaxGap            = "max-gap"
	flagNoInterpolate     = "no-interpolate"
	flagOutputFrame       = "output-frame"
	flagFields            = "fields"
	flagDelimiter         = "delimiter"
	flagPrecision         = "precision"
	flagDebug             = "debug"
	flagLogLevel          = "log-level"
)

// linkList collects --from and --to links in the order they appear on the command line.
type linkList struct {
	links []config.LinkConfig
}

// linkFlag is the flag.Value behind --from and --to. Both flags append to the same list so that
// their interleaving is kept.
type linkFlag struct {
	direction referenceframe.Direction
	list      *linkList
}

func (lf *linkFlag) Set(spec string) error {
	link, err := config.ParseLink(lf.direction, spec)
	if err != nil {
		return err
	}
	lf.list.links = append(lf.list.links, link)
	return nil
}

// String is empty so that help output shows no default.
func (lf *linkFlag) String() string {
	return ""
}
