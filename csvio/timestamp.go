package csvio

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimeLayout is the compact ISO 8601 form used by navigation logs, e.g. 20240301T120005.25.
// A fractional second is accepted when parsing even though the layout does not show one.
const TimeLayout = "20060102T150405"

// ParseTime parses a timestamp in the compact ISO 8601 form, RFC 3339, or as decimal seconds since
// the Unix epoch. Timestamps without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.ParseInLocation(TimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := parseEpochSeconds(s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

// FormatTime formats t in the compact ISO 8601 form with microseconds, e.g. 20240301T120005.250000.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout + ".000000")
}

// parseEpochSeconds splits on the decimal point so nanoseconds survive the conversion exactly.
func parseEpochSeconds(s string) (time.Time, error) {
	negative := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if whole == "" && frac == "" {
		return time.Time{}, errors.New("no digits")
	}
	var sec int64
	if whole != "" {
		var err error
		if sec, err = strconv.ParseInt(whole, 10, 64); err != nil {
			return time.Time{}, err
		}
	}
	var nsec int64
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		var err error
		if nsec, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return time.Time{}, err
		}
	}
	if sec < 0 || nsec < 0 {
		return time.Time{}, errors.New("unexpected sign")
	}
	if negative {
		sec, nsec = -sec, -nsec
	}
	return time.Unix(sec, nsec).UTC(), nil
}
