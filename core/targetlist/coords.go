package targetlist

import (
	"fmt"
	"strings"

	"github.com/kilianp07/nightplan/core/constraint"
)

// ParseRA reads right ascension as h:m:s or as decimal degrees and returns
// degrees in [0, 360).
func ParseRA(s string) (float64, error) {
	if strings.Contains(s, ":") {
		_, h, err := sexagesimal(s)
		if err != nil {
			return 0, err
		}
		if h >= 24 {
			return 0, fmt.Errorf("%w: hours %v", ErrCoordinate, h)
		}
		return h * 15, nil
	}
	d, err := constraint.ParseNumber(s)
	if err != nil || d < 0 || d >= 360 {
		return 0, fmt.Errorf("%w: ra %q", ErrCoordinate, s)
	}
	return d, nil
}

// ParseDec reads declination as ±d:m:s or as decimal degrees.
func ParseDec(s string) (float64, error) {
	var d float64
	if strings.Contains(s, ":") {
		neg, v, err := sexagesimal(s)
		if err != nil {
			return 0, err
		}
		d = v
		if neg {
			d = -v
		}
	} else {
		v, err := constraint.ParseNumber(s)
		if err != nil {
			return 0, fmt.Errorf("%w: dec %q", ErrCoordinate, s)
		}
		d = v
	}
	if d < -90 || d > 90 {
		return 0, fmt.Errorf("%w: dec %v", ErrCoordinate, d)
	}
	return d, nil
}

// sexagesimal splits "[+-]a:b[:c]" into its sign and unsigned value. The sign
// is read from the text so that "-00:30:00" stays negative.
func sexagesimal(s string) (neg bool, v float64, err error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return false, 0, fmt.Errorf("%w: %q", ErrCoordinate, s)
	}
	scale := 1.0
	for i, p := range parts {
		x, perr := constraint.ParseNumber(p)
		if perr != nil || x < 0 || (i > 0 && x >= 60) {
			return false, 0, fmt.Errorf("%w: %q", ErrCoordinate, s)
		}
		v += x / scale
		scale *= 60
	}
	return neg, v, nil
}
