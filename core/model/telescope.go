package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

var (
	// ErrUnknownTelescope is returned when a telescope name is not in the catalogue.
	ErrUnknownTelescope = errors.New("unknown telescope")
	// ErrInvalidProfile is returned for malformed telescope profiles.
	ErrInvalidProfile = errors.New("invalid telescope profile")
)

// MountKind selects the pointing-limit model of a telescope.
type MountKind string

const (
	// MountAltAz limits altitude as a function of azimuth and excludes a
	// zenith tracking band.
	MountAltAz MountKind = "altaz"
	// MountEquatorialSimple limits altitude as a function of declination.
	MountEquatorialSimple MountKind = "equatorial"
	// MountEquatorialSplineEastWest has one declination limit per pier side.
	MountEquatorialSplineEastWest MountKind = "equatorial_eastwest"
)

// Side identifies an observable sub-series of a target.
type Side int

const (
	SidePrimary Side = iota
	SideOverTheAxis
)

func (s Side) String() string {
	if s == SideOverTheAxis {
		return "over-the-axis"
	}
	return "primary"
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "primary", "":
		*s = SidePrimary
	case "over-the-axis":
		*s = SideOverTheAxis
	default:
		return fmt.Errorf("unknown side %q", b)
	}
	return nil
}

// LimitPoint is a control point of a limit function: at coordinate X
// (azimuth or declination, degrees) the minimum altitude is MinAlt.
type LimitPoint struct {
	X      float64 `json:"x" yaml:"x"`
	MinAlt float64 `json:"min_alt" yaml:"min_alt"`
}

// LimitFunc maps azimuth or declination to a minimum altitude.
type LimitFunc func(x float64) float64

// TelescopeProfile describes the geometric limits of a telescope.
type TelescopeProfile struct {
	Name          string       `json:"name" yaml:"name"`
	Mount         MountKind    `json:"mount" yaml:"mount"`
	LowestAlt     float64      `json:"lowest_alt" yaml:"lowest_alt"`
	HighestAlt    float64      `json:"highest_alt" yaml:"highest_alt"`
	VignettingAlt float64      `json:"vignetting_alt" yaml:"vignetting_alt"`
	ZenithBand    float64      `json:"zenith_band" yaml:"zenith_band"`
	OverTheAxis   bool         `json:"over_the_axis" yaml:"over_the_axis"`
	Limit         []LimitPoint `json:"limit" yaml:"limit"`
	EastLimit     []LimitPoint `json:"east_limit" yaml:"east_limit"`
	WestLimit     []LimitPoint `json:"west_limit" yaml:"west_limit"`

	limit LimitFunc
	east  LimitFunc
	west  LimitFunc
}

func validLimit(name string, points []LimitPoint) error {
	if len(points) == 0 {
		return nil
	}
	if len(points) < 2 {
		return fmt.Errorf("%w: %s limit needs at least two points", ErrInvalidProfile, name)
	}
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.MinAlt) {
			return fmt.Errorf("%w: %s limit point %d is not a number", ErrInvalidProfile, name, i)
		}
		if i > 0 && p.X <= points[i-1].X {
			return fmt.Errorf("%w: %s limit points must increase, %v follows %v", ErrInvalidProfile, name, p.X, points[i-1].X)
		}
	}
	return nil
}

func buildLimit(points []LimitPoint) (LimitFunc, error) {
	if len(points) == 0 {
		return nil, nil
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.MinAlt
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	lo, hi := xs[0], xs[len(xs)-1]
	return func(x float64) float64 {
		if x <= lo {
			return ys[0]
		}
		if x >= hi {
			return ys[len(ys)-1]
		}
		return pl.Predict(x)
	}, nil
}

// Validate rejects malformed profiles: an empty or inverted altitude range,
// an unknown mount, limits with fewer than two points or with control
// points that do not strictly increase.
func (p *TelescopeProfile) Validate() error {
	highest := p.HighestAlt
	if highest == 0 {
		highest = 90
	}
	if p.LowestAlt < 0 || highest > 90 || p.LowestAlt >= highest {
		return fmt.Errorf("%w: altitude limits [%v, %v]", ErrInvalidProfile, p.LowestAlt, highest)
	}
	switch p.Mount {
	case "", MountAltAz, MountEquatorialSimple:
		return validLimit("mount", p.Limit)
	case MountEquatorialSplineEastWest:
		if len(p.EastLimit) == 0 || len(p.WestLimit) == 0 {
			return fmt.Errorf("%w: %s mount needs east and west limits", ErrInvalidProfile, p.Mount)
		}
		if err := validLimit("east", p.EastLimit); err != nil {
			return err
		}
		return validLimit("west", p.WestLimit)
	}
	return fmt.Errorf("%w: mount %q", ErrInvalidProfile, p.Mount)
}

// Compile validates the profile and builds its limit functions. It must be
// called before the profile is used for visibility computations.
func (p *TelescopeProfile) Compile() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Mount == "" {
		p.Mount = MountAltAz
	}
	if p.HighestAlt == 0 {
		p.HighestAlt = 90
	}
	var err error
	if p.Mount == MountEquatorialSplineEastWest {
		if p.east, err = buildLimit(p.EastLimit); err != nil {
			return err
		}
		p.west, err = buildLimit(p.WestLimit)
		return err
	}
	p.limit, err = buildLimit(p.Limit)
	return err
}

// Sides returns the observable sub-series evaluated for this telescope.
func (p *TelescopeProfile) Sides() []Side {
	if p.Mount == MountEquatorialSplineEastWest && p.OverTheAxis {
		return []Side{SidePrimary, SideOverTheAxis}
	}
	return []Side{SidePrimary}
}

// MinAltitude returns the minimum allowed altitude for a pointing at the
// given azimuth, declination and hour angle (degrees, HA negative east).
func (p *TelescopeProfile) MinAltitude(side Side, az, dec, ha float64) float64 {
	min := p.LowestAlt
	var lim LimitFunc
	var x float64
	switch p.Mount {
	case MountAltAz:
		lim, x = p.limit, az
	case MountEquatorialSimple:
		lim, x = p.limit, dec
	case MountEquatorialSplineEastWest:
		east := ha < 0
		if side == SideOverTheAxis {
			east = !east
		}
		lim, x = p.west, dec
		if east {
			lim = p.east
		}
	}
	if lim != nil {
		if v := lim(x); v > min {
			min = v
		}
	}
	return min
}

// Observable reports whether a pointing is inside the telescope limits.
func (p *TelescopeProfile) Observable(side Side, alt, az, dec, ha float64) bool {
	if alt < p.LowestAlt || alt > p.HighestAlt {
		return false
	}
	return alt >= p.MinAltitude(side, az, dec, ha)
}

// InZenithBand reports whether alt is above the zenith tracking exclusion.
func (p *TelescopeProfile) InZenithBand(alt float64) bool {
	return p.ZenithBand > 0 && alt > p.ZenithBand
}

// Vignetted reports whether alt is below the vignetting altitude.
func (p *TelescopeProfile) Vignetted(alt float64) bool {
	return p.VignettingAlt > 0 && alt < p.VignettingAlt
}
