// Package night builds the time grid and solar/lunar context of one
// observing night.
package night

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/nightplan/core/ephemeris"
	"github.com/kilianp07/nightplan/core/model"
)

// ErrNoNight is returned when the Sun does not cross the horizon threshold on
// the requested date.
var ErrNoNight = errors.New("sun does not set on this date")

const (
	// DefaultStep is the grid spacing used when Params.Samples is zero.
	DefaultStep = time.Minute

	nauticalAlt     = -12.0
	astronomicalAlt = -18.0
	sunRadiusAU     = 0.26666 // degrees at 1 AU
	maxIterations   = 10
	tolerance       = time.Second
	kmPerAU         = 149597870.7
)

// Params selects the night to build.
type Params struct {
	Date       time.Time
	Site       model.Site
	Atmosphere model.Atmosphere
	Mode       model.WindowMode
	// Samples is the number of grid points between sunset and sunrise.
	Samples int
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// Build computes the night starting on the evening of p.Date.
func Build(ctx context.Context, prov ephemeris.Provider, p Params) (*model.Night, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.Site.Validate(); err != nil {
		return nil, err
	}
	if p.Atmosphere == (model.Atmosphere{}) {
		p.Atmosphere = model.DefaultAtmosphere()
	}
	s := solver{prov: prov, site: p.Site}

	y, m, d := p.Date.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, time.UTC).Add(-hours(p.Site.Longitude / 15))
	transit := s.transit(noon)
	nextTransit := s.transit(transit.Add(24 * time.Hour))

	_, _, r := prov.SolarPosition(transit)
	refr := prov.RefractionAt(0, p.Atmosphere)
	refr = prov.RefractionAt(-refr, p.Atmosphere)
	h0 := -(sunRadiusAU/r + refr + ephemeris.HorizonDip(p.Site.Altitude))

	sunset, ok := s.event(transit, h0, true)
	if !ok {
		return nil, fmt.Errorf("%w: %s at latitude %.2f", ErrNoNight, p.Date.Format("2006-01-02"), p.Site.Latitude)
	}
	sunrise, ok := s.event(nextTransit, h0, false)
	if !ok {
		return nil, fmt.Errorf("%w: %s at latitude %.2f", ErrNoNight, p.Date.Format("2006-01-02"), p.Site.Latitude)
	}
	sunset = snapAfter(sunset, noon)
	sunrise = snapAfter(sunrise, sunset)

	n := Grid(sunset, sunrise, p.Samples)
	n.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	n.Site = p.Site
	n.Atmosphere = p.Atmosphere
	n.Mode = p.Mode
	n.Sunset, n.Sunrise = sunset, sunrise

	lowest := transit.Add(nextTransit.Sub(transit) / 2)
	n.NauticalDusk = s.twilight(transit, nauticalAlt, true, lowest)
	n.NauticalDawn = s.twilight(nextTransit, nauticalAlt, false, lowest)
	n.AstronomicalDusk = s.twilight(transit, astronomicalAlt, true, lowest)
	n.AstronomicalDawn = s.twilight(nextTransit, astronomicalAlt, false, lowest)

	if err := fillSeries(ctx, prov, n); err != nil {
		return nil, err
	}
	n.Moonrise, n.Moonset = moonCrossings(n, -ephemeris.HorizonDip(p.Site.Altitude))
	n.MoonIllumination = [2]float64{illumination(prov, sunset), illumination(prov, sunrise)}
	n.SelectWindow()
	return n, nil
}

// Grid returns a night with evenly spaced sample times over [start, end].
// When samples is zero the spacing is DefaultStep. Series other than Times
// are allocated but left zero.
func Grid(start, end time.Time, samples int) *model.Night {
	span := end.Sub(start)
	if samples < 2 {
		samples = int(span/DefaultStep) + 1
		if samples < 2 {
			samples = 2
		}
	}
	offsets := floats.Span(make([]float64, samples), 0, span.Seconds())
	n := &model.Night{
		Sunset:     start,
		Sunrise:    end,
		Times:      make([]time.Time, samples),
		LST:        make([]float64, samples),
		MoonAlt:    make([]float64, samples),
		MoonRadius: make([]float64, samples),
		MoonRA:     make([]float64, samples),
		MoonDec:    make([]float64, samples),
	}
	for i, o := range offsets {
		n.Times[i] = start.Add(time.Duration(math.Round(o * float64(time.Second))))
	}
	n.Times[samples-1] = end
	n.GlobalStart, n.GlobalEnd = start, end
	return n
}

func fillSeries(ctx context.Context, prov ephemeris.Provider, n *model.Night) error {
	const rad = math.Pi / 180
	for i, t := range n.Times {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		lst := prov.SiderealTime(t, n.Site)
		moon := prov.LunarPosition(t)
		alt, _ := ephemeris.HorizontalFromHA(ephemeris.WrapHourAngle(lst*15-moon.RA), moon.Dec, n.Site.Latitude)
		alt -= moon.Parallax * math.Cos(alt*rad)
		alt += prov.RefractionAt(alt, n.Atmosphere)

		n.LST[i] = lst
		n.MoonAlt[i] = alt
		n.MoonRadius[i] = moon.Radius
		n.MoonRA[i] = moon.RA
		n.MoonDec[i] = moon.Dec
	}
	return nil
}

// moonCrossings returns the first upper-limb rise and set inside the grid by
// secant interpolation between bracketing samples.
func moonCrossings(n *model.Night, threshold float64) (rise, set time.Time) {
	f := func(i int) float64 { return n.MoonAlt[i] + n.MoonRadius[i] - threshold }
	for i := 0; i+1 < n.Len(); i++ {
		a, b := f(i), f(i+1)
		if a == b {
			continue
		}
		crossing := func() time.Time {
			frac := -a / (b - a)
			return n.Times[i].Add(time.Duration(frac * float64(n.Times[i+1].Sub(n.Times[i]))))
		}
		if rise.IsZero() && a < 0 && b >= 0 {
			rise = crossing()
		}
		if set.IsZero() && a >= 0 && b < 0 {
			set = crossing()
		}
	}
	return rise, set
}

func illumination(prov ephemeris.Provider, t time.Time) float64 {
	const rad = math.Pi / 180
	sra, sdec, _ := prov.SolarPosition(t)
	moon := prov.LunarPosition(t)
	cosψ := math.Sin(sdec*rad)*math.Sin(moon.Dec*rad) +
		math.Cos(sdec*rad)*math.Cos(moon.Dec*rad)*math.Cos((sra-moon.RA)*rad)
	return 100 * (1 - cosψ) / 2
}

func snapAfter(t, ref time.Time) time.Time {
	for t.Before(ref) {
		t = t.Add(24 * time.Hour)
	}
	for !t.Before(ref.Add(24 * time.Hour)) {
		t = t.Add(-24 * time.Hour)
	}
	return t
}

func hours(h float64) time.Duration { return time.Duration(h * float64(time.Hour)) }
