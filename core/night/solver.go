package night

import (
	"math"
	"time"

	"github.com/kilianp07/nightplan/core/ephemeris"
	"github.com/kilianp07/nightplan/core/model"
)

// solver refines solar events by iterating on the Sun's hour angle.
type solver struct {
	prov ephemeris.Provider
	site model.Site
}

func (s solver) sunHA(t time.Time) (ha, dec float64) {
	ra, dec, _ := s.prov.SolarPosition(t)
	return ephemeris.WrapHourAngle(s.prov.SiderealTime(t, s.site)*15 - ra), dec
}

// transit returns the upper culmination closest to t.
func (s solver) transit(t time.Time) time.Time {
	for i := 0; i < maxIterations; i++ {
		ha, _ := s.sunHA(t)
		step := hours(ha / 15)
		t = t.Add(-step)
		if step.Abs() < tolerance {
			break
		}
	}
	return t
}

// event solves for the time near transit at which the Sun's altitude equals
// h0 while setting (or rising). ok is false when the Sun stays on one side
// of h0 all day. After maxIterations the last estimate is returned.
func (s solver) event(transit time.Time, h0 float64, setting bool) (time.Time, bool) {
	const rad = math.Pi / 180
	t := transit
	sinP, cosP := math.Sincos(s.site.Latitude * rad)
	for i := 0; i < maxIterations; i++ {
		ha, dec := s.sunHA(t)
		sinD, cosD := math.Sincos(dec * rad)
		cosH := (math.Sin(h0*rad) - sinP*sinD) / (cosP * cosD)
		if cosH < -1 || cosH > 1 {
			if i == 0 {
				return t, false
			}
			return t, true
		}
		target := math.Acos(cosH) / rad
		if !setting {
			target = -target
		}
		step := hours(ephemeris.WrapHourAngle(target-ha) / 15)
		t = t.Add(step)
		if step.Abs() < tolerance {
			break
		}
	}
	return t, true
}

// twilight solves a twilight event. When the Sun never reaches h0 the time
// of its lowest point is returned.
func (s solver) twilight(transit time.Time, h0 float64, setting bool, lowest time.Time) time.Time {
	t, ok := s.event(transit, h0, setting)
	if !ok {
		return lowest
	}
	return t
}
