// Package synthetic builds deterministic nights and targets for tests.
package synthetic

import (
	"math"
	"time"

	"github.com/kilianp07/nightplan/core/ephemeris"
	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/core/night"
	"github.com/kilianp07/nightplan/core/visibility"
)

// At returns hh:mm UTC on the synthetic night, which runs from 20:00 on
// 2 January 2025 to 06:00 on 3 January.
func At(h, m int) time.Time {
	d := 2
	if h < 12 {
		d = 3
	}
	return time.Date(2025, 1, d, h, m, 0, 0, time.UTC)
}

// Night returns a one-minute grid between 20:00 and 06:00 UTC.
func Night() *model.Night {
	n := night.Grid(At(20, 0), At(6, 0), 0)
	n.Date = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	n.Mode = model.WindowSunset
	return n
}

// Profile returns a permissive alt-az telescope.
func Profile() *model.TelescopeProfile {
	p := model.TelescopeProfile{Name: "synthetic", Mount: model.MountAltAz, LowestAlt: 0, HighestAlt: 90}
	if err := p.Compile(); err != nil {
		panic(err)
	}
	return &p
}

// Span is a closed observable range.
type Span struct{ From, To time.Time }

// Between is shorthand for a Span.
func Between(from, to time.Time) Span { return Span{From: from, To: to} }

// Target returns a target whose altitude peaks at 80 degrees at peak and
// drops 12 degrees per hour, observable only inside spans on the primary
// side.
func Target(n *model.Night, name string, seconds float64, peak time.Time, spans ...Span) *model.Target {
	size := n.Len()
	v := &model.Visibility{
		Alt:     make([]float64, size),
		Az:      make([]float64, size),
		HA:      make([]float64, size),
		Airmass: make([]float64, size),
	}
	for i, ts := range n.Times {
		dm := ts.Sub(peak).Minutes()
		v.Alt[i] = 80 - math.Abs(dm)*12/60
		v.Airmass[i] = ephemeris.Airmass(v.Alt[i])
		v.HA[i] = dm / 4
		v.Az[i] = 180
	}
	v.Sides = []model.SideSeries{{Side: model.SidePrimary, Observable: Mask(n, spans...)}}
	t := &model.Target{Name: name, Duration: seconds, Epoch: 2000, Visibility: v, State: model.StateUnscheduled}
	Refresh(n, t)
	return t
}

// Mask marks the samples inside any of spans.
func Mask(n *model.Night, spans ...Span) []bool {
	out := make([]bool, n.Len())
	for i, ts := range n.Times {
		for _, s := range spans {
			if !ts.Before(s.From) && !ts.After(s.To) {
				out[i] = true
			}
		}
	}
	return out
}

// Refresh recomputes the last possible start after a field change.
func Refresh(n *model.Night, t *model.Target) {
	v := t.Visibility
	v.LastPossibleStart = -1
	need := t.RequestedDuration(n)
	for _, s := range v.Sides {
		if i := visibility.LastStart(n, s.Observable, need); i > v.LastPossibleStart {
			v.LastPossibleStart = i
		}
	}
	v.ObservableTonight = v.LastPossibleStart >= 0
	v.LastStartTime = time.Time{}
	if v.ObservableTonight {
		v.LastStartTime = n.Times[v.LastPossibleStart]
	}
}

// Window returns a UTC window constraint between two hours of day.
func Window(start, end float64) model.Constraint {
	return model.Constraint{Kind: model.ConstraintUTC, Start: start, End: end}
}

// Offline returns a UTC offline period.
func Offline(start, end float64) model.OfflinePeriod {
	return model.OfflinePeriod{Constraint: Window(start, end)}
}

// SiderealClock fills the night's LST series so that it reads lst0 hours at
// the first sample.
func SiderealClock(n *model.Night, lst0 float64) {
	for i, ts := range n.Times {
		n.LST[i] = math.Mod(lst0+ts.Sub(n.Times[0]).Hours()*model.SiderealRate, 24)
	}
}

// LSTWindow returns an LST window constraint.
func LSTWindow(start, end float64) model.Constraint {
	return model.Constraint{Kind: model.ConstraintLST, Start: start, End: end}
}
