package scheduler

import (
	"sort"
	"time"

	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/core/visibility"
)

// option is one feasible way of observing a target on one side.
type option struct {
	side     model.Side
	starts   []time.Time
	airmass  []float64
	feasible time.Duration
}

func (o option) ok() bool { return len(o.starts) > 0 }

// bounds returns the part of free where t may be observed regardless of the
// sky: its constraint window and the not-in-the-past filter.
func (s *Scheduler) bounds(n *model.Night, t *model.Target, free model.IntervalSet, now time.Time) model.IntervalSet {
	b := free
	if t.Constraint.IsWindow() {
		w, ok := t.Constraint.Window(n)
		if !ok {
			return nil
		}
		b = b.Intersect(model.NewIntervalSet(w))
	}
	if !now.IsZero() {
		b = b.Subtract(model.NewIntervalSet(model.Interval{Start: n.Times[0].Add(-24 * time.Hour), End: now}))
	}
	return b
}

// mask marks the samples at which t may be observed on side.
func (s *Scheduler) mask(prof *model.TelescopeProfile, t *model.Target, side model.Side) []bool {
	v := t.Visibility
	ser := v.Side(side)
	if ser == nil {
		return nil
	}
	limit := t.Constraint.MaxAirmass(s.opts.DefaultMaxAirmass)
	out := make([]bool, len(ser.Observable))
	for i, obs := range ser.Observable {
		if !obs {
			continue
		}
		if limit > 0 && v.Airmass[i] > limit {
			continue
		}
		if s.opts.AvoidZenithBand && prof.InZenithBand(v.Alt[i]) {
			continue
		}
		out[i] = true
	}
	return out
}

// evaluate lists the start times at which t fits on side, in chronological
// order, together with the airmass at each start.
func (s *Scheduler) evaluate(n *model.Night, prof *model.TelescopeProfile, t *model.Target, side model.Side,
	bounds model.IntervalSet, need time.Duration) option {
	o := option{side: side}
	mask := s.mask(prof, t, side)
	if mask == nil || len(bounds) == 0 {
		return o
	}
	runEnd := make([]time.Time, len(mask))
	for i := len(mask) - 1; i >= 0; i-- {
		switch {
		case !mask[i]:
		case i+1 < len(mask) && mask[i+1]:
			runEnd[i] = runEnd[i+1]
		default:
			runEnd[i] = n.Times[i]
		}
	}
	o.feasible = visibility.Intervals(n, mask).Intersect(bounds).Total()

	candidates := make([]time.Time, 0, len(n.Times)+len(bounds))
	candidates = append(candidates, n.Times...)
	for _, b := range bounds {
		candidates = append(candidates, b.Start)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

	var last time.Time
	for k, c := range candidates {
		if k > 0 && c.Equal(last) {
			continue
		}
		last = c
		if c.Before(n.Times[0]) {
			continue
		}
		i := n.IndexAt(c)
		if !mask[i] || runEnd[i].Sub(c) < need {
			continue
		}
		if !bounds.Contains(model.Interval{Start: c, End: c.Add(need)}) {
			continue
		}
		o.starts = append(o.starts, c)
		o.airmass = append(o.airmass, n.Interpolate(t.Visibility.Airmass, c))
	}
	return o
}

// options evaluates every side the pass may use for t.
func (s *Scheduler) options(n *model.Night, prof *model.TelescopeProfile, t *model.Target,
	free model.IntervalSet, now time.Time, need time.Duration) []option {
	b := s.bounds(n, t, free, now)
	var out []option
	for _, side := range s.sides(prof) {
		if o := s.evaluate(n, prof, t, side, b, need); o.ok() {
			out = append(out, o)
		}
	}
	return out
}

// sides lists the observable sub-series the pass may use.
func (s *Scheduler) sides(prof *model.TelescopeProfile) []model.Side {
	var out []model.Side
	for _, side := range prof.Sides() {
		if side == model.SideOverTheAxis && !s.opts.AllowOverTheAxis {
			continue
		}
		out = append(out, side)
	}
	return out
}

// fullyObservable returns the first side on which every sample inside w is
// observable.
func (s *Scheduler) fullyObservable(n *model.Night, prof *model.TelescopeProfile, t *model.Target, w model.Interval) (model.Side, bool) {
	if t.Visibility == nil {
		return model.SidePrimary, false
	}
	for _, side := range s.sides(prof) {
		ser := t.Visibility.Side(side)
		if ser == nil {
			continue
		}
		ok := true
		for i, ts := range n.Times {
			if ts.Before(w.Start) || ts.After(w.End) {
				continue
			}
			if !ser.Observable[i] {
				ok = false
				break
			}
		}
		if ok {
			return side, true
		}
	}
	return model.SidePrimary, false
}
