package visibility

import (
	"time"

	"github.com/kilianp07/nightplan/core/model"
)

// Summary condenses a target's visibility on the night.
type Summary struct {
	Target         string
	RA, Dec        float64
	MaxAlt         float64
	Culmination    time.Time
	MinAirmass     float64
	ObservableFrom time.Time
	ObservableTo   time.Time
	LastStart      time.Time
	Observable     bool
}

// Summarize reports the culmination and observable span of t, which must
// carry visibility for n.
func Summarize(n *model.Night, t *model.Target) Summary {
	s := Summary{Target: t.Name, RA: t.RA, Dec: t.Dec, MaxAlt: -90}
	v := t.Visibility
	if v == nil {
		return s
	}
	for i, alt := range v.Alt {
		if alt > s.MaxAlt {
			s.MaxAlt, s.Culmination, s.MinAirmass = alt, n.Times[i], v.Airmass[i]
		}
	}
	var all model.IntervalSet
	for _, side := range v.Sides {
		all = all.Union(Intervals(n, side.Observable))
	}
	if len(all) > 0 {
		s.ObservableFrom, s.ObservableTo = all[0].Start, all[len(all)-1].End
	}
	s.Observable = v.ObservableTonight
	s.LastStart = v.LastStartTime
	return s
}
