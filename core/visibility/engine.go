// Package visibility derives per-sample altitude, airmass and observability
// series for targets on a night.
package visibility

import (
	"context"
	"time"

	"github.com/kilianp07/nightplan/core/ephemeris"
	"github.com/kilianp07/nightplan/core/logger"
	"github.com/kilianp07/nightplan/core/model"
)

// Engine computes visibility for one telescope.
type Engine struct {
	Provider ephemeris.Provider
	Profile  *model.TelescopeProfile
	Cache    *Cache
	log      logger.Logger
}

// NewEngine builds an engine. cache may be nil to disable memoization.
func NewEngine(p ephemeris.Provider, profile *model.TelescopeProfile, cache *Cache, log logger.Logger) *Engine {
	return &Engine{Provider: p, Profile: profile, Cache: cache, log: logger.OrNop(log)}
}

// Compute derives the visibility series of t on n.
func (e *Engine) Compute(n *model.Night, t *model.Target) *model.Visibility {
	size := n.Len()
	v := &model.Visibility{
		Alt:               make([]float64, size),
		Az:                make([]float64, size),
		HA:                make([]float64, size),
		Airmass:           make([]float64, size),
		LastPossibleStart: -1,
	}
	if size == 0 {
		return v
	}
	mid := n.Times[size/2]
	ra, dec := e.Provider.Precess(t.RA, t.Dec, t.Epoch, t.PMRA, t.PMDec, mid)
	for i, ts := range n.Times {
		h := e.Provider.Observe(ts, n.Site, n.Atmosphere, ra, dec)
		v.Alt[i], v.Az[i], v.HA[i] = h.Alt, h.Az, h.HA
		v.Airmass[i] = ephemeris.Airmass(h.Alt)
	}
	for _, side := range e.Profile.Sides() {
		obs := make([]bool, size)
		for i := range obs {
			obs[i] = e.Profile.Observable(side, v.Alt[i], v.Az[i], dec, v.HA[i])
		}
		v.Sides = append(v.Sides, model.SideSeries{Side: side, Observable: obs})
	}

	need := t.RequestedDuration(n)
	for _, s := range v.Sides {
		if i := LastStart(n, s.Observable, need); i > v.LastPossibleStart {
			v.LastPossibleStart = i
		}
	}
	v.ObservableTonight = v.LastPossibleStart >= 0
	if v.ObservableTonight {
		v.LastStartTime = n.Times[v.LastPossibleStart]
	}
	return v
}

// ComputeAll attaches visibility to every target, reusing cached series.
// Cancellation is checked between targets.
func (e *Engine) ComputeAll(ctx context.Context, n *model.Night, targets []*model.Target) error {
	nightKey := n.Fingerprint() + "|" + e.Profile.Name
	hits := 0
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := nightKey + "|" + t.Fingerprint()
		if v, ok := e.Cache.Get(key); ok {
			t.Visibility = v
			hits++
			continue
		}
		t.Visibility = e.Compute(n, t)
		e.Cache.Put(key, t.Visibility)
	}
	e.log.Debugw("visibility computed", map[string]any{"targets": len(targets), "cache_hits": hits})
	return nil
}

// LastStart returns the latest index i such that observable is true on a
// contiguous run starting at i whose span reaches need. A run of samples
// i..j covers [Times[i], Times[j]]. It returns -1 when no run is long enough.
func LastStart(n *model.Night, observable []bool, need time.Duration) int {
	end := -1
	for i := len(observable) - 1; i >= 0; i-- {
		if !observable[i] {
			end = -1
			continue
		}
		if end < 0 {
			end = i
		}
		if n.Times[end].Sub(n.Times[i]) >= need {
			return i
		}
	}
	return -1
}

// Intervals converts a per-sample mask into the covered time ranges.
func Intervals(n *model.Night, mask []bool) model.IntervalSet {
	var out []model.Interval
	start := -1
	for i := 0; i <= len(mask); i++ {
		on := i < len(mask) && mask[i]
		switch {
		case on && start < 0:
			start = i
		case !on && start >= 0:
			out = append(out, model.Interval{Start: n.Times[start], End: n.Times[i-1]})
			start = -1
		}
	}
	return model.NewIntervalSet(out...)
}
