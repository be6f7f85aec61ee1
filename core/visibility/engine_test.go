package visibility

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/nightplan/core/ephemeris"
	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/core/night"
)

var eveningStart = time.Date(2025, 1, 2, 20, 0, 0, 0, time.UTC)

// fakeProvider culminates every target at 01:00 UTC at 70 degrees and loses
// 12 degrees per hour away from transit.
type fakeProvider struct {
	observed int
}

func (f *fakeProvider) Observe(t time.Time, _ model.Site, _ model.Atmosphere, _, _ float64) ephemeris.Horizontal {
	f.observed++
	dm := t.Sub(eveningStart.Add(5 * time.Hour)).Minutes()
	az := 90.0
	if dm > 0 {
		az = 270
	}
	return ephemeris.Horizontal{Alt: 70 - math.Abs(dm)*12/60, Az: az, HA: dm / 4}
}

func (f *fakeProvider) SiderealTime(time.Time, model.Site) float64          { return 0 }
func (f *fakeProvider) SolarPosition(time.Time) (float64, float64, float64) { return 0, 0, 1 }
func (f *fakeProvider) LunarPosition(time.Time) ephemeris.Lunar             { return ephemeris.Lunar{} }
func (f *fakeProvider) RefractionAt(float64, model.Atmosphere) float64      { return 0 }
func (f *fakeProvider) Precess(ra, dec, _, _, _ float64, _ time.Time) (float64, float64) {
	return ra, dec
}

func profile(t *testing.T, name string) *model.TelescopeProfile {
	t.Helper()
	p, err := model.Lookup(name)
	require.NoError(t, err)
	return &p
}

func TestComputeLastPossibleStart(t *testing.T) {
	n := night.Grid(eveningStart, eveningStart.Add(10*time.Hour), 0)
	e := NewEngine(&fakeProvider{}, profile(t, "generic-altaz"), nil, nil)

	checks := []struct {
		name     string
		target   model.Target
		wantOK   bool
		wantLast time.Time
	}{
		{"one hour", model.Target{Name: "a", Duration: 3600}, true, eveningStart.Add(8*time.Hour + 10*time.Minute)},
		{"too long", model.Target{Name: "b", Duration: 9 * 3600}, false, time.Time{}},
		{"zero duration", model.Target{Name: "c"}, true, eveningStart.Add(9*time.Hour + 10*time.Minute)},
		{"fill window", model.Target{Name: "d", FillWindow: true,
			Constraint: model.Constraint{Kind: model.ConstraintUTC, Start: 22, End: 23}}, true, eveningStart.Add(8*time.Hour + 10*time.Minute)},
	}
	for _, c := range checks {
		tg := c.target
		v := e.Compute(n, &tg)
		if v.ObservableTonight != c.wantOK {
			t.Errorf("%s: observable %v", c.name, v.ObservableTonight)
			continue
		}
		if c.wantOK && !v.LastStartTime.Equal(c.wantLast) {
			t.Errorf("%s: last start %s want %s", c.name, v.LastStartTime, c.wantLast)
		}
		if !c.wantOK && v.LastPossibleStart != -1 {
			t.Errorf("%s: last index %d", c.name, v.LastPossibleStart)
		}
	}
}

func TestComputeSeriesAligned(t *testing.T) {
	n := night.Grid(eveningStart, eveningStart.Add(10*time.Hour), 0)
	e := NewEngine(&fakeProvider{}, profile(t, "generic-altaz"), nil, nil)
	v := e.Compute(n, &model.Target{Name: "x", Duration: 600})
	assert.Len(t, v.Alt, n.Len())
	assert.Len(t, v.Airmass, n.Len())
	require.Len(t, v.Sides, 1)
	assert.Equal(t, model.SidePrimary, v.Sides[0].Side)
	assert.InDelta(t, 70, v.Alt[300], 1e-9)
	assert.InDelta(t, ephemeris.Airmass(10), v.Airmass[0], 1e-9)
}

func TestComputeOverTheAxisSides(t *testing.T) {
	p := profile(t, "INT")
	p.OverTheAxis = true
	n := night.Grid(eveningStart, eveningStart.Add(10*time.Hour), 0)
	e := NewEngine(&fakeProvider{}, p, nil, nil)
	v := e.Compute(n, &model.Target{Name: "x", Dec: -30, Duration: 600})
	require.Len(t, v.Sides, 2)
	assert.NotNil(t, v.Side(model.SideOverTheAxis))

	// at dec -30 the east limit is 33 and the west limit 30: a sample east of
	// the meridian at 31 degrees is only reachable over the axis
	i := n.IndexAt(eveningStart.Add(5*time.Hour - 3*time.Hour - 15*time.Minute))
	assert.InDelta(t, 31, v.Alt[i], 1e-6)
	assert.False(t, v.Side(model.SidePrimary).Observable[i])
	assert.True(t, v.Side(model.SideOverTheAxis).Observable[i])
}

func TestComputeAllUsesCache(t *testing.T) {
	n := night.Grid(eveningStart, eveningStart.Add(2*time.Hour), 0)
	fp := &fakeProvider{}
	cache := NewCache()
	e := NewEngine(fp, profile(t, "generic-altaz"), cache, nil)
	targets := []*model.Target{{Name: "a", Duration: 60}, {Name: "b", RA: 10, Duration: 60}}

	require.NoError(t, e.ComputeAll(context.Background(), n, targets))
	first := fp.observed
	assert.Equal(t, 2, cache.Len())

	fresh := []*model.Target{{Name: "a", Duration: 60}, {Name: "b", RA: 10, Duration: 60}}
	require.NoError(t, e.ComputeAll(context.Background(), n, fresh))
	assert.Equal(t, first, fp.observed)
	assert.Same(t, targets[0].Visibility, fresh[0].Visibility)

	fresh[1].Duration = 120
	require.NoError(t, e.ComputeAll(context.Background(), n, fresh))
	assert.Greater(t, fp.observed, first)
}

func TestComputeAllCancelled(t *testing.T) {
	n := night.Grid(eveningStart, eveningStart.Add(time.Hour), 0)
	e := NewEngine(&fakeProvider{}, profile(t, "generic-altaz"), NewCache(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.ComputeAll(ctx, n, []*model.Target{{Name: "a"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation got %v", err)
	}
}

func TestLastStartAndIntervals(t *testing.T) {
	n := night.Grid(eveningStart, eveningStart.Add(9*time.Minute), 10)
	mask := []bool{false, true, true, true, false, true, true, true, true, false}
	assert.Equal(t, 5, LastStart(n, mask, 3*time.Minute))
	assert.Equal(t, 7, LastStart(n, mask, time.Minute))
	assert.Equal(t, -1, LastStart(n, mask, 4*time.Minute))

	set := Intervals(n, mask)
	require.Len(t, set, 2)
	assert.Equal(t, eveningStart.Add(time.Minute), set[0].Start)
	assert.Equal(t, eveningStart.Add(3*time.Minute), set[0].End)
	assert.Equal(t, eveningStart.Add(8*time.Minute), set[1].End)
}

func TestSummarize(t *testing.T) {
	n := night.Grid(eveningStart, eveningStart.Add(10*time.Hour), 0)
	e := NewEngine(&fakeProvider{}, profile(t, "generic-altaz"), nil, nil)
	tg := &model.Target{Name: "x", Duration: 600}
	tg.Visibility = e.Compute(n, tg)
	s := Summarize(n, tg)
	assert.InDelta(t, 70, s.MaxAlt, 1e-9)
	assert.Equal(t, eveningStart.Add(5*time.Hour), s.Culmination)
	assert.Equal(t, eveningStart.Add(50*time.Minute), s.ObservableFrom)
	assert.Equal(t, eveningStart.Add(9*time.Hour+10*time.Minute), s.ObservableTo)
	assert.True(t, s.Observable)
}
