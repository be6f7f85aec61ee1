package scheduler

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/internal/synthetic"
)

var at = synthetic.At

func run(t *testing.T, opts Options, in Input) model.Schedule {
	t.Helper()
	s, err := New(opts, nil).Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if a, b, bad := s.Overlapping(); bad {
		t.Fatalf("overlap between %s and %s", a.Target, b.Target)
	}
	return s
}

func hasDiag(s model.Schedule, kind model.DiagnosticKind, target string) bool {
	for _, d := range s.Diagnostics {
		if d.Kind == kind && d.Target == target {
			return true
		}
	}
	return false
}

func scenarioA(n *model.Night) []*model.Target {
	a := synthetic.Target(n, "A", 3600, at(19, 0), synthetic.Between(at(20, 0), at(23, 0)))
	b := synthetic.Target(n, "B", 3600, at(19, 0), synthetic.Between(at(20, 0), at(23, 0)))
	a.Constraint = model.Constraint{Kind: model.ConstraintMaxAirmass, Airmass: 2}
	b.Constraint = a.Constraint
	b.Order = 1
	return []*model.Target{a, b}
}

func TestScenarioABackToBack(t *testing.T) {
	for _, ordered := range []bool{false, true} {
		n := synthetic.Night()
		s := run(t, Options{MaintainInputOrder: ordered}, Input{Night: n, Profile: synthetic.Profile(), Targets: scenarioA(n)})
		require.Len(t, s.Assignments, 2, "ordered=%v", ordered)
		first, second := s.Assignments[0], s.Assignments[1]
		window := model.Interval{Start: at(20, 0), End: at(23, 0)}
		for _, a := range s.Assignments {
			assert.Equal(t, model.StateScheduled, a.State)
			assert.True(t, window.Contains(a.Interval), "%s outside window: %v", a.Target, a.Interval)
			assert.Equal(t, time.Hour, a.Interval.Duration())
			assert.LessOrEqual(t, a.Airmass, 2.0)
		}
		assert.Equal(t, first.Interval.End, second.Interval.Start, "ordered=%v", ordered)
		assert.Equal(t, "A", first.Target)
	}
}

func TestScenarioBOfflineLeavesTooLittleCapacity(t *testing.T) {
	n := synthetic.Night()
	tg := synthetic.Target(n, "T", 5400, at(21, 0), synthetic.Between(at(20, 0), at(22, 0)))
	s := run(t, Options{}, Input{
		Night: n, Profile: synthetic.Profile(), Targets: []*model.Target{tg},
		Offline: []model.OfflinePeriod{synthetic.Offline(20.5, 22.5)},
	})
	assert.Empty(t, s.Assignments)
	assert.Equal(t, []string{"T"}, s.Unscheduled)
	assert.True(t, hasDiag(s, model.DiagUnschedulable, "T"))
}

func TestAbsolutePriorityReservedExactly(t *testing.T) {
	n := synthetic.Night()
	std := synthetic.Target(n, "std", 0, at(22, 0), synthetic.Between(at(20, 0), at(6, 0)))
	std.FillWindow, std.Constraint = true, synthetic.Window(21, 22)
	clash := synthetic.Target(n, "clash", 0, at(22, 0), synthetic.Between(at(20, 0), at(6, 0)))
	clash.FillWindow, clash.Constraint, clash.Order = true, synthetic.Window(21.5, 22.5), 1
	offl := synthetic.Target(n, "offl", 0, at(22, 0), synthetic.Between(at(20, 0), at(6, 0)))
	offl.FillWindow, offl.Constraint, offl.Order = true, synthetic.Window(3, 4), 2
	hidden := synthetic.Target(n, "hidden", 0, at(22, 0), synthetic.Between(at(20, 0), at(23, 30)))
	hidden.FillWindow, hidden.Constraint, hidden.Order = true, synthetic.Window(23, 0), 3
	filler := synthetic.Target(n, "filler", 7200, at(23, 0), synthetic.Between(at(20, 0), at(1, 0)))
	filler.Order = 4

	s := run(t, Options{}, Input{
		Night: n, Profile: synthetic.Profile(),
		Targets: []*model.Target{std, clash, offl, hidden, filler},
		Offline: []model.OfflinePeriod{synthetic.Offline(3.5, 4.5)},
	})
	a, ok := s.Find("std")
	require.True(t, ok)
	assert.Equal(t, model.Interval{Start: at(21, 0), End: at(22, 0)}, a.Interval)

	for _, name := range []string{"clash", "offl", "hidden"} {
		_, placed := s.Find(name)
		assert.False(t, placed, name)
		assert.True(t, hasDiag(s, model.DiagAbsoluteConflict, name), name)
	}
	f, ok := s.Find("filler")
	require.True(t, ok)
	assert.False(t, f.Interval.Overlaps(a.Interval))
}

func TestAbsolutePriorityOutsideNightRejected(t *testing.T) {
	n := synthetic.Night()
	early := synthetic.Target(n, "early", 0, at(22, 0), synthetic.Between(at(20, 0), at(6, 0)))
	early.FillWindow, early.Constraint = true, synthetic.Window(19, 20.5)
	s := run(t, Options{}, Input{Night: n, Profile: synthetic.Profile(), Targets: []*model.Target{early}})
	assert.True(t, hasDiag(s, model.DiagAbsoluteConflict, "early"))
	assert.Empty(t, s.Assignments)
}

func TestIdempotent(t *testing.T) {
	n := synthetic.Night()
	targets := randomTargets(n, rand.New(rand.NewSource(7)), 12)
	in := Input{Night: n, Profile: synthetic.Profile(), Targets: targets,
		Offline: []model.OfflinePeriod{synthetic.Offline(1, 1.5)}}
	first := run(t, Options{}, in)
	second := run(t, Options{}, in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("schedules differ:\n%+v\n%+v", first, second)
	}
	for _, tg := range targets {
		if tg.State != model.StateUnscheduled {
			t.Fatalf("input target %s mutated", tg.Name)
		}
	}
}

func randomTargets(n *model.Night, r *rand.Rand, count int) []*model.Target {
	var out []*model.Target
	for i := 0; i < count; i++ {
		from := at(20, 0).Add(time.Duration(r.Intn(480)) * time.Minute)
		to := from.Add(time.Duration(60+r.Intn(240)) * time.Minute)
		peak := from.Add(to.Sub(from) / 2)
		tg := synthetic.Target(n, string(rune('a'+i)), float64(600+r.Intn(5400)), peak, synthetic.Between(from, to))
		tg.Order = i
		switch i % 4 {
		case 1:
			tg.Constraint = model.Constraint{Kind: model.ConstraintMaxAirmass, Airmass: 1.3}
		case 2:
			h := float64(from.Hour()) + float64(from.Minute())/60
			tg.Constraint = synthetic.Window(h, h+1.5)
		}
		out = append(out, tg)
	}
	return out
}

func TestNoOverlapAndContainment(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		for _, ordered := range []bool{false, true} {
			n := synthetic.Night()
			targets := randomTargets(n, rand.New(rand.NewSource(seed)), 15)
			offline := []model.OfflinePeriod{synthetic.Offline(23, 23.75)}
			s := run(t, Options{MaintainInputOrder: ordered, MinGapSeconds: 60},
				Input{Night: n, Profile: synthetic.Profile(), Targets: targets, Offline: offline})

			off, _ := offline[0].Resolve(n)
			byName := map[string]*model.Target{}
			for _, tg := range targets {
				byName[tg.Name] = tg
			}
			for _, a := range s.Assignments {
				tg := byName[a.Target]
				if a.Interval.Overlaps(off) {
					t.Fatalf("seed %d: %s overlaps offline", seed, a.Target)
				}
				if !n.Window().Contains(a.Interval) {
					t.Fatalf("seed %d: %s outside night", seed, a.Target)
				}
				if w, ok := tg.Constraint.Window(n); ok && !w.Contains(a.Interval) {
					t.Fatalf("seed %d: %s outside its window", seed, a.Target)
				}
				obs := tg.Visibility.Side(model.SidePrimary).Observable
				limit := tg.Constraint.MaxAirmass(0)
				for i, ts := range n.Times {
					if ts.Before(a.Interval.Start) || ts.After(a.Interval.End) {
						continue
					}
					if !obs[i] {
						t.Fatalf("seed %d: %s scheduled while not observable at %s", seed, a.Target, ts)
					}
					if limit > 0 && tg.Visibility.Airmass[i] > limit {
						t.Fatalf("seed %d: %s above airmass limit at %s", seed, a.Target, ts)
					}
				}
			}
		}
	}
}

func TestObservedTargetFrozen(t *testing.T) {
	n := synthetic.Night()
	done := synthetic.Target(n, "done", 3600, at(21, 0), synthetic.Between(at(20, 0), at(23, 0)))
	done.State = model.StateObserved
	done.Assigned = model.Interval{Start: at(20, 30), End: at(21, 30)}
	other := synthetic.Target(n, "other", 3600, at(21, 0), synthetic.Between(at(20, 0), at(22, 0)))
	other.Order = 1

	s := run(t, Options{}, Input{Night: n, Profile: synthetic.Profile(), Targets: []*model.Target{done, other}})
	d, ok := s.Find("done")
	require.True(t, ok)
	assert.Equal(t, model.StateObserved, d.State)
	assert.Equal(t, done.Assigned, d.Interval)
	_, ok = s.Find("other")
	assert.False(t, ok, "no free hour remains inside 20:00-22:00")
}

func TestPinnedPlacementKept(t *testing.T) {
	n := synthetic.Night()
	keep := synthetic.Target(n, "keep", 3600, at(21, 0), synthetic.Between(at(20, 0), at(23, 0)))
	keep.State = model.StateScheduled
	keep.Assigned = model.Interval{Start: at(22, 0), End: at(23, 0)}
	s := run(t, Options{}, Input{Night: n, Profile: synthetic.Profile(), Targets: []*model.Target{keep},
		Pinned: map[string]bool{"keep": true}})
	a, _ := s.Find("keep")
	assert.Equal(t, keep.Assigned, a.Interval)

	s = run(t, Options{}, Input{Night: n, Profile: synthetic.Profile(), Targets: []*model.Target{keep}})
	a, _ = s.Find("keep")
	assert.Equal(t, at(21, 0), a.Interval.Start, "unpinned target is re-placed at lowest airmass")
}

func TestNoSchedulingInPast(t *testing.T) {
	n := synthetic.Night()
	tg := synthetic.Target(n, "T", 1800, at(20, 0), synthetic.Between(at(20, 0), at(23, 0)))
	s := run(t, Options{NoSchedulingInPast: true, Now: at(21, 10)},
		Input{Night: n, Profile: synthetic.Profile(), Targets: []*model.Target{tg}})
	a, ok := s.Find("T")
	require.True(t, ok)
	assert.Equal(t, at(21, 10), a.Interval.Start)
}

func TestNoSchedulingInPastOutsideNight(t *testing.T) {
	n := synthetic.Night()
	checks := []struct {
		name string
		now  time.Time
	}{
		{"before", at(12, 0).Add(-24 * time.Hour)},
		{"after", at(12, 0).Add(24 * time.Hour)},
	}
	for _, c := range checks {
		tg := synthetic.Target(n, "T", 3600, at(20, 0), synthetic.Between(at(20, 0), at(23, 0)))
		prio := synthetic.Target(n, "P", 0, at(22, 0), synthetic.Between(at(20, 0), at(23, 0)))
		prio.Constraint, prio.FillWindow = synthetic.Window(22, 23), true
		synthetic.Refresh(n, prio)
		s := run(t, Options{NoSchedulingInPast: true, Now: c.now},
			Input{Night: n, Profile: synthetic.Profile(), Targets: []*model.Target{tg, prio}})
		a, ok := s.Find("T")
		if !ok {
			t.Fatalf("%s: T unscheduled: %+v", c.name, s.Diagnostics)
		}
		if !a.Interval.Start.Equal(at(20, 0)) {
			t.Errorf("%s: T starts %s", c.name, a.Interval.Start)
		}
		if _, ok := s.Find("P"); !ok {
			t.Errorf("%s: priority window rejected: %+v", c.name, s.Diagnostics)
		}
	}
}

func TestAvoidZenithBand(t *testing.T) {
	n := synthetic.Night()
	prof := synthetic.Profile()
	prof.ZenithBand = 78
	tg := synthetic.Target(n, "Z", 1800, at(22, 0), synthetic.Between(at(20, 0), at(23, 0)))
	s := run(t, Options{AvoidZenithBand: true}, Input{Night: n, Profile: prof, Targets: []*model.Target{tg}})
	a, ok := s.Find("Z")
	require.True(t, ok)
	for i, ts := range n.Times {
		if !ts.Before(a.Interval.Start) && !ts.After(a.Interval.End) && tg.Visibility.Alt[i] > 78 {
			t.Fatalf("interval %v crosses zenith band at %s", a.Interval, ts)
		}
	}
}

func TestOverTheAxisPicksLowerAirmass(t *testing.T) {
	n := synthetic.Night()
	prof, err := model.Lookup("INT")
	require.NoError(t, err)
	prof.OverTheAxis = true

	tg := synthetic.Target(n, "X", 1800, at(22, 0), synthetic.Between(at(20, 0), at(21, 0)))
	tg.Visibility.Sides = append(tg.Visibility.Sides, model.SideSeries{
		Side: model.SideOverTheAxis, Observable: synthetic.Mask(n, synthetic.Between(at(21, 30), at(23, 0))),
	})

	s := run(t, Options{AllowOverTheAxis: true}, Input{Night: n, Profile: &prof, Targets: []*model.Target{tg}})
	a, ok := s.Find("X")
	require.True(t, ok)
	assert.Equal(t, model.SideOverTheAxis, a.Side)
	assert.Equal(t, at(22, 0), a.Interval.Start)

	s = run(t, Options{}, Input{Night: n, Profile: &prof, Targets: []*model.Target{tg}})
	a, ok = s.Find("X")
	require.True(t, ok)
	assert.Equal(t, model.SidePrimary, a.Side)
}

func TestVignettingWarning(t *testing.T) {
	n := synthetic.Night()
	prof := synthetic.Profile()
	prof.VignettingAlt = 60
	tg := synthetic.Target(n, "V", 3600, at(22, 0), synthetic.Between(at(20, 0), at(23, 0)))
	s := run(t, Options{MaintainInputOrder: true}, Input{Night: n, Profile: prof, Targets: []*model.Target{tg}})
	_, ok := s.Find("V")
	require.True(t, ok)
	assert.True(t, hasDiag(s, model.DiagVignetted, "V"))
}

func TestMinGap(t *testing.T) {
	n := synthetic.Night()
	targets := scenarioA(n)
	s := run(t, Options{MaintainInputOrder: true, MinGapSeconds: 300}, Input{Night: n, Profile: synthetic.Profile(), Targets: targets})
	require.Len(t, s.Assignments, 2)
	assert.Equal(t, 5*time.Minute, s.Assignments[1].Interval.Start.Sub(s.Assignments[0].Interval.End))
}

func TestNotObservableDiagnostic(t *testing.T) {
	n := synthetic.Night()
	tg := synthetic.Target(n, "never", 3600, at(12, 0))
	s := run(t, Options{}, Input{Night: n, Profile: synthetic.Profile(), Targets: []*model.Target{tg}})
	assert.True(t, hasDiag(s, model.DiagNotObservable, "never"))
}

func TestRunCancelled(t *testing.T) {
	n := synthetic.Night()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}, nil).Run(ctx, Input{Night: n, Profile: synthetic.Profile(), Targets: scenarioA(n)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation got %v", err)
	}
}

func TestRunRejectsEmptyNight(t *testing.T) {
	_, err := New(Options{}, nil).Run(context.Background(), Input{Night: &model.Night{}, Profile: synthetic.Profile()})
	assert.ErrorIs(t, err, ErrNoNight)
}

func TestSiderealWindows(t *testing.T) {
	n := synthetic.Night()
	synthetic.SiderealClock(n, 2)
	prio := synthetic.Target(n, "P", 0, at(21, 0), synthetic.Between(at(20, 0), at(6, 0)))
	prio.FillWindow, prio.Constraint = true, synthetic.LSTWindow(3, 4)
	reg := synthetic.Target(n, "R", 1800, at(23, 30), synthetic.Between(at(20, 0), at(0, 0)))
	reg.Order = 1
	off := model.OfflinePeriod{Constraint: synthetic.LSTWindow(5, 6)}

	s := run(t, Options{}, Input{
		Night: n, Profile: synthetic.Profile(),
		Targets: []*model.Target{prio, reg},
		Offline: []model.OfflinePeriod{off},
	})

	rate := model.SiderealRate
	sidHour := time.Duration(float64(time.Hour) / rate)
	p, ok := s.Find("P")
	require.True(t, ok, "diagnostics %+v", s.Diagnostics)
	assert.WithinDuration(t, at(20, 0).Add(sidHour), p.Interval.Start, time.Millisecond)
	assert.WithinDuration(t, at(20, 0).Add(2*sidHour), p.Interval.End, time.Millisecond)

	blackout, ok := off.Resolve(n)
	require.True(t, ok)
	assert.WithinDuration(t, at(20, 0).Add(3*sidHour), blackout.Start, time.Millisecond)
	r, ok := s.Find("R")
	require.True(t, ok, "diagnostics %+v", s.Diagnostics)
	assert.False(t, r.Interval.Overlaps(blackout), "R %s inside offline %s", r.Interval, blackout)
	assert.False(t, r.Interval.Overlaps(p.Interval))
}

func TestDecodeConfig(t *testing.T) {
	base := Options{AllowOverTheAxis: true, DefaultMaxAirmass: 3}
	data := "maintain_input_order: true\ndefault_max_airmass: 2.5\nmin_gap_seconds: 30\n"
	cfg, err := DecodeConfig(bytes.NewBufferString(data), "yaml", base)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"maintain_input_order", cfg.MaintainInputOrder, true},
		{"default_max_airmass", cfg.DefaultMaxAirmass, 2.5},
		{"min_gap", cfg.MinGap(), 30 * time.Second},
		{"allow_over_the_axis kept", cfg.AllowOverTheAxis, true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}

	cfg, err = DecodeConfig(bytes.NewBufferString(""), "yaml", base)
	if err != nil || cfg != base {
		t.Fatalf("empty document must keep base, got %+v %v", cfg, err)
	}
	cfg, err = DecodeConfig(bytes.NewBufferString(`{"default_max_airmass": 0.5}`), "json", base)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if cfg != base {
		t.Fatalf("invalid overlay must return base, got %+v", cfg)
	}
	if _, err := DecodeConfig(bytes.NewBufferString(""), "toml", base); err == nil {
		t.Fatalf("expected unsupported format")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sched.json")
	if err := os.WriteFile(path, []byte(`{"avoid_zenith_band": true, "allow_over_the_axis": true}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path, Options{NoSchedulingInPast: true})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.AvoidZenithBand || !cfg.AllowOverTheAxis || !cfg.NoSchedulingInPast {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml"), Options{}); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}
