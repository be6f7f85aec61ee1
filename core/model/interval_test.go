package model

import (
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2025, 1, 2, h, m, 0, 0, time.UTC)
}

func TestIntervalSetNormalizes(t *testing.T) {
	s := NewIntervalSet(
		Interval{Start: at(22, 0), End: at(23, 0)},
		Interval{Start: at(20, 0), End: at(21, 0)},
		Interval{Start: at(20, 30), End: at(22, 0)},
		Interval{Start: at(23, 30), End: at(23, 30)},
	)
	if len(s) != 1 {
		t.Fatalf("expected 1 merged interval got %v", s)
	}
	if !s[0].Start.Equal(at(20, 0)) || !s[0].End.Equal(at(23, 0)) {
		t.Fatalf("bad merge %v", s[0])
	}
}

func TestIntervalSetSubtract(t *testing.T) {
	free := NewIntervalSet(Interval{Start: at(20, 0), End: at(23, 0)})
	cut := NewIntervalSet(Interval{Start: at(20, 30), End: at(22, 30)})
	got := free.Subtract(cut)
	if len(got) != 2 {
		t.Fatalf("expected 2 pieces got %v", got)
	}
	if got.Total() != time.Hour {
		t.Fatalf("expected 1h left got %v", got.Total())
	}
	if got.Longest() != 30*time.Minute {
		t.Fatalf("longest %v", got.Longest())
	}
}

func TestIntervalSetIntersect(t *testing.T) {
	a := NewIntervalSet(Interval{Start: at(20, 0), End: at(22, 0)}, Interval{Start: at(23, 0), End: at(23, 50)})
	b := NewIntervalSet(Interval{Start: at(21, 0), End: at(23, 30)})
	got := a.Intersect(b)
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"len", len(got), 2},
		{"first.start", got[0].Start, at(21, 0)},
		{"first.end", got[0].End, at(22, 0)},
		{"second.start", got[1].Start, at(23, 0)},
		{"second.end", got[1].End, at(23, 30)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestIntervalHalfOpen(t *testing.T) {
	a := Interval{Start: at(20, 0), End: at(21, 0)}
	b := Interval{Start: at(21, 0), End: at(22, 0)}
	if a.Overlaps(b) {
		t.Fatalf("back-to-back intervals must not overlap")
	}
	if a.ContainsTime(at(21, 0)) {
		t.Fatalf("end is exclusive")
	}
}

func TestStateMachine(t *testing.T) {
	tg := &Target{Name: "x"}
	if err := tg.Transition(StateObserved); err == nil {
		t.Fatalf("unscheduled -> observed must fail")
	}
	if err := tg.Transition(StateScheduled); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := tg.Transition(StateObserved); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if err := tg.Transition(StateUnscheduled); err == nil {
		t.Fatalf("observed is terminal")
	}
	tg.ClearSchedule()
	if tg.State != StateUnscheduled {
		t.Fatalf("reset must clear observed")
	}
}
