package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned for illegal scheduling state changes.
var ErrInvalidTransition = errors.New("invalid state transition")

// State is the scheduling state of a target.
type State string

const (
	StateUnscheduled State = "unscheduled"
	StateScheduled   State = "scheduled"
	StateObserved    State = "observed"
)

// CanTransition reports whether the state machine allows from -> to.
// Observed is terminal; only a full reset clears it.
func CanTransition(from, to State) bool {
	switch from {
	case StateUnscheduled:
		return to == StateScheduled
	case StateScheduled:
		return to == StateObserved || to == StateUnscheduled
	}
	return false
}

// SideSeries is one observable sub-series aligned to the night grid.
type SideSeries struct {
	Side       Side   `json:"side"`
	Observable []bool `json:"-"`
}

// Visibility holds the per-sample derived series of a target.
type Visibility struct {
	Alt     []float64    `json:"-"`
	Az      []float64    `json:"-"`
	HA      []float64    `json:"-"`
	Airmass []float64    `json:"-"`
	Sides   []SideSeries `json:"sides"`

	ObservableTonight bool      `json:"observable_tonight"`
	LastPossibleStart int       `json:"last_possible_start"`
	LastStartTime     time.Time `json:"last_start_time,omitempty"`
}

// Side returns the series for s, or nil.
func (v *Visibility) Side(s Side) *SideSeries {
	for i := range v.Sides {
		if v.Sides[i].Side == s {
			return &v.Sides[i]
		}
	}
	return nil
}

// Target is one entry of the observing list together with its derived
// visibility and scheduling state.
type Target struct {
	Name       string     `json:"name"`
	Project    string     `json:"project,omitempty"`
	Type       string     `json:"type,omitempty"`
	OBInfo     string     `json:"ob_info,omitempty"`
	SkyPA      float64    `json:"sky_pa,omitempty"`
	RA         float64    `json:"ra"`  // degrees
	Dec        float64    `json:"dec"` // degrees
	Epoch      float64    `json:"epoch"`
	PMRA       float64    `json:"pm_ra,omitempty"`  // mas/yr, mu_alpha*cos(dec)
	PMDec      float64    `json:"pm_dec,omitempty"` // mas/yr
	Duration   float64    `json:"duration"`         // seconds
	FillWindow bool       `json:"fill_window,omitempty"`
	Constraint Constraint `json:"constraint"`
	Line       int        `json:"line,omitempty"`
	Order      int        `json:"order"`

	Visibility *Visibility `json:"visibility,omitempty"`

	State    State    `json:"state"`
	Assigned Interval `json:"assigned"`
	Side     Side     `json:"assigned_side"`
	Airmass  float64  `json:"airmass,omitempty"`
}

// AbsolutePriority reports whether the target must occupy its whole window.
func (t *Target) AbsolutePriority() bool {
	return t.FillWindow && t.Constraint.IsWindow()
}

// RequestedDuration returns the time the target needs on the night. For
// fill-window targets this is the resolved window length.
func (t *Target) RequestedDuration(n *Night) time.Duration {
	if t.FillWindow {
		if w, ok := t.Constraint.Window(n); ok {
			return w.Duration()
		}
		return 0
	}
	return time.Duration(t.Duration * float64(time.Second))
}

// Fingerprint identifies the inputs that determine the target's visibility.
func (t *Target) Fingerprint() string {
	return fmt.Sprintf("%s|%.8f|%.8f|%.3f|%.4f|%.4f|%.1f|%t|%s", t.Name, t.RA, t.Dec, t.Epoch,
		t.PMRA, t.PMDec, t.Duration, t.FillWindow, t.Constraint.String())
}

// Transition moves the target to a new state, enforcing the state machine.
func (t *Target) Transition(to State) error {
	from := t.State
	if from == "" {
		from = StateUnscheduled
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, t.Name, from, to)
	}
	t.State = to
	if to == StateUnscheduled {
		t.Assigned = Interval{}
		t.Airmass = 0
	}
	return nil
}

// ClearSchedule resets all scheduling fields, including Observed.
func (t *Target) ClearSchedule() {
	t.State = StateUnscheduled
	t.Assigned = Interval{}
	t.Side = SidePrimary
	t.Airmass = 0
}

// Clone returns a copy of the target sharing the immutable visibility series.
func (t *Target) Clone() *Target {
	c := *t
	return &c
}

// OfflinePeriod is a blackout interval during which nothing is scheduled.
type OfflinePeriod struct {
	Interval   Interval   `json:"interval"`
	Constraint Constraint `json:"constraint"`
	Line       int        `json:"line,omitempty"`
}

// Resolve returns the absolute blackout interval on the night.
func (o OfflinePeriod) Resolve(n *Night) (Interval, bool) {
	if !o.Interval.Empty() {
		return o.Interval, true
	}
	return o.Constraint.Window(n)
}
