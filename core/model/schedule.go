package model

import (
	"fmt"
	"sort"
)

// DiagnosticKind classifies a scheduling or parsing notice.
type DiagnosticKind string

const (
	DiagLineInvalid       DiagnosticKind = "line_invalid"
	DiagConstraintInvalid DiagnosticKind = "constraint_invalid"
	DiagAbsoluteConflict  DiagnosticKind = "absolute_conflict"
	DiagUnschedulable     DiagnosticKind = "unschedulable"
	DiagDescheduled       DiagnosticKind = "descheduled"
	DiagVignetted         DiagnosticKind = "vignetted"
	DiagNotObservable     DiagnosticKind = "not_observable"
)

// Diagnostic is one entry of the diagnostic stream.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Target  string         `json:"target,omitempty"`
	Line    int            `json:"line,omitempty"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Target == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Target, d.Message)
}

// Assignment is the placement of one target.
type Assignment struct {
	Target   string   `json:"target"`
	Order    int      `json:"order"`
	Side     Side     `json:"side"`
	State    State    `json:"state"`
	Interval Interval `json:"interval"`
	Airmass  float64  `json:"airmass"`
}

// Schedule is the result of a scheduling pass.
type Schedule struct {
	Assignments []Assignment `json:"assignments"`
	Unscheduled []string     `json:"unscheduled"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// BuildSchedule collects the current assignments of targets, ordered by
// start time.
func BuildSchedule(targets []*Target, diags []Diagnostic) Schedule {
	s := Schedule{Diagnostics: diags}
	for _, t := range targets {
		if t.State == StateScheduled || t.State == StateObserved {
			s.Assignments = append(s.Assignments, Assignment{
				Target: t.Name, Order: t.Order, Side: t.Side, State: t.State,
				Interval: t.Assigned, Airmass: t.Airmass,
			})
			continue
		}
		s.Unscheduled = append(s.Unscheduled, t.Name)
	}
	sort.SliceStable(s.Assignments, func(i, j int) bool {
		return s.Assignments[i].Interval.Start.Before(s.Assignments[j].Interval.Start)
	})
	return s
}

// Find returns the assignment for the named target.
func (s Schedule) Find(name string) (Assignment, bool) {
	for _, a := range s.Assignments {
		if a.Target == name {
			return a, true
		}
	}
	return Assignment{}, false
}

// Overlapping returns the first pair of overlapping assignments, if any.
func (s Schedule) Overlapping() (Assignment, Assignment, bool) {
	for i := range s.Assignments {
		for j := i + 1; j < len(s.Assignments); j++ {
			if s.Assignments[i].Interval.Overlaps(s.Assignments[j].Interval) {
				return s.Assignments[i], s.Assignments[j], true
			}
		}
	}
	return Assignment{}, Assignment{}, false
}
