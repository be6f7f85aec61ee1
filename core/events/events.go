package events

import (
	"time"

	"github.com/kilianp07/nightplan/core/model"
)

// Event is anything published on the planner bus.
type Event interface {
	EventName() string
}

// Trigger names what started a scheduling pass.
type Trigger string

const (
	TriggerPlan     Trigger = "plan"
	TriggerEdit     Trigger = "edit"
	TriggerObserved Trigger = "observed"
	TriggerReorder  Trigger = "reorder"
	TriggerReset    Trigger = "reset"
)

// PassEvent is published once per scheduling pass.
type PassEvent struct {
	PassID     string
	Trigger    Trigger
	Generation uint64
	Night      string
	Telescope  string
	Schedule   model.Schedule
	// Descheduled lists targets that were Scheduled before the pass and are
	// not anymore.
	Descheduled []string
	Duration    time.Duration
	Stale       bool
	Err         error
	Time        time.Time
}

func (PassEvent) EventName() string { return "pass" }

// TargetEvent is published when a target changes state.
type TargetEvent struct {
	PassID   string
	Target   string
	From     model.State
	To       model.State
	Interval model.Interval
	Time     time.Time
}

func (TargetEvent) EventName() string { return "target" }
