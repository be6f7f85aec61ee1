package metrics

import "time"

// PassRecord summarises one scheduling pass.
type PassRecord struct {
	PassID      string
	Trigger     string
	Night       string
	Telescope   string
	Scheduled   int
	Unscheduled int
	Diagnostics int
	Descheduled int
	Duration    time.Duration
	Stale       bool
	Time        time.Time
}

// MetricsSink records scheduling passes for observability purposes.
type MetricsSink interface {
	RecordPass(rec PassRecord) error
}

// AssignmentRecord is the placement of one target after a pass.
type AssignmentRecord struct {
	PassID    string
	Target    string
	Side      string
	Start     time.Time
	End       time.Time
	Airmass   float64
	Telescope string
}

// AssignmentRecorder records per-target placements.
type AssignmentRecorder interface {
	RecordAssignments(recs []AssignmentRecord) error
}

// DiagnosticRecord is one diagnostic emitted by a pass.
type DiagnosticRecord struct {
	PassID string
	Kind   string
	Target string
	Time   time.Time
}

// DiagnosticRecorder records diagnostics.
type DiagnosticRecorder interface {
	RecordDiagnostics(recs []DiagnosticRecord) error
}

// TransitionEvent is a target state change.
type TransitionEvent struct {
	PassID string
	Target string
	From   string
	To     string
	Time   time.Time
}

// TransitionRecorder records target state changes.
type TransitionRecorder interface {
	RecordTransition(ev TransitionEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordPass(PassRecord) error                { return nil }
func (NopSink) RecordAssignments([]AssignmentRecord) error { return nil }
func (NopSink) RecordDiagnostics([]DiagnosticRecord) error { return nil }
func (NopSink) RecordTransition(TransitionEvent) error     { return nil }
