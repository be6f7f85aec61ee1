// Package planlog persists one record per scheduling pass and supports
// querying them back by time range, night or target.
package planlog

import (
	"context"
	"time"

	"github.com/kilianp07/nightplan/core/model"
)

// PlanRecord captures the outcome of one scheduling pass.
type PlanRecord struct {
	PassID      string             `json:"pass_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Trigger     string             `json:"trigger"`
	Generation  uint64             `json:"generation"`
	Night       string             `json:"night"`
	Telescope   string             `json:"telescope"`
	Assignments []model.Assignment `json:"assignments"`
	Unscheduled []string           `json:"unscheduled,omitempty"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
}

// NewPlanRecord builds a record from a schedule.
func NewPlanRecord(passID, trigger string, gen uint64, night, telescope string, s model.Schedule, ts time.Time) PlanRecord {
	return PlanRecord{
		PassID:      passID,
		Timestamp:   ts,
		Trigger:     trigger,
		Generation:  gen,
		Night:       night,
		Telescope:   telescope,
		Assignments: s.Assignments,
		Unscheduled: s.Unscheduled,
		Diagnostics: s.Diagnostics,
	}
}

// Query defines filters for retrieving records. Zero fields match anything.
type Query struct {
	Start  time.Time
	End    time.Time
	Night  string
	Target string
}

// Store persists PlanRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec PlanRecord) error
	Query(ctx context.Context, q Query) ([]PlanRecord, error)
	Close() error
}

func (q Query) matchesTime(ts time.Time) bool {
	if !q.Start.IsZero() && ts.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && ts.After(q.End) {
		return false
	}
	return true
}

// matches applies every filter of q to r.
func (q Query) matches(r PlanRecord) bool {
	if !q.matchesTime(r.Timestamp) {
		return false
	}
	if q.Night != "" && r.Night != q.Night {
		return false
	}
	return q.matchesTarget(r)
}

// matchesTarget reports whether the target appears in the record, placed or
// not.
func (q Query) matchesTarget(r PlanRecord) bool {
	if q.Target == "" {
		return true
	}
	for _, a := range r.Assignments {
		if a.Target == q.Target {
			return true
		}
	}
	for _, name := range r.Unscheduled {
		if name == q.Target {
			return true
		}
	}
	return false
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, PlanRecord) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]PlanRecord, error) { return nil, nil }
func (NopStore) Close() error                                       { return nil }
