package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/nightplan/core/events"
	"github.com/kilianp07/nightplan/core/metrics"
	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/core/planlog"
	"github.com/kilianp07/nightplan/core/scheduler"
)

// run executes one pass and commits it unless a newer trigger arrived.
// The caller holds the pass lock.
func (c *Controller) run(ctx context.Context, trigger events.Trigger, gen uint64, in scheduler.Input) (model.Schedule, error) {
	began := time.Now()
	passID := uuid.NewString()
	sched, err := c.sched.Run(ctx, in)
	if err != nil {
		return model.Schedule{}, c.fail(trigger, gen, err)
	}
	elapsed := time.Since(began)

	if latest := c.gen.Load(); latest != gen {
		c.log.Warnf("%s pass %d discarded, trigger %d pending", trigger, gen, latest)
		c.recordPass(metrics.PassRecord{PassID: passID, Trigger: string(trigger), Night: c.nightKey(),
			Telescope: c.s.Profile.Name, Duration: elapsed, Stale: true, Time: c.clock()})
		c.publish(events.PassEvent{PassID: passID, Trigger: trigger, Generation: gen, Duration: elapsed, Stale: true, Time: c.clock()})
		return model.Schedule{}, ErrStalePass
	}

	prev := make(map[string]model.State, len(c.s.Targets))
	for _, t := range c.s.Targets {
		prev[t.Name] = t.State
	}
	var descheduled []string
	for _, t := range c.s.Targets {
		if t.State != model.StateScheduled {
			continue
		}
		if _, ok := sched.Find(t.Name); ok {
			continue
		}
		descheduled = append(descheduled, t.Name)
		sched.Diagnostics = append(sched.Diagnostics, model.Diagnostic{
			Kind: model.DiagDescheduled, Target: t.Name, Line: t.Line,
			Message: fmt.Sprintf("lost its slot %s after %s", t.Assigned, trigger),
		})
		c.log.Warnf("target %s descheduled by %s", t.Name, trigger)
	}

	apply(c.s.Targets, sched)
	c.s.Schedule = sched
	now := c.clock()
	for _, t := range c.s.Targets {
		if from := prev[t.Name]; from != t.State {
			c.publish(events.TargetEvent{PassID: passID, Target: t.Name, From: from, To: t.State, Interval: t.Assigned, Time: now})
		}
	}

	c.recordPass(metrics.PassRecord{
		PassID:      passID,
		Trigger:     string(trigger),
		Night:       c.nightKey(),
		Telescope:   c.s.Profile.Name,
		Scheduled:   len(sched.Assignments),
		Unscheduled: len(sched.Unscheduled),
		Diagnostics: len(sched.Diagnostics),
		Descheduled: len(descheduled),
		Duration:    elapsed,
		Time:        now,
	})
	c.recordDetails(passID, sched, now)
	rec := planlog.NewPlanRecord(passID, string(trigger), gen, c.nightKey(), c.s.Profile.Name, sched, now)
	if err := c.store.Append(ctx, rec); err != nil {
		c.log.Warnf("plan log append: %v", err)
	}
	c.publish(events.PassEvent{
		PassID: passID, Trigger: trigger, Generation: gen, Night: c.nightKey(), Telescope: c.s.Profile.Name, Schedule: sched,
		Descheduled: descheduled, Duration: elapsed, Time: now,
	})
	c.log.Infof("%s pass %s: %d scheduled, %d unscheduled, %d diagnostics in %s",
		trigger, passID, len(sched.Assignments), len(sched.Unscheduled), len(sched.Diagnostics), elapsed.Round(time.Millisecond))
	return sched, nil
}

func (c *Controller) fail(trigger events.Trigger, gen uint64, err error) error {
	c.log.Errorf("%s pass failed: %v", trigger, err)
	c.publish(events.PassEvent{Trigger: trigger, Generation: gen, Err: err, Time: c.clock()})
	return fmt.Errorf("%s pass: %w", trigger, err)
}

func (c *Controller) nightKey() string {
	return c.s.Night.Date.Format("2006-01-02")
}

func (c *Controller) publish(e events.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

func (c *Controller) recordPass(rec metrics.PassRecord) {
	if err := c.sink.RecordPass(rec); err != nil {
		c.log.Warnf("record pass metrics: %v", err)
	}
}

func (c *Controller) recordDetails(passID string, sched model.Schedule, now time.Time) {
	if r, ok := c.sink.(metrics.AssignmentRecorder); ok {
		recs := make([]metrics.AssignmentRecord, 0, len(sched.Assignments))
		for _, a := range sched.Assignments {
			recs = append(recs, metrics.AssignmentRecord{
				PassID: passID, Target: a.Target, Side: a.Side.String(),
				Start: a.Interval.Start, End: a.Interval.End, Airmass: a.Airmass, Telescope: c.s.Profile.Name,
			})
		}
		if err := r.RecordAssignments(recs); err != nil {
			c.log.Warnf("record assignments: %v", err)
		}
	}
	if r, ok := c.sink.(metrics.DiagnosticRecorder); ok && len(sched.Diagnostics) > 0 {
		recs := make([]metrics.DiagnosticRecord, 0, len(sched.Diagnostics))
		for _, d := range sched.Diagnostics {
			recs = append(recs, metrics.DiagnosticRecord{PassID: passID, Kind: string(d.Kind), Target: d.Target, Time: now})
		}
		if err := r.RecordDiagnostics(recs); err != nil {
			c.log.Warnf("record diagnostics: %v", err)
		}
	}
}
