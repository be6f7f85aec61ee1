package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/nightplan/core/logger"
	"github.com/kilianp07/nightplan/core/model"
)

// ErrNoNight is returned when the input carries no night grid.
var ErrNoNight = errors.New("scheduler: night has no samples")

// Input is the snapshot a pass works on. Run never mutates it.
type Input struct {
	Night   *model.Night
	Profile *model.TelescopeProfile
	Targets []*model.Target
	Offline []model.OfflinePeriod
	// Pinned names Scheduled targets whose current placement is kept.
	Pinned map[string]bool
	// PreserveOrder places regular targets in input order at their earliest
	// feasible start for this pass, whatever MaintainInputOrder says.
	PreserveOrder bool
}

// Scheduler places targets on a night.
type Scheduler struct {
	opts Options
	log  logger.Logger
}

// New returns a Scheduler using opts.
func New(opts Options, log logger.Logger) *Scheduler {
	return &Scheduler{opts: opts, log: logger.OrNop(log)}
}

// Options returns the configured options.
func (s *Scheduler) Options() Options { return s.opts }

// pass holds the mutable state of one Run.
type pass struct {
	n       *model.Night
	prof    *model.TelescopeProfile
	targets []*model.Target
	free    model.IntervalSet
	now     time.Time
	diags   []model.Diagnostic
}

func (p *pass) diag(kind model.DiagnosticKind, t *model.Target, format string, args ...any) {
	p.diags = append(p.diags, model.Diagnostic{Kind: kind, Target: t.Name, Line: t.Line, Message: fmt.Sprintf(format, args...)})
}

// Run computes a schedule for in. Infeasible targets are reported as
// diagnostics; the error is only set for invalid input or cancellation.
func (s *Scheduler) Run(ctx context.Context, in Input) (model.Schedule, error) {
	if in.Night == nil || in.Night.Len() < 2 {
		return model.Schedule{}, ErrNoNight
	}
	if in.Profile == nil {
		return model.Schedule{}, fmt.Errorf("%w: no telescope profile", model.ErrInvalidProfile)
	}
	p := &pass{n: in.Night, prof: in.Profile}
	if s.opts.NoSchedulingInPast {
		now := s.opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		// Only a night in progress has a past to avoid.
		if in.Night.Window().ContainsTime(now) {
			p.now = now
		}
	}

	var frozen []model.Interval
	for _, t := range in.Targets {
		c := t.Clone()
		switch {
		case c.State == model.StateObserved:
			frozen = append(frozen, c.Assigned)
		case c.State == model.StateScheduled && in.Pinned[c.Name]:
			frozen = append(frozen, c.Assigned)
		default:
			c.ClearSchedule()
		}
		p.targets = append(p.targets, c)
	}
	frozenSet := model.NewIntervalSet(frozen...)

	var off []model.Interval
	for _, o := range in.Offline {
		if iv, ok := o.Resolve(p.n); ok {
			off = append(off, iv)
		}
	}
	offline := model.NewIntervalSet(off...)

	reserved, err := s.reserve(ctx, p, offline, frozenSet)
	if err != nil {
		return model.Schedule{}, err
	}
	p.free = model.NewIntervalSet(p.n.Window()).Subtract(reserved.Union(offline).Union(frozenSet))

	var regular []*model.Target
	for _, t := range p.targets {
		if t.State != model.StateUnscheduled || t.AbsolutePriority() {
			continue
		}
		if t.Visibility == nil || !t.Visibility.ObservableTonight {
			p.diag(model.DiagNotObservable, t, "not observable tonight")
			continue
		}
		if t.RequestedDuration(p.n) <= 0 {
			p.diag(model.DiagUnschedulable, t, "no observing time requested")
			continue
		}
		regular = append(regular, t)
	}

	if s.opts.MaintainInputOrder || in.PreserveOrder {
		err = s.placeInOrder(ctx, p, regular)
	} else {
		err = s.placeBySlack(ctx, p, regular)
	}
	if err != nil {
		return model.Schedule{}, err
	}
	s.checkVignetting(p)

	sched := model.BuildSchedule(p.targets, p.diags)
	s.log.Infof("pass placed %d of %d targets, %d diagnostics", len(sched.Assignments), len(p.targets), len(p.diags))
	return sched, nil
}

// reserve places every AbsolutePriority target at its declared window in
// input order, or rejects it whole.
func (s *Scheduler) reserve(ctx context.Context, p *pass, offline, frozen model.IntervalSet) (model.IntervalSet, error) {
	var reserved model.IntervalSet
	window := p.n.Window()
	for _, t := range p.targets {
		if t.State != model.StateUnscheduled || !t.AbsolutePriority() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, ok := t.Constraint.Window(p.n)
		var side model.Side
		reason := ""
		switch {
		case !ok:
			reason = "window cannot be resolved on this night"
		case !window.Contains(w):
			reason = fmt.Sprintf("window %s outside the night %s-%s", t.Constraint, window.Start.Format("15:04"), window.End.Format("15:04"))
		case !p.now.IsZero() && w.Start.Before(p.now):
			reason = "window starts in the past"
		case reserved.Overlaps(w):
			reason = "window overlaps an earlier priority window"
		case offline.Overlaps(w):
			reason = "window overlaps an offline period"
		case frozen.Overlaps(w):
			reason = "window overlaps an observed target"
		default:
			if side, ok = s.fullyObservable(p.n, p.prof, t, w); !ok {
				reason = "target not observable during the whole window"
			}
		}
		if reason != "" {
			p.diag(model.DiagAbsoluteConflict, t, "%s", reason)
			s.log.Warnf("priority target %s rejected: %s", t.Name, reason)
			continue
		}
		s.assign(p, t, w, side)
		reserved = reserved.Union(model.NewIntervalSet(w))
	}
	return reserved, nil
}

func (s *Scheduler) assign(p *pass, t *model.Target, iv model.Interval, side model.Side) {
	t.State = model.StateScheduled
	t.Assigned = iv
	t.Side = side
	t.Airmass = p.n.Interpolate(t.Visibility.Airmass, iv.Start)
}

// occupy removes iv and its surrounding gap from the free capacity.
func (s *Scheduler) occupy(p *pass, iv model.Interval) {
	gap := s.opts.MinGap()
	p.free = p.free.Subtract(model.NewIntervalSet(model.Interval{Start: iv.Start.Add(-gap), End: iv.End.Add(gap)}))
}

// choose keeps the side with the lower airmass at its chosen start; the
// primary side wins ties because it is evaluated first.
func choose(opts []option, pick func(option) int) (option, int) {
	best, bestIdx := option{}, -1
	for _, o := range opts {
		i := pick(o)
		if bestIdx < 0 || o.airmass[i] < best.airmass[bestIdx] {
			best, bestIdx = o, i
		}
	}
	return best, bestIdx
}

func earliest(option) int { return 0 }

// lowestAirmass picks the start with minimum airmass, the earliest on ties.
func lowestAirmass(o option) int { return floats.MinIdx(o.airmass) }

func (s *Scheduler) placeInOrder(ctx context.Context, p *pass, targets []*model.Target) error {
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		need := t.RequestedDuration(p.n)
		opts := s.options(p.n, p.prof, t, p.free, p.now, need)
		if len(opts) == 0 {
			s.reject(p, t, need)
			continue
		}
		o, i := choose(opts, earliest)
		s.place(p, t, o, i, need)
	}
	return nil
}

func (s *Scheduler) placeBySlack(ctx context.Context, p *pass, targets []*model.Target) error {
	remaining := append([]*model.Target(nil), targets...)
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		bestIdx := -1
		var bestSlack time.Duration
		var bestOpts []option
		next := remaining[:0]
		for _, t := range remaining {
			need := t.RequestedDuration(p.n)
			opts := s.options(p.n, p.prof, t, p.free, p.now, need)
			if len(opts) == 0 {
				s.reject(p, t, need)
				continue
			}
			var feasible time.Duration
			for _, o := range opts {
				if o.feasible > feasible {
					feasible = o.feasible
				}
			}
			next = append(next, t)
			if slack := feasible - need; bestIdx < 0 || slack < bestSlack {
				bestIdx, bestSlack, bestOpts = len(next)-1, slack, opts
			}
		}
		remaining = next
		if bestIdx < 0 {
			break
		}
		t := remaining[bestIdx]
		o, i := choose(bestOpts, lowestAirmass)
		s.place(p, t, o, i, t.RequestedDuration(p.n))
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return nil
}

func (s *Scheduler) place(p *pass, t *model.Target, o option, i int, need time.Duration) {
	iv := model.Interval{Start: o.starts[i], End: o.starts[i].Add(need)}
	s.assign(p, t, iv, o.side)
	s.occupy(p, iv)
	s.log.Debugw("target placed", map[string]any{
		"target": t.Name, "start": iv.Start, "end": iv.End, "side": o.side.String(), "airmass": t.Airmass,
	})
}

func (s *Scheduler) reject(p *pass, t *model.Target, need time.Duration) {
	p.diag(model.DiagUnschedulable, t, "no free observable run of %s", need.Round(time.Second))
	s.log.Warnf("target %s unschedulable: needs %s", t.Name, need.Round(time.Second))
}

func (s *Scheduler) checkVignetting(p *pass) {
	if p.prof.VignettingAlt <= 0 {
		return
	}
	for _, t := range p.targets {
		if t.State != model.StateScheduled || t.Visibility == nil {
			continue
		}
		for i, ts := range p.n.Times {
			if ts.Before(t.Assigned.Start) || !ts.Before(t.Assigned.End) {
				continue
			}
			if p.prof.Vignetted(t.Visibility.Alt[i]) {
				p.diag(model.DiagVignetted, t, "altitude %.1f below vignetting limit %.1f at %s",
					t.Visibility.Alt[i], p.prof.VignettingAlt, ts.Format("15:04"))
				break
			}
		}
	}
}
