package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilianp07/nightplan/core/events"
	"github.com/kilianp07/nightplan/core/logger"
	"github.com/kilianp07/nightplan/core/metrics"
	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/core/planlog"
	"github.com/kilianp07/nightplan/core/scheduler"
	"github.com/kilianp07/nightplan/internal/eventbus"
)

// VisibilityComputer attaches visibility series to targets.
type VisibilityComputer interface {
	ComputeAll(ctx context.Context, n *model.Night, targets []*model.Target) error
}

// Deps are the collaborators of a Controller. Only Scheduler is required.
type Deps struct {
	Visibility VisibilityComputer
	Scheduler  *scheduler.Scheduler
	Logger     logger.Logger
	Bus        *eventbus.Bus[events.Event]
	Sink       metrics.MetricsSink
	Store      planlog.Store
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Controller serialises scheduling passes over a Session.
type Controller struct {
	pass sync.Mutex
	gen  atomic.Uint64

	s     *Session
	vis   VisibilityComputer
	sched *scheduler.Scheduler
	log   logger.Logger
	bus   *eventbus.Bus[events.Event]
	sink  metrics.MetricsSink
	store planlog.Store
	clock func() time.Time
}

// NewController wires a controller around s.
func NewController(s *Session, d Deps) (*Controller, error) {
	if s == nil || s.Night == nil || s.Profile == nil {
		return nil, fmt.Errorf("session: night and telescope profile are required")
	}
	if d.Scheduler == nil {
		return nil, fmt.Errorf("session: scheduler is required")
	}
	c := &Controller{
		s:     s,
		vis:   d.Visibility,
		sched: d.Scheduler,
		log:   logger.OrNop(d.Logger),
		bus:   d.Bus,
		sink:  d.Sink,
		store: d.Store,
		clock: d.Clock,
	}
	if c.sink == nil {
		c.sink = metrics.NopSink{}
	}
	if c.store == nil {
		c.store = planlog.NopStore{}
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c, nil
}

// Generation returns the number of triggers received so far.
func (c *Controller) Generation() uint64 { return c.gen.Load() }

// Schedule returns the last accepted schedule.
func (c *Controller) Schedule() model.Schedule {
	c.pass.Lock()
	defer c.pass.Unlock()
	return c.s.Schedule
}

// Targets returns clones of the session targets in list order.
func (c *Controller) Targets() []*model.Target {
	c.pass.Lock()
	defer c.pass.Unlock()
	return c.s.Snapshot()
}

// Night returns the session night.
func (c *Controller) Night() *model.Night { return c.s.Night }

// Profile returns the session telescope.
func (c *Controller) Profile() *model.TelescopeProfile { return c.s.Profile }

// begin registers a trigger and waits for the pass lock.
func (c *Controller) begin() uint64 {
	gen := c.gen.Add(1)
	c.pass.Lock()
	return gen
}

// Plan computes visibility for every target and runs a full pass.
func (c *Controller) Plan(ctx context.Context) (model.Schedule, error) {
	gen := c.begin()
	defer c.pass.Unlock()
	if err := c.computeVisibility(ctx, c.s.Targets); err != nil {
		return model.Schedule{}, err
	}
	return c.run(ctx, events.TriggerPlan, gen, c.input(nil, false))
}

// Edit replaces the target list and offline periods. Observed targets are
// matched by name and stay frozen; an observed target missing from the new
// list is kept at the end. Unchanged targets reuse their visibility.
func (c *Controller) Edit(ctx context.Context, targets []*model.Target, offline []model.OfflinePeriod) (model.Schedule, error) {
	gen := c.begin()
	defer c.pass.Unlock()

	old := make(map[string]*model.Target, len(c.s.Targets))
	for _, t := range c.s.Targets {
		old[t.Name] = t
	}
	next := make([]*model.Target, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		t = t.Clone()
		seen[t.Name] = true
		prev, ok := old[t.Name]
		if ok && prev.State == model.StateObserved {
			next = append(next, prev)
			continue
		}
		if ok && t.Visibility == nil && prev.Fingerprint() == t.Fingerprint() {
			t.Visibility = prev.Visibility
		}
		if ok {
			t.State, t.Assigned, t.Side, t.Airmass = prev.State, prev.Assigned, prev.Side, prev.Airmass
		} else {
			t.ClearSchedule()
		}
		next = append(next, t)
	}
	for _, t := range c.s.Targets {
		if t.State == model.StateObserved && !seen[t.Name] {
			c.log.Warnf("observed target %s removed from the list, keeping it", t.Name)
			next = append(next, t)
		}
	}
	c.s.Targets = next
	c.s.Offline = offline
	c.s.renumber()
	if err := c.computeVisibility(ctx, c.s.Targets); err != nil {
		return model.Schedule{}, err
	}
	return c.run(ctx, events.TriggerEdit, gen, c.input(nil, false))
}

// MarkObserved moves a Scheduled target to Observed. No pass is run and the
// generation is left alone, so a pass in flight still commits first.
func (c *Controller) MarkObserved(ctx context.Context, name string) (model.Schedule, error) {
	c.pass.Lock()
	defer c.pass.Unlock()
	if err := ctx.Err(); err != nil {
		return model.Schedule{}, err
	}
	t, err := c.s.Target(name)
	if err != nil {
		return model.Schedule{}, err
	}
	from := t.State
	if err := t.Transition(model.StateObserved); err != nil {
		return model.Schedule{}, err
	}
	sched := model.BuildSchedule(c.s.Targets, c.s.Schedule.Diagnostics)
	c.s.Schedule = sched
	c.log.Infof("target %s observed", name)
	c.publish(events.TargetEvent{Target: name, From: from, To: model.StateObserved, Interval: t.Assigned, Time: c.clock()})
	return sched, nil
}

// Reorder moves the named target to position k. Placements of targets ahead
// of its old position are kept; the moved target and every target that was
// behind it are re-placed in the new order at their earliest feasible start,
// then a back-fill pass offers the freed time to the remaining unscheduled
// targets in list order.
func (c *Controller) Reorder(ctx context.Context, name string, k int) (model.Schedule, error) {
	gen := c.begin()
	defer c.pass.Unlock()

	from := c.s.index(name)
	if from < 0 {
		return model.Schedule{}, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}
	ahead := make(map[string]bool, from)
	for _, t := range c.s.Targets[:from] {
		ahead[t.Name] = true
	}
	c.s.move(from, k)

	pinned := make(map[string]bool)
	var first []*model.Target
	for _, t := range c.s.Snapshot() {
		switch {
		case ahead[t.Name] && t.State == model.StateScheduled:
			pinned[t.Name] = true
		case ahead[t.Name] && t.State == model.StateUnscheduled && !t.AbsolutePriority():
			continue
		}
		first = append(first, t)
	}
	in := c.input(pinned, true)
	in.Targets = first
	placed, err := c.sched.Run(ctx, in)
	if err != nil {
		return model.Schedule{}, c.fail(events.TriggerReorder, gen, err)
	}

	all := c.s.Snapshot()
	for _, t := range all {
		if t.State != model.StateObserved {
			t.ClearSchedule()
		}
	}
	apply(all, placed)
	in = c.input(scheduledNames(all), true)
	in.Targets = all
	return c.run(ctx, events.TriggerReorder, gen, in)
}

// Reset clears every Scheduled and Observed state and plans from scratch.
func (c *Controller) Reset(ctx context.Context) (model.Schedule, error) {
	gen := c.begin()
	defer c.pass.Unlock()
	for _, t := range c.s.Targets {
		if t.State != model.StateUnscheduled {
			c.publish(events.TargetEvent{Target: t.Name, From: t.State, To: model.StateUnscheduled, Time: c.clock()})
		}
		t.ClearSchedule()
	}
	c.s.Schedule = model.Schedule{}
	return c.run(ctx, events.TriggerReset, gen, c.input(nil, false))
}

func (c *Controller) input(pinned map[string]bool, preserveOrder bool) scheduler.Input {
	return scheduler.Input{
		Night:         c.s.Night,
		Profile:       c.s.Profile,
		Targets:       c.s.Snapshot(),
		Offline:       c.s.Offline,
		Pinned:        pinned,
		PreserveOrder: preserveOrder,
	}
}

func (c *Controller) computeVisibility(ctx context.Context, targets []*model.Target) error {
	var missing []*model.Target
	for _, t := range targets {
		if t.Visibility == nil {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 || c.vis == nil {
		return nil
	}
	return c.vis.ComputeAll(ctx, c.s.Night, missing)
}
