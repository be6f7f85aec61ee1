package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/nightplan/config"
	"github.com/kilianp07/nightplan/core/ephemeris"
	"github.com/kilianp07/nightplan/core/events"
	coremetrics "github.com/kilianp07/nightplan/core/metrics"
	"github.com/kilianp07/nightplan/core/model"
	coremon "github.com/kilianp07/nightplan/core/monitoring"
	coremqtt "github.com/kilianp07/nightplan/core/mqtt"
	"github.com/kilianp07/nightplan/core/planlog"
	"github.com/kilianp07/nightplan/core/session"
	"github.com/kilianp07/nightplan/infra/logger"
	"github.com/kilianp07/nightplan/infra/metrics"
	"github.com/kilianp07/nightplan/infra/monitoring"
	"github.com/kilianp07/nightplan/infra/mqtt"
	"github.com/kilianp07/nightplan/internal/eventbus"
)

// Options override collaborators normally built from the configuration.
type Options struct {
	Provider ephemeris.Provider
	// Publisher and Commands replace the MQTT client.
	Publisher coremqtt.Publisher
	Commands  coremqtt.CommandSource
}

// Service keeps a night plan up to date: it plans once at start, then
// repairs the plan on target-file edits and front-end commands.
type Service struct {
	cfg     *config.Config
	planner *Planner
	ctrl    *session.Controller
	bus     *eventbus.Bus[events.Event]
	sink    coremetrics.MetricsSink
	store   planlog.Store
	pub     coremqtt.Publisher
	client  *mqtt.PahoClient
	log     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the service for the night beginning on date.
func New(ctx context.Context, cfg *config.Config, date time.Time, opts Options) (*Service, error) {
	log := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	planner, err := NewPlanner(cfg, opts.Provider)
	if err != nil {
		return nil, err
	}
	n, err := planner.BuildNight(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("night: %w", err)
	}
	res, err := planner.ReadTargets(cfg.Targets.Path)
	if err != nil {
		return nil, err
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	store, err := planlog.New(cfg.PlanLog)
	if err != nil {
		return nil, fmt.Errorf("plan log: %w", err)
	}
	bus := eventbus.New[events.Event](64)

	ctrl, err := planner.NewController(n, res, session.Deps{Bus: bus, Sink: sink, Store: store})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	s := &Service{cfg: cfg, planner: planner, ctrl: ctrl, bus: bus, sink: sink, store: store, log: log}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	pub, cmds := opts.Publisher, opts.Commands
	if pub == nil && cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.client = client
		pub, cmds = client, client
	}
	s.pub = pub
	if cmds != nil {
		cmds.OnCommand(s.HandleCommand)
	}
	return s, nil
}

// Controller exposes the reschedule controller.
func (s *Service) Controller() *session.Controller { return s.ctrl }

// Run plans the night and serves triggers until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	defer coremon.Recover()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			s.cancel()
		case <-s.ctx.Done():
			cancel()
		}
	}()

	metrics.StartEventCollector(ctx, s.bus, s.sink)
	bridge := mqtt.StartPlanBridge(ctx, s.bus, s.pub, logger.New("plan_bridge"))
	if s.cfg.Metrics.PrometheusEnabled() && s.cfg.Metrics.PrometheusPort != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	if s.cfg.Targets.Watch {
		w, err := newTargetWatcher(s.cfg.Targets.Path, time.Duration(s.cfg.Targets.DebounceMS)*time.Millisecond, s.log)
		if err != nil {
			return fmt.Errorf("watch targets: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			w.run(ctx, func() {
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					s.reload(ctx)
				}()
			})
		}()
	}

	if _, err := s.ctrl.Plan(ctx); err != nil && !errors.Is(err, session.ErrStalePass) {
		coremon.CaptureException(err, map[string]string{"module": "service", "trigger": "plan"})
		return fmt.Errorf("initial plan: %w", err)
	}

	<-ctx.Done()
	<-bridge
	s.wg.Wait()
	return nil
}

// reload re-reads the target list and hands it to Edit. Of several reloads in
// flight only the newest commits.
func (s *Service) reload(ctx context.Context) {
	res, err := s.planner.ReadTargets(s.cfg.Targets.Path)
	if err != nil {
		s.log.Errorf("reload targets: %v", err)
		coremon.CaptureException(err, map[string]string{"module": "service", "trigger": "edit"})
		return
	}
	if _, err := s.ctrl.Edit(ctx, res.Targets, res.Offline); err != nil {
		s.report("edit", err)
	}
}

// HandleCommand applies a front-end command to the controller.
func (s *Service) HandleCommand(cmd coremqtt.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	var (
		sched model.Schedule
		err   error
	)
	switch cmd.Kind() {
	case coremqtt.ActionObserved:
		sched, err = s.ctrl.MarkObserved(s.ctx, cmd.Target)
		if err == nil {
			s.publishSnapshot(events.TriggerObserved, sched)
		}
	case coremqtt.ActionReorder:
		_, err = s.ctrl.Reorder(s.ctx, cmd.Target, cmd.Position)
	case coremqtt.ActionReset:
		_, err = s.ctrl.Reset(s.ctx)
	case coremqtt.ActionReplan:
		_, err = s.ctrl.Plan(s.ctx)
	}
	if err != nil {
		s.report(string(cmd.Kind()), err)
		if errors.Is(err, session.ErrStalePass) {
			return nil
		}
		return err
	}
	return nil
}

// publishSnapshot publishes a schedule that changed without a pass.
func (s *Service) publishSnapshot(trigger events.Trigger, sched model.Schedule) {
	if s.pub == nil {
		return
	}
	n := s.ctrl.Night()
	msg := coremqtt.PlanMessage{
		Trigger:     string(trigger),
		Night:       n.Date.Format("2006-01-02"),
		Telescope:   s.ctrl.Profile().Name,
		Assignments: sched.Assignments,
		Unscheduled: sched.Unscheduled,
	}
	if err := s.pub.PublishSchedule(msg); err != nil {
		s.log.Errorf("publish plan: %v", err)
	}
}

func (s *Service) report(trigger string, err error) {
	switch {
	case errors.Is(err, session.ErrStalePass):
		s.log.Debugf("%s pass superseded by a newer trigger", trigger)
	case errors.Is(err, context.Canceled):
		s.log.Debugf("%s pass canceled", trigger)
	case errors.Is(err, session.ErrUnknownTarget), errors.Is(err, model.ErrInvalidTransition):
		s.log.Warnf("%s rejected: %v", trigger, err)
	default:
		s.log.Errorf("%s failed: %v", trigger, err)
		coremon.CaptureException(err, map[string]string{"module": "service", "trigger": trigger})
	}
}

// Close stops pending work and releases the plan log, the bus and the MQTT
// connection.
func (s *Service) Close() error {
	s.cancel()
	s.wg.Wait()
	s.bus.Close()
	if s.client != nil {
		s.client.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return s.store.Close()
}
