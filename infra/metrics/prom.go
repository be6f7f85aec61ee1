package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/nightplan/core/metrics"
)

// PromSink records planning activity in Prometheus metrics.
type PromSink struct {
	passes      *prometheus.CounterVec
	duration    prometheus.Histogram
	scheduled   *prometheus.GaugeVec
	diagnostics *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewPromSink registers planner metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	passes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightplan_passes_total",
		Help: "Total number of scheduling passes",
	}, []string{"trigger", "stale"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nightplan_pass_duration_seconds",
		Help:    "Wall time of a scheduling pass",
		Buckets: prometheus.DefBuckets,
	})
	scheduled := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nightplan_targets",
		Help: "Targets per scheduling outcome after the last pass",
	}, []string{"telescope", "outcome"})
	diagnostics := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightplan_diagnostics_total",
		Help: "Diagnostics emitted by scheduling passes",
	}, []string{"kind"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nightplan_target_transitions_total",
		Help: "Target state changes",
	}, []string{"from", "to"})

	var err error
	if passes, err = register(reg, passes); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if scheduled, err = register(reg, scheduled); err != nil {
		return nil, err
	}
	if diagnostics, err = register(reg, diagnostics); err != nil {
		return nil, err
	}
	if transitions, err = register(reg, transitions); err != nil {
		return nil, err
	}
	return &PromSink{passes: passes, duration: duration, scheduled: scheduled, diagnostics: diagnostics, transitions: transitions}, nil
}

// register reuses an already registered collector of the same description.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPass counts the pass and updates the outcome gauges.
func (s *PromSink) RecordPass(rec coremetrics.PassRecord) error {
	stale := "false"
	if rec.Stale {
		stale = "true"
	}
	s.passes.WithLabelValues(rec.Trigger, stale).Inc()
	if rec.Stale {
		return nil
	}
	s.duration.Observe(rec.Duration.Seconds())
	s.scheduled.WithLabelValues(rec.Telescope, "scheduled").Set(float64(rec.Scheduled))
	s.scheduled.WithLabelValues(rec.Telescope, "unscheduled").Set(float64(rec.Unscheduled))
	return nil
}

// RecordDiagnostics counts diagnostics by kind.
func (s *PromSink) RecordDiagnostics(recs []coremetrics.DiagnosticRecord) error {
	for _, r := range recs {
		s.diagnostics.WithLabelValues(r.Kind).Inc()
	}
	return nil
}

// RecordTransition counts a target state change.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.transitions.WithLabelValues(ev.From, ev.To).Inc()
	return nil
}
