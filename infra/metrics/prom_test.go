package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/nightplan/core/metrics"
)

func TestPromSink_RecordPass(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	rec := coremetrics.PassRecord{Trigger: "plan", Telescope: "INT", Scheduled: 3, Unscheduled: 1, Duration: 20 * time.Millisecond}
	if err := sink.RecordPass(rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordPass(coremetrics.PassRecord{Trigger: "edit", Stale: true}); err != nil {
		t.Fatalf("record stale: %v", err)
	}
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"plan passes", testutil.ToFloat64(sink.passes.WithLabelValues("plan", "false")), 1},
		{"stale passes", testutil.ToFloat64(sink.passes.WithLabelValues("edit", "true")), 1},
		{"scheduled", testutil.ToFloat64(sink.scheduled.WithLabelValues("INT", "scheduled")), 3},
		{"unscheduled", testutil.ToFloat64(sink.scheduled.WithLabelValues("INT", "unscheduled")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestPromSink_ReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	_ = a.RecordDiagnostics([]coremetrics.DiagnosticRecord{{Kind: "unschedulable"}})
	_ = b.RecordDiagnostics([]coremetrics.DiagnosticRecord{{Kind: "unschedulable"}})
	if got := testutil.ToFloat64(a.diagnostics.WithLabelValues("unschedulable")); got != 2 {
		t.Fatalf("expected shared counter at 2 got %v", got)
	}
}
