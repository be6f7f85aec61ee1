package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/nightplan/core/metrics"
)

func TestInfluxSink_RecordPass(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()
	now := time.Date(2025, 1, 2, 20, 0, 0, 0, time.UTC)
	rec := coremetrics.PassRecord{
		PassID: "p1", Trigger: "plan", Night: "2025-01-02", Telescope: "INT",
		Scheduled: 4, Unscheduled: 1, Diagnostics: 2, Duration: 1500 * time.Microsecond, Time: now,
	}
	if err := sink.RecordPass(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("scheduling_pass").
		AddTag("pass_id", "p1").
		AddTag("trigger", "plan").
		AddTag("night", "2025-01-02").
		AddTag("telescope", "INT").
		AddTag("stale", "false").
		AddField("scheduled", 4).
		AddField("unscheduled", 1).
		AddField("diagnostics", 2).
		AddField("descheduled", 0).
		AddField("duration_ms", 1.5).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestInfluxSink_RecordAssignments(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		lines = append(lines, strings.TrimSpace(string(data)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "t", Org: "o", Bucket: "b"})
	defer sink.Close()
	start := time.Date(2025, 1, 2, 21, 0, 0, 0, time.UTC)
	recs := []coremetrics.AssignmentRecord{
		{PassID: "p", Target: "M31", Side: "primary", Start: start, End: start.Add(10 * time.Minute), Airmass: 1.2345, Telescope: "INT"},
		{PassID: "p", Target: "M42", Side: "secondary", Start: start.Add(time.Hour), End: start.Add(90 * time.Minute), Airmass: 1.5, Telescope: "INT"},
	}
	if err := sink.RecordAssignments(recs); err != nil {
		t.Fatalf("record: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 {
		t.Fatalf("expected 2 writes got %d", len(lines))
	}
	if !strings.Contains(lines[0], "target=M31") || !strings.Contains(lines[0], "airmass=1.234") {
		t.Errorf("unexpected first line: %s", lines[0])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not queried")
	}
}
