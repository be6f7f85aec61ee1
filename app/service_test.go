package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/nightplan/config"
	coremqtt "github.com/kilianp07/nightplan/core/mqtt"
	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/core/planlog"
	"github.com/kilianp07/nightplan/infra/mqtt"
)

const winterList = `M42   05:35:17.3  -05:23:28  2000  900
M1    05:34:31.9  +22:00:52  2000  1200
`

func testConfig(t *testing.T, list string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.txt")
	require.NoError(t, os.WriteFile(path, []byte(list), 0o644))
	cfg := &config.Config{
		Targets: config.TargetsConfig{Path: path, Watch: true, DebounceMS: 50},
		PlanLog: planlog.Config{Backend: "jsonl", Path: filepath.Join(dir, "plans.jsonl")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func planned(m coremqtt.PlanMessage, name string) bool {
	for _, a := range m.Assignments {
		if a.Target == name {
			return true
		}
	}
	for _, u := range m.Unscheduled {
		if u == name {
			return true
		}
	}
	return false
}

func TestServicePlansAndRepairs(t *testing.T) {
	cfg := testConfig(t, winterList)
	pub := mqtt.NewMockPublisher()
	date := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	svc, err := New(context.Background(), cfg, date, Options{Publisher: pub, Commands: pub})
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.PlanCount() >= 1 }, 10*time.Second, 20*time.Millisecond)
	first, _ := pub.LastPlan()
	assert.Equal(t, "plan", first.Trigger)
	assert.Equal(t, "2025-01-02", first.Night)
	assert.Equal(t, "INT", first.Telescope)
	require.NotEmpty(t, first.Assignments, "winter targets must be placed")

	// observed: published without a pass
	name := first.Assignments[0].Target
	require.NoError(t, pub.Send(coremqtt.Command{ID: "c1", Action: coremqtt.ActionObserved, Target: name}))
	last, _ := pub.LastPlan()
	assert.Equal(t, "observed", last.Trigger)
	a, ok := model.Schedule{Assignments: last.Assignments}.Find(name)
	require.True(t, ok)
	assert.Equal(t, model.StateObserved, a.State)

	// unknown target is rejected
	assert.Error(t, pub.Send(coremqtt.Command{ID: "c2", Action: coremqtt.ActionReorder, Target: "M99", Position: 0}))

	count := pub.PlanCount()
	require.NoError(t, pub.Send(coremqtt.Command{ID: "c3", Action: coremqtt.ActionReset}))
	require.Eventually(t, func() bool { return pub.PlanCount() > count }, 5*time.Second, 20*time.Millisecond)
	last, _ = pub.LastPlan()
	assert.Equal(t, "reset", last.Trigger)

	// edit the list on disk
	require.NoError(t, os.WriteFile(cfg.Targets.Path, []byte(winterList+"NGC2392  07:29:10.8  +20:54:42  2000  600\n"), 0o644))
	require.Eventually(t, func() bool {
		m, ok := pub.LastPlan()
		return ok && m.Trigger == "edit" && planned(m, "NGC2392")
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not stop")
	}

	store, err := planlog.NewJSONLStore(cfg.PlanLog.Path)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.Query(context.Background(), planlog.Query{Target: "NGC2392"})
	require.NoError(t, err)
	assert.NotEmpty(t, recs)
}

func TestNewRejectsMissingTargets(t *testing.T) {
	cfg := testConfig(t, winterList)
	cfg.Targets.Path = filepath.Join(t.TempDir(), "missing.txt")
	_, err := New(context.Background(), cfg, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Options{Publisher: mqtt.NewMockPublisher()})
	assert.Error(t, err)
}
