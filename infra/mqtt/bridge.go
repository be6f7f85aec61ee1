package mqtt

import (
	"context"
	"time"

	"github.com/kilianp07/nightplan/core/events"
	"github.com/kilianp07/nightplan/core/logger"
	coremqtt "github.com/kilianp07/nightplan/core/mqtt"
	"github.com/kilianp07/nightplan/internal/eventbus"
)

// StartPlanBridge publishes every committed pass seen on the bus. It stops
// when the context is canceled or the bus is closed. The returned channel is
// closed once the bridge goroutine has exited.
func StartPlanBridge(ctx context.Context, bus *eventbus.Bus[events.Event], pub coremqtt.Publisher, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
		close(done)
		return done
	}
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				e, ok := ev.(events.PassEvent)
				if !ok || e.Stale || e.Err != nil {
					continue
				}
				msg := coremqtt.PlanMessage{
					PassID:      e.PassID,
					Trigger:     string(e.Trigger),
					Night:       e.Night,
					Telescope:   e.Telescope,
					Assignments: e.Schedule.Assignments,
					Unscheduled: e.Schedule.Unscheduled,
					Descheduled: e.Descheduled,
					Timestamp:   e.Time.UnixMilli(),
				}
				if e.Time.IsZero() {
					msg.Timestamp = time.Now().UnixMilli()
				}
				if err := pub.PublishSchedule(msg); err != nil {
					log.Errorf("publish plan %s: %v", e.PassID, err)
					continue
				}
				if len(e.Schedule.Diagnostics) > 0 {
					if err := pub.PublishDiagnostics(e.PassID, e.Schedule.Diagnostics); err != nil {
						log.Errorf("publish diagnostics %s: %v", e.PassID, err)
					}
				}
			}
		}
	}()
	return done
}
