package metrics

import (
	"context"

	"github.com/kilianp07/nightplan/core/events"
	coremetrics "github.com/kilianp07/nightplan/core/metrics"
	"github.com/kilianp07/nightplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records target state
// changes. It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.TransitionRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := ev.(events.TargetEvent); ok {
					_ = rec.RecordTransition(coremetrics.TransitionEvent{
						PassID: e.PassID,
						Target: e.Target,
						From:   string(e.From),
						To:     string(e.To),
						Time:   e.Time,
					})
				}
			}
		}
	}()
}
