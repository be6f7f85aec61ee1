// Package events defines the planning events emitted on the event bus.
//
// Available event types:
//   - PassEvent: a scheduling pass finished or was discarded as stale
//   - TargetEvent: a target changed scheduling state
package events
