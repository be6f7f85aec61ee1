// Package session holds the state of one observing night and drives
// scheduling passes in response to user actions: initial planning, list
// edits, observations, drag-reorders and resets.
//
// One pass runs at a time. Every trigger bumps a generation counter before it
// waits for the pass lock; a pass that finishes after a newer trigger arrived
// is discarded with ErrStalePass so the newest action wins. Input changes made
// by a discarded trigger are kept and picked up by the next pass.
package session

import (
	"errors"
	"fmt"

	"github.com/kilianp07/nightplan/core/model"
)

var (
	// ErrStalePass is returned when a newer trigger superseded the pass.
	ErrStalePass = errors.New("session: pass superseded by a newer trigger")
	// ErrUnknownTarget is returned for names not in the session.
	ErrUnknownTarget = errors.New("session: unknown target")
)

// Session is the mutable planning state of one night.
type Session struct {
	Night   *model.Night
	Profile *model.TelescopeProfile
	// Targets in list order. Order fields mirror the slice index.
	Targets  []*model.Target
	Offline  []model.OfflinePeriod
	Schedule model.Schedule
}

// New builds a session. Targets are renumbered in slice order.
func New(n *model.Night, profile *model.TelescopeProfile, targets []*model.Target, offline []model.OfflinePeriod) *Session {
	s := &Session{Night: n, Profile: profile, Targets: targets, Offline: offline}
	s.renumber()
	return s
}

func (s *Session) renumber() {
	for i, t := range s.Targets {
		t.Order = i
	}
}

func (s *Session) index(name string) int {
	for i, t := range s.Targets {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// Target returns the named target.
func (s *Session) Target(name string) (*model.Target, error) {
	i := s.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}
	return s.Targets[i], nil
}

// Snapshot returns clones of the targets for a scheduler run.
func (s *Session) Snapshot() []*model.Target {
	out := make([]*model.Target, len(s.Targets))
	for i, t := range s.Targets {
		out[i] = t.Clone()
	}
	return out
}

// move places the target at index from to index to, clamping to.
func (s *Session) move(from, to int) int {
	if to < 0 {
		to = 0
	}
	if to >= len(s.Targets) {
		to = len(s.Targets) - 1
	}
	t := s.Targets[from]
	s.Targets = append(s.Targets[:from], s.Targets[from+1:]...)
	s.Targets = append(s.Targets[:to], append([]*model.Target{t}, s.Targets[to:]...)...)
	s.renumber()
	return to
}

// apply copies a schedule onto targets: assigned targets take their
// placement, every other non-observed target is cleared.
func apply(targets []*model.Target, sched model.Schedule) {
	byName := make(map[string]model.Assignment, len(sched.Assignments))
	for _, a := range sched.Assignments {
		byName[a.Target] = a
	}
	for _, t := range targets {
		a, ok := byName[t.Name]
		if !ok {
			if t.State != model.StateObserved {
				t.ClearSchedule()
			}
			continue
		}
		t.State = a.State
		t.Assigned = a.Interval
		t.Side = a.Side
		t.Airmass = a.Airmass
	}
}

// scheduledNames lists the targets in state Scheduled.
func scheduledNames(targets []*model.Target) map[string]bool {
	out := make(map[string]bool)
	for _, t := range targets {
		if t.State == model.StateScheduled {
			out[t.Name] = true
		}
	}
	return out
}
