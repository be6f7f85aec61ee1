// Package mqtt declares the contracts between the planner and an MQTT front
// end: publishing schedules and diagnostics, and receiving user commands.
package mqtt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/nightplan/core/model"
)

var (
	// ErrUnknownAction is returned for commands the planner does not handle.
	ErrUnknownAction = errors.New("unknown command action")
	// ErrInvalidCommand is returned for commands missing a required field.
	ErrInvalidCommand = errors.New("invalid command")
)

// Publisher sends planning results to subscribers.
type Publisher interface {
	// PublishSchedule publishes the current plan, retained for late joiners.
	PublishSchedule(msg PlanMessage) error
	PublishDiagnostics(passID string, diags []model.Diagnostic) error
}

// PlanMessage is the payload of the plan topic.
type PlanMessage struct {
	MessageID   string             `json:"message_id"`
	PassID      string             `json:"pass_id"`
	Trigger     string             `json:"trigger"`
	Night       string             `json:"night"`
	Telescope   string             `json:"telescope"`
	Assignments []model.Assignment `json:"assignments"`
	Unscheduled []string           `json:"unscheduled"`
	Descheduled []string           `json:"descheduled,omitempty"`
	Timestamp   int64              `json:"timestamp"`
}

// Action names a front-end command.
type Action string

const (
	ActionObserved Action = "observed"
	ActionReorder  Action = "reorder"
	ActionReset    Action = "reset"
	ActionReplan   Action = "replan"
)

// Command is a user action received from the front end.
type Command struct {
	ID       string `json:"command_id"`
	Action   Action `json:"action"`
	Target   string `json:"target,omitempty"`
	Position int    `json:"position,omitempty"`
}

// Kind returns the action in canonical form.
func (c Command) Kind() Action { return Action(strings.ToLower(strings.TrimSpace(string(c.Action)))) }

// Validate checks that the command carries what its action needs.
func (c Command) Validate() error {
	switch c.Kind() {
	case ActionObserved:
		if c.Target == "" {
			return fmt.Errorf("%w: %s needs a target", ErrInvalidCommand, c.Action)
		}
	case ActionReorder:
		if c.Target == "" || c.Position < 0 {
			return fmt.Errorf("%w: reorder needs a target and a position >= 0", ErrInvalidCommand)
		}
	case ActionReset, ActionReplan:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
	return nil
}

// CommandHandler processes one command.
type CommandHandler func(Command) error

// CommandSource delivers front-end commands.
type CommandSource interface {
	OnCommand(h CommandHandler)
}
