package mqtt

import (
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/nightplan/core/mqtt"
	"github.com/kilianp07/nightplan/core/model"
)

// MockPublisher records published messages and lets tests inject commands.
type MockPublisher struct {
	mu          sync.Mutex
	Plans       []coremqtt.PlanMessage
	Diagnostics map[string][]model.Diagnostic
	Fail        bool
	handler     coremqtt.CommandHandler
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Diagnostics: make(map[string][]model.Diagnostic)}
}

func (m *MockPublisher) PublishSchedule(msg coremqtt.PlanMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.Plans = append(m.Plans, msg)
	return nil
}

func (m *MockPublisher) PublishDiagnostics(passID string, diags []model.Diagnostic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("publish failed")
	}
	m.Diagnostics[passID] = diags
	return nil
}

// PlanCount returns the number of published plans.
func (m *MockPublisher) PlanCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Plans)
}

// LastPlan returns the most recent plan.
func (m *MockPublisher) LastPlan() (coremqtt.PlanMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Plans) == 0 {
		return coremqtt.PlanMessage{}, false
	}
	return m.Plans[len(m.Plans)-1], true
}

func (m *MockPublisher) OnCommand(h coremqtt.CommandHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// Send delivers cmd to the installed handler.
func (m *MockPublisher) Send(cmd coremqtt.Command) error {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		return fmt.Errorf("no handler")
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	return h(cmd)
}
