package metrics

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPass forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPass(rec PassRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordPass(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordAssignments forwards placements when supported by the sink.
func (m *MultiSink) RecordAssignments(recs []AssignmentRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(AssignmentRecorder); ok {
			if err := r.RecordAssignments(recs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordDiagnostics forwards diagnostics when supported by the sink.
func (m *MultiSink) RecordDiagnostics(recs []DiagnosticRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(DiagnosticRecorder); ok {
			if err := r.RecordDiagnostics(recs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTransition forwards state changes when supported by the sink.
func (m *MultiSink) RecordTransition(ev TransitionEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(TransitionRecorder); ok {
			if err := r.RecordTransition(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
