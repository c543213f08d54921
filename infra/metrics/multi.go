package metrics

import coremetrics "github.com/haulplan/haulplan/core/metrics"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDrop forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordDrop(r coremetrics.DropResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordDrop(r); err != nil {
			return err
		}
	}
	return nil
}

// RecordEventApplied forwards applied-event records.
func (m *MultiSink) RecordEventApplied(event, action string) error {
	for _, s := range m.Sinks {
		if err := s.RecordEventApplied(event, action); err != nil {
			return err
		}
	}
	return nil
}

// RecordChannelEvent forwards channel transitions.
func (m *MultiSink) RecordChannelEvent(ev coremetrics.ChannelEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordChannelEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordGestureSummary forwards gesture summaries to sinks that keep them.
func (m *MultiSink) RecordGestureSummary(sum coremetrics.GestureSummary) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.GestureRecorder); ok {
			if err := rec.RecordGestureSummary(sum); err != nil {
				return err
			}
		}
	}
	return nil
}
