package metrics

import "time"

// DropResult captures one completed drop gesture for observability purposes.
type DropResult struct {
	SessionID string
	ItemID    string
	Zone      string
	Members   int
	Persisted bool
	Latency   time.Duration
	Time      time.Time
}

// ChannelEvent is a realtime-channel lifecycle observation.
type ChannelEvent struct {
	State   string
	Attempt int
	Time    time.Time
}

// GestureSummary aggregates per-session gesture timings.
type GestureSummary struct {
	SessionID     string
	Frames        int
	MeanResolveMS float64
	StdResolveMS  float64
	P95ResolveMS  float64
	DropLatencyMS float64
}

// Sink records engine events.
type Sink interface {
	RecordDrop(DropResult) error
	RecordEventApplied(kind, action string) error
	RecordChannelEvent(ChannelEvent) error
}

// GestureRecorder is implemented by sinks interested in per-session gesture
// timing summaries.
type GestureRecorder interface {
	RecordGestureSummary(GestureSummary) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordDrop(DropResult) error               { return nil }
func (NopSink) RecordEventApplied(string, string) error   { return nil }
func (NopSink) RecordChannelEvent(ChannelEvent) error     { return nil }
func (NopSink) RecordGestureSummary(GestureSummary) error { return nil }
