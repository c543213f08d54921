package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/haulplan/haulplan/core/metrics"
)

// PromSink records engine events in Prometheus metrics.
type PromSink struct {
	drops       *prometheus.CounterVec
	dropLatency *prometheus.HistogramVec
	applied     *prometheus.CounterVec
	channel     *prometheus.CounterVec
}

// NewPromSink registers board metrics on the default Prometheus registerer.
// The Prometheus server is started separately on cfg.PrometheusAddr.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	drops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_drops_total",
		Help: "Total number of completed drop gestures",
	}, []string{"zone", "persisted"})
	dropLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "board_drop_latency_seconds",
		Help:    "Time between pointer release and persistence response",
		Buckets: prometheus.DefBuckets,
	}, []string{"zone", "persisted"})
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_events_applied_total",
		Help: "Realtime change events applied to the board state",
	}, []string{"event", "action"})
	channel := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_channel_transitions_total",
		Help: "Push-channel state transitions",
	}, []string{"state"})

	if err := reg.Register(drops); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			drops = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(dropLatency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			dropLatency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(applied); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			applied = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(channel); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			channel = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{drops: drops, dropLatency: dropLatency, applied: applied, channel: channel}, nil
}

// RecordDrop counts the drop and observes its persistence latency.
func (s *PromSink) RecordDrop(r coremetrics.DropResult) error {
	persisted := strconv.FormatBool(r.Persisted)
	s.drops.WithLabelValues(r.Zone, persisted).Inc()
	s.dropLatency.WithLabelValues(r.Zone, persisted).Observe(r.Latency.Seconds())
	return nil
}

// RecordEventApplied counts an applied realtime event.
func (s *PromSink) RecordEventApplied(event, action string) error {
	s.applied.WithLabelValues(event, action).Inc()
	return nil
}

// RecordChannelEvent counts a channel state transition.
func (s *PromSink) RecordChannelEvent(ev coremetrics.ChannelEvent) error {
	s.channel.WithLabelValues(ev.State).Inc()
	return nil
}
