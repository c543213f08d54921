package metrics

import (
	"fmt"

	coremetrics "github.com/haulplan/haulplan/core/metrics"
)

// FromConfig builds the configured sink combination: none, one, or a fan-out
// over prometheus and influx.
func FromConfig(cfg coremetrics.Config) (coremetrics.Sink, error) {
	cfg.SetDefaults()
	var sinks []coremetrics.Sink
	if cfg.PrometheusEnabled {
		sink, err := NewPromSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
