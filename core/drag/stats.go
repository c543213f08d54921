package drag

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/haulplan/haulplan/core/metrics"
)

// GestureStats collects per-frame resolve timings and the drop round trip for
// one session. The summary is logged at session end and forwarded to sinks
// implementing metrics.GestureRecorder.
type GestureStats struct {
	resolveMS []float64
	dropMS    float64
}

func newGestureStats() *GestureStats { return &GestureStats{} }

// ObserveResolve records the duration of one frame's zone resolution.
func (g *GestureStats) ObserveResolve(d time.Duration) {
	g.resolveMS = append(g.resolveMS, float64(d.Microseconds())/1000)
}

// ObserveDrop records the drop persistence round trip.
func (g *GestureStats) ObserveDrop(d time.Duration) {
	g.dropMS = float64(d.Milliseconds())
}

// Summary aggregates the collected timings.
func (g *GestureStats) Summary(sessionID string) metrics.GestureSummary {
	s := metrics.GestureSummary{
		SessionID:     sessionID,
		Frames:        len(g.resolveMS),
		DropLatencyMS: g.dropMS,
	}
	if len(g.resolveMS) == 0 {
		return s
	}
	sorted := append([]float64(nil), g.resolveMS...)
	sort.Float64s(sorted)
	s.MeanResolveMS = stat.Mean(sorted, nil)
	s.StdResolveMS = stat.StdDev(sorted, nil)
	s.P95ResolveMS = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	return s
}
