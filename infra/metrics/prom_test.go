package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/haulplan/haulplan/core/metrics"
)

func TestPromSink_RecordDrop(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	rec := coremetrics.DropResult{
		SessionID: "s1",
		Zone:      "cell-top",
		Members:   4,
		Persisted: true,
		Latency:   120 * time.Millisecond,
		Time:      time.Now(),
	}
	if err := sink.RecordDrop(rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(sink.drops.WithLabelValues("cell-top", "true")); got != 1 {
		t.Fatalf("expected 1 drop, got %v", got)
	}
}

func TestPromSink_RecordEventAndChannel(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordEventApplied("order_updated", "created"); err != nil {
		t.Fatalf("record event: %v", err)
	}
	if err := sink.RecordChannelEvent(coremetrics.ChannelEvent{State: "connected"}); err != nil {
		t.Fatalf("record channel: %v", err)
	}
	if got := testutil.ToFloat64(sink.applied.WithLabelValues("order_updated", "created")); got != 1 {
		t.Fatalf("expected 1 applied event, got %v", got)
	}
	if got := testutil.ToFloat64(sink.channel.WithLabelValues("connected")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
}

func TestPromSink_DoubleRegistrationTolerated(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("second: %v", err)
	}
}

func TestMultiSink_FansOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	prom, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	multi := NewMultiSink(coremetrics.NopSink{}, prom)
	if err := multi.RecordEventApplied("note_updated", "deleted"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(prom.applied.WithLabelValues("note_updated", "deleted")); got != 1 {
		t.Fatalf("expected fan-out to reach prom sink, got %v", got)
	}
}

func TestFromConfig_Nop(t *testing.T) {
	sink, err := FromConfig(coremetrics.Config{})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", sink)
	}
}
