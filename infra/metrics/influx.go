package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/haulplan/haulplan/core/metrics"
	"github.com/haulplan/haulplan/infra/logger"
)

// InfluxSink writes engine events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails, so a broken metrics backend never blocks a board
// session.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDrop writes the drop gesture as a point.
func (s *InfluxSink) RecordDrop(r coremetrics.DropResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("board_drop").
		AddTag("zone", r.Zone).
		AddTag("persisted", strconv.FormatBool(r.Persisted)).
		AddTag("session_id", r.SessionID).
		AddField("members", r.Members).
		AddField("latency_ms", float64(r.Latency.Milliseconds())).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordEventApplied writes an applied realtime event as a point.
func (s *InfluxSink) RecordEventApplied(event, action string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("board_event").
		AddTag("event", event).
		AddTag("action", action).
		AddField("count", 1).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordChannelEvent writes a channel state transition as a point.
func (s *InfluxSink) RecordChannelEvent(ev coremetrics.ChannelEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("board_channel").
		AddTag("state", ev.State).
		AddField("attempt", ev.Attempt).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordGestureSummary writes the per-session timing summary as a point.
func (s *InfluxSink) RecordGestureSummary(sum coremetrics.GestureSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("board_gesture").
		AddTag("session_id", sum.SessionID).
		AddField("frames", sum.Frames).
		AddField("mean_resolve_ms", sum.MeanResolveMS).
		AddField("p95_resolve_ms", sum.P95ResolveMS).
		AddField("drop_latency_ms", sum.DropLatencyMS).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
