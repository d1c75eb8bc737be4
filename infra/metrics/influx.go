package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	coremetrics "github.com/villaops/dispatchd/core/metrics"
	"github.com/villaops/dispatchd/infra/logger"
)

// InfluxSink writes offer cycle measurements to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a broken metrics backend
// never blocks dispatching.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
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

// RecordOfferCycle writes one point per record.
func (s *InfluxSink) RecordOfferCycle(recs []coremetrics.OfferCycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, r := range recs {
		ts := r.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		p := influxdb2.NewPoint("offer_cycle",
			map[string]string{
				"event":   r.Event,
				"role":    r.Role,
				"attempt": strconv.Itoa(r.Attempt),
			},
			map[string]interface{}{
				"job_id":      r.JobID,
				"offer_id":    r.OfferID,
				"property_id": r.PropertyID,
				"staff_id":    r.StaffID,
				"staff_count": r.StaffCount,
				"latency_sec": r.LatencySec,
			},
			ts)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
