package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"controller-go/internal/config"
	"controller-go/internal/logger"

	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
)

// StartRemoteWrite pushes a snapshot every interval until ctx ends. A failed
// push is logged, counted and retried on the next tick.
func StartRemoteWrite(ctx context.Context, cfg config.MetricsExportConfig, device string, m *Metrics, log *logger.Logger) {
	if !cfg.Enabled || cfg.RemoteWriteURL == "" || m == nil {
		return
	}
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sendSnapshot(ctx, client, cfg.RemoteWriteURL, device, m.Snapshot()); err != nil {
					if ctx.Err() != nil {
						return
					}
					m.IncRemoteWriteFailure()
					log.Warn("remote write failed", map[string]any{"url": cfg.RemoteWriteURL, "err": err.Error()})
				}
			}
		}
	}()
}

func sendSnapshot(ctx context.Context, client *http.Client, url, device string, snap Snapshot) error {
	now := time.Now().UnixMilli()
	link := 0.0
	if snap.LinkUp {
		link = 1
	}
	series := []prompb.TimeSeries{
		newSeries("controller_link_up", device, nil, link, now),
		newSeries("controller_http_requests_total", device, nil, float64(snap.Requests), now),
		newSeries("controller_http_request_errors_total", device, nil, float64(snap.RequestErrors), now),
		newSeries("controller_probe_failures_total", device, nil, float64(snap.ProbeFailures), now),
		newSeries("controller_poll_cycles_total", device, nil, float64(snap.PollCycles), now),
		newSeries("controller_sensor_read_errors_total", device, nil, float64(snap.SensorErrors), now),
	}
	names := make([]string, 0, len(snap.SensorValues))
	for name := range snap.SensorValues {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		series = append(series, newSeries("controller_sensor_value", device,
			[]prompb.Label{{Name: "sensor", Value: name}}, snap.SensorValues[name], now))
	}

	req := &prompb.WriteRequest{Timeseries: series}
	data, err := req.Marshal()
	if err != nil {
		return fmt.Errorf("marshal write request: %w", err)
	}
	compressed := snappy.Encode(nil, data)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("remote write: status %d", resp.StatusCode)
	}
	return nil
}

func newSeries(name, device string, extra []prompb.Label, value float64, ts int64) prompb.TimeSeries {
	labels := []prompb.Label{{Name: "__name__", Value: name}}
	if device != "" {
		labels = append(labels, prompb.Label{Name: "device", Value: device})
	}
	labels = append(labels, extra...)
	return prompb.TimeSeries{
		Labels:  labels,
		Samples: []prompb.Sample{{Value: value, Timestamp: ts}},
	}
}
