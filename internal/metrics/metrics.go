package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"controller-go/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	BringUpSeconds       prometheus.Gauge
	LinkUp               prometheus.Gauge
	ProbeTransmitted     prometheus.Counter
	ProbeReceived        prometheus.Counter
	ProbeFailures        prometheus.Counter
	RequestsTotal        *prometheus.CounterVec
	RequestErrors        prometheus.Counter
	RequestErrorsEscaped prometheus.Counter
	SensorValue          *prometheus.GaugeVec
	SensorReadErrors     *prometheus.CounterVec
	PollCycles           prometheus.Counter
	RemoteWriteFailures  prometheus.Counter

	gatherer prometheus.Gatherer

	requestsCount        atomic.Uint64
	requestErrorsCount   atomic.Uint64
	escapedErrorsCount   atomic.Uint64
	probeTxCount         atomic.Uint64
	probeRxCount         atomic.Uint64
	probeFailuresCount   atomic.Uint64
	pollCyclesCount      atomic.Uint64
	sensorErrorsCount    atomic.Uint64
	remoteWriteFailures  atomic.Uint64
	linkUp               atomic.Bool
	mu                   sync.Mutex
	sensorValues         map[string]float64
	sensorErrorsBySensor map[string]uint64
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BringUpSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "controller_bringup_seconds",
			Help: "Time taken to bring the network link up",
		}),
		LinkUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "controller_link_up",
			Help: "1 while the network link holds a lease",
		}),
		ProbeTransmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_probe_transmitted_total",
			Help: "Echo requests sent by the reachability probe",
		}),
		ProbeReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_probe_received_total",
			Help: "Echo replies received by the reachability probe",
		}),
		ProbeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_probe_failures_total",
			Help: "Probe batches that lost at least one packet",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "controller_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "path", "status"}),
		RequestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_http_request_errors_total",
			Help: "Handler errors translated into 500 responses",
		}),
		RequestErrorsEscaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_http_request_errors_escaped_total",
			Help: "Handler errors raised after the response had started",
		}),
		SensorValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "controller_sensor_value",
			Help: "Last reading per sensor",
		}, []string{"sensor"}),
		SensorReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "controller_sensor_read_errors_total",
			Help: "Failed sensor reads",
		}, []string{"sensor"}),
		PollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_poll_cycles_total",
			Help: "Completed sensor poll cycles",
		}),
		RemoteWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "controller_remote_write_failures_total",
			Help: "Remote write pushes that failed",
		}),
		sensorValues:         map[string]float64{},
		sensorErrorsBySensor: map[string]uint64{},
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.BringUpSeconds,
		m.LinkUp,
		m.ProbeTransmitted,
		m.ProbeReceived,
		m.ProbeFailures,
		m.RequestsTotal,
		m.RequestErrors,
		m.RequestErrorsEscaped,
		m.SensorValue,
		m.SensorReadErrors,
		m.PollCycles,
		m.RemoteWriteFailures,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

func (m *Metrics) SetBringUp(took time.Duration) {
	m.BringUpSeconds.Set(took.Seconds())
}

func (m *Metrics) SetLinkUp(up bool) {
	m.linkUp.Store(up)
	if up {
		m.LinkUp.Set(1)
		return
	}
	m.LinkUp.Set(0)
}

func (m *Metrics) ObserveProbe(transmitted, received int) {
	if transmitted < 0 || received < 0 {
		return
	}
	m.probeTxCount.Add(uint64(transmitted))
	m.probeRxCount.Add(uint64(received))
	m.ProbeTransmitted.Add(float64(transmitted))
	m.ProbeReceived.Add(float64(received))
	if received != transmitted {
		m.probeFailuresCount.Add(1)
		m.ProbeFailures.Inc()
	}
}

func (m *Metrics) ObserveRequest(method, path string, status int) {
	m.requestsCount.Add(1)
	m.RequestsTotal.WithLabelValues(method, path, fmt.Sprint(status)).Inc()
}

func (m *Metrics) IncRequestError() {
	m.requestErrorsCount.Add(1)
	m.RequestErrors.Inc()
}

func (m *Metrics) IncRequestErrorEscaped() {
	m.escapedErrorsCount.Add(1)
	m.RequestErrorsEscaped.Inc()
}

func (m *Metrics) ObserveReading(sensor string, value float64) {
	if sensor == "" {
		return
	}
	m.SensorValue.WithLabelValues(sensor).Set(value)
	m.mu.Lock()
	m.sensorValues[sensor] = value
	m.mu.Unlock()
}

func (m *Metrics) IncSensorError(sensor string) {
	if sensor == "" {
		return
	}
	m.sensorErrorsCount.Add(1)
	m.SensorReadErrors.WithLabelValues(sensor).Inc()
	m.mu.Lock()
	m.sensorErrorsBySensor[sensor]++
	m.mu.Unlock()
}

func (m *Metrics) IncPollCycles() {
	m.pollCyclesCount.Add(1)
	m.PollCycles.Inc()
}

func (m *Metrics) IncRemoteWriteFailure() {
	m.remoteWriteFailures.Add(1)
	m.RemoteWriteFailures.Inc()
}

type Snapshot struct {
	LinkUp               bool
	Requests             uint64
	RequestErrors        uint64
	RequestErrorsEscaped uint64
	ProbeTransmitted     uint64
	ProbeReceived        uint64
	ProbeFailures        uint64
	PollCycles           uint64
	SensorErrors         uint64
	RemoteWriteFailures  uint64
	SensorValues         map[string]float64
	SensorErrorsBySensor map[string]uint64
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	values := make(map[string]float64, len(m.sensorValues))
	for k, v := range m.sensorValues {
		values[k] = v
	}
	errs := make(map[string]uint64, len(m.sensorErrorsBySensor))
	for k, v := range m.sensorErrorsBySensor {
		errs[k] = v
	}
	m.mu.Unlock()
	return Snapshot{
		LinkUp:               m.linkUp.Load(),
		Requests:             m.requestsCount.Load(),
		RequestErrors:        m.requestErrorsCount.Load(),
		RequestErrorsEscaped: m.escapedErrorsCount.Load(),
		ProbeTransmitted:     m.probeTxCount.Load(),
		ProbeReceived:        m.probeRxCount.Load(),
		ProbeFailures:        m.probeFailuresCount.Load(),
		PollCycles:           m.pollCyclesCount.Load(),
		SensorErrors:         m.sensorErrorsCount.Load(),
		RemoteWriteFailures:  m.remoteWriteFailures.Load(),
		SensorValues:         values,
		SensorErrorsBySensor: errs,
	}
}

// Handler serves the registry the collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// StartServer binds the metrics listener and serves until ctx ends.
func StartServer(ctx context.Context, cfg config.MetricsConfig, handler http.Handler) error {
	if handler == nil {
		handler = promhttp.Handler()
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, handler)

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
