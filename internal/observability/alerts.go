package observability

import (
	"time"

	"controller-go/internal/metrics"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertSensorErrors  AlertType = "sensor_errors"
	AlertRequestErrors AlertType = "request_errors"
	AlertLinkDown      AlertType = "link_down"
)

type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Value     uint64    `json:"value"`
	Threshold uint64    `json:"threshold"`
	Timestamp int64     `json:"timestamp"`
}

// AlertsConfig thresholds apply to the growth between two snapshots.
// Zero disables the check.
type AlertsConfig struct {
	SensorErrorsThreshold  uint64
	RequestErrorsThreshold uint64
}

type AlertStore struct {
	alerts *ring[Alert]
}

func NewAlertStore(limit int) *AlertStore {
	return &AlertStore{alerts: newRing[Alert](limit)}
}

func (s *AlertStore) Add(alert Alert) { s.alerts.add(alert) }

func (s *AlertStore) List() []Alert { return s.alerts.list() }

func (s *AlertStore) Limit() int { return s.alerts.limit }

func EvaluateAlerts(prev metrics.Snapshot, curr metrics.Snapshot, cfg AlertsConfig) []Alert {
	out := make([]Alert, 0, 3)
	now := time.Now().Unix()
	if delta := growth(prev.SensorErrors, curr.SensorErrors); cfg.SensorErrorsThreshold > 0 && delta >= cfg.SensorErrorsThreshold {
		out = append(out, Alert{
			ID:        uuid.NewString(),
			Type:      AlertSensorErrors,
			Message:   "sensor read errors threshold exceeded",
			Value:     delta,
			Threshold: cfg.SensorErrorsThreshold,
			Timestamp: now,
		})
	}
	if delta := growth(prev.RequestErrors, curr.RequestErrors); cfg.RequestErrorsThreshold > 0 && delta >= cfg.RequestErrorsThreshold {
		out = append(out, Alert{
			ID:        uuid.NewString(),
			Type:      AlertRequestErrors,
			Message:   "request errors threshold exceeded",
			Value:     delta,
			Threshold: cfg.RequestErrorsThreshold,
			Timestamp: now,
		})
	}
	if prev.LinkUp && !curr.LinkUp {
		out = append(out, Alert{
			ID:        uuid.NewString(),
			Type:      AlertLinkDown,
			Message:   "network link went down",
			Timestamp: now,
		})
	}
	return out
}

func growth(prev, curr uint64) uint64 {
	if curr < prev {
		return 0
	}
	return curr - prev
}
