package observability

import (
	"testing"

	"controller-go/internal/metrics"
)

func TestEvaluateAlertsThresholds(t *testing.T) {
	cfg := AlertsConfig{
		SensorErrorsThreshold:  3,
		RequestErrorsThreshold: 5,
	}
	prev := metrics.Snapshot{
		LinkUp:        true,
		SensorErrors:  10,
		RequestErrors: 2,
	}
	curr := metrics.Snapshot{
		LinkUp:        true,
		SensorErrors:  13,
		RequestErrors: 6,
	}
	alerts := EvaluateAlerts(prev, curr, cfg)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type != AlertSensorErrors || alerts[0].Value != 3 {
		t.Fatalf("unexpected alert: %+v", alerts[0])
	}
	if alerts[0].ID == "" {
		t.Fatalf("expected alert id")
	}
}

func TestEvaluateAlertsDisabledAndReset(t *testing.T) {
	prev := metrics.Snapshot{SensorErrors: 50, RequestErrors: 50}
	curr := metrics.Snapshot{SensorErrors: 1, RequestErrors: 100}
	alerts := EvaluateAlerts(prev, curr, AlertsConfig{SensorErrorsThreshold: 1})
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", alerts)
	}
}

func TestEvaluateAlertsLinkDown(t *testing.T) {
	alerts := EvaluateAlerts(metrics.Snapshot{LinkUp: true}, metrics.Snapshot{}, AlertsConfig{})
	if !hasAlertType(alerts, AlertLinkDown) {
		t.Fatalf("expected link down alert, got %+v", alerts)
	}
}

func TestAlertStoreLimit(t *testing.T) {
	store := NewAlertStore(2)
	store.Add(Alert{ID: "a"})
	store.Add(Alert{ID: "b"})
	store.Add(Alert{ID: "c"})
	latest := store.List()
	if len(latest) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(latest))
	}
	if latest[0].ID != "b" || latest[1].ID != "c" {
		t.Fatalf("unexpected alerts order: %#v", latest)
	}
}

func hasAlertType(alerts []Alert, typ AlertType) bool {
	for _, alert := range alerts {
		if alert.Type == typ {
			return true
		}
	}
	return false
}
