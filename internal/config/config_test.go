package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromBytesAppliesDefaults(t *testing.T) {
	data := []byte(`
network:
  wifi:
    ssid: lab
    password: env:LAB_PSK
security:
  enabled: true
  require_auth: false
`)
	cfg, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Address != ":8080" {
		t.Fatalf("expected default api address, got %q", cfg.API.Address)
	}
	if cfg.Metrics.Address != ":9090" {
		t.Fatalf("expected default metrics address, got %q", cfg.Metrics.Address)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Fatalf("expected default metrics path, got %q", cfg.Metrics.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default logging level, got %q", cfg.Logging.Level)
	}
	if cfg.Network.LeaseTimeoutSeconds != 60 {
		t.Fatalf("expected default lease timeout, got %d", cfg.Network.LeaseTimeoutSeconds)
	}
	if cfg.Network.Wifi.Interface != "wlan0" {
		t.Fatalf("expected default wifi interface, got %q", cfg.Network.Wifi.Interface)
	}
	if cfg.Network.Wifi.AccessPoint.SSID != "aptest" {
		t.Fatalf("expected default softap ssid, got %q", cfg.Network.Wifi.AccessPoint.SSID)
	}
	if cfg.Network.Ethernet.Interface != "eth0" {
		t.Fatalf("expected default ethernet interface, got %q", cfg.Network.Ethernet.Interface)
	}
	if cfg.Probe.Count != 5 || cfg.Probe.Policy != ProbePolicyFatal {
		t.Fatalf("unexpected probe defaults: %+v", cfg.Probe)
	}
	if cfg.Sensor.IntervalMs != 1000 {
		t.Fatalf("expected default sensor interval, got %d", cfg.Sensor.IntervalMs)
	}
	if len(cfg.Sensor.Channels) != 2 || cfg.Sensor.Channels[0].Name != "a2" || cfg.Sensor.Channels[0].Channel != 2 {
		t.Fatalf("unexpected default channels: %+v", cfg.Sensor.Channels)
	}
	if cfg.Sensor.Channels[1].Enabled {
		t.Fatalf("expected secondary channel disabled by default")
	}
	if cfg.Shutdown.CountdownSeconds != 3 {
		t.Fatalf("expected default countdown, got %d", cfg.Shutdown.CountdownSeconds)
	}
	if !cfg.Security.RequireAuth {
		t.Fatalf("expected require_auth to be forced true when enabled")
	}
}

func TestLoadFromBytesKeepsExplicitZero(t *testing.T) {
	data := []byte(`
network:
  lease_timeout_seconds: 0
shutdown:
  countdown_seconds: 0
`)
	cfg, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Network.LeaseTimeoutSeconds != 0 {
		t.Fatalf("expected unbounded lease wait, got %d", cfg.Network.LeaseTimeoutSeconds)
	}
	if cfg.Shutdown.CountdownSeconds != 0 {
		t.Fatalf("expected countdown disabled, got %d", cfg.Shutdown.CountdownSeconds)
	}
}

func TestLoadFromBytesRejectsBadProbePolicy(t *testing.T) {
	data := []byte(`
probe:
  policy: sometimes
`)
	if _, err := LoadFromBytes(data); err == nil {
		t.Fatalf("expected error for unknown probe policy")
	}
}

func TestLoadFromBytesRejectsDuplicateChannel(t *testing.T) {
	data := []byte(`
sensor:
  channels:
    - name: a2
      channel: 2
    - name: a2
      channel: 3
`)
	if _, err := LoadFromBytes(data); err == nil {
		t.Fatalf("expected error for duplicate sensor channel")
	}
}

func TestLoadFromBytesH3RequiresCert(t *testing.T) {
	data := []byte(`
api:
  h3_address: ":8443"
`)
	if _, err := LoadFromBytes(data); err == nil {
		t.Fatalf("expected error for h3 without cert")
	}
}

func TestLoadFromBytesNAPTRequiresAccessPoint(t *testing.T) {
	data := []byte(`
network:
  wifi:
    ssid: aptest
    access_point:
      napt: true
`)
	if _, err := LoadFromBytes(data); err == nil {
		t.Fatalf("expected error for napt without access point")
	}
	data = []byte(`
network:
  wifi:
    ssid: aptest
    access_point:
      enabled: true
      napt: true
`)
	cfg, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Network.Wifi.AccessPoint.NAPT {
		t.Fatalf("expected napt to be decoded")
	}
}

func TestValidateWrapper(t *testing.T) {
	cfg := &Config{
		Probe: ProbeConfig{Count: 4, Policy: ProbePolicyWarn},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Network.Wifi.Channel = 300
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for out of range channel")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CONTROLLER_NETWORK_WIFI_SSID", "from-env")
	cfg, err := LoadFromBytes([]byte("network:\n  wifi:\n    ssid: from-file\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Network.Wifi.SSID != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Network.Wifi.SSID)
	}
}

func TestLoadFromFile(t *testing.T) {
	data := []byte(`
device:
  name: bench-01
`)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device.Name != "bench-01" {
		t.Fatalf("expected device name bench-01, got %q", cfg.Device.Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
