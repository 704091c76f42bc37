package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Device        DeviceConfig        `mapstructure:"device" yaml:"device"`
	Network       NetworkConfig       `mapstructure:"network" yaml:"network"`
	Probe         ProbeConfig         `mapstructure:"probe" yaml:"probe"`
	API           APIConfig           `mapstructure:"api" yaml:"api"`
	Security      SecurityConfig      `mapstructure:"security" yaml:"security"`
	Metrics       MetricsConfig       `mapstructure:"metrics" yaml:"metrics"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
	Sensor        SensorConfig        `mapstructure:"sensor" yaml:"sensor"`
	Shutdown      ShutdownConfig      `mapstructure:"shutdown" yaml:"shutdown"`
	Diagnostics   DiagnosticsConfig   `mapstructure:"diagnostics" yaml:"diagnostics"`
}

type DeviceConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
}

type NetworkConfig struct {
	LeaseTimeoutSeconds int            `mapstructure:"lease_timeout_seconds" yaml:"lease_timeout_seconds"`
	Wifi                WifiConfig     `mapstructure:"wifi" yaml:"wifi"`
	Ethernet            EthernetConfig `mapstructure:"ethernet" yaml:"ethernet"`
}

type WifiConfig struct {
	Interface   string            `mapstructure:"interface" yaml:"interface"`
	SSID        string            `mapstructure:"ssid" yaml:"ssid"`
	Password    string            `mapstructure:"password" yaml:"password"`
	Channel     int               `mapstructure:"channel" yaml:"channel"`
	AccessPoint AccessPointConfig `mapstructure:"access_point" yaml:"access_point"`
}

type AccessPointConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	SSID    string `mapstructure:"ssid" yaml:"ssid"`
	// NAPT routes access point clients out through the station uplink.
	NAPT bool `mapstructure:"napt" yaml:"napt"`
}

type EthernetConfig struct {
	Interface string     `mapstructure:"interface" yaml:"interface"`
	MAC       string     `mapstructure:"mac" yaml:"mac"`
	RMII      RMIIConfig `mapstructure:"rmii" yaml:"rmii"`
	SPI       SPIConfig  `mapstructure:"spi" yaml:"spi"`
}

type RMIIConfig struct {
	MDC      int    `mapstructure:"mdc" yaml:"mdc"`
	MDIO     int    `mapstructure:"mdio" yaml:"mdio"`
	Reset    int    `mapstructure:"reset" yaml:"reset"`
	PHYAddr  int    `mapstructure:"phy_addr" yaml:"phy_addr"`
	Chipset  string `mapstructure:"chipset" yaml:"chipset"`
	ClockPin int    `mapstructure:"clock_pin" yaml:"clock_pin"`
}

type SPIConfig struct {
	Host     int    `mapstructure:"host" yaml:"host"`
	SCLK     int    `mapstructure:"sclk" yaml:"sclk"`
	MOSI     int    `mapstructure:"mosi" yaml:"mosi"`
	MISO     int    `mapstructure:"miso" yaml:"miso"`
	CS       int    `mapstructure:"cs" yaml:"cs"`
	Int      int    `mapstructure:"int" yaml:"int"`
	Reset    int    `mapstructure:"reset" yaml:"reset"`
	ClockMHz int    `mapstructure:"clock_mhz" yaml:"clock_mhz"`
	Chipset  string `mapstructure:"chipset" yaml:"chipset"`
}

type ProbeConfig struct {
	Target     string `mapstructure:"target" yaml:"target"`
	Count      int    `mapstructure:"count" yaml:"count"`
	IntervalMs int    `mapstructure:"interval_ms" yaml:"interval_ms"`
	TimeoutMs  int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	Policy     string `mapstructure:"policy" yaml:"policy"`
}

type APIConfig struct {
	Address     string            `mapstructure:"address" yaml:"address"`
	H3Address   string            `mapstructure:"h3_address" yaml:"h3_address"`
	CertFile    string            `mapstructure:"cert_file" yaml:"cert_file"`
	KeyFile     string            `mapstructure:"key_file" yaml:"key_file"`
	Pprof       bool              `mapstructure:"pprof" yaml:"pprof"`
	PprofPath   string            `mapstructure:"pprof_path" yaml:"pprof_path"`
	Compression CompressionConfig `mapstructure:"compression" yaml:"compression"`
}

type CompressionConfig struct {
	Brotli bool `mapstructure:"brotli" yaml:"brotli"`
	Gzip   bool `mapstructure:"gzip" yaml:"gzip"`
}

type SecurityConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	RequireAuth bool          `mapstructure:"require_auth" yaml:"require_auth"`
	Tokens      []TokenConfig `mapstructure:"tokens" yaml:"tokens"`
}

type TokenConfig struct {
	Role  string `mapstructure:"role" yaml:"role"`
	Value string `mapstructure:"value" yaml:"value"`
}

type MetricsConfig struct {
	Address string              `mapstructure:"address" yaml:"address"`
	Path    string              `mapstructure:"path" yaml:"path"`
	Export  MetricsExportConfig `mapstructure:"export" yaml:"export"`
}

type MetricsExportConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	RemoteWriteURL  string `mapstructure:"remote_write_url" yaml:"remote_write_url"`
	IntervalSeconds int    `mapstructure:"interval_seconds" yaml:"interval_seconds"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	LokiURL    string `mapstructure:"loki_url" yaml:"loki_url"`
	ElasticURL string `mapstructure:"elastic_url" yaml:"elastic_url"`
}

type ObservabilityConfig struct {
	TracesLimit int          `mapstructure:"traces_limit" yaml:"traces_limit"`
	AlertsLimit int          `mapstructure:"alerts_limit" yaml:"alerts_limit"`
	GeoIPDB     string       `mapstructure:"geoip_db" yaml:"geoip_db"`
	Alerts      AlertsConfig `mapstructure:"alerts" yaml:"alerts"`
}

type AlertsConfig struct {
	SensorErrorsThreshold  uint64 `mapstructure:"sensor_errors_threshold" yaml:"sensor_errors_threshold"`
	RequestErrorsThreshold uint64 `mapstructure:"request_errors_threshold" yaml:"request_errors_threshold"`
}

type SensorConfig struct {
	IntervalMs    int             `mapstructure:"interval_ms" yaml:"interval_ms"`
	ReadTimeoutMs int             `mapstructure:"read_timeout_ms" yaml:"read_timeout_ms"`
	Channels      []ChannelConfig `mapstructure:"channels" yaml:"channels"`
}

type ChannelConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Device  string `mapstructure:"device" yaml:"device"`
	Channel int    `mapstructure:"channel" yaml:"channel"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

type ShutdownConfig struct {
	CountdownSeconds int `mapstructure:"countdown_seconds" yaml:"countdown_seconds"`
	StopTimeoutMs    int `mapstructure:"stop_timeout_ms" yaml:"stop_timeout_ms"`
}

type DiagnosticsConfig struct {
	CriticalSectionSelftest bool `mapstructure:"critical_section_selftest" yaml:"critical_section_selftest"`
	SelftestHoldMs          int  `mapstructure:"selftest_hold_ms" yaml:"selftest_hold_ms"`
}

const (
	ProbePolicyFatal = "fatal"
	ProbePolicyWarn  = "warn"
)

func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

func LoadFromBytes(data []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CONTROLLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	for _, key := range []string{
		"network.wifi.ssid",
		"network.wifi.password",
		"api.address",
		"logging.level",
	} {
		_ = v.BindEnv(key)
	}
	// Explicit zero is meaningful for these two: no lease deadline, no countdown.
	v.SetDefault("network.lease_timeout_seconds", 60)
	v.SetDefault("shutdown.countdown_seconds", 3)
	v.SetDefault("sensor.channels", []map[string]any{
		{"name": "a2", "device": "iio:device0", "channel": 2, "enabled": true},
		{"name": "hall", "device": "iio:device0", "channel": 0, "enabled": false},
	})
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Device.Name == "" {
		cfg.Device.Name = "controller"
	}
	if cfg.Network.Wifi.Interface == "" {
		cfg.Network.Wifi.Interface = "wlan0"
	}
	if cfg.Network.Wifi.AccessPoint.SSID == "" {
		cfg.Network.Wifi.AccessPoint.SSID = "aptest"
	}
	if cfg.Network.Ethernet.Interface == "" {
		cfg.Network.Ethernet.Interface = "eth0"
	}
	if cfg.Probe.Count == 0 {
		cfg.Probe.Count = 5
	}
	if cfg.Probe.IntervalMs == 0 {
		cfg.Probe.IntervalMs = 1000
	}
	if cfg.Probe.TimeoutMs == 0 {
		cfg.Probe.TimeoutMs = 1000
	}
	if cfg.Probe.Policy == "" {
		cfg.Probe.Policy = ProbePolicyFatal
	}
	cfg.Probe.Policy = strings.ToLower(strings.TrimSpace(cfg.Probe.Policy))
	if cfg.API.Address == "" {
		cfg.API.Address = ":8080"
	}
	if cfg.API.PprofPath == "" {
		cfg.API.PprofPath = "/debug/pprof"
	}
	if cfg.Security.Enabled {
		cfg.Security.RequireAuth = true
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Export.IntervalSeconds == 0 {
		cfg.Metrics.Export.IntervalSeconds = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Observability.TracesLimit == 0 {
		cfg.Observability.TracesLimit = 1000
	}
	if cfg.Observability.AlertsLimit == 0 {
		cfg.Observability.AlertsLimit = 1000
	}
	if cfg.Sensor.IntervalMs == 0 {
		cfg.Sensor.IntervalMs = 1000
	}
	if cfg.Sensor.ReadTimeoutMs == 0 {
		cfg.Sensor.ReadTimeoutMs = 500
	}
	for i := range cfg.Sensor.Channels {
		if cfg.Sensor.Channels[i].Device == "" {
			cfg.Sensor.Channels[i].Device = "iio:device0"
		}
	}
	if cfg.Shutdown.StopTimeoutMs == 0 {
		cfg.Shutdown.StopTimeoutMs = 5000
	}
	if cfg.Diagnostics.SelftestHoldMs == 0 {
		cfg.Diagnostics.SelftestHoldMs = 5000
	}
}

func Validate(cfg *Config) error {
	if cfg.Network.LeaseTimeoutSeconds < 0 {
		return fmt.Errorf("network.lease_timeout_seconds must be >= 0")
	}
	if cfg.Shutdown.CountdownSeconds < 0 {
		return fmt.Errorf("shutdown.countdown_seconds must be >= 0")
	}
	if ch := cfg.Network.Wifi.Channel; ch < 0 || ch > 196 {
		return fmt.Errorf("network.wifi.channel %d out of range", ch)
	}
	if ap := cfg.Network.Wifi.AccessPoint; ap.NAPT && !ap.Enabled {
		return fmt.Errorf("network.wifi.access_point.napt requires access_point.enabled")
	}
	if cfg.Probe.Count < 1 {
		return fmt.Errorf("probe.count must be >= 1")
	}
	switch cfg.Probe.Policy {
	case ProbePolicyFatal, ProbePolicyWarn:
	default:
		return fmt.Errorf("probe.policy %q must be %q or %q", cfg.Probe.Policy, ProbePolicyFatal, ProbePolicyWarn)
	}
	if cfg.API.H3Address != "" && (cfg.API.CertFile == "" || cfg.API.KeyFile == "") {
		return fmt.Errorf("api.h3_address requires api.cert_file and api.key_file")
	}
	for i, tok := range cfg.Security.Tokens {
		if tok.Role == "" {
			return fmt.Errorf("security.tokens[%d].role is required", i)
		}
	}
	seen := map[string]bool{}
	for i, ch := range cfg.Sensor.Channels {
		if ch.Name == "" {
			return fmt.Errorf("sensor.channels[%d].name is required", i)
		}
		if seen[ch.Name] {
			return fmt.Errorf("sensor.channels[%d].name %q is duplicated", i, ch.Name)
		}
		seen[ch.Name] = true
		if ch.Channel < 0 {
			return fmt.Errorf("sensor.channels[%d].channel must be >= 0", i)
		}
	}
	return nil
}
