//go:build linux

package platform

import (
	"fmt"

	"controller-go/internal/config"
	"controller-go/internal/platform/linux"
	"controller-go/pkg/network"
	"controller-go/pkg/sensor"
)

// NewDriver is the network.Factory for this host.
func NewDriver(cfg network.InterfaceConfig) (network.Driver, error) {
	switch c := cfg.(type) {
	case network.WifiStation:
		return linux.NewWifi(c, linux.Options{}), nil
	case network.Ethernet:
		return linux.NewEthernet(c, linux.Options{}), nil
	default:
		return nil, fmt.Errorf("no driver for %T", cfg)
	}
}

// NewSensors returns a reader per enabled channel.
func NewSensors(cfg config.SensorConfig) ([]sensor.Reader, error) {
	readers := make([]sensor.Reader, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		if !ch.Enabled {
			continue
		}
		readers = append(readers, linux.NewADC(ch.Name, ch.Device, ch.Channel, linux.Options{}))
	}
	return readers, nil
}
