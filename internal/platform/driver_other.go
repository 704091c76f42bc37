//go:build !linux

package platform

import (
	"errors"

	"controller-go/internal/config"
	"controller-go/pkg/network"
	"controller-go/pkg/sensor"
)

var ErrNotSupported = errors.New("platform: not supported on this OS")

func NewDriver(network.InterfaceConfig) (network.Driver, error) {
	return nil, ErrNotSupported
}

func NewSensors(cfg config.SensorConfig) ([]sensor.Reader, error) {
	for _, ch := range cfg.Channels {
		if ch.Enabled {
			return nil, ErrNotSupported
		}
	}
	return nil, nil
}
