package platform

import (
	"fmt"
	"net"

	"controller-go/internal/config"
	"controller-go/pkg/network"
)

// InterfaceConfigFor builds the interface configuration for the transport
// this binary was built with.
func InterfaceConfigFor(cfg config.NetworkConfig) (network.InterfaceConfig, error) {
	return interfaceConfig(BuildTransport, BuildEthernetKind, cfg)
}

func interfaceConfig(transport network.Transport, kind network.EthernetKind, cfg config.NetworkConfig) (network.InterfaceConfig, error) {
	switch transport {
	case network.TransportWifi:
		return wifiStation(cfg.Wifi), nil
	case network.TransportEthernet:
		return ethernet(kind, cfg.Ethernet)
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

func wifiStation(cfg config.WifiConfig) network.WifiStation {
	ws := network.WifiStation{
		Interface: cfg.Interface,
		SSID:      cfg.SSID,
		Password:  config.ResolveSecret(cfg.Password),
		Channel:   uint8(cfg.Channel),
	}
	if cfg.AccessPoint.Enabled {
		ssid := cfg.AccessPoint.SSID
		if ssid == "" {
			ssid = cfg.SSID + "-setup"
		}
		ws.AccessPoint = &network.SoftAP{SSID: ssid, NAPT: cfg.AccessPoint.NAPT}
	}
	return ws
}

func ethernet(kind network.EthernetKind, cfg config.EthernetConfig) (network.Ethernet, error) {
	eth := network.Ethernet{Kind: kind, Interface: cfg.Interface}
	if cfg.MAC != "" {
		mac, err := net.ParseMAC(cfg.MAC)
		if err != nil {
			return network.Ethernet{}, fmt.Errorf("ethernet mac: %w", err)
		}
		eth.MAC = mac
	}
	switch kind {
	case network.EthernetRMII:
		eth.RMII = &network.RMIIPins{
			MDC:      cfg.RMII.MDC,
			MDIO:     cfg.RMII.MDIO,
			Reset:    cfg.RMII.Reset,
			PHYAddr:  cfg.RMII.PHYAddr,
			ClockPin: cfg.RMII.ClockPin,
			Chipset:  cfg.RMII.Chipset,
		}
	case network.EthernetSPI:
		eth.SPI = &network.SPIBus{
			Host:     cfg.SPI.Host,
			SCLK:     cfg.SPI.SCLK,
			MOSI:     cfg.SPI.MOSI,
			MISO:     cfg.SPI.MISO,
			CS:       cfg.SPI.CS,
			Int:      cfg.SPI.Int,
			Reset:    cfg.SPI.Reset,
			ClockMHz: cfg.SPI.ClockMHz,
			Chipset:  cfg.SPI.Chipset,
		}
	}
	return eth, nil
}
