package network

import (
	"fmt"
	"net"
	"strings"
)

type Transport string

const (
	TransportWifi     Transport = "wifi"
	TransportEthernet Transport = "eth"
)

// InterfaceConfig selects and parameterises one transport. It is implemented
// only by WifiStation and Ethernet.
type InterfaceConfig interface {
	Transport() Transport
	InterfaceName() string
	isInterfaceConfig()
}

// WifiStation joins an existing network. Channel 0 means unknown; the
// establisher tries to discover it by scanning.
type WifiStation struct {
	Interface   string
	SSID        string
	Password    string
	Channel     uint8
	AccessPoint *SoftAP
}

// SoftAP is the access point brought up alongside the station in mixed mode.
// With NAPT set, its clients are masqueraded out through the station link.
type SoftAP struct {
	SSID    string
	Channel uint8
	NAPT    bool
}

func (WifiStation) Transport() Transport { return TransportWifi }
func (w WifiStation) InterfaceName() string { return w.Interface }
func (WifiStation) isInterfaceConfig() {}

type EthernetKind string

const (
	EthernetOpenETH EthernetKind = "openeth"
	EthernetRMII    EthernetKind = "rmii"
	EthernetSPI     EthernetKind = "spi"
)

type Ethernet struct {
	Kind      EthernetKind
	Interface string
	MAC       net.HardwareAddr
	RMII      *RMIIPins
	SPI       *SPIBus
}

type RMIIPins struct {
	MDC      int
	MDIO     int
	Reset    int
	PHYAddr  int
	ClockPin int
	Chipset  string
}

type SPIBus struct {
	Host     int
	SCLK     int
	MOSI     int
	MISO     int
	CS       int
	Int      int
	Reset    int
	ClockMHz int
	Chipset  string
}

func (Ethernet) Transport() Transport { return TransportEthernet }
func (e Ethernet) InterfaceName() string { return e.Interface }
func (Ethernet) isInterfaceConfig() {}

func (e Ethernet) Validate() error {
	switch e.Kind {
	case EthernetOpenETH:
	case EthernetRMII:
		if e.RMII == nil {
			return fmt.Errorf("rmii ethernet requires pin configuration")
		}
	case EthernetSPI:
		if e.SPI == nil {
			return fmt.Errorf("spi ethernet requires bus configuration")
		}
		if e.SPI.ClockMHz <= 0 {
			return fmt.Errorf("spi ethernet clock must be > 0")
		}
	default:
		return fmt.Errorf("unknown ethernet kind %q", e.Kind)
	}
	return nil
}

// LeaseInfo is what DHCP handed the interface.
type LeaseInfo struct {
	Address net.IP
	Subnet  net.IPNet
	Gateway net.IP
	DNS     []net.IP
}

func (l LeaseInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ip=%s", l.Address)
	if l.Subnet.IP != nil {
		fmt.Fprintf(&b, " subnet=%s", l.Subnet.String())
	}
	fmt.Fprintf(&b, " gateway=%s", l.Gateway)
	return b.String()
}

// Fields renders the lease for structured logs and the status endpoint.
func (l LeaseInfo) Fields() map[string]any {
	dns := make([]string, 0, len(l.DNS))
	for _, ip := range l.DNS {
		dns = append(dns, ip.String())
	}
	subnet := ""
	if l.Subnet.IP != nil {
		subnet = l.Subnet.String()
	}
	return map[string]any{
		"ip":      l.Address.String(),
		"subnet":  subnet,
		"gateway": l.Gateway.String(),
		"dns":     dns,
	}
}

// AccessPointInfo is one scan result.
type AccessPointInfo struct {
	SSID     string
	BSSID    string
	Channel  uint8
	SignalDB int
}
