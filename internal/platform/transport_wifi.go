//go:build !eth_openeth && !eth_rmii && !eth_spi

package platform

import "controller-go/pkg/network"

// BuildTransport is fixed when the binary is built; WiFi unless an eth_* tag
// selects an Ethernet variant.
const (
	BuildTransport    = network.TransportWifi
	BuildEthernetKind = network.EthernetKind("")
)
