//go:build eth_spi

package platform

import "controller-go/pkg/network"

const (
	BuildTransport    = network.TransportEthernet
	BuildEthernetKind = network.EthernetSPI
)
