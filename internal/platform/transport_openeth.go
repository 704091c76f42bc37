//go:build eth_openeth

package platform

import "controller-go/pkg/network"

const (
	BuildTransport    = network.TransportEthernet
	BuildEthernetKind = network.EthernetOpenETH
)
