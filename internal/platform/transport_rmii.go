//go:build eth_rmii

package platform

import "controller-go/pkg/network"

const (
	BuildTransport    = network.TransportEthernet
	BuildEthernetKind = network.EthernetRMII
)
