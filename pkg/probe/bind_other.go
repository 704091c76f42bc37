//go:build !linux

package probe

import (
	"errors"
	"syscall"
)

var errNoInterface = errors.New("interface binding not supported on this platform")

func bindControl(iface string) func(network, address string, c syscall.RawConn) error {
	if iface == "" {
		return nil
	}
	return func(string, string, syscall.RawConn) error {
		return errNoInterface
	}
}
