//go:build linux

package linux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"controller-go/pkg/network"
)

// Ethernet drives a wired interface. Bus setup for RMII and SPI PHYs is
// done by the kernel driver; here the link is raised and carrier awaited
// as part of the lease wait.
type Ethernet struct {
	opts Options

	mu  sync.Mutex
	cfg network.Ethernet
}

func NewEthernet(cfg network.Ethernet, opts Options) *Ethernet {
	return &Ethernet{cfg: cfg, opts: opts.withDefaults()}
}

func (e *Ethernet) Name() string { return "eth:" + e.config().Interface }

func (e *Ethernet) Configure(ctx context.Context, cfg network.InterfaceConfig) error {
	eth, ok := cfg.(network.Ethernet)
	if !ok {
		return fmt.Errorf("ethernet driver: unexpected config %T", cfg)
	}
	if eth.Interface == "" {
		return errors.New("ethernet driver: interface is required")
	}
	if _, err := os.Stat(e.opts.path("sys", "class", "net", eth.Interface)); err != nil {
		return fmt.Errorf("ethernet driver: %w", err)
	}
	if len(eth.MAC) > 0 {
		if _, err := e.opts.Runner(ctx, "ip", "link", "set", "dev", eth.Interface, "address", eth.MAC.String()); err != nil {
			return err
		}
	}
	e.mu.Lock()
	e.cfg = eth
	e.mu.Unlock()
	return nil
}

func (e *Ethernet) Start(context.Context) error {
	return e.opts.SetLink(e.config().Interface, true)
}

// Connect is a no-op; a raised wired link associates by itself.
func (e *Ethernet) Connect(context.Context) error {
	return nil
}

// WaitLease waits for carrier and then for an address under the same ctx,
// so a lease deadline also bounds an unplugged cable.
func (e *Ethernet) WaitLease(ctx context.Context) error {
	iface := e.config().Interface
	if err := pollUntil(ctx, e.opts.Poll, e.carrier(iface)); err != nil {
		return fmt.Errorf("no carrier on %s: %w", iface, err)
	}
	return pollUntil(ctx, e.opts.Poll, waitForLease(iface, e.opts))
}

func (e *Ethernet) carrier(iface string) func() (bool, error) {
	path := e.opts.path("sys", "class", "net", iface, "carrier")
	return func() (bool, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			// unreadable while the link is still coming up
			return false, nil
		}
		return strings.TrimSpace(string(data)) == "1", nil
	}
}

func (e *Ethernet) Lease() (network.LeaseInfo, error) {
	return readLease(e.config().Interface, e.opts)
}

func (e *Ethernet) Stop(context.Context) error {
	return e.opts.SetLink(e.config().Interface, false)
}

func (e *Ethernet) config() network.Ethernet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}
