//go:build linux

package linux

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner executes a system tool and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Options replaces the pieces of the host a driver touches. Zero values use
// the real system.
type Options struct {
	Runner Runner
	// Root prefixes /proc, /sys and /etc lookups.
	Root    string
	Addrs   func(iface string) ([]net.Addr, error)
	SetLink func(iface string, up bool) error
	Poll    time.Duration
}

func (o Options) withDefaults() Options {
	if o.Runner == nil {
		o.Runner = execRunner
	}
	if o.Root == "" {
		o.Root = "/"
	}
	if o.Addrs == nil {
		o.Addrs = interfaceAddrs
	}
	if o.SetLink == nil {
		o.SetLink = setLinkUp
	}
	if o.Poll <= 0 {
		o.Poll = 250 * time.Millisecond
	}
	return o
}

func (o Options) path(parts ...string) string {
	return filepath.Join(append([]string{o.Root}, parts...)...)
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}

// pollUntil calls check every interval until it reports done or ctx ends.
func pollUntil(ctx context.Context, interval time.Duration, check func() (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
