//go:build linux

package linux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// naptState is the forwarding state the station link changed and must restore.
type naptState struct {
	iface   string
	forward string
}

func masqueradeArgs(op, iface string) []string {
	return []string{"-t", "nat", op, "POSTROUTING", "-o", iface, "-j", "MASQUERADE"}
}

func (o Options) ipForwardPath() string {
	return o.path("proc", "sys", "net", "ipv4", "ip_forward")
}

// enableNAPT turns on IPv4 forwarding and masquerades everything leaving
// iface. A failed rule insert puts the forwarding flag back.
func enableNAPT(ctx context.Context, o Options, iface string) (*naptState, error) {
	path := o.ipForwardPath()
	prev, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("napt: %w", err)
	}
	state := &naptState{iface: iface, forward: strings.TrimSpace(string(prev))}
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		return nil, fmt.Errorf("napt: enable forwarding: %w", err)
	}
	if _, err := o.Runner(ctx, "iptables", masqueradeArgs("-A", iface)...); err != nil {
		_ = os.WriteFile(path, []byte(state.forward+"\n"), 0o644)
		return nil, fmt.Errorf("napt: %w", err)
	}
	return state, nil
}

func (n *naptState) disable(ctx context.Context, o Options) error {
	var errs []error
	if _, err := o.Runner(ctx, "iptables", masqueradeArgs("-D", n.iface)...); err != nil {
		errs = append(errs, fmt.Errorf("napt: %w", err))
	}
	if n.forward != "1" {
		if err := os.WriteFile(o.ipForwardPath(), []byte(n.forward+"\n"), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("napt: restore forwarding: %w", err))
		}
	}
	return errors.Join(errs...)
}
