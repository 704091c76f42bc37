//go:build linux

package linux

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"controller-go/pkg/network"
)

func naptWifi(t *testing.T, root string, f *fakeWPA, iptables *[]string, iptablesErr error) *Wifi {
	t.Helper()
	return NewWifi(network.WifiStation{Interface: "wlan0", SSID: "aptest"}, Options{
		Root: root,
		Poll: time.Millisecond,
		Runner: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			if name == "iptables" {
				*iptables = append(*iptables, strings.Join(args, " "))
				return nil, iptablesErr
			}
			return f.run(ctx, name, args...)
		},
		SetLink: func(string, bool) error { return nil },
	})
}

func readForward(t *testing.T, root string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "proc/sys/net/ipv4/ip_forward"))
	if err != nil {
		t.Fatalf("read ip_forward: %v", err)
	}
	return strings.TrimSpace(string(data))
}

func TestWifiNAPTEnableAndStop(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proc/sys/net/ipv4/ip_forward", "0\n")
	var iptables []string
	w := naptWifi(t, root, &fakeWPA{replies: map[string]string{}}, &iptables, nil)
	ctx := context.Background()

	if err := w.EnableNAPT(ctx); err != nil {
		t.Fatalf("enable napt: %v", err)
	}
	if err := w.EnableNAPT(ctx); err != nil {
		t.Fatalf("second enable: %v", err)
	}
	if readForward(t, root) != "1" {
		t.Fatalf("expected forwarding on")
	}
	if len(iptables) != 1 || iptables[0] != "-t nat -A POSTROUTING -o wlan0 -j MASQUERADE" {
		t.Fatalf("unexpected iptables calls %v", iptables)
	}

	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(iptables) != 2 || iptables[1] != "-t nat -D POSTROUTING -o wlan0 -j MASQUERADE" {
		t.Fatalf("expected masquerade rule removed, got %v", iptables)
	}
	if readForward(t, root) != "0" {
		t.Fatalf("expected forwarding restored")
	}
}

func TestWifiNAPTKeepsForwardingThatWasOn(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proc/sys/net/ipv4/ip_forward", "1\n")
	var iptables []string
	w := naptWifi(t, root, &fakeWPA{replies: map[string]string{}}, &iptables, nil)

	if err := w.EnableNAPT(context.Background()); err != nil {
		t.Fatalf("enable napt: %v", err)
	}
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if readForward(t, root) != "1" {
		t.Fatalf("forwarding enabled before start must stay on")
	}
}

func TestWifiNAPTRuleFailureRestoresForwarding(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proc/sys/net/ipv4/ip_forward", "0\n")
	var iptables []string
	w := naptWifi(t, root, &fakeWPA{replies: map[string]string{}}, &iptables, errors.New("no nat table"))

	if err := w.EnableNAPT(context.Background()); err == nil {
		t.Fatalf("expected enable failure")
	}
	if readForward(t, root) != "0" {
		t.Fatalf("expected forwarding restored after failure")
	}
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(iptables) != 1 {
		t.Fatalf("stop must not remove a rule that was never added: %v", iptables)
	}
}

func TestWifiNAPTMissingProcfs(t *testing.T) {
	var iptables []string
	w := naptWifi(t, t.TempDir(), &fakeWPA{replies: map[string]string{}}, &iptables, nil)
	if err := w.EnableNAPT(context.Background()); err == nil {
		t.Fatalf("expected error without ip_forward")
	}
	if len(iptables) != 0 {
		t.Fatalf("unexpected iptables calls %v", iptables)
	}
}
