//go:build linux

package linux

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const procRoute = `Iface	Destination	Gateway 	Flags	RefCnt	Use	Metric	Mask		MTU	Window	IRTT
eth0	00000000	FE01A8C0	0003	0	0	100	00000000	0	0	0
wlan0	0004A8C0	00000000	0001	0	0	600	00FFFFFF	0	0	0
wlan0	00000000	0104A8C0	0003	0	0	600	00000000	0	0	0
`

func TestParseDefaultGateway(t *testing.T) {
	tests := []struct {
		iface string
		want  string
		err   bool
	}{
		{"wlan0", "192.168.4.1", false},
		{"eth0", "192.168.1.254", false},
		{"usb0", "", true},
	}
	for _, tc := range tests {
		gw, err := parseDefaultGateway(strings.NewReader(procRoute), tc.iface)
		if tc.err {
			if !errors.Is(err, errNoLease) {
				t.Fatalf("%s: expected errNoLease, got %v", tc.iface, err)
			}
			continue
		}
		if err != nil || gw.String() != tc.want {
			t.Fatalf("%s: got %v %v, want %s", tc.iface, gw, err, tc.want)
		}
	}
}

func TestParseNameservers(t *testing.T) {
	conf := "# generated\nsearch lan\nnameserver 192.168.4.1\nnameserver 1.1.1.1\nnameserver bogus\n"
	got := parseNameservers(strings.NewReader(conf))
	if len(got) != 2 || got[0].String() != "192.168.4.1" || got[1].String() != "1.1.1.1" {
		t.Fatalf("unexpected nameservers: %v", got)
	}
}

func writeFile(t *testing.T, root string, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func staticAddrs(cidr string) func(string) ([]net.Addr, error) {
	return func(string) ([]net.Addr, error) {
		if cidr == "" {
			return nil, nil
		}
		ip, ipn, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, err
		}
		ipn.IP = ip
		return []net.Addr{ipn}, nil
	}
}

func TestReadLease(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proc/net/route", procRoute)
	writeFile(t, root, "etc/resolv.conf", "nameserver 192.168.4.1\n")

	lease, err := readLease("wlan0", Options{Root: root, Addrs: staticAddrs("192.168.4.20/24")})
	if err != nil {
		t.Fatalf("read lease: %v", err)
	}
	if got := lease.String(); got != "ip=192.168.4.20 subnet=192.168.4.0/24 gateway=192.168.4.1" {
		t.Fatalf("unexpected lease %s", got)
	}
	if len(lease.DNS) != 1 {
		t.Fatalf("expected one dns server, got %v", lease.DNS)
	}
}

func TestReadLeaseWithoutAddress(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proc/net/route", procRoute)
	_, err := readLease("wlan0", Options{Root: root, Addrs: staticAddrs("")})
	if !errors.Is(err, errNoLease) {
		t.Fatalf("expected errNoLease, got %v", err)
	}
	done, err := waitForLease("wlan0", Options{Root: root, Addrs: staticAddrs("")})()
	if done || err != nil {
		t.Fatalf("expected lease wait to keep polling, got %v %v", done, err)
	}
}
