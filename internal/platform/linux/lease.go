//go:build linux

package linux

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"controller-go/pkg/network"
)

var errNoLease = errors.New("no lease yet")

// readLease assembles the lease from the interface address, the kernel
// routing table and resolv.conf.
func readLease(iface string, opts Options) (network.LeaseInfo, error) {
	addrs, err := opts.Addrs(iface)
	if err != nil {
		return network.LeaseInfo{}, err
	}
	var lease network.LeaseInfo
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.To4() == nil || ipn.IP.IsLinkLocalUnicast() {
			continue
		}
		lease.Address = ipn.IP.To4()
		lease.Subnet = net.IPNet{IP: ipn.IP.Mask(ipn.Mask).To4(), Mask: ipn.Mask}
		break
	}
	if lease.Address == nil {
		return network.LeaseInfo{}, errNoLease
	}

	routes, err := os.Open(opts.path("proc", "net", "route"))
	if err != nil {
		return network.LeaseInfo{}, err
	}
	defer routes.Close()
	gw, err := parseDefaultGateway(routes, iface)
	if err != nil {
		return network.LeaseInfo{}, err
	}
	lease.Gateway = gw

	if resolv, err := os.Open(opts.path("etc", "resolv.conf")); err == nil {
		lease.DNS = parseNameservers(resolv)
		resolv.Close()
	}
	return lease, nil
}

// parseDefaultGateway finds the default route for iface in /proc/net/route
// format, where addresses are little-endian hex.
func parseDefaultGateway(r io.Reader, iface string) (net.IP, error) {
	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 8 || fields[0] != iface || fields[1] != "00000000" {
			continue
		}
		raw, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("route gateway %q: %w", fields[2], err)
		}
		ip := make(net.IP, net.IPv4len)
		binary.LittleEndian.PutUint32(ip, uint32(raw))
		return ip, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, errNoLease
}

func parseNameservers(r io.Reader) []net.IP {
	var out []net.IP
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		if ip := net.ParseIP(fields[1]); ip != nil {
			out = append(out, ip)
		}
	}
	return out
}

func waitForLease(iface string, opts Options) func() (bool, error) {
	return func() (bool, error) {
		_, err := readLease(iface, opts)
		if errors.Is(err, errNoLease) || errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}
}
