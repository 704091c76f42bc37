package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const protocolICMP = 1

// ICMPPinger sends ICMP echo requests over a raw socket, optionally pinned
// to one interface.
type ICMPPinger struct {
	Interface string
	id        int
}

func NewICMPPinger(iface string) *ICMPPinger {
	return &ICMPPinger{Interface: iface, id: os.Getpid() & 0xffff}
}

func (p *ICMPPinger) Ping(ctx context.Context, target net.IP, seq int, timeout time.Duration) (time.Duration, error) {
	dst := target.To4()
	if dst == nil {
		return 0, fmt.Errorf("icmp: %s is not an ipv4 address", target)
	}
	lc := net.ListenConfig{Control: bindControl(p.Interface)}
	pc, err := lc.ListenPacket(ctx, "ip4:icmp", "0.0.0.0")
	if err != nil {
		return 0, fmt.Errorf("icmp listen: %w", err)
	}
	defer pc.Close()

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq & 0xffff, Data: []byte("controller-probe")},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("icmp marshal: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := pc.SetDeadline(deadline); err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := pc.WriteTo(wb, &net.IPAddr{IP: dst}); err != nil {
		return 0, fmt.Errorf("icmp write: %w", err)
	}

	rb := make([]byte, 1500)
	for {
		n, peer, err := pc.ReadFrom(rb)
		if err != nil {
			return 0, fmt.Errorf("icmp read: %w", err)
		}
		if ip, ok := peer.(*net.IPAddr); !ok || !ip.IP.Equal(dst) {
			continue
		}
		reply, err := icmp.ParseMessage(protocolICMP, rb[:n])
		if err != nil {
			continue
		}
		if reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.ID != p.id || echo.Seq != seq&0xffff {
			continue
		}
		return time.Since(start), nil
	}
}
