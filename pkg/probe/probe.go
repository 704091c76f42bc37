// Package probe checks that a freshly leased link can actually reach its
// gateway.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"controller-go/internal/logger"
)

var ErrUnreachableGateway = errors.New("unreachable gateway")

const (
	DefaultCount    = 5
	DefaultInterval = time.Second
	DefaultTimeout  = time.Second
)

// Result summarises one probe batch.
type Result struct {
	Target      string          `json:"target"`
	Transmitted int             `json:"transmitted"`
	Received    int             `json:"received"`
	RTTs        []time.Duration `json:"rtts_ns,omitempty"`
}

// Healthy reports whether every probe came back.
func (r Result) Healthy() bool {
	return r.Received == r.Transmitted
}

func (r Result) AvgRTT() time.Duration {
	if len(r.RTTs) == 0 {
		return 0
	}
	var total time.Duration
	for _, rtt := range r.RTTs {
		total += rtt
	}
	return total / time.Duration(len(r.RTTs))
}

// Pinger sends a single echo request and waits up to timeout for the reply.
type Pinger interface {
	Ping(ctx context.Context, target net.IP, seq int, timeout time.Duration) (time.Duration, error)
}

// Prober sends a fixed batch of echo requests. It keeps no state between
// calls and never retries.
type Prober struct {
	Pinger   Pinger
	Count    int
	Interval time.Duration
	Timeout  time.Duration
	Log      *logger.Logger
}

func (p *Prober) Probe(ctx context.Context, target net.IP) (Result, error) {
	count := p.Count
	if count <= 0 {
		count = DefaultCount
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	res := Result{Target: target.String()}
	if target == nil || target.IsUnspecified() {
		return res, fmt.Errorf("probe: invalid target %q", target)
	}
	if p.Log != nil {
		p.Log.Info("about to do some pings", map[string]any{"target": res.Target, "count": count})
	}

	for seq := 0; seq < count; seq++ {
		if seq > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(interval):
			}
		}
		res.Transmitted++
		rtt, err := p.Pinger.Ping(ctx, target, seq, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if p.Log != nil {
				p.Log.Debug("ping lost", map[string]any{"target": res.Target, "seq": seq, "err": err.Error()})
			}
			continue
		}
		res.Received++
		res.RTTs = append(res.RTTs, rtt)
	}

	if !res.Healthy() {
		return res, fmt.Errorf("%w: pinging %s resulted in timeouts (%d/%d received)",
			ErrUnreachableGateway, res.Target, res.Received, res.Transmitted)
	}
	if p.Log != nil {
		p.Log.Info("pinging done", map[string]any{"target": res.Target, "avg_rtt_ms": res.AvgRTT().Milliseconds()})
	}
	return res, nil
}
