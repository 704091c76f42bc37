package shutdown

import (
	"context"
	"time"

	"controller-go/internal/logger"
)

const DefaultInterval = time.Second

// Coordinator runs the wait loop on the calling goroutine until the Signal
// holds a request, running one Poll cycle on every timeout wake.
type Coordinator struct {
	Signal   *Signal
	Interval time.Duration
	Poll     func(ctx context.Context)
	Log      *logger.Logger
}

func (c *Coordinator) Run(ctx context.Context) Request {
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	for {
		req, ok := c.Signal.WaitTimeout(interval)
		if ok {
			if c.Log != nil {
				c.Log.Info("shutdown requested", map[string]any{"source": req.Source, "readings": req.Readings})
			}
			return req
		}
		if c.Poll != nil {
			c.Poll(ctx)
		}
	}
}

// Countdown logs the remaining seconds once per second before teardown.
func Countdown(ctx context.Context, log *logger.Logger, seconds int) {
	for s := 0; s < seconds; s++ {
		if log != nil {
			log.Info("shutting down", map[string]any{"in_secs": seconds - s})
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
