package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"controller-go/internal/logger"
)

const defaultSoftAPChannel = 1

// Link is an interface that finished bring-up and holds a lease.
type Link struct {
	Driver Driver
	Config InterfaceConfig
	Lease  LeaseInfo
	Took   time.Duration
}

func (l *Link) Name() string {
	return string(l.Config.Transport())
}

// Stop releases the interface.
func (l *Link) Stop(ctx context.Context) error {
	return l.Driver.Stop(ctx)
}

// Establisher brings a single interface from unconfigured to leased. It
// never retries: the first failing phase ends bring-up.
type Establisher struct {
	Factory Factory
	// LeaseTimeout bounds WaitLease. Zero waits for as long as ctx allows.
	LeaseTimeout time.Duration
	Log          *logger.Logger
}

func (e *Establisher) BringUp(ctx context.Context, cfg InterfaceConfig) (*Link, error) {
	if cfg == nil {
		return nil, hardwareFault("construct", errors.New("no interface configuration"))
	}
	start := time.Now()
	log := e.Log
	if log == nil {
		log = logger.NewWithWriter("error", nil)
	}
	log = log.With(map[string]any{"transport": string(cfg.Transport()), "interface": cfg.InterfaceName()})

	if eth, ok := cfg.(Ethernet); ok {
		if err := eth.Validate(); err != nil {
			return nil, hardwareFault("construct", err)
		}
	}
	driver, err := e.Factory(cfg)
	if err != nil {
		return nil, hardwareFault("construct", err)
	}
	log.Info("driver created", map[string]any{"driver": driver.Name()})

	if err := driver.Configure(ctx, cfg); err != nil {
		return nil, hardwareFault("configure", err)
	}

	log.Info("starting", nil)
	if err := driver.Start(ctx); err != nil {
		return nil, linkFault("start", err)
	}

	if station, ok := cfg.(WifiStation); ok {
		final := e.discoverChannel(ctx, driver, station, log)
		if err := driver.Configure(ctx, final); err != nil {
			stopQuietly(driver)
			return nil, hardwareFault("configure", err)
		}
		cfg = final
	}

	log.Info("connecting", nil)
	if err := driver.Connect(ctx); err != nil {
		stopQuietly(driver)
		return nil, linkFault("connect", err)
	}

	log.Info("waiting for lease", nil)
	if err := e.waitLease(ctx, driver); err != nil {
		stopQuietly(driver)
		return nil, err
	}

	lease, err := driver.Lease()
	if err != nil {
		stopQuietly(driver)
		return nil, linkFault("lease", err)
	}
	log.Info("lease acquired", lease.Fields())

	if station, ok := cfg.(WifiStation); ok && station.AccessPoint != nil && station.AccessPoint.NAPT {
		if err := enableNAPT(ctx, driver); err != nil {
			stopQuietly(driver)
			return nil, err
		}
		log.Info("napt enabled", map[string]any{"ap_ssid": station.AccessPoint.SSID})
	}
	return &Link{Driver: driver, Config: cfg, Lease: lease, Took: time.Since(start)}, nil
}

func enableNAPT(ctx context.Context, driver Driver) error {
	router, ok := driver.(NAPTRouter)
	if !ok {
		return hardwareFault("napt", ErrNoNAPT)
	}
	if err := router.EnableNAPT(ctx); err != nil {
		return hardwareFault("napt", err)
	}
	return nil
}

func (e *Establisher) waitLease(ctx context.Context, driver Driver) error {
	if e.LeaseTimeout <= 0 {
		if err := driver.WaitLease(ctx); err != nil {
			return linkFault("lease", err)
		}
		return nil
	}
	leaseCtx, cancel := context.WithTimeout(ctx, e.LeaseTimeout)
	defer cancel()
	err := driver.WaitLease(leaseCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(leaseCtx.Err(), context.DeadlineExceeded) {
		return linkFault("lease", fmt.Errorf("%w after %s", ErrLeaseTimeout, e.LeaseTimeout))
	}
	return linkFault("lease", err)
}

// discoverChannel scans for the configured network to learn its channel.
// A miss or a scan error leaves the channel unspecified.
func (e *Establisher) discoverChannel(ctx context.Context, driver Driver, w WifiStation, log *logger.Logger) WifiStation {
	scanner, ok := driver.(Scanner)
	if ok && w.Channel == 0 {
		log.Info("scanning", nil)
		aps, err := scanner.Scan(ctx)
		if err != nil {
			log.Warn("scan failed", map[string]any{"err": err.Error()})
		}
		if ch, found := findChannel(aps, w.SSID); found {
			log.Info("found configured access point", map[string]any{"ssid": w.SSID, "channel": ch})
			w.Channel = ch
		} else {
			log.Info("configured access point not found, using unknown channel", map[string]any{"ssid": w.SSID})
		}
	}
	if w.AccessPoint != nil {
		ap := *w.AccessPoint
		ap.Channel = w.Channel
		if ap.Channel == 0 {
			ap.Channel = defaultSoftAPChannel
		}
		w.AccessPoint = &ap
	}
	return w
}

func findChannel(aps []AccessPointInfo, ssid string) (uint8, bool) {
	for _, ap := range aps {
		if ap.SSID == ssid && ap.Channel != 0 {
			return ap.Channel, true
		}
	}
	return 0, false
}

func stopQuietly(driver Driver) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = driver.Stop(ctx)
}
