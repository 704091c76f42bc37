package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"controller-go/api"
	"controller-go/internal/config"
	"controller-go/internal/logger"
	"controller-go/internal/metrics"
	"controller-go/internal/observability"
	"controller-go/internal/platform"
	"controller-go/pkg/critsec"
	"controller-go/pkg/enrich"
	"controller-go/pkg/integrations/logs"
	"controller-go/pkg/network"
	"controller-go/pkg/probe"
	"controller-go/pkg/sensor"
	"controller-go/pkg/shutdown"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bring up the network, serve HTTP and sample sensors until shutdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg, hostDeps())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = runCmd.MarkFlagRequired("config")
}

// deps are the host facing pieces run needs; tests swap them for fakes.
type deps struct {
	Factory  network.Factory
	Pinger   func(iface string) probe.Pinger
	Sensors  func(config.SensorConfig) ([]sensor.Reader, error)
	Registry prometheus.Registerer
	Out      io.Writer
	// Started is told the API address once the server is listening.
	Started func(addr net.Addr)
}

func hostDeps() deps {
	return deps{
		Factory:  platform.NewDriver,
		Pinger:   func(iface string) probe.Pinger { return probe.NewICMPPinger(iface) },
		Sensors:  platform.NewSensors,
		Registry: prometheus.DefaultRegisterer,
		Out:      os.Stdout,
	}
}

// run returns once shutdown has completed. ctx ending is the signal trigger;
// everything after bring-up runs on a context that outlives it so teardown
// is never cut short by the signal itself.
func run(ctx context.Context, cfg *config.Config, d deps) error {
	gin.SetMode(gin.ReleaseMode)

	log := logger.NewWithWriter(cfg.Logging.Level, d.Out)
	forwarders := []*logs.Forwarder{
		logs.NewLoki(cfg.Logging.LokiURL, cfg.Device.Name),
		logs.NewElastic(cfg.Logging.ElasticURL),
	}
	for _, f := range forwarders {
		if f != nil {
			log.AddHook(f.Hook)
		}
	}
	defer closeForwarders(forwarders)
	log = log.With(map[string]any{"device": cfg.Device.Name})

	svcCtx, cancelSvc := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSvc()

	if cfg.Diagnostics.CriticalSectionSelftest {
		criticalSectionSelftest(ctx, log, time.Duration(cfg.Diagnostics.SelftestHoldMs)*time.Millisecond)
	}

	m := metrics.NewWithRegistry(d.Registry)
	if cfg.Metrics.Address != "" {
		go func() {
			if err := metrics.StartServer(svcCtx, cfg.Metrics, m.Handler()); err != nil {
				log.Error("metrics server error", map[string]any{"err": err.Error()})
			}
		}()
	}
	metrics.StartRemoteWrite(svcCtx, cfg.Metrics.Export, cfg.Device.Name, m, log)

	ifc, err := platform.InterfaceConfigFor(cfg.Network)
	if err != nil {
		return err
	}
	establisher := &network.Establisher{
		Factory:      d.Factory,
		LeaseTimeout: time.Duration(cfg.Network.LeaseTimeoutSeconds) * time.Second,
		Log:          log,
	}
	link, err := establisher.BringUp(ctx, ifc)
	if err != nil {
		log.Error("network bring-up failed", map[string]any{"err": err.Error()})
		return err
	}
	m.SetBringUp(link.Took)
	m.SetLinkUp(true)

	result, err := probeGateway(ctx, cfg.Probe, link, d.Pinger(link.Config.InterfaceName()), log)
	m.ObserveProbe(result.Transmitted, result.Received)
	if err != nil {
		if cfg.Probe.Policy != config.ProbePolicyWarn {
			log.Error("gateway unreachable", map[string]any{"err": err.Error()})
			stopLink(link, cfg, log)
			return err
		}
		log.Warn("gateway unreachable, continuing", map[string]any{"err": err.Error()})
	}

	readers, err := d.Sensors(cfg.Sensor)
	if err != nil {
		stopLink(link, cfg, log)
		return fmt.Errorf("sensors: %w", err)
	}
	poller := sensor.NewPoller(readers, time.Duration(cfg.Sensor.ReadTimeoutMs)*time.Millisecond, log, m)

	geo, closeGeo := openGeo(cfg.Observability.GeoIPDB, log)
	defer closeGeo()

	sig := shutdown.NewSignal()
	alerts := observability.NewAlertStore(cfg.Observability.AlertsLimit)
	handlers := &api.Handlers{
		Device:  cfg.Device.Name,
		Link:    link,
		Probe:   &result,
		Poller:  poller,
		Signal:  sig,
		Traces:  observability.NewStore(cfg.Observability.TracesLimit),
		Alerts:  alerts,
		Metrics: m,
	}
	router, err := api.NewRouter(api.RouterConfig{
		API:      cfg.API,
		Security: cfg.Security,
		Geo:      geo,
		Log:      log,
	}, handlers)
	if err != nil {
		stopLink(link, cfg, log)
		return err
	}
	server := api.NewServer(cfg.API, router, log)
	if err := server.Start(); err != nil {
		stopLink(link, cfg, log)
		return err
	}
	if d.Started != nil {
		d.Started(server.Addr())
	}

	go func() {
		select {
		case <-ctx.Done():
			sig.Set(shutdown.Request{Source: "signal", Readings: poller.Reads()})
		case <-sig.Done():
		}
	}()

	alertCfg := observability.AlertsConfig{
		SensorErrorsThreshold:  cfg.Observability.Alerts.SensorErrorsThreshold,
		RequestErrorsThreshold: cfg.Observability.Alerts.RequestErrorsThreshold,
	}
	prev := m.Snapshot()
	coordinator := &shutdown.Coordinator{
		Signal:   sig,
		Interval: time.Duration(cfg.Sensor.IntervalMs) * time.Millisecond,
		Log:      log,
		Poll: func(ctx context.Context) {
			poller.Poll(ctx)
			curr := m.Snapshot()
			for _, a := range observability.EvaluateAlerts(prev, curr, alertCfg) {
				alerts.Add(a)
				log.Warn("alert", map[string]any{"type": string(a.Type), "value": a.Value, "threshold": a.Threshold})
			}
			prev = curr
		},
	}
	req := coordinator.Run(svcCtx)
	log.Info("got shutdown request", map[string]any{"source": req.Source, "readings": req.Readings})

	shutdown.Countdown(svcCtx, log, cfg.Shutdown.CountdownSeconds)

	stopCtx, cancelStop := context.WithTimeout(svcCtx, stopTimeout(cfg))
	defer cancelStop()
	err = shutdown.NewTeardown(log,
		shutdown.Step{Name: "httpd", Stop: server.Stop},
		shutdown.Step{Name: link.Name(), Stop: link.Stop},
	).Run(stopCtx)
	m.SetLinkUp(false)
	if err != nil {
		return err
	}
	log.Info("shutdown complete", nil)
	return nil
}

func probeGateway(ctx context.Context, cfg config.ProbeConfig, link *network.Link, pinger probe.Pinger, log *logger.Logger) (probe.Result, error) {
	target := link.Lease.Gateway
	if cfg.Target != "" {
		target = net.ParseIP(cfg.Target)
	}
	prober := &probe.Prober{
		Pinger:   pinger,
		Count:    cfg.Count,
		Interval: time.Duration(cfg.IntervalMs) * time.Millisecond,
		Timeout:  time.Duration(cfg.TimeoutMs) * time.Millisecond,
		Log:      log,
	}
	return prober.Probe(ctx, target)
}

func stopLink(link *network.Link, cfg *config.Config, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout(cfg))
	defer cancel()
	if err := link.Stop(ctx); err != nil {
		log.Warn("link stop failed", map[string]any{"err": err.Error()})
	}
}

func stopTimeout(cfg *config.Config) time.Duration {
	if cfg.Shutdown.StopTimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.Shutdown.StopTimeoutMs) * time.Millisecond
}

func openGeo(path string, log *logger.Logger) (*enrich.Service, func()) {
	if path == "" {
		return nil, func() {}
	}
	db, err := enrich.OpenMMDB(path)
	if err != nil {
		log.Warn("geoip database unavailable", map[string]any{"path": path, "err": err.Error()})
		return nil, func() {}
	}
	return enrich.NewService(db, 0), func() { _ = db.Close() }
}

func closeForwarders(forwarders []*logs.Forwarder) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, f := range forwarders {
		if f != nil {
			_ = f.Close(ctx)
		}
	}
}

// criticalSectionSelftest holds a section while a second goroutine blocks on
// it, then releases and waits for the goroutine to get through.
func criticalSectionSelftest(ctx context.Context, log *logger.Logger, hold time.Duration) {
	var cs critsec.Section
	guard := cs.Enter()
	log.Info("entered critical section", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("worker waiting for critical section", nil)
		cs.Do(func() {
			log.Info("worker entered critical section", nil)
		})
	}()

	select {
	case <-ctx.Done():
	case <-time.After(hold):
	}
	log.Info("leaving critical section", nil)
	guard.Exit()
	<-done
}
