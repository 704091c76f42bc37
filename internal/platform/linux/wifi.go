//go:build linux

package linux

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"controller-go/pkg/network"
)

const scanSettle = 2 * time.Second

// Wifi drives a station interface through wpa_supplicant's control socket.
type Wifi struct {
	opts Options

	mu       sync.Mutex
	cfg      network.WifiStation
	networks []string
	napt     *naptState
}

func NewWifi(cfg network.WifiStation, opts Options) *Wifi {
	return &Wifi{cfg: cfg, opts: opts.withDefaults()}
}

func (w *Wifi) Name() string { return "wifi:" + w.cfg.Interface }

func (w *Wifi) Configure(_ context.Context, cfg network.InterfaceConfig) error {
	ws, ok := cfg.(network.WifiStation)
	if !ok {
		return fmt.Errorf("wifi driver: unexpected config %T", cfg)
	}
	if ws.Interface == "" || ws.SSID == "" {
		return errors.New("wifi driver: interface and ssid are required")
	}
	w.mu.Lock()
	w.cfg = ws
	w.mu.Unlock()
	return nil
}

func (w *Wifi) Start(ctx context.Context) error {
	cfg := w.config()
	if err := w.opts.SetLink(cfg.Interface, true); err != nil {
		return err
	}
	out, err := w.cli(ctx, "ping")
	if err != nil {
		return err
	}
	if out != "PONG" {
		return fmt.Errorf("wpa_supplicant not answering on %s: %q", cfg.Interface, out)
	}
	return nil
}

func (w *Wifi) Scan(ctx context.Context) ([]network.AccessPointInfo, error) {
	if err := w.cliOK(ctx, "scan"); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(scanSettle):
	}
	out, err := w.cli(ctx, "scan_results")
	if err != nil {
		return nil, err
	}
	return parseScanResults(out), nil
}

func (w *Wifi) Connect(ctx context.Context) error {
	cfg := w.config()
	id, err := w.addNetwork(ctx)
	if err != nil {
		return err
	}
	settings := [][2]string{{"ssid", ssidValue(cfg.SSID)}}
	if cfg.Password == "" {
		settings = append(settings, [2]string{"key_mgmt", "NONE"})
	} else {
		psk, err := pskValue(cfg.Password)
		if err != nil {
			return err
		}
		settings = append(settings, [2]string{"psk", psk})
	}
	if freq := channelFrequency(cfg.Channel); freq > 0 {
		settings = append(settings, [2]string{"scan_freq", strconv.Itoa(freq)})
	}
	if err := w.setNetwork(ctx, id, settings); err != nil {
		return err
	}
	if err := w.cliOK(ctx, "select_network", id); err != nil {
		return err
	}

	if ap := cfg.AccessPoint; ap != nil {
		apID, err := w.addNetwork(ctx)
		if err != nil {
			return err
		}
		err = w.setNetwork(ctx, apID, [][2]string{
			{"mode", "2"},
			{"ssid", ssidValue(ap.SSID)},
			{"frequency", strconv.Itoa(channelFrequency(ap.Channel))},
			{"key_mgmt", "NONE"},
		})
		if err != nil {
			return err
		}
		if err := w.cliOK(ctx, "enable_network", apID); err != nil {
			return err
		}
	}

	return pollUntil(ctx, w.opts.Poll, func() (bool, error) {
		out, err := w.cli(ctx, "status")
		if err != nil {
			return false, err
		}
		return statusField(out, "wpa_state") == "COMPLETED", nil
	})
}

func (w *Wifi) WaitLease(ctx context.Context) error {
	return pollUntil(ctx, w.opts.Poll, waitForLease(w.config().Interface, w.opts))
}

func (w *Wifi) Lease() (network.LeaseInfo, error) {
	return readLease(w.config().Interface, w.opts)
}

// EnableNAPT routes access point clients out through the station link.
func (w *Wifi) EnableNAPT(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.napt != nil {
		return nil
	}
	state, err := enableNAPT(ctx, w.opts, w.cfg.Interface)
	if err != nil {
		return err
	}
	w.napt = state
	return nil
}

func (w *Wifi) Stop(ctx context.Context) error {
	w.mu.Lock()
	ids := w.networks
	w.networks = nil
	routed := w.napt
	w.napt = nil
	w.mu.Unlock()

	var errs []error
	if routed != nil {
		if err := routed.disable(ctx, w.opts); err != nil {
			errs = append(errs, err)
		}
	}
	if len(ids) > 0 {
		if err := w.cliOK(ctx, "disconnect"); err != nil {
			errs = append(errs, err)
		}
	}
	for _, id := range ids {
		if err := w.cliOK(ctx, "remove_network", id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.opts.SetLink(w.config().Interface, false); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *Wifi) config() network.WifiStation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

func (w *Wifi) addNetwork(ctx context.Context) (string, error) {
	out, err := w.cli(ctx, "add_network")
	if err != nil {
		return "", err
	}
	if _, err := strconv.Atoi(out); err != nil {
		return "", fmt.Errorf("add_network: unexpected reply %q", out)
	}
	w.mu.Lock()
	w.networks = append(w.networks, out)
	w.mu.Unlock()
	return out, nil
}

func (w *Wifi) setNetwork(ctx context.Context, id string, settings [][2]string) error {
	for _, kv := range settings {
		if err := w.cliOK(ctx, "set_network", id, kv[0], kv[1]); err != nil {
			return fmt.Errorf("set_network %s: %w", kv[0], err)
		}
	}
	return nil
}

func (w *Wifi) cli(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-i", w.config().Interface}, args...)
	out, err := w.opts.Runner(ctx, "wpa_cli", full...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (w *Wifi) cliOK(ctx context.Context, args ...string) error {
	out, err := w.cli(ctx, args...)
	if err != nil {
		return err
	}
	if out != "OK" {
		return fmt.Errorf("wpa_cli %s: %q", args[0], out)
	}
	return nil
}

// ssidValue quotes a plain printable SSID and hex-encodes anything else;
// wpa_supplicant takes an unquoted value as hex bytes.
func ssidValue(ssid string) string {
	for i := 0; i < len(ssid); i++ {
		if c := ssid[i]; c < 0x20 || c > 0x7e || c == '"' || c == '\\' {
			return hex.EncodeToString([]byte(ssid))
		}
	}
	return `"` + ssid + `"`
}

// pskValue passes a 64 digit raw key unquoted and quotes a passphrase.
// wpa_supplicant ends a quoted passphrase at its last quote, so inner
// quotes and backslashes are taken literally.
func pskValue(psk string) (string, error) {
	if len(psk) == 64 {
		if _, err := hex.DecodeString(psk); err == nil {
			return psk, nil
		}
	}
	if len(psk) < 8 || len(psk) > 63 {
		return "", fmt.Errorf("wifi passphrase must be 8 to 63 characters, got %d", len(psk))
	}
	for i := 0; i < len(psk); i++ {
		if c := psk[i]; c < 0x20 || c > 0x7e {
			return "", errors.New("wifi passphrase must be printable ASCII")
		}
	}
	return `"` + psk + `"`, nil
}

// parseScanResults reads wpa_cli scan_results output:
// bssid / frequency / signal level / flags / ssid, tab separated.
func parseScanResults(out string) []network.AccessPointInfo {
	var aps []network.AccessPointInfo
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < 5 {
			continue
		}
		freq, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		signal, _ := strconv.Atoi(fields[2])
		aps = append(aps, network.AccessPointInfo{
			BSSID:    fields[0],
			SSID:     fields[4],
			Channel:  frequencyChannel(freq),
			SignalDB: signal,
		})
	}
	return aps
}

func statusField(out, key string) string {
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), key+"="); ok {
			return v
		}
	}
	return ""
}

func channelFrequency(ch uint8) int {
	switch {
	case ch == 0:
		return 0
	case ch == 14:
		return 2484
	case ch < 14:
		return 2407 + 5*int(ch)
	default:
		return 5000 + 5*int(ch)
	}
}

func frequencyChannel(freq int) uint8 {
	switch {
	case freq == 2484:
		return 14
	case freq >= 2412 && freq < 2484:
		return uint8((freq - 2407) / 5)
	case freq >= 5000 && freq <= 5980:
		return uint8((freq - 5000) / 5)
	default:
		return 0
	}
}
