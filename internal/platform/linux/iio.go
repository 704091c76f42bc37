//go:build linux

package linux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ADC reads one channel of an industrial I/O voltage device in millivolts.
type ADC struct {
	name    string
	device  string
	channel int
	root    string
}

func NewADC(name, device string, channel int, opts Options) *ADC {
	opts = opts.withDefaults()
	return &ADC{
		name:    name,
		device:  device,
		channel: channel,
		root:    opts.path("sys", "bus", "iio", "devices", device),
	}
}

func (a *ADC) Name() string { return a.name }

func (a *ADC) Unit() string { return "mV" }

func (a *ADC) Read(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := readFloat(fmt.Sprintf("%s/in_voltage%d_raw", a.root, a.channel))
	if err != nil {
		return 0, err
	}
	scale, err := readFloat(fmt.Sprintf("%s/in_voltage%d_scale", a.root, a.channel))
	if errors.Is(err, os.ErrNotExist) {
		scale, err = readFloat(a.root + "/in_voltage_scale")
	}
	if err != nil {
		return 0, err
	}
	return raw * scale, nil
}

func readFloat(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
