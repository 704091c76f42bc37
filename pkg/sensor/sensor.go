package sensor

import (
	"context"
	"sort"
	"sync"
	"time"

	"controller-go/internal/logger"
)

// Reader is a single blocking sensor read.
type Reader interface {
	Name() string
	Unit() string
	Read(ctx context.Context) (float64, error)
}

type Reading struct {
	Sensor string    `json:"sensor"`
	Value  float64   `json:"value"`
	Unit   string    `json:"unit"`
	At     time.Time `json:"at"`
}

// Recorder receives every reading and read failure, typically metrics.
type Recorder interface {
	ObserveReading(sensor string, value float64)
	IncSensorError(sensor string)
	IncPollCycles()
}

// Poller reads every configured sensor once per Poll call. It never fails:
// read errors are logged and counted so the caller's loop keeps going.
type Poller struct {
	readers     []Reader
	readTimeout time.Duration
	log         *logger.Logger
	rec         Recorder

	mu     sync.Mutex
	latest map[string]Reading
	cycles uint64
	reads  uint64
}

func NewPoller(readers []Reader, readTimeout time.Duration, log *logger.Logger, rec Recorder) *Poller {
	return &Poller{
		readers:     readers,
		readTimeout: readTimeout,
		log:         log,
		rec:         rec,
		latest:      make(map[string]Reading, len(readers)),
	}
}

func (p *Poller) Poll(ctx context.Context) {
	for _, r := range p.readers {
		p.readOne(ctx, r)
	}
	p.mu.Lock()
	p.cycles++
	p.mu.Unlock()
	if p.rec != nil {
		p.rec.IncPollCycles()
	}
}

func (p *Poller) readOne(ctx context.Context, r Reader) {
	readCtx := ctx
	if p.readTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, p.readTimeout)
		defer cancel()
	}
	value, err := r.Read(readCtx)
	if err != nil {
		if p.log != nil {
			p.log.Warn("sensor read failed", map[string]any{"sensor": r.Name(), "err": err.Error()})
		}
		if p.rec != nil {
			p.rec.IncSensorError(r.Name())
		}
		return
	}
	reading := Reading{Sensor: r.Name(), Value: value, Unit: r.Unit(), At: time.Now()}
	p.mu.Lock()
	p.latest[r.Name()] = reading
	p.reads++
	p.mu.Unlock()
	if p.log != nil {
		p.log.Info(r.Name()+" sensor reading", map[string]any{"value": value, "unit": r.Unit()})
	}
	if p.rec != nil {
		p.rec.ObserveReading(r.Name(), value)
	}
}

// Latest returns the most recent successful reading per sensor, sorted by name.
func (p *Poller) Latest() []Reading {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Reading, 0, len(p.latest))
	for _, r := range p.latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	return out
}

// Cycles is the number of completed Poll calls.
func (p *Poller) Cycles() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycles
}

// Reads is the number of successful reads across all sensors.
func (p *Poller) Reads() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}
