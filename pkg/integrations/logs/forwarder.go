package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const defaultQueue = 256

// Forwarder ships log entries to a remote collector from a single worker.
// Entries are dropped when the queue is full so logging never blocks.
type Forwarder struct {
	url     string
	encode  func(map[string]any) ([]byte, error)
	client  *http.Client
	queue   chan map[string]any
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
	dropped uint64
	failed  uint64
}

func newForwarder(url string, encode func(map[string]any) ([]byte, error)) *Forwarder {
	f := &Forwarder{
		url:    url,
		encode: encode,
		client: &http.Client{Timeout: 3 * time.Second},
		queue:  make(chan map[string]any, defaultQueue),
		done:   make(chan struct{}),
	}
	go f.run()
	return f
}

// Hook enqueues an entry. It matches the logger hook signature. Entries
// arriving after Close are counted as dropped.
func (f *Forwarder) Hook(entry map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.dropped++
		return
	}
	select {
	case f.queue <- entry:
	default:
		f.dropped++
	}
}

// Close stops accepting entries and waits for the queue to drain or ctx to end.
func (f *Forwarder) Close(ctx context.Context) error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports entries dropped on a full queue and failed posts.
func (f *Forwarder) Stats() (dropped, failed uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped, f.failed
}

func (f *Forwarder) run() {
	defer close(f.done)
	for entry := range f.queue {
		if err := f.post(entry); err != nil {
			f.mu.Lock()
			f.failed++
			f.mu.Unlock()
		}
	}
}

func (f *Forwarder) post(entry map[string]any) error {
	body, err := f.encode(entry)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("log collector: status %d", resp.StatusCode)
	}
	return nil
}

func toJSON(entry map[string]any) string {
	b, err := json.Marshal(entry)
	if err != nil {
		return "{}"
	}
	return string(b)
}
