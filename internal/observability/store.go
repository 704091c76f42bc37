package observability

import "sync"

type Trace struct {
	ID         string `json:"id"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Timestamp  int64  `json:"timestamp"`
	ClientIP   string `json:"client_ip,omitempty"`
	Country    string `json:"country,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ring keeps the newest limit entries in insertion order.
type ring[T any] struct {
	mu    sync.Mutex
	limit int
	items []T
}

func newRing[T any](limit int) *ring[T] {
	if limit <= 0 {
		limit = 1000
	}
	return &ring[T]{limit: limit, items: make([]T, 0, limit)}
}

func (r *ring[T]) add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	if len(r.items) > r.limit {
		r.items = append([]T{}, r.items[len(r.items)-r.limit:]...)
	}
}

func (r *ring[T]) list() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

type Store struct {
	traces *ring[Trace]
}

func NewStore(limit int) *Store {
	return &Store{traces: newRing[Trace](limit)}
}

func (s *Store) Add(trace Trace) { s.traces.add(trace) }

func (s *Store) List() []Trace { return s.traces.list() }

func (s *Store) Limit() int { return s.traces.limit }
