package shutdown

import (
	"time"

	"controller-go/pkg/critsec"
)

// Request is the payload carried once shutdown has been asked for.
type Request struct {
	Source   string    `json:"source"`
	Readings uint64    `json:"readings"`
	At       time.Time `json:"at"`
}

// Signal is the shared shutdown cell: absent means keep running, present
// means shutdown was requested. It only ever moves from absent to present.
// The zero value is ready to use.
type Signal struct {
	cs      critsec.Section
	req     Request
	set     bool
	changed chan struct{}
}

func NewSignal() *Signal {
	return &Signal{changed: make(chan struct{})}
}

// Set records req and wakes every waiter. Only the first call wins; later
// calls return false and leave the stored request untouched.
func (s *Signal) Set(req Request) bool {
	g := s.cs.Enter()
	defer g.Exit()
	if s.set {
		return false
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}
	s.req = req
	s.set = true
	close(s.changedLocked())
	return true
}

// changedLocked returns the notify channel, creating it on first use.
// Callers hold s.cs.
func (s *Signal) changedLocked() chan struct{} {
	if s.changed == nil {
		s.changed = make(chan struct{})
	}
	return s.changed
}

func (s *Signal) Get() (Request, bool) {
	g := s.cs.Enter()
	defer g.Exit()
	return s.req, s.set
}

// WaitTimeout checks the cell under the lock, releases it while waiting for
// a notification or for d to elapse, then re-acquires and re-checks.
func (s *Signal) WaitTimeout(d time.Duration) (Request, bool) {
	g := s.cs.Enter()
	if s.set {
		req := s.req
		g.Exit()
		return req, true
	}
	changed := s.changedLocked()
	g.Exit()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-changed:
	case <-timer.C:
	}

	g = s.cs.Enter()
	defer g.Exit()
	return s.req, s.set
}

// Done is closed once a request is present.
func (s *Signal) Done() <-chan struct{} {
	g := s.cs.Enter()
	defer g.Exit()
	return s.changedLocked()
}
