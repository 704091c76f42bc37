package critsec

import "sync"

// Section is a mutual-exclusion region. Only one goroutine holds it at a
// time; a second Enter blocks until the holder exits.
type Section struct {
	mu sync.Mutex
}

// Guard is the scoped hold on a Section returned by Enter.
type Guard struct {
	s    *Section
	once sync.Once
}

func (s *Section) Enter() *Guard {
	s.mu.Lock()
	return &Guard{s: s}
}

// TryEnter returns nil when the section is already held.
func (s *Section) TryEnter() *Guard {
	if !s.mu.TryLock() {
		return nil
	}
	return &Guard{s: s}
}

// Exit releases the section. Calling it more than once is a no-op.
func (g *Guard) Exit() {
	if g == nil {
		return
	}
	g.once.Do(g.s.mu.Unlock)
}

func (s *Section) Do(fn func()) {
	g := s.Enter()
	defer g.Exit()
	fn()
}
