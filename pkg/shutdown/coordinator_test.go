package shutdown

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestCoordinatorPollsEachTickUntilSignalled(t *testing.T) {
	s := NewSignal()
	var polls atomic.Int32
	c := &Coordinator{
		Signal:   s,
		Interval: 10 * time.Millisecond,
		Poll: func(context.Context) {
			if polls.Add(1) == 5 {
				s.Set(Request{Source: "test", Readings: 5})
			}
		},
	}

	done := make(chan Request, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case req := <-done:
		if req.Readings != 5 || req.Source != "test" {
			t.Fatalf("unexpected request: %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("coordinator did not exit")
	}
	if got := polls.Load(); got != 5 {
		t.Fatalf("expected 5 poll cycles, got %d", got)
	}
}

func TestCoordinatorReturnsImmediatelyWhenAlreadySet(t *testing.T) {
	s := NewSignal()
	s.Set(Request{Source: "early"})
	polled := false
	c := &Coordinator{Signal: s, Interval: time.Hour, Poll: func(context.Context) { polled = true }}

	req := c.Run(context.Background())
	if req.Source != "early" {
		t.Fatalf("unexpected source %q", req.Source)
	}
	if polled {
		t.Fatalf("expected no poll when signal already present")
	}
}

func TestCoordinatorExternalSetDoesNotPoll(t *testing.T) {
	s := NewSignal()
	var polls atomic.Int32
	c := &Coordinator{Signal: s, Interval: time.Hour, Poll: func(context.Context) { polls.Add(1) }}

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Set(Request{Source: "signal"})
	}()
	req := c.Run(context.Background())
	if req.Source != "signal" {
		t.Fatalf("unexpected source %q", req.Source)
	}
	if polls.Load() != 0 {
		t.Fatalf("expected notification wake to skip polling")
	}
}

func TestTeardownRunsInOrder(t *testing.T) {
	var events []string
	td := NewTeardown(nil,
		Step{Name: "httpd", Stop: func(context.Context) error {
			events = append(events, "httpd")
			return nil
		}},
		Step{Name: "wifi", Stop: func(context.Context) error {
			events = append(events, "wifi")
			return nil
		}},
	)
	if err := td.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(events, []string{"httpd", "wifi"}) {
		t.Fatalf("unexpected order: %v", events)
	}
}

func TestTeardownContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	var events []string
	td := NewTeardown(nil,
		Step{Name: "httpd", Stop: func(context.Context) error {
			events = append(events, "httpd")
			return boom
		}},
		Step{Name: "eth", Stop: func(context.Context) error {
			events = append(events, "eth")
			return nil
		}},
	)
	err := td.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if !reflect.DeepEqual(events, []string{"httpd", "eth"}) {
		t.Fatalf("unexpected order: %v", events)
	}
}

func TestCountdownStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	Countdown(ctx, nil, 3)
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("expected cancelled countdown to return quickly")
	}
}
