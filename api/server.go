package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"controller-go/internal/config"
	"controller-go/internal/logger"

	"github.com/quic-go/quic-go/http3"
)

// Server owns the HTTP listener and, when configured, an HTTP/3 listener
// serving the same handler.
type Server struct {
	cfg     config.APIConfig
	handler http.Handler
	log     *logger.Logger

	mu     sync.Mutex
	srv    *http.Server
	h3     *http3.Server
	addr   net.Addr
	served chan struct{}
	h3Done chan struct{}
}

func NewServer(cfg config.APIConfig, handler http.Handler, log *logger.Logger) *Server {
	return &Server{cfg: cfg, handler: handler, log: log}
}

// Start binds the listeners and serves in the background. A bind failure is
// returned before any goroutine is started.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("httpd: already started")
	}
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("httpd listen %s: %w", s.cfg.Address, err)
	}

	var h3 *http3.Server
	var pc net.PacketConn
	if s.cfg.H3Address != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.CertFile, s.cfg.KeyFile)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("httpd h3 certificate: %w", err)
		}
		pc, err = net.ListenPacket("udp", s.cfg.H3Address)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("httpd h3 listen %s: %w", s.cfg.H3Address, err)
		}
		h3 = &http3.Server{
			TLSConfig: http3.ConfigureTLSConfig(&tls.Config{
				Certificates: []tls.Certificate{cert},
			}),
			Handler: s.handler,
		}
	}

	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.addr = ln.Addr()
	s.served = make(chan struct{})
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("httpd serve failed", map[string]any{"error": err.Error()})
		}
	}(s.srv, s.served)

	if h3 != nil {
		s.h3 = h3
		s.h3Done = make(chan struct{})
		go func(done chan struct{}) {
			defer close(done)
			if err := h3.Serve(pc); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Warn("httpd h3 serve stopped", map[string]any{"error": err.Error()})
			}
		}(s.h3Done)
	}

	s.log.Info("httpd started", map[string]any{"address": s.addr.String(), "h3": s.cfg.H3Address})
	return nil
}

// Addr is the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop drains in-flight requests and returns once the listeners are closed.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, h3, served, h3Done := s.srv, s.h3, s.served, s.h3Done
	s.srv, s.h3 = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	var errs []error
	if h3 != nil {
		if err := h3.Close(); err != nil {
			errs = append(errs, fmt.Errorf("h3 close: %w", err))
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown: %w", err))
		_ = srv.Close()
	}
	for _, done := range []chan struct{}{served, h3Done} {
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("listener not closed: %w", ctx.Err()))
		}
	}
	return errors.Join(errs...)
}
