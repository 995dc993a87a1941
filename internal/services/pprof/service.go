// Package pprof serves the optional debug HTTP endpoint: Go profiling
// handlers plus a small health/status probe. Bind it to loopback; there
// is no authentication.
package pprof

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	netpprof "net/http/pprof"
	"sync"
	"time"
)

const defaultAddr = "127.0.0.1:6060"

type Config struct {
	Enabled bool
	Addr    string
}

// Status is whatever the engine wants to expose on /healthz.
type Status struct {
	Polling     bool   `json:"polling"`
	UnreadCount int    `json:"unreadCount"`
	Toast       bool   `json:"toastVisible"`
	Err         string `json:"err,omitempty"`
}

// StatusFunc supplies the current Status snapshot.
type StatusFunc func() Status

type Service struct {
	mu     sync.Mutex
	cfg    Config
	log    *slog.Logger
	status StatusFunc
	srv    *http.Server
}

func New(cfg Config, status StatusFunc, log *slog.Logger) *Service {
	return &Service{cfg: cfg, status: status, log: log}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.srv != nil {
		return nil
	}
	addr := s.cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", netpprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", netpprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", netpprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", netpprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", netpprof.Trace)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		st := Status{}
		if s.status != nil {
			st = s.status()
		}
		_ = json.NewEncoder(w).Encode(st)
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// WriteTimeout stays 0 so /debug/pprof/profile (30s+) works.
		IdleTimeout: time.Minute,
	}
	s.srv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.log != nil {
				s.log.Warn("debug server stopped", slog.Any("err", err))
			}
		}
	}()
	if s.log != nil {
		s.log.Info("debug server listening", slog.String("addr", addr))
	}
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	_ = srv.Shutdown(ctx)
}
