// Package toast is the single-slot toast dispatcher: at most one toast is
// visible at a time, the newest request always wins, and a visible toast
// auto-hides after a fixed duration unless dismissed first.
package toast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"notifyd/internal/eventbus"
	"notifyd/internal/notification"
)

// DefaultDuration is the auto-hide delay.
const DefaultDuration = 5 * time.Second

type Config struct {
	Duration time.Duration
}

// Event is the bus payload for toast transitions.
type Event struct {
	ID     string
	Origin notification.ToastOrigin
	Type   notification.Type
	// Reason is set on hide: "timeout", "dismissed" or "superseded".
	Reason string
}

// Service holds the toast slot. State moves Hidden -> Showing -> Hidden
// and is only ever mutated through Show/Hide.
type Service struct {
	mu    sync.Mutex
	cfg   Config
	log   *slog.Logger
	bus   eventbus.Bus
	cur   *notification.Toast
	timer *time.Timer
	// gen invalidates stale auto-hide timers: a timer armed for toast N
	// must never hide toast N+1.
	gen uint64

	now func() time.Time
}

func New(cfg Config, log *slog.Logger, bus eventbus.Bus) *Service {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	return &Service{cfg: cfg, log: log, bus: bus, now: time.Now}
}

// Apply updates the auto-hide duration. A toast already showing keeps the
// timer it was armed with.
func (s *Service) Apply(cfg Config) {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Show presents t, replacing any visible toast immediately. There is no
// queue: the newest request always wins.
func (s *Service) Show(t notification.Toast) {
	s.mu.Lock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.At = s.now()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cur != nil {
		s.publishLocked(eventbus.TypeToastSuperseded, *s.cur, "superseded")
	}

	s.gen++
	gen := s.gen
	s.cur = &t
	s.timer = time.AfterFunc(s.cfg.Duration, func() { s.autoHide(gen) })
	dur := s.cfg.Duration
	s.publishLocked(eventbus.TypeToastShown, t, "")
	s.mu.Unlock()

	if s.log != nil {
		s.log.Debug("toast shown",
			slog.String("id", t.ID),
			slog.String("origin", string(t.Origin)),
			slog.String("type", string(t.Type)),
			slog.Duration("auto_hide", dur))
	}
}

// Hide dismisses the visible toast, if any, and cancels its auto-hide
// timer. Safe to call at any time.
func (s *Service) Hide() {
	s.hide("dismissed")
}

func (s *Service) hide(reason string) {
	s.mu.Lock()
	if s.cur == nil {
		s.mu.Unlock()
		return
	}
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	t := *s.cur
	s.cur = nil
	s.publishLocked(eventbus.TypeToastHidden, t, reason)
	s.mu.Unlock()

	if s.log != nil {
		s.log.Debug("toast hidden", slog.String("id", t.ID), slog.String("reason", reason))
	}
}

func (s *Service) autoHide(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.cur == nil {
		// Superseded or dismissed since the timer was armed.
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	t := *s.cur
	s.cur = nil
	s.publishLocked(eventbus.TypeToastHidden, t, "timeout")
	s.mu.Unlock()

	if s.log != nil {
		s.log.Debug("toast hidden", slog.String("id", t.ID), slog.String("reason", "timeout"))
	}
}

// Current returns the visible toast, if any.
func (s *Service) Current() (notification.Toast, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return notification.Toast{}, false
	}
	return *s.cur, true
}

func (s *Service) Stop(ctx context.Context) {
	s.hide("dismissed")
}

func (s *Service) publishLocked(typ string, t notification.Toast, reason string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{
		Type: typ,
		Data: Event{ID: t.ID, Origin: t.Origin, Type: t.Type, Reason: reason},
	})
}
