// Package poller owns the repeating notification poll: a lightweight
// unread-count probe on every tick, escalated to a throttled full fetch
// when the count grows, with toasts raised for freshly discovered unread
// notifications.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"notifyd/internal/api"
	"notifyd/internal/notification"
	"notifyd/internal/store"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultSpec        = "@every 30s"
	DefaultMinInterval = 120 * time.Second
	DefaultPage        = 1
	DefaultLimit       = 20
	fetchTimeout       = 10 * time.Second
)

type Config struct {
	// Spec is a cron spec or @every interval for the tick.
	Spec string
	// FullMinInterval throttles unforced full fetches: within the window
	// they are skipped and treated as a no-op success.
	FullMinInterval time.Duration
	// RecencyWindow bounds toast eligibility for discovered notifications.
	RecencyWindow time.Duration
	Page          int
	Limit         int
}

func (c Config) withDefaults() Config {
	if c.Spec == "" {
		c.Spec = DefaultSpec
	}
	if c.FullMinInterval <= 0 {
		c.FullMinInterval = DefaultMinInterval
	}
	if c.RecencyWindow <= 0 {
		c.RecencyWindow = notification.DefaultRecencyWindow
	}
	if c.Page <= 0 {
		c.Page = DefaultPage
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	return c
}

// Client is the slice of the API client the poller needs.
type Client interface {
	List(ctx context.Context, page, limit int) ([]notification.Notification, int, error)
	UnreadCount(ctx context.Context) (int, error)
}

// Toaster presents a toast request. Implemented by the toast service.
type Toaster interface {
	Show(t notification.Toast)
}

// Service drives the poll loop. It moves Idle -> Armed (Start) and back
// to Idle on Stop; ticks run on the cron goroutine, so within one tick
// the count probe always settles before any escalation.
type Service struct {
	mu  sync.Mutex
	cfg Config

	log    *slog.Logger
	st     *store.Store
	client Client
	toasts Toaster

	parser cron.Parser
	c      *cron.Cron
	entry  cron.EntryID

	runCtx    context.Context
	runCancel context.CancelFunc

	// fetching is the single-flight guard: a tick whose full fetch is
	// still in flight must not start a second one.
	fetching atomic.Bool
	lastFull time.Time

	now func() time.Time
}

func New(cfg Config, client Client, st *store.Store, toasts Toaster, log *slog.Logger) *Service {
	return &Service{
		cfg:    cfg.withDefaults(),
		client: client,
		st:     st,
		toasts: toasts,
		log:    log,
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		now:    time.Now,
	}
}

// Apply updates the poll configuration. A spec change re-registers the
// tick while running.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	specChanged := cfg.Spec != s.cfg.Spec
	s.cfg = cfg
	if specChanged && s.c != nil {
		s.c.Remove(s.entry)
		id, err := s.c.AddFunc(cfg.Spec, s.tick)
		if err != nil {
			if s.log != nil {
				s.log.Warn("invalid poll spec; polling suspended", slog.String("spec", cfg.Spec), slog.Any("err", err))
			}
			return
		}
		s.entry = id
	}
}

// Running reports whether the poll loop is armed.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

// Start arms the tick. It requires an authenticated session; the caller
// (the app's session lifecycle) guarantees that.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.c = cron.New(cron.WithParser(s.parser))
	id, err := s.c.AddFunc(s.cfg.Spec, s.tick)
	if err != nil {
		s.runCancel()
		s.runCtx, s.runCancel, s.c = nil, nil, nil
		return err
	}
	s.entry = id
	s.c.Start()
	if s.log != nil {
		s.log.Info("polling started", slog.String("spec", s.cfg.Spec))
	}
	return nil
}

// Stop disarms the tick and marks the service unmounted so an in-flight
// fetch that resolves later is discarded instead of applied to the store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCtx, s.runCancel = nil, nil
	s.lastFull = time.Time{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c == nil {
		return
	}
	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
	if s.log != nil {
		s.log.Info("polling stopped")
	}
}

func (s *Service) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCtx
}

func (s *Service) mounted() bool {
	ctx := s.runContext()
	return ctx != nil && ctx.Err() == nil
}

// tick is one lightweight poll: probe the unread count, escalate to a
// full fetch only when the count grew. Errors never stop the loop.
func (s *Service) tick() {
	ctx := s.runContext()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	count, err := s.client.UnreadCount(cctx)
	cancel()

	if !s.mounted() {
		return
	}
	if err != nil {
		s.absorbFetchErr("unread count probe", err)
		return
	}

	known := s.st.Snapshot().UnreadCount
	// Keep the badge honest even when the escalated fetch below is
	// throttled away.
	s.st.Dispatch(store.SetUnreadCount{Count: count})
	if count > known {
		// New notifications arrived; materialize them so the recency
		// gate can evaluate them.
		_ = s.Refresh(ctx, false)
	}
}

// Refresh performs a full fetch (list + count). Unforced calls are
// throttled by FullMinInterval and treated as a no-op success inside the
// window; forced calls (the first fetch after login) bypass the throttle.
// Concurrent calls collapse into the in-flight one.
func (s *Service) Refresh(ctx context.Context, force bool) error {
	return s.refresh(ctx, force, true)
}

// Reconcile restores server truth after a failed optimistic mutation. It
// bypasses the throttle and never raises toasts: a compensating fetch only
// puts back records the user had already seen, and the caller surfaces the
// mutation error itself.
func (s *Service) Reconcile(ctx context.Context) error {
	return s.refresh(ctx, true, false)
}

func (s *Service) refresh(ctx context.Context, force, toasting bool) error {
	s.mu.Lock()
	cfg := s.cfg
	last := s.lastFull
	s.mu.Unlock()

	if !force && !last.IsZero() && s.now().Sub(last) < cfg.FullMinInterval {
		return nil
	}
	if !s.fetching.CompareAndSwap(false, true) {
		// A fetch is already in flight; its result is authoritative
		// enough for this caller too.
		return nil
	}
	defer s.fetching.Store(false)

	prev := s.st.Snapshot()
	s.st.Dispatch(store.SetLoading{Loading: true})

	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	list, count, err := s.client.List(cctx, cfg.Page, cfg.Limit)
	cancel()

	if !s.mounted() {
		// Torn down while the fetch was in flight; discard the result.
		return nil
	}
	if err != nil {
		s.absorbFetchErr("full fetch", err)
		return err
	}

	now := s.now()
	s.mu.Lock()
	s.lastFull = now
	s.mu.Unlock()

	c := count
	s.st.Dispatch(store.SetNotifications{List: list, UnreadCount: &c, At: now})
	if s.log != nil {
		s.log.Debug("notifications fetched", slog.Int("count", len(list)), slog.Int("unread", count))
	}

	if toasting {
		s.raiseToast(prev, list, now, cfg.RecencyWindow)
	}
	return nil
}

// absorbFetchErr applies the fetch-path error policy: 404 is an expected
// nothing-to-report and is suppressed; everything else lands in the store
// error field. No fetch error escapes to UI code or stops polling.
func (s *Service) absorbFetchErr(op string, err error) {
	if errors.Is(err, api.ErrNotFound) {
		if s.log != nil {
			s.log.Debug("nothing to report", slog.String("op", op))
		}
		s.st.Dispatch(store.SetLoading{Loading: false})
		return
	}
	if s.log != nil {
		s.log.Warn("fetch failed", slog.String("op", op), slog.Bool("transient", api.IsTransient(err)), slog.Any("err", err))
	}
	s.st.Dispatch(store.SetError{Message: err.Error()})
}

// raiseToast finds notifications that are new relative to prev, unread,
// and within the recency window, and presents the most recent one. Stale
// unread records stay cached and counted but never interrupt the user.
func (s *Service) raiseToast(prev store.State, list []notification.Notification, now time.Time, window time.Duration) {
	if s.toasts == nil {
		return
	}
	seen := make(map[string]struct{}, len(prev.Notifications))
	for _, n := range prev.Notifications {
		seen[n.ID] = struct{}{}
	}

	var pick *notification.Notification
	for i := range list {
		n := list[i]
		if n.IsRead {
			continue
		}
		if _, ok := seen[n.ID]; ok {
			continue
		}
		if !notification.IsRecent(n, now, window) {
			continue
		}
		if pick == nil || n.CreatedAt.After(pick.CreatedAt) {
			pick = &list[i]
		}
	}
	if pick != nil {
		s.toasts.Show(notification.FromNotification(*pick))
	}
}
