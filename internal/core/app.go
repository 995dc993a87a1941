// Package core wires the notification engine together: config manager,
// logging stack, store, API client, poller, toast dispatcher, inbox and
// journal, plus the session lifecycle driven by token transitions.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"notifyd/internal/api"
	"notifyd/internal/auth"
	"notifyd/internal/config"
	"notifyd/internal/eventbus"
	"notifyd/internal/notification"
	"notifyd/internal/services/inbox"
	"notifyd/internal/services/logging"
	"notifyd/internal/services/poller"
	pprofsvc "notifyd/internal/services/pprof"
	"notifyd/internal/services/toast"
	"notifyd/internal/storage"
	"notifyd/internal/store"
	"notifyd/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *Supervisor

	log  *slog.Logger
	logs *logging.Service
	xsvc *logx.Service
	xlog logx.Logger

	tokens  *auth.Source
	bus     eventbus.Bus
	st      *store.Store
	client  *api.Client
	toasts  *toast.Service
	poll    *poller.Service
	box     *inbox.Service
	journal storage.Journal
	debug   *pprofsvc.Service

	sessMu    sync.Mutex
	sessionUp bool
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logging.New(loggingConfig(cfg))
	log = log.With(slog.String("comp", "app"))

	xsvc, xlog := logx.New(logxConfig(cfg))

	tokens := auth.NewSource()
	tokens.Set(cfg.API.Token, cfg.API.User)

	bus := eventbus.New()
	st := store.New(bus)

	apiCfg, err := apiConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := api.New(apiCfg, tokens, log.With(slog.String("comp", "api")))

	toastCfg, err := toastConfig(cfg)
	if err != nil {
		return nil, err
	}
	toasts := toast.New(toastCfg, log.With(slog.String("comp", "toast")), bus)

	pollCfg, err := pollerConfig(cfg)
	if err != nil {
		return nil, err
	}
	poll := poller.New(pollCfg, client, st, toasts, log.With(slog.String("comp", "poller")))

	jCfg, err := journalConfig(cfg)
	if err != nil {
		return nil, err
	}
	journal, err := storage.Open(jCfg, xlog.With(logx.String("comp", "journal")))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	box := inbox.New(client, st, poll, toasts, journal, bus, log.With(slog.String("comp", "inbox")))

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		xsvc:    xsvc,
		xlog:    xlog,
		tokens:  tokens,
		bus:     bus,
		st:      st,
		client:  client,
		toasts:  toasts,
		poll:    poll,
		box:     box,
		journal: journal,
	}

	dbg := pprofsvc.Config{}
	if cfg.Debug != nil {
		dbg = pprofsvc.Config{Enabled: cfg.Debug.Enabled, Addr: cfg.Debug.Addr}
	}
	a.debug = pprofsvc.New(dbg, a.statusSnapshot, log.With(slog.String("comp", "debug")))

	return a, nil
}

// Inbox exposes the user-facing notification operations (optimistic
// mutations, manual toasts, state snapshots) to embedders.
func (a *App) Inbox() *inbox.Service { return a.box }

// Toasts exposes the toast slot, e.g. for a presenter to dismiss.
func (a *App) Toasts() *toast.Service { return a.toasts }

// Events exposes the engine bus for presentation layers.
func (a *App) Events() eventbus.Bus { return a.bus }

// Done is closed when the app run context ends (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	a.cfgm.SetLogger(a.xlog.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})

	if err := a.debug.Start(a.sup.Context()); err != nil {
		return err
	}

	// Session comes up immediately when the config already carries a
	// token; otherwise it waits for a hot reload that adds one.
	if _, ok := a.tokens.Token(); ok {
		a.startSession(a.sup.Context())
	} else {
		a.log.Info("no session token; polling idle until one is configured")
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.sup.Go0("events.journal", func(c context.Context) {
		a.journalEvents(c)
	})

	a.log.Info("engine started")
	return nil
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(loggingConfig(cfg))
	a.xsvc.Apply(logxConfig(cfg))

	if tc, err := toastConfig(cfg); err == nil {
		a.toasts.Apply(tc)
	}
	if pc, err := pollerConfig(cfg); err == nil {
		a.poll.Apply(pc)
	}

	// Token transitions drive the session lifecycle: absent -> present
	// starts polling with a first forced fetch, present -> absent tears
	// the session down.
	_, hadToken := a.tokens.Token()
	a.tokens.Set(cfg.API.Token, cfg.API.User)
	_, hasToken := a.tokens.Token()

	switch {
	case !hadToken && hasToken:
		a.log.Info("session token configured")
		a.startSession(ctx)
	case hadToken && !hasToken:
		a.log.Info("session token cleared")
		a.stopSession(ctx)
	}

	a.log.Info("config reloaded")
}

func (a *App) startSession(ctx context.Context) {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	if a.sessionUp {
		return
	}
	if err := a.poll.Start(ctx); err != nil {
		a.log.Warn("poller start failed", slog.Any("err", err))
		return
	}
	a.sessionUp = true
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeSessionStarted})

	// First fetch is forced: it bypasses the full-fetch throttle so the
	// cache materializes right after login.
	a.sup.Go0("poller.bootstrap", func(c context.Context) {
		if err := a.poll.Refresh(c, true); err != nil {
			// Already absorbed into the store error field.
			a.log.Warn("initial fetch failed", slog.Any("err", err))
		}
	})
}

func (a *App) stopSession(ctx context.Context) {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()
	if !a.sessionUp {
		return
	}
	stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	a.poll.Stop(stopCtx)
	cancel()
	a.toasts.Hide()
	// Cached notifications belong to the session that fetched them. An
	// interrupted fetch may have left the loading flag set; clear both.
	a.st.Dispatch(store.SetLoading{Loading: false})
	a.st.Dispatch(store.ClearAll{})
	a.sessionUp = false
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeSessionStopped})
}

// journalEvents mirrors toast activity from the bus into the journal and
// debug-logs everything else.
func (a *App) journalEvents(ctx context.Context) {
	ch, unsub := a.bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch ev.Type {
			case eventbus.TypeToastShown, eventbus.TypeToastHidden, eventbus.TypeToastSuperseded:
				te, _ := ev.Data.(toast.Event)
				entry := storage.Entry{
					At:     ev.Time,
					Kind:   "toast",
					Op:     ev.Type,
					Target: te.ID,
					OK:     true,
					Error:  te.Reason,
				}
				if err := a.journal.Append(ctx, entry); err != nil {
					a.log.Debug("journal append failed", slog.String("event", ev.Type), slog.Any("err", err))
				}
			case eventbus.TypeStoreChanged:
				// High-volume; keep it out of the journal.
			default:
				a.log.Debug("event", slog.String("type", ev.Type))
			}
		}
	}
}

func (a *App) statusSnapshot() pprofsvc.Status {
	snap := a.st.Snapshot()
	_, toastVisible := a.toasts.Current()
	return pprofsvc.Status{
		Polling:     a.poll.Running(),
		UnreadCount: snap.UnreadCount,
		Toast:       toastVisible,
		Err:         snap.Err,
	}
}

// ShowToast raises a manual toast; kept on App for callers that only hold
// the app handle.
func (a *App) ShowToast(message string, typ notification.Type, title string) {
	a.box.ShowToast(message, typ, title)
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Bound each shutdown step so one component can't stall the stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}
		start := time.Now()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", slog.String("name", name), slog.Any("err", err))
		}
		a.log.Debug("stop step end", slog.String("name", name), slog.Duration("took", time.Since(start)))
	}

	step("session", 3*time.Second, func(c context.Context) error { a.stopSession(c); return nil })
	step("toasts", time.Second, func(c context.Context) error { a.toasts.Stop(c); return nil })
	step("debug", 2*time.Second, func(c context.Context) error { a.debug.Stop(c); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("journal", time.Second, func(c context.Context) error { return a.journal.Close() })

	_ = a.logs.Close()
	_ = a.xsvc.Close()

	a.log.Info("stopped")
	return nil
}
