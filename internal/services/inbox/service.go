// Package inbox exposes the user-facing notification operations. Every
// mutation is optimistic: the store transition is applied synchronously
// for instant feedback, the remote call follows, and a remote failure is
// compensated by a forced reconciliation fetch before the error is handed
// back to the caller.
package inbox

import (
	"context"
	"log/slog"
	"time"

	"notifyd/internal/eventbus"
	"notifyd/internal/notification"
	"notifyd/internal/storage"
	"notifyd/internal/store"
)

// Client is the mutation slice of the API client.
type Client interface {
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Reconciler pulls authoritative server state after a failed mutation.
// Implemented by the poller; the fetch bypasses the full-fetch throttle
// and raises no toasts, since it only restores records the user has
// already seen.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// Toaster presents a toast request. Implemented by the toast service.
type Toaster interface {
	Show(t notification.Toast)
}

type Service struct {
	log     *slog.Logger
	st      *store.Store
	client  Client
	rec     Reconciler
	toasts  Toaster
	journal storage.Journal
	bus     eventbus.Bus

	now func() time.Time
}

func New(client Client, st *store.Store, rec Reconciler, toasts Toaster, journal storage.Journal, bus eventbus.Bus, log *slog.Logger) *Service {
	if journal == nil {
		journal = storage.Nop{}
	}
	return &Service{
		log:     log,
		st:      st,
		client:  client,
		rec:     rec,
		toasts:  toasts,
		journal: journal,
		bus:     bus,
		now:     time.Now,
	}
}

// intent pairs an optimistic store transition with the remote call that
// carries the same meaning. Applying the action is the optimistic half;
// the compensation for a failed call is always the same: a forced
// reconciliation fetch that overwrites the optimistic guess.
type intent struct {
	op     string
	target string
	action store.Action
	call   func(ctx context.Context) error
}

func (s *Service) MarkAsRead(ctx context.Context, id string) error {
	return s.run(ctx, intent{
		op:     "mark_read",
		target: id,
		action: store.MarkRead{ID: id},
		call:   func(ctx context.Context) error { return s.client.MarkRead(ctx, id) },
	})
}

func (s *Service) MarkAllAsRead(ctx context.Context) error {
	return s.run(ctx, intent{
		op:     "mark_all_read",
		action: store.MarkAllRead{},
		call:   s.client.MarkAllRead,
	})
}

func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	return s.run(ctx, intent{
		op:     "delete",
		target: id,
		action: store.Delete{ID: id},
		call:   func(ctx context.Context) error { return s.client.Delete(ctx, id) },
	})
}

func (s *Service) ClearAllNotifications(ctx context.Context) error {
	return s.run(ctx, intent{
		op:     "clear_all",
		action: store.ClearAll{},
		call:   s.client.Clear,
	})
}

// run executes one optimistic mutation.
//
// Contract for callers: a returned error means the optimistic update was
// provisional and has since been corrected by reconciliation. Do not
// apply compensating state changes; surface the error (e.g. as a manual
// toast) if the user should know why the action failed.
func (s *Service) run(ctx context.Context, in intent) error {
	start := s.now()
	s.st.Dispatch(in.action)

	err := in.call(ctx)
	took := s.now().Sub(start)

	if err != nil {
		if s.log != nil {
			s.log.Warn("mutation failed; reconciling",
				slog.String("op", in.op), slog.String("target", in.target), slog.Any("err", err))
		}
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{
				Type: eventbus.TypeMutationRolledBack,
				Data: MutationEvent{Op: in.op, Target: in.target, Err: err.Error()},
			})
		}
		if rerr := s.rec.Reconcile(ctx); rerr != nil && s.log != nil {
			// The fetch path has already absorbed this into the store
			// error field; nothing more to do here.
			s.log.Warn("reconciliation fetch failed", slog.String("op", in.op), slog.Any("err", rerr))
		}
		s.audit(ctx, in, false, err.Error(), took)
		return err
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{
			Type: eventbus.TypeMutationApplied,
			Data: MutationEvent{Op: in.op, Target: in.target},
		})
	}
	s.audit(ctx, in, true, "", took)
	return nil
}

// MutationEvent is the bus payload for mutation outcomes.
type MutationEvent struct {
	Op     string
	Target string
	Err    string
}

// ShowToast raises a caller-invoked toast (form validation feedback,
// mutation error display, ...). Manual toasts bypass the recency gate.
func (s *Service) ShowToast(message string, typ notification.Type, title string) {
	if s.toasts == nil {
		return
	}
	s.toasts.Show(notification.Manual(message, typ, title))
}

// Snapshot exposes the current store state for presentation layers.
func (s *Service) Snapshot() store.State {
	return s.st.Snapshot()
}

func (s *Service) audit(ctx context.Context, in intent, ok bool, errMsg string, took time.Duration) {
	e := storage.Entry{
		At:     s.now(),
		Kind:   "mutation",
		Op:     in.op,
		Target: in.target,
		OK:     ok,
		Error:  errMsg,
		TookMS: took.Milliseconds(),
	}
	if err := s.journal.Append(ctx, e); err != nil && s.log != nil {
		s.log.Debug("journal append failed", slog.String("op", in.op), slog.Any("err", err))
	}
}
