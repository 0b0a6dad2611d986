package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"portalsync/internal/envelope"
	"portalsync/internal/logging"
	"portalsync/internal/services"
)

// ModeKey is the durable store key holding the active mode.
const ModeKey = "backend_mode"

// ModeStore persists the active mode.
type ModeStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// DispatchObserver is notified after each dispatched request.
type DispatchObserver interface {
	Dispatched(mode, actionType, outcome string)
}

// SelectorOptions tunes the selector.
type SelectorOptions struct {
	// DefaultMode applies when no mode has been persisted. Empty means live.
	DefaultMode Mode
	Observer    DispatchObserver
}

// Selector routes requests to the demo or live backend according to the
// persisted mode.
type Selector struct {
	store       ModeStore
	demo        Backend
	live        Backend
	defaultMode Mode
	observer    DispatchObserver
	session     *Session
	logger      *slog.Logger

	mu sync.Mutex
}

// NewSelector wires the two backends behind a mode switch.
func NewSelector(store ModeStore, demo, live Backend, opts SelectorOptions, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = logging.NewNop()
	}
	defaultMode := opts.DefaultMode
	if defaultMode != ModeDemo {
		defaultMode = ModeLive
	}
	return &Selector{
		store:       store,
		demo:        demo,
		live:        live,
		defaultMode: defaultMode,
		observer:    opts.Observer,
		session:     &Session{},
		logger:      logging.NewComponentLogger(logger, "selector"),
	}
}

// CurrentMode returns the persisted mode, or the default when none is stored
// or the stored value cannot be read.
func (s *Selector) CurrentMode(ctx context.Context) Mode {
	raw, found, err := s.store.Get(ctx, ModeKey)
	if err != nil {
		logging.WarnWithContext(s.logger, "backend mode unreadable", "mode_read_failed",
			logging.Error(err),
			logging.String(logging.FieldMode, string(s.defaultMode)),
			logging.String(logging.FieldImpact, "falling back to the default backend mode"),
			logging.String(logging.FieldErrorHint, "run portalsync doctor to check the durable store"),
		)
		return s.defaultMode
	}
	if !found {
		return s.defaultMode
	}
	mode, err := ParseMode(string(raw))
	if err != nil {
		logging.WarnWithContext(s.logger, "stored backend mode invalid", "mode_invalid",
			logging.String("stored", strings.TrimSpace(string(raw))),
			logging.String(logging.FieldImpact, "falling back to the default backend mode"),
			logging.String(logging.FieldErrorHint, "run portalsync mode set demo|live"),
		)
		return s.defaultMode
	}
	return mode
}

// SetMode persists mode. Leaving live mode clears the session cache. The
// offline queue is not affected.
func (s *Selector) SetMode(ctx context.Context, mode Mode) error {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return services.Wrap(services.ErrApplication, "selector", "set mode", "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.CurrentMode(ctx)
	if err := s.store.Put(ctx, ModeKey, []byte(mode)); err != nil {
		if services.KindOf(err) == services.KindStorage {
			return err
		}
		return services.Wrap(services.ErrStorage, "selector", "set mode", "persist mode", err)
	}
	if previous == ModeLive && mode == ModeDemo {
		s.session.Clear()
	}
	if previous != mode {
		s.logger.Info("backend mode changed",
			logging.String(logging.FieldEventType, "mode_changed"),
			logging.String("from", string(previous)),
			logging.String(logging.FieldMode, string(mode)),
		)
	}
	return nil
}

// Backend returns the backend for the current mode.
func (s *Selector) Backend(ctx context.Context) (Backend, Mode) {
	mode := s.CurrentMode(ctx)
	if mode == ModeDemo {
		return s.demo, mode
	}
	return s.live, mode
}

// Live returns the live backend regardless of mode. Queued actions always
// replay against it.
func (s *Selector) Live() Backend {
	return s.live
}

// Session returns the session cache.
func (s *Selector) Session() *Session {
	return s.session
}

// Dispatch sends req to the active backend and wraps the outcome.
func (s *Selector) Dispatch(ctx context.Context, req Request) envelope.Result[json.RawMessage] {
	target, mode := s.Backend(ctx)
	return s.DispatchTo(ctx, target, mode, req)
}

// DispatchTo sends req to target, recording it under mode.
func (s *Selector) DispatchTo(ctx context.Context, target Backend, mode Mode, req Request) envelope.Result[json.RawMessage] {
	data, err := target.Call(ctx, req)
	if err != nil {
		s.observe(mode, req.ActionType, string(services.KindOf(err)))
		logging.WithContext(ctx, s.logger).Debug("dispatch failed",
			logging.String(logging.FieldMode, string(mode)),
			logging.String(logging.FieldActionType, req.ActionType),
			logging.String("kind", string(services.KindOf(err))),
			logging.Error(err),
		)
		return envelope.Fail[json.RawMessage](err)
	}
	if req.ActionType == OpGetProfile {
		s.session.Remember(mode, data)
	}
	s.observe(mode, req.ActionType, "ok")
	return envelope.Ok(data)
}

func (s *Selector) observe(mode Mode, actionType, outcome string) {
	if s.observer != nil {
		s.observer.Dispatched(string(mode), actionType, outcome)
	}
}
