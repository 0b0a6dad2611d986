// Package connectivity tracks whether the live backend is reachable and
// notifies subscribers when that changes.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"portalsync/internal/logging"
	"portalsync/internal/services"
)

// Prober checks reachability of the live backend.
type Prober interface {
	Probe(ctx context.Context) error
}

// Options tunes the probe loop.
type Options struct {
	// Interval between probes. Zero disables probing; the state then only
	// changes through Set.
	Interval time.Duration
	// FailureThreshold is the number of consecutive failed probes before the
	// monitor reports offline. Defaults to 2.
	FailureThreshold int
	// ProbeTimeout bounds a single probe. Defaults to the interval.
	ProbeTimeout time.Duration
}

const defaultFailureThreshold = 2

// Monitor holds the current online state. It is safe for concurrent use.
type Monitor struct {
	prober Prober
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	online   bool
	failures int
	subs     map[int]chan bool
	nextSub  int
}

// NewMonitor returns a monitor starting in the given state.
func NewMonitor(initial bool, prober Prober, opts Options, logger *slog.Logger) *Monitor {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = defaultFailureThreshold
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = opts.Interval
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		prober: prober,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "connectivity"),
		online: initial,
		subs:   make(map[int]chan bool),
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records an explicit connectivity event.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = 0
	m.setLocked(online)
}

// Subscribe returns a channel receiving each state transition. A slow reader
// only ever sees the latest state. cancel releases the subscription.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Run probes the backend on the configured interval until ctx is cancelled.
// With probing disabled it simply waits for cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	if m.prober == nil || m.opts.Interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		m.ProbeOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProbeOnce runs a single probe and updates the state. Only connectivity
// failures count against reachability.
func (m *Monitor) ProbeOnce(ctx context.Context) {
	if m.prober == nil {
		return
	}
	probeCtx := ctx
	if m.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, m.opts.ProbeTimeout)
		defer cancel()
	}
	err := m.prober.Probe(probeCtx)
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil || !services.IsConnectivity(err) {
		m.failures = 0
		m.setLocked(true)
		return
	}
	m.failures++
	m.logger.Debug("connectivity probe failed",
		logging.Int("consecutive_failures", m.failures),
		logging.Error(err),
	)
	if m.failures >= m.opts.FailureThreshold {
		m.setLocked(false)
	}
}

func (m *Monitor) setLocked(online bool) {
	if m.online == online {
		return
	}
	m.online = online
	if online {
		m.logger.Info("live backend reachable", logging.String(logging.FieldEventType, "connectivity_online"))
	} else {
		logging.WarnWithContext(m.logger, "live backend unreachable", "connectivity_offline",
			logging.String(logging.FieldImpact, "mutating operations are queued until connectivity returns"),
			logging.String(logging.FieldErrorHint, "check network access to the live backend"),
		)
	}
	for _, ch := range m.subs {
		select {
		case ch <- online:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- online:
			default:
			}
		}
	}
}
