package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"portalsync/internal/logging"
	"portalsync/internal/services"
)

// Options tunes queue bounds and retry policy.
type Options struct {
	// MaxPending bounds the number of stored entries. Zero means unbounded.
	MaxPending int
	// MaxAttempts is the number of connectivity failures after which an
	// entry becomes failed_permanent. Zero means retry forever.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Observer receives depth and outcome notifications. Optional.
	Observer Observer
	// Now overrides the clock. Optional.
	Now func() time.Time
}

// Observer is notified about queue activity, typically by the metrics package.
type Observer interface {
	QueueDepth(depth int)
	ActionEnqueued(actionType string)
	ActionReplayed(actionType, result string)
}

const (
	defaultInitialBackoff = 2 * time.Second
	defaultMaxBackoff     = 5 * time.Minute
)

// Queue is the durable FIFO of deferred mutating actions. It is safe for
// concurrent use.
type Queue struct {
	storage Storage
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	actions  []QueuedAction
	loaded   bool
	draining bool
}

// New constructs a queue over storage. Call Load before use.
func New(storage Storage, opts Options, logger *slog.Logger) *Queue {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{
		storage: storage,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "queue"),
	}
}

// Load reads the persisted list. Entries left in flight by an interrupted
// drain are returned to pending so they are replayed again.
func (q *Queue) Load(ctx context.Context) error {
	raw, found, err := q.storage.Get(ctx, StorageKey)
	if err != nil {
		return storageFault("load", err)
	}
	var actions []QueuedAction
	version := documentVersion
	if found {
		actions, version, err = decodeDocument(raw)
		if err != nil {
			return storageFault("load", err)
		}
	}
	if version > documentVersion {
		logging.WarnWithContext(q.logger, "queue written by a newer version", "queue_newer_format",
			logging.Int("document_version", version),
			logging.Int("supported_version", documentVersion),
			logging.String(logging.FieldImpact, "fields this version does not know are dropped on the next write"),
			logging.String(logging.FieldErrorHint, "upgrade portalsync to keep them"),
		)
	}

	// In-flight entries belong to an interrupted drain. Unknown statuses come
	// from a newer writer and are never confirmed, so both replay as pending.
	recovered, unknown := 0, 0
	for i := range actions {
		switch status := actions[i].Status; {
		case status == StatusInFlight:
			recovered++
		case status == "":
		case !status.known():
			unknown++
			q.logger.Warn("unknown queue status reset to pending",
				logging.String(logging.FieldEventType, "queue_unknown_status"),
				logging.String(logging.FieldActionID, actions[i].ID),
				logging.String("status", string(status)),
			)
		default:
			continue
		}
		actions[i].Status = StatusPending
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if recovered > 0 || unknown > 0 {
		if err := q.commitLocked(ctx, actions); err != nil {
			return err
		}
	} else {
		q.actions = actions
	}
	if recovered > 0 {
		logging.WarnWithContext(q.logger, "recovered interrupted replay", "queue_recovered",
			logging.Int("recovered", recovered),
			logging.String(logging.FieldImpact, "the last in-flight action will be sent again"),
			logging.String(logging.FieldErrorHint, "backend must tolerate a duplicate of the interrupted action"),
		)
	}
	q.loaded = true
	q.observeDepthLocked()
	q.logger.Debug("offline queue loaded", logging.Int("entries", len(q.actions)))
	return nil
}

// Enqueue appends a new pending action and persists the list before
// returning. On failure the in-memory list is unchanged.
func (q *Queue) Enqueue(ctx context.Context, actionType string, payload json.RawMessage) (QueuedAction, error) {
	actionType = strings.TrimSpace(actionType)
	if actionType == "" {
		return QueuedAction{}, services.Wrap(services.ErrApplication, "queue", "enqueue", "action type is empty", nil)
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	if !json.Valid(payload) {
		return QueuedAction{}, services.Wrap(services.ErrApplication, "queue", "enqueue", "payload is not valid JSON", nil)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return QueuedAction{}, services.Wrap(services.ErrStorage, "queue", "enqueue", "generate action id", err)
	}
	action := QueuedAction{
		ID:         id.String(),
		ActionType: actionType,
		Payload:    append(json.RawMessage(nil), payload...),
		EnqueuedAt: q.opts.Now().UTC(),
		Status:     StatusPending,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.loaded {
		return QueuedAction{}, ErrNotLoaded
	}
	if q.opts.MaxPending > 0 && len(q.actions) >= q.opts.MaxPending {
		return QueuedAction{}, services.Wrap(services.ErrQueueFull, "queue", "enqueue",
			"offline queue holds the maximum number of actions", nil)
	}

	next := make([]QueuedAction, len(q.actions), len(q.actions)+1)
	copy(next, q.actions)
	next = append(next, action)
	if err := q.commitLocked(ctx, next); err != nil {
		return QueuedAction{}, err
	}
	if q.opts.Observer != nil {
		q.opts.Observer.ActionEnqueued(actionType)
	}
	q.observeDepthLocked()
	q.logger.Info("action queued",
		logging.String(logging.FieldEventType, "action_queued"),
		logging.String(logging.FieldActionID, action.ID),
		logging.String(logging.FieldActionType, actionType),
		logging.Int("depth", len(q.actions)),
	)
	return action.clone(), nil
}

// Size returns the number of stored entries.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// PeekAll returns a copy of every entry in order.
func (q *Queue) PeekAll() []QueuedAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueuedAction, len(q.actions))
	for i, action := range q.actions {
		out[i] = action.clone()
	}
	return out
}

// Stats returns per-status counts.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := Stats{Total: len(q.actions)}
	for _, action := range q.actions {
		switch action.Status {
		case StatusPending:
			stats.Pending++
		case StatusInFlight:
			stats.InFlight++
		case StatusFailedPermanent:
			stats.FailedPermanent++
		}
	}
	if len(q.actions) > 0 {
		stats.Oldest = q.actions[0].EnqueuedAt
	}
	return stats
}

// commitLocked persists next and swaps it in only when the write succeeded.
// Callers hold q.mu.
func (q *Queue) commitLocked(ctx context.Context, next []QueuedAction) error {
	raw, err := encodeDocument(next)
	if err != nil {
		return storageFault("encode", err)
	}
	if err := q.storage.Put(ctx, StorageKey, raw); err != nil {
		return storageFault("persist", err)
	}
	q.actions = next
	return nil
}

func (q *Queue) observeDepthLocked() {
	if q.opts.Observer != nil {
		q.opts.Observer.QueueDepth(len(q.actions))
	}
}

func (q *Queue) indexLocked(id string) int {
	for i := range q.actions {
		if q.actions[i].ID == id {
			return i
		}
	}
	return -1
}

// backoff returns the delay before the next attempt after attempts failures.
func (q *Queue) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := q.opts.InitialBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= q.opts.MaxBackoff {
			return q.opts.MaxBackoff
		}
	}
	return min(delay, q.opts.MaxBackoff)
}
