package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"portalsync/internal/backend"
	"portalsync/internal/connectivity"
	"portalsync/internal/envelope"
	"portalsync/internal/logging"
	"portalsync/internal/queue"
	"portalsync/internal/services"
)

// Options tunes the client.
type Options struct {
	// EventBuffer is the per-subscriber SyncEvent buffer. Defaults to 64.
	EventBuffer int
}

const defaultEventBuffer = 64

// Client is the API façade.
type Client struct {
	selector *backend.Selector
	queue    *queue.Queue
	monitor  *connectivity.Monitor
	opts     Options
	logger   *slog.Logger

	wake chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan SyncEvent
	nextSub int
}

// New wires the façade. The queue must already be loaded.
func New(selector *backend.Selector, q *queue.Queue, monitor *connectivity.Monitor, opts Options, logger *slog.Logger) *Client {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		selector: selector,
		queue:    q,
		monitor:  monitor,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "api"),
		wake:     make(chan struct{}, 1),
		subs:     make(map[int]chan SyncEvent),
	}
}

// Mode returns the active backend mode.
func (c *Client) Mode(ctx context.Context) backend.Mode {
	return c.selector.CurrentMode(ctx)
}

// SetMode switches the active backend. Queued actions are kept.
func (c *Client) SetMode(ctx context.Context, mode backend.Mode) error {
	return c.selector.SetMode(ctx, mode)
}

// Online reports the connectivity state.
func (c *Client) Online() bool {
	return c.monitor.Online()
}

// Call issues any catalog operation with a raw JSON payload. For queued
// mutations the returned data is the payload itself.
func (c *Client) Call(ctx context.Context, actionType string, payload json.RawMessage) envelope.Result[json.RawMessage] {
	if !backend.IsKnown(actionType) {
		return envelope.Fail[json.RawMessage](services.Wrap(services.ErrApplication, "api", "call",
			fmt.Sprintf("unknown operation %q", actionType), nil))
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if !json.Valid(payload) {
		return envelope.Fail[json.RawMessage](services.Wrap(services.ErrApplication, "api", actionType, "payload is not valid JSON", nil))
	}
	return c.dispatch(ctx, backend.Request{ActionType: actionType, Payload: payload})
}

func (c *Client) dispatch(ctx context.Context, req backend.Request) envelope.Result[json.RawMessage] {
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	ctx = services.WithActionType(ctx, req.ActionType)

	target, mode := c.selector.Backend(ctx)
	if !backend.IsMutating(req.ActionType) || mode == backend.ModeDemo {
		return c.selector.DispatchTo(ctx, target, mode, req)
	}

	switch {
	case !c.monitor.Online():
		return c.deferAction(ctx, req, "offline")
	case c.queue.Size() > 0:
		return c.deferAction(ctx, req, "behind_queued_actions")
	}

	res := c.selector.DispatchTo(ctx, target, mode, req)
	if !res.Success && res.Kind == services.KindConnectivity {
		return c.deferAction(ctx, req, "unreachable")
	}
	return res
}

// deferAction queues req and acknowledges it optimistically.
func (c *Client) deferAction(ctx context.Context, req backend.Request, reason string) envelope.Result[json.RawMessage] {
	action, err := c.queue.Enqueue(ctx, req.ActionType, req.Payload)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, c.logger), "could not queue action", "enqueue_failed",
			logging.String("reason", reason),
			logging.String("kind", string(services.KindOf(err))),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run portalsync doctor and portalsync queue list"),
		)
		return envelope.Fail[json.RawMessage](err)
	}
	logging.WithContext(ctx, c.logger).Info("mutation deferred",
		logging.String(logging.FieldEventType, "mutation_deferred"),
		logging.String(logging.FieldActionID, action.ID),
		logging.String("reason", reason),
	)
	c.nudge()
	return envelope.OfflineAck(req.Payload, action.ID)
}

func (c *Client) nudge() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// typed converts a raw envelope into one carrying T.
func typed[T any](res envelope.Result[json.RawMessage]) envelope.Result[T] {
	if !res.Success {
		return envelope.Result[T]{Error: res.Error, Kind: res.Kind}
	}
	var data T
	if len(res.Data) > 0 && string(res.Data) != "null" {
		if err := json.Unmarshal(res.Data, &data); err != nil {
			return envelope.Fail[T](services.Wrap(services.ErrApplication, "api", "decode", "unexpected response shape", err))
		}
	}
	return envelope.Result[T]{Success: true, Data: data, Offline: res.Offline, ActionID: res.ActionID}
}

func encode(actionType string, input any) (json.RawMessage, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, services.Wrap(services.ErrApplication, "api", actionType, "encode payload", err)
	}
	return raw, nil
}
