package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"portalsync/internal/backend"
	"portalsync/internal/envelope"
	"portalsync/internal/logging"
	"portalsync/internal/queue"
)

// SyncEvent reports the final outcome of one queued action.
type SyncEvent struct {
	Action queue.QueuedAction
	Result envelope.Result[json.RawMessage]
}

// Events subscribes to SyncEvents. Events are dropped for a subscriber whose
// buffer is full. cancel releases the subscription.
func (c *Client) Events() (<-chan SyncEvent, func()) {
	ch := make(chan SyncEvent, c.opts.EventBuffer)
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Client) publish(event SyncEvent) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- event:
		default:
			logging.WarnWithContext(c.logger, "sync event dropped", "sync_event_dropped",
				logging.String(logging.FieldActionID, event.Action.ID),
				logging.String(logging.FieldImpact, "a subscriber missed a completion notice"),
				logging.String(logging.FieldErrorHint, "drain the Events channel promptly"),
			)
		}
	}
}

// Sync replays the offline queue against the live backend and publishes an
// event for every entry that was confirmed or failed permanently.
func (c *Client) Sync(ctx context.Context) (queue.DrainReport, error) {
	report, err := c.queue.Drain(ctx, c.replay)
	for _, outcome := range report.Outcomes {
		var result envelope.Result[json.RawMessage]
		switch outcome.Result {
		case queue.OutcomeConfirmed:
			result = envelope.Ok(outcome.Data)
		case queue.OutcomeFailedPermanent:
			result = envelope.Fail[json.RawMessage](outcome.Err)
		default:
			continue
		}
		result.ActionID = outcome.Action.ID
		c.publish(SyncEvent{Action: outcome.Action, Result: result})
	}
	if report.Blocked != nil {
		logging.WarnWithContext(c.logger, "offline queue blocked by failed action", "queue_blocked",
			logging.String(logging.FieldActionID, report.Blocked.ID),
			logging.String(logging.FieldActionType, report.Blocked.ActionType),
			logging.String("last_error", report.Blocked.LastError),
			logging.String(logging.FieldImpact, "later queued actions wait until this one is resolved"),
			logging.String(logging.FieldErrorHint, "portalsync queue retry or portalsync queue remove"),
		)
	}
	return report, err
}

func (c *Client) replay(ctx context.Context, action queue.QueuedAction) (json.RawMessage, error) {
	req := backend.Request{ActionType: action.ActionType, Payload: action.Payload}
	live := c.selector.Live()
	if replayer, ok := live.(backend.Replayer); ok {
		return replayer.Replay(ctx, req)
	}
	return live.Call(ctx, req)
}

// Run keeps the queue draining until ctx is cancelled: once at start, on every
// transition to online, after new actions are deferred, and when a scheduled
// retry becomes due. Drains are skipped while offline.
func (c *Client) Run(ctx context.Context) error {
	transitions, cancel := c.monitor.Subscribe()
	defer cancel()

	retry := time.NewTimer(time.Hour)
	retry.Stop()
	defer retry.Stop()

	c.runOnce(ctx, retry)
	for {
		select {
		case <-ctx.Done():
			return nil
		case online := <-transitions:
			if online {
				c.runOnce(ctx, retry)
			}
		case <-c.wake:
			c.runOnce(ctx, retry)
		case <-retry.C:
			c.runOnce(ctx, retry)
		}
	}
}

func (c *Client) runOnce(ctx context.Context, retry *time.Timer) {
	if !c.monitor.Online() || c.queue.Size() == 0 {
		return
	}
	report, err := c.Sync(ctx)
	switch {
	case errors.Is(err, queue.ErrDrainInProgress), errors.Is(err, context.Canceled):
		return
	case err != nil:
		logging.ErrorWithContext(c.logger, "offline queue sync failed", "sync_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run portalsync doctor"),
		)
	}
	if !report.NextRetryAt.IsZero() {
		retry.Reset(max(time.Until(report.NextRetryAt), 0))
		c.logger.Debug("next replay scheduled", logging.Time("next_attempt_at", report.NextRetryAt))
	}
	if n := report.Confirmed(); n > 0 {
		c.logger.Info("offline queue synced",
			logging.String(logging.FieldEventType, "queue_synced"),
			logging.Int("confirmed", n),
			logging.Int("remaining", report.Remaining),
		)
	}
}
