package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"portalsync/internal/logging"
	"portalsync/internal/services"
)

// Executor performs one queued action against the live backend and returns
// the backend response.
type Executor func(ctx context.Context, action QueuedAction) (json.RawMessage, error)

// Drain replays queued actions in enqueue order, one at a time, until the
// queue is empty, an entry fails, the head is waiting out its backoff, or the
// head is failed_permanent. Only one drain runs at a time; a concurrent call
// returns ErrDrainInProgress. Cancellation is checked between entries and an
// entry already handed to the executor is allowed to finish.
func (q *Queue) Drain(ctx context.Context, exec Executor) (DrainReport, error) {
	q.mu.Lock()
	if !q.loaded {
		q.mu.Unlock()
		return DrainReport{}, ErrNotLoaded
	}
	if q.draining {
		q.mu.Unlock()
		return DrainReport{}, ErrDrainInProgress
	}
	q.draining = true
	q.mu.Unlock()

	var report DrainReport
	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			report.Remaining = q.Size()
			return report, err
		}

		action, stop, err := q.beginNext(ctx, &report)
		if err != nil || stop {
			report.Remaining = q.Size()
			return report, err
		}

		callCtx := services.WithActionType(services.WithActionID(context.WithoutCancel(ctx), action.ID), action.ActionType)
		data, execErr := exec(callCtx, action)

		halt, err := q.finish(ctx, action, data, execErr, &report)
		if err != nil || halt {
			report.Remaining = q.Size()
			return report, err
		}
	}
}

// beginNext marks the head entry in flight and persists that mark. stop is
// true when there is nothing eligible to replay.
func (q *Queue) beginNext(ctx context.Context, report *DrainReport) (QueuedAction, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return QueuedAction{}, true, nil
	}
	head := q.actions[0]
	switch {
	case head.Status == StatusFailedPermanent:
		blocked := head.clone()
		report.Blocked = &blocked
		return QueuedAction{}, true, nil
	case !head.NextAttemptAt.IsZero() && q.opts.Now().Before(head.NextAttemptAt):
		report.NextRetryAt = head.NextAttemptAt
		return QueuedAction{}, true, nil
	}

	next := make([]QueuedAction, len(q.actions))
	copy(next, q.actions)
	next[0].Status = StatusInFlight
	if err := q.commitLocked(ctx, next); err != nil {
		return QueuedAction{}, true, err
	}
	return next[0].clone(), false, nil
}

// finish records the executor result for action. halt is true when the drain
// should stop after this entry.
func (q *Queue) finish(ctx context.Context, action QueuedAction, data json.RawMessage, execErr error, report *DrainReport) (bool, error) {
	// The in-flight entry is always the head: Remove and Abandon skip it and
	// enqueues append at the tail.
	ctx = context.WithoutCancel(ctx)
	logger := logging.WithContext(services.WithActionID(ctx, action.ID), q.logger).With(
		logging.String(logging.FieldActionType, action.ActionType),
	)

	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexLocked(action.ID)
	if idx < 0 {
		return true, fmt.Errorf("in-flight action %s disappeared: %w", action.ID, ErrNotFound)
	}

	if execErr == nil {
		next := make([]QueuedAction, 0, len(q.actions)-1)
		next = append(next, q.actions[:idx]...)
		next = append(next, q.actions[idx+1:]...)
		if err := q.commitLocked(ctx, next); err != nil {
			// The backend already accepted the action; it stays queued and is
			// sent again later, which the at-least-once contract allows.
			q.actions[idx].Status = StatusPending
			return true, err
		}
		q.record(report, Outcome{Action: action, Result: OutcomeConfirmed, Data: data})
		logger.Info("queued action confirmed",
			logging.String(logging.FieldEventType, "action_confirmed"),
			logging.Int(logging.FieldAttempts, action.Attempts+1),
		)
		return false, nil
	}

	next := make([]QueuedAction, len(q.actions))
	copy(next, q.actions)
	entry := &next[idx]
	entry.Attempts++
	entry.LastError = execErr.Error()

	var outcome Outcome
	switch {
	case !services.IsConnectivity(execErr):
		entry.Status = StatusFailedPermanent
		entry.NextAttemptAt = time.Time{}
		outcome = Outcome{Result: OutcomeFailedPermanent, Err: execErr}
	case q.opts.MaxAttempts > 0 && entry.Attempts >= q.opts.MaxAttempts:
		entry.Status = StatusFailedPermanent
		entry.NextAttemptAt = time.Time{}
		outcome = Outcome{
			Result: OutcomeFailedPermanent,
			Err: services.Wrap(services.ErrExhausted, "queue", "replay",
				fmt.Sprintf("gave up after %d attempts", entry.Attempts), execErr),
		}
	default:
		entry.Status = StatusPending
		entry.NextAttemptAt = q.opts.Now().UTC().Add(q.backoff(entry.Attempts))
		report.NextRetryAt = entry.NextAttemptAt
		outcome = Outcome{Result: OutcomeRetryScheduled, Err: execErr}
	}

	if err := q.commitLocked(ctx, next); err != nil {
		q.actions[idx].Status = StatusPending
		return true, err
	}
	outcome.Action = next[idx].clone()
	q.record(report, outcome)

	if outcome.Result == OutcomeFailedPermanent {
		logging.ErrorWithContext(logger, "queued action failed permanently", "action_failed_permanent",
			logging.Int(logging.FieldAttempts, next[idx].Attempts),
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, "retry or remove the action with portalsync queue retry|remove"),
		)
	} else {
		logging.WarnWithContext(logger, "queued action replay deferred", "action_retry_scheduled",
			logging.Int(logging.FieldAttempts, next[idx].Attempts),
			logging.Time("next_attempt_at", next[idx].NextAttemptAt),
			logging.Error(execErr),
			logging.String(logging.FieldImpact, "queued actions wait until the backend is reachable"),
			logging.String(logging.FieldErrorHint, "check connectivity to the live backend"),
		)
	}
	return true, nil
}

func (q *Queue) record(report *DrainReport, outcome Outcome) {
	report.Outcomes = append(report.Outcomes, outcome)
	if q.opts.Observer != nil {
		q.opts.Observer.ActionReplayed(outcome.Action.ActionType, outcome.Result)
		q.opts.Observer.QueueDepth(len(q.actions))
	}
}
