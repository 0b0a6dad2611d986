package queue

import (
	"context"
	"slices"
	"time"

	"portalsync/internal/logging"
)

// Abandon removes every entry that is not currently in flight without
// attempting it and returns how many were removed.
func (q *Queue) Abandon(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.loaded {
		return 0, ErrNotLoaded
	}

	next := make([]QueuedAction, 0, 1)
	for _, action := range q.actions {
		if action.Status == StatusInFlight {
			next = append(next, action)
		}
	}
	removed := len(q.actions) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := q.commitLocked(ctx, next); err != nil {
		return 0, err
	}
	q.observeDepthLocked()
	logging.WarnWithContext(q.logger, "offline queue discarded", "queue_abandoned",
		logging.Int("removed", removed),
		logging.String(logging.FieldImpact, "discarded actions will never reach the backend"),
		logging.String(logging.FieldErrorHint, "none; requested by the user"),
	)
	return removed, nil
}

// Remove discards a single entry. The entry currently in flight cannot be
// removed.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.loaded {
		return ErrNotLoaded
	}

	idx := q.indexLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	if q.actions[idx].Status == StatusInFlight {
		return ErrInFlight
	}
	next := slices.Delete(slices.Clone(q.actions), idx, idx+1)
	if err := q.commitLocked(ctx, next); err != nil {
		return err
	}
	q.observeDepthLocked()
	q.logger.Info("queued action removed",
		logging.String(logging.FieldEventType, "action_removed"),
		logging.String(logging.FieldActionID, id),
	)
	return nil
}

// Retry returns failed_permanent entries to pending with their attempts reset.
// With no ids every failed entry is retried. Unknown ids yield ErrNotFound.
// The number of revived entries is returned.
func (q *Queue) Retry(ctx context.Context, ids ...string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.loaded {
		return 0, ErrNotLoaded
	}

	for _, id := range ids {
		if q.indexLocked(id) < 0 {
			return 0, ErrNotFound
		}
	}

	next := slices.Clone(q.actions)
	revived := 0
	for i := range next {
		if next[i].Status != StatusFailedPermanent {
			continue
		}
		if len(ids) > 0 && !slices.Contains(ids, next[i].ID) {
			continue
		}
		next[i].Status = StatusPending
		next[i].Attempts = 0
		next[i].LastError = ""
		next[i].NextAttemptAt = time.Time{}
		revived++
	}
	if revived == 0 {
		return 0, nil
	}
	if err := q.commitLocked(ctx, next); err != nil {
		return 0, err
	}
	q.logger.Info("failed actions returned to pending",
		logging.String(logging.FieldEventType, "actions_retried"),
		logging.Int("count", revived),
	)
	return revived, nil
}
