package api

import (
	"context"
	"errors"

	"portalsync/internal/queue"
)

// Pending returns every queued action in replay order.
func (c *Client) Pending() []queue.QueuedAction {
	return c.queue.PeekAll()
}

// Stats returns queue counts for badges.
func (c *Client) Stats() queue.Stats {
	return c.queue.Stats()
}

// Discard drops every queued action that is not being replayed right now.
func (c *Client) Discard(ctx context.Context) (int, error) {
	return c.queue.Abandon(ctx)
}

// RetryItemOutcome describes what happened to one id passed to RetryFailed.
type RetryItemOutcome string

const (
	RetryItemUpdated   RetryItemOutcome = "retried"
	RetryItemNotFound  RetryItemOutcome = "not_found"
	RetryItemNotFailed RetryItemOutcome = "not_failed"
)

// RetryItemResult is the per-id outcome of RetryFailed.
type RetryItemResult struct {
	ID      string           `json:"id"`
	Outcome RetryItemOutcome `json:"outcome"`
}

// RetryItemsResult summarizes RetryFailed.
type RetryItemsResult struct {
	UpdatedCount int               `json:"updatedCount"`
	Items        []RetryItemResult `json:"items"`
}

// RetryFailed returns failed_permanent actions to pending. With no ids every
// failed action is retried.
func (c *Client) RetryFailed(ctx context.Context, ids ...string) (RetryItemsResult, error) {
	if len(ids) == 0 {
		n, err := c.queue.Retry(ctx)
		if err != nil {
			return RetryItemsResult{}, err
		}
		if n > 0 {
			c.nudge()
		}
		return RetryItemsResult{UpdatedCount: n, Items: []RetryItemResult{}}, nil
	}

	status := make(map[string]queue.Status)
	for _, action := range c.queue.PeekAll() {
		status[action.ID] = action.Status
	}
	result := RetryItemsResult{Items: make([]RetryItemResult, 0, len(ids))}
	var eligible []string
	for _, id := range ids {
		current, ok := status[id]
		switch {
		case !ok:
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFound})
		case current != queue.StatusFailedPermanent:
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFailed})
		default:
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemUpdated})
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return result, nil
	}
	n, err := c.queue.Retry(ctx, eligible...)
	if err != nil {
		return RetryItemsResult{}, err
	}
	result.UpdatedCount = n
	c.nudge()
	return result, nil
}

// RemoveOutcome describes the result of Remove.
type RemoveOutcome string

const (
	RemoveItemRemoved  RemoveOutcome = "removed"
	RemoveItemNotFound RemoveOutcome = "not_found"
	RemoveItemInFlight RemoveOutcome = "in_flight"
)

// Remove discards one queued action.
func (c *Client) Remove(ctx context.Context, id string) (RemoveOutcome, error) {
	err := c.queue.Remove(ctx, id)
	switch {
	case err == nil:
		c.nudge()
		return RemoveItemRemoved, nil
	case errors.Is(err, queue.ErrNotFound):
		return RemoveItemNotFound, nil
	case errors.Is(err, queue.ErrInFlight):
		return RemoveItemInFlight, nil
	default:
		return "", err
	}
}
