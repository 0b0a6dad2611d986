package api

import (
	"encoding/json"
	"time"

	"portalsync/internal/queue"
)

// QueueEntry is the transport representation of a queued action.
type QueueEntry struct {
	ID            string          `json:"id"`
	ActionType    string          `json:"actionType"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	EnqueuedAt    string          `json:"enqueuedAt"`
	NextAttemptAt string          `json:"nextAttemptAt,omitempty"`
	LastError     string          `json:"lastError,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// FromQueuedAction converts a queue entry for output.
func FromQueuedAction(action queue.QueuedAction) QueueEntry {
	return QueueEntry{
		ID:            action.ID,
		ActionType:    action.ActionType,
		Status:        string(action.Status),
		Attempts:      action.Attempts,
		EnqueuedAt:    formatTime(action.EnqueuedAt),
		NextAttemptAt: formatTime(action.NextAttemptAt),
		LastError:     action.LastError,
		Payload:       action.Payload,
	}
}

// FromQueuedActions converts entries preserving order.
func FromQueuedActions(actions []queue.QueuedAction) []QueueEntry {
	out := make([]QueueEntry, 0, len(actions))
	for _, action := range actions {
		out = append(out, FromQueuedAction(action))
	}
	return out
}

// StatusSummary is the combined view rendered by the status command.
type StatusSummary struct {
	Mode            string `json:"mode"`
	Online          bool   `json:"online"`
	LiveURL         string `json:"liveUrl,omitempty"`
	Queued          int    `json:"queued"`
	Pending         int    `json:"pending"`
	InFlight        int    `json:"inFlight"`
	FailedPermanent int    `json:"failedPermanent"`
	OldestQueuedAt  string `json:"oldestQueuedAt,omitempty"`
}

// Summary captures the client's current state.
func (c *Client) Summary(mode string, liveURL string) StatusSummary {
	stats := c.queue.Stats()
	return StatusSummary{
		Mode:            mode,
		Online:          c.monitor.Online(),
		LiveURL:         liveURL,
		Queued:          stats.Total,
		Pending:         stats.Pending,
		InFlight:        stats.InFlight,
		FailedPermanent: stats.FailedPermanent,
		OldestQueuedAt:  formatTime(stats.Oldest),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
