package queue

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle of a queued action. Confirmed actions are
// removed rather than kept with a terminal status.
type Status string

const (
	StatusPending         Status = "pending"
	StatusInFlight        Status = "in_flight"
	StatusFailedPermanent Status = "failed_permanent"
)

// known reports whether s is a status this build understands.
func (s Status) known() bool {
	switch s {
	case StatusPending, StatusInFlight, StatusFailedPermanent:
		return true
	default:
		return false
	}
}

// QueuedAction is one deferred mutating operation.
type QueuedAction struct {
	ID            string          `json:"id"`
	ActionType    string          `json:"action_type"`
	Payload       json.RawMessage `json:"payload"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	Attempts      int             `json:"attempts"`
	Status        Status          `json:"status"`
	LastError     string          `json:"last_error,omitempty"`
	NextAttemptAt time.Time       `json:"next_attempt_at,omitzero"`
}

func (a QueuedAction) clone() QueuedAction {
	if a.Payload != nil {
		a.Payload = append(json.RawMessage(nil), a.Payload...)
	}
	return a
}

// Outcome values reported for each replayed entry.
const (
	OutcomeConfirmed       = "confirmed"
	OutcomeRetryScheduled  = "retry_scheduled"
	OutcomeFailedPermanent = "failed_permanent"
)

// Outcome describes what happened to one entry during a drain.
type Outcome struct {
	Action QueuedAction
	Result string
	// Data is the backend response for confirmed entries.
	Data json.RawMessage
	// Err is the replay failure for entries that were not confirmed.
	Err error
}

// DrainReport summarizes a single Drain call.
type DrainReport struct {
	Outcomes []Outcome
	// Blocked is set when the drain stopped at a failed_permanent head entry.
	Blocked *QueuedAction
	// NextRetryAt is set when the drain stopped because the head entry is
	// waiting out its backoff window.
	NextRetryAt time.Time
	// Remaining is the queue size when the drain returned.
	Remaining int
}

// Confirmed returns how many entries were delivered.
func (r DrainReport) Confirmed() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Result == OutcomeConfirmed {
			count++
		}
	}
	return count
}

// Stats holds per-status counts for badges and status output.
type Stats struct {
	Total           int
	Pending         int
	InFlight        int
	FailedPermanent int
	Oldest          time.Time
}
