// Package envelope defines the uniform result shape returned by every
// client-facing operation, whatever backend served it and whatever the
// network state was.
package envelope

import "portalsync/internal/services"

// Result wraps the outcome of one operation. Data is meaningful only when
// Success is true and Error only when it is false. Offline marks a result that
// carries the caller's optimistic payload for an action that is queued and not
// yet confirmed by the live backend.
type Result[T any] struct {
	Success  bool          `json:"success"`
	Data     T             `json:"data,omitempty"`
	Error    string        `json:"error,omitempty"`
	Kind     services.Kind `json:"kind,omitempty"`
	Offline  bool          `json:"offline"`
	ActionID string        `json:"action_id,omitempty"`
}

// Ok returns a confirmed successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail returns a failed result classified by the error's kind.
func Fail[T any](err error) Result[T] {
	if err == nil {
		return Result[T]{Error: "unknown failure", Kind: services.KindApplication}
	}
	return Result[T]{Error: err.Error(), Kind: services.KindOf(err)}
}

// OfflineAck returns an optimistic result for an action accepted into the
// offline queue under actionID.
func OfflineAck[T any](data T, actionID string) Result[T] {
	return Result[T]{Success: true, Data: data, Offline: true, ActionID: actionID}
}

// Confirmed reports whether the result reflects an outcome acknowledged by the
// authoritative backend.
func (r Result[T]) Confirmed() bool {
	return r.Success && !r.Offline
}

// Err returns the failure as an error, or nil on success.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return &Failure{Kind: r.Kind, Message: r.Error}
}

// Failure is the error form of a failed result.
type Failure struct {
	Kind    services.Kind
	Message string
}

func (f *Failure) Error() string {
	if f.Kind == "" {
		return f.Message
	}
	return string(f.Kind) + ": " + f.Message
}
