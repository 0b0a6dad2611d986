package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Backend executes catalog operations.
type Backend interface {
	Name() string
	Call(ctx context.Context, req Request) (json.RawMessage, error)
}

// Replayer is implemented by backends that pace replays of queued actions
// separately from interactive calls.
type Replayer interface {
	Replay(ctx context.Context, req Request) (json.RawMessage, error)
}

// Prober is implemented by backends that expose a reachability check.
type Prober interface {
	Probe(ctx context.Context) error
}

// Mode selects the active backend.
type Mode string

const (
	ModeDemo Mode = "demo"
	ModeLive Mode = "live"
)

// ParseMode validates a mode name.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeDemo:
		return ModeDemo, nil
	case ModeLive:
		return ModeLive, nil
	default:
		return "", fmt.Errorf("unknown backend mode %q (want demo or live)", value)
	}
}
