package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"portalsync/internal/services"
)

// StorageKey is the key the queue document is stored under.
const StorageKey = "offline_queue"

const documentVersion = 1

// Storage is the durable key-value store the queue persists into.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

type document struct {
	Version int            `json:"version"`
	Actions []QueuedAction `json:"actions"`
}

func encodeDocument(actions []QueuedAction) ([]byte, error) {
	if actions == nil {
		actions = []QueuedAction{}
	}
	return json.Marshal(document{Version: documentVersion, Actions: actions})
}

// decodeDocument reads the known fields of any document version. Fields a
// newer writer added are ignored and dropped on the next write.
func decodeDocument(raw []byte) ([]QueuedAction, int, error) {
	if len(raw) == 0 {
		return nil, documentVersion, nil
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode queue document: %w", err)
	}
	return doc.Actions, doc.Version, nil
}

func storageFault(operation string, err error) error {
	if services.KindOf(err) == services.KindStorage {
		return fmt.Errorf("queue %s: %w", operation, err)
	}
	return services.Wrap(services.ErrStorage, "queue", operation, "", err)
}
