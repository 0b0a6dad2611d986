package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"portalsync/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portalsync.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestLastReturnsTrailingLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	lines, offset, err := logs.Last(path, 2, logs.Filter{})
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", offset)
	}

	lines, _, err = logs.Last(path, 10, logs.Filter{})
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 3 || lines[0] != "a" {
		t.Fatalf("expected every line when limit exceeds file, got %#v", lines)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5, logs.Filter{})
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result for missing file, got %#v %d %v", lines, offset, err)
	}
}

func TestFilterMatchesConsoleAndJSONLines(t *testing.T) {
	const id = "01890a5d-ac96-774b-bcce-b302099a8057"
	cases := []struct {
		name   string
		filter logs.Filter
		line   string
		want   bool
	}{
		{"zero filter", logs.Filter{}, "anything", true},
		{"console action", logs.Filter{ActionID: id}, "2026-01-01T00:00:00Z INFO queue: action queued action_id=" + id, true},
		{"console other action", logs.Filter{ActionID: id}, "2026-01-01T00:00:00Z INFO queue: action queued action_id=other", false},
		{"console level below", logs.Filter{MinLevel: "warn"}, "2026-01-01T00:00:00Z INFO queue: drained", false},
		{"console level at", logs.Filter{MinLevel: "warn"}, "2026-01-01T00:00:00Z ERROR api: sync failed", true},
		{"json action", logs.Filter{ActionID: id}, `{"level":"INFO","msg":"x","action_id":"` + id + `"}`, true},
		{"json level", logs.Filter{MinLevel: "error"}, `{"level":"WARN","msg":"x"}`, false},
		{"json garbage", logs.Filter{ActionID: id}, `{"level":`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Match(tc.line); got != tc.want {
				t.Fatalf("Match(%q) = %v, want %v", tc.line, got, tc.want)
			}
		})
	}
}

func TestFollowStreamsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	_, offset, err := logs.Last(path, 1, logs.Filter{})
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, logs.Filter{}, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\npart"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("expected only the completed appended line, got %#v", got)
	}
}
