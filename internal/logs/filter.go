package logs

import (
	"encoding/json"
	"strings"

	"portalsync/internal/logging"
)

// Filter selects log lines. The zero value matches everything.
type Filter struct {
	ActionID string
	// MinLevel drops lines below the given level (DEBUG, INFO, WARN, ERROR).
	MinLevel string
}

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// Match reports whether line passes the filter. Console and JSON lines are
// both understood.
func (f Filter) Match(line string) bool {
	if f.ActionID == "" && f.MinLevel == "" {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(line), "{") {
		return f.matchJSON(line)
	}
	if f.ActionID != "" && !strings.Contains(line, " "+logging.FieldActionID+"="+f.ActionID) {
		return false
	}
	if f.MinLevel != "" {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return false
		}
		return rankAtLeast(fields[1], f.MinLevel)
	}
	return true
}

func (f Filter) matchJSON(line string) bool {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return false
	}
	if f.ActionID != "" {
		if id, _ := record[logging.FieldActionID].(string); id != f.ActionID {
			return false
		}
	}
	if f.MinLevel != "" {
		level, _ := record["level"].(string)
		return rankAtLeast(level, f.MinLevel)
	}
	return true
}

func rankAtLeast(level, minimum string) bool {
	got, ok := levelRank[strings.ToUpper(level)]
	if !ok {
		return false
	}
	return got >= levelRank[strings.ToUpper(minimum)]
}
