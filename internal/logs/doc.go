// Package logs reads the agent log file for the `portalsync logs` command.
//
// Last returns the trailing lines with bounded memory, Follow streams lines
// appended after an offset until its context ends, and Filter narrows output
// to one queued action by matching its action_id in console or JSON lines.
package logs
