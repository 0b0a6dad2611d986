// Command portalsync is the operator CLI for the resilient portal client.
//
// It loads configuration, opens the durable store under an exclusive lock,
// and exposes the API façade: issuing portal operations, switching between the
// demo and live backends, inspecting and resolving the offline queue, and a
// long-running `run` agent that probes connectivity and replays queued
// actions as soon as the live backend is reachable again.
package main
