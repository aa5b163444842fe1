// Package observability provides the JSONL event log, metrics derived from
// it, and alerts derived from the task graph.
package observability
