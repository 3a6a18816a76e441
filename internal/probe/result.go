// Package probe executes live network-condition measurements for the six
// trigger kinds and memoizes their results. Probes never return errors to
// the caller: every failure mode (timeout, network error, abort, malformed
// input) is captured as a Result with Success=false.
package probe

import "time"

// Result is an immutable snapshot of one probe execution.
type Result struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func succeed(ts time.Time, data map[string]any) Result {
	return Result{Success: true, Data: data, Timestamp: ts}
}

func fail(ts time.Time, errMsg string, data map[string]any) Result {
	return Result{Success: false, Data: data, Error: errMsg, Timestamp: ts}
}
