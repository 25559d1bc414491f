// Package tool contains the pluggable capabilities of the extraction
// pipeline: LLM entity extraction, reference-code lookup, and output
// validation.
//
// Every capability implements the same non-throwing contract: Execute returns
// a Result carrying success, payload, and error, never a panic and never an
// error return. The orchestrator branches on the result tag, so all failure
// modes (empty input, network timeout, malformed upstream response, parse
// failure) surface uniformly.
//
// Batch-capable tools additionally implement BatchTool. ExecuteBatch
// preserves input order and isolates per-item failures: a panic or timeout in
// one fan-out goroutine becomes a failed Result at that index, not a
// batch-wide fault.
package tool

import (
	"context"
	"fmt"
	"time"
)

// Result is the uniform outcome of a tool execution.
// Success implies Error is empty. Metadata always carries a creation
// timestamp. A Result is immutable once constructed.
type Result struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// OK creates a successful result. Trailing arguments are metadata key/value
// pairs.
func OK(data any, kv ...any) Result {
	return Result{Success: true, Data: data, Metadata: metadata(kv)}
}

// Fail creates a failed result. Trailing arguments are metadata key/value
// pairs.
func Fail(errMsg string, kv ...any) Result {
	return Result{Success: false, Error: errMsg, Metadata: metadata(kv)}
}

// Failf creates a failed result with a formatted message.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

func metadata(kv []any) map[string]any {
	m := make(map[string]any, len(kv)/2+1)
	m["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[key] = kv[i+1]
	}
	return m
}

// Tool is a pluggable unit of work with a uniform execution contract.
//
// Implementations must be safe for concurrent use and must never panic or
// return-by-error: all expected failure modes are captured in the Result.
type Tool interface {
	// Name is the unique identifier of the tool, recorded in trajectories.
	Name() string
	// Description is a human-readable summary of what the tool does.
	Description() string
	// Execute runs the tool. The input type depends on the specific tool;
	// an unsupported input yields a failed Result.
	Execute(ctx context.Context, input any) Result
}

// BatchTool extends Tool for capabilities that process many items
// concurrently, such as code lookups.
type BatchTool interface {
	Tool
	// ExecuteBatch processes all items concurrently and returns one Result
	// per item, in input order. Individual failures never abort the batch.
	ExecuteBatch(ctx context.Context, items []string) []Result
}

// runBatch fans out fn over items and gathers results preserving input
// order. A panic inside fn is recovered into a failed Result for that index.
func runBatch(ctx context.Context, items []string, fn func(ctx context.Context, item string) Result) []Result {
	results := make([]Result, len(items))
	done := make(chan int, len(items))

	for i, item := range items {
		go func(idx int, term string) {
			defer func() {
				if r := recover(); r != nil {
					results[idx] = Failf("batch lookup panicked: %v", r)
				}
				done <- idx
			}()
			results[idx] = fn(ctx, term)
		}(i, item)
	}

	for range items {
		<-done
	}
	return results
}
