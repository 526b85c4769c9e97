// Package sandbox runs validated transformation code in an isolated
// subprocess. The process gets a scrubbed environment, a hard wall-clock
// timeout, and a fixed wrapper that binds the input records to a pandas
// DataFrame and serializes the `result` variable back out. Temporary
// artifacts are removed on every exit path.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jsperson/chathero/pkg/record"
)

// DefaultTimeout is the hard wall-clock ceiling for one execution.
const DefaultTimeout = 10 * time.Second

// runnerTemplate is the fixed wrapper around the validated snippet. The
// snippet runs verbatim between the load and serialize steps; `result` is
// the designated output variable.
const runnerTemplate = `import json

import numpy as np
import pandas as pd

with open(%q) as _f:
    _records = json.load(_f)
df = pd.DataFrame(_records)

%s

with open(%q, "w") as _f:
    json.dump(result, _f, default=str)
`

// Result is the outcome of a sandboxed execution.
type Result struct {
	Success bool
	Records []record.Record
	Error   string
}

// Executor runs transformation code against records.
type Executor struct {
	runner    CommandRunner
	log       *slog.Logger
	pythonBin string
	timeout   time.Duration
}

// NewExecutor creates an Executor with the default python runner and timeout.
func NewExecutor(log *slog.Logger) *Executor {
	return &Executor{
		runner:    &ExecCommandRunner{},
		log:       log,
		pythonBin: "python3",
		timeout:   DefaultTimeout,
	}
}

// NewExecutorWithRunner creates an Executor with a custom command runner,
// used by tests.
func NewExecutorWithRunner(log *slog.Logger, runner CommandRunner, timeout time.Duration) *Executor {
	return &Executor{
		runner:    runner,
		log:       log,
		pythonBin: "python3",
		timeout:   timeout,
	}
}

// Execute runs a validated snippet against the input records.
func (e *Executor) Execute(ctx context.Context, code string, records []record.Record) Result {
	dir, err := os.MkdirTemp("", "chathero-sandbox-*")
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to create sandbox dir: %v", err)}
	}
	// All temp artifacts live in dir; this covers success, failure,
	// timeout, and panic paths alike.
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "input.json")
	outputPath := filepath.Join(dir, "output.json")
	scriptPath := filepath.Join(dir, "runner.py")

	inputData, err := json.Marshal(records)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to encode input records: %v", err)}
	}
	if err := os.WriteFile(inputPath, inputData, 0o600); err != nil {
		return Result{Error: fmt.Sprintf("failed to write input: %v", err)}
	}

	script := fmt.Sprintf(runnerTemplate, inputPath, code, outputPath)
	if err := os.WriteFile(scriptPath, []byte(script), 0o600); err != nil {
		return Result{Error: fmt.Sprintf("failed to write runner: %v", err)}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := e.runner.Run(runCtx, e.pythonBin, []string{scriptPath})
	duration := time.Since(start)

	if err != nil {
		errMsg := combineOutput(stdout, stderr)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			errMsg = fmt.Sprintf("execution timed out after %s", e.timeout)
		} else if errMsg == "" {
			errMsg = err.Error()
		}
		e.log.Info("sandbox: execution failed", "duration", duration, "error", errMsg)
		return Result{Error: errMsg}
	}

	outputData, err := os.ReadFile(outputPath)
	if err != nil {
		return Result{Error: "transformation produced no output (did the code assign `result`?)"}
	}

	out, err := decodeOutput(outputData)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to decode output: %v", err)}
	}

	e.log.Info("sandbox: execution succeeded", "duration", duration, "rows", len(out))
	return Result{Success: true, Records: out}
}

// decodeOutput normalizes the serialized `result` variable to records. The
// snippet may produce an array of objects, a single object, or a scalar.
func decodeOutput(data []byte) ([]record.Record, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case []any:
		out := make([]record.Record, 0, len(x))
		for i, item := range x {
			if m, ok := item.(map[string]any); ok {
				out = append(out, record.Record(m))
			} else {
				out = append(out, record.Record{"value": item, "index": float64(i)})
			}
		}
		return out, nil
	case map[string]any:
		return []record.Record{record.Record(x)}, nil
	default:
		return []record.Record{{"result": v}}, nil
	}
}

// combineOutput merges trimmed stderr and stdout, stderr first, capped so a
// chatty traceback cannot flood the retry prompt.
func combineOutput(stdout, stderr string) string {
	parts := []string{}
	if s := strings.TrimSpace(stderr); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(stdout); s != "" {
		parts = append(parts, s)
	}
	combined := strings.Join(parts, "\n")
	if len(combined) > 2000 {
		combined = combined[:2000] + "..."
	}
	return combined
}
