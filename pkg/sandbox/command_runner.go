package sandbox

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandRunner abstracts subprocess execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr string, err error)
}

// ExecCommandRunner implements CommandRunner using exec.CommandContext with
// a scrubbed environment: the child inherits nothing from the parent except
// a minimal PATH.
type ExecCommandRunner struct{}

// Run executes a command with the given arguments.
func (r *ExecCommandRunner) Run(ctx context.Context, name string, args []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = []string{"PATH=/usr/local/bin:/usr/bin:/bin", "LC_ALL=C.UTF-8"}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	return stdoutBuf.String(), stderrBuf.String(), err
}
