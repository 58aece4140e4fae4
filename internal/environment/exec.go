package environment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"

	"github.com/spachava753/taskrun/internal/security"
	"github.com/spachava753/taskrun/internal/vcs"
)

// Environment variables through which external bodies receive their context.
const (
	EnvConfig         = "TASKRUN_CONFIG"
	EnvTaskName       = "TASKRUN_TASK_NAME"
	EnvTaskScriptRoot = "TASKRUN_TASK_SCRIPT_ROOT"
	EnvProjectRoot    = "TASKRUN_PROJECT_ROOT"
	EnvGitStatus      = "TASKRUN_GIT_STATUS"
)

// Command describes one sub-process.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
	Limits OutputLimits
}

// ContextEnv returns the variables that carry inv's context to a
// sub-process. EnvGitStatus is set only when the working tree state is known.
func ContextEnv(ctx context.Context, inv Invocation) (map[string]string, error) {
	cfg, err := json.Marshal(inv.Config)
	if err != nil {
		return nil, fmt.Errorf("serializing configuration: %w", err)
	}
	env := map[string]string{
		EnvConfig:         string(cfg),
		EnvTaskName:       inv.TaskName,
		EnvTaskScriptRoot: inv.WorkDir,
		EnvProjectRoot:    inv.ProjectRoot,
	}
	if inv.VCS != nil {
		clean, err := inv.VCS.Clean(ctx, inv.ProjectRoot)
		if err != nil {
			slog.Debug("working tree status unavailable", "task", inv.TaskName, "error", err)
		} else {
			env[EnvGitStatus] = vcs.Status(clean)
		}
	}
	return env, nil
}

// Exec runs c and returns its exit code. A non-zero exit is reported
// through the code, not as an error. Output is buffered and written through
// the sanitizer once the process exits.
func Exec(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, c.Env[k]))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	writeSanitized(c.Stdout, stdout.String(), c.Limits)
	writeSanitized(c.Stderr, stderr.String(), c.Limits)

	if err != nil {
		if ctx.Err() != nil {
			return -1, fmt.Errorf("command interrupted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("executing command: %w", err)
	}
	return 0, nil
}

func writeSanitized(w io.Writer, text string, limits OutputLimits) {
	if w == nil || text == "" {
		return
	}
	out := security.SanitizeOutput(text, limits.MaxLength, limits.MaxLines)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out += "\n"
	}
	io.WriteString(w, out)
}
