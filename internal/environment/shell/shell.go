// Package shell runs task bodies written as shell scripts.
package shell

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spachava753/taskrun/internal/environment"
	"github.com/spachava753/taskrun/internal/models"
)

// DefaultInterpreter is used when none is configured.
const DefaultInterpreter = "bash"

// Runtime runs scripts as `<interpreter> <file> args...`.
type Runtime struct {
	interpreter []string
}

// New creates a shell runtime. interpreter may carry flags, e.g. "bash -e".
func New(interpreter string) *Runtime {
	fields := strings.Fields(interpreter)
	if len(fields) == 0 {
		fields = []string{DefaultInterpreter}
	}
	return &Runtime{interpreter: fields}
}

func (r *Runtime) Name() string { return "shell" }

func (r *Runtime) Kind() models.BodyKind { return models.KindShell }

// Run executes the script. The configuration object reaches the script only
// through environment variables; the script text is never rewritten.
func (r *Runtime) Run(ctx context.Context, inv environment.Invocation) (int, error) {
	env, err := environment.ContextEnv(ctx, inv)
	if err != nil {
		return -1, err
	}

	args := append([]string{}, r.interpreter[1:]...)
	args = append(args, inv.Path)
	args = append(args, inv.Args...)

	slog.Debug("running shell task", "task", inv.TaskName, "interpreter", r.interpreter[0], "path", inv.Path)
	return environment.Exec(ctx, environment.Command{
		Name:   r.interpreter[0],
		Args:   args,
		Dir:    inv.WorkDir,
		Env:    env,
		Stdout: inv.Stdout,
		Stderr: inv.Stderr,
		Limits: inv.Limits,
	})
}
