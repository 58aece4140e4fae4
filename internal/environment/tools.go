package environment

import (
	"context"
	"fmt"

	"github.com/spachava753/taskrun/internal/vcs"
)

// Tools are the read-only helpers offered to in-process bodies. Tools
// remembers the status of the last command it ran so a body that returns
// nothing explicit inherits it.
type Tools struct {
	inv        Invocation
	env        map[string]string
	lastStatus int
}

// NewTools prepares the helpers for inv.
func NewTools(ctx context.Context, inv Invocation) (*Tools, error) {
	env, err := ContextEnv(ctx, inv)
	if err != nil {
		return nil, err
	}
	return &Tools{inv: inv, env: env}, nil
}

// ProjectRoot returns the project root.
func (t *Tools) ProjectRoot() string {
	return t.inv.ProjectRoot
}

// GitStatus returns "clean" or "dirty" for the project working tree.
func (t *Tools) GitStatus(ctx context.Context) (string, error) {
	if t.inv.VCS == nil {
		return "", fmt.Errorf("no version control available")
	}
	clean, err := t.inv.VCS.Clean(ctx, t.inv.ProjectRoot)
	if err != nil {
		return "", err
	}
	return vcs.Status(clean), nil
}

// Exec runs a command in the task directory and records its status.
func (t *Tools) Exec(ctx context.Context, name string, args ...string) (int, error) {
	code, err := Exec(ctx, Command{
		Name:   name,
		Args:   args,
		Dir:    t.inv.WorkDir,
		Env:    t.env,
		Stdout: t.inv.Stdout,
		Stderr: t.inv.Stderr,
		Limits: t.inv.Limits,
	})
	t.lastStatus = code
	return code, err
}

// LastStatus returns the exit code of the most recent Exec, 0 if none ran.
func (t *Tools) LastStatus() int {
	return t.lastStatus
}
