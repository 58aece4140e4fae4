package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spachava753/taskrun/internal/config"
	"github.com/spachava753/taskrun/internal/environment"
	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/security"
	"github.com/spachava753/taskrun/internal/vcs"
)

// DefaultTaskExecutor runs built-ins in-process and external bodies through
// their runtime.
type DefaultTaskExecutor struct {
	ProjectRoot   string
	TaskDirectory string
	Config        *config.Provider
	Runtimes      environment.Runtimes
	VCS           vcs.Prober
	Limits        environment.OutputLimits
	Stdout        io.Writer
	Stderr        io.Writer
}

// Execute runs t and returns the result. Script path violations and
// configuration failures are returned as errors; everything the body itself
// does wrong is reported in the result.
func (e *DefaultTaskExecutor) Execute(ctx context.Context, t *models.Task, args []string) (*models.TaskResult, error) {
	result := &models.TaskResult{
		Name:      t.Name(),
		StartedAt: time.Now(),
	}
	defer func() {
		result.EndedAt = time.Now()
		result.DurationSec = result.EndedAt.Sub(result.StartedAt).Seconds()
	}()

	var code int
	var err error
	if t.IsBuiltIn {
		code, err = e.runBuiltin(ctx, t, args)
	} else {
		code, err = e.runExternal(ctx, t, args)
	}

	if models.IsType(err, models.ErrScriptPathViolation) || models.IsType(err, models.ErrDirectoryTraversalRejected) {
		return nil, err
	}

	result.ExitCode = code
	if err == nil && code != 0 {
		err = models.NewError(models.ErrTaskBodyFailure, t.Name(), fmt.Errorf("exit status %d", code))
	}
	if err != nil {
		if !models.IsType(err, models.ErrTaskBodyFailure) {
			err = models.NewError(models.ErrTaskBodyFailure, t.Name(), err)
		}
		slog.Error("task failed", "task", t.Name(), "exit_code", code, "error", err)
		result.Status = models.StatusFailed
		result.Error = err.Error()
		return result, nil
	}

	result.Status = models.StatusSucceeded
	return result, nil
}

func (e *DefaultTaskExecutor) runBuiltin(ctx context.Context, t *models.Task, args []string) (int, error) {
	obj, err := e.Config.ForTask(ctx, e.ProjectRoot, e.TaskDirectory, "", t.Name())
	if err != nil {
		return -1, err
	}
	tc := &models.TaskContext{
		Name:        t.Name(),
		Config:      obj,
		Args:        args,
		ProjectRoot: e.ProjectRoot,
		Stdout:      e.Stdout,
		Stderr:      e.Stderr,
	}
	if err := t.Builtin(ctx, tc); err != nil {
		return 1, err
	}
	return 0, nil
}

func (e *DefaultTaskExecutor) runExternal(ctx context.Context, t *models.Task, args []string) (int, error) {
	if !security.ValidateScriptPath(t.Path, e.ProjectRoot) {
		return -1, models.NewError(models.ErrScriptPathViolation, t.Path, nil)
	}
	rt, err := e.Runtimes.For(t.Kind)
	if err != nil {
		return -1, err
	}
	obj, err := e.Config.ForTask(ctx, e.ProjectRoot, e.TaskDirectory, t.Dir(), t.Name())
	if err != nil {
		return -1, err
	}

	slog.Debug("running task body", "task", t.Name(), "runtime", rt.Name(), "path", t.Path)
	return rt.Run(ctx, environment.Invocation{
		TaskName:    t.Name(),
		Path:        t.Path,
		WorkDir:     t.Dir(),
		Args:        args,
		Config:      obj,
		ProjectRoot: e.ProjectRoot,
		VCS:         e.VCS,
		Limits:      e.Limits,
		Stdout:      e.Stdout,
		Stderr:      e.Stderr,
	})
}
