package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/registry"
)

// TaskExecutor executes a single task and returns the result. A non-nil
// error is fatal to the whole run; body failures are reported in the result.
type TaskExecutor interface {
	Execute(ctx context.Context, t *models.Task, args []string) (*models.TaskResult, error)
}

// Observer is told about task progress as it happens.
type Observer interface {
	TaskStarted(name string)
	TaskFinished(result models.TaskResult)
}

// Coordinator runs a plan one task at a time.
type Coordinator struct {
	reg      *registry.Registry
	executor TaskExecutor
	observer Observer
	runID    string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObserver reports progress to o.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithRunID sets the identifier recorded on the result.
func WithRunID(id string) Option {
	return func(c *Coordinator) { c.runID = id }
}

// NewCoordinator creates a coordinator over reg.
func NewCoordinator(reg *registry.Registry, executor TaskExecutor, opts ...Option) *Coordinator {
	c := &Coordinator{reg: reg, executor: executor}
	for _, opt := range opts {
		opt(c)
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	return c
}

// Run executes plan in order. On a failure the run stops, unless
// continueOnError is set, in which case the rest of the failing segment is
// skipped and the next requested task is attempted. A task whose dependency
// did not succeed in this run is reported as failed without being started.
func (c *Coordinator) Run(ctx context.Context, plan models.Plan, args []string, continueOnError bool) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:     c.runID,
		StartedAt: time.Now(),
	}
	defer func() {
		result.EndedAt = time.Now()
		result.TotalDurationSec = result.EndedAt.Sub(result.StartedAt).Seconds()
		result.Succeeded = len(result.FailedTasks) == 0 && !result.Cancelled
	}()

	done := make(map[string]models.TaskStatus)
	stopped := false

	for _, seg := range plan.Segments {
		segmentFailed := false
		for _, name := range seg.Tasks {
			if _, ok := done[name]; ok {
				continue
			}
			if stopped || segmentFailed {
				c.record(result, done, models.TaskResult{Name: name, Status: models.StatusSkipped})
				continue
			}
			if ctx.Err() != nil {
				slog.Warn("run cancelled", "run_id", c.runID, "next_task", name)
				result.Cancelled = true
				stopped = true
				c.record(result, done, models.TaskResult{Name: name, Status: models.StatusSkipped})
				continue
			}

			t, err := c.reg.Get(name)
			if err != nil {
				return result, err
			}

			if dep := c.unsatisfied(t, done); dep != "" {
				now := time.Now()
				slog.Warn("not starting task, dependency did not succeed", "task", name, "dependency", dep)
				c.record(result, done, models.TaskResult{
					Name:      name,
					Status:    models.StatusFailed,
					ExitCode:  -1,
					Error:     models.NewError(models.ErrDependencyFailed, dep, nil).Error(),
					StartedAt: now,
					EndedAt:   now,
				})
				segmentFailed = true
				stopped = !continueOnError
				continue
			}

			if c.observer != nil {
				c.observer.TaskStarted(name)
			}
			slog.Debug("executing task", "run_id", c.runID, "task", name, "segment", seg.Requested)

			res, err := c.executor.Execute(ctx, t, args)
			if err != nil {
				return result, err
			}
			c.record(result, done, *res)

			if res.Status == models.StatusFailed {
				if ctx.Err() != nil {
					result.Cancelled = true
				}
				segmentFailed = true
				stopped = !continueOnError || result.Cancelled
			}
		}
	}

	slog.Debug("run finished",
		"run_id", c.runID,
		"failed", len(result.FailedTasks),
		"cancelled", result.Cancelled)
	return result, nil
}

func (c *Coordinator) record(result *models.RunResult, done map[string]models.TaskStatus, res models.TaskResult) {
	done[res.Name] = res.Status
	result.Results = append(result.Results, res)
	if res.Status == models.StatusFailed {
		result.FailedTasks = append(result.FailedTasks, res.Name)
	}
	if res.Status != models.StatusSkipped && c.observer != nil {
		c.observer.TaskFinished(res)
	}
}

// unsatisfied returns the first dependency of t that ran or was planned in
// this invocation without succeeding.
func (c *Coordinator) unsatisfied(t *models.Task, done map[string]models.TaskStatus) string {
	for _, dep := range t.Dependencies {
		d, ok := c.reg.Dependency(t, dep)
		if !ok {
			continue
		}
		if status, ok := done[d.Name()]; ok && status != models.StatusSucceeded {
			return d.Name()
		}
	}
	return ""
}
