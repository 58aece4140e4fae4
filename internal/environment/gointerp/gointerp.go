// Package gointerp runs task bodies written in Go through the yaegi
// interpreter.
package gointerp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/spachava753/taskrun/internal/environment"
	"github.com/spachava753/taskrun/internal/models"
)

// EntryPoint is the function every Go task file must define in package main.
const EntryPoint = "main.Run"

// Runtime runs .go task files.
type Runtime struct{}

// New creates a Go runtime.
func New() *Runtime {
	return &Runtime{}
}

func (r *Runtime) Name() string { return "go" }

func (r *Runtime) Kind() models.BodyKind { return models.KindGo }

// Run evaluates the file in a fresh interpreter and calls
// `func Run(task map[string]any) error` with the process working directory
// set to inv.WorkDir. A returned error fails the task; otherwise the status
// of the last exec call decides.
func (r *Runtime) Run(ctx context.Context, inv environment.Invocation) (code int, err error) {
	tools, err := environment.NewTools(ctx, inv)
	if err != nil {
		return -1, err
	}

	src, err := os.ReadFile(inv.Path)
	if err != nil {
		return -1, fmt.Errorf("reading %s: %w", inv.Path, err)
	}

	i := interp.New(interp.Options{
		Stdout: inv.Stdout,
		Stderr: inv.Stderr,
		Args:   append([]string{inv.Path}, inv.Args...),
	})
	if err := i.Use(stdlib.Symbols); err != nil {
		return -1, fmt.Errorf("loading stdlib: %w", err)
	}

	restore, err := enterDir(inv.WorkDir)
	if err != nil {
		return -1, err
	}
	defer restore()

	defer func() {
		if rec := recover(); rec != nil {
			code, err = -1, fmt.Errorf("go task panic: %v", rec)
		}
	}()

	if _, err := i.Eval(string(src)); err != nil {
		return -1, fmt.Errorf("evaluating %s: %w", inv.Path, err)
	}
	v, err := i.Eval(EntryPoint)
	if err != nil {
		return -1, fmt.Errorf("%s must define func Run(task map[string]any) error: %w", inv.Path, err)
	}
	run, ok := v.Interface().(func(map[string]any) error)
	if !ok {
		return -1, fmt.Errorf("%s: Run has signature %s, expected func(map[string]any) error", inv.Path, v.Type())
	}

	task := map[string]any{
		"config":      inv.Config,
		"args":        inv.Args,
		"projectRoot": tools.ProjectRoot,
		"gitStatus": func() (string, error) {
			return tools.GitStatus(ctx)
		},
		"exec": func(name string, args ...string) (int, error) {
			return tools.Exec(ctx, name, args...)
		},
	}

	slog.Debug("running go task", "task", inv.TaskName, "path", inv.Path)
	if err := run(task); err != nil {
		return 1, models.NewError(models.ErrTaskBodyFailure, inv.TaskName, err)
	}
	return tools.LastStatus(), nil
}

// enterDir changes the process working directory to dir and returns a func
// that restores the previous one. Tasks run one at a time.
func enterDir(dir string) (func(), error) {
	if dir == "" {
		return func() {}, nil
	}
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("entering task directory: %w", err)
	}
	return func() {
		if err := os.Chdir(prev); err != nil {
			slog.Warn("failed to restore working directory", "dir", prev, "error", err)
		}
	}, nil
}
