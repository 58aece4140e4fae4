package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/security"
	"github.com/spachava753/taskrun/internal/task"
)

// Registry maps every task name and alias to its record. It is built once
// per invocation and not modified afterwards.
type Registry struct {
	byName map[string]*models.Task
	order  []*models.Task
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*models.Task)}
}

// Options controls discovery.
type Options struct {
	// FallbackWarnings reports tasks named after their file.
	FallbackWarnings bool

	// Builtins are registered before any project task.
	Builtins []*models.Task
}

// Register adds t under all of its names. A later registration wins over an
// earlier one holding the same name.
func (r *Registry) Register(t *models.Task) {
	for _, name := range t.Names {
		if prev, ok := r.byName[name]; ok && prev != t {
			if prev.IsBuiltIn {
				slog.Warn("project task shadows built-in task",
					"task", name,
					"path", t.Path)
			} else {
				slog.Warn("duplicate task name, later definition wins",
					"task", name,
					"previous", prev.Path,
					"path", t.Path,
					"error", models.NewError(models.ErrDuplicateTaskName, name, nil))
			}
		}
		r.byName[name] = t
	}
	r.order = append(r.order, t)
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (*models.Task, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Get is Lookup returning a task_not_found error.
func (r *Registry) Get(name string) (*models.Task, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, models.NewError(models.ErrTaskNotFound, name, nil)
	}
	return t, nil
}

// Dependency looks dep up in the namespace of t first, then unqualified.
func (r *Registry) Dependency(t *models.Task, dep string) (*models.Task, bool) {
	if t.Namespace != "" {
		if d, ok := r.Lookup(task.Qualify(t.Namespace, dep)); ok {
			return d, true
		}
	}
	return r.Lookup(dep)
}

// Tasks returns every reachable task in registration order. A task whose
// names were all taken over by later registrations is omitted.
func (r *Registry) Tasks() []*models.Task {
	var out []*models.Task
	for _, t := range r.order {
		for _, name := range t.Names {
			if r.byName[name] == t {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	return len(r.byName)
}

// Discover builds the registry for a project: built-ins first, then every
// task file found under taskDirectory. Task bodies are never executed. A
// missing task directory yields a registry holding only the built-ins.
func Discover(ctx context.Context, projectRoot, taskDirectory string, opts Options) (*Registry, error) {
	reg := New()
	for _, b := range opts.Builtins {
		reg.Register(b)
	}

	taskRoot, err := security.ResolveTaskDirectory(projectRoot, taskDirectory)
	if err != nil {
		return nil, models.NewError(models.ErrDirectoryTraversalRejected, taskDirectory, err)
	}

	info, err := os.Stat(taskRoot)
	if err != nil || !info.IsDir() {
		slog.Debug("task directory not found, only built-in tasks available", "path", taskRoot)
		return reg, nil
	}

	loader := task.NewLoader(opts.FallbackWarnings)
	var loaded int
	err = filepath.WalkDir(taskRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != taskRoot && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if task.IsTestFile(d.Name()) {
			return nil
		}
		if _, ok := task.KindOf(path); !ok {
			return nil
		}

		t, err := loader.LoadTask(ctx, path, task.NamespaceOf(taskRoot, path))
		if err != nil {
			slog.Warn("skipping task file", "path", path, "error", err)
			return nil
		}
		slog.Debug("discovered task", "task", t.Name(), "aliases", t.Aliases(), "path", path)
		reg.Register(t)
		loaded++
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("walking task directory: %w", err)
	}

	slog.Debug("discovery complete", "task_directory", taskRoot, "tasks", loaded, "names", reg.Len())
	return reg, nil
}
