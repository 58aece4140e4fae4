package models

import (
	"context"
	"io"
	"path/filepath"
)

// BodyKind identifies how a task body is executed.
type BodyKind string

const (
	KindBuiltin BodyKind = "builtin"
	KindShell   BodyKind = "shell"
	KindLua     BodyKind = "lua"
	KindGo      BodyKind = "go"
)

// BuiltinFunc is the in-process body of a built-in task.
type BuiltinFunc func(ctx context.Context, tc *TaskContext) error

// Task represents a fully loaded task ready for resolution and execution.
// A Task is not modified after discovery.
type Task struct {
	// Names[0] is canonical, the rest are aliases.
	Names        []string
	Description  string
	Dependencies []string // as declared, unqualified
	IsBuiltIn    bool
	Builtin      BuiltinFunc // set iff IsBuiltIn
	Path         string      // absolute path to the task file, empty for built-ins
	Namespace    string      // subdirectory of the task root, "" at the root
	Kind         BodyKind
}

// Name returns the canonical task name.
func (t *Task) Name() string {
	if len(t.Names) == 0 {
		return ""
	}
	return t.Names[0]
}

// Aliases returns every name except the canonical one.
func (t *Task) Aliases() []string {
	if len(t.Names) < 2 {
		return nil
	}
	return t.Names[1:]
}

// Dir returns the directory holding the task file.
func (t *Task) Dir() string {
	if t.Path == "" {
		return ""
	}
	return filepath.Dir(t.Path)
}

// TaskContext is what a built-in body receives.
type TaskContext struct {
	Name        string
	Config      map[string]any
	Args        []string
	ProjectRoot string
	Stdout      io.Writer
	Stderr      io.Writer
}
