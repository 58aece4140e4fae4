package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/security"
	"github.com/spachava753/taskrun/internal/task"
)

var taskTemplates = map[string]*template.Template{
	"sh": template.Must(template.New("sh").Parse(`#!/usr/bin/env bash
# TASK: {{.Name}}
# DESCRIPTION: {{.Description}}
{{- if .Depends}}
# DEPENDS: {{.Depends}}
{{- end}}
set -euo pipefail

echo "Running ${TASKRUN_TASK_NAME} in ${TASKRUN_TASK_SCRIPT_ROOT}"
`)),
	"lua": template.Must(template.New("lua").Parse(`-- TASK: {{.Name}}
-- DESCRIPTION: {{.Description}}
{{- if .Depends}}
-- DEPENDS: {{.Depends}}
{{- end}}

print("Running " .. config.taskName .. " in " .. config.taskScriptRoot)
return 0
`)),
	"go": template.Must(template.New("go").Parse(`package main

// TASK: {{.Name}}
// DESCRIPTION: {{.Description}}
{{- if .Depends}}
// DEPENDS: {{.Depends}}
{{- end}}

import "fmt"

func Run(task map[string]any) error {
	cfg := task["config"].(map[string]any)
	fmt.Println("Running", cfg["taskName"], "in", cfg["taskScriptRoot"])
	return nil
}
`)),
}

var templateExt = map[string]string{"sh": ".sh", "lua": ".lua", "go": ".go"}

type createOptions struct {
	namespace   string
	kind        string
	description string
	depends     []string
}

func newCreateTaskCommand(global *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	opts := &createOptions{}
	cmd := &cobra.Command{
		Use:   "create-task <name>",
		Short: "Create a task file from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, stdout, stderr)
			if err != nil {
				return err
			}
			taskRoot, err := security.ResolveTaskDirectory(a.projectRoot, a.settings.TaskDirectory)
			if err != nil {
				return models.NewError(models.ErrDirectoryTraversalRejected, a.settings.TaskDirectory, err)
			}
			path, err := createTask(taskRoot, args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Created %s\n", path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.namespace, "namespace", "", "subdirectory of the task directory to create the task in")
	f.StringVar(&opts.kind, "type", "sh", "task body type: sh, lua or go")
	f.StringVar(&opts.description, "description", "", "task description")
	f.StringSliceVar(&opts.depends, "depends", nil, "comma-separated dependencies")
	return cmd
}

// createTask writes a new task file under taskRoot and returns its path. An
// existing file is never overwritten.
func createTask(taskRoot, name string, opts *createOptions) (string, error) {
	name = strings.ToLower(name)
	if !security.ValidateTaskName(name) {
		return "", models.NewError(models.ErrTaskNameInvalid, name, nil)
	}
	ns := strings.ToLower(opts.namespace)
	if ns != "" && !security.ValidateTaskName(ns) {
		return "", models.NewError(models.ErrTaskNameInvalid, ns, nil)
	}
	if !security.ValidateTaskName(task.Qualify(ns, name)) {
		return "", models.NewError(models.ErrTaskNameInvalid, task.Qualify(ns, name), nil)
	}

	tmpl, ok := taskTemplates[opts.kind]
	if !ok {
		return "", models.NewError(models.ErrUnsupportedBody, opts.kind, nil)
	}
	for _, dep := range opts.depends {
		if !security.ValidateTaskName(strings.ToLower(dep)) {
			return "", models.NewError(models.ErrTaskNameInvalid, dep, nil)
		}
	}

	description := opts.description
	if description == "" {
		description = fmt.Sprintf("Runs the %s task", name)
	}
	description = strings.Join(strings.Fields(description), " ")

	dir := filepath.Join(taskRoot, ns)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating task directory: %w", err)
	}

	mode := os.FileMode(0644)
	if opts.kind == "sh" {
		mode = 0755
	}
	path := filepath.Join(dir, name+templateExt[opts.kind])
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", models.NewError(models.ErrTaskExists, path, nil)
		}
		return "", fmt.Errorf("creating task file: %w", err)
	}
	defer f.Close()

	err = tmpl.Execute(f, struct {
		Name        string
		Description string
		Depends     string
	}{
		Name:        name,
		Description: description,
		Depends:     strings.ToLower(strings.Join(opts.depends, ", ")),
	})
	if err != nil {
		return "", fmt.Errorf("writing task file: %w", err)
	}
	return path, nil
}
