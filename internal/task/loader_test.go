package task_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/task"
)

func writeTask(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  task.Header
	}{
		{
			name: "shell",
			input: `#!/usr/bin/env bash
# TASK: build, compile
# DESCRIPTION: Builds the application
# DEPENDS: fmt, lint
go build ./...
`,
			want: task.Header{
				Names:        []string{"build", "compile"},
				Description:  "Builds the application",
				Dependencies: []string{"fmt", "lint"},
			},
		},
		{
			name: "go comments",
			input: `package main

// TASK: Generate
// DEPENDS: fmt
func Run(task map[string]any) error { return nil }
`,
			want: task.Header{
				Names:        []string{"generate"},
				Dependencies: []string{"fmt"},
			},
		},
		{
			name:  "lua comments",
			input: "-- TASK: test\n-- DESCRIPTION: Runs tests\nreturn exec(\"go\", \"test\")\n",
			want: task.Header{
				Names:       []string{"test"},
				Description: "Runs tests",
			},
		},
		{
			name:  "directives outside comments ignored",
			input: "echo TASK: nope\n",
			want:  task.Header{},
		},
		{
			name:  "beyond header window ignored",
			input: strings.Repeat("echo\n", task.HeaderLines) + "# TASK: late\n",
			want:  task.Header{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := task.ParseHeader(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFallbackName(t *testing.T) {
	tests := map[string]string{
		"Invoke-Build.sh": "build",
		"run-tests.sh":    "tests",
		"lint.sh":         "lint",
		"Deploy.lua":      "deploy",
		"gen_docs.go":     "gen-docs",
		"deploy-prod.sh":  "deploy-prod",
		"check-index.sh":  "check-index",
		"RUN-Tests.lua":   "tests",
		"invoke-.sh":      "invoke-",
	}
	for input, want := range tests {
		if got := task.FallbackName(input); got != want {
			t.Errorf("FallbackName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestIsTestFile(t *testing.T) {
	tests := map[string]bool{
		"build_test.go":    true,
		"build.test.sh":    true,
		"build.tests.lua":  true,
		"build.sh":         false,
		"testing.sh":       false,
		"contest-entry.go": false,
	}
	for input, want := range tests {
		if got := task.IsTestFile(input); got != want {
			t.Errorf("IsTestFile(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNamespaceOf(t *testing.T) {
	root := filepath.Join("proj", ".build")
	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(root, "build.sh"), ""},
		{filepath.Join(root, "golang", "lint.sh"), "golang"},
		{filepath.Join(root, "Python", "tools", "fmt.sh"), "python-tools"},
	}
	for _, tt := range tests {
		if got := task.NamespaceOf(root, tt.path); got != tt.want {
			t.Errorf("NamespaceOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLoadTask(t *testing.T) {
	dir := t.TempDir()
	path := writeTask(t, dir, "lint.sh", "# TASK: lint\n# DEPENDS: fmt\n# DESCRIPTION: Lints\n")

	loader := task.NewLoader(true)
	got, err := loader.LoadTask(context.Background(), path, "golang")
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}

	if got.Name() != "golang-lint" {
		t.Errorf("expected qualified name golang-lint, got %s", got.Name())
	}
	if got.Kind != models.KindShell {
		t.Errorf("expected shell body, got %s", got.Kind)
	}
	if diff := cmp.Diff([]string{"fmt"}, got.Dependencies); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
	if got.Dir() != dir {
		t.Errorf("expected dir %s, got %s", dir, got.Dir())
	}
	if got.IsBuiltIn {
		t.Error("file task reported as built-in")
	}
}

func TestLoadTaskFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeTask(t, dir, "Invoke-Build.lua", "return 0\n")

	got, err := task.NewLoader(false).LoadTask(context.Background(), path, "")
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if got.Name() != "build" {
		t.Errorf("expected fallback name build, got %s", got.Name())
	}
	if got.Kind != models.KindLua {
		t.Errorf("expected lua body, got %s", got.Kind)
	}
}

func TestLoadTaskDropsInvalidNames(t *testing.T) {
	dir := t.TempDir()
	path := writeTask(t, dir, "x.sh", "# TASK: ok, bad$name, -lead\n")

	got, err := task.NewLoader(true).LoadTask(context.Background(), path, "")
	if err != nil {
		t.Fatalf("LoadTask failed: %v", err)
	}
	if diff := cmp.Diff([]string{"ok"}, got.Names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	path = writeTask(t, dir, "y.sh", "# TASK: bad$name\n")
	_, err = task.NewLoader(true).LoadTask(context.Background(), path, "")
	if !models.IsType(err, models.ErrTaskNameInvalid) {
		t.Errorf("expected invalid name error, got %v", err)
	}
}

func TestLoadTaskUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := writeTask(t, dir, "notes.txt", "# TASK: notes\n")

	_, err := task.NewLoader(true).LoadTask(context.Background(), path, "")
	if !models.IsType(err, models.ErrUnsupportedBody) {
		t.Errorf("expected unsupported body error, got %v", err)
	}
}
