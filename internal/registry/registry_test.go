package registry

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spachava753/taskrun/internal/models"
)

type cleanProber struct{ clean bool }

func (p cleanProber) Root(ctx context.Context, dir string) (string, error)   { return dir, nil }
func (p cleanProber) Branch(ctx context.Context, dir string) (string, error) { return "main", nil }
func (p cleanProber) Clean(ctx context.Context, dir string) (bool, error)    { return p.clean, nil }

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".build/fmt.sh":            "# TASK: fmt\n",
		".build/lint.sh":           "# TASK: lint\n# DEPENDS: fmt\n",
		".build/build.lua":         "-- TASK: build, compile\n-- DEPENDS: lint\n",
		".build/Invoke-Deploy.go":  "package main\n",
		".build/build_test.go":     "// TASK: nope\n",
		".build/lint.tests.sh":     "# TASK: nope2\n",
		".build/README.md":         "# TASK: readme\n",
		".build/golang/vet.sh":     "# TASK: vet\n",
		".build/.hidden/secret.sh": "# TASK: secret\n",
		".build/bad.sh":            "# TASK: Bad Name!\n",
	})

	reg, err := Discover(context.Background(), root, ".build", Options{Builtins: Builtins(cleanProber{})})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{"bad", "build", "check", "check-index", "compile", "config", "deploy", "fmt", "golang-vet", "lint"}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	build, ok := reg.Lookup("compile")
	if !ok {
		t.Fatal("alias compile not registered")
	}
	if build.Name() != "build" || build.Kind != models.KindLua {
		t.Errorf("unexpected task for alias: %+v", build)
	}

	vet, _ := reg.Lookup("golang-vet")
	if vet.Namespace != "golang" {
		t.Errorf("expected namespace golang, got %q", vet.Namespace)
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	root := t.TempDir()
	reg, err := Discover(context.Background(), root, ".build", Options{Builtins: Builtins(cleanProber{})})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if diff := cmp.Diff([]string{"check", "check-index", "config"}, reg.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"../outside", "/etc", "a/../../b"} {
		_, err := Discover(context.Background(), root, dir, Options{})
		if !models.IsType(err, models.ErrDirectoryTraversalRejected) {
			t.Errorf("Discover(%q) error = %v, want traversal rejected", dir, err)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	first := &models.Task{Names: []string{"build"}, Path: "/a/build.sh"}
	second := &models.Task{Names: []string{"build", "compile"}, Path: "/b/build.sh"}
	builtin := &models.Task{Names: []string{"check"}, IsBuiltIn: true}
	shadow := &models.Task{Names: []string{"check"}, Path: "/b/check.sh"}

	reg := newRegistry(builtin, first, second, shadow)

	got, _ := reg.Lookup("build")
	if got != second {
		t.Error("later definition should win")
	}
	got, _ = reg.Lookup("check")
	if got != shadow {
		t.Error("project task should shadow built-in")
	}
	if diff := cmp.Diff([]*models.Task{second, shadow}, reg.Tasks()); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinCheck(t *testing.T) {
	for _, clean := range []bool{true, false} {
		var check *models.Task
		for _, b := range Builtins(cleanProber{clean: clean}) {
			if b.Name() == "check" {
				check = b
			}
		}
		err := check.Builtin(context.Background(), &models.TaskContext{Name: "check", Stdout: io.Discard, Stderr: io.Discard})
		if clean && err != nil {
			t.Errorf("clean tree: unexpected error %v", err)
		}
		if !clean && err == nil {
			t.Error("dirty tree: expected failure")
		}
	}
}
