package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spachava753/taskrun/internal/config"
	"github.com/spachava753/taskrun/internal/models"
)

type fakeProber struct {
	root   string
	branch string
	calls  int
}

func (f *fakeProber) Root(ctx context.Context, dir string) (string, error) {
	f.calls++
	if f.root == "" {
		return "", errors.New("not a git repository")
	}
	return f.root, nil
}

func (f *fakeProber) Branch(ctx context.Context, dir string) (string, error) {
	return f.branch, nil
}

func (f *fakeProber) Clean(ctx context.Context, dir string) (bool, error) {
	return true, nil
}

// newProject creates a project root with an empty .build task directory.
func newProject(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".build"), 0755); err != nil {
		t.Fatal(err)
	}
	return root
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildBuiltins(t *testing.T) {
	root := newProject(t)
	prober := &fakeProber{root: root, branch: "main"}
	p := config.NewProvider(config.DefaultSettings(), prober)

	obj, err := p.Build(context.Background(), root, ".build", filepath.Join(root, ".build"), "build")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := map[string]string{
		config.KeyProjectRoot:       root,
		config.KeyTaskDirectory:     ".build",
		config.KeyTaskDirectoryPath: filepath.Join(root, ".build"),
		config.KeyTaskScriptRoot:    filepath.Join(root, ".build"),
		config.KeyTaskName:          "build",
		config.KeyGitRoot:           root,
		config.KeyGitBranch:         "main",
	}
	for key, value := range want {
		if got := obj.String(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
	if obj.String("colors.error") != "red" {
		t.Errorf("colors.error = %q, want red", obj.String("colors.error"))
	}
}

func TestBuildWithoutGit(t *testing.T) {
	root := newProject(t)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})

	obj, err := p.Build(context.Background(), root, ".build", "", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := obj.Get(config.KeyGitRoot); ok {
		t.Error("gitRoot should be absent outside a repository")
	}
	if _, ok := obj.Get(config.KeyGitBranch); ok {
		t.Error("gitBranch should be absent outside a repository")
	}
}

func TestBuildUserOverrides(t *testing.T) {
	root := newProject(t)
	writeFile(t, filepath.Join(root, config.UserConfigFileName),
		`{"taskName": "shadowed", "Azure": {"SubscriptionId": "abc", "Region": "westus"}}`)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})

	obj, err := p.Build(context.Background(), root, ".build", "", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := obj.String("Azure.Region"); got != "westus" {
		t.Errorf("Azure.Region = %q, want westus", got)
	}
	if got := obj.String(config.KeyTaskName); got != "shadowed" {
		t.Errorf("user key should override built-in, got %q", got)
	}
}

func TestBuildSearchesUpward(t *testing.T) {
	root := newProject(t)
	nested := filepath.Join(root, ".build", "golang")
	writeFile(t, filepath.Join(root, ".build", config.UserConfigFileName), `{"Level": "task-dir"}`)
	writeFile(t, filepath.Join(root, config.UserConfigFileName), `{"Level": "root"}`)
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})

	obj, err := p.Build(context.Background(), root, ".build/golang", "", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := obj.String("Level"); got != "task-dir" {
		t.Errorf("expected nearest file to win, got %q", got)
	}
}

func TestBuildMalformedUserConfig(t *testing.T) {
	root := newProject(t)
	writeFile(t, filepath.Join(root, config.UserConfigFileName), `{"Azure": `)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})

	obj, err := p.Build(context.Background(), root, ".build", "", "")
	if err != nil {
		t.Fatalf("malformed user configuration must not be fatal: %v", err)
	}
	if _, ok := obj.Get("Azure"); ok {
		t.Error("malformed file should contribute nothing")
	}
	if obj.String(config.KeyProjectRoot) != root {
		t.Error("built-ins should survive a malformed user file")
	}
}

func TestBuildRejectsTraversal(t *testing.T) {
	root := newProject(t)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})

	_, err := p.Build(context.Background(), root, "../elsewhere", "", "")
	if !models.IsType(err, models.ErrDirectoryTraversalRejected) {
		t.Fatalf("expected directory traversal error, got %v", err)
	}
}

func TestCachedSerialized(t *testing.T) {
	root := newProject(t)
	prober := &fakeProber{root: root, branch: "main"}
	p := config.NewProvider(config.DefaultSettings(), prober)
	ctx := context.Background()

	first, err := p.CachedSerialized(ctx, root, ".build")
	if err != nil {
		t.Fatalf("CachedSerialized: %v", err)
	}
	// A file written behind the provider's back is not observed until invalidation.
	writeFile(t, filepath.Join(root, config.UserConfigFileName), `{"Late": true}`)
	second, err := p.CachedSerialized(ctx, root, ".build")
	if err != nil {
		t.Fatalf("CachedSerialized: %v", err)
	}
	if first != second {
		t.Error("expected cached value to be reused")
	}
	if prober.calls != 1 {
		t.Errorf("expected one git probe, got %d", prober.calls)
	}

	p.Invalidate()
	third, err := p.CachedSerialized(ctx, root, ".build")
	if err != nil {
		t.Fatalf("CachedSerialized: %v", err)
	}
	if !strings.Contains(third, `"Late":true`) {
		t.Errorf("expected rebuilt configuration to include new key, got %s", third)
	}
	if strings.Contains(third, `"taskName":"build"`) {
		t.Error("cached form must be task independent")
	}
}

func TestForTaskDoesNotLeakIntoCache(t *testing.T) {
	root := newProject(t)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})
	ctx := context.Background()

	a, err := p.ForTask(ctx, root, ".build", "/a", "alpha")
	if err != nil {
		t.Fatalf("ForTask: %v", err)
	}
	a["Mutated"] = true

	b, err := p.ForTask(ctx, root, ".build", "/b", "beta")
	if err != nil {
		t.Fatalf("ForTask: %v", err)
	}
	if b.String(config.KeyTaskName) != "beta" || b.String(config.KeyTaskScriptRoot) != "/b" {
		t.Errorf("unexpected specialization: %v", b)
	}
	if _, ok := b.Get("Mutated"); ok {
		t.Error("mutation of one task's object leaked into another")
	}
}

func TestVariableRoundTrip(t *testing.T) {
	root := newProject(t)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})
	ctx := context.Background()
	const id = "00000000-0000-0000-0000-000000000000"

	// Prime the cache so the write has something to invalidate.
	if _, err := p.CachedSerialized(ctx, root, ".build"); err != nil {
		t.Fatal(err)
	}

	if err := p.AddVariable(root, ".build", "Azure.SubscriptionId", id); err != nil {
		t.Fatalf("AddVariable: %v", err)
	}
	obj, err := p.ForTask(ctx, root, ".build", "", "")
	if err != nil {
		t.Fatalf("ForTask: %v", err)
	}
	if got := obj.String("Azure.SubscriptionId"); got != id {
		t.Fatalf("Azure.SubscriptionId = %q, want %q", got, id)
	}

	vars, err := p.ListVariables(root, ".build")
	if err != nil {
		t.Fatalf("ListVariables: %v", err)
	}
	if diff := cmp.Diff([]config.Variable{{Key: "Azure.SubscriptionId", Value: id}}, vars); diff != "" {
		t.Errorf("ListVariables mismatch (-want +got):\n%s", diff)
	}

	if err := p.RemoveVariable(root, ".build", "Azure.SubscriptionId"); err != nil {
		t.Fatalf("RemoveVariable: %v", err)
	}
	obj, err = p.ForTask(ctx, root, ".build", "", "")
	if err != nil {
		t.Fatalf("ForTask: %v", err)
	}
	if _, ok := obj.Get("Azure.SubscriptionId"); ok {
		t.Error("variable still present after removal")
	}
	if _, ok := obj.Get("Azure"); ok {
		t.Error("empty parent should be removed by cascade")
	}
}

func TestRemoveVariableKeepsNonEmptyParent(t *testing.T) {
	root := newProject(t)
	writeFile(t, filepath.Join(root, config.UserConfigFileName),
		`{"Azure": {"SubscriptionId": "abc", "Region": "westus"}, "Other": 1}`)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})

	if err := p.RemoveVariable(root, ".build", "Azure.SubscriptionId"); err != nil {
		t.Fatalf("RemoveVariable: %v", err)
	}
	vars, err := p.ListVariables(root, ".build")
	if err != nil {
		t.Fatalf("ListVariables: %v", err)
	}
	want := []config.Variable{
		{Key: "Azure.Region", Value: "westus"},
		{Key: "Other", Value: float64(1)},
	}
	if diff := cmp.Diff(want, vars); diff != "" {
		t.Errorf("ListVariables mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveVariableNotFound(t *testing.T) {
	root := newProject(t)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})

	err := p.RemoveVariable(root, ".build", "Missing.Key")
	if !models.IsType(err, models.ErrVariableNotFound) {
		t.Fatalf("expected variable not found, got %v", err)
	}
}

func TestAddVariableRejectsBadKeys(t *testing.T) {
	root := newProject(t)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})

	for _, key := range []string{"", ".a", "a.", "a..b", "a*", "a|b", "#", "a.@this", "1abc"} {
		err := p.AddVariable(root, ".build", key, "x")
		if !models.IsType(err, models.ErrVariableKeyInvalid) {
			t.Errorf("AddVariable(%q) error = %v, want invalid key", key, err)
		}
	}
}

func TestAddVariableRefusesMalformedFile(t *testing.T) {
	root := newProject(t)
	path := filepath.Join(root, config.UserConfigFileName)
	writeFile(t, path, `not json`)
	p := config.NewProvider(config.DefaultSettings(), &fakeProber{})

	err := p.AddVariable(root, ".build", "Key", "x")
	if !models.IsType(err, models.ErrConfigurationFileMalformed) {
		t.Fatalf("expected malformed file error, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "not json" {
		t.Error("malformed file must not be overwritten")
	}
}
