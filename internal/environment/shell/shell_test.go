package shell_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spachava753/taskrun/internal/environment"
	"github.com/spachava753/taskrun/internal/environment/shell"
)

func requireBash(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping shell test in short mode")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

func script(t *testing.T, body string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "task.sh")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func TestRun(t *testing.T) {
	requireBash(t)

	tests := []struct {
		name       string
		body       string
		args       []string
		wantCode   int
		wantStdout string
	}{
		{
			name:       "success",
			body:       "echo hello\n",
			wantStdout: "hello\n",
		},
		{
			name:     "failure status",
			body:     "exit 3\n",
			wantCode: 3,
		},
		{
			name:       "args",
			body:       "echo \"$1-$2\"\n",
			args:       []string{"a", "b"},
			wantStdout: "a-b\n",
		},
		{
			name:       "context variables",
			body:       "echo \"$TASKRUN_TASK_NAME $TASKRUN_CONFIG\"\n",
			wantStdout: "build {\"Key\":\"$(touch pwned)\"}\n",
		},
		{
			name:       "ansi stripped",
			body:       "printf '\\033[31mERROR\\033[0m\\n'\n",
			wantStdout: "ERROR\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, path := script(t, tt.body)
			var stdout, stderr bytes.Buffer
			code, err := shell.New("bash").Run(context.Background(), environment.Invocation{
				TaskName: "build",
				Path:     path,
				WorkDir:  dir,
				Args:     tt.args,
				Config:   map[string]any{"Key": "$(touch pwned)"},
				Stdout:   &stdout,
				Stderr:   &stderr,
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if stdout.String() != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
			if _, err := os.Stat(filepath.Join(dir, "pwned")); err == nil {
				t.Error("configuration value was evaluated by the shell")
			}
		})
	}
}

func TestRunWorkingDirectory(t *testing.T) {
	requireBash(t)

	dir, path := script(t, "pwd\n")
	var stdout bytes.Buffer
	code, err := shell.New("").Run(context.Background(), environment.Invocation{
		Path:    path,
		WorkDir: dir,
		Stdout:  &stdout,
	})
	if err != nil || code != 0 {
		t.Fatalf("Run: code=%d err=%v", code, err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(stdout.String()))
	if got != want {
		t.Errorf("working directory = %q, want %q", got, want)
	}
}

func TestRunCancelled(t *testing.T) {
	requireBash(t)

	dir, path := script(t, "sleep 10\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := shell.New("bash").Run(ctx, environment.Invocation{Path: path, WorkDir: dir})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

type dirtyProber struct{}

func (dirtyProber) Root(ctx context.Context, dir string) (string, error)   { return dir, nil }
func (dirtyProber) Branch(ctx context.Context, dir string) (string, error) { return "main", nil }
func (dirtyProber) Clean(ctx context.Context, dir string) (bool, error)    { return false, nil }

func TestRunGitStatus(t *testing.T) {
	requireBash(t)

	dir, path := script(t, "echo \"status=$TASKRUN_GIT_STATUS\"\n")
	tests := []struct {
		name string
		inv  environment.Invocation
		want string
	}{
		{"with prober", environment.Invocation{Path: path, WorkDir: dir, VCS: dirtyProber{}}, "status=dirty\n"},
		{"without prober", environment.Invocation{Path: path, WorkDir: dir}, "status=\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			tt.inv.Stdout = &stdout
			code, err := shell.New("bash").Run(context.Background(), tt.inv)
			if err != nil || code != 0 {
				t.Fatalf("Run: code=%d err=%v", code, err)
			}
			if stdout.String() != tt.want {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.want)
			}
		})
	}
}
