// Package vcs probes the version control state of a directory.
package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Prober answers questions about the repository containing a directory.
type Prober interface {
	// Root returns the top-level directory of the repository containing dir.
	Root(ctx context.Context, dir string) (string, error)

	// Branch returns the current branch name.
	Branch(ctx context.Context, dir string) (string, error)

	// Clean reports whether the working tree and index have no changes.
	Clean(ctx context.Context, dir string) (bool, error)
}

// Git implements Prober by shelling out to the git CLI.
type Git struct{}

// NewGit creates a new git prober.
func NewGit() *Git {
	return &Git{}
}

func (g *Git) Root(ctx context.Context, dir string) (string, error) {
	return g.run(ctx, dir, "rev-parse", "--show-toplevel")
}

func (g *Git) Branch(ctx context.Context, dir string) (string, error) {
	return g.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
}

func (g *Git) Clean(ctx context.Context, dir string) (bool, error) {
	out, err := g.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Status renders a clean flag the way task bodies see it.
func Status(clean bool) string {
	if clean {
		return "clean"
	}
	return "dirty"
}
