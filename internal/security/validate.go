package security

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxTaskNameLength is the longest accepted task name.
const MaxTaskNameLength = 50

var taskNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// scriptPathDenylist holds characters that have meaning to a shell.
const scriptPathDenylist = "`$&|;<>(){}[]*?!'\"\\\n\r\x00"

// ValidateTaskName reports whether s is a well-formed task name.
func ValidateTaskName(s string) bool {
	return len(s) <= MaxTaskNameLength && taskNamePattern.MatchString(s)
}

// ValidateTaskDirectory reports whether dir is an acceptable task directory
// for projectRoot: relative, free of ".." segments, and still inside the
// root once symlinks are resolved.
func ValidateTaskDirectory(projectRoot, dir string) bool {
	_, err := resolveTaskDirectory(projectRoot, dir)
	return err == nil
}

// ResolveTaskDirectory returns the absolute path of dir under projectRoot,
// repeating the containment check on the resolved path.
func ResolveTaskDirectory(projectRoot, dir string) (string, error) {
	return resolveTaskDirectory(projectRoot, dir)
}

func resolveTaskDirectory(projectRoot, dir string) (string, error) {
	if dir == "" {
		return "", errInvalidPath("empty task directory")
	}
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, "/") || strings.HasPrefix(dir, `\`) {
		return "", errInvalidPath("task directory must be relative: %q", dir)
	}
	if hasTraversal(dir) {
		return "", errInvalidPath("task directory contains directory traversal: %q", dir)
	}

	root, err := canonical(projectRoot)
	if err != nil {
		return "", err
	}
	resolved, err := canonical(filepath.Join(root, dir))
	if err != nil {
		return "", err
	}
	if !within(root, resolved) {
		return "", errInvalidPath("task directory %q resolves outside the project root", dir)
	}
	return resolved, nil
}

// ValidateScriptPath reports whether path is safe to hand to an interpreter:
// it holds no shell metacharacters and resolves to a location under
// projectRoot. Relative paths are taken relative to projectRoot.
func ValidateScriptPath(path, projectRoot string) bool {
	if path == "" || strings.ContainsAny(path, scriptPathDenylist) {
		return false
	}

	root, err := canonical(projectRoot)
	if err != nil {
		return false
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	resolved, err := canonical(path)
	if err != nil {
		return false
	}
	return within(root, resolved)
}

// hasTraversal rejects ".." segments in either separator style.
func hasTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

// canonical returns an absolute, cleaned path with symlinks resolved for the
// longest existing prefix.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	existing := abs
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{resolved}, rest...)...), nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
