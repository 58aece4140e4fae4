package task

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/security"
)

// HeaderLines is how many lines of a task file are scanned for directives.
const HeaderLines = 30

var commentLeaders = []string{"//", "--", "#"}

var kindsByExt = map[string]models.BodyKind{
	".sh":   models.KindShell,
	".bash": models.KindShell,
	".lua":  models.KindLua,
	".go":   models.KindGo,
}

// Header holds the directives found at the top of a task file.
type Header struct {
	Names        []string
	Description  string
	Dependencies []string
}

// Loader turns task files into task records.
type Loader struct {
	fallbackWarnings bool
}

// NewLoader creates a new task loader. When fallbackWarnings is set, a task
// whose name had to be derived from its file name is reported.
func NewLoader(fallbackWarnings bool) *Loader {
	return &Loader{fallbackWarnings: fallbackWarnings}
}

// LoadTask reads the header of the task file at path and builds its record.
// Names are qualified with namespace; names that fail validation are dropped
// and an error is returned only when none survive.
func (l *Loader) LoadTask(ctx context.Context, path, namespace string) (*models.Task, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	kind, ok := KindOf(absPath)
	if !ok {
		return nil, models.NewError(models.ErrUnsupportedBody, absPath, nil)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("opening task file: %w", err)
	}
	defer f.Close()

	header, err := ParseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("reading task header: %w", err)
	}

	names := header.Names
	if len(names) == 0 {
		fallback := FallbackName(filepath.Base(absPath))
		if l.fallbackWarnings {
			slog.Warn("task file has no TASK directive, using file name",
				"path", absPath,
				"task", fallback)
		}
		names = []string{fallback}
	}

	var valid []string
	for _, name := range names {
		qualified := Qualify(namespace, name)
		if !security.ValidateTaskName(qualified) {
			slog.Warn("dropping invalid task name",
				"task", qualified,
				"path", absPath,
				"error", models.NewError(models.ErrTaskNameInvalid, qualified, nil))
			continue
		}
		valid = append(valid, qualified)
	}
	if len(valid) == 0 {
		return nil, models.NewError(models.ErrTaskNameInvalid, absPath, nil)
	}

	return &models.Task{
		Names:        valid,
		Description:  header.Description,
		Dependencies: header.Dependencies,
		Path:         absPath,
		Namespace:    namespace,
		Kind:         kind,
	}, nil
}

// ParseHeader scans the first HeaderLines lines of r for TASK, DESCRIPTION
// and DEPENDS directives inside comments.
func ParseHeader(r io.Reader) (Header, error) {
	var h Header
	scanner := bufio.NewScanner(r)
	for i := 0; i < HeaderLines && scanner.Scan(); i++ {
		text, ok := commentText(scanner.Text())
		if !ok {
			continue
		}
		key, value, found := strings.Cut(text, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "TASK":
			h.Names = append(h.Names, splitList(strings.ToLower(value))...)
		case "DESCRIPTION":
			h.Description = value
		case "DEPENDS":
			h.Dependencies = append(h.Dependencies, splitList(strings.ToLower(value))...)
		}
	}
	return h, scanner.Err()
}

// fallbackVerbs are the leading file-name tokens FallbackName strips.
var fallbackVerbs = map[string]bool{
	"invoke": true,
	"run":    true,
	"do":     true,
	"exec":   true,
	"task":   true,
}

// FallbackName derives a task name from a file name: the extension and a
// leading verb segment such as "Invoke-" or "run-" are stripped and the rest
// lower-cased, so "Invoke-Build.sh" becomes "build" while "deploy-prod.sh"
// stays "deploy-prod".
func FallbackName(base string) string {
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if verb, rest, ok := strings.Cut(name, "-"); ok && rest != "" && fallbackVerbs[strings.ToLower(verb)] {
		name = rest
	}
	name = strings.ReplaceAll(name, "_", "-")
	return strings.ToLower(name)
}

// Qualify prefixes name with its namespace.
func Qualify(namespace, name string) string {
	if namespace == "" || strings.HasPrefix(name, namespace+"-") {
		return name
	}
	return namespace + "-" + name
}

// NamespaceOf derives the namespace of a task file from its directory
// relative to the task root.
func NamespaceOf(taskRoot, path string) string {
	rel, err := filepath.Rel(taskRoot, filepath.Dir(path))
	if err != nil || rel == "." {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(filepath.ToSlash(rel), "/", "-"))
}

// KindOf reports the body runtime for a task file.
func KindOf(path string) (models.BodyKind, bool) {
	kind, ok := kindsByExt[strings.ToLower(filepath.Ext(path))]
	return kind, ok
}

// IsTestFile reports whether a file name matches one of the excluded test
// patterns: *_test.*, *.test.* or *.tests.*.
func IsTestFile(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(stem, "_test") ||
		strings.HasSuffix(stem, ".test") ||
		strings.HasSuffix(stem, ".tests")
}

func commentText(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#!") {
		return "", false
	}
	for _, leader := range commentLeaders {
		if strings.HasPrefix(line, leader) {
			return strings.TrimSpace(strings.TrimLeft(line, leader[:1])), true
		}
	}
	return "", false
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
