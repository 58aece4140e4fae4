package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/spachava753/taskrun/internal/models"
)

// UserConfigFileName is the user configuration file searched for upward from
// the task directory.
const UserConfigFileName = "taskrun.config.json"

// Dot-separated segments; excludes the gjson/sjson path syntax characters.
var variableKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(\.[A-Za-z_][A-Za-z0-9_-]*)*$`)

// Variable is one leaf of the user configuration, addressed by dot-path.
type Variable struct {
	Key   string `json:"key" yaml:"key"`
	Value any    `json:"value" yaml:"value"`
}

// ValidateVariableKey reports whether key is an acceptable dot-path.
func ValidateVariableKey(key string) error {
	if !variableKeyPattern.MatchString(key) {
		return models.NewError(models.ErrVariableKeyInvalid, key, nil)
	}
	return nil
}

// FindUserConfig returns the nearest user configuration file at or above
// dir, never looking above root. It returns "" when none exists.
func FindUserConfig(root, dir string) string {
	root = filepath.Clean(root)
	dir = filepath.Clean(dir)
	for {
		candidate := filepath.Join(dir, UserConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		if dir == root {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		rel, err := filepath.Rel(root, parent)
		if err != nil || strings.HasPrefix(rel, "..") {
			return ""
		}
		dir = parent
	}
}

// LoadUserConfig reads the user configuration at path. A missing file yields
// an empty map; a malformed one yields an empty map and a warning.
func LoadUserConfig(path string) map[string]any {
	if path == "" {
		return map[string]any{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("could not read user configuration, using empty configuration", "path", path, "error", err)
		}
		return map[string]any{}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		slog.Warn("malformed user configuration, using empty configuration",
			"path", path,
			"error", models.NewError(models.ErrConfigurationFileMalformed, path, nil))
		return map[string]any{}
	}
	obj, err := parseObject(data)
	if err != nil {
		slog.Warn("malformed user configuration, using empty configuration", "path", path, "error", err)
		return map[string]any{}
	}
	return obj
}

// readForEdit returns the file content to edit, "{}" when the file is absent.
func readForEdit(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("reading user configuration: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, models.NewError(models.ErrConfigurationFileMalformed, path, nil)
	}
	return data, nil
}

func writeEdited(path string, data []byte) error {
	if err := os.WriteFile(path, pretty.Pretty(data), 0644); err != nil {
		return fmt.Errorf("writing user configuration: %w", err)
	}
	return nil
}

// setVariable writes value at key in the file at path.
func setVariable(path, key string, value any) error {
	if err := ValidateVariableKey(key); err != nil {
		return err
	}
	data, err := readForEdit(path)
	if err != nil {
		return err
	}
	data, err = sjson.SetBytes(data, key, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return writeEdited(path, data)
}

// deleteVariable removes key from the file at path, then removes every
// parent object the deletion left empty.
func deleteVariable(path, key string) error {
	if err := ValidateVariableKey(key); err != nil {
		return err
	}
	data, err := readForEdit(path)
	if err != nil {
		return err
	}
	if !gjson.GetBytes(data, key).Exists() {
		return models.NewError(models.ErrVariableNotFound, key, nil)
	}

	data, err = sjson.DeleteBytes(data, key)
	if err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}

	parts := strings.Split(key, ".")
	for i := len(parts) - 1; i > 0; i-- {
		parent := strings.Join(parts[:i], ".")
		res := gjson.GetBytes(data, parent)
		if !res.IsObject() || len(res.Map()) > 0 {
			break
		}
		slog.Debug("removing empty parent variable", "key", parent)
		if data, err = sjson.DeleteBytes(data, parent); err != nil {
			return fmt.Errorf("removing %s: %w", parent, err)
		}
	}

	return writeEdited(path, data)
}

// listVariables flattens the file at path into sorted dot-path leaves.
func listVariables(path string) ([]Variable, error) {
	data, err := readForEdit(path)
	if err != nil {
		return nil, err
	}
	var vars []Variable
	flatten("", gjson.ParseBytes(data), &vars)
	sort.Slice(vars, func(i, j int) bool { return vars[i].Key < vars[j].Key })
	return vars, nil
}

func flatten(prefix string, r gjson.Result, out *[]Variable) {
	if r.IsObject() {
		r.ForEach(func(k, v gjson.Result) bool {
			key := k.String()
			if prefix != "" {
				key = prefix + "." + key
			}
			flatten(key, v, out)
			return true
		})
		return
	}
	*out = append(*out, Variable{Key: prefix, Value: r.Value()})
}
