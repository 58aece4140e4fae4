package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/util"
)

// Settings file names probed at the project root, in order.
var SettingsFileNames = []string{"taskrun.toml", "taskrun.yaml", "taskrun.yml"}

// DefaultSettings returns Settings with default values.
func DefaultSettings() models.Settings {
	return models.Settings{
		TaskDirectory:    ".build",
		FallbackWarnings: true,
		Output: models.OutputSettings{
			MaxLength: "100k",
			MaxLines:  1000,
		},
		Shell: models.ShellSettings{
			Interpreter: "bash",
		},
		Colors: DefaultColors(),
	}
}

// DefaultColors returns the colour names exposed to tasks under "colors".
func DefaultColors() map[string]string {
	return map[string]string{
		"info":    "cyan",
		"success": "green",
		"warning": "yellow",
		"error":   "red",
	}
}

// LoadSettings loads the first settings file found in projectRoot. When none
// exists the defaults are returned.
func LoadSettings(projectRoot string) (models.Settings, error) {
	for _, name := range SettingsFileNames {
		path := filepath.Join(projectRoot, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return DefaultSettings(), fmt.Errorf("checking settings file: %w", err)
		}
		if filepath.Ext(name) == ".toml" {
			return LoadSettingsTOML(os.DirFS(projectRoot), name)
		}
		return LoadSettingsYAML(path)
	}
	return finalize(DefaultSettings())
}

// LoadSettingsTOML loads and parses a TOML settings file from the given filesystem.
func LoadSettingsTOML(fsys fs.FS, name string) (models.Settings, error) {
	cfg := DefaultSettings()

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", name, err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", name, err)
	}

	for _, key := range md.Undecoded() {
		slog.Warn("unknown settings key", "file", name, "key", key.String())
	}

	return finalize(cfg)
}

// LoadSettingsYAML loads and parses a YAML settings file.
func LoadSettingsYAML(path string) (models.Settings, error) {
	cfg := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing settings: %w", err)
	}

	return finalize(cfg)
}

// finalize applies defaults for missing values and parses size strings.
func finalize(cfg models.Settings) (models.Settings, error) {
	defaults := DefaultSettings()

	if cfg.TaskDirectory == "" {
		cfg.TaskDirectory = defaults.TaskDirectory
	}
	if cfg.Output.MaxLength == "" {
		cfg.Output.MaxLength = defaults.Output.MaxLength
	}
	if cfg.Output.MaxLines <= 0 {
		cfg.Output.MaxLines = defaults.Output.MaxLines
	}
	if cfg.Shell.Interpreter == "" {
		cfg.Shell.Interpreter = defaults.Shell.Interpreter
	}
	if cfg.Colors == nil {
		cfg.Colors = map[string]string{}
	}
	for k, v := range defaults.Colors {
		if _, ok := cfg.Colors[k]; !ok {
			cfg.Colors[k] = v
		}
	}

	n, err := util.ParseSize(cfg.Output.MaxLength)
	if err != nil {
		return cfg, fmt.Errorf("parsing output.max_length %q: %w", cfg.Output.MaxLength, err)
	}
	cfg.Output.MaxLengthChars = n

	return cfg, nil
}
