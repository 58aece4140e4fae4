package models

// Settings represents the parsed taskrun.toml (or taskrun.yaml) runner settings.
type Settings struct {
	TaskDirectory    string            `toml:"task_directory" yaml:"task_directory" json:"task_directory"`
	ContinueOnError  bool              `toml:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	StrictCycles     bool              `toml:"strict_cycles" yaml:"strict_cycles" json:"strict_cycles"`
	FallbackWarnings bool              `toml:"fallback_warnings" yaml:"fallback_warnings" json:"fallback_warnings"`
	LogLevel         string            `toml:"log_level,omitempty" yaml:"log_level,omitempty" json:"log_level,omitempty"`
	Output           OutputSettings    `toml:"output" yaml:"output" json:"output"`
	Shell            ShellSettings     `toml:"shell" yaml:"shell" json:"shell"`
	Colors           map[string]string `toml:"colors" yaml:"colors" json:"colors"`
}

type OutputSettings struct {
	MaxLength string `toml:"max_length" yaml:"max_length" json:"max_length"` // size string, e.g. "100k"
	MaxLines  int    `toml:"max_lines" yaml:"max_lines" json:"max_lines"`

	// MaxLengthChars is MaxLength parsed, filled in by the loader.
	MaxLengthChars int `toml:"-" yaml:"-" json:"-"`
}

type ShellSettings struct {
	Interpreter string `toml:"interpreter" yaml:"interpreter" json:"interpreter"`
}
