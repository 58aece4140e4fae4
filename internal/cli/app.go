package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/spachava753/taskrun/internal/config"
	"github.com/spachava753/taskrun/internal/environment"
	"github.com/spachava753/taskrun/internal/environment/gointerp"
	"github.com/spachava753/taskrun/internal/environment/lua"
	"github.com/spachava753/taskrun/internal/environment/shell"
	"github.com/spachava753/taskrun/internal/executor"
	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/registry"
	"github.com/spachava753/taskrun/internal/security"
	"github.com/spachava753/taskrun/internal/ui"
	"github.com/spachava753/taskrun/internal/vcs"
)

// EnvNoFallbackWarnings silences warnings about tasks named after their file.
const EnvNoFallbackWarnings = "TASKRUN_NO_FALLBACK_WARNINGS"

// globalOptions are the flags shared by every command.
type globalOptions struct {
	projectRoot     string
	taskDirectory   string
	continueOnError bool
	noColor         bool
	format          string
	verbose         bool
}

// app is one invocation's fully wired state.
type app struct {
	runID       string
	projectRoot string
	settings    models.Settings
	vcs         vcs.Prober
	config      *config.Provider
	printer     *ui.Printer
	stdout      io.Writer
	stderr      io.Writer
}

func newApp(opts *globalOptions, stdout, stderr io.Writer) (*app, error) {
	runID := uuid.NewString()

	root, err := filepath.Abs(opts.projectRoot)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	// Settings problems are reported once the logger is up.
	settings, settingsErr := config.LoadSettings(root)

	level := parseLevel(settings.LogLevel)
	if opts.verbose {
		level = slog.LevelDebug
	}
	setupLogger(stderr, level, runID)
	if settingsErr != nil {
		return nil, settingsErr
	}

	if opts.taskDirectory != "" {
		settings.TaskDirectory = opts.taskDirectory
	}
	if opts.continueOnError {
		settings.ContinueOnError = true
	}
	if os.Getenv(EnvNoFallbackWarnings) != "" {
		settings.FallbackWarnings = false
	}
	if !security.ValidateTaskDirectory(root, settings.TaskDirectory) {
		return nil, models.NewError(models.ErrDirectoryTraversalRejected, settings.TaskDirectory, nil)
	}

	format, err := ui.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}

	prober := vcs.NewGit()
	slog.Debug("invocation started",
		"project_root", root,
		"task_directory", settings.TaskDirectory)

	return &app{
		runID:       runID,
		projectRoot: root,
		settings:    settings,
		vcs:         prober,
		config:      config.NewProvider(settings, prober),
		printer:     ui.NewPrinter(stdout, ui.NewTheme(stdout, settings.Colors, opts.noColor), format),
		stdout:      stdout,
		stderr:      stderr,
	}, nil
}

func (a *app) discover(ctx context.Context) (*registry.Registry, error) {
	return registry.Discover(ctx, a.projectRoot, a.settings.TaskDirectory, registry.Options{
		FallbackWarnings: a.settings.FallbackWarnings,
		Builtins:         registry.Builtins(a.vcs),
	})
}

func (a *app) coordinator(reg *registry.Registry) *executor.Coordinator {
	exec := &executor.DefaultTaskExecutor{
		ProjectRoot:   a.projectRoot,
		TaskDirectory: a.settings.TaskDirectory,
		Config:        a.config,
		Runtimes: environment.NewRuntimes(
			shell.New(a.settings.Shell.Interpreter),
			lua.New(),
			gointerp.New(),
		),
		VCS: a.vcs,
		Limits: environment.OutputLimits{
			MaxLength: a.settings.Output.MaxLengthChars,
			MaxLines:  a.settings.Output.MaxLines,
		},
		Stdout: a.stdout,
		Stderr: a.stderr,
	}
	return executor.NewCoordinator(reg, exec,
		executor.WithObserver(a.printer),
		executor.WithRunID(a.runID))
}
