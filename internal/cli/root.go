// Package cli wires the taskrun command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spachava753/taskrun/internal/registry"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// errRunFailed marks a run whose failure was already reported.
var errRunFailed = errors.New("run failed")

type runOptions struct {
	only    bool
	outline bool
	list    bool
}

// NewRootCommand builds the taskrun command tree.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	global := &globalOptions{}
	run := &runOptions{}

	cmd := &cobra.Command{
		Use:   "taskrun [tasks...] [-- args...]",
		Short: "Run project tasks discovered from the task directory",
		Long: `taskrun discovers task files (shell, Lua or Go) under the task directory,
resolves their declared dependencies and runs them in order.

Tasks may be separated by spaces or commas. Arguments after "--" are passed
to every task body.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			taskArgs, bodyArgs := splitArgs(args, cmd.ArgsLenAtDash())
			return runTasks(cmd.Context(), global, run, parseTaskList(taskArgs), bodyArgs, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&global.projectRoot, "project-root", ".", "project root directory")
	pf.StringVar(&global.taskDirectory, "task-directory", "", "task directory relative to the project root (default from settings, .build)")
	pf.BoolVar(&global.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&global.format, "format", "text", "output format for listings: text, json or yaml")
	pf.BoolVarP(&global.verbose, "verbose", "v", false, "enable debug logging")

	f := cmd.Flags()
	f.BoolVar(&run.only, "only", false, "run the named tasks without their dependencies")
	f.BoolVar(&run.only, "skip-dependencies", false, "alias for --only")
	f.BoolVar(&run.outline, "outline", false, "show the execution plan without running anything")
	f.BoolVar(&run.outline, "preview", false, "alias for --outline")
	f.BoolVar(&run.list, "list", false, "list available tasks")
	f.BoolVar(&global.continueOnError, "continue-on-error", false, "continue with the next requested task after a failure")

	cmd.AddCommand(
		newCreateTaskCommand(global, stdout, stderr),
		newListVariablesCommand(global, stdout, stderr),
		newAddVariableCommand(global, stdout, stderr),
		newRemoveVariableCommand(global, stdout, stderr),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return ExitFailure
	}
	return ExitSuccess
}

func runTasks(ctx context.Context, global *globalOptions, run *runOptions, requested, bodyArgs []string, stdout, stderr io.Writer) error {
	a, err := newApp(global, stdout, stderr)
	if err != nil {
		return err
	}

	reg, err := a.discover(ctx)
	if err != nil {
		return err
	}

	if run.list || len(requested) == 0 {
		return a.printer.TaskList(reg.Tasks())
	}

	resolver := registry.NewResolver(reg, a.settings.StrictCycles)
	if run.outline {
		preview, err := resolver.Preview(requested, run.only)
		if err != nil {
			return err
		}
		return a.printer.Outline(preview)
	}

	plan, err := resolver.Resolve(requested, run.only)
	if err != nil {
		return err
	}

	result, err := a.coordinator(reg).Run(ctx, plan, bodyArgs, a.settings.ContinueOnError)
	if err != nil {
		return err
	}
	a.printer.Summary(result)
	if !result.Succeeded {
		return errRunFailed
	}
	return nil
}

// splitArgs separates task names from the arguments following "--".
func splitArgs(args []string, dash int) (tasks, rest []string) {
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

// parseTaskList accepts names separated by spaces or commas.
func parseTaskList(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, name := range strings.Split(arg, ",") {
			if name = strings.TrimSpace(strings.ToLower(name)); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
