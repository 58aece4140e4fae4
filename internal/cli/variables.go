package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newListVariablesCommand(global *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list-variables",
		Short: "List user configuration variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, stdout, stderr)
			if err != nil {
				return err
			}
			vars, err := a.config.ListVariables(a.projectRoot, a.settings.TaskDirectory)
			if err != nil {
				return err
			}
			return a.printer.Variables(vars)
		},
	}
}

func newAddVariableCommand(global *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "add-variable <key> <value>",
		Short: "Set a user configuration variable (dot-separated key)",
		Example: `  taskrun add-variable Azure.SubscriptionId 00000000-0000-0000-0000-000000000000
  taskrun add-variable --json Build.Targets '["linux","darwin"]'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, stdout, stderr)
			if err != nil {
				return err
			}
			var value any = args[1]
			if raw {
				if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
					return fmt.Errorf("parsing value as JSON: %w", err)
				}
			}
			if err := a.config.AddVariable(a.projectRoot, a.settings.TaskDirectory, args[0], value); err != nil {
				return err
			}
			path, _ := a.config.UserConfigPath(a.projectRoot, a.settings.TaskDirectory)
			fmt.Fprintf(stdout, "Set %s in %s\n", args[0], path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "parse the value as JSON instead of storing a string")
	return cmd
}

func newRemoveVariableCommand(global *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-variable <key>",
		Short: "Remove a user configuration variable and any parents left empty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, stdout, stderr)
			if err != nil {
				return err
			}
			if err := a.config.RemoveVariable(a.projectRoot, a.settings.TaskDirectory, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Removed %s\n", args[0])
			return nil
		},
	}
}
