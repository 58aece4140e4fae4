package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/vcs"
)

// Builtins returns the tasks available in every project.
func Builtins(prober vcs.Prober) []*models.Task {
	return []*models.Task{
		{
			Names:       []string{"check", "check-index"},
			Description: "Fails when the git working tree has uncommitted changes",
			IsBuiltIn:   true,
			Kind:        models.KindBuiltin,
			Builtin:     checkIndex(prober),
		},
		{
			Names:       []string{"config"},
			Description: "Prints the configuration object passed to tasks",
			IsBuiltIn:   true,
			Kind:        models.KindBuiltin,
			Builtin:     printConfig,
		},
	}
}

func checkIndex(prober vcs.Prober) models.BuiltinFunc {
	return func(ctx context.Context, tc *models.TaskContext) error {
		clean, err := prober.Clean(ctx, tc.ProjectRoot)
		if err != nil {
			return fmt.Errorf("checking git status: %w", err)
		}
		if !clean {
			return fmt.Errorf("git working tree is %s", vcs.Status(clean))
		}
		fmt.Fprintln(tc.Stdout, "git working tree is clean")
		return nil
	}
}

func printConfig(ctx context.Context, tc *models.TaskContext) error {
	data, err := json.MarshalIndent(tc.Config, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing configuration: %w", err)
	}
	_, err = fmt.Fprintln(tc.Stdout, string(data))
	return err
}
