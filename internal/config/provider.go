package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/security"
	"github.com/spachava753/taskrun/internal/vcs"
)

// Provider builds the configuration object and owns its per-invocation cache.
// A Provider is meant to live for one invocation and is not safe for
// concurrent use.
type Provider struct {
	settings models.Settings
	vcs      vcs.Prober
	cache    *cachedObject
}

type cachedObject struct {
	key        string
	serialized string
}

// NewProvider creates a new configuration provider.
func NewProvider(settings models.Settings, prober vcs.Prober) *Provider {
	return &Provider{
		settings: settings,
		vcs:      prober,
	}
}

// Build computes the configuration object from scratch: built-ins probed
// live, then the user file layered on top. taskScriptRoot and taskName may be
// empty when no task is being specialized for.
func (p *Provider) Build(ctx context.Context, scriptRoot, taskDirectory, taskScriptRoot, taskName string) (Object, error) {
	obj, err := p.build(ctx, scriptRoot, taskDirectory)
	if err != nil {
		return nil, err
	}
	specialize(obj, taskScriptRoot, taskName)
	return obj, nil
}

// CachedSerialized returns the task-independent object as JSON, computing it
// at most once until the cache is invalidated.
func (p *Provider) CachedSerialized(ctx context.Context, scriptRoot, taskDirectory string) (string, error) {
	key := scriptRoot + "\x00" + taskDirectory
	if p.cache != nil && p.cache.key == key {
		return p.cache.serialized, nil
	}

	obj, err := p.build(ctx, scriptRoot, taskDirectory)
	if err != nil {
		return "", err
	}
	data, err := obj.JSON()
	if err != nil {
		return "", fmt.Errorf("serializing configuration: %w", err)
	}

	slog.Debug("configuration cached", "project_root", scriptRoot, "task_directory", taskDirectory)
	p.cache = &cachedObject{key: key, serialized: string(data)}
	return p.cache.serialized, nil
}

// ForTask returns a private copy of the cached object specialized for one task.
func (p *Provider) ForTask(ctx context.Context, scriptRoot, taskDirectory, taskScriptRoot, taskName string) (Object, error) {
	serialized, err := p.CachedSerialized(ctx, scriptRoot, taskDirectory)
	if err != nil {
		return nil, err
	}
	obj, err := parseObject([]byte(serialized))
	if err != nil {
		return nil, fmt.Errorf("parsing cached configuration: %w", err)
	}
	specialize(obj, taskScriptRoot, taskName)
	return obj, nil
}

// Invalidate drops the cached object.
func (p *Provider) Invalidate() {
	p.cache = nil
}

// UserConfigPath returns the user configuration file that applies to the task
// directory, or the project-root location where one would be created.
func (p *Provider) UserConfigPath(scriptRoot, taskDirectory string) (string, error) {
	root, taskDirPath, err := resolveRoots(scriptRoot, taskDirectory)
	if err != nil {
		return "", err
	}
	if path := FindUserConfig(root, taskDirPath); path != "" {
		return path, nil
	}
	return filepath.Join(root, UserConfigFileName), nil
}

// AddVariable sets key (a dot-path) to value in the user configuration.
func (p *Provider) AddVariable(scriptRoot, taskDirectory, key string, value any) error {
	path, err := p.UserConfigPath(scriptRoot, taskDirectory)
	if err != nil {
		return err
	}
	defer p.Invalidate()
	if err := setVariable(path, key, value); err != nil {
		return err
	}
	slog.Debug("variable added", "key", key, "path", path)
	return nil
}

// RemoveVariable deletes key from the user configuration, along with any
// parent objects left empty.
func (p *Provider) RemoveVariable(scriptRoot, taskDirectory, key string) error {
	path, err := p.UserConfigPath(scriptRoot, taskDirectory)
	if err != nil {
		return err
	}
	defer p.Invalidate()
	if err := deleteVariable(path, key); err != nil {
		return err
	}
	slog.Debug("variable removed", "key", key, "path", path)
	return nil
}

// ListVariables returns every user-defined leaf value.
func (p *Provider) ListVariables(scriptRoot, taskDirectory string) ([]Variable, error) {
	path, err := p.UserConfigPath(scriptRoot, taskDirectory)
	if err != nil {
		return nil, err
	}
	return listVariables(path)
}

func (p *Provider) build(ctx context.Context, scriptRoot, taskDirectory string) (Object, error) {
	root, taskDirPath, err := resolveRoots(scriptRoot, taskDirectory)
	if err != nil {
		return nil, err
	}

	colors := make(map[string]any, len(p.settings.Colors))
	for k, v := range p.settings.Colors {
		colors[k] = v
	}

	obj := Object{
		KeyProjectRoot:       root,
		KeyTaskDirectory:     taskDirectory,
		KeyTaskDirectoryPath: taskDirPath,
		KeyTaskScriptRoot:    "",
		KeyTaskName:          "",
		KeyColors:            colors,
	}

	if p.vcs != nil {
		if gitRoot, err := p.vcs.Root(ctx, root); err == nil {
			obj[KeyGitRoot] = gitRoot
			if branch, err := p.vcs.Branch(ctx, root); err == nil {
				obj[KeyGitBranch] = branch
			}
		} else {
			slog.Debug("project is not in a git repository", "project_root", root, "error", err)
		}
	}

	user := LoadUserConfig(FindUserConfig(root, taskDirPath))
	keys := make([]string, 0, len(user))
	for k := range user {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			slog.Info("user configuration overrides built-in value", "key", k)
		}
		obj[k] = user[k]
	}

	return obj, nil
}

func resolveRoots(scriptRoot, taskDirectory string) (root, taskDirPath string, err error) {
	root, err = filepath.Abs(scriptRoot)
	if err != nil {
		return "", "", fmt.Errorf("getting absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	taskDirPath, err = security.ResolveTaskDirectory(root, taskDirectory)
	if err != nil {
		return "", "", models.NewError(models.ErrDirectoryTraversalRejected, taskDirectory, err)
	}
	return root, taskDirPath, nil
}

func specialize(obj Object, taskScriptRoot, taskName string) {
	if taskScriptRoot != "" {
		obj[KeyTaskScriptRoot] = taskScriptRoot
	}
	if taskName != "" {
		obj[KeyTaskName] = taskName
	}
}
