package environment

import (
	"context"
	"io"

	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/vcs"
)

// Runtime executes task bodies of one kind.
type Runtime interface {
	// Name returns the runtime name (e.g., "shell", "lua", "go").
	Name() string

	// Kind returns the body kind this runtime handles.
	Kind() models.BodyKind

	// Run executes the body described by inv and returns its exit status.
	// A non-nil error means the body could not be run at all or raised an
	// error of its own.
	Run(ctx context.Context, inv Invocation) (int, error)
}

// Invocation is everything a task body receives for one run.
type Invocation struct {
	TaskName    string
	Path        string // absolute path to the task file
	WorkDir     string
	Args        []string
	Config      map[string]any // specialized configuration object
	ProjectRoot string
	VCS         vcs.Prober
	Limits      OutputLimits
	Stdout      io.Writer
	Stderr      io.Writer
}

// OutputLimits bounds what a body may print through the sanitizer.
type OutputLimits struct {
	MaxLength int
	MaxLines  int
}

// Runtimes indexes runtimes by the body kind they serve.
type Runtimes map[models.BodyKind]Runtime

// NewRuntimes builds the index.
func NewRuntimes(rs ...Runtime) Runtimes {
	out := make(Runtimes, len(rs))
	for _, r := range rs {
		out[r.Kind()] = r
	}
	return out
}

// For returns the runtime for kind.
func (r Runtimes) For(kind models.BodyKind) (Runtime, error) {
	rt, ok := r[kind]
	if !ok {
		return nil, models.NewError(models.ErrUnsupportedBody, string(kind), nil)
	}
	return rt, nil
}
