package registry

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/spachava753/taskrun/internal/models"
)

// Resolver turns requested task names into an execution plan.
type Resolver struct {
	reg          *Registry
	strictCycles bool
}

// NewResolver creates a resolver over reg. With strictCycles set, a
// dependency cycle is an error instead of a warning.
func NewResolver(reg *Registry, strictCycles bool) *Resolver {
	return &Resolver{
		reg:          reg,
		strictCycles: strictCycles,
	}
}

// Node is one entry of a preview dependency tree.
type Node struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	BuiltIn     bool    `json:"builtin,omitempty" yaml:"builtin,omitempty"`
	Duplicate   bool    `json:"duplicate,omitempty" yaml:"duplicate,omitempty"`
	Missing     bool    `json:"missing,omitempty" yaml:"missing,omitempty"`
	Cycle       bool    `json:"cycle,omitempty" yaml:"cycle,omitempty"`
	Children    []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Preview is what an outline run shows: the plan and the tree it came from.
type Preview struct {
	Plan  models.Plan `json:"plan" yaml:"plan"`
	Roots []*Node     `json:"tree" yaml:"tree"`
}

type walk struct {
	visited    map[string]bool
	inProgress map[string]bool
	stack      []string
	order      []string
}

// Resolve computes the plan for requested. Every requested name must exist;
// dependencies missing from the registry are skipped with a warning. Each
// task appears once, after its dependencies.
func (r *Resolver) Resolve(requested []string, skipDependencies bool) (models.Plan, error) {
	tasks, err := r.lookupRequested(requested)
	if err != nil {
		return models.Plan{}, err
	}

	slog.Debug("resolving plan", "requested", requested, "skip_dependencies", skipDependencies)

	w := &walk{
		visited:    make(map[string]bool),
		inProgress: make(map[string]bool),
	}
	var plan models.Plan
	for i, t := range tasks {
		w.order = nil
		if skipDependencies {
			if !w.visited[t.Name()] {
				w.visited[t.Name()] = true
				w.order = append(w.order, t.Name())
			}
		} else if err := r.visit(w, t); err != nil {
			return models.Plan{}, err
		}
		plan.Segments = append(plan.Segments, models.Segment{
			Requested: requested[i],
			Tasks:     w.order,
		})
	}

	slog.Debug("resolved plan", "order", plan.Order())
	return plan, nil
}

// Preview resolves requested and also returns the dependency tree.
func (r *Resolver) Preview(requested []string, skipDependencies bool) (*Preview, error) {
	plan, err := r.Resolve(requested, skipDependencies)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var roots []*Node
	for _, name := range requested {
		t, _ := r.reg.Lookup(name)
		roots = append(roots, r.node(t, seen, nil, skipDependencies))
	}
	return &Preview{Plan: plan, Roots: roots}, nil
}

func (r *Resolver) lookupRequested(requested []string) ([]*models.Task, error) {
	tasks := make([]*models.Task, 0, len(requested))
	for _, name := range requested {
		t, err := r.reg.Get(name)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r *Resolver) visit(w *walk, t *models.Task) error {
	name := t.Name()
	if w.visited[name] {
		if w.inProgress[name] {
			cycle := strings.Join(append(cycleFrom(w.stack, name), name), " -> ")
			if r.strictCycles {
				return models.NewError(models.ErrCircularDependency, cycle, nil)
			}
			slog.Warn("circular dependency, treating as satisfied", "cycle", cycle)
		}
		return nil
	}

	w.visited[name] = true
	w.inProgress[name] = true
	w.stack = append(w.stack, name)

	for _, dep := range t.Dependencies {
		d, ok := r.reg.Dependency(t, dep)
		if !ok {
			slog.Warn("missing dependency, skipping",
				"task", name,
				"dependency", dep,
				"error", models.NewError(models.ErrMissingDependency, dep, nil))
			continue
		}
		if err := r.visit(w, d); err != nil {
			return err
		}
	}

	w.stack = w.stack[:len(w.stack)-1]
	delete(w.inProgress, name)
	w.order = append(w.order, name)
	return nil
}

func (r *Resolver) node(t *models.Task, seen map[string]bool, path []string, skipDependencies bool) *Node {
	name := t.Name()
	n := &Node{
		Name:        name,
		Description: t.Description,
		BuiltIn:     t.IsBuiltIn,
	}
	if seen[name] {
		n.Duplicate = true
		return n
	}
	seen[name] = true
	if skipDependencies {
		return n
	}

	path = append(path, name)
	for _, dep := range t.Dependencies {
		d, ok := r.reg.Dependency(t, dep)
		switch {
		case !ok:
			n.Children = append(n.Children, &Node{Name: dep, Missing: true})
		case slices.Contains(path, d.Name()):
			n.Children = append(n.Children, &Node{Name: d.Name(), Cycle: true})
		default:
			n.Children = append(n.Children, r.node(d, seen, path, skipDependencies))
		}
	}
	return n
}

// cycleFrom returns a copy of the stack starting at name.
func cycleFrom(stack []string, name string) []string {
	i := slices.Index(stack, name)
	if i < 0 {
		i = 0
	}
	return slices.Clone(stack[i:])
}
