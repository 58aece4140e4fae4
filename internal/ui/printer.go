package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/taskrun/internal/config"
	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/registry"
	"github.com/spachava753/taskrun/internal/security"
)

// Format selects how listings are written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want text, json or yaml)", s)
	}
}

// Printer writes everything the CLI shows on stdout.
type Printer struct {
	out    io.Writer
	theme  Theme
	format Format
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, theme Theme, format Format) *Printer {
	return &Printer{out: out, theme: theme, format: format}
}

type taskInfo struct {
	Name         string   `json:"name" yaml:"name"`
	Aliases      []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Namespace    string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Kind         string   `json:"kind" yaml:"kind"`
	Path         string   `json:"path,omitempty" yaml:"path,omitempty"`
}

// TaskList prints the available tasks.
func (p *Printer) TaskList(tasks []*models.Task) error {
	infos := make([]taskInfo, 0, len(tasks))
	for _, t := range tasks {
		infos = append(infos, taskInfo{
			Name:         t.Name(),
			Aliases:      t.Aliases(),
			Description:  clean(t.Description),
			Dependencies: t.Dependencies,
			Namespace:    t.Namespace,
			Kind:         string(t.Kind),
			Path:         t.Path,
		})
	}
	if p.format != FormatText {
		return p.encode(infos)
	}

	width := 0
	for _, info := range infos {
		if w := len(label(info)); w > width {
			width = w
		}
	}
	for _, info := range infos {
		name := fmt.Sprintf("%-*s", width, label(info))
		line := p.theme.Info.Render(name)
		if info.Description != "" {
			line += "  " + info.Description
		}
		if len(info.Dependencies) > 0 {
			line += "  " + p.theme.Muted.Render("(depends: "+strings.Join(info.Dependencies, ", ")+")")
		}
		fmt.Fprintln(p.out, line)
	}
	return nil
}

// Outline prints the plan and dependency tree without running anything.
func (p *Printer) Outline(preview *registry.Preview) error {
	if p.format != FormatText {
		return p.encode(preview)
	}

	for _, root := range preview.Roots {
		fmt.Fprintln(p.out, p.tree(root).String())
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.theme.Info.Render("Execution order:"))
	for i, name := range preview.Plan.Order() {
		fmt.Fprintf(p.out, "%3d. %s\n", i+1, name)
	}
	return nil
}

// Variables prints the user configuration leaves.
func (p *Printer) Variables(vars []config.Variable) error {
	if p.format != FormatText {
		if vars == nil {
			vars = []config.Variable{}
		}
		return p.encode(vars)
	}
	if len(vars) == 0 {
		fmt.Fprintln(p.out, p.theme.Muted.Render("no variables defined"))
		return nil
	}
	for _, v := range vars {
		value, err := json.Marshal(v.Value)
		if err != nil {
			return fmt.Errorf("formatting %s: %w", v.Key, err)
		}
		fmt.Fprintf(p.out, "%s = %s\n", p.theme.Info.Render(v.Key), value)
	}
	return nil
}

// TaskStarted announces a task.
func (p *Printer) TaskStarted(name string) {
	fmt.Fprintln(p.out, p.theme.Info.Render("▶ "+name))
}

// TaskFinished reports the outcome of a task.
func (p *Printer) TaskFinished(res models.TaskResult) {
	switch res.Status {
	case models.StatusSucceeded:
		fmt.Fprintln(p.out, p.theme.Success.Render(fmt.Sprintf("✔ %s (%.2fs)", res.Name, res.DurationSec)))
	case models.StatusFailed:
		msg := fmt.Sprintf("✘ %s", res.Name)
		if res.Error != "" {
			msg += ": " + res.Error
		}
		fmt.Fprintln(p.out, p.theme.Error.Render(msg))
	}
}

// Summary prints the final line of a run.
func (p *Printer) Summary(result *models.RunResult) {
	var ran, skipped int
	for _, r := range result.Results {
		if r.Status == models.StatusSkipped {
			skipped++
		} else {
			ran++
		}
	}

	switch {
	case result.Cancelled:
		fmt.Fprintln(p.out, p.theme.Warning.Render(fmt.Sprintf("Cancelled after %d task(s) in %.2fs", ran, result.TotalDurationSec)))
	case result.Succeeded:
		fmt.Fprintln(p.out, p.theme.Success.Render(fmt.Sprintf("Completed %d task(s) in %.2fs", ran, result.TotalDurationSec)))
	default:
		fmt.Fprintln(p.out, p.theme.Error.Render(fmt.Sprintf("Failed: %s", strings.Join(result.FailedTasks, ", "))))
	}
	if skipped > 0 {
		fmt.Fprintln(p.out, p.theme.Muted.Render(fmt.Sprintf("%d task(s) skipped", skipped)))
	}
}

func (p *Printer) tree(n *registry.Node) *tree.Tree {
	t := tree.Root(p.nodeLabel(n))
	for _, child := range n.Children {
		if len(child.Children) == 0 {
			t.Child(p.nodeLabel(child))
			continue
		}
		t.Child(p.tree(child))
	}
	return t
}

func (p *Printer) nodeLabel(n *registry.Node) string {
	switch {
	case n.Missing:
		return p.theme.Warning.Render(n.Name + " (missing)")
	case n.Cycle:
		return p.theme.Error.Render(n.Name + " (cycle)")
	case n.Duplicate:
		return p.theme.Muted.Render(n.Name + " (already listed)")
	}
	s := p.theme.Info.Render(n.Name)
	if n.BuiltIn {
		s += p.theme.Muted.Render(" [built-in]")
	}
	if n.Description != "" {
		s += " " + clean(n.Description)
	}
	return s
}

func (p *Printer) encode(v any) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", p.format)
	}
}

func label(info taskInfo) string {
	if len(info.Aliases) == 0 {
		return info.Name
	}
	return fmt.Sprintf("%s (%s)", info.Name, strings.Join(info.Aliases, ", "))
}

// clean makes text read from task files safe to print.
func clean(s string) string {
	return security.SanitizeOutput(s, 0, 1)
}
