package models

import "time"

// Segment is the part of a plan contributed by one requested task.
type Segment struct {
	Requested string   `json:"requested" yaml:"requested"`
	Tasks     []string `json:"tasks" yaml:"tasks"`
}

// Plan is the ordered, deduplicated execution order for one invocation.
type Plan struct {
	Segments []Segment `json:"segments" yaml:"segments"`
}

// Order flattens the plan into the linear execution order.
func (p Plan) Order() []string {
	var out []string
	for _, s := range p.Segments {
		out = append(out, s.Tasks...)
	}
	return out
}

// TaskStatus is the outcome of a single task in a run.
type TaskStatus string

const (
	StatusSucceeded TaskStatus = "succeeded"
	StatusFailed    TaskStatus = "failed"
	StatusSkipped   TaskStatus = "skipped"
)

// TaskResult contains the outcome of one task execution.
type TaskResult struct {
	Name        string     `json:"name"`
	Status      TaskStatus `json:"status"`
	ExitCode    int        `json:"exit_code"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     time.Time  `json:"ended_at"`
	DurationSec float64    `json:"duration_sec"`
}

// RunResult aggregates every task outcome of one invocation.
type RunResult struct {
	RunID            string       `json:"run_id"`
	Succeeded        bool         `json:"succeeded"`
	Cancelled        bool         `json:"cancelled"`
	FailedTasks      []string     `json:"failed_tasks"`
	Results          []TaskResult `json:"results"`
	StartedAt        time.Time    `json:"started_at"`
	EndedAt          time.Time    `json:"ended_at"`
	TotalDurationSec float64      `json:"total_duration_sec"`
}
