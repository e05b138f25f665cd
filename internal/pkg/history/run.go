package history

import (
	"maps"
	"slices"
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/executor"
	"github.com/go-arcade/conveyor/pkg/statemachine"
)

// Run is the record of one pipeline execution
type Run struct {
	ID          string                 `json:"id"`
	Pipeline    string                 `json:"pipeline"`
	Event       string                 `json:"event"`
	Ref         string                 `json:"ref"`
	Branch      string                 `json:"branch"`
	SHA         string                 `json:"sha"`
	Actor       string                 `json:"actor,omitempty"`
	Environment string                 `json:"environment,omitempty"`
	Inputs      map[string]string      `json:"inputs,omitempty"`
	Status      statemachine.RunStatus `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Stages      []*StageRun            `json:"stages"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	FinishedAt  *time.Time             `json:"finished_at,omitempty"`
}

// StageRun is the record of one stage within a run
type StageRun struct {
	Name        string                   `json:"name"`
	Environment string                   `json:"environment,omitempty"`
	Status      statemachine.StageStatus `json:"status"`
	// Reason explains skipped, canceled and gated outcomes
	Reason     string                `json:"reason,omitempty"`
	Error      string                `json:"error,omitempty"`
	ApprovalID string                `json:"approval_id,omitempty"`
	Outputs    map[string]string     `json:"outputs,omitempty"`
	Artifact   *executor.Artifact    `json:"artifact,omitempty"`
	Report     *executor.Report      `json:"report,omitempty"`
	Steps      []executor.StepResult `json:"steps,omitempty"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Duration   time.Duration         `json:"duration,omitempty"`
}

// Stage returns the named stage record or nil
func (r *Run) Stage(name string) *StageRun {
	for _, s := range r.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Duration is the wall time of a finished run
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// Clone returns a deep copy safe to hand to other goroutines
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	c := *r
	c.Inputs = maps.Clone(r.Inputs)
	c.StartedAt = cloneTime(r.StartedAt)
	c.FinishedAt = cloneTime(r.FinishedAt)
	c.Stages = make([]*StageRun, len(r.Stages))
	for i, s := range r.Stages {
		c.Stages[i] = s.Clone()
	}
	return &c
}

func (s *StageRun) Clone() *StageRun {
	if s == nil {
		return nil
	}
	c := *s
	c.Outputs = maps.Clone(s.Outputs)
	c.Steps = slices.Clone(s.Steps)
	c.StartedAt = cloneTime(s.StartedAt)
	c.FinishedAt = cloneTime(s.FinishedAt)
	if s.Artifact != nil {
		a := *s.Artifact
		c.Artifact = &a
	}
	if s.Report != nil {
		r := *s.Report
		c.Report = &r
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
