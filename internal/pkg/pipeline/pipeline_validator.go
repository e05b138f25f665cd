package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/go-arcade/conveyor/pkg/dag"
)

var (
	// ErrInvalidPipeline wraps every definition error
	ErrInvalidPipeline = errors.New("invalid pipeline")

	namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
)

// builtin actions a step may use
const (
	BuiltinHealthCheck    = "health-check"
	BuiltinUploadArtifact = "upload-artifact"
)

// TestStageName is the stage deploys to require_tests environments must depend on
const TestStageName = "test"

var builtinParams = map[string][]string{
	BuiltinHealthCheck:    {"url"},
	BuiltinUploadArtifact: {"path"},
}

var (
	stageStatuses = []string{"succeeded", "failed", "skipped", "canceled"}
	runStatuses   = []string{"succeeded", "failed", "canceled"}
	shells        = []string{"", "sh", "bash"}
)

// Validate checks a defaulted pipeline and reports every problem found
func Validate(pl *Pipeline) error {
	if pl == nil {
		return fmt.Errorf("%w: pipeline is nil", ErrInvalidPipeline)
	}

	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if pl.Name == "" {
		add("name is required")
	}
	if len(pl.Stages) == 0 {
		add("at least one stage is required")
	}
	if pl.MaxParallel < 0 {
		add("max_parallel must not be negative")
	}
	for _, branches := range [][]string{triggerBranches(pl.Triggers.Push), triggerBranches(pl.Triggers.PullRequest)} {
		for _, b := range branches {
			if b == "" {
				add("triggers: empty branch pattern")
			}
		}
	}

	seen := make(map[string]struct{}, len(pl.Stages))
	nodes := make([]dag.NamedNode, 0, len(pl.Stages))
	for i, stage := range pl.Stages {
		if stage == nil {
			add("stages[%d]: empty stage", i)
			continue
		}
		if !namePattern.MatchString(stage.Name) {
			add("stages[%d]: invalid name %q", i, stage.Name)
			continue
		}
		if _, dup := seen[stage.Name]; dup {
			add("stage %q: duplicate name", stage.Name)
			continue
		}
		seen[stage.Name] = struct{}{}
		nodes = append(nodes, stage)
		errs = append(errs, validateStage(pl, stage)...)
	}

	if len(nodes) == len(pl.Stages) {
		if err := validateGraph(pl, nodes); err != nil {
			errs = append(errs, err)
		}
	}

	if n := pl.Notifications; n != nil {
		for _, s := range n.Stages {
			if !slices.Contains(stageStatuses, s) {
				add("notifications: unknown stage status %q", s)
			}
		}
		for _, s := range n.Runs {
			if !slices.Contains(runStatuses, s) {
				add("notifications: unknown run status %q", s)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPipeline, errors.Join(errs...))
	}
	return nil
}

func triggerBranches(t any) []string {
	switch v := t.(type) {
	case *PushTrigger:
		if v != nil {
			return v.Branches
		}
	case *PullRequestTrigger:
		if v != nil {
			return v.Branches
		}
	}
	return nil
}

func validateStage(pl *Pipeline, stage *Stage) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("stage %q: "+format, append([]any{stage.Name}, args...)...))
	}

	if stage.Environment != "" && pl.Environment(stage.Environment) == nil {
		add("environment %q is not declared", stage.Environment)
	}
	if err := CompileCondition(stage.If); err != nil {
		add("if: %v", err)
	}
	if len(stage.Steps) == 0 {
		add("at least one step is required")
	}

	ids := map[string]struct{}{}
	for i, step := range stage.Steps {
		if step == nil {
			add("steps[%d]: empty step", i)
			continue
		}
		if _, dup := ids[step.ID]; dup {
			add("steps[%d]: duplicate id %q", i, step.ID)
		}
		ids[step.ID] = struct{}{}

		switch {
		case step.Run == "" && step.Uses == "":
			add("step %q: one of run or uses is required", step.Name)
		case step.Run != "" && step.Uses != "":
			add("step %q: run and uses are mutually exclusive", step.Name)
		case step.Uses != "":
			required, known := builtinParams[step.Uses]
			if !known {
				add("step %q: unknown action %q", step.Name, step.Uses)
				break
			}
			for _, param := range required {
				if step.With[param] == "" {
					add("step %q: %s requires with.%s", step.Name, step.Uses, param)
				}
			}
		}
		if !slices.Contains(shells, step.Shell) {
			add("step %q: unsupported shell %q", step.Name, step.Shell)
		}
		if step.Timeout < 0 {
			add("step %q: negative timeout", step.Name)
		}
	}
	return errs
}

func validateGraph(pl *Pipeline, nodes []dag.NamedNode) error {
	g, err := dag.New(nodes)
	if err != nil {
		return fmt.Errorf("stage graph: %w", err)
	}

	var errs []error
	for _, stage := range pl.Stages {
		env := pl.Environment(stage.Environment)
		if env == nil || !env.RequireTests {
			continue
		}
		ancestors, err := g.Ancestors(stage.Name)
		if err != nil {
			return err
		}
		if !slices.Contains(ancestors, TestStageName) {
			errs = append(errs, fmt.Errorf("stage %q: environment %q requires tests, stage must depend on %q",
				stage.Name, env.Name, TestStageName))
		}
	}
	return errors.Join(errs...)
}

// Graph builds the stage graph of a valid pipeline
func (p *Pipeline) Graph(opts ...dag.Option) (*dag.DAG, error) {
	nodes := make([]dag.NamedNode, 0, len(p.Stages))
	for _, s := range p.Stages {
		nodes = append(nodes, s)
	}
	return dag.New(nodes, opts...)
}
