// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package trigger

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/ryanuber/go-glob"
)

// Event names
const (
	EventPush        = "push"
	EventPullRequest = "pull_request"
	EventDispatch    = "workflow_dispatch"
)

// Dispatch inputs understood by the resolver
const (
	InputStages      = "stages"
	InputEnvironment = "environment"
)

const (
	branchRefPrefix = "refs/heads/"
	tagRefPrefix    = "refs/tags/"
)

var (
	// ErrNotTriggered means the pipeline does not react to the event
	ErrNotTriggered = errors.New("event does not trigger the pipeline")
	// ErrInvalidEvent means the event itself is malformed
	ErrInvalidEvent = errors.New("invalid event")
)

// Event is an incoming push, pull request or manual dispatch
type Event struct {
	Name string `json:"name"`
	// Ref is the pushed ref, or the head ref of a pull request
	Ref string `json:"ref"`
	// BaseRef is the target branch of a pull request
	BaseRef string            `json:"base_ref,omitempty"`
	SHA     string            `json:"sha,omitempty"`
	Actor   string            `json:"actor,omitempty"`
	Inputs  map[string]string `json:"inputs,omitempty"`
}

// Plan is what a run executes
type Plan struct {
	Pipeline *pipeline.Pipeline
	Event    Event
	// Branch the run builds
	Branch string
	// Environment the deploy stages target, nil when none
	Environment *pipeline.Environment
	// Selected stage names in declaration order
	Stages []string
}

// Selected reports whether stage is part of the plan
func (p *Plan) Selected(stage string) bool {
	return slices.Contains(p.Stages, stage)
}

// EnvironmentName returns the plan environment name or ""
func (p *Plan) EnvironmentName() string {
	if p.Environment == nil {
		return ""
	}
	return p.Environment.Name
}

// BranchFromRef strips refs/heads/. Tags and other refs yield "".
func BranchFromRef(ref string) string {
	switch {
	case strings.HasPrefix(ref, branchRefPrefix):
		return strings.TrimPrefix(ref, branchRefPrefix)
	case strings.HasPrefix(ref, "refs/"):
		return ""
	default:
		return ref
	}
}

// Resolver maps events onto plans
type Resolver struct {
	logger log.Logger
}

func NewResolver(logger log.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve decides whether pl runs for ev and which stages it selects
func (r *Resolver) Resolve(pl *pipeline.Pipeline, ev Event) (*Plan, error) {
	plan, err := resolve(pl, ev)
	if r.logger.Log != nil {
		if err != nil {
			r.logger.Log.Debugw("event not triggered", "pipeline", pl.Name, "event", ev.Name, "ref", ev.Ref, "reason", err)
		} else {
			r.logger.Log.Infow("event triggered", "pipeline", pl.Name, "event", ev.Name,
				"branch", plan.Branch, "environment", plan.EnvironmentName(), "stages", plan.Stages)
		}
	}
	return plan, err
}

// Resolve uses a resolver without logging
func Resolve(pl *pipeline.Pipeline, ev Event) (*Plan, error) {
	return resolve(pl, ev)
}

func resolve(pl *pipeline.Pipeline, ev Event) (*Plan, error) {
	if strings.HasPrefix(ev.Ref, tagRefPrefix) {
		return nil, fmt.Errorf("%w: tag %s", ErrNotTriggered, ev.Ref)
	}

	plan := &Plan{Pipeline: pl, Event: ev}
	deploys := false

	switch ev.Name {
	case EventPush:
		if pl.Triggers.Push == nil {
			return nil, fmt.Errorf("%w: push not enabled", ErrNotTriggered)
		}
		plan.Branch = BranchFromRef(ev.Ref)
		if !matchAny(pl.Triggers.Push.Branches, plan.Branch) {
			return nil, fmt.Errorf("%w: branch %q", ErrNotTriggered, plan.Branch)
		}
		plan.Environment = pl.EnvironmentForBranch(plan.Branch)
		deploys = true

	case EventPullRequest:
		if pl.Triggers.PullRequest == nil {
			return nil, fmt.Errorf("%w: pull_request not enabled", ErrNotTriggered)
		}
		base := BranchFromRef(ev.BaseRef)
		if !matchAny(pl.Triggers.PullRequest.Branches, base) {
			return nil, fmt.Errorf("%w: base branch %q", ErrNotTriggered, base)
		}
		plan.Branch = BranchFromRef(ev.Ref)
		if plan.Branch == "" {
			plan.Branch = base
		}

	case EventDispatch:
		if pl.Triggers.Dispatch == nil || !pl.Triggers.Dispatch.Enabled {
			return nil, fmt.Errorf("%w: workflow_dispatch not enabled", ErrNotTriggered)
		}
		plan.Branch = BranchFromRef(ev.Ref)
		if name := strings.TrimSpace(ev.Inputs[InputEnvironment]); name != "" {
			env := pl.Environment(name)
			if env == nil {
				return nil, fmt.Errorf("%w: unknown environment %q", ErrInvalidEvent, name)
			}
			plan.Environment = env
		} else {
			plan.Environment = pl.EnvironmentForBranch(plan.Branch)
		}
		deploys = true

	default:
		return nil, fmt.Errorf("%w: unsupported event %q", ErrInvalidEvent, ev.Name)
	}

	only, err := requestedStages(pl, ev)
	if err != nil {
		return nil, err
	}

	for _, stage := range pl.Stages {
		if only != nil && !only[stage.Name] {
			continue
		}
		if stage.Environment != "" {
			if !deploys || plan.Environment == nil || plan.Environment.Name != stage.Environment {
				continue
			}
		}
		plan.Stages = append(plan.Stages, stage.Name)
	}
	if len(plan.Stages) == 0 {
		return nil, fmt.Errorf("%w: no stage selected", ErrNotTriggered)
	}
	return plan, nil
}

func requestedStages(pl *pipeline.Pipeline, ev Event) (map[string]bool, error) {
	if ev.Name != EventDispatch {
		return nil, nil
	}
	raw := strings.TrimSpace(ev.Inputs[InputStages])
	if raw == "" {
		return nil, nil
	}
	only := map[string]bool{}
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if pl.Stage(name) == nil {
			return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidEvent, name)
		}
		only[name] = true
	}
	return only, nil
}

func matchAny(patterns []string, branch string) bool {
	if branch == "" {
		return false
	}
	for _, p := range patterns {
		if glob.Glob(p, branch) {
			return true
		}
	}
	return false
}
