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

package pipeline

import (
	"github.com/go-arcade/conveyor/pkg/duration"
)

// Pipeline is the top-level pipeline definition
type Pipeline struct {
	// Pipeline name (required)
	Name string `json:"name"`
	// Variables visible to every step
	Env map[string]string `json:"env,omitempty"`
	// Events that start a run
	Triggers Triggers `json:"triggers"`
	// Deployment targets keyed by name. Defaults apply when empty.
	Environments map[string]*Environment `json:"environments,omitempty"`
	// Who hears about what
	Notifications *Notifications `json:"notifications,omitempty"`
	// Maximum stages executing at once, 0 uses the server default
	MaxParallel int `json:"max_parallel,omitempty"`
	// Stages in declaration order
	Stages []*Stage `json:"stages"`
}

// Triggers lists the events a pipeline reacts to
type Triggers struct {
	Push        *PushTrigger        `json:"push,omitempty"`
	PullRequest *PullRequestTrigger `json:"pull_request,omitempty"`
	Dispatch    *DispatchTrigger    `json:"workflow_dispatch,omitempty"`
}

// PushTrigger matches pushed branches against glob patterns
type PushTrigger struct {
	Branches []string `json:"branches"`
}

// PullRequestTrigger matches the base branch of a pull request
type PullRequestTrigger struct {
	Branches []string `json:"branches"`
}

// DispatchTrigger enables manual runs
type DispatchTrigger struct {
	Enabled bool `json:"enabled"`
}

// Environment is a deployment target with its own credentials and approval policy
type Environment struct {
	// Name is filled from the map key
	Name string `json:"-"`
	// Branch whose pushes deploy here, glob patterns allowed
	Branch string `json:"branch,omitempty"`
	// Secret names a stage bound to this environment requires
	Secrets []string `json:"secrets,omitempty"`
	// Deploy stages must depend on a test stage
	RequireTests bool `json:"require_tests,omitempty"`
	// Where the deployment is reachable, shown in notifications
	URL string `json:"url,omitempty"`
	// Manual approval policy
	Approval *Approval `json:"approval,omitempty"`
}

// Approval is the manual approval policy of an environment
type Approval struct {
	Required bool              `json:"required"`
	Timeout  duration.Duration `json:"timeout,omitempty"`
	// Approvers allowed to decide, anyone when empty
	Approvers []string `json:"approvers,omitempty"`
}

// Stage is a named phase of the pipeline
type Stage struct {
	// Stage name (required, unique)
	Name string `json:"name"`
	// Stages that must finish first
	Needs []string `json:"needs,omitempty"`
	// Run condition, success() when empty
	If string `json:"if,omitempty"`
	// Environment the stage deploys to
	Environment string `json:"environment,omitempty"`
	// Overrides the environment approval policy
	Approval *bool `json:"approval,omitempty"`
	// Stage environment variables
	Env map[string]string `json:"env,omitempty"`
	// Stage timeout
	Timeout duration.Duration `json:"timeout,omitempty"`
	// Steps run sequentially
	Steps []*Step `json:"steps"`
	// A failure does not fail the run
	ContinueOnError bool `json:"continue_on_error,omitempty"`
}

// NodeName implements dag.NamedNode
func (s *Stage) NodeName() string {
	return s.Name
}

// PrevNodeNames implements dag.NamedNode
func (s *Stage) PrevNodeNames() []string {
	return s.Needs
}

// RequiresApproval reports whether the stage waits for a decision before
// running: the stage override wins, otherwise the environment policy applies.
func (s *Stage) RequiresApproval(env *Environment) bool {
	if s.Approval != nil {
		return *s.Approval
	}
	return env != nil && env.Approval != nil && env.Approval.Required
}

// Step is one command or builtin action of a stage
type Step struct {
	Name string `json:"name"`
	// ID exposes outputs as steps.<id>, defaults to the step index
	ID string `json:"id,omitempty"`
	// Shell command, exclusive with Uses
	Run string `json:"run,omitempty"`
	// sh or bash
	Shell string `json:"shell,omitempty"`
	// Builtin action name, exclusive with Run
	Uses string `json:"uses,omitempty"`
	// Builtin parameters
	With            map[string]string `json:"with,omitempty"`
	Env             map[string]string `json:"env,omitempty"`
	Timeout         duration.Duration `json:"timeout,omitempty"`
	Retry           *Retry            `json:"retry,omitempty"`
	ContinueOnError bool              `json:"continue_on_error,omitempty"`
}

// Retry configuration for step retry logic
type Retry struct {
	MaxAttempts int               `json:"max_attempts"`
	Delay       duration.Duration `json:"delay,omitempty"`
}

// Notifications filters which events reach which channels
type Notifications struct {
	// Channel names, e.g. slack or webhook
	Channels []string `json:"channels,omitempty"`
	// Stage statuses that notify, e.g. failed
	Stages []string `json:"stages,omitempty"`
	// Run statuses that notify
	Runs []string `json:"runs,omitempty"`
	// Notify when a stage waits for approval
	Approvals bool `json:"approvals,omitempty"`
}

// Stage looks up a stage by name
func (p *Pipeline) Stage(name string) *Stage {
	for _, s := range p.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Environment looks up an environment by name
func (p *Pipeline) Environment(name string) *Environment {
	if name == "" {
		return nil
	}
	return p.Environments[name]
}
