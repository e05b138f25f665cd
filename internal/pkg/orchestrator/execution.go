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

package orchestrator

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/history"
	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/internal/pkg/trigger"
	"github.com/go-arcade/conveyor/pkg/dag"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/statemachine"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// execution is the live state of one run
type execution struct {
	plan   *trigger.Plan
	graph  *dag.DAG
	sem    *semaphore.Weighted
	logger log.Logger
	ctx    context.Context
	cancel context.CancelFunc
	span   oteltrace.Span
	done   chan struct{}

	mu        sync.Mutex
	run       *history.Run
	runSM     *statemachine.StateMachine[statemachine.RunStatus]
	stages    map[string]*stageState
	cancelled bool
}

type stageState struct {
	stage    *pipeline.Stage
	env      *pipeline.Environment
	sm       *statemachine.StateMachine[statemachine.StageStatus]
	record   *history.StageRun
	launched bool
}

// succeeded reports whether dependents see this stage as successful
func (s *stageState) succeeded() bool {
	switch s.sm.Current() {
	case statemachine.StageSucceeded:
		return true
	case statemachine.StageFailed:
		return s.stage.ContinueOnError
	}
	return false
}

// failedHard reports a failure that fails the run
func (s *stageState) failedHard() bool {
	return s.sm.Current() == statemachine.StageFailed && !s.stage.ContinueOnError
}

type launch struct {
	st  *stageState
	ctx context.Context
}

func newExecution(plan *trigger.Plan, graph *dag.DAG, maxParallel int64) *execution {
	pl := plan.Pipeline
	run := &history.Run{
		ID:          newRunID(),
		Pipeline:    pl.Name,
		Event:       plan.Event.Name,
		Ref:         plan.Event.Ref,
		Branch:      plan.Branch,
		SHA:         plan.Event.SHA,
		Actor:       plan.Event.Actor,
		Environment: plan.EnvironmentName(),
		Inputs:      maps.Clone(plan.Event.Inputs),
		Status:      statemachine.RunPending,
		CreatedAt:   time.Now(),
	}
	x := &execution{
		plan:   plan,
		graph:  graph,
		sem:    semaphore.NewWeighted(maxParallel),
		done:   make(chan struct{}),
		run:    run,
		runSM:  statemachine.NewRunStateMachine(),
		stages: make(map[string]*stageState, len(pl.Stages)),
	}
	for _, stage := range pl.Stages {
		rec := &history.StageRun{
			Name:        stage.Name,
			Environment: stage.Environment,
			Status:      statemachine.StagePending,
		}
		run.Stages = append(run.Stages, rec)
		x.stages[stage.Name] = &stageState{
			stage:  stage,
			env:    pl.Environment(stage.Environment),
			sm:     statemachine.NewStageStateMachine(),
			record: rec,
		}
	}
	return x
}

func (x *execution) snapshot() *history.Run {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.run.Clone()
}

// terminal lists the finished stages. Callers hold x.mu.
func (x *execution) terminal() []string {
	var names []string
	for name, st := range x.stages {
		if st.sm.IsTerminal() {
			names = append(names, name)
		}
	}
	return names
}

// exprContext is what conditions and interpolation of a stage see. Callers
// hold x.mu.
func (x *execution) exprContext(st *stageState) *pipeline.ExprContext {
	c := &pipeline.ExprContext{
		Event:       x.run.Event,
		Branch:      x.run.Branch,
		SHA:         x.run.SHA,
		Environment: st.record.Environment,
		RunID:       x.run.ID,
		Inputs:      maps.Clone(x.run.Inputs),
		Needs:       make(map[string]pipeline.NeedResult, len(st.stage.Needs)),
		Env:         maps.Clone(x.plan.Pipeline.Env),
		Cancelled:   x.cancelled,
	}
	if c.Env == nil {
		c.Env = map[string]string{}
	}
	maps.Copy(c.Env, st.stage.Env)

	c.DirectNeedsSucceeded = true
	for _, need := range st.stage.Needs {
		ns := x.stages[need]
		c.Needs[need] = needResult(ns.record)
		if !ns.succeeded() {
			c.DirectNeedsSucceeded = false
		}
	}
	ancestors, _ := x.graph.Ancestors(st.stage.Name)
	for _, name := range ancestors {
		if x.stages[name].failedHard() {
			c.AncestorFailed = true
			break
		}
	}
	return c
}

// evaluate decides whether a stage whose needs are finished runs. Callers
// hold x.mu.
func (x *execution) evaluate(st *stageState) (bool, error) {
	return pipeline.EvaluateCondition(st.stage.If, x.exprContext(st))
}
