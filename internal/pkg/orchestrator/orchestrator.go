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
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/approval"
	"github.com/go-arcade/conveyor/internal/pkg/executor"
	"github.com/go-arcade/conveyor/internal/pkg/history"
	"github.com/go-arcade/conveyor/internal/pkg/notify"
	"github.com/go-arcade/conveyor/internal/pkg/sse"
	"github.com/go-arcade/conveyor/internal/pkg/trigger"
	"github.com/go-arcade/conveyor/pkg/dag"
	"github.com/go-arcade/conveyor/pkg/event"
	"github.com/go-arcade/conveyor/pkg/id"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
	"github.com/go-arcade/conveyor/pkg/safe"
	"github.com/go-arcade/conveyor/pkg/statemachine"
	"github.com/go-arcade/conveyor/pkg/trace"
	"github.com/google/wire"
	"go.opentelemetry.io/otel/attribute"
)

// ProviderSet provides the orchestrator
var ProviderSet = wire.NewSet(ProvideOrchestrator)

var (
	ErrRunNotFound = history.ErrRunNotFound
	ErrRunFinished = errors.New("run already finished")
	ErrClosed      = errors.New("orchestrator closed")
)

// Conf configures the orchestrator
type Conf struct {
	// MaxParallel bounds concurrently executing stages of a run when the
	// pipeline sets no limit
	MaxParallel int `mapstructure:"maxParallel"`
}

func (c *Conf) SetDefaults() {
	if c.MaxParallel <= 0 {
		c.MaxParallel = 4
	}
}

// StageRunner executes the steps of one stage
type StageRunner interface {
	RunStage(ctx context.Context, req *executor.StageRequest) (*executor.StageResult, error)
}

// ApprovalGate suspends a stage until a decision
type ApprovalGate interface {
	Request(ctx context.Context, req approval.Request) (*approval.Approval, error)
	Wait(ctx context.Context, id string) (*approval.Approval, error)
	Cancel(ctx context.Context, id, reason string) error
}

// Orchestrator drives runs through the stage graph
type Orchestrator struct {
	conf   Conf
	runner StageRunner
	gate   ApprovalGate
	repo   history.IRunRepository
	bus    *event.EventBus
	logger log.Logger

	mu     sync.Mutex
	active map[string]*execution
	closed bool
	wg     sync.WaitGroup
}

// ProvideOrchestrator wires the bus handlers: notifications, metrics, the
// run event stream and the run history recorder.
func ProvideOrchestrator(conf Conf, runner *executor.Runner, gate *approval.Gate, repo history.IRunRepository,
	nm *notify.NotifyManager, m *metrics.PipelineMetrics, hub *sse.Hub, logger *log.Logger) (*Orchestrator, func()) {
	bus := event.NewEventBus(*logger)
	notifier := NewNotifier(nm, *logger)
	notifier.Register(bus)
	RegisterMetrics(bus, m)
	RegisterStream(bus, hub)

	o := NewOrchestrator(conf, runner, gate, repo, bus, *logger)
	cleanup := func() {
		o.Close()
		notifier.Flush()
	}
	return o, cleanup
}

func NewOrchestrator(conf Conf, runner StageRunner, gate ApprovalGate, repo history.IRunRepository, bus *event.EventBus, logger log.Logger) *Orchestrator {
	conf.SetDefaults()
	if bus == nil {
		bus = event.NewEventBus(logger)
	}
	if repo == nil {
		repo = history.NewMemoryRunRepo()
	}
	bus.Subscribe(recorder(repo, logger), event.Wildcard)
	return &Orchestrator{
		conf:   conf,
		runner: runner,
		gate:   gate,
		repo:   repo,
		bus:    bus,
		logger: logger,
		active: make(map[string]*execution),
	}
}

// Bus is where lifecycle events are published
func (o *Orchestrator) Bus() *event.EventBus {
	return o.bus
}

// Start creates a run for plan and executes it in the background. The run
// outlives ctx; only Cancel or Close stop it.
func (o *Orchestrator) Start(ctx context.Context, plan *trigger.Plan) (*history.Run, error) {
	if plan == nil || plan.Pipeline == nil {
		return nil, errors.New("plan has no pipeline")
	}
	graph, err := plan.Pipeline.Graph(dag.WithAllowMarkArbitraryNodesAsDone(true))
	if err != nil {
		return nil, fmt.Errorf("build stage graph: %w", err)
	}

	limit := o.conf.MaxParallel
	if plan.Pipeline.MaxParallel > 0 {
		limit = plan.Pipeline.MaxParallel
	}
	x := newExecution(plan, graph, int64(limit))
	x.logger = o.logger.With("run_id", x.run.ID, "pipeline", x.run.Pipeline)

	runCtx, span := trace.Start(context.WithoutCancel(ctx), "run "+plan.Pipeline.Name,
		attribute.String("conveyor.run_id", x.run.ID),
		attribute.String("conveyor.pipeline", x.run.Pipeline),
		attribute.String("conveyor.event", x.run.Event),
		attribute.String("conveyor.branch", x.run.Branch),
	)
	x.ctx, x.cancel = context.WithCancel(runCtx)
	x.span = span

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		x.cancel()
		trace.End(span, ErrClosed)
		return nil, ErrClosed
	}
	o.active[x.run.ID] = x
	o.wg.Add(1)
	o.mu.Unlock()

	x.mu.Lock()
	now := time.Now()
	_ = x.runSM.TransitionTo(statemachine.RunRunning)
	x.run.Status = statemachine.RunRunning
	x.run.StartedAt = &now
	o.publishRun(x, EventRunStarted)
	for _, rec := range x.run.Stages {
		if !plan.Selected(rec.Name) {
			o.transition(x, x.stages[rec.Name], statemachine.StageSkipped, "not selected", "")
		}
	}
	snapshot := x.run.Clone()
	x.mu.Unlock()

	if x.logger.Log != nil {
		x.logger.Log.Infow("run started", "event", x.run.Event, "branch", x.run.Branch,
			"environment", x.run.Environment, "stages", plan.Stages)
	}

	safe.Go(func() { o.drive(x) })
	return snapshot, nil
}

// Cancel stops a run in progress. Running stages see their context canceled
// and stages that have not started are canceled unless their condition holds
// for a canceled run.
func (o *Orchestrator) Cancel(ctx context.Context, runID string) error {
	o.mu.Lock()
	x, ok := o.active[runID]
	o.mu.Unlock()
	if !ok {
		if _, err := o.repo.Get(ctx, runID); err != nil {
			return err
		}
		return ErrRunFinished
	}
	if x.logger.Log != nil {
		x.logger.Log.Infow("run cancel requested")
	}
	x.cancel()
	return nil
}

// Get returns a snapshot of a run, live or from history
func (o *Orchestrator) Get(ctx context.Context, runID string) (*history.Run, error) {
	o.mu.Lock()
	x, ok := o.active[runID]
	o.mu.Unlock()
	if ok {
		return x.snapshot(), nil
	}
	return o.repo.Get(ctx, runID)
}

// List returns recorded runs, newest first
func (o *Orchestrator) List(ctx context.Context, f history.RunFilter) ([]*history.Run, error) {
	return o.repo.List(ctx, f)
}

// Wait blocks until the run finishes and returns its final state
func (o *Orchestrator) Wait(ctx context.Context, runID string) (*history.Run, error) {
	o.mu.Lock()
	x, ok := o.active[runID]
	o.mu.Unlock()
	if !ok {
		return o.repo.Get(ctx, runID)
	}
	select {
	case <-x.done:
		return x.snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close cancels every active run and waits for them to finish
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	for _, x := range o.active {
		x.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// drive launches stages as their needs finish until nothing is left to run
func (o *Orchestrator) drive(x *execution) {
	defer o.wg.Done()

	finished := make(chan struct{}, len(x.stages))
	canceled := x.ctx.Done()
	running := 0
	for {
		for _, l := range o.schedule(x) {
			running++
			safe.Go(func() {
				defer func() { finished <- struct{}{} }()
				if err := safe.Do(func() { o.runStage(x, l) }); err != nil {
					x.mu.Lock()
					o.transition(x, l.st, statemachine.StageFailed, "", err.Error())
					x.mu.Unlock()
				}
			})
		}
		if running == 0 {
			break
		}
		select {
		case <-finished:
			running--
		case <-canceled:
			canceled = nil
			x.mu.Lock()
			x.cancelled = true
			x.mu.Unlock()
			if x.logger.Log != nil {
				x.logger.Log.Warnw("run canceled")
			}
		}
	}
	o.finish(x)
}

// schedule settles every pending stage whose needs are finished: it skips or
// cancels those whose condition does not hold and returns the rest to launch.
func (o *Orchestrator) schedule(x *execution) []launch {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.ctx.Err() != nil {
		x.cancelled = true
	}

	var launches []launch
	for {
		names, err := x.graph.GetSchedulableNodeNames(x.terminal()...)
		if err != nil {
			if x.logger.Log != nil {
				x.logger.Log.Errorw("failed to compute schedulable stages", "error", err)
			}
			return launches
		}

		settled := false
		for _, name := range names {
			st := x.stages[name]
			if st.launched || st.sm.Current() != statemachine.StagePending {
				continue
			}
			ok, err := x.evaluate(st)
			switch {
			case err != nil:
				o.transition(x, st, statemachine.StageFailed, "", fmt.Sprintf("evaluate if: %v", err))
				settled = true
			case !ok && x.cancelled:
				o.transition(x, st, statemachine.StageCanceled, "run canceled", "")
				settled = true
			case !ok:
				o.transition(x, st, statemachine.StageSkipped, skipReason(st), "")
				settled = true
			case x.cancelled && st.stage.RequiresApproval(st.env):
				// nobody is left to approve a stage of a canceled run
				o.transition(x, st, statemachine.StageCanceled, "run canceled", "")
				settled = true
			default:
				st.launched = true
				ctx := x.ctx
				if x.cancelled {
					// the stage asked to run on cancellation
					ctx = context.WithoutCancel(x.ctx)
				}
				launches = append(launches, launch{st: st, ctx: ctx})
			}
		}
		// a settled stage may unlock its dependents right away
		if !settled {
			return launches
		}
	}
}

func skipReason(st *stageState) string {
	if st.stage.If == "" {
		return "needs did not succeed"
	}
	return "condition not met: " + st.stage.If
}

func (o *Orchestrator) runStage(x *execution, l launch) {
	st := l.st
	ctx, span := trace.Start(l.ctx, "stage "+st.stage.Name,
		attribute.String("conveyor.stage", st.stage.Name),
		attribute.String("conveyor.environment", st.record.Environment),
	)
	var err error
	defer func() { trace.End(span, err) }()

	if st.stage.RequiresApproval(st.env) {
		if err = o.awaitApproval(ctx, x, st); err != nil {
			return
		}
	}

	if err = x.sem.Acquire(ctx, 1); err != nil {
		x.mu.Lock()
		o.transition(x, st, statemachine.StageCanceled, "run canceled", "")
		x.mu.Unlock()
		return
	}
	defer x.sem.Release(1)

	x.mu.Lock()
	req := &executor.StageRequest{
		RunID:       x.run.ID,
		Pipeline:    x.plan.Pipeline,
		Stage:       st.stage,
		Environment: st.env,
		Expr:        x.exprContext(st),
	}
	o.transition(x, st, statemachine.StageRunning, "", "")
	x.mu.Unlock()

	var res *executor.StageResult
	res, err = o.runner.RunStage(ctx, req)

	x.mu.Lock()
	defer x.mu.Unlock()
	if res != nil {
		st.record.Outputs = res.Outputs
		st.record.Artifact = res.Artifact
		st.record.Report = res.Report
		st.record.Steps = res.Steps
		st.record.Duration = res.Duration
	}
	switch {
	case err == nil:
		o.transition(x, st, statemachine.StageSucceeded, "", "")
	case errors.Is(ctx.Err(), context.Canceled):
		o.transition(x, st, statemachine.StageCanceled, "run canceled", err.Error())
	default:
		o.transition(x, st, statemachine.StageFailed, "", err.Error())
	}
}

// awaitApproval suspends the stage until someone decides. A nil return means
// approved; otherwise the stage has already been settled.
func (o *Orchestrator) awaitApproval(ctx context.Context, x *execution, st *stageState) error {
	req := approval.Request{
		RunID:       x.run.ID,
		Pipeline:    x.run.Pipeline,
		Stage:       st.stage.Name,
		Environment: st.record.Environment,
	}
	if st.env != nil && st.env.Approval != nil {
		req.Approvers = st.env.Approval.Approvers
		req.Timeout = st.env.Approval.Timeout.Std()
	}

	x.mu.Lock()
	o.transition(x, st, statemachine.StageWaiting, "waiting for approval", "")
	x.mu.Unlock()

	a, err := o.gate.Request(ctx, req)
	if err != nil {
		x.mu.Lock()
		o.transition(x, st, statemachine.StageFailed, "", fmt.Sprintf("request approval: %v", err))
		x.mu.Unlock()
		return err
	}

	x.mu.Lock()
	st.record.ApprovalID = a.ID
	snapshot := x.run.Clone()
	o.bus.Publish(ApprovalEvent{Plan: x.plan, Run: snapshot, Stage: snapshot.Stage(st.stage.Name), Approval: a})
	x.mu.Unlock()

	decided, err := o.gate.Wait(ctx, a.ID)
	x.mu.Lock()
	defer x.mu.Unlock()
	switch {
	case err == nil:
		st.record.Reason = "approved by " + decided.DecidedBy
		if x.logger.Log != nil {
			x.logger.Log.Infow("stage approved", "stage", st.stage.Name, "approval_id", a.ID, "approver", decided.DecidedBy)
		}
		return nil
	case errors.Is(err, approval.ErrRejected):
		o.transition(x, st, statemachine.StageFailed, "rejected", err.Error())
	case errors.Is(err, approval.ErrExpired):
		o.transition(x, st, statemachine.StageFailed, "expired", "approval expired")
	case errors.Is(err, approval.ErrCanceled):
		o.transition(x, st, statemachine.StageCanceled, "approval canceled", "")
	case ctx.Err() != nil:
		if cerr := o.gate.Cancel(context.WithoutCancel(ctx), a.ID, "run canceled"); cerr != nil && x.logger.Log != nil {
			x.logger.Log.Warnw("failed to cancel approval", "approval_id", a.ID, "error", cerr)
		}
		o.transition(x, st, statemachine.StageCanceled, "run canceled", "")
	default:
		o.transition(x, st, statemachine.StageFailed, "", fmt.Sprintf("wait for approval: %v", err))
	}
	return err
}

// finish settles the run once no stage can make progress
func (o *Orchestrator) finish(x *execution) {
	x.mu.Lock()
	// stages left pending have needs that never finished
	for _, rec := range x.run.Stages {
		if st := x.stages[rec.Name]; st.sm.Current() == statemachine.StagePending {
			o.transition(x, st, statemachine.StageCanceled, "not reached", "")
		}
	}

	var failed []string
	for _, rec := range x.run.Stages {
		if x.stages[rec.Name].failedHard() {
			failed = append(failed, rec.Name)
		}
	}
	status := statemachine.RunSucceeded
	switch {
	case len(failed) > 0:
		status = statemachine.RunFailed
		x.run.Error = "failed stages: " + strings.Join(failed, ", ")
	case x.cancelled:
		status = statemachine.RunCanceled
		x.run.Error = "run canceled"
	}
	if err := x.runSM.TransitionTo(status); err != nil && x.logger.Log != nil {
		x.logger.Log.Errorw("invalid run transition", "error", err)
	}
	now := time.Now()
	x.run.Status = status
	x.run.FinishedAt = &now
	o.publishRun(x, EventRunFinished)
	var runErr error
	if x.run.Error != "" {
		runErr = errors.New(x.run.Error)
	}
	if x.logger.Log != nil {
		x.logger.Log.Infow("run finished", "status", status, "duration", x.run.Duration(), "error", x.run.Error)
	}
	x.mu.Unlock()

	trace.End(x.span, runErr)
	x.cancel()

	o.mu.Lock()
	delete(o.active, x.run.ID)
	o.mu.Unlock()
	close(x.done)
}

// transition moves a stage and publishes the change. Callers hold x.mu.
func (o *Orchestrator) transition(x *execution, st *stageState, to statemachine.StageStatus, reason, errMsg string) {
	from := st.sm.Current()
	err := st.sm.TransitionTo(to, reason)
	if err != nil && from == statemachine.StagePending && to == statemachine.StageFailed {
		// failures before the first step still pass through running
		if err = st.sm.TransitionTo(statemachine.StageRunning); err == nil {
			err = st.sm.TransitionTo(to, reason)
		}
	}
	if err != nil {
		if x.logger.Log != nil {
			x.logger.Log.Warnw("invalid stage transition", "stage", st.stage.Name, "error", err)
		}
		return
	}

	now := time.Now()
	rec := st.record
	rec.Status = to
	if reason != "" {
		rec.Reason = reason
	}
	if errMsg != "" {
		rec.Error = errMsg
	}

	switch {
	case to == statemachine.StageRunning:
		rec.StartedAt = &now
		o.publishStage(x, st, EventStageStarted)
	case to.IsTerminal():
		rec.FinishedAt = &now
		if rec.Duration == 0 && rec.StartedAt != nil {
			rec.Duration = now.Sub(*rec.StartedAt)
		}
		if x.logger.Log != nil {
			x.logger.Log.Infow("stage finished", "stage", rec.Name, "status", to, "reason", rec.Reason, "error", rec.Error)
		}
		o.publishStage(x, st, EventStageFinished)
	}
}

func (o *Orchestrator) publishRun(x *execution, name string) {
	o.bus.Publish(RunEvent{Name: name, Plan: x.plan, Run: x.run.Clone()})
}

func (o *Orchestrator) publishStage(x *execution, st *stageState, name string) {
	snapshot := x.run.Clone()
	o.bus.Publish(StageEvent{Name: name, Plan: x.plan, Run: snapshot, Stage: snapshot.Stage(st.stage.Name)})
}

func newRunID() string {
	return id.GetUlid()
}
