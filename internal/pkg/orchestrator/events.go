package orchestrator

import (
	"github.com/go-arcade/conveyor/internal/pkg/approval"
	"github.com/go-arcade/conveyor/internal/pkg/history"
	"github.com/go-arcade/conveyor/internal/pkg/trigger"
	"github.com/go-arcade/conveyor/pkg/event"
)

// Lifecycle events published on the bus
const (
	EventRunStarted        = "run.started"
	EventRunFinished       = "run.finished"
	EventStageStarted      = "stage.started"
	EventStageFinished     = "stage.finished"
	EventApprovalRequested = "approval.requested"
)

// Snapshotter is implemented by every lifecycle event. Snapshot is a copy of
// the run taken when the event was published.
type Snapshotter interface {
	event.Event
	Snapshot() *history.Run
}

// RunEvent reports a run starting or finishing
type RunEvent struct {
	Name string
	Plan *trigger.Plan
	Run  *history.Run
}

func (e RunEvent) EventName() string      { return e.Name }
func (e RunEvent) EventType() string      { return "run" }
func (e RunEvent) Snapshot() *history.Run { return e.Run }

// StageEvent reports a stage starting or finishing. Stage points into Run.
type StageEvent struct {
	Name  string
	Plan  *trigger.Plan
	Run   *history.Run
	Stage *history.StageRun
}

func (e StageEvent) EventName() string      { return e.Name }
func (e StageEvent) EventType() string      { return "stage" }
func (e StageEvent) Snapshot() *history.Run { return e.Run }

// ApprovalEvent reports a stage suspended on a manual approval
type ApprovalEvent struct {
	Plan     *trigger.Plan
	Run      *history.Run
	Stage    *history.StageRun
	Approval *approval.Approval
}

func (e ApprovalEvent) EventName() string      { return EventApprovalRequested }
func (e ApprovalEvent) EventType() string      { return "approval" }
func (e ApprovalEvent) Snapshot() *history.Run { return e.Run }
