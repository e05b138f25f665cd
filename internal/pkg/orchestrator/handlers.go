package orchestrator

import (
	"context"
	"sync"

	"github.com/go-arcade/conveyor/internal/pkg/history"
	"github.com/go-arcade/conveyor/internal/pkg/notify"
	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/internal/pkg/sse"
	"github.com/go-arcade/conveyor/internal/pkg/trigger"
	"github.com/go-arcade/conveyor/pkg/event"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
	"github.com/go-arcade/conveyor/pkg/safe"
)

// Notifier turns lifecycle events into notifications. Deliveries run in the
// background so a slow channel never holds up a run.
type Notifier struct {
	manager *notify.NotifyManager
	logger  log.Logger
	wg      sync.WaitGroup
}

func NewNotifier(manager *notify.NotifyManager, logger log.Logger) *Notifier {
	return &Notifier{manager: manager, logger: logger}
}

// Register subscribes the notifier to the events that can notify
func (n *Notifier) Register(bus *event.EventBus) {
	bus.Subscribe(n.Handle, EventStageFinished, EventRunFinished, EventApprovalRequested)
}

func (n *Notifier) Handle(e event.Event) {
	if n.manager == nil {
		return
	}
	var (
		msg  notify.Notification
		plan *trigger.Plan
	)
	switch ev := e.(type) {
	case StageEvent:
		plan = ev.Plan
		msg = base(ev.Plan, ev.Run, notify.KindStageFinished)
		stageFields(&msg, ev.Plan, ev.Stage)
		msg.Status = string(ev.Stage.Status)
		msg.Error = ev.Stage.Error
		msg.Duration = ev.Stage.Duration
	case RunEvent:
		if ev.Name != EventRunFinished {
			return
		}
		plan = ev.Plan
		msg = base(ev.Plan, ev.Run, notify.KindRunFinished)
		msg.Environment = ev.Run.Environment
		if env := ev.Plan.Pipeline.Environment(ev.Run.Environment); env != nil {
			msg.URL = env.URL
		}
		msg.Status = string(ev.Run.Status)
		msg.Error = ev.Run.Error
		msg.Duration = ev.Run.Duration()
	case ApprovalEvent:
		plan = ev.Plan
		msg = base(ev.Plan, ev.Run, notify.KindApprovalRequested)
		stageFields(&msg, ev.Plan, ev.Stage)
		msg.Status = string(ev.Stage.Status)
		msg.ApprovalID = ev.Approval.ID
		msg.Approvers = ev.Approval.Approvers
		msg.ExpiresAt = ev.Approval.ExpiresAt
	default:
		return
	}

	cfg := plan.Pipeline.Notifications
	if !notify.ShouldNotify(cfg, msg.Kind, msg.Status) {
		return
	}
	if cfg != nil {
		msg.Channels = cfg.Channels
	}

	n.wg.Add(1)
	safe.Go(func() {
		defer n.wg.Done()
		// delivery errors are logged by the manager and never reach the run
		_ = n.manager.Notify(context.Background(), msg)
	})
}

// Flush waits for in-flight deliveries
func (n *Notifier) Flush() {
	n.wg.Wait()
}

func base(plan *trigger.Plan, run *history.Run, kind notify.Kind) notify.Notification {
	return notify.Notification{
		Kind:     kind,
		Pipeline: run.Pipeline,
		RunID:    run.ID,
		Event:    run.Event,
		Actor:    plan.Event.Actor,
		Branch:   run.Branch,
		SHA:      run.SHA,
	}
}

func stageFields(msg *notify.Notification, plan *trigger.Plan, stage *history.StageRun) {
	msg.Stage = stage.Name
	msg.Environment = stage.Environment
	if env := plan.Pipeline.Environment(stage.Environment); env != nil {
		msg.URL = env.URL
	}
}

// RegisterMetrics records finished runs and stages
func RegisterMetrics(bus *event.EventBus, m *metrics.PipelineMetrics) {
	if m == nil {
		return
	}
	bus.Subscribe(func(e event.Event) {
		switch ev := e.(type) {
		case StageEvent:
			m.ObserveStage(ev.Run.Pipeline, ev.Stage.Name, string(ev.Stage.Status), ev.Stage.Duration)
		case RunEvent:
			m.ObserveRun(ev.Run.Pipeline, string(ev.Run.Status), ev.Run.Duration())
		}
	}, EventStageFinished, EventRunFinished)
}

// RegisterStream forwards each lifecycle event to the stream subscribers of
// its run
func RegisterStream(bus *event.EventBus, hub *sse.Hub) {
	if hub == nil {
		return
	}
	bus.Subscribe(func(e event.Event) {
		msg := sse.Message{Event: e.EventName()}
		var runID string
		switch ev := e.(type) {
		case RunEvent:
			runID, msg.Data = ev.Run.ID, ev.Run
		case StageEvent:
			runID, msg.Data = ev.Run.ID, ev.Stage
		case ApprovalEvent:
			runID, msg.Data = ev.Run.ID, ev.Approval
		default:
			return
		}
		hub.Broadcast(runID, msg)
	}, event.Wildcard)
}

// recorder persists the run snapshot carried by every lifecycle event
func recorder(repo history.IRunRepository, logger log.Logger) func(event.Event) {
	return func(e event.Event) {
		s, ok := e.(Snapshotter)
		if !ok {
			return
		}
		run := s.Snapshot()
		if err := repo.Save(context.Background(), run); err != nil && logger.Log != nil {
			logger.Log.Errorw("failed to save run", "run_id", run.ID, "event", e.EventName(), "error", err)
		}
	}
}

// needResult maps a finished stage onto what its dependents see
func needResult(rec *history.StageRun) pipeline.NeedResult {
	return pipeline.NeedResult{Result: string(rec.Status), Outputs: rec.Outputs}
}
