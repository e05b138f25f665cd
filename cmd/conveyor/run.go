package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-arcade/conveyor/internal/conveyor/config"
	"github.com/go-arcade/conveyor/internal/pkg/approval"
	"github.com/go-arcade/conveyor/internal/pkg/executor"
	"github.com/go-arcade/conveyor/internal/pkg/history"
	"github.com/go-arcade/conveyor/internal/pkg/orchestrator"
	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/internal/pkg/secrets"
	"github.com/go-arcade/conveyor/internal/pkg/trigger"
	"github.com/go-arcade/conveyor/pkg/event"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/safe"
	"github.com/go-arcade/conveyor/pkg/statemachine"
	"github.com/go-arcade/conveyor/pkg/storage"
	"github.com/spf13/cobra"
)

var runFlags struct {
	event       string
	ref         string
	sha         string
	actor       string
	environment string
	stages      string
	inputs      map[string]string
	autoApprove bool
}

var runCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "Run a pipeline locally for a simulated event",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocal,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.event, "event", trigger.EventPush, "event name: push, pull_request or workflow_dispatch")
	f.StringVar(&runFlags.ref, "ref", "refs/heads/main", "git ref the event points at")
	f.StringVar(&runFlags.sha, "sha", "", "commit sha")
	f.StringVar(&runFlags.actor, "actor", os.Getenv("USER"), "user the event is attributed to")
	f.StringVar(&runFlags.environment, "environment", "", "target environment (workflow_dispatch)")
	f.StringVar(&runFlags.stages, "stages", "", "comma separated stages to run (workflow_dispatch)")
	f.StringToStringVar(&runFlags.inputs, "input", nil, "dispatch input key=value, repeatable")
	f.BoolVar(&runFlags.autoApprove, "auto-approve", false, "approve every approval request without prompting")
}

func runLocal(cmd *cobra.Command, args []string) error {
	appConf, err := loadConf()
	if err != nil {
		return err
	}
	logger, err := log.ProvideLogger(&appConf.Log)
	if err != nil {
		return err
	}
	store := secrets.ProvideStore(appConf.Secrets)

	pl, err := pipeline.NewParser(*logger).Load(args[0])
	if err != nil {
		return err
	}
	for _, issue := range secrets.Lint(pl, store.Catalog()) {
		logger.Log.Warnw("secret lint", "pipeline", pl.Name, "issue", issue.String())
	}

	plan, err := trigger.NewResolver(*logger).Resolve(pl, localEvent())
	if err != nil {
		return err
	}

	artifacts, err := storage.ProvideStorage(config.ProvideStorageConfig(appConf))
	if err != nil {
		return err
	}
	runner := executor.ProvideRunner(config.ProvideExecutorConfig(appConf), store, artifacts, logger)
	gate := approval.NewGate(approval.NewMemoryStore(), config.ProvideApprovalConfig(appConf), nil, *logger)
	orch := orchestrator.NewOrchestrator(config.ProvideOrchestratorConfig(appConf), runner, gate, nil, nil, *logger)
	defer orch.Close()

	out := cmd.OutOrStdout()
	prompt := newApprover(gate, cmd.InOrStdin(), out, runFlags.autoApprove, runFlags.actor)
	orch.Bus().Subscribe(prompt.handle, orchestrator.EventApprovalRequested)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := orch.Start(ctx, plan)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run %s started: %s on %s, stages %s\n", run.ID, pl.Name, plan.Branch, strings.Join(plan.Stages, ", "))

	safe.Go(func() {
		<-ctx.Done()
		_ = orch.Cancel(context.Background(), run.ID)
	})

	final, err := orch.Wait(context.Background(), run.ID)
	if err != nil {
		return err
	}
	printRun(out, final)
	if final.Status != statemachine.RunSucceeded {
		return fmt.Errorf("run %s %s: %s", final.ID, final.Status, final.Error)
	}
	return nil
}

func localEvent() trigger.Event {
	inputs := map[string]string{}
	for k, v := range runFlags.inputs {
		inputs[k] = v
	}
	if runFlags.environment != "" {
		inputs[trigger.InputEnvironment] = runFlags.environment
	}
	if runFlags.stages != "" {
		inputs[trigger.InputStages] = runFlags.stages
	}
	return trigger.Event{
		Name:   runFlags.event,
		Ref:    runFlags.ref,
		SHA:    runFlags.sha,
		Actor:  runFlags.actor,
		Inputs: inputs,
	}
}

// approver answers approval requests of a local run, from the terminal or
// automatically.
type approver struct {
	gate  *approval.Gate
	in    *bufio.Reader
	out   io.Writer
	auto  bool
	actor string
	// prompts are answered one at a time
	turn chan struct{}
}

func newApprover(gate *approval.Gate, in io.Reader, out io.Writer, auto bool, actor string) *approver {
	return &approver{gate: gate, in: bufio.NewReader(in), out: out, auto: auto, actor: actor, turn: make(chan struct{}, 1)}
}

// handle runs on the publishing goroutine, so decisions are made off it
func (a *approver) handle(e event.Event) {
	ev, ok := e.(orchestrator.ApprovalEvent)
	if !ok {
		return
	}
	safe.Go(func() { a.decide(ev.Approval) })
}

func (a *approver) decide(req *approval.Approval) {
	a.turn <- struct{}{}
	defer func() { <-a.turn }()

	who := a.actor
	if len(req.Approvers) > 0 {
		who = req.Approvers[0]
	}
	ctx := context.Background()

	if a.auto {
		fmt.Fprintf(a.out, "auto-approving %s (%s) as %s\n", req.Stage, req.Environment, who)
		_, _ = a.gate.Approve(ctx, req.ID, who, "auto-approved by conveyor run")
		return
	}

	fmt.Fprintf(a.out, "stage %s deploys to %s and needs approval (expires %s). Approve? [y/N] ",
		req.Stage, req.Environment, req.ExpiresAt.Format(time.RFC3339))
	answer, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		_, _ = a.gate.Approve(ctx, req.ID, who, "approved from terminal")
	default:
		_, _ = a.gate.Reject(ctx, req.ID, who, "rejected from terminal")
	}
}

func printRun(out io.Writer, run *history.Run) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tSTATUS\tDURATION\tREASON\tERROR")
	for _, s := range run.Stages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Status, s.Duration.Round(time.Millisecond), s.Reason, firstLine(s.Error))
	}
	_ = w.Flush()
	fmt.Fprintf(out, "run %s %s in %s\n", run.ID, run.Status, run.Duration().Round(time.Millisecond))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
