package executor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/internal/pkg/secrets"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/retry"
	"github.com/go-arcade/conveyor/pkg/storage"
	"github.com/google/wire"
)

// ProviderSet 提供 stage 执行器
var ProviderSet = wire.NewSet(ProvideRunner)

// OutputEnv names the file steps append key=value outputs to
const OutputEnv = "CONVEYOR_OUTPUT"

// StageRequest is one stage to execute
type StageRequest struct {
	RunID       string
	Pipeline    *pipeline.Pipeline
	Stage       *pipeline.Stage
	Environment *pipeline.Environment
	// Expr carries event, branch, sha and needs; env and secrets are filled in
	Expr *pipeline.ExprContext
}

// StepResult is the outcome of one step
type StepResult struct {
	Name     string        `json:"name"`
	ID       string        `json:"id"`
	Executor string        `json:"executor"`
	Success  bool          `json:"success"`
	ExitCode int32         `json:"exit_code"`
	Attempts int           `json:"attempts"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// StageResult is what a stage hands to its dependents
type StageResult struct {
	Stage    string            `json:"stage"`
	Outputs  map[string]string `json:"outputs"`
	Artifact *Artifact         `json:"artifact,omitempty"`
	Report   *Report           `json:"report,omitempty"`
	Steps    []StepResult      `json:"steps"`
	Error    string            `json:"error,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// Runner executes stages step by step in isolated workspaces
type Runner struct {
	conf    Conf
	manager *ExecutorManager
	secrets *secrets.Store
	logger  log.Logger
}

// ProvideRunner wires the default executors
func ProvideRunner(conf Conf, store *secrets.Store, artifacts storage.StorageProvider, logger *log.Logger) *Runner {
	return NewRunner(conf, store, artifacts, *logger)
}

func NewRunner(conf Conf, store *secrets.Store, artifacts storage.StorageProvider, logger log.Logger) *Runner {
	conf.SetDefaults()
	manager := NewExecutorManager(
		NewShellExecutor(conf, logger),
		NewHealthCheckExecutor(conf.HealthCheck, logger),
		NewUploadArtifactExecutor(artifacts, logger),
	)
	return &Runner{conf: conf, manager: manager, secrets: store, logger: logger}
}

// Workspace returns the directory a stage of a run executes in
func (r *Runner) Workspace(runID, stage string) string {
	return filepath.Join(r.conf.Workspace, runID, stage)
}

// RunStage executes the steps of a stage sequentially. The returned error is
// nil when every step succeeded or was allowed to fail; the result is always
// non-nil.
func (r *Runner) RunStage(ctx context.Context, req *StageRequest) (*StageResult, error) {
	start := time.Now()
	stage := req.Stage
	res := &StageResult{Stage: stage.Name, Outputs: map[string]string{}}
	logger := r.logger.With("run_id", req.RunID, "stage", stage.Name)

	fail := func(err error) (*StageResult, error) {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		if logger.Log != nil {
			logger.Log.Errorw("stage failed", "error", err, "duration", res.Duration)
		}
		return res, err
	}

	resolved := r.secrets.ForEnvironment(req.Environment)
	if err := resolved.Err(); err != nil {
		return fail(err)
	}
	masker := secrets.MaskerFor(resolved.Values)

	exprCtx := pipeline.ExprContext{}
	if req.Expr != nil {
		exprCtx = *req.Expr
	}
	exprCtx.Secrets = resolved.Values
	if req.Environment != nil {
		exprCtx.Environment = req.Environment.Name
	}
	vars, err := r.resolveEnv(&exprCtx, req.Pipeline.Env, stage.Env)
	if err != nil {
		return fail(err)
	}
	exprCtx.Env = vars

	workspace := r.Workspace(req.RunID, stage.Name)
	if err := os.MkdirAll(filepath.Join(workspace, ".conveyor"), 0o755); err != nil {
		return fail(fmt.Errorf("create workspace: %w", err))
	}
	if !r.conf.KeepWorkspace {
		defer os.RemoveAll(workspace)
	}

	if stage.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stage.Timeout.Std())
		defer cancel()
	}

	if logger.Log != nil {
		logger.Log.Infow("stage started", "environment", exprCtx.Environment, "steps", len(stage.Steps))
	}

	for _, step := range stage.Steps {
		stepRes, outputs, err := r.runStep(ctx, req, &exprCtx, step, workspace, masker)
		res.Steps = append(res.Steps, stepRes)
		maps.Copy(res.Outputs, outputs)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fail(fmt.Errorf("stage timed out after %s: %w", stage.Timeout, err))
			}
			return fail(err)
		}
		if step.ContinueOnError {
			if logger.Log != nil {
				logger.Log.Warnw("step failed, continuing", "step", step.Name, "error", err)
			}
			continue
		}
		return fail(fmt.Errorf("step %s: %w", step.Name, err))
	}

	artifact, report, err := typedResults(res.Outputs)
	if err != nil {
		return fail(err)
	}
	res.Artifact, res.Report = artifact, report
	res.Duration = time.Since(start)

	if logger.Log != nil {
		logger.Log.Infow("stage succeeded", "duration", res.Duration, "outputs", len(res.Outputs))
	}
	return res, nil
}

// resolveEnv interpolates pipeline env, then stage env on top of it
func (r *Runner) resolveEnv(exprCtx *pipeline.ExprContext, layers ...map[string]string) (map[string]string, error) {
	vars := map[string]string{}
	for _, layer := range layers {
		ctx := *exprCtx
		ctx.Env = vars
		vi := pipeline.NewVariableInterpreter(&ctx)
		resolved, err := vi.ResolveMap(layer)
		if err != nil {
			return nil, err
		}
		vars = maps.Clone(vars)
		maps.Copy(vars, resolved)
	}
	return vars, nil
}

func (r *Runner) runStep(ctx context.Context, req *StageRequest, exprCtx *pipeline.ExprContext, step *pipeline.Step, workspace string, masker *secrets.Masker) (StepResult, map[string]string, error) {
	stepRes := StepResult{Name: step.Name, ID: step.ID}
	start := time.Now()
	defer func() { stepRes.Duration = time.Since(start) }()

	fail := func(err error) (StepResult, map[string]string, error) {
		stepRes.Error = masker.Mask(err.Error())
		return stepRes, nil, err
	}

	vi := pipeline.NewVariableInterpreter(exprCtx)
	resolved := *step
	var err error
	if resolved.Run, err = vi.Resolve(step.Run); err != nil {
		return fail(err)
	}
	if resolved.With, err = vi.ResolveMap(step.With); err != nil {
		return fail(err)
	}
	stepEnv, err := vi.ResolveMap(step.Env)
	if err != nil {
		return fail(err)
	}

	outputFile := filepath.Join(workspace, ".conveyor", "output-"+step.ID)
	execReq := &ExecutionRequest{
		RunID:      req.RunID,
		Stage:      req.Stage.Name,
		Step:       &resolved,
		Workspace:  workspace,
		OutputFile: outputFile,
		Env:        r.environ(req, exprCtx, stepEnv, workspace, outputFile),
	}

	executor, err := r.manager.SelectExecutor(execReq)
	if err != nil {
		return fail(err)
	}
	stepRes.Executor = executor.Name()

	attempts, delay := 1, time.Duration(0)
	if step.Retry != nil {
		attempts, delay = step.Retry.MaxAttempts, step.Retry.Delay.Std()
	}
	timeout := step.Timeout.Std()
	if timeout <= 0 {
		timeout = r.conf.DefaultStepTimeout
	}

	var last *ExecutionResult
	err = retry.Do(ctx, func(ctx context.Context) error {
		stepRes.Attempts++
		_ = os.Remove(outputFile)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		result, err := executor.Execute(attemptCtx, execReq)
		if result != nil {
			last = result
		}
		if err != nil && errors.Is(err, ErrStepTimeout) && ctx.Err() != nil {
			// the stage deadline, not the step one
			return ctx.Err()
		}
		return err
	},
		retry.WithMaxAttempts(attempts),
		retry.WithBackoff(retry.Fixed(delay)),
		retry.WithRetryIf(func(err error) bool {
			return errors.Is(err, ErrStepFailed) || errors.Is(err, ErrStepTimeout)
		}),
		retry.WithOnRetry(func(attempt int, err error) {
			if r.logger.Log != nil {
				r.logger.Log.Warnw("step failed, retrying", "run_id", req.RunID, "stage", req.Stage.Name,
					"step", step.Name, "attempt", attempt, "error", err)
			}
		}),
	)

	if last != nil {
		stepRes.ExitCode = last.ExitCode
		stepRes.Output = masker.Mask(joinOutput(last.Output, last.ErrorOutput))
	}
	if err != nil {
		return fail(err)
	}
	stepRes.Success = true

	outputs, perr := ParseOutputs(outputFile)
	if perr != nil {
		return fail(fmt.Errorf("%w: %v", ErrStepFailed, perr))
	}
	if last != nil {
		maps.Copy(outputs, last.Outputs)
	}
	return stepRes, outputs, nil
}

// environ builds the process environment of a step
func (r *Runner) environ(req *StageRequest, exprCtx *pipeline.ExprContext, stepEnv map[string]string, workspace, outputFile string) []string {
	home := os.Getenv("HOME")
	if home == "" {
		home = workspace
	}
	env := map[string]string{
		"PATH": os.Getenv("PATH"),
		"HOME": home,
	}
	maps.Copy(env, exprCtx.Env)
	maps.Copy(env, stepEnv)
	maps.Copy(env, exprCtx.Secrets)
	maps.Copy(env, map[string]string{
		"CI":                   "true",
		"CONVEYOR_RUN_ID":      req.RunID,
		"CONVEYOR_PIPELINE":    req.Pipeline.Name,
		"CONVEYOR_STAGE":       req.Stage.Name,
		"CONVEYOR_EVENT":       exprCtx.Event,
		"CONVEYOR_BRANCH":      exprCtx.Branch,
		"CONVEYOR_SHA":         exprCtx.SHA,
		"CONVEYOR_ENVIRONMENT": exprCtx.Environment,
		"CONVEYOR_WORKSPACE":   workspace,
		OutputEnv:              outputFile,
	})

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func joinOutput(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	if !strings.HasSuffix(stdout, "\n") {
		stdout += "\n"
	}
	return stdout + stderr
}
