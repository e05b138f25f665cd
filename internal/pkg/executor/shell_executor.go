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

package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/go-arcade/conveyor/pkg/log"
)

// ShellExecutor 通过 sh -c / bash -c 执行 run 步骤
type ShellExecutor struct {
	defaultShell string
	maxOutput    int
	logger       log.Logger
}

// NewShellExecutor 创建 shell 执行器
func NewShellExecutor(conf Conf, logger log.Logger) *ShellExecutor {
	return &ShellExecutor{
		defaultShell: conf.Shell,
		maxOutput:    conf.MaxOutputBytes,
		logger:       logger,
	}
}

func (e *ShellExecutor) Name() string {
	return "shell"
}

func (e *ShellExecutor) CanExecute(req *ExecutionRequest) bool {
	return req != nil && req.Step != nil && req.Step.Run != ""
}

func (e *ShellExecutor) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	result := NewExecutionResult(e.Name())

	shell := req.Step.Shell
	if shell == "" {
		shell = e.defaultShell
	}
	args := []string{"-c", req.Step.Run}
	if shell == "bash" {
		args = []string{"-eo", "pipefail", "-c", req.Step.Run}
	}

	stdout := newTailBuffer(e.maxOutput)
	stderr := newTailBuffer(e.maxOutput)

	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Dir = req.Workspace
	cmd.Env = req.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// 子进程持有管道时，不要无限等待
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	result.WithOutput(stdout.String(), stderr.String())

	if err != nil {
		exitCode := int32(-1)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = int32(exitErr.ExitCode())
		}
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w: %s", ErrStepTimeout, req.Step.Name)
		case ctx.Err() != nil:
			err = ctx.Err()
		case exitCode >= 0:
			err = fmt.Errorf("%w: exit code %d", ErrStepFailed, exitCode)
		default:
			err = fmt.Errorf("%w: %v", ErrStepFailed, err)
		}
		result.Complete(false, exitCode, err)
		return result, err
	}

	result.Complete(true, 0, nil)

	if e.logger.Log != nil {
		e.logger.Log.Debugw("shell step completed",
			"run_id", req.RunID,
			"stage", req.Stage,
			"step", req.Step.Name,
			"duration", result.Duration)
	}
	return result, nil
}
