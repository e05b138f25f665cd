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
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
)

var (
	// ErrStepFailed 步骤执行失败（非零退出码、健康检查不通过等）
	ErrStepFailed = errors.New("step failed")
	// ErrStepTimeout 步骤超时
	ErrStepTimeout = errors.New("step timed out")
)

// Executor 定义了执行器的统一接口
// 执行器负责执行 stage 中的一个 step，shell 命令或内置动作
type Executor interface {
	// Execute 执行一个 step，失败时返回的 result 依然可用
	Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error)

	// CanExecute 检查是否可以执行指定的 step
	CanExecute(req *ExecutionRequest) bool

	// Name 返回执行器名称
	Name() string
}

// ExecutionRequest 执行请求，表达式已解析完成
type ExecutionRequest struct {
	RunID string
	Stage string
	Step  *pipeline.Step

	// 执行环境
	Workspace string
	Env       []string
	// OutputFile 对应 CONVEYOR_OUTPUT
	OutputFile string
}

// ExecutionResult 执行结果
type ExecutionResult struct {
	Success  bool
	ExitCode int32
	Error    string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// 输出（stdout / stderr）
	Output      string
	ErrorOutput string

	ExecutorName string

	// Outputs 由内置动作直接产生的输出
	Outputs map[string]string
}

// NewExecutionResult 创建执行结果
func NewExecutionResult(executorName string) *ExecutionResult {
	return &ExecutionResult{
		ExecutorName: executorName,
		StartTime:    time.Now(),
		Outputs:      make(map[string]string),
	}
}

// Complete 完成执行结果
func (r *ExecutionResult) Complete(success bool, exitCode int32, err error) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
	r.ExitCode = exitCode
	if err != nil {
		r.Error = err.Error()
	}
}

// WithOutput 设置输出
func (r *ExecutionResult) WithOutput(output, errorOutput string) *ExecutionResult {
	r.Output = output
	r.ErrorOutput = errorOutput
	return r
}
