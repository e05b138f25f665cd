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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/pkg/duration"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/retry"
	"github.com/go-resty/resty/v2"
)

// HealthCheckExecutor 内置 health-check 动作
// 对 with.url 发起 HTTP 请求，直到返回期望的状态码或重试次数用尽
type HealthCheckExecutor struct {
	client *resty.Client
	conf   HealthCheckConf
	logger log.Logger
}

// HealthCheckConf health-check 的默认参数
type HealthCheckConf struct {
	Attempts int           `mapstructure:"attempts"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// HealthCheckConfig 单次 health-check 的参数
type HealthCheckConfig struct {
	Method         string
	URL            string
	ExpectedStatus []int
	Attempts       int
	Interval       time.Duration
	Timeout        time.Duration
}

// NewHealthCheckExecutor 创建 health-check 执行器
func NewHealthCheckExecutor(conf HealthCheckConf, logger log.Logger) *HealthCheckExecutor {
	client := resty.New()
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	client.SetHeader("User-Agent", "conveyor-health-check")

	return &HealthCheckExecutor{
		client: client,
		conf:   conf,
		logger: logger,
	}
}

func (e *HealthCheckExecutor) Name() string {
	return pipeline.BuiltinHealthCheck
}

func (e *HealthCheckExecutor) CanExecute(req *ExecutionRequest) bool {
	return req != nil && req.Step != nil && req.Step.Uses == pipeline.BuiltinHealthCheck
}

func (e *HealthCheckExecutor) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error) {
	result := NewExecutionResult(e.Name())

	cfg, err := e.extractConfig(req.Step.With)
	if err != nil {
		result.Complete(false, -1, err)
		return result, err
	}

	var lastStatus int
	attempts := 0
	err = retry.Do(ctx, func(ctx context.Context) error {
		attempts++
		reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		resp, err := e.client.R().SetContext(reqCtx).Execute(cfg.Method, cfg.URL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: request %s: %v", ErrStepFailed, cfg.URL, err)
		}
		lastStatus = resp.StatusCode()
		for _, code := range cfg.ExpectedStatus {
			if lastStatus == code {
				return nil
			}
		}
		return fmt.Errorf("%w: %s returned status %d, expected one of %v", ErrStepFailed, cfg.URL, lastStatus, cfg.ExpectedStatus)
	},
		retry.WithMaxAttempts(cfg.Attempts),
		retry.WithBackoff(retry.Exponential(cfg.Interval, 8*cfg.Interval)),
		retry.WithOnRetry(func(attempt int, err error) {
			if e.logger.Log != nil {
				e.logger.Log.Infow("health check not ready", "stage", req.Stage, "url", cfg.URL, "attempt", attempt, "error", err)
			}
		}),
	)

	result.Outputs["status_code"] = strconv.Itoa(lastStatus)
	result.Output = fmt.Sprintf("%s %s -> %d after %d attempt(s)\n", cfg.Method, cfg.URL, lastStatus, attempts)
	if err != nil {
		result.Complete(false, int32(lastStatus), err)
		return result, err
	}
	result.Complete(true, 0, nil)
	return result, nil
}

// extractConfig 从 step with 中提取参数
func (e *HealthCheckExecutor) extractConfig(with map[string]string) (*HealthCheckConfig, error) {
	cfg := &HealthCheckConfig{
		Method:         "GET",
		URL:            with["url"],
		ExpectedStatus: []int{200},
		Attempts:       e.conf.Attempts,
		Interval:       e.conf.Interval,
		Timeout:        e.conf.Timeout,
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: health-check requires with.url", ErrStepFailed)
	}
	if m := strings.TrimSpace(with["method"]); m != "" {
		cfg.Method = strings.ToUpper(m)
	}

	if raw := strings.TrimSpace(with["expected_status"]); raw != "" {
		cfg.ExpectedStatus = cfg.ExpectedStatus[:0]
		for _, s := range strings.Split(raw, ",") {
			code, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("%w: invalid expected_status %q", ErrStepFailed, s)
			}
			cfg.ExpectedStatus = append(cfg.ExpectedStatus, code)
		}
	}
	if raw := with["retries"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid retries %q", ErrStepFailed, raw)
		}
		cfg.Attempts = n + 1
	}
	for key, target := range map[string]*time.Duration{"interval": &cfg.Interval, "timeout": &cfg.Timeout} {
		if raw := with[key]; raw != "" {
			d, err := duration.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid %s %q", ErrStepFailed, key, raw)
			}
			*target = d
		}
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg, nil
}
