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

package config

import (
	"github.com/go-arcade/conveyor/internal/pkg/approval"
	"github.com/go-arcade/conveyor/internal/pkg/executor"
	"github.com/go-arcade/conveyor/internal/pkg/notify"
	"github.com/go-arcade/conveyor/internal/pkg/orchestrator"
	"github.com/go-arcade/conveyor/internal/pkg/secrets"
	"github.com/go-arcade/conveyor/pkg/cache"
	"github.com/go-arcade/conveyor/pkg/database"
	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
	"github.com/go-arcade/conveyor/pkg/storage"
	"github.com/go-arcade/conveyor/pkg/trace"
	"github.com/google/wire"
)

// ProviderSet 提供配置层相关的依赖
var ProviderSet = wire.NewSet(
	ProvideLogConfig,
	ProvideHttpConfig,
	ProvidePipelineConfig,
	ProvideExecutorConfig,
	ProvideOrchestratorConfig,
	ProvideApprovalConfig,
	ProvideSecretsConfig,
	ProvideNotifyConfig,
	ProvideStorageConfig,
	ProvideDatabaseConfig,
	ProvideRedisConfig,
	ProvideMetricsConfig,
	ProvideTraceConfig,
)

// ProvideLogConfig 提供日志配置
func ProvideLogConfig(appConf *AppConfig) *log.Conf {
	return &appConf.Log
}

// ProvideHttpConfig 提供 HTTP 配置
func ProvideHttpConfig(appConf *AppConfig) *http.Http {
	httpConfig := &appConf.Http
	httpConfig.SetDefaults()
	return httpConfig
}

func ProvidePipelineConfig(appConf *AppConfig) PipelineConfig {
	return appConf.Pipeline
}

func ProvideExecutorConfig(appConf *AppConfig) executor.Conf {
	conf := appConf.Executor
	conf.SetDefaults()
	return conf
}

func ProvideOrchestratorConfig(appConf *AppConfig) orchestrator.Conf {
	conf := appConf.Orchestrator
	conf.SetDefaults()
	return conf
}

func ProvideApprovalConfig(appConf *AppConfig) approval.Conf {
	conf := appConf.Approval
	conf.SetDefaults()
	return conf
}

func ProvideSecretsConfig(appConf *AppConfig) secrets.Conf {
	return appConf.Secrets
}

func ProvideNotifyConfig(appConf *AppConfig) notify.Conf {
	conf := appConf.Notify
	conf.SetDefaults()
	return conf
}

func ProvideStorageConfig(appConf *AppConfig) storage.Storage {
	conf := appConf.Storage
	conf.SetDefaults()
	return conf
}

// ProvideDatabaseConfig 提供数据库配置
func ProvideDatabaseConfig(appConf *AppConfig) database.Database {
	return appConf.Database
}

// ProvideRedisConfig 提供 Redis 配置
func ProvideRedisConfig(appConf *AppConfig) cache.Redis {
	return appConf.Redis
}

// ProvideMetricsConfig 提供 Metrics 配置
func ProvideMetricsConfig(appConf *AppConfig) metrics.MetricsConfig {
	return appConf.Metrics
}

func ProvideTraceConfig(appConf *AppConfig) trace.Conf {
	return appConf.Trace
}
