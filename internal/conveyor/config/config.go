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
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
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
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CONVEYOR_HTTP_PORT
const EnvPrefix = "CONVEYOR"

// PipelineConfig locates the pipeline definitions served by the instance
type PipelineConfig struct {
	// Dir holds *.yaml and *.yml pipeline files
	Dir string
	// Watch reloads definitions when files in Dir change
	Watch bool
}

type AppConfig struct {
	Log          log.Conf
	Http         http.Http
	Pipeline     PipelineConfig
	Executor     executor.Conf
	Orchestrator orchestrator.Conf
	Approval     approval.Conf
	Secrets      secrets.Conf
	Notify       notify.Conf
	Storage      storage.Storage
	Database     database.Database
	Redis        cache.Redis
	Metrics      metrics.MetricsConfig
	Trace        trace.Conf
}

var (
	cfg  *AppConfig
	once sync.Once
)

func NewConf(confDir string) *AppConfig {
	once.Do(func() {
		var err error
		cfg, err = LoadConfigFile(confDir)
		if err != nil {
			panic(fmt.Sprintf("load config file error: %s", err))
		}
	})
	return cfg
}

// LoadConfigFile load config file. Values can be overridden from the
// environment with the CONVEYOR_ prefix.
func LoadConfigFile(confDir string) (*AppConfig, error) {
	config := newViper()
	config.SetConfigFile(confDir)
	if err := config.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	conf := &AppConfig{}
	if err := config.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration file: %w", err)
	}

	// changes are reported, not applied: components read their config once
	config.WatchConfig()
	config.OnConfigChange(func(e fsnotify.Event) {
		log.Infow("configuration file changed, restart to apply", "path", e.Name, "op", e.Op.String())
	})
	log.Infow("config file loaded", "path", confDir)
	return conf, nil
}

// Default returns the configuration used when no file is given
func Default() *AppConfig {
	config := newViper()
	conf := &AppConfig{}
	_ = config.Unmarshal(conf)
	return conf
}

func newViper() *viper.Viper {
	config := viper.New()
	config.SetConfigType("toml")
	config.SetEnvPrefix(EnvPrefix)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	config.SetDefault("log.output", "stdout")
	config.SetDefault("log.level", "INFO")
	config.SetDefault("log.path", "./logs")
	config.SetDefault("log.filename", "conveyor.log")
	config.SetDefault("pipeline.dir", "pipelines")
	config.SetDefault("pipeline.watch", true)
	config.SetDefault("storage.provider", storage.StorageLocal)
	return config
}
