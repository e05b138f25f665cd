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

package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/go-arcade/conveyor/internal/bootstrap"
	"github.com/go-arcade/conveyor/internal/conveyor/config"
	"github.com/go-arcade/conveyor/pkg/version"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "conveyor",
	Short:         "conveyor runs CI/CD pipelines defined in YAML",
	Long:          "conveyor triggers pipelines from repository events, runs their stages as a dependency graph and gates deployments on manual approval",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and webhook receiver",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bootstrap 初始化应用
		app, cleanup, err := bootstrap.Bootstrap(configFile, initApp)
		if err != nil {
			return err
		}
		// 启动应用并等待退出信号
		bootstrap.Run(app, cleanup)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "conf", "c", "conf.d/config.toml", "conf file path, e.g. -c ./conf.d/config.toml")

	rootCmd.AddCommand(
		serveCmd,
		runCmd,
		validateCmd,
		secretsCmd,
		approveCmd,
		rejectCmd,
		tokenCmd,
		version.VersionCmd,
	)
}

// loadConf reads the config file; commands other than serve fall back to
// defaults when it does not exist.
func loadConf() (*config.AppConfig, error) {
	conf, err := config.LoadConfigFile(configFile)
	if err == nil {
		return conf, nil
	}
	if _, statErr := os.Stat(configFile); errors.Is(statErr, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
