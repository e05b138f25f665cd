//go:build wireinject
// +build wireinject

package main

import (
	"github.com/go-arcade/conveyor/internal/bootstrap"
	"github.com/go-arcade/conveyor/internal/conveyor/config"
	"github.com/go-arcade/conveyor/internal/conveyor/router"
	"github.com/go-arcade/conveyor/internal/conveyor/service"
	"github.com/go-arcade/conveyor/internal/pkg/approval"
	"github.com/go-arcade/conveyor/internal/pkg/executor"
	"github.com/go-arcade/conveyor/internal/pkg/history"
	"github.com/go-arcade/conveyor/internal/pkg/notify"
	"github.com/go-arcade/conveyor/internal/pkg/orchestrator"
	"github.com/go-arcade/conveyor/internal/pkg/secrets"
	"github.com/go-arcade/conveyor/internal/pkg/sse"
	"github.com/go-arcade/conveyor/pkg/cache"
	"github.com/go-arcade/conveyor/pkg/cron"
	"github.com/go-arcade/conveyor/pkg/database"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/metrics"
	"github.com/go-arcade/conveyor/pkg/shutdown"
	"github.com/go-arcade/conveyor/pkg/storage"
	"github.com/go-arcade/conveyor/pkg/trace"
	"github.com/google/wire"
)

func initApp(appConf *config.AppConfig) (*bootstrap.App, func(), error) {
	panic(wire.Build(
		// 配置层
		config.ProviderSet,
		// 基础设施
		log.ProviderSet,
		trace.ProviderSet,
		metrics.ProviderSet,
		cron.ProviderSet,
		cache.ProviderSet,
		database.ProviderSet,
		storage.ProviderSet,
		shutdown.ProviderSet,
		// 流水线组件
		secrets.ProviderSet,
		history.ProviderSet,
		executor.ProviderSet,
		approval.ProviderSet,
		notify.ProviderSet,
		sse.ProviderSet,
		orchestrator.ProviderSet,
		// 服务层
		service.ProviderSet,
		// 路由层
		router.ProviderSet,
		// 应用层
		bootstrap.NewApp,
	))
}
