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

package router

import (
	"github.com/go-arcade/conveyor/internal/conveyor/service"
	"github.com/go-arcade/conveyor/internal/pkg/approval"
	"github.com/go-arcade/conveyor/internal/pkg/orchestrator"
	"github.com/go-arcade/conveyor/internal/pkg/sse"
	"github.com/go-arcade/conveyor/pkg/cache"
	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/http/middleware"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/shutdown"
	"github.com/go-arcade/conveyor/pkg/version"
	"github.com/gofiber/fiber/v2"
	"github.com/google/wire"
)

// ProviderSet 提供路由层相关的依赖
var ProviderSet = wire.NewSet(NewRouter)

type Router struct {
	Http      *http.Http
	Pipelines *service.PipelineService
	Runs      *orchestrator.Orchestrator
	Approvals *approval.Gate
	Stream    *sse.Hub
	Shutdown  *shutdown.Manager
	// Deliveries drops webhook deliveries GitHub sends more than once
	Deliveries cache.Deduper
}

func NewRouter(
	httpConf *http.Http,
	pipelines *service.PipelineService,
	runs *orchestrator.Orchestrator,
	approvals *approval.Gate,
	stream *sse.Hub,
	shutdownManager *shutdown.Manager,
	deliveries cache.Deduper,
) *Router {
	return &Router{
		Http:       httpConf,
		Pipelines:  pipelines,
		Runs:       runs,
		Approvals:  approvals,
		Stream:     stream,
		Shutdown:   shutdownManager,
		Deliveries: deliveries,
	}
}

func (rt *Router) Router() *fiber.App {
	app := http.NewApp(*rt.Http)

	app.Use(middleware.ExceptionMiddleware)
	app.Use(middleware.AccessLogMiddleware(rt.Http))

	// 健康检查
	app.Get("/health", func(c *fiber.Ctx) error {
		if rt.Shutdown.IsShuttingDown() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("draining")
		}
		return c.SendString("ok")
	})

	// 版本信息
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(version.GetVersion())
	})

	api := app.Group("/api/v1")
	{
		// webhooks authenticate with their payload signature
		if rt.Http.Auth.WebhookSecret == "" {
			log.Warnw("webhook secret is not configured, github deliveries will be rejected")
		}
		api.Post("/webhooks/github", rt.rejectDraining, rt.githubWebhook)

		auth := middleware.AuthorizationMiddleware(rt.Http.Auth.SecretKey)
		rt.pipelineRouter(api, auth)
		rt.eventRouter(api, auth)
		rt.runRouter(api, auth)
		rt.approvalRouter(api, auth)
	}

	// 找不到路径时的处理 - 必须在所有路由注册之后
	app.Use(func(c *fiber.Ctx) error {
		return http.WithRepErr(c, http.NotFound.WithMsg("request path not found"), c.Path())
	})

	return app
}

// rejectDraining refuses new events once shutdown has begun so no run starts
// after active runs are canceled.
func (rt *Router) rejectDraining(c *fiber.Ctx) error {
	if rt.Shutdown.IsShuttingDown() {
		return http.WithRepErr(c, http.ShuttingDown, c.Path())
	}
	return c.Next()
}
