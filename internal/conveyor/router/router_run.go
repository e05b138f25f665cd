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
	"bufio"
	"strconv"
	"time"

	"github.com/go-arcade/conveyor/internal/pkg/history"
	"github.com/go-arcade/conveyor/internal/pkg/orchestrator"
	"github.com/go-arcade/conveyor/internal/pkg/sse"
	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const streamHeartbeat = 15 * time.Second

func (rt *Router) runRouter(r fiber.Router, auth fiber.Handler) {
	runGroup := r.Group("/runs")
	{
		runGroup.Get("/", auth, rt.listRuns)             // GET /runs?pipeline=&status=&limit=
		runGroup.Get("/:id", auth, rt.getRun)            // GET /runs/:id
		runGroup.Post("/:id/cancel", auth, rt.cancelRun) // POST /runs/:id/cancel
		runGroup.Get("/:id/events", auth, rt.streamRun)  // GET /runs/:id/events - server-sent lifecycle events
		runGroup.Get("/:id/ws", auth, rt.upgradeRun, websocket.New(rt.watchRun))
	}
}

func (rt *Router) listRuns(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "0"))
	if err != nil || limit < 0 {
		return http.WithRepErrMsg(c, http.BadRequest, "limit must be a non-negative integer", c.Path())
	}
	runs, err := rt.Runs.List(c.UserContext(), history.RunFilter{
		Pipeline: c.Query("pipeline"),
		Status:   c.Query("status"),
		Limit:    limit,
	})
	if err != nil {
		return withErr(c, err)
	}
	return http.WithRepJSON(c, runs)
}

func (rt *Router) getRun(c *fiber.Ctx) error {
	run, err := rt.Runs.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return withErr(c, err)
	}
	return http.WithRepJSON(c, run)
}

func (rt *Router) cancelRun(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := rt.Runs.Cancel(c.UserContext(), id); err != nil {
		return withErr(c, err)
	}
	log.Infow("run cancel requested", "run_id", id, "by", subject(c))
	return http.WithRepStatus(c, fiber.StatusAccepted, fiber.Map{"id": id})
}

// streamRun sends the current run, then its lifecycle events until it finishes
func (rt *Router) streamRun(c *fiber.Ctx) error {
	id := c.Params("id")
	// subscribe before reading the run so no event falls between the two
	ch, cancel := rt.Stream.Subscribe(id)

	run, err := rt.Runs.Get(c.UserContext(), id)
	if err != nil {
		cancel()
		return withErr(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if err := sse.Write(w, sse.Message{Event: "run.snapshot", Data: run}); err != nil {
			return
		}
		if run.Status.IsTerminal() {
			return
		}

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				// a failed write means the client went away
				if err := sse.Write(w, msg); err != nil {
					return
				}
				if msg.Event == orchestrator.EventRunFinished {
					return
				}
			// streams end once the server drains
			case <-rt.Shutdown.Done():
				return
			case <-heartbeat.C:
				if err := sse.Heartbeat(w); err != nil {
					return
				}
			}
		}
	})
	return nil
}
