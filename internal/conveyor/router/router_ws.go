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
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/conveyor/internal/pkg/orchestrator"
	"github.com/go-arcade/conveyor/internal/pkg/sse"
	"github.com/go-arcade/conveyor/pkg/http"
	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const wsWriteWait = 10 * time.Second

// upgradeRun rejects plain requests and unknown runs before the handshake
func (rt *Router) upgradeRun(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return http.WithRepErr(c, http.UpgradeRequired, c.Path())
	}
	if _, err := rt.Runs.Get(c.UserContext(), c.Params("id")); err != nil {
		return withErr(c, err)
	}
	return c.Next()
}

// watchRun is the websocket flavour of streamRun. Messages are JSON encoded
// sse.Message values.
func (rt *Router) watchRun(conn *websocket.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debugw("failed to close websocket", "error", err)
		}
	}()

	id := conn.Params("id")
	ch, cancel := rt.Stream.Subscribe(id)
	defer cancel()

	run, err := rt.Runs.Get(context.Background(), id)
	if err != nil {
		return
	}

	send := func(msg sse.Message) error {
		data, err := sonic.Marshal(msg)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	if err := send(sse.Message{Event: "run.snapshot", Data: run}); err != nil || run.Status.IsTerminal() {
		return
	}

	// clients only read; a failed read means they went away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-gone:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := send(msg); err != nil {
				log.Debugw("websocket write failed", "run_id", id, "error", err)
				return
			}
			if msg.Event == orchestrator.EventRunFinished {
				return
			}
		// streams end once the server drains
		case <-rt.Shutdown.Done():
			return
		case <-heartbeat.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
