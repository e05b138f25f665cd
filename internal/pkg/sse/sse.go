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

package sse

import (
	"bufio"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/wire"
)

// ProviderSet provides the stream hub
var ProviderSet = wire.NewSet(ProvideHub)

// subscriberBuffer is how many messages a subscriber may lag behind
const subscriberBuffer = 128

// Message is one server-sent event
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub fans messages out to the subscribers of a topic
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Message]struct{} // topic -> set(ch)
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Message]struct{})}
}

// ProvideHub returns a hub that is closed with the app
func ProvideHub() (*Hub, func()) {
	h := NewHub()
	return h, h.Close
}

// Broadcast delivers msg to every subscriber of topic
func (h *Hub) Broadcast(topic string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[topic] {
		select {
		case ch <- msg:
		default:
			// 慢消费者丢弃
		}
	}
}

// Subscribe returns a channel of messages for topic. The channel is closed
// by cancel or when the hub closes.
func (h *Hub) Subscribe(topic string) (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = make(map[chan Message]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		set, ok := h.subs[topic]
		if !ok {
			return
		}
		if _, ok := set[ch]; !ok {
			return
		}
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, topic)
		}
		close(ch)
	}
}

// Subscribers counts the subscribers of topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Close ends every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for topic, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, topic)
	}
}

// Write encodes msg in the text/event-stream format and flushes it
func Write(w *bufio.Writer, msg Message) error {
	data, err := sonic.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", msg.Event, err)
	}
	if msg.Event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", msg.Event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

// Heartbeat writes a comment line that keeps idle connections open
func Heartbeat(w *bufio.Writer) error {
	if _, err := w.WriteString(": ping\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
