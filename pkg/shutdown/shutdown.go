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

package shutdown

import (
	"sync/atomic"

	"github.com/google/wire"
)

// ProviderSet provides the process shutdown state
var ProviderSet = wire.NewSet(NewManager)

// Manager tracks whether the process is draining
type Manager struct {
	draining atomic.Bool
	done     chan struct{}
}

func NewManager() *Manager {
	return &Manager{done: make(chan struct{})}
}

// IsShuttingDown reports whether Shutdown was called. A nil Manager never drains.
func (m *Manager) IsShuttingDown() bool {
	return m != nil && m.draining.Load()
}

// Shutdown starts draining. It returns false if already draining.
func (m *Manager) Shutdown() bool {
	if !m.draining.CompareAndSwap(false, true) {
		return false
	}
	close(m.done)
	return true
}

// Done is closed once Shutdown is called. It is nil for a nil Manager.
func (m *Manager) Done() <-chan struct{} {
	if m == nil {
		return nil
	}
	return m.done
}
