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

package statemachine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageStateMachine_HappyPath(t *testing.T) {
	sm := NewStageStateMachine()
	assert.Equal(t, StagePending, sm.Current())
	assert.Equal(t, StagePending, sm.Initial())

	require.NoError(t, sm.TransitionTo(StageWaiting))
	require.NoError(t, sm.TransitionTo(StageRunning, "approved by alice"))
	require.NoError(t, sm.TransitionTo(StageSucceeded))

	assert.True(t, sm.IsTerminal())
	assert.True(t, sm.Is(StageSucceeded, StageFailed))

	history := sm.History()
	require.Len(t, history, 3)
	assert.Equal(t, "approved by alice", history[1].Reason)
	assert.Equal(t, StageWaiting, history[1].From)
}

func TestStageStateMachine_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []StageStatus
		bad  StageStatus
	}{
		{name: "pending to succeeded", path: nil, bad: StageSucceeded},
		{name: "skipped is terminal", path: []StageStatus{StageSkipped}, bad: StageRunning},
		{name: "failed is terminal", path: []StageStatus{StageRunning, StageFailed}, bad: StageRunning},
		{name: "waiting cannot skip", path: []StageStatus{StageWaiting}, bad: StageSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStageStateMachine()
			for _, s := range tt.path {
				require.NoError(t, sm.TransitionTo(s))
			}
			before := sm.Current()
			err := sm.TransitionTo(tt.bad)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid transition")
			assert.Equal(t, before, sm.Current())
		})
	}
}

func TestStateMachine_Hooks(t *testing.T) {
	var entered []RunStatus
	var seen int

	sm := NewRunStateMachine()
	sm.OnTransition(func(from, to RunStatus) error {
		seen++
		return nil
	})
	sm.OnEnter(RunRunning, func(state RunStatus) error {
		entered = append(entered, state)
		// reading the machine from a hook must not deadlock
		assert.Equal(t, RunRunning, sm.Current())
		return nil
	})

	require.NoError(t, sm.TransitionTo(RunRunning))
	assert.Equal(t, []RunStatus{RunRunning}, entered)
	assert.Equal(t, 1, seen)
}

func TestStateMachine_TransitionHookError(t *testing.T) {
	sm := NewRunStateMachine()
	sm.OnTransition(func(from, to RunStatus) error {
		return errors.New("boom")
	})

	err := sm.TransitionTo(RunRunning)
	require.Error(t, err)
	assert.Equal(t, RunPending, sm.Current())
	history := sm.History()
	require.Len(t, history, 1)
	assert.Error(t, history[0].Error)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StageSkipped.IsTerminal())
	assert.True(t, StageCanceled.IsTerminal())
	assert.False(t, StageWaiting.IsTerminal())
	assert.False(t, StageRunning.IsTerminal())

	assert.True(t, RunFailed.IsTerminal())
	assert.False(t, RunRunning.IsTerminal())
}
