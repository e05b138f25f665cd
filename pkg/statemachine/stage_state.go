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

// StageStatus is the lifecycle status of a single stage within a run.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageWaiting   StageStatus = "waiting_approval"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
	StageCanceled  StageStatus = "canceled"
)

// IsTerminal reports whether no further transition can happen.
func (s StageStatus) IsTerminal() bool {
	switch s {
	case StageSucceeded, StageFailed, StageSkipped, StageCanceled:
		return true
	}
	return false
}

// NewStageStateMachine returns a machine in StagePending.
//
//	pending -> running | waiting_approval | skipped | canceled
//	waiting_approval -> running | failed | canceled
//	running -> succeeded | failed | canceled
func NewStageStateMachine() *StateMachine[StageStatus] {
	return NewWithState(StagePending).
		Allow(StagePending, StageRunning, StageWaiting, StageSkipped, StageCanceled).
		Allow(StageWaiting, StageRunning, StageFailed, StageCanceled).
		Allow(StageRunning, StageSucceeded, StageFailed, StageCanceled).
		Terminal(StageSucceeded, StageFailed, StageSkipped, StageCanceled)
}
