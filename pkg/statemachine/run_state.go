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

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

func (s RunStatus) IsTerminal() bool {
	return s == RunSucceeded || s == RunFailed || s == RunCanceled
}

// NewRunStateMachine returns a machine in RunPending.
func NewRunStateMachine() *StateMachine[RunStatus] {
	return NewWithState(RunPending).
		Allow(RunPending, RunRunning, RunCanceled).
		Allow(RunRunning, RunSucceeded, RunFailed, RunCanceled).
		Terminal(RunSucceeded, RunFailed, RunCanceled)
}
