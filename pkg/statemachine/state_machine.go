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
	"fmt"
	"slices"
	"sync"
	"time"
)

// TransitionHook runs while a transition is applied.
type TransitionHook[T comparable] func(from, to T) error

// StateHook runs after a state is entered.
type StateHook[T comparable] func(state T) error

// TransitionRecord is one entry of the transition history.
type TransitionRecord[T comparable] struct {
	From      T
	To        T
	Reason    string
	Timestamp time.Time
	Error     error
}

// StateMachine is a small thread-safe finite state machine over comparable states.
type StateMachine[T comparable] struct {
	mu sync.RWMutex

	current T
	initial T

	transitions map[T][]T
	terminal    map[T]struct{}

	history        []TransitionRecord[T]
	maxHistorySize int

	onTransition []TransitionHook[T]
	onEnter      map[T][]StateHook[T]
}

// NewWithState creates a StateMachine sitting in initial.
func NewWithState[T comparable](initial T) *StateMachine[T] {
	return &StateMachine[T]{
		current:        initial,
		initial:        initial,
		transitions:    make(map[T][]T),
		terminal:       make(map[T]struct{}),
		onEnter:        make(map[T][]StateHook[T]),
		maxHistorySize: 64,
	}
}

// Allow registers from -> to for every given target.
func (sm *StateMachine[T]) Allow(from T, to ...T) *StateMachine[T] {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, target := range to {
		if !slices.Contains(sm.transitions[from], target) {
			sm.transitions[from] = append(sm.transitions[from], target)
		}
	}
	return sm
}

// Terminal marks states that never transition again.
func (sm *StateMachine[T]) Terminal(states ...T) *StateMachine[T] {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, s := range states {
		sm.terminal[s] = struct{}{}
	}
	return sm
}

// OnTransition registers a hook called for every applied transition.
func (sm *StateMachine[T]) OnTransition(h TransitionHook[T]) *StateMachine[T] {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onTransition = append(sm.onTransition, h)
	return sm
}

// OnEnter registers a hook called after entering state.
func (sm *StateMachine[T]) OnEnter(state T, h StateHook[T]) *StateMachine[T] {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onEnter[state] = append(sm.onEnter[state], h)
	return sm
}

func (sm *StateMachine[T]) Current() T {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

func (sm *StateMachine[T]) Initial() T {
	return sm.initial
}

// Is reports whether the current state is one of states.
func (sm *StateMachine[T]) Is(states ...T) bool {
	return slices.Contains(states, sm.Current())
}

// IsTerminal reports whether the machine reached a terminal state.
func (sm *StateMachine[T]) IsTerminal() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.terminal[sm.current]
	return ok
}

func (sm *StateMachine[T]) CanTransitionTo(to T) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return slices.Contains(sm.transitions[sm.current], to)
}

// TransitionTo moves the machine from its current state to to.
func (sm *StateMachine[T]) TransitionTo(to T, reason ...string) error {
	sm.mu.Lock()
	from := sm.current
	record := TransitionRecord[T]{From: from, To: to, Timestamp: time.Now()}
	if len(reason) > 0 {
		record.Reason = reason[0]
	}

	if !slices.Contains(sm.transitions[from], to) {
		record.Error = fmt.Errorf("invalid transition: %v -> %v", from, to)
		sm.record(record)
		sm.mu.Unlock()
		return record.Error
	}

	for _, h := range sm.onTransition {
		if err := h(from, to); err != nil {
			record.Error = fmt.Errorf("transition hook failed: %w", err)
			sm.record(record)
			sm.mu.Unlock()
			return record.Error
		}
	}

	sm.current = to
	sm.record(record)
	hooks := slices.Clone(sm.onEnter[to])
	sm.mu.Unlock()

	// enter hooks run unlocked so they may read the machine
	for _, h := range hooks {
		if err := h(to); err != nil {
			return fmt.Errorf("enter hook failed for state %v: %w", to, err)
		}
	}
	return nil
}

// History returns a copy of the recorded transitions.
func (sm *StateMachine[T]) History() []TransitionRecord[T] {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return slices.Clone(sm.history)
}

func (sm *StateMachine[T]) record(r TransitionRecord[T]) {
	sm.history = append(sm.history, r)
	if len(sm.history) > sm.maxHistorySize {
		sm.history = sm.history[len(sm.history)-sm.maxHistorySize:]
	}
}
