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

package cron

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/safe"
	"github.com/robfig/cron"
)

var (
	// ErrDuplicateJob is returned when a job name is already scheduled
	ErrDuplicateJob = errors.New("cron job already registered")
	// ErrJobNotFound is returned by Run for unknown names
	ErrJobNotFound = errors.New("cron job not found")
)

// Scheduler runs named jobs on cron specs. Specs take six fields (with
// seconds) or descriptors such as @every 30s and @hourly.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]func()
	running bool
	logger  log.Logger
}

func New(logger log.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		jobs:   make(map[string]func()),
		logger: logger,
	}
}

// AddFunc schedules cmd under name. Panics in cmd are recovered and logged.
func (s *Scheduler) AddFunc(name, spec string, cmd func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	wrapped := func() {
		if err := safe.Do(cmd); err != nil && s.logger.Log != nil {
			s.logger.Log.Errorw("cron job panicked", "job", name, "error", err)
		}
	}
	if err := s.cron.AddFunc(spec, wrapped); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.jobs[name] = wrapped
	if s.logger.Log != nil {
		s.logger.Log.Infow("cron job registered", "job", name, "spec", spec)
	}
	return nil
}

// Run executes a registered job immediately in the calling goroutine
func (s *Scheduler) Run(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	job()
	return nil
}

// Jobs returns the registered job names sorted
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.cron.Stop()
}
