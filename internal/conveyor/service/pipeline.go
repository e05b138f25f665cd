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

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-arcade/conveyor/internal/pkg/history"
	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/internal/pkg/secrets"
	"github.com/go-arcade/conveyor/internal/pkg/trigger"
	"github.com/go-arcade/conveyor/pkg/log"
)

var (
	ErrPipelineNotFound  = errors.New("pipeline not found")
	ErrDuplicatePipeline = errors.New("duplicate pipeline name")
)

// reloadDelay coalesces the burst of events editors produce on save
const reloadDelay = 200 * time.Millisecond

// RunStarter starts runs for resolved plans
type RunStarter interface {
	Start(ctx context.Context, plan *trigger.Plan) (*history.Run, error)
}

type registered struct {
	pipeline *pipeline.Pipeline
	source   string
}

// PipelineService holds the loaded pipeline definitions and turns events
// into runs.
type PipelineService struct {
	dir      string
	parser   *pipeline.Parser
	resolver *trigger.Resolver
	runs     RunStarter
	catalog  secrets.Catalog
	logger   log.Logger

	mu        sync.RWMutex
	pipelines map[string]registered
}

func NewPipelineService(dir string, runs RunStarter, catalog secrets.Catalog, logger log.Logger) *PipelineService {
	return &PipelineService{
		dir:       dir,
		parser:    pipeline.NewParser(logger),
		resolver:  trigger.NewResolver(logger),
		runs:      runs,
		catalog:   catalog,
		logger:    logger,
		pipelines: make(map[string]registered),
	}
}

// Dir is the directory definitions are loaded from
func (s *PipelineService) Dir() string {
	return s.dir
}

// LoadDir replaces the registry with the definitions found in dir. Files
// that fail to parse are reported and skipped; the rest are still loaded.
func (s *PipelineService) LoadDir() error {
	files, err := pipelineFiles(s.dir)
	if err != nil {
		return err
	}

	loaded := make(map[string]registered, len(files))
	var errs []error
	for _, file := range files {
		pl, err := s.parser.Load(file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, ok := loaded[pl.Name]; ok {
			errs = append(errs, fmt.Errorf("%w: %s in %s and %s", ErrDuplicatePipeline, pl.Name, prev.source, file))
			continue
		}
		s.lint(pl, file)
		loaded[pl.Name] = registered{pipeline: pl, source: file}
	}

	s.mu.Lock()
	s.pipelines = loaded
	s.mu.Unlock()

	if s.logger.Log != nil {
		s.logger.Log.Infow("pipelines loaded", "dir", s.dir, "count", len(loaded), "errors", len(errs))
	}
	return errors.Join(errs...)
}

// Add registers pl, replacing a definition with the same name
func (s *PipelineService) Add(pl *pipeline.Pipeline, source string) {
	s.lint(pl, source)
	s.mu.Lock()
	s.pipelines[pl.Name] = registered{pipeline: pl, source: source}
	s.mu.Unlock()
}

func (s *PipelineService) Get(name string) (*pipeline.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, name)
	}
	return r.pipeline, nil
}

// List returns the registered pipelines sorted by name
func (s *PipelineService) List() []*pipeline.Pipeline {
	s.mu.RLock()
	out := make([]*pipeline.Pipeline, 0, len(s.pipelines))
	for _, r := range s.pipelines {
		out = append(out, r.pipeline)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *pipeline.Pipeline) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Trigger resolves ev against the named pipeline, or every pipeline when
// name is empty, and starts a run for each one it triggers. It returns
// trigger.ErrNotTriggered when no run was started.
func (s *PipelineService) Trigger(ctx context.Context, name string, ev trigger.Event) ([]*history.Run, error) {
	var targets []*pipeline.Pipeline
	if name != "" {
		pl, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		targets = []*pipeline.Pipeline{pl}
	} else {
		targets = s.List()
	}

	var runs []*history.Run
	var errs []error
	for _, pl := range targets {
		plan, err := s.resolver.Resolve(pl, ev)
		if errors.Is(err, trigger.ErrNotTriggered) {
			// an unmatched explicit target is reported, a broadcast is not
			if name != "" {
				return nil, err
			}
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pl.Name, err))
			continue
		}
		run, err := s.runs.Start(ctx, plan)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: start run: %w", pl.Name, err))
			continue
		}
		runs = append(runs, run)
	}

	if err := errors.Join(errs...); err != nil {
		return runs, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no pipeline matched %s %s", trigger.ErrNotTriggered, ev.Name, ev.Ref)
	}
	return runs, nil
}

// Watch reloads the registry whenever a definition in the directory
// changes, until ctx is done.
func (s *PipelineService) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPipelineFile(e.Name) || e.Op == fsnotify.Chmod {
				continue
			}
			pending = time.After(reloadDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if s.logger.Log != nil {
				s.logger.Log.Warnw("pipeline watcher error", "dir", s.dir, "error", err)
			}
		case <-pending:
			pending = nil
			if err := s.LoadDir(); err != nil && s.logger.Log != nil {
				s.logger.Log.Errorw("reload pipelines", "dir", s.dir, "error", err)
			}
		}
	}
}

func (s *PipelineService) lint(pl *pipeline.Pipeline, source string) {
	if s.catalog == nil || s.logger.Log == nil {
		return
	}
	for _, issue := range secrets.Lint(pl, s.catalog) {
		s.logger.Log.Warnw("secret lint", "pipeline", pl.Name, "file", source, "issue", issue.String())
	}
}

func pipelineFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pipeline dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isPipelineFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func isPipelineFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
