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

package pipeline

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-arcade/conveyor/pkg/duration"
	"github.com/go-arcade/conveyor/pkg/log"
	"sigs.k8s.io/yaml"
)

// Parser decodes pipeline definitions from YAML (or JSON, a subset of YAML)
type Parser struct {
	logger log.Logger
}

func NewParser(logger log.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse decodes, defaults and validates a pipeline definition
func (p *Parser) Parse(data []byte) (*Pipeline, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: definition is empty", ErrInvalidPipeline)
	}

	var pl Pipeline
	if err := yaml.UnmarshalStrict(data, &pl); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPipeline, err)
	}
	applyDefaults(&pl)

	if err := Validate(&pl); err != nil {
		return nil, err
	}

	if p.logger.Log != nil {
		p.logger.Log.Debugw("parsed pipeline",
			"name", pl.Name,
			"stages", len(pl.Stages),
			"environments", len(pl.Environments),
		)
	}
	return &pl, nil
}

// Load reads and parses the pipeline file at path
func (p *Parser) Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline %s: %w", path, err)
	}
	pl, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pl, nil
}

// Parse is Parser.Parse without logging
func Parse(data []byte) (*Pipeline, error) {
	return NewParser(log.Logger{}).Parse(data)
}

// Load is Parser.Load without logging
func Load(path string) (*Pipeline, error) {
	return NewParser(log.Logger{}).Load(path)
}

func applyDefaults(pl *Pipeline) {
	if len(pl.Environments) == 0 {
		pl.Environments = DefaultEnvironments()
	}
	for name, env := range pl.Environments {
		if env == nil {
			env = &Environment{}
			pl.Environments[name] = env
		}
		env.Name = name
		if env.Approval != nil && env.Approval.Required && env.Approval.Timeout == 0 {
			env.Approval.Timeout = duration.Duration(DefaultApprovalTimeout)
		}
	}
	for _, stage := range pl.Stages {
		if stage == nil {
			continue
		}
		for i, step := range stage.Steps {
			if step == nil {
				continue
			}
			if step.ID == "" {
				step.ID = strconv.Itoa(i)
			}
			if step.Name == "" {
				step.Name = step.ID
			}
			if step.Retry != nil && step.Retry.MaxAttempts < 1 {
				step.Retry.MaxAttempts = 1
			}
		}
	}
}
