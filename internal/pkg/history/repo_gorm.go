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

package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/conveyor/pkg/statemachine"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PipelineRun 流水线运行记录表
type PipelineRun struct {
	ID          uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	RunId       string         `gorm:"column:run_id;size:32;uniqueIndex"`
	Pipeline    string         `gorm:"column:pipeline;size:128;index"`
	Event       string         `gorm:"column:event;size:32"`
	Ref         string         `gorm:"column:ref;size:255"`
	Branch      string         `gorm:"column:branch;size:255"`
	SHA         string         `gorm:"column:sha;size:64"`
	Actor       string         `gorm:"column:actor;size:128"`
	Environment string         `gorm:"column:environment;size:64"`
	Status      string         `gorm:"column:status;size:16;index"`
	Error       string         `gorm:"column:error;type:text"`
	Inputs      datatypes.JSON `gorm:"column:inputs;type:json"`
	Stages      datatypes.JSON `gorm:"column:stages;type:json"` // []*StageRun
	StartedAt   *time.Time     `gorm:"column:started_at"`
	FinishedAt  *time.Time     `gorm:"column:finished_at"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (PipelineRun) TableName() string {
	return "t_pipeline_run"
}

// upsert overwrites these on conflict
var mutableColumns = []string{"status", "error", "environment", "stages", "started_at", "finished_at", "updated_at"}

// RunRepo stores runs in MySQL
type RunRepo struct {
	db *gorm.DB
}

// NewRunRepo migrates the run table and returns the repository
func NewRunRepo(db *gorm.DB) (*RunRepo, error) {
	if err := db.AutoMigrate(&PipelineRun{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", PipelineRun{}.TableName(), err)
	}
	return &RunRepo{db: db}, nil
}

func (r *RunRepo) Save(ctx context.Context, run *Run) error {
	rec, err := toRecord(run)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}},
			DoUpdates: clause.AssignmentColumns(mutableColumns),
		}).
		Create(rec).Error
}

func (r *RunRepo) Get(ctx context.Context, id string) (*Run, error) {
	var rec PipelineRun
	err := r.db.WithContext(ctx).Where("run_id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRecord(&rec)
}

func (r *RunRepo) List(ctx context.Context, f RunFilter) ([]*Run, error) {
	query := r.db.WithContext(ctx).Model(&PipelineRun{})
	if f.Pipeline != "" {
		query = query.Where("pipeline = ?", f.Pipeline)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var recs []*PipelineRun
	if err := query.Order("id DESC").Limit(f.limit()).Find(&recs).Error; err != nil {
		return nil, err
	}
	runs := make([]*Run, 0, len(recs))
	for _, rec := range recs {
		run, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func toRecord(run *Run) (*PipelineRun, error) {
	inputs, err := sonic.Marshal(run.Inputs)
	if err != nil {
		return nil, fmt.Errorf("encode inputs: %w", err)
	}
	stages, err := sonic.Marshal(run.Stages)
	if err != nil {
		return nil, fmt.Errorf("encode stages: %w", err)
	}
	return &PipelineRun{
		RunId:       run.ID,
		Pipeline:    run.Pipeline,
		Event:       run.Event,
		Ref:         run.Ref,
		Branch:      run.Branch,
		SHA:         run.SHA,
		Actor:       run.Actor,
		Environment: run.Environment,
		Status:      string(run.Status),
		Error:       run.Error,
		Inputs:      datatypes.JSON(inputs),
		Stages:      datatypes.JSON(stages),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		CreatedAt:   run.CreatedAt,
	}, nil
}

func fromRecord(rec *PipelineRun) (*Run, error) {
	run := &Run{
		ID:          rec.RunId,
		Pipeline:    rec.Pipeline,
		Event:       rec.Event,
		Ref:         rec.Ref,
		Branch:      rec.Branch,
		SHA:         rec.SHA,
		Actor:       rec.Actor,
		Environment: rec.Environment,
		Status:      statemachine.RunStatus(rec.Status),
		Error:       rec.Error,
		StartedAt:   rec.StartedAt,
		FinishedAt:  rec.FinishedAt,
		CreatedAt:   rec.CreatedAt,
	}
	if len(rec.Inputs) > 0 {
		if err := sonic.Unmarshal(rec.Inputs, &run.Inputs); err != nil {
			return nil, fmt.Errorf("decode inputs of run %s: %w", rec.RunId, err)
		}
	}
	if len(rec.Stages) > 0 {
		if err := sonic.Unmarshal(rec.Stages, &run.Stages); err != nil {
			return nil, fmt.Errorf("decode stages of run %s: %w", rec.RunId, err)
		}
	}
	return run, nil
}
