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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "conveyor"

// PipelineMetrics holds the collectors the orchestrator reports into.
type PipelineMetrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	StagesTotal        *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	ApprovalsPending   prometheus.Gauge
	ApprovalsDecided   *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	SweepRunsTotal     prometheus.Counter
}

// NewPipelineMetrics creates the collectors and registers them on reg.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished pipeline runs by result",
		}, []string{"pipeline", "status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished pipeline runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
		}, []string{"pipeline"}),
		StagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_total",
			Help:      "Finished stages by result",
		}, []string{"pipeline", "stage", "status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of executed stages",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}, []string{"pipeline", "stage"}),
		ApprovalsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "approvals_pending",
			Help:      "Approval requests waiting for a decision",
		}),
		ApprovalsDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approvals_decided_total",
			Help:      "Approval requests by final status",
		}, []string{"status"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and result",
		}, []string{"channel", "result"}),
		SweepRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_sweeps_total",
			Help:      "Executions of the approval expiry sweep",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.RunsTotal, m.RunDuration, m.StagesTotal, m.StageDuration,
			m.ApprovalsPending, m.ApprovalsDecided, m.NotificationsTotal, m.SweepRunsTotal,
		)
	}
	return m
}

func (m *PipelineMetrics) ObserveRun(pipeline, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(pipeline, status).Inc()
	m.RunDuration.WithLabelValues(pipeline).Observe(elapsed.Seconds())
}

// ObserveStage counts a finished stage; skipped stages have no duration.
func (m *PipelineMetrics) ObserveStage(pipeline, stage, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StagesTotal.WithLabelValues(pipeline, stage, status).Inc()
	if elapsed > 0 {
		m.StageDuration.WithLabelValues(pipeline, stage).Observe(elapsed.Seconds())
	}
}

func (m *PipelineMetrics) ApprovalRequested() {
	if m == nil {
		return
	}
	m.ApprovalsPending.Inc()
}

func (m *PipelineMetrics) ApprovalResolved(status string) {
	if m == nil {
		return
	}
	m.ApprovalsPending.Dec()
	m.ApprovalsDecided.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.NotificationsTotal.WithLabelValues(channel, result).Inc()
}

func (m *PipelineMetrics) ObserveSweep() {
	if m == nil {
		return
	}
	m.SweepRunsTotal.Inc()
}
