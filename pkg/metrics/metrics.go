// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exports run results in the Prometheus text format, for
// node_exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/report"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/status"
)

// 📈 Recorder holds the run metrics in a private registry
type Recorder struct {
	registry *prometheus.Registry

	RuleOutcomes *prometheus.CounterVec
	Files        *prometheus.CounterVec
	LastSuccess  prometheus.Gauge
	LastRun      prometheus.Gauge
}

// 🏭 NewRecorder creates a recorder with every series registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		RuleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patchrc_rule_outcomes_total",
			Help: "Rules evaluated, by outcome status",
		}, []string{"status"}),
		Files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patchrc_files_total",
			Help: "Target files processed, by final state",
		}, []string{"state"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "patchrc_last_run_success",
			Help: "1 if every file of the last run committed",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "patchrc_last_run_timestamp_seconds",
			Help: "Start time of the last run",
		}),
	}

	r.registry.MustRegister(r.RuleOutcomes, r.Files, r.LastSuccess, r.LastRun)

	// series exist at zero even before anything is observed
	for _, s := range rule.Statuses() {
		r.RuleOutcomes.WithLabelValues(s.String())
	}
	for _, s := range []status.FileState{status.StateCommitted, status.StateRolledBack} {
		r.Files.WithLabelValues(s.String())
	}

	return r
}

// Observe adds a finished report to the metrics
func (r *Recorder) Observe(rep *report.Report) {
	for _, e := range rep.Entries {
		r.RuleOutcomes.WithLabelValues(e.Status.String()).Inc()
	}
	for _, f := range rep.Files {
		r.Files.WithLabelValues(f.State.String()).Inc()
	}
	if rep.OK() {
		r.LastSuccess.Set(1)
	} else {
		r.LastSuccess.Set(0)
	}
	r.LastRun.Set(float64(rep.Started.Unix()))
}

// 💾 WriteTextfile writes every series to path, atomically
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
