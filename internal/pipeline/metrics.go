// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kortschak/goldwasher/internal/outcome"
)

// Metrics holds the run metrics for a pipeline. Metrics are collected
// in a private registry and written in the Prometheus text exposition
// format for a node exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	items    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  prometheus.Gauge
}

// NewMetrics returns a new Metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldwasher_items_total",
			Help: "Number of items processed by each stage, by final status.",
		}, []string{"stage", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goldwasher_stage_seconds",
			Help:    "Time spent completing a pipeline stage across all lists.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"stage"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goldwasher_last_run_timestamp_seconds",
			Help: "Unix time of the completion of the last run.",
		}),
	}
	m.registry.MustRegister(m.items, m.duration, m.lastRun)
	return m
}

// observe counts the outcome.
func (m *Metrics) observe(o outcome.Outcome) {
	m.items.WithLabelValues(string(o.Stage), o.Status.String()).Inc()
}

// stage starts timing the named stage. The returned func must be called
// when the stage completes.
func (m *Metrics) stage(s outcome.Stage) func() {
	t := prometheus.NewTimer(m.duration.WithLabelValues(string(s)))
	return func() { t.ObserveDuration() }
}

// WriteFile writes the metrics to the file at path, marking the run as
// complete.
func (m *Metrics) WriteFile(path string) error {
	m.lastRun.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.registry)
}
