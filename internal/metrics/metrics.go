// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package metrics counts what the engine does. Collectors live in their own
// registry, exposed over HTTP only when the host asks for it.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pipeterm"

// Metrics holds the engine's collectors.
type Metrics struct {
	registry *prometheus.Registry

	PipelinesLaunched prometheus.Counter
	StagesSpawned     prometheus.Counter
	StageFailures     prometheus.Counter
	JobsBackgrounded  prometheus.Counter
	Interrupts        prometheus.Counter
	BackgroundJobs    prometheus.Gauge
	WatchSessions     *prometheus.CounterVec
}

// New creates and registers the collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PipelinesLaunched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipelines_launched_total",
			Help:      "Pipelines launched in the foreground.",
		}),
		StagesSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_spawned_total",
			Help:      "Pipeline stages that started a process.",
		}),
		StageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Pipeline stages that could not be executed or redirected.",
		}),
		JobsBackgrounded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_backgrounded_total",
			Help:      "Foreground pipelines moved to the job table.",
		}),
		Interrupts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interrupts_total",
			Help:      "Foreground pipelines cancelled by the user.",
		}),
		BackgroundJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "background_jobs",
			Help:      "Active slots in the job table.",
		}),
		WatchSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_sessions_total",
			Help:      "Finished multiWatch sessions, labeled by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.PipelinesLaunched,
		m.StagesSpawned,
		m.StageFailures,
		m.JobsBackgrounded,
		m.Interrupts,
		m.BackgroundJobs,
		m.WatchSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Launched records a pipeline launch with its spawned and failed stages.
func (m *Metrics) Launched(spawned, failed int) {
	if m == nil {
		return
	}

	m.PipelinesLaunched.Inc()
	m.StagesSpawned.Add(float64(spawned))
	m.StageFailures.Add(float64(failed))
}

// Backgrounded records a successful suspend.
func (m *Metrics) Backgrounded() {
	if m == nil {
		return
	}

	m.JobsBackgrounded.Inc()
}

// Interrupted records a cancelled foreground pipeline.
func (m *Metrics) Interrupted() {
	if m == nil {
		return
	}

	m.Interrupts.Inc()
}

// Jobs sets the number of active background jobs.
func (m *Metrics) Jobs(n int) {
	if m == nil {
		return
	}

	m.BackgroundJobs.Set(float64(n))
}

// WatchFinished records how a multiWatch session ended.
func (m *Metrics) WatchFinished(outcome string) {
	if m == nil {
		return
	}

	m.WatchSessions.WithLabelValues(outcome).Inc()
}
