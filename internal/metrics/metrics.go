// Package metrics holds Prometheus instruments for troubleshooting sessions.
// The CLI is short lived, so instead of serving /metrics the registry is
// written in textfile-collector format when the session stops.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/moolen/troubleshooter/internal/agent/groupchat"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "troubleshooter"

// Metrics holds the session instruments.
type Metrics struct {
	registry *prometheus.Registry
	file     string

	Turns             *prometheus.CounterVec   // messages appended, by speaker
	Sessions          *prometheus.CounterVec   // finished sessions, by reason
	Rounds            prometheus.Gauge         // rounds of the last session
	LLMRequests       *prometheus.CounterVec   // by agent, provider, model, outcome
	LLMTokens         *prometheus.CounterVec   // by direction (input, output)
	LLMDuration       *prometheus.HistogramVec // by provider
	Executions        *prometheus.CounterVec   // by language, result
	ExecutionDuration prometheus.Histogram
	Waits             prometheus.Counter
	WaitSeconds       prometheus.Counter
}

// New creates instruments registered on a fresh registry. file is where Stop
// writes them; empty disables the write.
func New(file string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		file:     file,
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Messages appended to the group chat",
		}, []string{"speaker"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished sessions by end reason",
		}, []string{"reason"}),
		Rounds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_rounds",
			Help:      "Rounds used by the last session",
		}),
		LLMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM requests",
		}, []string{"agent", "provider", "model", "outcome"}),
		LLMTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "LLM tokens by direction",
		}, []string{"direction"}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request latency",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"provider"}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Executed code blocks",
		}, []string{"language", "result"}),
		ExecutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Code block execution time",
			Buckets:   prometheus.DefBuckets,
		}),
		Waits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_waits_total",
			Help:      "Pauses between turns",
		}),
		WaitSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_wait_seconds_total",
			Help:      "Time spent pausing between turns",
		}),
	}

	reg.MustRegister(
		m.Turns, m.Sessions, m.Rounds,
		m.LLMRequests, m.LLMTokens, m.LLMDuration,
		m.Executions, m.ExecutionDuration,
		m.Waits, m.WaitSeconds,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveLLMRequest records one provider call.
func (m *Metrics) ObserveLLMRequest(agent, provider, model string, inputTokens, outputTokens int, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.LLMRequests.WithLabelValues(agent, provider, model, outcome).Inc()
	m.LLMDuration.WithLabelValues(provider).Observe(d.Seconds())
	m.LLMTokens.WithLabelValues("input").Add(float64(inputTokens))
	m.LLMTokens.WithLabelValues("output").Add(float64(outputTokens))
}

// ObserveExecution records one executed code block.
func (m *Metrics) ObserveExecution(language string, exitCode int, d time.Duration) {
	result := "success"
	switch {
	case exitCode == 124:
		result = "timeout"
	case exitCode != 0:
		result = "failure"
	}
	m.Executions.WithLabelValues(language, result).Inc()
	m.ExecutionDuration.Observe(d.Seconds())
}

// MessageAppended implements groupchat.Observer.
func (m *Metrics) MessageAppended(msg groupchat.Message, round int) {
	m.Turns.WithLabelValues(msg.Name).Inc()
}

// SpeakerSelected implements groupchat.Observer.
func (m *Metrics) SpeakerSelected(groupchat.Agent, int) {}

// Waited implements groupchat.Observer.
func (m *Metrics) Waited(_ groupchat.Agent, d time.Duration) {
	m.Waits.Inc()
	m.WaitSeconds.Add(d.Seconds())
}

// Finished implements groupchat.Observer.
func (m *Metrics) Finished(result *groupchat.Result, _ error) {
	m.Sessions.WithLabelValues(string(result.Reason)).Inc()
	m.Rounds.Set(float64(result.Rounds))
}

// Name implements lifecycle.Component.
func (m *Metrics) Name() string {
	return "metrics"
}

// Start implements lifecycle.Component.
func (m *Metrics) Start(context.Context) error {
	return nil
}

// Stop writes the textfile when a path is configured.
func (m *Metrics) Stop(context.Context) error {
	if m.file == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.file, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", m.file, err)
	}
	return nil
}
