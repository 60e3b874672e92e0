// Package prommetrics implements entitlement.Metrics using Prometheus.
package prommetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements entitlement.Metrics using Prometheus collectors.
type Metrics struct {
	fetchTotal        *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	gateDecisionTotal *prometheus.CounterVec
	guestPromptTotal  *prometheus.CounterVec
	trialStartTotal   *prometheus.CounterVec
}

// NewMetrics creates a Prometheus metrics implementation registered with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_fetch_total",
			Help:      "Total number of entitlement API fetches.",
		}, []string{"resource", "success"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entitlement_fetch_duration_seconds",
			Help:      "Latency of entitlement API fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource"}),

		gateDecisionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_gate_decisions_total",
			Help:      "Total number of feature gate evaluations.",
		}, []string{"feature", "allowed"}),

		guestPromptTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guest_limiter_checks_total",
			Help:      "Total number of guest limiter checks.",
		}, []string{"action", "blocked"}),

		trialStartTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_start_attempts_total",
			Help:      "Total number of trial start attempts.",
		}, []string{"success"}),
	}
}

func (m *Metrics) RecordFetch(resource string, duration time.Duration, err error) {
	m.fetchTotal.WithLabelValues(resource, strconv.FormatBool(err == nil)).Inc()
	m.fetchDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

func (m *Metrics) RecordGateDecision(feature string, allowed bool) {
	m.gateDecisionTotal.WithLabelValues(feature, strconv.FormatBool(allowed)).Inc()
}

func (m *Metrics) RecordGuestPrompt(action string, blocked bool) {
	m.guestPromptTotal.WithLabelValues(action, strconv.FormatBool(blocked)).Inc()
}

func (m *Metrics) RecordTrialStart(success bool) {
	m.trialStartTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}
