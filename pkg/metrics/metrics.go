// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

// Package metrics provides Prometheus instrumentation for biometric ceremony
// operations and the HTTP surface that carries them.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all evote-auth metrics.
	Namespace = "evote_auth"

	// Label names
	LabelCeremony   = "ceremony"
	LabelStatus     = "status"
	LabelErrorKind  = "error_kind"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Ceremony names
	CeremonyRegistrationBegin  = "registration_begin"
	CeremonyRegistrationFinish = "registration_finish"
	CeremonyLoginBegin         = "login_begin"
	CeremonyLoginFinish        = "login_finish"
)

var (
	// CeremoniesTotal tracks ceremony operations by type and outcome.
	CeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_total",
			Help:      "Total number of ceremony operations by type and status",
		},
		[]string{LabelCeremony, LabelStatus},
	)

	// CeremonyDuration tracks ceremony durations in seconds. Buckets cover
	// the in-memory fast path up to slow database round trips.
	CeremonyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ceremony_duration_seconds",
			Help:      "Duration of ceremony operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{LabelCeremony},
	)

	// VerificationFailuresTotal tracks rejected ceremonies by the internal
	// error kind. The HTTP layer answers generically; this counter is where
	// the specific kinds stay visible to operators.
	VerificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "verification_failures_total",
			Help:      "Total number of rejected ceremonies by error kind",
		},
		[]string{LabelCeremony, LabelErrorKind},
	)

	// HTTPRequestsTotal tracks HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks HTTP request durations in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// enabled tracks whether metrics collection is enabled.
	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// SetEnabled toggles metrics collection at runtime.
func SetEnabled(on bool) {
	enabled.Store(on)
}

// IsEnabled returns whether metrics collection is enabled.
func IsEnabled() bool {
	return enabled.Load()
}

// RecordCeremony records a ceremony operation with its duration and outcome.
func RecordCeremony(ceremony, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	CeremoniesTotal.WithLabelValues(ceremony, status).Inc()
	CeremonyDuration.WithLabelValues(ceremony).Observe(duration)
}

// RecordVerificationFailure records a rejected ceremony with its error kind.
func RecordVerificationFailure(ceremony, errorKind string) {
	if !enabled.Load() {
		return
	}
	VerificationFailuresTotal.WithLabelValues(ceremony, errorKind).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}
