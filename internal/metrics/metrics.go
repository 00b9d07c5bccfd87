// Package metrics exposes the monitor's Prometheus metrics. Registration
// happens at import time via promauto; serving them is the caller's choice.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	windowLabels = []string{"target", "window"}

	MetricRTT = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pingmon_rtt_nanoseconds",
			Help: "Round-trip time statistics per sliding window in nanoseconds.",
		},
		append(windowLabels, "stat"), // stat can be "mean", "min", "max", "jitter"
	)

	MetricLoss = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pingmon_loss_percentage",
			Help: "Packet loss percentage per sliding window.",
		},
		windowLabels,
	)

	MetricSamples = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pingmon_window_samples",
			Help: "Number of samples currently inside each sliding window.",
		},
		windowLabels,
	)

	MetricProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pingmon_probes_total",
			Help: "Total probes issued, labelled by result.",
		},
		[]string{"target", "result"}, // result is "ok" or a failure reason
	)

	MetricStrategy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pingmon_probe_strategy",
			Help: "The probe strategy in use (1 for the active one).",
		},
		[]string{"target", "strategy"},
	)

	MetricBuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pingmon_build_info",
			Help: "Build information.",
		},
		[]string{"version", "commit", "date"},
	)
)
