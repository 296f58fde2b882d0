package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fiapx_lesson_runs_total",
		Help: "Total number of material generation runs, by outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fiapx_lesson_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fiapx_lesson_frames_sampled_total",
		Help: "Total number of frames written by the sampler across all runs",
	})

	FramesDiscardedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fiapx_lesson_frames_discarded_total",
		Help: "Frames removed as duplicates or leading frames, by strategy",
	}, []string{"strategy"})

	FingerprintFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fiapx_lesson_fingerprint_failures_total",
		Help: "Frames kept because they could not be fingerprinted or compared",
	}, []string{"strategy"})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fiapx_lesson_active_runs",
		Help: "Number of runs currently in progress",
	})
)
