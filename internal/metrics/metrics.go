package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	Invocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradebook_invocations_total",
			Help: "Pipeline runs by result (ok, or the abort error code)",
		},
		[]string{"result"},
	)

	StageOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradebook_stage_outcomes_total",
			Help: "Stage outcomes by stage and kind (success, skipped, failed)",
		},
		[]string{"stage", "outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gradebook_run_duration_seconds",
			Help:    "Wall time of one pipeline run",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	AttachmentBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gradebook_log_file_bytes",
			Help:    "Size of the log files read",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB .. 16MiB
		},
	)
)

// ResultOK labels a run that produced a result.
const ResultOK = "ok"

// RecordStage counts one stage outcome.
func RecordStage(stage, outcome string) {
	StageOutcomes.WithLabelValues(stage, outcome).Inc()
}

// RecordRun counts a finished run. result is ResultOK or the abort code.
func RecordRun(result string, elapsed time.Duration) {
	if result == "" {
		result = "unknown"
	}
	Invocations.WithLabelValues(result).Inc()
	RunDuration.Observe(elapsed.Seconds())
}

// RecordFileSize observes the size of one log file.
func RecordFileSize(n int) {
	AttachmentBytes.Observe(float64(n))
}

// Pusher sends the collectors above to a Pushgateway. Short-lived runs (Lambda,
// the run command) cannot be scraped, so they push at the end instead.
type Pusher struct {
	url string
	job string
}

// NewPusher returns nil when url is empty; a nil Pusher is a no-op.
func NewPusher(url, job string) *Pusher {
	if url == "" {
		return nil
	}
	return &Pusher{url: url, job: job}
}

// Push adds the current values under the job grouping.
func (p *Pusher) Push(ctx context.Context) error {
	if p == nil {
		return nil
	}
	err := push.New(p.url, p.job).
		Collector(Invocations).
		Collector(StageOutcomes).
		Collector(RunDuration).
		Collector(AttachmentBytes).
		AddContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
