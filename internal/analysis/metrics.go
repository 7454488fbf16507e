package analysis

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records analysis counts and latencies.
type Metrics struct {
	analyses *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the analysis collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "internmatch",
			Name:      "analyses_total",
			Help:      "Completed profile analyses by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "internmatch",
			Name:      "analysis_duration_seconds",
			Help:      "Time spent producing a profile analysis.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10, 30},
		}, []string{"kind"}),
	}
	reg.MustRegister(m.analyses, m.duration)
	return m
}

// Wrap returns an Analyzer that records every call to next.
func (m *Metrics) Wrap(next Analyzer) Analyzer {
	return AnalyzerFunc(func(ctx context.Context, hint Hint) (Result, error) {
		start := time.Now()
		res, err := next.Analyze(ctx, hint)
		m.duration.WithLabelValues(string(hint.Kind)).Observe(time.Since(start).Seconds())

		outcome := "ok"
		switch {
		case err != nil && ctx.Err() != nil:
			outcome = "canceled"
		case err != nil:
			outcome = "error"
		}
		m.analyses.WithLabelValues(string(hint.Kind), outcome).Inc()
		return res, err
	})
}
