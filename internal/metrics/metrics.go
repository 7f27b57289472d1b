// Package metrics exposes Prometheus collectors for decoding.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beam_searches_total",
		Help: "Beam searches run, by outcome",
	}, []string{"outcome"})

	StepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beam_steps_total",
		Help: "Decoding steps run across all searches",
	})

	EarlyStopsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beam_early_stops_total",
		Help: "Searches that ended before the step budget",
	})

	HypothesesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beam_hypotheses_total",
		Help: "Hypotheses returned, by pool",
	}, []string{"pool"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beam_search_duration_seconds",
		Help:    "Wall time of one beam search",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beam_batch_size",
		Help:    "Source sentences per search",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})

	SourceTokens = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beam_source_tokens",
		Help:    "Source length in tokens",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500},
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beam_api_requests_total",
		Help: "API requests, by route and status code",
	}, []string{"route", "code"})
)

// Search is the outcome of one search as recorded by RecordSearch.
type Search struct {
	Batch     int
	SourceLen int
	Steps     int
	EarlyStop bool
	Finished  int
	Alive     int
	Duration  time.Duration
	Err       error
}

// RecordSearch updates every search collector from s.
func RecordSearch(s Search) {
	if s.Err != nil {
		SearchesTotal.WithLabelValues("error").Inc()
		return
	}
	SearchesTotal.WithLabelValues("ok").Inc()
	StepsTotal.Add(float64(s.Steps))
	if s.EarlyStop {
		EarlyStopsTotal.Inc()
	}
	HypothesesTotal.WithLabelValues("finished").Add(float64(s.Finished))
	HypothesesTotal.WithLabelValues("alive").Add(float64(s.Alive))
	SearchDuration.Observe(s.Duration.Seconds())
	BatchSize.Observe(float64(s.Batch))
	SourceTokens.Observe(float64(s.SourceLen))
}
