package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PostsCollected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "grokpulse",
		Name:      "posts_collected_total",
		Help:      "Number of newly inserted posts.",
	})
	MentionsExtracted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "grokpulse",
		Name:      "mentions_extracted_total",
		Help:      "Number of topic mentions written by the extractor.",
	})
	BucketsUpserted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grokpulse",
		Name:      "buckets_upserted_total",
		Help:      "Number of trend buckets written, by granularity.",
	}, []string{"granularity"})
	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "grokpulse",
		Name:      "tick_duration_seconds",
		Help:      "Duration of one full pipeline tick.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})
)

// Register adds the pipeline metrics to the default registry. Call once
// from main; the collectors themselves are usable without registration.
func Register() {
	prometheus.MustRegister(PostsCollected, MentionsExtracted, BucketsUpserted, TickDuration)
}
