package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments used by the bot. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	Turns           prometheus.Counter
	Summaries       *prometheus.CounterVec
	ModelCalls      *prometheus.CounterVec
	ModelLatency    *prometheus.HistogramVec
	EmbedCache      *prometheus.CounterVec
	RetrievedScores prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Turns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns persisted.",
		}),
		Summaries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summarization attempts by result.",
		}, []string{"result"}),
		ModelCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model calls by operation and result.",
		}, []string{"op", "result"}),
		ModelLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_latency_ms",
			Help:      "Model call latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}, []string{"op"}),
		EmbedCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embed_cache_lookups_total",
			Help:      "Embedding cache lookups by layer and result.",
		}, []string{"layer", "result"}),
		RetrievedScores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_top_score",
			Help:      "Best cosine score of each retrieval.",
			Buckets:   prometheus.LinearBuckets(-1, 0.25, 9),
		}),
	}
}

func (m *Metrics) ObserveTurn() {
	if m == nil {
		return
	}
	m.Turns.Inc()
}

func (m *Metrics) ObserveSummary(result string) {
	if m == nil {
		return
	}
	m.Summaries.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveModelCall(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ModelCalls.WithLabelValues(op, result).Inc()
	m.ModelLatency.WithLabelValues(op).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveEmbedCache(layer string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbedCache.WithLabelValues(layer, result).Inc()
}

func (m *Metrics) ObserveTopScore(score float64) {
	if m == nil {
		return
	}
	m.RetrievedScores.Observe(score)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
