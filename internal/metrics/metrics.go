package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	tokenEstimates *prometheus.CounterVec
	modelCalls     *prometheus.CounterVec
	modelLatency   *prometheus.HistogramVec
	chunkedInputs  *prometheus.CounterVec
	staleResponses prometheus.Counter
	syncMisses     prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		tokenEstimates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askai",
			Name:      "token_estimates_total",
			Help:      "Token estimates by method (local, remote, heuristic).",
		}, []string{"method"}),
		modelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askai",
			Name:      "model_calls_total",
			Help:      "Model backend calls by request type and outcome.",
		}, []string{"request_type", "outcome"}),
		modelLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "askai",
			Name:      "model_call_duration_seconds",
			Help:      "Model backend call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"request_type"}),
		chunkedInputs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "askai",
			Name:      "chunked_inputs_total",
			Help:      "Oversized inputs by handling strategy (map_reduce, truncate).",
		}, []string{"strategy"}),
		staleResponses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "askai",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because the session was reset in flight.",
		}),
		syncMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "askai",
			Name:      "question_slot_misses_total",
			Help:      "Question slots left with placeholder text after a sync.",
		}),
	}
}

func (m *Metrics) TokenEstimate(method string) {
	if m == nil {
		return
	}
	m.tokenEstimates.WithLabelValues(method).Inc()
}

func (m *Metrics) ModelCall(requestType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(requestType, outcome).Inc()
	m.modelLatency.WithLabelValues(requestType).Observe(seconds)
}

func (m *Metrics) ChunkedInput(strategy string) {
	if m == nil {
		return
	}
	m.chunkedInputs.WithLabelValues(strategy).Inc()
}

func (m *Metrics) StaleResponse() {
	if m == nil {
		return
	}
	m.staleResponses.Inc()
}

func (m *Metrics) SlotMisses(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.syncMisses.Add(float64(n))
}
