package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quiz"

// Metrics holds the session metrics and implements app.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted    prometheus.Counter
	SessionsFinished   prometheus.Counter
	SessionsErrored    *prometheus.CounterVec
	ResultsRecorded    *prometheus.CounterVec
	PersistenceFailure *prometheus.CounterVec
	Swept              prometheus.Counter
	AnswerLatency      prometheus.Histogram
}

// New registers the metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions created",
		}),
		SessionsFinished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Sessions that reached Finished",
		}),
		SessionsErrored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_errored_total",
				Help:      "Sessions that ended in Errored",
			},
			[]string{"reason"},
		),
		ResultsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "results_recorded_total",
				Help:      "Committed results by outcome",
			},
			[]string{"outcome"}, // correct, incorrect, timeout
		),
		PersistenceFailure: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persistence_failures_total",
				Help:      "Failed ledger or result log writes",
			},
			[]string{"op"},
		),
		Swept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Abandoned sessions deleted by the sweeper",
		}),
		AnswerLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_latency_seconds",
			Help:      "Time from question presented to result committed",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
		}),
	}
}

func (m *Metrics) SessionStarted() { m.SessionsStarted.Inc() }
func (m *Metrics) SessionFinished() { m.SessionsFinished.Inc() }

func (m *Metrics) SessionErrored(reason string) {
	m.SessionsErrored.WithLabelValues(reason).Inc()
}

func (m *Metrics) ResultRecorded(outcome string, latency time.Duration) {
	m.ResultsRecorded.WithLabelValues(outcome).Inc()
	m.AnswerLatency.Observe(latency.Seconds())
}

func (m *Metrics) PersistenceFailed(op string) {
	m.PersistenceFailure.WithLabelValues(op).Inc()
}

func (m *Metrics) SessionsSwept(n int) {
	m.Swept.Add(float64(n))
}

// Handler serves the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests and additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
