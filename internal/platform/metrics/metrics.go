package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the verification engine.
type Metrics struct {
	MessagesConsumed *prometheus.CounterVec
	DecodeFailures   *prometheus.CounterVec
	HandlerFailures  *prometheus.CounterVec
	ResultsPublished *prometheus.CounterVec
	PublishFailures  *prometheus.CounterVec
	CallbackAttempts prometheus.Counter
	CallbackFailures prometheus.Counter
	HandleDuration   *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MessagesConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_messages_consumed_total",
			Help: "Total messages received from the broker, by topic.",
		}, []string{"topic"}),
		DecodeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_decode_failures_total",
			Help: "Total inbound payloads dropped as malformed, by topic.",
		}, []string{"topic"}),
		HandlerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_handler_failures_total",
			Help: "Total workflow handler failures, by workflow.",
		}, []string{"workflow"}),
		ResultsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_results_published_total",
			Help: "Total results published to result topics, by topic.",
		}, []string{"topic"}),
		PublishFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriflow_publish_failures_total",
			Help: "Total failed result publishes, by topic.",
		}, []string{"topic"}),
		CallbackAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veriflow_callback_attempts_total",
			Help: "Total HTTP callback delivery attempts.",
		}),
		CallbackFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veriflow_callback_failures_total",
			Help: "Total callback deliveries that exhausted all retries.",
		}),
		HandleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veriflow_handle_duration_seconds",
			Help:    "Time spent handling a single message, by workflow.",
			Buckets: prometheus.DefBuckets,
		}, []string{"workflow"}),
	}
}
