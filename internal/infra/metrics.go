package infra

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics
var (
	transferOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "center_transfer_outcomes_total",
		Help: "Orchestrated operations by final disposition",
	}, []string{"operation", "disposition"})

	walletMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "center_wallet_mutations_total",
		Help: "Wallet store calls by entity kind and result code",
	}, []string{"entity", "code"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "center_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	outboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "center_outbox_published_total",
		Help: "Outbox events handed to the broker",
	}, []string{"result"})
)

// ObserveTransfer counts one orchestrated operation.
func ObserveTransfer(operation, disposition string) {
	transferOutcomes.WithLabelValues(operation, disposition).Inc()
}

// ObserveMutation counts one wallet store call.
func ObserveMutation(entity string, code int) {
	walletMutations.WithLabelValues(entity, strconv.Itoa(code)).Inc()
}

// ObserveHTTP records a finished request.
func ObserveHTTP(method, route string, seconds float64) {
	httpLatency.WithLabelValues(method, route).Observe(seconds)
}

// ObserveOutbox counts one publish attempt.
func ObserveOutbox(ok bool) {
	if ok {
		outboxPublished.WithLabelValues("ok").Inc()
		return
	}
	outboxPublished.WithLabelValues("error").Inc()
}
